// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and turns.
package model

import (
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is an ordered sequence of turns sharing one server-side
// conversation identity.
type Conversation struct {
	// ID is the server conversation id; empty until the server assigns one
	// during the first turn's stream.
	ID        string
	Title     string
	Model     string
	CreatedAt time.Time
	UpdatedAt time.Time

	Turns []*Turn
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	now := time.Now()
	return &Conversation{
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// =============================================================================
// CONVERSATION METHODS
// =============================================================================

// AddTurn appends a turn (optimistic insert at submission time).
func (c *Conversation) AddTurn(t *Turn) {
	c.Turns = append(c.Turns, t)
	c.UpdatedAt = time.Now()
}

// ActiveTurn returns the most recent turn, or nil for an empty conversation.
func (c *Conversation) ActiveTurn() *Turn {
	if len(c.Turns) == 0 {
		return nil
	}
	return c.Turns[len(c.Turns)-1]
}

// FindByClientID returns the turn with the given client identity, or nil.
func (c *Conversation) FindByClientID(clientID string) *Turn {
	for _, t := range c.Turns {
		if t.ClientID == clientID {
			return t
		}
	}
	return nil
}

// Clear removes all turns and drops the server identity (new chat).
func (c *Conversation) Clear() {
	c.ID = ""
	c.Title = ""
	c.Turns = nil
	c.UpdatedAt = time.Now()
}

// DeleteTurn removes the turn with the given effective id.
// Returns true if a turn was removed.
func (c *Conversation) DeleteTurn(id string) bool {
	for i, t := range c.Turns {
		if t.ID() == id {
			c.Turns = append(c.Turns[:i], c.Turns[i+1:]...)
			c.UpdatedAt = time.Now()
			return true
		}
	}
	return false
}

// GenerateTitle derives a title from the first question when the server has
// not supplied one.
func (c *Conversation) GenerateTitle() string {
	if c.Title != "" {
		return c.Title
	}
	for _, t := range c.Turns {
		if t.Question != "" {
			title := strings.ReplaceAll(t.Question, "\n", " ")
			runes := []rune(title)
			if len(runes) > 50 {
				title = string(runes[:47]) + "..."
			}
			return title
		}
	}
	return "New conversation"
}

// ExportMarkdown exports the conversation as a Markdown formatted string.
func (c *Conversation) ExportMarkdown() string {
	var sb strings.Builder
	sb.WriteString("# Chat - " + c.CreatedAt.Format("2006-01-02") + "\n\n")

	for i, t := range c.Turns {
		sb.WriteString("## Question " + strconv.Itoa(i+1) + "\n\n")
		sb.WriteString("**User:** " + t.Question + "\n\n")
		if t.CodeSnippet != "" {
			sb.WriteString("**Code:**\n```\n" + t.CodeSnippet + "\n```\n\n")
		}
		modelName := t.Model
		if modelName == "" {
			modelName = "AI"
		}
		sb.WriteString("**" + modelName + ":** " + t.ResponseText + "\n\n")
		sb.WriteString("---\n\n")
	}

	return sb.String()
}
