// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// ErrorNotice is appended to a turn's partial text when its stream fails.
// The wording is fixed; renderers and tests match it verbatim.
const ErrorNotice = "\n\n[An error occurred. Please try again.]"

// =============================================================================
// TURN TYPE
// =============================================================================

// Turn is one question/answer exchange.
//
// A turn has a two-phase identity: it is born with a client-generated
// ClientID when the user submits, and adopts the server-assigned history id
// when the stream's terminal event commits it. ID() always returns the
// current effective identity.
type Turn struct {
	// ClientID is the pending identity assigned at creation. It never
	// changes, so in-flight stream events can always find their turn.
	ClientID string

	Question    string
	CodeSnippet string
	Persona     string
	Model       string

	// ConversationID is empty for the first turn of a new conversation
	// until the server reveals the identity in the completion event.
	ConversationID string

	// ResponseText is the answer as accumulated so far. While Streaming it
	// is mutated by the stream ingestor only; after commit it is final.
	ResponseText string

	Summary       string
	RoutingReason string
	Favorite      bool
	Streaming     bool
	CreatedAt     time.Time

	historyID string
	committed bool
}

// CompletionMeta is the terminal-event metadata that commits a turn.
type CompletionMeta struct {
	HistoryID      string
	ConversationID string
	FinalText      string
	Summary        string
	RoutingReason  string
	Persona        string
}

// NewTurn creates a pending turn for a just-submitted question.
func NewTurn(question, code, persona, model string) *Turn {
	return &Turn{
		ClientID:    uuid.NewString(),
		Question:    question,
		CodeSnippet: code,
		Persona:     persona,
		Model:       model,
		Streaming:   true,
		CreatedAt:   time.Now(),
	}
}

// ID returns the turn's effective identity: the server history id once
// committed with one, the client id before that.
func (t *Turn) ID() string {
	if t.historyID != "" {
		return t.historyID
	}
	return t.ClientID
}

// Committed reports whether the terminal stream event has been applied.
func (t *Turn) Committed() bool {
	return t.committed
}

// SetConversationID binds the turn to a conversation. Only the first
// non-empty id sticks; later attempts are rejected so a turn can never
// migrate between conversations.
func (t *Turn) SetConversationID(id string) bool {
	if id == "" || t.ConversationID != "" {
		return false
	}
	t.ConversationID = id
	return true
}

// SetResponseText replaces the in-progress answer text.
func (t *Turn) SetResponseText(text string) {
	t.ResponseText = text
}

// Commit finalizes the turn with the terminal event's metadata. The first
// commit wins; a turn is committed exactly once.
func (t *Turn) Commit(meta CompletionMeta) {
	if t.committed {
		return
	}
	t.committed = true
	t.Streaming = false

	t.historyID = meta.HistoryID
	t.SetConversationID(meta.ConversationID)
	if meta.FinalText != "" {
		t.ResponseText = meta.FinalText
	}
	if meta.Summary != "" {
		t.Summary = meta.Summary
	}
	if meta.RoutingReason != "" {
		t.RoutingReason = meta.RoutingReason
	}
	if meta.Persona != "" {
		t.Persona = meta.Persona
	}
}

// AppendErrorNotice marks a failed stream on the turn, preserving whatever
// partial answer already arrived.
func (t *Turn) AppendErrorNotice() {
	t.ResponseText += ErrorNotice
	t.Streaming = false
}
