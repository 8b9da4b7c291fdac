// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable rendering components for the TUI.
package components

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/codebrain/codebrain-tui/internal/api"
	"github.com/codebrain/codebrain-tui/internal/model"
	"github.com/codebrain/codebrain-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGE RENDERER
// =============================================================================

// MessageRenderer renders turns into styled terminal text.
//
// PERFORMANCE: The glamour renderer is built once per width change, not per
// frame; markdown rendering is the most expensive step of a redraw.
type MessageRenderer struct {
	theme       *styles.Theme
	width       int
	showRouting bool
	markdown    *glamour.TermRenderer
}

// NewMessageRenderer creates a renderer for the given terminal width.
func NewMessageRenderer(theme *styles.Theme, width int) *MessageRenderer {
	r := &MessageRenderer{theme: theme, showRouting: true}
	r.SetWidth(width)
	return r
}

// SetShowRouting toggles the routing note under committed answers.
func (r *MessageRenderer) SetShowRouting(on bool) {
	r.showRouting = on
}

// SetWidth rebuilds the markdown renderer for a new wrap width.
func (r *MessageRenderer) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	r.width = width

	style := "dark"
	if !r.theme.IsDark {
		style = "light"
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width-4),
		glamour.WithEmoji(),
	)
	if err == nil {
		r.markdown = md
	}
}

// RenderTurn renders one question/answer exchange. displayText is the
// animated portion of the answer currently on screen; showCursor appends the
// typing cursor while the reveal is still running.
func (r *MessageRenderer) RenderTurn(turn *model.Turn, displayText string, phase api.Phase, showCursor bool) string {
	var sb strings.Builder

	sb.WriteString(r.theme.QuestionLabel.Render("You"))
	sb.WriteString("\n")
	sb.WriteString(r.theme.UserBubble.Render(turn.Question))
	if turn.CodeSnippet != "" {
		sb.WriteString("\n")
		sb.WriteString(RenderCodeBlock(r.theme, turn.CodeSnippet, "", r.width))
	}
	sb.WriteString("\n\n")

	label := turn.Model
	if label == "" {
		label = "CodeBrain"
	}
	sb.WriteString(r.theme.AnswerLabel.Render(label))
	sb.WriteString("\n")

	switch phase {
	case api.PhaseFetching, api.PhaseProgress, api.PhaseBlending:
		// Placeholders are plain status text, not markdown.
		sb.WriteString(r.theme.PhaseNotice.Render(displayText))
	default:
		sb.WriteString(r.renderAnswer(displayText, showCursor))
	}

	if r.showRouting && turn.Committed() && turn.RoutingReason != "" {
		sb.WriteString("\n")
		sb.WriteString(r.theme.RoutingNote.Render("routing: " + turn.RoutingReason))
	}
	return sb.String()
}

// renderAnswer renders answer markdown with the typing cursor appended.
func (r *MessageRenderer) renderAnswer(text string, showCursor bool) string {
	if showCursor {
		text += styles.TypingCursor
	}
	if text == "" {
		return ""
	}
	if r.markdown == nil {
		return r.theme.AssistantBubble.Render(text)
	}
	out, err := r.markdown.Render(text)
	if err != nil {
		// Mid-stream text can be transiently malformed markdown; show it raw
		// rather than dropping a frame.
		return r.theme.AssistantBubble.Render(text)
	}
	return strings.TrimRight(out, "\n")
}
