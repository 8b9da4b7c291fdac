// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/codebrain/codebrain-tui/internal/api"
	"github.com/codebrain/codebrain-tui/internal/model"
	"github.com/codebrain/codebrain-tui/internal/ui/components"
)

// View implements tea.Model.
func (m *Model) View() string {
	if !m.ready {
		return "Starting CodeBrain..."
	}

	var sb strings.Builder
	if !m.cfg.UI.CompactMode {
		sb.WriteString(m.renderHeader())
		sb.WriteString("\n")
	}
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")
	if m.err != nil {
		sb.WriteString(m.renderError())
		sb.WriteString("\n")
	}
	sb.WriteString(m.theme.InputContainer.Width(m.width - 2).Render(m.input.View()))
	sb.WriteString("\n")
	sb.WriteString(components.RenderStatusBar(m.theme, components.StatusInfo{
		Model:        m.cfg.Chat.DefaultModel,
		Blend:        m.blendMode,
		Phase:        m.phase,
		Conversation: m.conv.Title,
		LoggedIn:     m.loggedIn,
	}, m.width))
	return sb.String()
}

// renderHeader renders the top banner.
func (m *Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("CodeBrain")
	subtitle := m.theme.HeaderSubtitle.Render("AI pair programmer")
	return m.theme.Header.Width(m.width - 2).Render(
		lipgloss.JoinHorizontal(lipgloss.Left, title, "  ", subtitle))
}

// renderTranscript renders the whole conversation. The active turn shows the
// animator's revealed prefix; finished turns show their full text.
func (m *Model) renderTranscript() string {
	if len(m.conv.Turns) == 0 {
		return m.theme.ThinkingText.Render(
			"\n  Ask a question to get started. Ctrl+B toggles blend mode.\n")
	}

	parts := make([]string, 0, len(m.conv.Turns)+1)
	active := m.activeStreamTurn()

	for _, turn := range m.conv.Turns {
		if turn == active {
			text := m.animator.Displayed()
			cursor := !m.animator.Done() || m.streaming()
			parts = append(parts, m.renderer.RenderTurn(turn, text, m.phase, cursor))
			continue
		}
		parts = append(parts, m.renderer.RenderTurn(turn, turn.ResponseText, api.PhaseDone, false))
	}

	if m.streaming() && m.phase == api.PhaseIdle {
		parts = append(parts, components.RenderThinking(m.theme, m.spinner, ""))
	}
	return strings.Join(parts, "\n\n") + "\n"
}

// activeStreamTurn returns the turn whose answer is still animating, if any.
func (m *Model) activeStreamTurn() *model.Turn {
	if m.activeTurn == nil {
		return nil
	}
	if m.streaming() || !m.animator.Done() {
		return m.activeTurn
	}
	return nil
}

// renderError renders a transport failure beneath the transcript.
func (m *Model) renderError() string {
	return m.theme.ErrorBox.Width(m.width - 2).Render(
		m.theme.ErrorTitle.Render("stream failed: ") + m.err.Error())
}
