// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"

	"github.com/codebrain/codebrain-tui/internal/api"
	"github.com/codebrain/codebrain-tui/internal/ui/styles"
)

// NewSpinner builds the blend-phase spinner in the theme's accent color.
func NewSpinner(theme *styles.Theme) spinner.Model {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: styles.SpinnerFrames,
		FPS:    styles.SpinnerInterval,
	}
	s.Style = theme.Spinner
	return s
}

// PhaseLabel returns the short status-bar label for a stream phase.
func PhaseLabel(phase api.Phase) string {
	switch phase {
	case api.PhaseFetching:
		return "querying models"
	case api.PhaseProgress:
		return "collecting answers"
	case api.PhaseBlending:
		return "blending"
	case api.PhaseStreaming:
		return "streaming"
	case api.PhaseErrored:
		return "error"
	default:
		return ""
	}
}

// RenderThinking renders the spinner line shown before the first chunk.
func RenderThinking(theme *styles.Theme, s spinner.Model, label string) string {
	if label == "" {
		label = "thinking"
	}
	return lipgloss.JoinHorizontal(lipgloss.Left,
		s.View(), " ", theme.ThinkingText.Render(label+"..."))
}
