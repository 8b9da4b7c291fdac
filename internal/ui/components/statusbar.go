// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/codebrain/codebrain-tui/internal/api"
	"github.com/codebrain/codebrain-tui/internal/ui/styles"
	"github.com/codebrain/codebrain-tui/internal/util"
)

// StatusInfo carries everything the status bar displays.
type StatusInfo struct {
	Model        string
	Blend        bool
	Phase        api.Phase
	Conversation string
	LoggedIn     bool
}

// RenderStatusBar renders the one-line status bar at the given width.
func RenderStatusBar(theme *styles.Theme, info StatusInfo, width int) string {
	var left []string

	if info.Blend {
		left = append(left, theme.StatusBlend.Render("BLEND"))
	}
	left = append(left, theme.StatusModel.Render(info.Model))

	if label := PhaseLabel(info.Phase); label != "" {
		left = append(left, theme.StatusPhase.Render(label))
	}
	if info.Conversation != "" {
		left = append(left, theme.SessionMeta.Render(util.TruncateRunes(info.Conversation, 24)))
	}
	if !info.LoggedIn {
		left = append(left, theme.SessionMeta.Render("not logged in"))
	}

	leftStr := strings.Join(left, "  ")
	rightStr := lipgloss.JoinHorizontal(lipgloss.Left,
		theme.ShortcutKey.Render("^B"), theme.ShortcutDesc.Render(" blend  "),
		theme.ShortcutKey.Render("^N"), theme.ShortcutDesc.Render(" new  "),
		theme.ShortcutKey.Render("esc"), theme.ShortcutDesc.Render(" stop  "),
		theme.ShortcutKey.Render("^C"), theme.ShortcutDesc.Render(" quit"),
	)

	gap := width - lipgloss.Width(leftStr) - lipgloss.Width(rightStr) - 2
	if gap < 1 {
		gap = 1
	}
	return theme.StatusBar.Width(width).Render(
		leftStr + strings.Repeat(" ", gap) + rightStr)
}
