// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the CodeBrain TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// SyntaxTheme is the chroma style used for code blocks.
	SyntaxTheme string

	// ==========================================================================
	// APPLICATION CONTAINER STYLES
	// ==========================================================================

	App       lipgloss.Style
	Container lipgloss.Style

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// ==========================================================================
	// MESSAGE STYLES
	// ==========================================================================

	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	QuestionLabel   lipgloss.Style
	AnswerLabel     lipgloss.Style
	PhaseNotice     lipgloss.Style
	RoutingNote     lipgloss.Style
	ErrorNotice     lipgloss.Style

	// ==========================================================================
	// INPUT AREA STYLES
	// ==========================================================================

	InputContainer   lipgloss.Style
	InputPrompt      lipgloss.Style
	InputPlaceholder lipgloss.Style

	// ==========================================================================
	// STATUS BAR STYLES
	// ==========================================================================

	StatusBar    lipgloss.Style
	StatusModel  lipgloss.Style
	StatusPhase  lipgloss.Style
	StatusBlend  lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style

	// ==========================================================================
	// SPINNER AND LOADING STYLES
	// ==========================================================================

	Spinner      lipgloss.Style
	ThinkingText lipgloss.Style

	// ==========================================================================
	// CODE BLOCK STYLES
	// ==========================================================================

	CodeBlock     lipgloss.Style
	CodeLangBadge lipgloss.Style

	// ==========================================================================
	// CONVERSATION LIST STYLES
	// ==========================================================================

	SessionItem         lipgloss.Style
	SessionItemSelected lipgloss.Style
	SessionMeta         lipgloss.Style

	// ==========================================================================
	// ERROR BOX STYLES
	// ==========================================================================

	ErrorBox   lipgloss.Style
	ErrorTitle lipgloss.Style
}

// Palette anchors for the dark theme.
var (
	colorPrimary   = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7D79F6"}
	colorSecondary = lipgloss.AdaptiveColor{Light: "#00665C", Dark: "#2AB7A9"}
	colorMuted     = lipgloss.AdaptiveColor{Light: "#6B6B6B", Dark: "#8A8A8A"}
	colorDanger    = lipgloss.AdaptiveColor{Light: "#C43C3C", Dark: "#F87272"}
	colorWarn      = lipgloss.AdaptiveColor{Light: "#A05A00", Dark: "#F5A623"}
	colorSurface   = lipgloss.AdaptiveColor{Light: "#F2F2F2", Dark: "#1E1E2E"}
)

// NewTheme creates a theme tuned to the current terminal.
func NewTheme() *Theme {
	profile := termenv.ColorProfile()
	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
		SyntaxTheme:  "monokai",
	}

	t.App = lipgloss.NewStyle()
	t.Container = lipgloss.NewStyle().Padding(0, 1)

	t.Header = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorPrimary).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	t.HeaderSubtitle = lipgloss.NewStyle().Foreground(colorMuted)

	t.UserBubble = lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#222222", Dark: "#EDEDED"}).
		PaddingLeft(2)
	t.AssistantBubble = lipgloss.NewStyle().PaddingLeft(2)
	t.QuestionLabel = lipgloss.NewStyle().Bold(true).Foreground(colorSecondary)
	t.AnswerLabel = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	t.PhaseNotice = lipgloss.NewStyle().Italic(true).Foreground(colorWarn)
	t.RoutingNote = lipgloss.NewStyle().Faint(true).Foreground(colorMuted)
	t.ErrorNotice = lipgloss.NewStyle().Foreground(colorDanger)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorMuted).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().Bold(true).Foreground(colorSecondary)
	t.InputPlaceholder = lipgloss.NewStyle().Faint(true)

	t.StatusBar = lipgloss.NewStyle().
		Background(colorSurface).
		Padding(0, 1)
	t.StatusModel = lipgloss.NewStyle().Bold(true).Foreground(colorSecondary)
	t.StatusPhase = lipgloss.NewStyle().Foreground(colorWarn)
	t.StatusBlend = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	t.ShortcutKey = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	t.ShortcutDesc = lipgloss.NewStyle().Foreground(colorMuted)

	t.Spinner = lipgloss.NewStyle().Foreground(colorPrimary)
	t.ThinkingText = lipgloss.NewStyle().Italic(true).Foreground(colorMuted)

	t.CodeBlock = lipgloss.NewStyle().
		Background(colorSurface).
		Padding(0, 1)
	t.CodeLangBadge = lipgloss.NewStyle().
		Bold(true).
		Foreground(colorSecondary)

	t.SessionItem = lipgloss.NewStyle().PaddingLeft(1)
	t.SessionItemSelected = lipgloss.NewStyle().
		PaddingLeft(1).
		Bold(true).
		Foreground(colorPrimary)
	t.SessionMeta = lipgloss.NewStyle().Faint(true).Foreground(colorMuted)

	t.ErrorBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorDanger).
		Padding(0, 1)
	t.ErrorTitle = lipgloss.NewStyle().Bold(true).Foreground(colorDanger)

	return t
}

// Resize records the current terminal dimensions.
func (t *Theme) Resize(width, height int) {
	t.Width = width
	t.Height = height
}
