// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"

	"github.com/codebrain/codebrain-tui/internal/api"
	"github.com/codebrain/codebrain-tui/internal/model"
	"github.com/codebrain/codebrain-tui/internal/ui/styles"
)

func committedTurn() *model.Turn {
	turn := model.NewTurn("how do maps work?", "", "", "gpt-4o")
	turn.Commit(model.CompletionMeta{
		HistoryID:     "1",
		FinalText:     "They hash keys into buckets.",
		RoutingReason: "code question",
	})
	return turn
}

func TestRenderTurnShowsRoutingNote(t *testing.T) {
	r := NewMessageRenderer(styles.NewTheme(), 80)
	turn := committedTurn()
	out := r.RenderTurn(turn, turn.ResponseText, api.PhaseDone, false)
	if !strings.Contains(out, "routing: code question") {
		t.Error("routing note missing from committed turn")
	}
}

func TestRenderTurnHidesRoutingWhenDisabled(t *testing.T) {
	r := NewMessageRenderer(styles.NewTheme(), 80)
	r.SetShowRouting(false)
	turn := committedTurn()
	out := r.RenderTurn(turn, turn.ResponseText, api.PhaseDone, false)
	if strings.Contains(out, "routing:") {
		t.Error("routing note rendered while disabled")
	}
}

func TestRenderCodeBlockHonorsThemeSyntaxStyle(t *testing.T) {
	theme := styles.NewTheme()
	theme.SyntaxTheme = "dracula"
	out := RenderCodeBlock(theme, "x := 1", "go", 60)
	if !strings.Contains(out, "x") {
		t.Error("highlighted snippet lost its content")
	}

	// An unknown style falls back rather than dropping the snippet.
	theme.SyntaxTheme = "no-such-style"
	out = RenderCodeBlock(theme, "x := 1", "go", 60)
	if !strings.Contains(out, "x") {
		t.Error("unknown style must still render the snippet")
	}
}
