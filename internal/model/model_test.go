// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
)

// =============================================================================
// TURN IDENTITY TESTS
// =============================================================================

func TestNewTurnIsPending(t *testing.T) {
	turn := NewTurn("question", "code", "", "gemini-2.0-flash")

	if turn.ClientID == "" {
		t.Fatal("expected a client id at creation")
	}
	if turn.Committed() {
		t.Error("new turn should not be committed")
	}
	if turn.ID() != turn.ClientID {
		t.Errorf("pending turn id should be the client id, got %q", turn.ID())
	}
	if !turn.Streaming {
		t.Error("new turn should be streaming")
	}
}

func TestTurnCommitSwapsIdentity(t *testing.T) {
	turn := NewTurn("q", "", "", "gpt-4o")
	clientID := turn.ClientID

	turn.Commit(CompletionMeta{
		HistoryID:      "42",
		ConversationID: "7",
		FinalText:      "Hello",
		Summary:        "greeting",
		RoutingReason:  "fast model",
		Persona:        "helper",
	})

	if !turn.Committed() {
		t.Fatal("turn should be committed")
	}
	if turn.ID() != "42" {
		t.Errorf("expected server id 42, got %q", turn.ID())
	}
	if turn.ClientID != clientID {
		t.Error("client id must survive commit")
	}
	if turn.ResponseText != "Hello" {
		t.Errorf("expected final text, got %q", turn.ResponseText)
	}
	if turn.Summary != "greeting" || turn.RoutingReason != "fast model" || turn.Persona != "helper" {
		t.Error("completion metadata not applied")
	}
	if turn.Streaming {
		t.Error("committed turn should not be streaming")
	}
}

func TestTurnCommitIsIdempotent(t *testing.T) {
	turn := NewTurn("q", "", "", "m")
	turn.Commit(CompletionMeta{HistoryID: "1", FinalText: "first"})
	turn.Commit(CompletionMeta{HistoryID: "2", FinalText: "second"})

	if turn.ID() != "1" {
		t.Errorf("second commit must be ignored, got id %q", turn.ID())
	}
	if turn.ResponseText != "first" {
		t.Errorf("second commit must be ignored, got text %q", turn.ResponseText)
	}
}

func TestTurnCommitWithoutHistoryIDStaysOnClientID(t *testing.T) {
	turn := NewTurn("q", "", "", "m")
	clientID := turn.ClientID

	turn.Commit(CompletionMeta{FinalText: "done"})

	if !turn.Committed() {
		t.Error("turn should be committed even without a server id")
	}
	if turn.ID() != clientID {
		t.Errorf("expected client id %q, got %q", clientID, turn.ID())
	}
}

func TestSetConversationIDAtMostOnce(t *testing.T) {
	turn := NewTurn("q", "", "", "m")

	if !turn.SetConversationID("7") {
		t.Fatal("first set should succeed")
	}
	if turn.SetConversationID("8") {
		t.Error("second set should be rejected")
	}
	if turn.ConversationID != "7" {
		t.Errorf("conversation id overwritten: %q", turn.ConversationID)
	}
	if turn.SetConversationID("") {
		t.Error("empty id should be rejected")
	}
}

func TestAppendErrorNoticePreservesPartialContent(t *testing.T) {
	turn := NewTurn("q", "", "", "m")
	turn.SetResponseText("partial answer")
	turn.AppendErrorNotice()

	if turn.ResponseText != "partial answer"+ErrorNotice {
		t.Errorf("unexpected text %q", turn.ResponseText)
	}

	// Zero partial content: the notice is appended to the empty string.
	blank := NewTurn("q", "", "", "m")
	blank.AppendErrorNotice()
	if blank.ResponseText != ErrorNotice {
		t.Errorf("unexpected text %q", blank.ResponseText)
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversationAddAndFind(t *testing.T) {
	conv := NewConversation()
	t1 := NewTurn("first", "", "", "m")
	t2 := NewTurn("second", "", "", "m")
	conv.AddTurn(t1)
	conv.AddTurn(t2)

	if conv.ActiveTurn() != t2 {
		t.Error("active turn should be the most recent")
	}
	if conv.FindByClientID(t1.ClientID) != t1 {
		t.Error("FindByClientID failed")
	}
	if conv.FindByClientID("missing") != nil {
		t.Error("expected nil for unknown client id")
	}
}

func TestConversationDeleteTurn(t *testing.T) {
	conv := NewConversation()
	turn := NewTurn("q", "", "", "m")
	conv.AddTurn(turn)
	turn.Commit(CompletionMeta{HistoryID: "42", FinalText: "a"})

	if !conv.DeleteTurn("42") {
		t.Fatal("delete by server id failed")
	}
	if len(conv.Turns) != 0 {
		t.Error("turn not removed")
	}
}

func TestGenerateTitleTruncates(t *testing.T) {
	conv := NewConversation()
	conv.AddTurn(NewTurn(strings.Repeat("x", 80), "", "", "m"))

	title := conv.GenerateTitle()
	if len([]rune(title)) != 50 {
		t.Errorf("expected 50-rune title, got %d", len([]rune(title)))
	}
	if !strings.HasSuffix(title, "...") {
		t.Error("expected ellipsis")
	}
}

func TestExportMarkdown(t *testing.T) {
	conv := NewConversation()
	turn := NewTurn("why", "print(1)", "", "gpt-4o")
	turn.SetResponseText("because")
	conv.AddTurn(turn)

	md := conv.ExportMarkdown()
	for _, want := range []string{"## Question 1", "**User:** why", "print(1)", "**gpt-4o:** because"} {
		if !strings.Contains(md, want) {
			t.Errorf("export missing %q", want)
		}
	}
}
