// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/codebrain/codebrain-tui/internal/model"
)

func openTestHistory(t *testing.T, maxConversations int) *History {
	t.Helper()
	h, err := Open(filepath.Join(t.TempDir(), "history.db"), maxConversations)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

func TestSaveAndListConversations(t *testing.T) {
	h := openTestHistory(t, 0)
	ctx := context.Background()

	for _, c := range []ConversationRow{
		{ID: "1", Title: "first", Model: "gpt-4o"},
		{ID: "2", Title: "second"},
	} {
		if err := h.SaveConversation(ctx, c); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	convs, err := h.ListConversations(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("got %d conversations", len(convs))
	}
	// Most recently updated first.
	if convs[0].ID != "2" {
		t.Errorf("order: first is %q", convs[0].ID)
	}

	// Upsert refreshes the title without duplicating the row.
	if err := h.SaveConversation(ctx, ConversationRow{ID: "1", Title: "renamed"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	convs, _ = h.ListConversations(ctx)
	if len(convs) != 2 || convs[0].Title != "renamed" {
		t.Errorf("upsert failed: %#v", convs)
	}
}

func TestTurnLifecycle(t *testing.T) {
	h := openTestHistory(t, 0)
	ctx := context.Background()

	if err := h.SaveConversation(ctx, ConversationRow{ID: "7", Title: "t"}); err != nil {
		t.Fatal(err)
	}

	// Pending turn cached under its client id.
	turn := model.NewTurn("why", "", "", "gemini-2.0-flash")
	turn.SetResponseText("partial")
	if err := h.SaveTurn(ctx, "7", turn); err != nil {
		t.Fatalf("save pending: %v", err)
	}

	// Commit: identity moves to the server id, row follows.
	clientID := turn.ClientID
	turn.Commit(model.CompletionMeta{HistoryID: "42", ConversationID: "7", FinalText: "because"})
	if err := h.ReplaceTurnID(ctx, clientID, "42"); err != nil {
		t.Fatalf("replace id: %v", err)
	}
	if err := h.SaveTurn(ctx, "7", turn); err != nil {
		t.Fatalf("save committed: %v", err)
	}

	turns, err := h.LoadTurns(ctx, "7")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(turns) != 1 {
		t.Fatalf("got %d turns (client-id row leaked?)", len(turns))
	}
	if turns[0].ID() != "42" || turns[0].ResponseText != "because" {
		t.Errorf("loaded turn = %#v", turns[0])
	}
	if turns[0].Streaming {
		t.Error("loaded turn must not be streaming")
	}
}

func TestDeleteAndFavorite(t *testing.T) {
	h := openTestHistory(t, 0)
	ctx := context.Background()

	h.SaveConversation(ctx, ConversationRow{ID: "1", Title: "t"})
	turn := model.NewTurn("q", "", "", "m")
	turn.Commit(model.CompletionMeta{HistoryID: "10", FinalText: "a"})
	if err := h.SaveTurn(ctx, "1", turn); err != nil {
		t.Fatal(err)
	}

	if err := h.SetFavorite(ctx, "10", true); err != nil {
		t.Fatalf("favorite: %v", err)
	}
	turns, _ := h.LoadTurns(ctx, "1")
	if !turns[0].Favorite {
		t.Error("favorite flag lost")
	}

	if err := h.DeleteTurn(ctx, "10"); err != nil {
		t.Fatalf("delete turn: %v", err)
	}
	if err := h.DeleteTurn(ctx, "10"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}

	if err := h.DeleteConversation(ctx, "1"); err != nil {
		t.Fatalf("delete conversation: %v", err)
	}
	if err := h.DeleteConversation(ctx, "1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
}

func TestConversationCapEvictsOldest(t *testing.T) {
	h := openTestHistory(t, 2)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		if err := h.SaveConversation(ctx, ConversationRow{ID: id, Title: id}); err != nil {
			t.Fatal(err)
		}
	}

	convs, err := h.ListConversations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 2 {
		t.Fatalf("cap not enforced: %d rows", len(convs))
	}
	for _, c := range convs {
		if c.ID == "1" {
			t.Error("oldest conversation not evicted")
		}
	}
}

func TestSearch(t *testing.T) {
	h := openTestHistory(t, 0)
	ctx := context.Background()

	h.SaveConversation(ctx, ConversationRow{ID: "1", Title: "t"})
	for i, qa := range [][2]string{
		{"how do goroutines work", "goroutines are lightweight threads"},
		{"what is a slice", "a slice is a view over an array"},
	} {
		turn := model.NewTurn(qa[0], "", "", "m")
		turn.Commit(model.CompletionMeta{HistoryID: string(rune('a' + i)), FinalText: qa[1]})
		if err := h.SaveTurn(ctx, "1", turn); err != nil {
			t.Fatal(err)
		}
	}

	hits, err := h.Search(ctx, "goroutines", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits", len(hits))
	}
	if hits[0].ConversationID != "1" {
		t.Errorf("hit = %#v", hits[0])
	}
}
