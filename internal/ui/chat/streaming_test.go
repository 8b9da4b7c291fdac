// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"testing"

	"github.com/codebrain/codebrain-tui/internal/api"
	"github.com/codebrain/codebrain-tui/internal/config"
	"github.com/codebrain/codebrain-tui/internal/model"
)

func newTestModel() *Model {
	cfg := config.Default()
	return New(cfg, api.New("http://127.0.0.1:0", nil), nil, false)
}

func TestStreamHandleDeliversSnapshotsThenDone(t *testing.T) {
	h := newStreamHandle("turn_1")

	go func() {
		h.publish(api.Snapshot{TurnClientID: "turn_1", Text: "a", Phase: api.PhaseStreaming})
		h.publish(api.Snapshot{TurnClientID: "turn_1", Text: "ab", Phase: api.PhaseStreaming})
		h.publish(api.Snapshot{TurnClientID: "turn_1", Text: "ab", Phase: api.PhaseDone})
		h.finish(nil)
	}()

	// Every snapshot arrives, in order, before the terminal message.
	want := []string{"a", "ab", "ab"}
	for i, text := range want {
		msg, ok := h.next().(SnapshotMsg)
		if !ok {
			t.Fatalf("event %d: expected SnapshotMsg", i)
		}
		if msg.Text != text {
			t.Errorf("event %d: text = %q, want %q", i, msg.Text, text)
		}
	}
	done, ok := h.next().(StreamDoneMsg)
	if !ok {
		t.Fatal("expected StreamDoneMsg after snapshots")
	}
	if done.TurnClientID != "turn_1" || done.Err != nil {
		t.Errorf("done = %#v", done)
	}
}

func TestHandleSnapshotIgnoresStaleStream(t *testing.T) {
	m := newTestModel()

	// No stream in flight: a late snapshot from a cancelled stream is a no-op.
	if cmd := m.handleSnapshot(api.Snapshot{TurnClientID: "old", Text: "late"}); cmd != nil {
		t.Error("stale snapshot must not schedule another wait")
	}

	m.stream = newStreamHandle("current")
	if cmd := m.handleSnapshot(api.Snapshot{TurnClientID: "other", Text: "x"}); cmd != nil {
		t.Error("snapshot for a different turn must be ignored")
	}
}

func TestHandleSnapshotDrivesAnimator(t *testing.T) {
	m := newTestModel()
	turn := model.NewTurn("q", "", "", "m")
	m.conv.AddTurn(turn)
	m.activeTurn = turn
	m.stream = newStreamHandle(turn.ClientID)

	cmd := m.handleSnapshot(api.Snapshot{
		TurnClientID: turn.ClientID,
		Text:         "Hello world",
		Phase:        api.PhaseStreaming,
	})
	if cmd == nil {
		t.Fatal("live snapshot must schedule the next wait")
	}
	if m.phase != api.PhaseStreaming {
		t.Errorf("phase = %v", m.phase)
	}
	if m.animator.Done() {
		t.Error("streamed text must animate, not snap")
	}
}

func TestHandleStreamDoneAdoptsConversation(t *testing.T) {
	m := newTestModel()
	turn := model.NewTurn("q", "", "", "m")
	m.conv.AddTurn(turn)
	m.activeTurn = turn
	m.stream = newStreamHandle(turn.ClientID)

	// The ingestor reveals the new conversation id and commits the turn
	// before the terminal message is delivered.
	m.stream.reveal("7")
	turn.Commit(model.CompletionMeta{
		HistoryID:      "42",
		ConversationID: "7",
		FinalText:      "answer",
	})

	m.handleStreamDone(StreamDoneMsg{TurnClientID: turn.ClientID})

	if m.streaming() {
		t.Error("stream handle must be released")
	}
	if m.conv.ID != "7" {
		t.Errorf("conversation id = %q", m.conv.ID)
	}
	// Re-delivery of the same done message is harmless.
	m.handleStreamDone(StreamDoneMsg{TurnClientID: turn.ClientID})
}

func TestDisabledTypingRendersSnapshotsInFull(t *testing.T) {
	cfg := config.Default()
	cfg.Typing.Enabled = false
	m := New(cfg, api.New("http://127.0.0.1:0", nil), nil, false)

	turn := model.NewTurn("q", "", "", "m")
	m.conv.AddTurn(turn)
	m.activeTurn = turn
	m.stream = newStreamHandle(turn.ClientID)

	m.handleSnapshot(api.Snapshot{
		TurnClientID: turn.ClientID,
		Text:         "Hello world",
		Phase:        api.PhaseStreaming,
	})
	if !m.animator.Done() {
		t.Error("typing disabled, snapshots must display in full")
	}
}

func TestCancelManagerReplacesPriorStream(t *testing.T) {
	cm := newCancelManager()

	first := false
	_, cancel1 := context.WithCancel(context.Background())
	cm.set(func() { first = true; cancel1() })

	// Starting a second stream aborts the first.
	_, cancel2 := context.WithCancel(context.Background())
	cm.set(cancel2)
	if !first {
		t.Error("prior stream not cancelled on replacement")
	}

	cm.cancel()
	cm.cancel() // safe to repeat
}
