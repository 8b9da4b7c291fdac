// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the interactive chat view for the CodeBrain TUI.
//
// This file bridges the stream goroutine into the Bubble Tea loop. The
// ingestor publishes snapshots from its own goroutine; a buffered channel
// carries them into Update in arrival order, and a frame tick drives the
// typewriter reveal at a capped rate so fast streams never render at
// thousands of frames per second.
package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/codebrain/codebrain-tui/internal/api"
	"github.com/codebrain/codebrain-tui/internal/ui/styles"
)

// snapshotBuffer bounds how far the stream goroutine can run ahead of the
// render loop before it blocks.
const snapshotBuffer = 256

// =============================================================================
// STREAM HANDLE
// =============================================================================

// streamHandle is the Update loop's view of one running stream.
type streamHandle struct {
	turnClientID string
	snaps        chan api.Snapshot
	done         chan error

	// revealedConversation is the conversation identity the server assigned
	// mid-stream, if any. Written by the stream goroutine before finish();
	// the done channel orders the write ahead of the Update loop's read.
	revealedConversation string
}

func newStreamHandle(turnClientID string) *streamHandle {
	return &streamHandle{
		turnClientID: turnClientID,
		snaps:        make(chan api.Snapshot, snapshotBuffer),
		done:         make(chan error, 1),
	}
}

// publish is the ingestor's OnUpdate callback.
func (h *streamHandle) publish(s api.Snapshot) {
	h.snaps <- s
}

// reveal is the ingestor's OnConversation callback.
func (h *streamHandle) reveal(conversationID string) {
	h.revealedConversation = conversationID
}

// finish records the stream result. Must be called exactly once, after the
// last publish.
func (h *streamHandle) finish(err error) {
	close(h.snaps)
	h.done <- err
}

// next blocks for the next event: every buffered snapshot is delivered in
// order before the terminal StreamDoneMsg.
func (h *streamHandle) next() tea.Msg {
	if s, ok := <-h.snaps; ok {
		return SnapshotMsg(s)
	}
	return StreamDoneMsg{TurnClientID: h.turnClientID, Err: <-h.done}
}

// waitForStream returns a command that yields the stream's next event.
// Re-issued from Update after each delivered message.
func waitForStream(h *streamHandle) tea.Cmd {
	return h.next
}

// =============================================================================
// STREAM LAUNCH
// =============================================================================

// streamFunc runs one request against the API; it is the Ask or Blend call
// with everything but context and ingestor bound.
type streamFunc func(ctx context.Context, ing *api.Ingestor) error

// launchStream starts the request goroutine and returns the command that
// delivers its first event.
func (m *Model) launchStream(h *streamHandle, ing *api.Ingestor, run streamFunc) tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelMgr.set(cancel)

	go func() {
		defer cancel()
		h.finish(run(ctx, ing))
	}()

	return waitForStream(h)
}

// =============================================================================
// FRAME TICK
// =============================================================================

// frameTickCmd schedules the next animation frame.
func frameTickCmd() tea.Cmd {
	return tea.Tick(styles.FrameRate, func(t time.Time) tea.Msg {
		return FrameTickMsg{Time: t}
	})
}
