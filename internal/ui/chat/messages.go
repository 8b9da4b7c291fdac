// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the interactive chat view for the CodeBrain TUI.
//
// This file defines all Bubble Tea message types used by the chat interface.
// Messages are organized into the following categories:
//   - Streaming: snapshot delivery and stream completion
//   - Animation: frame ticks driving the typewriter reveal
//   - Conversation: list loading and history restoration
//
// All message types follow Bubble Tea conventions and are immutable.
package chat

import (
	"time"

	"github.com/codebrain/codebrain-tui/internal/api"
	"github.com/codebrain/codebrain-tui/internal/model"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// SnapshotMsg delivers one ingestor snapshot from the stream goroutine.
// Snapshots arrive in application order; the channel they travel through
// preserves it.
type SnapshotMsg api.Snapshot

// StreamDoneMsg signals that the stream goroutine has returned.
type StreamDoneMsg struct {
	TurnClientID string
	Err          error
}

// =============================================================================
// ANIMATION MESSAGES
// =============================================================================

// FrameTickMsg drives the typewriter reveal at the frame rate.
type FrameTickMsg struct {
	Time time.Time
}

// =============================================================================
// CONVERSATION MESSAGES
// =============================================================================

// HistoryLoadedMsg delivers one conversation's past turns.
type HistoryLoadedMsg struct {
	ConversationID string
	Turns          []*model.Turn
	Err            error
}

// ErrMsg surfaces a background failure in the UI.
type ErrMsg struct {
	Err error
}
