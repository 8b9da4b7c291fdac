// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "time"

// =============================================================================
// ANIMATION CONSTANTS
// =============================================================================

// TypingCursor is shown at the end of text still being revealed.
const TypingCursor = "▌"

// CursorBlinkRate matches common terminal cursor cadence.
const CursorBlinkRate = 530 * time.Millisecond

// FrameRate is the redraw cadence while a stream animates (about 30fps).
const FrameRate = 33 * time.Millisecond

// SpinnerFrames is the braille spinner used during blend phases.
var SpinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// SpinnerInterval is the delay between spinner frames.
const SpinnerInterval = 80 * time.Millisecond
