// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
)

// STREAMING: Robust frame splitting for the CodeBrain event stream.
//
// The CodeBrain API streams answers as blank-line separated records, each a
// single line of the form "data: {json}". The decoder below turns an
// arbitrarily chunked byte stream back into complete records.

// =============================================================================
// FRAMING CONSTANTS
// =============================================================================

// frameSeparator delimits records on the wire.
var frameSeparator = []byte("\n\n")

// dataPrefix marks a payload-carrying line within a record.
var dataPrefix = []byte("data: ")

// MaxFrameSize is the maximum allowed size for a single buffered frame (64KB).
const MaxFrameSize = 64 * 1024

// =============================================================================
// FRAME DECODER
// =============================================================================

// FrameDecoder accumulates raw bytes and splits them into complete frames.
//
// It operates on bytes, not strings: a read chunk may end in the middle of a
// multi-byte UTF-8 sequence, a record, or a JSON value, and the undecoded
// tail simply stays in the buffer until the next chunk completes it. Frames
// are only converted to text once they are whole, so no partial codepoint is
// ever interpreted.
type FrameDecoder struct {
	buf []byte
}

// Write appends a chunk of raw bytes and returns all frames completed by it,
// in arrival order. The trailing partial frame (if any) is retained for the
// next call; it is never discarded and never returned early.
func (d *FrameDecoder) Write(p []byte) [][]byte {
	d.buf = append(d.buf, p...)

	var frames [][]byte
	for {
		i := bytes.Index(d.buf, frameSeparator)
		if i < 0 {
			break
		}
		frame := make([]byte, i)
		copy(frame, d.buf[:i])
		d.buf = d.buf[i+len(frameSeparator):]
		frames = append(frames, frame)
	}
	return frames
}

// Pending returns the number of buffered bytes awaiting a separator.
func (d *FrameDecoder) Pending() int {
	return len(d.buf)
}

// Overflowed reports whether the buffered partial frame exceeds MaxFrameSize.
func (d *FrameDecoder) Overflowed() bool {
	return len(d.buf) > MaxFrameSize
}

// Reset drops any buffered partial frame.
func (d *FrameDecoder) Reset() {
	d.buf = nil
}

// =============================================================================
// RECORD PAYLOAD EXTRACTION
// =============================================================================

// FramePayload extracts the JSON payload from a complete frame.
// Returns (payload, true) for frames carrying the "data: " prefix; frames
// without it (comments, keep-alives) yield (nil, false) and are skipped.
func FramePayload(frame []byte) ([]byte, bool) {
	frame = bytes.TrimRight(frame, "\r\n")
	if !bytes.HasPrefix(frame, dataPrefix) {
		return nil, false
	}
	return frame[len(dataPrefix):], true
}
