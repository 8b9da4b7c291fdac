// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"testing"
)

// feed writes the input split at the given boundaries and collects every
// completed frame.
func feed(t *testing.T, d *FrameDecoder, input []byte, cuts []int) [][]byte {
	t.Helper()
	var frames [][]byte
	prev := 0
	for _, cut := range cuts {
		frames = append(frames, d.Write(input[prev:cut])...)
		prev = cut
	}
	frames = append(frames, d.Write(input[prev:])...)
	return frames
}

func TestFrameDecoderChunkingInvariance(t *testing.T) {
	input := []byte("data: {\"chunk\":\"hello\"}\n\ndata: {\"chunk\":\" world\"}\n\ndata: {\"done\":true}\n\n")

	// Every frame set must be identical regardless of where reads split.
	cutSets := [][]int{
		nil,                   // one read
		{1, 2, 3, 4, 5},       // byte dribble at the front
		{24},                  // exactly on a separator
		{23},                  // one byte before the separator
		{25},                  // between the two separator newlines
		{10, 30, 50},          // arbitrary interior splits
		{len(input) - 1},      // split before the final newline
	}

	want := feed(t, &FrameDecoder{}, input, nil)
	if len(want) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(want))
	}

	for _, cuts := range cutSets {
		var d FrameDecoder
		got := feed(t, &d, input, cuts)
		if len(got) != len(want) {
			t.Fatalf("cuts %v: got %d frames, want %d", cuts, len(got), len(want))
		}
		for i := range got {
			if !bytes.Equal(got[i], want[i]) {
				t.Errorf("cuts %v frame %d: got %q want %q", cuts, i, got[i], want[i])
			}
		}
		if d.Pending() != 0 {
			t.Errorf("cuts %v: %d bytes left pending", cuts, d.Pending())
		}
	}
}

func TestFrameDecoderSplitsMidUTF8(t *testing.T) {
	// "héllo" encoded with é as two bytes; split inside the codepoint.
	input := []byte("data: {\"chunk\":\"h\xc3\xa9llo\"}\n\n")
	splitAt := bytes.IndexByte(input, 0xc3) + 1

	var d FrameDecoder
	frames := d.Write(input[:splitAt])
	if len(frames) != 0 {
		t.Fatal("partial frame must not be emitted")
	}
	frames = d.Write(input[splitAt:])
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}

	payload, ok := FramePayload(frames[0])
	if !ok {
		t.Fatal("frame payload not recognized")
	}
	ev, err := DecodeEvent(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	chunk, ok := ev.(ContentChunk)
	if !ok || chunk.Text != "héllo" {
		t.Errorf("got %#v, want intact héllo chunk", ev)
	}
}

func TestFrameDecoderRetainsTrailingPartial(t *testing.T) {
	var d FrameDecoder
	frames := d.Write([]byte("data: {\"chunk\":\"a\"}\n\ndata: {\"chu"))
	if len(frames) != 1 {
		t.Fatalf("expected 1 complete frame, got %d", len(frames))
	}
	if d.Pending() == 0 {
		t.Fatal("trailing partial frame was dropped")
	}

	frames = d.Write([]byte("nk\":\"b\"}\n\n"))
	if len(frames) != 1 {
		t.Fatalf("expected the completed frame, got %d", len(frames))
	}
	if got := string(frames[0]); got != `data: {"chunk":"b"}` {
		t.Errorf("reassembled frame = %q", got)
	}
}

func TestFrameDecoderOverflow(t *testing.T) {
	var d FrameDecoder
	d.Write(bytes.Repeat([]byte("x"), MaxFrameSize+1))
	if !d.Overflowed() {
		t.Error("expected overflow")
	}
	d.Reset()
	if d.Overflowed() || d.Pending() != 0 {
		t.Error("reset did not clear the buffer")
	}
}

func TestFramePayload(t *testing.T) {
	if _, ok := FramePayload([]byte(": keep-alive")); ok {
		t.Error("comment frame should be skipped")
	}
	payload, ok := FramePayload([]byte("data: {\"done\":true}\r\n"))
	if !ok || string(payload) != `{"done":true}` {
		t.Errorf("payload = %q ok=%v", payload, ok)
	}
}
