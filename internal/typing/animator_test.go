// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package typing

import (
	"strings"
	"testing"
	"time"
)

// drive ticks the animator with a fixed step until it is done or the budget
// runs out, returning the number of ticks taken.
func drive(t *testing.T, a *Animator, step time.Duration, budget int) int {
	t.Helper()
	now := time.Unix(0, 0)
	for i := 0; i < budget; i++ {
		if a.Done() {
			return i
		}
		now = now.Add(step)
		a.Tick(now)
	}
	if !a.Done() {
		t.Fatalf("animator not done after %d ticks (lag %d)", budget, a.Lag())
	}
	return budget
}

func TestDisplayedIsAlwaysAPrefix(t *testing.T) {
	a := New(20 * time.Millisecond)
	target := strings.Repeat("go ", 300) // 900 runes, exercises every burst tier
	a.SetTarget(target, true)

	now := time.Unix(0, 0)
	prev := ""
	for !a.Done() {
		now = now.Add(25 * time.Millisecond)
		a.Tick(now)
		got := a.Displayed()
		if !strings.HasPrefix(target, got) {
			t.Fatalf("displayed %q is not a prefix of the target", got)
		}
		if len(got) < len(prev) {
			t.Fatalf("displayed text shrank from %d to %d", len(prev), len(got))
		}
		prev = got
	}
	if a.Displayed() != target {
		t.Error("final text differs from target")
	}
}

func TestBurstTiersScaleWithLag(t *testing.T) {
	a := New(20 * time.Millisecond)
	a.SetTarget(strings.Repeat("x", 600), true)

	now := time.Unix(0, 0)
	a.Tick(now.Add(time.Millisecond))
	if a.Lag() != 590 {
		t.Errorf("huge lag should reveal 10 runes, lag = %d", a.Lag())
	}

	// Drop lag into the 200..500 tier.
	for a.Lag() > 500 {
		now = now.Add(time.Millisecond)
		a.Tick(now)
	}
	before := a.Lag()
	now = now.Add(time.Millisecond)
	a.Tick(now)
	if before-a.Lag() != 5 {
		t.Errorf("large lag should reveal 5 runes, revealed %d", before-a.Lag())
	}
}

func TestSingleCharFlowIsRateLimited(t *testing.T) {
	a := New(20 * time.Millisecond)
	a.SetTarget("short", true)

	now := time.Unix(0, 0)
	if !a.Tick(now.Add(25 * time.Millisecond)) {
		t.Fatal("first gated tick should reveal one rune")
	}
	// Immediately after a reveal the gate is closed.
	if a.Tick(now.Add(26 * time.Millisecond)) {
		t.Error("tick inside the min-speed window must reveal nothing")
	}
	if a.Tick(now.Add(50 * time.Millisecond)) != true {
		t.Error("tick past the window should reveal again")
	}
	if a.Displayed() != "sh" {
		t.Errorf("displayed = %q", a.Displayed())
	}
}

func TestCatchUpAfterStreamEnds(t *testing.T) {
	a := New(20 * time.Millisecond)
	text := strings.Repeat("y", 100)
	a.SetTarget(text, true)
	activeTicks := drive(t, a, 25*time.Millisecond, 10000)

	// Same text, stream already finished: completes in fewer ticks but never
	// snaps to the end in one step.
	b := New(20 * time.Millisecond)
	b.SetTarget(text, true)
	b.SetTarget(text, false)
	now := time.Unix(0, 0)
	now = now.Add(25 * time.Millisecond)
	b.Tick(now)
	if b.Done() {
		t.Fatal("catch-up must stay animated, not snap")
	}
	catchUpTicks := drive(t, b, 25*time.Millisecond, 10000) + 1
	if catchUpTicks >= activeTicks {
		t.Errorf("catch-up (%d ticks) should beat active pace (%d ticks)", catchUpTicks, activeTicks)
	}
}

func TestColdLoadRendersInstantly(t *testing.T) {
	a := New(20 * time.Millisecond)
	a.SetTarget("a complete historical answer", false)
	if !a.Done() {
		t.Error("text never part of a live stream must render instantly")
	}
	if a.Displayed() != "a complete historical answer" {
		t.Errorf("displayed = %q", a.Displayed())
	}
}

func TestImageFastPath(t *testing.T) {
	a := New(20 * time.Millisecond)
	a.SetTarget("here: ![diagram](https://example.com/d.png)", true)
	if !a.Done() {
		t.Error("image markdown must render instantly")
	}
}

func TestEmptyTargetResets(t *testing.T) {
	a := New(20 * time.Millisecond)
	a.SetTarget("old answer", true)
	drive(t, a, 25*time.Millisecond, 10000)

	a.SetTarget("", false)
	if a.Displayed() != "" || a.Lag() != 0 {
		t.Error("reset did not clear the animator")
	}

	// After a reset the streamed flag is forgotten: a complete answer that
	// arrives next (history switch) renders instantly.
	a.SetTarget("restored answer", false)
	if !a.Done() {
		t.Error("post-reset cold text must render instantly")
	}
}

func TestGrowingTargetKeepsRevealPosition(t *testing.T) {
	a := New(20 * time.Millisecond)
	a.SetTarget("Hello", true)
	now := time.Unix(0, 0)
	now = now.Add(25 * time.Millisecond)
	a.Tick(now)

	shown := a.Displayed()
	a.SetTarget("Hello world", true)
	if a.Displayed() != shown {
		t.Errorf("target growth moved the reveal position: %q -> %q", shown, a.Displayed())
	}
}

func TestShrinkingTargetClampsDisplay(t *testing.T) {
	// Blend placeholder swap: target can get shorter mid-stream.
	a := New(20 * time.Millisecond)
	a.SetTarget(strings.Repeat("z", 80), true)
	now := time.Unix(0, 0)
	for i := 0; i < 30; i++ {
		now = now.Add(25 * time.Millisecond)
		a.Tick(now)
	}

	a.SetTarget("Blending responses...", true)
	if a.Lag() < 0 {
		t.Fatal("negative lag after shrink")
	}
	if !strings.HasPrefix("Blending responses...", a.Displayed()) {
		t.Errorf("displayed %q is not a prefix of the new target", a.Displayed())
	}
}

func TestInstantModeSkipsReveal(t *testing.T) {
	a := New(20 * time.Millisecond)
	a.SetInstant(true)

	a.SetTarget("streamed text that would normally animate", true)
	if !a.Done() {
		t.Fatalf("instant mode must display in full, lag %d", a.Lag())
	}

	// Growth while instant also lands in full, with no tick needed.
	a.SetTarget("streamed text that would normally animate, plus more", true)
	if !a.Done() {
		t.Error("grown target must display in full")
	}

	// Turning the reveal back on restores normal animation.
	a.SetTarget("", false)
	a.SetInstant(false)
	a.SetTarget("fresh answer", true)
	if a.Done() {
		t.Error("reveal re-enabled, text must animate again")
	}
}
