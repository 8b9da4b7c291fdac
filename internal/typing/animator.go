// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package typing renders streamed answer text with a smooth typewriter
// reveal instead of letting it appear in jarring jumps.
package typing

import (
	"strings"
	"time"
)

// DefaultMinSpeed is the per-character delay during normal flow.
const DefaultMinSpeed = 20 * time.Millisecond

// Burst thresholds: the further the display lags behind the target, the more
// characters each tick reveals. Values are in runes of lag.
const (
	burstHugeLag   = 500
	burstLargeLag  = 200
	burstMediumLag = 50

	burstHugeChars   = 10
	burstLargeChars  = 5
	burstMediumChars = 2
)

// catchUpMultiplier speeds the reveal once the stream has finished, so the
// tail completes promptly but still smoothly.
const catchUpMultiplier = 2

// Animator reveals a growing target text a few runes at a time.
//
// It is driven externally: the owner calls SetTarget whenever the streamed
// text changes and Tick on every animation frame. All time comes in through
// Tick's argument, which keeps the animator deterministic under test.
//
// PERFORMANCE: The target is kept as a rune slice so each tick slices by
// index instead of re-decoding UTF-8 over the whole text.
type Animator struct {
	target    []rune
	displayed int
	active    bool
	minSpeed  time.Duration

	// everStreamed distinguishes a live answer from text that was already
	// complete when it first arrived (history loads render instantly).
	everStreamed bool

	// instant disables the reveal entirely (typing animation turned off
	// in config): every target displays in full as soon as it is set.
	instant bool

	lastCharAt time.Time
}

// New creates an animator. minSpeed <= 0 selects DefaultMinSpeed.
func New(minSpeed time.Duration) *Animator {
	if minSpeed <= 0 {
		minSpeed = DefaultMinSpeed
	}
	return &Animator{minSpeed: minSpeed}
}

// SetInstant turns the reveal off or back on. While instant, targets are
// shown in full immediately.
func (a *Animator) SetInstant(on bool) {
	a.instant = on
	if on {
		a.displayed = len(a.target)
	}
}

// SetTarget updates the text being revealed. active reports whether the
// answer is still streaming.
//
// An empty target resets the animator for a fresh turn. Targets containing
// markdown images render instantly so partially revealed image syntax never
// reaches the renderer. Text that was never part of a live stream (history
// restored on startup) also renders instantly.
func (a *Animator) SetTarget(text string, active bool) {
	if text == "" {
		a.target = nil
		a.displayed = 0
		a.active = false
		a.everStreamed = false
		return
	}

	a.target = []rune(text)
	a.active = active
	if active {
		a.everStreamed = true
	}
	if a.displayed > len(a.target) {
		a.displayed = len(a.target)
	}

	if a.instant {
		a.displayed = len(a.target)
		return
	}

	if strings.Contains(text, "![") && strings.Contains(text, "](") {
		a.displayed = len(a.target)
		return
	}
	if !active && !a.everStreamed {
		a.displayed = len(a.target)
	}
}

// Tick advances the reveal using the supplied clock reading and reports
// whether the displayed text changed.
func (a *Animator) Tick(now time.Time) bool {
	diff := len(a.target) - a.displayed
	if diff <= 0 {
		return false
	}

	// Safety net mirroring SetTarget's cold-load rule.
	if !a.active && !a.everStreamed {
		a.displayed = len(a.target)
		return true
	}

	multiplier := 1
	if !a.active {
		multiplier = catchUpMultiplier
	}

	var chars int
	switch {
	case diff > burstHugeLag:
		chars = burstHugeChars * multiplier
	case diff > burstLargeLag:
		chars = burstLargeChars * multiplier
	case diff > burstMediumLag:
		chars = burstMediumChars * multiplier
	default:
		// Normal flow: one rune, rate-limited by minSpeed.
		if now.Sub(a.lastCharAt) > a.minSpeed/time.Duration(multiplier) {
			chars = 1
			a.lastCharAt = now
		}
	}

	if chars == 0 {
		return false
	}
	a.displayed += chars
	if a.displayed > len(a.target) {
		a.displayed = len(a.target)
	}
	if chars > 1 {
		a.lastCharAt = now
	}
	return true
}

// Displayed returns the currently revealed prefix of the target.
func (a *Animator) Displayed() string {
	return string(a.target[:a.displayed])
}

// Done reports whether the full target is on screen.
func (a *Animator) Done() bool {
	return a.displayed == len(a.target)
}

// Lag returns how many runes the display is behind the target.
func (a *Animator) Lag() int {
	return len(a.target) - a.displayed
}
