// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAtomicWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.txt")
	if err := AtomicWriteFile(path, []byte("hello"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("content = %q", data)
	}

	info, _ := os.Stat(path)
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %o", info.Mode().Perm())
	}

	// Overwrite replaces the whole file.
	if err := AtomicWriteFile(path, []byte("v2"), 0600); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "v2" {
		t.Errorf("content after overwrite = %q", data)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := TruncateRunes("héllo wörld", 8); got != "héllo..." {
		t.Errorf("got %q", got)
	}
	if got := TruncateRunes("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := TruncateRunes("abc", 2); got != "ab" {
		t.Errorf("got %q", got)
	}
}

func TestTruncateWidthCJK(t *testing.T) {
	// Each CJK rune is two columns wide.
	s := "日本語テキスト"
	got := TruncateWidth(s, 9)
	if DisplayWidth(got) > 9 {
		t.Errorf("width %d exceeds limit: %q", DisplayWidth(got), got)
	}
	if got := TruncateWidth("plain", 10); got != "plain" {
		t.Errorf("got %q", got)
	}
}

func TestFirstLine(t *testing.T) {
	if got := FirstLine("  first \nsecond"); got != "first" {
		t.Errorf("got %q", got)
	}
}
