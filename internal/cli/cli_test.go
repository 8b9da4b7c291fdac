// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"reflect"
	"testing"

	"github.com/codebrain/codebrain-tui/internal/config"
)

func TestArgParserFlagForms(t *testing.T) {
	p := NewArgParser([]string{
		"show", "--lines", "50", "--since=2024-01-01", "--json", "-o", "out.md",
	})

	if p.Subcommand() != "show" {
		t.Errorf("subcommand = %q", p.Subcommand())
	}
	if p.Flag("lines") != "50" {
		t.Errorf("lines = %q", p.Flag("lines"))
	}
	if p.Flag("since") != "2024-01-01" {
		t.Errorf("since = %q", p.Flag("since"))
	}
	if !p.BoolFlag("json") {
		t.Error("json flag not set")
	}
	if p.Flag("output", "o") != "out.md" {
		t.Errorf("short flag lookup failed: %q", p.Flag("output", "o"))
	}
}

func TestArgParserExplicitBool(t *testing.T) {
	p := NewArgParser([]string{"--json=false", "--raw=true"})

	if p.BoolFlag("json") {
		t.Error("--json=false must read as false")
	}
	if !p.BoolFlag("raw") {
		t.Error("--raw=true must read as true")
	}
}

func TestArgParserPositionals(t *testing.T) {
	p := NewArgParser([]string{"search", "error", "in", "production", "--limit", "5"})

	if got := p.JoinFrom(1); got != "error in production" {
		t.Errorf("JoinFrom = %q", got)
	}
	if p.Positional(1) != "error" {
		t.Errorf("Positional(1) = %q", p.Positional(1))
	}
	if p.Positional(99) != "" {
		t.Error("out-of-range positional must be empty")
	}
	if p.FlagIntOrDefault("limit", 20) != 5 {
		t.Errorf("limit = %d", p.FlagIntOrDefault("limit", 20))
	}
	if p.FlagIntOrDefault("missing", 20) != 20 {
		t.Error("missing int flag must use default")
	}
}

func TestArgParserEmpty(t *testing.T) {
	p := NewArgParser(nil)
	if p.Subcommand() != "" {
		t.Error("empty args must have no subcommand")
	}
	if p.HasFlag("anything") {
		t.Error("empty args must have no flags")
	}
}

func TestSplitModels(t *testing.T) {
	got := splitModels("gemini-2.5-flash, gpt-4o ,,claude")
	want := []string{"gemini-2.5-flash", "gpt-4o", "claude"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitModels = %v", got)
	}
}

func TestConfigValueRoundTrip(t *testing.T) {
	cfg := config.Default()

	if err := applyConfigValue(cfg, "chat.default_model", "gpt-4o"); err != nil {
		t.Fatal(err)
	}
	if val, ok := configValue(cfg, "chat.default_model"); !ok || val != "gpt-4o" {
		t.Errorf("get after set = %q, %v", val, ok)
	}

	if err := applyConfigValue(cfg, "typing.min_speed_ms", "15"); err != nil {
		t.Fatal(err)
	}
	if cfg.Typing.MinSpeedMs != 15 {
		t.Errorf("min_speed_ms = %d", cfg.Typing.MinSpeedMs)
	}

	if err := applyConfigValue(cfg, "typing.enabled", "false"); err != nil {
		t.Fatal(err)
	}
	if cfg.Typing.Enabled {
		t.Error("typing.enabled not applied")
	}
}

func TestConfigValueRejectsUnknownKey(t *testing.T) {
	cfg := config.Default()
	if err := applyConfigValue(cfg, "nope.nothing", "x"); err == nil {
		t.Error("unknown key must be rejected")
	}
	if _, ok := configValue(cfg, "nope.nothing"); ok {
		t.Error("unknown key must not resolve")
	}
}

func TestConfigValueRejectsBadTypes(t *testing.T) {
	cfg := config.Default()
	if err := applyConfigValue(cfg, "typing.min_speed_ms", "fast"); err == nil {
		t.Error("non-integer must be rejected")
	}
	if err := applyConfigValue(cfg, "storage.enabled", "maybe"); err == nil {
		t.Error("non-boolean must be rejected")
	}
}
