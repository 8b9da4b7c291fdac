// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.Chat.DefaultModel != "gemini-2.0-flash" {
		t.Errorf("default model = %q", cfg.Chat.DefaultModel)
	}
	if len(cfg.Chat.BlendModels) < 2 {
		t.Error("defaults must carry at least two blend models")
	}
}

func TestLoadFromPathRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.Chat.DefaultModel = "gpt-4o"
	cfg.API.IdleTimeoutSecs = 60
	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Chat.DefaultModel != "gpt-4o" {
		t.Errorf("default model = %q", loaded.Chat.DefaultModel)
	}
	if loaded.API.IdleTimeoutSecs != 60 {
		t.Errorf("idle timeout = %d", loaded.API.IdleTimeoutSecs)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config file mode = %o, want 0600", info.Mode().Perm())
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	partial := "[chat]\ndefault_model = \"claude-sonnet\"\n"
	if err := os.WriteFile(path, []byte(partial), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Chat.DefaultModel != "claude-sonnet" {
		t.Errorf("override lost: %q", cfg.Chat.DefaultModel)
	}
	if cfg.API.BaseURL != Default().API.BaseURL {
		t.Errorf("default base url lost: %q", cfg.API.BaseURL)
	}
	if !cfg.Typing.Enabled {
		t.Error("typing default lost")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.API.BaseURL = "not a url at all\x00"
	cfg.Typing.MinSpeedMs = 10000
	cfg.UI.Theme = "neon"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	msg := err.Error()
	for _, field := range []string{"api.base_url", "typing.min_speed_ms", "ui.theme"} {
		if !strings.Contains(msg, field) {
			t.Errorf("validation message missing %q: %s", field, msg)
		}
	}
}

func TestValidateRejectsSingleBlendModel(t *testing.T) {
	cfg := Default()
	cfg.Chat.BlendModels = []string{"gpt-4o"}
	if cfg.Validate() == nil {
		t.Error("a single blend model must be rejected")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("CODEBRAIN_API_BASE", "http://localhost:5000")
	t.Setenv("CODEBRAIN_MODEL", "env-model")
	t.Setenv("CODEBRAIN_NO_TYPING", "1")
	t.Setenv("CODEBRAIN_IDLE_TIMEOUT", "30")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.API.BaseURL != "http://localhost:5000" {
		t.Errorf("base url = %q", cfg.API.BaseURL)
	}
	if cfg.Chat.DefaultModel != "env-model" {
		t.Errorf("model = %q", cfg.Chat.DefaultModel)
	}
	if cfg.Typing.Enabled {
		t.Error("typing should be disabled by env")
	}
	if cfg.API.IdleTimeoutSecs != 30 {
		t.Errorf("idle timeout = %d", cfg.API.IdleTimeoutSecs)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()
	clone.Chat.BlendModels[0] = "changed"
	if cfg.Chat.BlendModels[0] == "changed" {
		t.Error("clone shares the blend model slice")
	}
}
