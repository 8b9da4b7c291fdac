// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration commands for the codebrain CLI.
//
// Command: config [subcommand]
//
// Subcommands:
//   show (default)      Print the effective configuration
//   get <key>           Print one value
//   set <key> <value>   Update one value and save
//   path                Print the config file location
//
// Keys use the TOML section.name form, e.g.:
//   codebrain config set chat.default_model gpt-4o
//   codebrain config set typing.min_speed_ms 15
//   codebrain config set typing.enabled false
package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/codebrain/codebrain-tui/internal/config"
)

// HandleConfig handles "codebrain config".
func HandleConfig(args *ArgParser) {
	switch args.Subcommand() {
	case "show", "":
		configShow()
	case "get":
		configGet(args.Positional(1))
	case "set":
		configSet(args.Positional(1), args.Positional(2))
	case "path":
		path, err := config.Path()
		if err != nil {
			fatalf("%v", err)
		}
		fmt.Println(path)
	default:
		fatalf("unknown config subcommand %q (show, get, set, path)", args.Subcommand())
	}
}

func configShow() {
	cfg, err := config.Load()
	if err != nil {
		fatalf("%v", err)
	}
	enc := toml.NewEncoder(os.Stdout)
	enc.Indent = ""
	if err := enc.Encode(cfg); err != nil {
		fatalf("encode config: %v", err)
	}
}

func configGet(key string) {
	if key == "" {
		fatalf("usage: codebrain config get <key>")
	}
	cfg, err := config.Load()
	if err != nil {
		fatalf("%v", err)
	}
	val, ok := configValue(cfg, key)
	if !ok {
		fatalf("unknown config key %q", key)
	}
	fmt.Println(val)
}

func configSet(key, value string) {
	if key == "" || value == "" {
		fatalf("usage: codebrain config set <key> <value>")
	}
	cfg, err := config.Load()
	if err != nil {
		fatalf("%v", err)
	}
	if err := applyConfigValue(cfg, key, value); err != nil {
		fatalf("%v", err)
	}
	if err := cfg.Validate(); err != nil {
		fatalf("rejected: %v", err)
	}
	if err := config.Save(cfg); err != nil {
		fatalf("save config: %v", err)
	}
	fmt.Printf("%s = %s\n", key, value)
}

// configValue reads one settable key.
func configValue(cfg *config.Config, key string) (string, bool) {
	switch key {
	case "api.base_url":
		return cfg.API.BaseURL, true
	case "api.timeout_secs":
		return strconv.Itoa(cfg.API.TimeoutSecs), true
	case "api.idle_timeout_secs":
		return strconv.Itoa(cfg.API.IdleTimeoutSecs), true
	case "chat.default_model":
		return cfg.Chat.DefaultModel, true
	case "chat.persona":
		return cfg.Chat.Persona, true
	case "typing.enabled":
		return strconv.FormatBool(cfg.Typing.Enabled), true
	case "typing.min_speed_ms":
		return strconv.Itoa(cfg.Typing.MinSpeedMs), true
	case "ui.theme":
		return cfg.UI.Theme, true
	case "ui.syntax_theme":
		return cfg.UI.SyntaxTheme, true
	case "storage.enabled":
		return strconv.FormatBool(cfg.Storage.Enabled), true
	case "storage.max_conversations":
		return strconv.Itoa(cfg.Storage.MaxConversations), true
	}
	return "", false
}

// applyConfigValue writes one settable key.
func applyConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "api.base_url":
		cfg.API.BaseURL = value
	case "api.timeout_secs":
		return setInt(&cfg.API.TimeoutSecs, key, value)
	case "api.idle_timeout_secs":
		return setInt(&cfg.API.IdleTimeoutSecs, key, value)
	case "chat.default_model":
		cfg.Chat.DefaultModel = value
	case "chat.persona":
		cfg.Chat.Persona = value
	case "typing.enabled":
		return setBool(&cfg.Typing.Enabled, key, value)
	case "typing.min_speed_ms":
		return setInt(&cfg.Typing.MinSpeedMs, key, value)
	case "ui.theme":
		cfg.UI.Theme = value
	case "ui.syntax_theme":
		cfg.UI.SyntaxTheme = value
	case "storage.enabled":
		return setBool(&cfg.Storage.Enabled, key, value)
	case "storage.max_conversations":
		return setInt(&cfg.Storage.MaxConversations, key, value)
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s must be an integer", key)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%s must be true or false", key)
	}
	*dst = b
	return nil
}
