// codebrain TUI - streaming AI pair programmer for the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/codebrain/codebrain-tui/internal/cli"
	"github.com/codebrain/codebrain-tui/internal/config"
	"github.com/codebrain/codebrain-tui/internal/storage"
	"github.com/codebrain/codebrain-tui/internal/ui/chat"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdTUI:
		runTUI()
	case cli.CmdAsk:
		cli.HandleAsk(args)
	case cli.CmdBlend:
		cli.HandleBlend(args)
	case cli.CmdChat:
		cli.HandleChat(args)
	case cli.CmdAuth:
		cli.HandleAuth(args)
	case cli.CmdConversations:
		cli.HandleConversations(args)
	case cli.CmdConfig:
		cli.HandleConfig(args)
	case cli.CmdVersion:
		cli.HandleVersion(args)
	case cli.CmdHelp:
		cli.HandleHelp()
	}
}

// runTUI starts the full-screen chat interface.
func runTUI() {
	rt, err := cli.NewRuntime()
	if err != nil {
		fmt.Fprintf(os.Stderr, "codebrain: %v\n", err)
		os.Exit(1)
	}

	var history *storage.History
	if h, err := rt.OpenHistory(); err != nil {
		// The chat works without the cache; say so and continue.
		fmt.Fprintf(os.Stderr, "warning: local cache unavailable: %v\n", err)
	} else {
		history = h
	}
	if history != nil {
		defer history.Close()
	}

	// Live config reload: edits to config.toml apply to the idle watchdog
	// without a restart. Anything else picks up on the next run.
	watcher, err := config.NewWatcher(func(cfg *config.Config) {
		rt.Client.SetIdleTimeout(time.Duration(cfg.API.IdleTimeoutSecs) * time.Second)
	})
	if err == nil {
		if err := watcher.Watch(); err == nil {
			defer watcher.Close()
		}
	}

	m := chat.New(rt.Cfg, rt.Client, history, rt.LoggedIn())
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "codebrain: %v\n", err)
		os.Exit(1)
	}
}
