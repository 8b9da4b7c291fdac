// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question commands for the codebrain CLI.
//
// Command: ask "question"      Stream a single-model answer to stdout
// Command: blend "question"    Stream a multi-model blended answer
//
// Examples:
//   codebrain ask "why is this slow?" --code main.go
//   codebrain ask "describe this diagram" --image arch.png
//   codebrain blend "review this function" --models gemini-2.5-flash,gpt-4o
//   codebrain ask "explain" --raw | less
//
// When stdout is a terminal the final answer is re-rendered as markdown;
// when piped (or with --raw) the text streams through unformatted.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/codebrain/codebrain-tui/internal/api"
	"github.com/codebrain/codebrain-tui/internal/model"
)

// HandleAsk handles "codebrain ask".
func HandleAsk(args *ArgParser) {
	rt, err := NewRuntime()
	if err != nil {
		fatalf("%v", err)
	}

	question := args.JoinFrom(0)
	if question == "" {
		fatalf("usage: codebrain ask \"question\" [--code FILE] [--image FILE]")
	}

	req := api.AskRequest{
		Question:       question,
		Code:           readCodeFlag(args),
		Model:          args.Flag("model", "m"),
		ConversationID: args.Flag("conversation"),
		ImagePath:      args.Flag("image"),
	}
	if req.Model == "" {
		req.Model = rt.Cfg.Chat.DefaultModel
	}

	turn := model.NewTurn(question, req.Code, args.FlagOrDefault("persona", rt.Cfg.Chat.Persona), req.Model)
	runStream(args, turn, api.ModeSingle, func(ctx context.Context, ing *api.Ingestor) error {
		return rt.Client.Ask(ctx, req, ing)
	})
}

// HandleBlend handles "codebrain blend".
func HandleBlend(args *ArgParser) {
	rt, err := NewRuntime()
	if err != nil {
		fatalf("%v", err)
	}

	question := args.JoinFrom(0)
	if question == "" {
		fatalf("usage: codebrain blend \"question\" [--models a,b,c]")
	}

	models := rt.Cfg.Chat.BlendModels
	if flag := args.Flag("models"); flag != "" {
		models = splitModels(flag)
	}

	req := api.BlendRequest{
		Question:       question,
		Code:           readCodeFlag(args),
		Models:         models,
		ConversationID: args.Flag("conversation"),
	}

	turn := model.NewTurn(question, req.Code, "", "blend")
	runStream(args, turn, api.ModeBlend, func(ctx context.Context, ing *api.Ingestor) error {
		return rt.Client.Blend(ctx, req, ing)
	})
}

// =============================================================================
// STREAM-TO-STDOUT
// =============================================================================

// runStream drives one answer stream to completion on stdout.
//
// Two output modes:
//   - plain (piped stdout or --raw): answer text streams as it arrives,
//     phase notices go to stderr so pipelines stay clean.
//   - rendered (terminal stdout): phases tick on one status line, and the
//     finished answer prints once through the markdown renderer.
func runStream(args *ArgParser, turn *model.Turn, mode api.Mode, run func(context.Context, *api.Ingestor) error) {
	plain := args.BoolFlag("raw") || !term.IsTerminal(int(os.Stdout.Fd()))

	// Ctrl+C cancels the stream; the partial answer is kept.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var printed int
	ing := api.NewIngestor(mode, turn, api.Options{
		OnUpdate: func(s api.Snapshot) {
			if !plain {
				if s.Phase != api.PhaseStreaming && s.Phase != api.PhaseDone {
					fmt.Fprintf(os.Stderr, "\r\033[K%s", s.Text)
				}
				return
			}
			switch s.Phase {
			case api.PhaseStreaming, api.PhaseDone:
				if len(s.Text) > printed {
					fmt.Print(s.Text[printed:])
					printed = len(s.Text)
				}
			default:
				// Blend placeholders are progress, not answer text.
				fmt.Fprintf(os.Stderr, "%s\n", s.Text)
			}
		},
	})

	err := run(ctx, ing)

	if plain {
		if len(turn.ResponseText) > printed {
			fmt.Print(turn.ResponseText[printed:])
		}
		fmt.Println()
	} else {
		fmt.Fprint(os.Stderr, "\r\033[K")
		fmt.Print(renderMarkdown(turn.ResponseText))
	}

	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		os.Exit(130)
	default:
		fmt.Fprintf(os.Stderr, "codebrain: %v\n", err)
		os.Exit(1)
	}
}

// renderMarkdown renders an answer for terminal display, falling back to
// the raw text when the renderer is unavailable.
func renderMarkdown(text string) string {
	width := 100
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 20 {
		width = w
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-2),
	)
	if err != nil {
		return text + "\n"
	}
	out, err := r.Render(text)
	if err != nil {
		return text + "\n"
	}
	return out
}

// readCodeFlag loads the --code file, if given.
func readCodeFlag(args *ArgParser) string {
	path := args.Flag("code")
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fatalf("read code file: %v", err)
	}
	return string(data)
}

// splitModels parses a comma-separated model list.
func splitModels(s string) []string {
	var out []string
	for _, m := range strings.Split(s, ",") {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}
