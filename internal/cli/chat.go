// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command for the codebrain CLI.
//
// Command: chat
//
// A readline-style REPL for people who want streaming answers without the
// full TUI (slow terminals, ssh sessions, screen readers).
//
// Interactive commands:
//   /help               Show available commands
//   /new                Start a new conversation
//   /model [name]       Show or switch the model
//   /blend              Toggle blend mode
//   /history            Show this session's exchanges
//   /export FILE        Write the conversation as Markdown
//   /quit               Exit
//   Ctrl+C              Cancel the current answer
//   Ctrl+D              Exit
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/codebrain/codebrain-tui/internal/api"
	"github.com/codebrain/codebrain-tui/internal/config"
	"github.com/codebrain/codebrain-tui/internal/model"
	"github.com/codebrain/codebrain-tui/internal/util"
)

const chatHistoryFile = "chat_history"

var (
	chatPromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	chatInfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	chatModelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212"))
)

// chatSession holds the REPL state.
type chatSession struct {
	rt    *Runtime
	line  *liner.State
	conv  *model.Conversation
	model string
	blend bool
}

// HandleChat handles "codebrain chat".
func HandleChat(args *ArgParser) {
	rt, err := NewRuntime()
	if err != nil {
		fatalf("%v", err)
	}

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	s := &chatSession{
		rt:    rt,
		line:  line,
		conv:  model.NewConversation(),
		model: args.FlagOrDefault("model", rt.Cfg.Chat.DefaultModel),
		blend: args.BoolFlag("blend"),
	}
	s.loadHistory()
	defer s.close()

	fmt.Println(chatModelStyle.Render("CodeBrain chat") +
		chatInfoStyle.Render("  ("+s.model+", /help for commands, Ctrl+D to exit)"))

	for {
		input, err := line.Prompt(chatPromptStyle.Render("> "))
		if err == liner.ErrPromptAborted {
			continue
		}
		if err != nil { // io.EOF on Ctrl+D
			fmt.Println()
			return
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if s.command(input) {
				return
			}
			continue
		}
		s.ask(input)
	}
}

// command executes a slash command. Returns true to exit the REPL.
func (s *chatSession) command(input string) bool {
	cmd, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "/quit", "/q", "/exit":
		return true

	case "/help", "/h":
		fmt.Println(chatInfoStyle.Render(
			"  /new        new conversation\n" +
				"  /model [m]  show or switch model\n" +
				"  /blend      toggle blend mode\n" +
				"  /history    show this session's exchanges\n" +
				"  /export F   write conversation as Markdown\n" +
				"  /quit       exit"))

	case "/new", "/n":
		s.conv.Clear()
		fmt.Println(chatInfoStyle.Render("started a new conversation"))

	case "/model", "/m":
		if rest == "" {
			fmt.Println(chatInfoStyle.Render("model: ") + chatModelStyle.Render(s.model))
			break
		}
		s.model = rest
		fmt.Println(chatInfoStyle.Render("switched to ") + chatModelStyle.Render(s.model))

	case "/blend", "/b":
		s.blend = !s.blend
		if s.blend {
			fmt.Println(chatInfoStyle.Render("blend mode on: " +
				strings.Join(s.rt.Cfg.Chat.BlendModels, ", ")))
		} else {
			fmt.Println(chatInfoStyle.Render("blend mode off"))
		}

	case "/history":
		if len(s.conv.Turns) == 0 {
			fmt.Println(chatInfoStyle.Render("no exchanges yet"))
			break
		}
		for i, t := range s.conv.Turns {
			fmt.Printf("%s %s\n", chatInfoStyle.Render(fmt.Sprintf("[%d]", i+1)),
				util.TruncateRunes(util.FirstLine(t.Question), 70))
		}

	case "/export":
		if rest == "" {
			fmt.Println(chatInfoStyle.Render("usage: /export FILE"))
			break
		}
		if err := os.WriteFile(rest, []byte(s.conv.ExportMarkdown()), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
			break
		}
		fmt.Println(chatInfoStyle.Render("wrote " + rest))

	default:
		fmt.Println(chatInfoStyle.Render("unknown command " + cmd + " (/help)"))
	}
	return false
}

// ask streams one answer into the REPL.
func (s *chatSession) ask(question string) {
	mode := api.ModeSingle
	modelName := s.model
	if s.blend {
		mode = api.ModeBlend
		modelName = "blend"
	}

	turn := model.NewTurn(question, "", s.rt.Cfg.Chat.Persona, modelName)
	turn.SetConversationID(s.conv.ID)
	s.conv.AddTurn(turn)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var printed int
	ing := api.NewIngestor(mode, turn, api.Options{
		OnUpdate: func(snap api.Snapshot) {
			switch snap.Phase {
			case api.PhaseStreaming, api.PhaseDone:
				if printed == 0 && len(snap.Text) > 0 {
					fmt.Fprint(os.Stderr, "\r\033[K")
				}
				if len(snap.Text) > printed {
					fmt.Print(snap.Text[printed:])
					printed = len(snap.Text)
				}
			default:
				fmt.Fprintf(os.Stderr, "\r\033[K%s", chatInfoStyle.Render(snap.Text))
			}
		},
		// The stream runs on this goroutine, so plain assignment is fine.
		OnConversation: func(conversationID string) {
			if s.conv.ID == "" {
				s.conv.ID = conversationID
			}
		},
	})

	var err error
	if s.blend {
		req := api.BlendRequest{
			Question:       question,
			Models:         s.rt.Cfg.Chat.BlendModels,
			ConversationID: s.conv.ID,
		}
		err = s.rt.Client.Blend(ctx, req, ing)
	} else {
		req := api.AskRequest{
			Question:       question,
			Model:          modelName,
			ConversationID: s.conv.ID,
		}
		err = s.rt.Client.Ask(ctx, req, ing)
	}

	// The terminal completion may replace the streamed text (blend) or
	// append the error notice; print whatever tail is missing.
	if len(turn.ResponseText) > printed {
		fmt.Print(turn.ResponseText[printed:])
	}
	fmt.Println()

	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "codebrain: %v\n", err)
	}
}

// loadHistory restores readline history from the config directory.
func (s *chatSession) loadHistory() {
	dir, err := config.Dir()
	if err != nil {
		return
	}
	f, err := os.Open(filepath.Join(dir, chatHistoryFile))
	if err != nil {
		return
	}
	defer f.Close()
	s.line.ReadHistory(f)
}

// close saves readline history and releases the terminal.
func (s *chatSession) close() {
	if dir, err := config.Dir(); err == nil {
		if f, err := os.Create(filepath.Join(dir, chatHistoryFile)); err == nil {
			s.line.WriteHistory(f)
			f.Close()
		}
	}
	s.line.Close()
}
