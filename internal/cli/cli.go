// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for codebrain.
package cli

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/codebrain/codebrain-tui/internal/api"
	"github.com/codebrain/codebrain-tui/internal/config"
	"github.com/codebrain/codebrain-tui/internal/session"
	"github.com/codebrain/codebrain-tui/internal/storage"
)

// Version information (can be overridden at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdBlend
	CmdChat
	CmdAuth
	CmdConversations
	CmdConfig
	CmdVersion
	CmdHelp
)

const usageText = `codebrain - AI pair programmer in your terminal

CodeBrain streams answers from the CodeBrain API with live typewriter
rendering, multi-model blending, and a local conversation cache.

Usage:
  codebrain                       Start the TUI (default)
  codebrain ask "question"        Ask a single question, stream to stdout
  codebrain blend "question"      Ask several models, stream the merged answer
  codebrain chat                  Interactive terminal chat (REPL)
  codebrain auth <subcommand>     login / logout / register / whoami
  codebrain conversations [sub]   list / show / export / delete / search
  codebrain config [show|get|set|path]
  codebrain version               Show version information
  codebrain help                  Show this help

Ask / blend flags:
  -m, --model NAME        Model for ask (overrides config)
  --models a,b,c          Models for blend (overrides config)
  --code FILE             Attach a code file to the question
  --image FILE            Attach an image (ask only)
  --conversation ID       Continue an existing conversation
  --persona NAME          Answer persona
  --raw                   Plain output: no markdown rendering

Auth subcommands:
  codebrain auth login            Log in (prompts for password)
  codebrain auth register         Create an account
  codebrain auth logout           Forget the stored session
  codebrain auth whoami           Show the logged-in account

Conversation subcommands:
  codebrain conversations                 List conversations
  codebrain conversations show <id>       Print a conversation
  codebrain conversations export <id>     Export as Markdown (--output FILE)
  codebrain conversations delete <id>     Delete on the server and locally
  codebrain conversations search <query>  Full-text search the local cache
  codebrain conversations favorite <turn-id> [--remove]
  codebrain conversations delete-turn <turn-id>

Environment:
  CODEBRAIN_API_BASE      Override the API endpoint
  CODEBRAIN_TOKEN         Bearer token (overrides the stored session)
  CODEBRAIN_MODEL         Override the default model
  CODEBRAIN_NO_TYPING     Disable the typewriter animation

Config: ~/.codebrain/config.toml
`

// Parse reads os.Args and returns the command plus its parser.
func Parse() (Command, *ArgParser) {
	raw := os.Args[1:]
	if len(raw) == 0 {
		return CmdTUI, NewArgParser(nil)
	}

	switch raw[0] {
	case "ask":
		return CmdAsk, NewArgParser(raw[1:])
	case "blend":
		return CmdBlend, NewArgParser(raw[1:])
	case "chat":
		return CmdChat, NewArgParser(raw[1:])
	case "auth", "login", "logout", "whoami":
		// Bare "codebrain login" works as a shorthand for "auth login".
		if raw[0] == "auth" {
			return CmdAuth, NewArgParser(raw[1:])
		}
		return CmdAuth, NewArgParser(raw)
	case "conversations", "convs":
		return CmdConversations, NewArgParser(raw[1:])
	case "config":
		return CmdConfig, NewArgParser(raw[1:])
	case "version", "-v", "--version":
		return CmdVersion, NewArgParser(raw[1:])
	case "help", "-h", "--help":
		return CmdHelp, NewArgParser(raw[1:])
	default:
		// An unrecognized first word is treated as a question.
		return CmdAsk, NewArgParser(raw)
	}
}

// PrintUsage prints the top-level usage text.
func PrintUsage() {
	fmt.Print(usageText)
}

// HandleHelp handles "codebrain help".
func HandleHelp() {
	PrintUsage()
}

// HandleVersion handles "codebrain version".
func HandleVersion(args *ArgParser) {
	if args.BoolFlag("json") {
		fmt.Printf("{\"version\":%q,\"commit\":%q,\"built\":%q,\"go\":%q}\n",
			Version, GitCommit, BuildDate, runtime.Version())
		return
	}
	fmt.Printf("codebrain %s (commit %s, built %s, %s)\n",
		Version, GitCommit, BuildDate, runtime.Version())
}

// =============================================================================
// SHARED RUNTIME
// =============================================================================

// Runtime bundles the pieces every command needs: config, the stored
// session, the API client, and (when enabled) the local history cache.
type Runtime struct {
	Cfg     *config.Config
	Session *session.Manager
	Client  *api.Client
}

// NewRuntime loads configuration and wires the API client to the stored
// session token.
func NewRuntime() (*Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	config.SetGlobal(cfg)

	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	sm, err := session.NewManager(dir)
	if err != nil {
		return nil, err
	}

	// CODEBRAIN_TOKEN overrides the stored session, for scripts and CI.
	client := api.New(cfg.API.BaseURL, func() string {
		if tok := os.Getenv("CODEBRAIN_TOKEN"); tok != "" {
			return tok
		}
		return sm.Token()
	})
	client.SetIdleTimeout(time.Duration(cfg.API.IdleTimeoutSecs) * time.Second)

	return &Runtime{Cfg: cfg, Session: sm, Client: client}, nil
}

// OpenHistory opens the local conversation cache, or returns nil when the
// cache is disabled. Callers own the handle and must Close it.
func (rt *Runtime) OpenHistory() (*storage.History, error) {
	if !rt.Cfg.Storage.Enabled {
		return nil, nil
	}
	path, err := rt.Cfg.HistoryPath()
	if err != nil {
		return nil, err
	}
	return storage.Open(path, rt.Cfg.Storage.MaxConversations)
}

// LoggedIn reports whether a bearer token is available.
func (rt *Runtime) LoggedIn() bool {
	return os.Getenv("CODEBRAIN_TOKEN") != "" || rt.Session.Token() != ""
}

// fatalf prints an error and exits. CLI commands use it for unrecoverable
// setup failures; streaming errors are handled inline so partial output is
// never discarded.
func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, "codebrain: "+format+"\n", a...)
	os.Exit(1)
}
