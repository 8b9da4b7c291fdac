// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// auth_cmd.go - Account commands for the codebrain CLI.
//
// Command: auth [subcommand]
//
// Subcommands:
//   login               Log in and store the session locally
//   register            Create an account
//   logout              Forget the stored session
//   whoami (default)    Show the logged-in account
//
// Examples:
//   codebrain auth login --email dev@example.com
//   codebrain auth whoami --json
//   codebrain auth logout
//
// SECURITY: Passwords are read with terminal echo disabled and never
// stored; only the server-issued token is persisted, encrypted at rest.
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/codebrain/codebrain-tui/internal/api"
	"github.com/codebrain/codebrain-tui/internal/session"
)

// HandleAuth handles "codebrain auth".
func HandleAuth(args *ArgParser) {
	rt, err := NewRuntime()
	if err != nil {
		fatalf("%v", err)
	}

	switch args.Subcommand() {
	case "login":
		authLogin(rt, args)
	case "register":
		authRegister(rt, args)
	case "logout":
		authLogout(rt)
	case "whoami", "status", "":
		authWhoami(rt, args)
	default:
		fatalf("unknown auth subcommand %q (login, register, logout, whoami)", args.Subcommand())
	}
}

func authLogin(rt *Runtime, args *ArgParser) {
	email := args.Flag("email", "e")
	if email == "" {
		email = promptLine("Email: ")
	}
	password := promptPassword("Password: ")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := rt.Client.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, api.ErrAuthFailed) {
			fatalf("login failed: check your email and password")
		}
		fatalf("login failed: %v", err)
	}
	saveSession(rt, res)
	fmt.Printf("Logged in as %s\n", res.User.Email)
}

func authRegister(rt *Runtime, args *ArgParser) {
	email := args.Flag("email", "e")
	if email == "" {
		email = promptLine("Email: ")
	}
	name := args.Flag("name")
	if name == "" {
		name = promptLine("Display name: ")
	}
	password := promptPassword("Password: ")
	if promptPassword("Confirm password: ") != password {
		fatalf("passwords do not match")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := rt.Client.Register(ctx, email, password, name)
	if err != nil {
		fatalf("registration failed: %v", err)
	}
	saveSession(rt, res)
	fmt.Printf("Account created. Logged in as %s\n", res.User.Email)
}

func authLogout(rt *Runtime) {
	if err := rt.Session.Clear(); err != nil {
		fatalf("logout failed: %v", err)
	}
	fmt.Println("Logged out.")
}

func authWhoami(rt *Runtime, args *ArgParser) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	user, err := rt.Client.Me(ctx)
	if err != nil {
		if errors.Is(err, api.ErrNotAuthenticated) {
			fmt.Println("Not logged in. Run: codebrain auth login")
			return
		}
		if errors.Is(err, api.ErrAuthFailed) {
			// Stored token no longer accepted; drop it.
			_ = rt.Session.Clear()
			fmt.Println("Session expired. Run: codebrain auth login")
			return
		}
		fatalf("%v", err)
	}

	if args.BoolFlag("json") {
		out, _ := json.MarshalIndent(user, "", "  ")
		fmt.Println(string(out))
		return
	}
	fmt.Printf("Logged in as %s (%s)\n", user.DisplayName, user.Email)
}

// saveSession persists a fresh login locally.
func saveSession(rt *Runtime, res *api.LoginResult) {
	err := rt.Session.Save(session.Session{
		Token:       res.Token,
		UserID:      res.User.ID.String(),
		Email:       res.User.Email,
		DisplayName: res.User.DisplayName,
		SavedAt:     time.Now(),
	})
	if err != nil {
		// The login itself succeeded; the user just has to log in again
		// next run.
		fmt.Fprintf(os.Stderr, "warning: could not store session: %v\n", err)
	}
}

// promptLine reads one line from stdin.
func promptLine(prompt string) string {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		fatalf("read input: %v", err)
	}
	return strings.TrimSpace(line)
}

// promptPassword reads a password without echoing it.
func promptPassword(prompt string) string {
	fmt.Print(prompt)
	pass, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fatalf("read password: %v", err)
	}
	return string(pass)
}
