// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// conversations_cmd.go - Conversation management for the codebrain CLI.
//
// Command: conversations [subcommand]
//
// Subcommands:
//   list (default)      List conversations
//   show <id>           Print a conversation's exchanges
//   export <id>         Export as Markdown (--output FILE, default stdout)
//   delete <id>         Delete on the server and in the local cache
//   search <query>      Full-text search the local cache
//   favorite <turn-id>      Mark an exchange as a favorite (--remove undoes)
//   delete-turn <turn-id>   Delete one exchange
//
// List and show prefer the server when logged in and fall back to the
// local cache offline; search always runs against the local cache.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/codebrain/codebrain-tui/internal/api"
	"github.com/codebrain/codebrain-tui/internal/model"
	"github.com/codebrain/codebrain-tui/internal/storage"
	"github.com/codebrain/codebrain-tui/internal/util"
)

// HandleConversations handles "codebrain conversations".
func HandleConversations(args *ArgParser) {
	rt, err := NewRuntime()
	if err != nil {
		fatalf("%v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch args.Subcommand() {
	case "list", "":
		listConversations(ctx, rt)
	case "show":
		showConversation(ctx, rt, args.Positional(1))
	case "export":
		exportConversation(ctx, rt, args.Positional(1), args.Flag("output", "o"))
	case "delete":
		deleteConversation(ctx, rt, args)
	case "search":
		searchConversations(ctx, rt, args.JoinFrom(1), args.FlagIntOrDefault("limit", 20))
	case "favorite":
		favoriteTurn(ctx, rt, args.Positional(1), !args.BoolFlag("remove"))
	case "delete-turn":
		deleteTurn(ctx, rt, args.Positional(1))
	default:
		fatalf("unknown conversations subcommand %q (list, show, export, delete, search, favorite, delete-turn)", args.Subcommand())
	}
}

func listConversations(ctx context.Context, rt *Runtime) {
	if rt.LoggedIn() {
		convs, err := rt.Client.Conversations(ctx)
		if err == nil {
			if len(convs) == 0 {
				fmt.Println("No conversations yet.")
				return
			}
			for _, c := range convs {
				marker := " "
				if c.Pinned {
					marker = "*"
				}
				fmt.Printf("%s %-8s %s\n", marker, c.ID.String(),
					util.TruncateRunes(c.Title, 60))
			}
			return
		}
		fmt.Fprintf(os.Stderr, "warning: server unavailable (%v), using local cache\n", err)
	}

	h := mustOpenHistory(rt)
	defer h.Close()
	rows, err := h.ListConversations(ctx)
	if err != nil {
		fatalf("%v", err)
	}
	if len(rows) == 0 {
		fmt.Println("No cached conversations.")
		return
	}
	for _, row := range rows {
		fmt.Printf("  %-8s %-50s %s\n", row.ID,
			util.TruncateRunes(row.Title, 50), row.UpdatedAt.Format("2006-01-02"))
	}
}

func showConversation(ctx context.Context, rt *Runtime, id string) {
	if id == "" {
		fatalf("usage: codebrain conversations show <id>")
	}
	for _, t := range fetchTurns(ctx, rt, id) {
		fmt.Printf("> %s\n\n%s\n\n---\n", t.Question, t.ResponseText)
	}
}

func exportConversation(ctx context.Context, rt *Runtime, id, output string) {
	if id == "" {
		fatalf("usage: codebrain conversations export <id> [--output FILE]")
	}
	conv := model.NewConversation()
	conv.ID = id
	for _, t := range fetchTurns(ctx, rt, id) {
		conv.AddTurn(t)
	}

	md := conv.ExportMarkdown()
	if output == "" {
		fmt.Print(md)
		return
	}
	if err := os.WriteFile(output, []byte(md), 0o644); err != nil {
		fatalf("write export: %v", err)
	}
	fmt.Printf("Exported %d exchanges to %s\n", len(conv.Turns), output)
}

func deleteConversation(ctx context.Context, rt *Runtime, args *ArgParser) {
	id := args.Positional(1)
	if id == "" {
		fatalf("usage: codebrain conversations delete <id> [--confirm]")
	}
	if !args.BoolFlag("confirm", "y") {
		if promptLine(fmt.Sprintf("Delete conversation %s? [y/N] ", id)) != "y" {
			fmt.Println("Aborted.")
			return
		}
	}

	if rt.LoggedIn() {
		if err := rt.Client.DeleteConversation(ctx, id); err != nil {
			fatalf("delete on server: %v", err)
		}
	}
	if h, err := rt.OpenHistory(); err == nil && h != nil {
		_ = h.DeleteConversation(ctx, id)
		h.Close()
	}
	fmt.Println("Deleted.")
}

func searchConversations(ctx context.Context, rt *Runtime, query string, limit int) {
	if query == "" {
		fatalf("usage: codebrain conversations search <query>")
	}
	h := mustOpenHistory(rt)
	defer h.Close()

	hits, err := h.Search(ctx, query, limit)
	if err != nil {
		fatalf("%v", err)
	}
	if len(hits) == 0 {
		fmt.Println("No matches.")
		return
	}
	for _, hit := range hits {
		fmt.Printf("  [%s] %s\n      %s\n", hit.ConversationID,
			util.TruncateRunes(util.FirstLine(hit.Question), 60), hit.Snippet)
	}
}

// favoriteTurn marks or unmarks one exchange as a favorite, on the server
// and in the local cache.
func favoriteTurn(ctx context.Context, rt *Runtime, id string, favorite bool) {
	if id == "" {
		fatalf("usage: codebrain conversations favorite <turn-id> [--remove]")
	}
	if rt.LoggedIn() {
		if err := rt.Client.SetFavorite(ctx, id, favorite); err != nil {
			fatalf("%v", err)
		}
	}
	if h, err := rt.OpenHistory(); err == nil && h != nil {
		_ = h.SetFavorite(ctx, id, favorite)
		h.Close()
	}
	if favorite {
		fmt.Println("Added to favorites.")
	} else {
		fmt.Println("Removed from favorites.")
	}
}

// deleteTurn removes one exchange, on the server and in the local cache.
func deleteTurn(ctx context.Context, rt *Runtime, id string) {
	if id == "" {
		fatalf("usage: codebrain conversations delete-turn <turn-id>")
	}
	if rt.LoggedIn() {
		if err := rt.Client.DeleteTurn(ctx, id); err != nil {
			fatalf("%v", err)
		}
	}
	if h, err := rt.OpenHistory(); err == nil && h != nil {
		_ = h.DeleteTurn(ctx, id)
		h.Close()
	}
	fmt.Println("Deleted.")
}

// fetchTurns loads a conversation's turns from the server when logged in,
// from the local cache otherwise.
func fetchTurns(ctx context.Context, rt *Runtime, id string) []*model.Turn {
	if rt.LoggedIn() {
		records, err := rt.Client.ConversationHistory(ctx, id)
		if err == nil {
			turns := make([]*model.Turn, 0, len(records))
			for _, rec := range records {
				turns = append(turns, api.TurnFromRecord(rec))
			}
			return turns
		}
		fmt.Fprintf(os.Stderr, "warning: server unavailable (%v), using local cache\n", err)
	}

	h := mustOpenHistory(rt)
	defer h.Close()
	turns, err := h.LoadTurns(ctx, id)
	if err != nil {
		fatalf("%v", err)
	}
	return turns
}

// mustOpenHistory opens the local cache or exits when it is disabled.
func mustOpenHistory(rt *Runtime) *storage.History {
	h, err := rt.OpenHistory()
	if err != nil {
		fatalf("open local cache: %v", err)
	}
	if h == nil {
		fatalf("local cache is disabled (storage.enabled = false) and you are not logged in")
	}
	return h
}
