// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/codebrain/codebrain-tui/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrNotFound      = errors.New("not found in local history")
	ErrDatabaseError = errors.New("database error")
)

// =============================================================================
// HISTORY STORE
// =============================================================================

// History is the local conversation cache. It mirrors what the server has
// confirmed so past conversations open instantly and remain browsable
// offline; the server stays the source of truth.
type History struct {
	db *sql.DB

	// maxConversations caps cached conversations; 0 means unlimited.
	maxConversations int
}

// Open opens (or creates) the history database at path.
func Open(path string, maxConversations int) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows one writer; serialize access through a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	if _, err := db.Exec(
		`INSERT OR REPLACE INTO metadata (key, value) VALUES ('schema_version', ?)`,
		strconv.Itoa(SchemaVersion),
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("write schema version: %w", err)
	}

	return &History{db: db, maxConversations: maxConversations}, nil
}

// Close closes the database.
func (h *History) Close() error {
	return h.db.Close()
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// ConversationRow is one cached conversation.
type ConversationRow struct {
	ID        string
	Title     string
	Model     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SaveConversation inserts or refreshes a conversation row.
func (h *History) SaveConversation(ctx context.Context, row ConversationRow) error {
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO conversations (id, title, model, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			model = excluded.model,
			updated_at = excluded.updated_at`,
		row.ID, row.Title, row.Model, row.CreatedAt.Unix(), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("%w: save conversation: %v", ErrDatabaseError, err)
	}
	return h.enforceCap(ctx)
}

// ListConversations returns cached conversations, most recently updated first.
func (h *History) ListConversations(ctx context.Context) ([]ConversationRow, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, title, model, created_at, updated_at
		FROM conversations ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: list conversations: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var out []ConversationRow
	for rows.Next() {
		var r ConversationRow
		var created, updated int64
		var mdl sql.NullString
		if err := rows.Scan(&r.ID, &r.Title, &mdl, &created, &updated); err != nil {
			return nil, fmt.Errorf("%w: scan conversation: %v", ErrDatabaseError, err)
		}
		r.Model = mdl.String
		r.CreatedAt = time.Unix(created, 0)
		r.UpdatedAt = time.Unix(updated, 0)
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteConversation removes a conversation and its turns.
func (h *History) DeleteConversation(ctx context.Context, id string) error {
	res, err := h.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: delete conversation: %v", ErrDatabaseError, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// enforceCap evicts the oldest conversations beyond the configured limit.
func (h *History) enforceCap(ctx context.Context) error {
	if h.maxConversations <= 0 {
		return nil
	}
	_, err := h.db.ExecContext(ctx, `
		DELETE FROM conversations WHERE id IN (
			SELECT id FROM conversations
			ORDER BY updated_at DESC
			LIMIT -1 OFFSET ?
		)`, h.maxConversations)
	if err != nil {
		return fmt.Errorf("%w: enforce cap: %v", ErrDatabaseError, err)
	}
	return nil
}

// =============================================================================
// TURNS
// =============================================================================

// SaveTurn inserts or updates one exchange. The row is keyed by the turn's
// current identity: the client id while pending, the server id once
// committed (see ReplaceTurnID for the handover).
func (h *History) SaveTurn(ctx context.Context, conversationID string, t *model.Turn) error {
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO turns (id, conversation_id, question, response, model,
			summary, routing_reason, persona, favorite, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			response = excluded.response,
			summary = excluded.summary,
			routing_reason = excluded.routing_reason,
			persona = excluded.persona,
			favorite = excluded.favorite`,
		t.ID(), conversationID, t.Question, t.ResponseText, t.Model,
		t.Summary, t.RoutingReason, t.Persona, boolToInt(t.Favorite), t.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("%w: save turn: %v", ErrDatabaseError, err)
	}
	_, err = h.db.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`,
		time.Now().Unix(), conversationID)
	if err != nil {
		return fmt.Errorf("%w: touch conversation: %v", ErrDatabaseError, err)
	}
	return nil
}

// ReplaceTurnID rekeys a pending turn from its client id to the committed
// server id. A no-op if the pending row no longer exists.
func (h *History) ReplaceTurnID(ctx context.Context, clientID, serverID string) error {
	_, err := h.db.ExecContext(ctx,
		`UPDATE OR REPLACE turns SET id = ? WHERE id = ?`, serverID, clientID)
	if err != nil {
		return fmt.Errorf("%w: replace turn id: %v", ErrDatabaseError, err)
	}
	return nil
}

// LoadTurns returns a conversation's turns in chronological order.
func (h *History) LoadTurns(ctx context.Context, conversationID string) ([]*model.Turn, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, question, response, model, summary, routing_reason, persona, favorite, created_at
		FROM turns WHERE conversation_id = ? ORDER BY created_at, rowid`,
		conversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: load turns: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var out []*model.Turn
	for rows.Next() {
		var id, question, response string
		var mdl, summary, routing, persona sql.NullString
		var favorite int
		var created int64
		if err := rows.Scan(&id, &question, &response, &mdl, &summary, &routing, &persona, &favorite, &created); err != nil {
			return nil, fmt.Errorf("%w: scan turn: %v", ErrDatabaseError, err)
		}
		t := model.NewTurn(question, "", "", mdl.String)
		t.Streaming = false
		t.CreatedAt = time.Unix(created, 0)
		t.Favorite = favorite != 0
		t.Commit(model.CompletionMeta{
			HistoryID:      id,
			ConversationID: conversationID,
			FinalText:      response,
			Summary:        summary.String,
			RoutingReason:  routing.String,
			Persona:        persona.String,
		})
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTurn removes one exchange by its current id.
func (h *History) DeleteTurn(ctx context.Context, id string) error {
	res, err := h.db.ExecContext(ctx, `DELETE FROM turns WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: delete turn: %v", ErrDatabaseError, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetFavorite flips the favorite flag on a cached turn.
func (h *History) SetFavorite(ctx context.Context, id string, favorite bool) error {
	res, err := h.db.ExecContext(ctx,
		`UPDATE turns SET favorite = ? WHERE id = ?`, boolToInt(favorite), id)
	if err != nil {
		return fmt.Errorf("%w: set favorite: %v", ErrDatabaseError, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// =============================================================================
// SEARCH
// =============================================================================

// SearchHit is one full-text search result.
type SearchHit struct {
	TurnID         string
	ConversationID string
	Question       string
	Snippet        string
}

// Search runs a full-text query over cached questions and answers.
func (h *History) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.QueryContext(ctx, `
		SELECT t.id, t.conversation_id, t.question,
			snippet(turns_fts, 1, '', '', '...', 12)
		FROM turns_fts
		JOIN turns t ON t.rowid = turns_fts.rowid
		WHERE turns_fts MATCH ?
		ORDER BY rank LIMIT ?`,
		query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var out []SearchHit
	for rows.Next() {
		var hit SearchHit
		if err := rows.Scan(&hit.TurnID, &hit.ConversationID, &hit.Question, &hit.Snippet); err != nil {
			return nil, fmt.Errorf("%w: scan hit: %v", ErrDatabaseError, err)
		}
		out = append(out, hit)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
