// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/codebrain/codebrain-tui/internal/api"
	"github.com/codebrain/codebrain-tui/internal/config"
	"github.com/codebrain/codebrain-tui/internal/model"
	"github.com/codebrain/codebrain-tui/internal/storage"
	"github.com/codebrain/codebrain-tui/internal/typing"
	"github.com/codebrain/codebrain-tui/internal/ui/components"
	"github.com/codebrain/codebrain-tui/internal/ui/styles"
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	cfg      *config.Config
	theme    *styles.Theme
	client   *api.Client
	history  *storage.History // nil when local caching is disabled
	loggedIn bool

	// Conversation state
	conv       *model.Conversation
	activeTurn *model.Turn

	// Stream state
	stream    *streamHandle
	phase     api.Phase
	blendMode bool
	cancelMgr *cancelManager

	// Animation state
	animator *typing.Animator
	ticking  bool

	// UI components
	renderer *components.MessageRenderer
	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	keys     keyMap

	width  int
	height int
	ready  bool
	err    error
}

// New creates the chat model.
func New(cfg *config.Config, client *api.Client, history *storage.History, loggedIn bool) *Model {
	theme := styles.NewTheme()
	if cfg.UI.SyntaxTheme != "" {
		theme.SyntaxTheme = cfg.UI.SyntaxTheme
	}

	input := textarea.New()
	input.Placeholder = "Ask CodeBrain anything..."
	input.CharLimit = 8000
	input.SetHeight(3)
	input.ShowLineNumbers = false
	input.Focus()

	minSpeed := time.Duration(cfg.Typing.MinSpeedMs) * time.Millisecond
	animator := typing.New(minSpeed)
	animator.SetInstant(!cfg.Typing.Enabled)

	renderer := components.NewMessageRenderer(theme, 80)
	renderer.SetShowRouting(cfg.UI.ShowRouting)

	return &Model{
		cfg:       cfg,
		theme:     theme,
		client:    client,
		history:   history,
		loggedIn:  loggedIn,
		conv:      model.NewConversation(),
		cancelMgr: newCancelManager(),
		animator:  animator,
		renderer:  renderer,
		input:     input,
		spinner:   components.NewSpinner(theme),
		keys:      defaultKeyMap(),
		phase:     api.PhaseIdle,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

// streaming reports whether a stream is currently in flight.
func (m *Model) streaming() bool {
	return m.stream != nil
}

// =============================================================================
// STREAM SETUP
// =============================================================================

// startAsk launches a single-model or blend request for the given question.
func (m *Model) startAsk(question, code string) tea.Cmd {
	mode := api.ModeSingle
	modelName := m.cfg.Chat.DefaultModel
	if m.blendMode {
		mode = api.ModeBlend
		modelName = "blend"
	}

	turn := model.NewTurn(question, code, "", modelName)
	if m.conv.ID != "" {
		turn.SetConversationID(m.conv.ID)
	}
	m.conv.AddTurn(turn)
	m.activeTurn = turn
	m.phase = api.PhaseIdle
	m.err = nil

	// Fresh reveal for the new answer.
	m.animator.SetTarget("", false)

	h := newStreamHandle(turn.ClientID)
	m.stream = h

	ing := api.NewIngestor(mode, turn, api.Options{
		OnUpdate:       h.publish,
		OnConversation: h.reveal,
	})

	var run streamFunc
	if m.blendMode {
		req := api.BlendRequest{
			Question:       question,
			Code:           code,
			Models:         m.cfg.Chat.BlendModels,
			ConversationID: m.conv.ID,
		}
		run = func(ctx context.Context, ing *api.Ingestor) error {
			return m.client.Blend(ctx, req, ing)
		}
	} else {
		req := api.AskRequest{
			Question:       question,
			Code:           code,
			Model:          modelName,
			ConversationID: m.conv.ID,
		}
		run = func(ctx context.Context, ing *api.Ingestor) error {
			return m.client.Ask(ctx, req, ing)
		}
	}

	cmds := []tea.Cmd{m.launchStream(h, ing, run)}
	if !m.ticking {
		m.ticking = true
		cmds = append(cmds, frameTickCmd())
	}
	return tea.Batch(cmds...)
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// persistTurn caches a finished turn locally. Best-effort: a cache failure
// never disturbs the chat.
func (m *Model) persistTurn(turn *model.Turn) tea.Cmd {
	if m.history == nil || turn.ConversationID == "" {
		return nil
	}
	h := m.history
	conv := storage.ConversationRow{
		ID:    turn.ConversationID,
		Title: m.conv.GenerateTitle(),
		Model: turn.Model,
	}
	clientID := turn.ClientID
	serverID := turn.ID()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.SaveConversation(ctx, conv); err != nil {
			return nil
		}
		if serverID != clientID {
			_ = h.ReplaceTurnID(ctx, clientID, serverID)
		}
		_ = h.SaveTurn(ctx, turn.ConversationID, turn)
		return nil
	}
}

// resumeLast restores the most recently cached conversation.
func (m *Model) resumeLast() tea.Cmd {
	if m.history == nil {
		return nil
	}
	h := m.history
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rows, err := h.ListConversations(ctx)
		if err != nil {
			return HistoryLoadedMsg{Err: err}
		}
		if len(rows) == 0 {
			return nil
		}
		turns, err := h.LoadTurns(ctx, rows[0].ID)
		return HistoryLoadedMsg{ConversationID: rows[0].ID, Turns: turns, Err: err}
	}
}
