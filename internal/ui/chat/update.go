// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/codebrain/codebrain-tui/internal/api"
	"github.com/codebrain/codebrain-tui/internal/model"
)

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}

	case SnapshotMsg:
		return m, m.handleSnapshot(api.Snapshot(msg))

	case StreamDoneMsg:
		return m, m.handleStreamDone(msg)

	case FrameTickMsg:
		return m, m.handleFrameTick(msg)

	case HistoryLoadedMsg:
		m.handleHistoryLoaded(msg)
		return m, nil

	case ErrMsg:
		m.err = msg.Err
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	// Remaining messages feed the focused input and the viewport.
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// =============================================================================
// KEY HANDLING
// =============================================================================

// handleKey processes chat-level bindings; unhandled keys flow to the input.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancelMgr.cancel()
		return tea.Quit, true

	case key.Matches(msg, m.keys.Cancel):
		if m.streaming() {
			// The stream goroutine observes the cancel and finishes; the
			// partial answer stays on screen.
			m.cancelMgr.cancel()
			return nil, true
		}
		return nil, false

	case key.Matches(msg, m.keys.NewChat):
		if m.streaming() {
			m.cancelMgr.cancel()
		}
		m.conv = model.NewConversation()
		m.activeTurn = nil
		m.phase = api.PhaseIdle
		m.animator.SetTarget("", false)
		m.err = nil
		m.refreshViewport()
		return nil, true

	case key.Matches(msg, m.keys.Resume):
		if m.streaming() {
			return nil, true
		}
		return m.resumeLast(), true

	case key.Matches(msg, m.keys.ToggleBlend):
		m.blendMode = !m.blendMode
		return nil, true

	case key.Matches(msg, m.keys.Submit):
		question := strings.TrimSpace(m.input.Value())
		if question == "" || m.streaming() {
			return nil, true
		}
		m.input.Reset()
		return m.startAsk(question, ""), true
	}
	return nil, false
}

// =============================================================================
// STREAM EVENTS
// =============================================================================

// handleSnapshot applies one ingestor snapshot to the animator.
func (m *Model) handleSnapshot(s api.Snapshot) tea.Cmd {
	if m.stream == nil || s.TurnClientID != m.stream.turnClientID {
		// Late snapshot from a cancelled stream.
		return nil
	}

	m.phase = s.Phase
	active := s.Phase != api.PhaseDone && s.Phase != api.PhaseErrored
	m.animator.SetTarget(s.Text, active)
	m.refreshViewport()
	return waitForStream(m.stream)
}

// handleStreamDone finalizes the stream and schedules persistence.
func (m *Model) handleStreamDone(msg StreamDoneMsg) tea.Cmd {
	if m.stream == nil || msg.TurnClientID != m.stream.turnClientID {
		return nil
	}
	h := m.stream
	m.stream = nil
	m.cancelMgr.cancel()

	turn := m.conv.FindByClientID(msg.TurnClientID)
	if turn == nil {
		return nil
	}

	// The reveal keeps animating to the final text; no snap.
	m.animator.SetTarget(turn.ResponseText, false)

	if msg.Err != nil {
		m.err = msg.Err
	}

	var cmds []tea.Cmd
	if turn.Committed() {
		// Adopt the conversation identity revealed by the server.
		if m.conv.ID == "" && h.revealedConversation != "" {
			m.conv.ID = h.revealedConversation
		}
		if cmd := m.persistTurn(turn); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	m.refreshViewport()
	return tea.Batch(cmds...)
}

// handleFrameTick advances the typewriter reveal one frame.
func (m *Model) handleFrameTick(msg FrameTickMsg) tea.Cmd {
	changed := m.animator.Tick(msg.Time)
	if changed {
		m.refreshViewport()
	}

	// Keep ticking while there is anything left to reveal or a stream that
	// may still grow the target.
	if m.streaming() || !m.animator.Done() {
		return frameTickCmd()
	}
	m.ticking = false
	return nil
}

// handleHistoryLoaded swaps in a restored conversation.
func (m *Model) handleHistoryLoaded(msg HistoryLoadedMsg) {
	if msg.Err != nil {
		m.err = msg.Err
		return
	}
	conv := model.NewConversation()
	conv.ID = msg.ConversationID
	for _, t := range msg.Turns {
		conv.AddTurn(t)
	}
	m.conv = conv
	m.activeTurn = nil
	m.phase = api.PhaseIdle
	// Historical text was never streamed here; it renders instantly.
	m.animator.SetTarget("", false)
	m.refreshViewport()
}

// =============================================================================
// LAYOUT
// =============================================================================

// resize recomputes the layout for a new terminal size.
func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.theme.Resize(width, height)
	m.renderer.SetWidth(width)
	m.input.SetWidth(width - 4)

	// Compact mode drops the header banner, freeing its rows.
	chrome := 5
	if m.cfg.UI.CompactMode {
		chrome = 3
	}
	viewportHeight := height - m.input.Height() - chrome
	if viewportHeight < 3 {
		viewportHeight = 3
	}
	if !m.ready {
		m.viewport = viewport.New(width, viewportHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = viewportHeight
	}
	m.refreshViewport()
}

// refreshViewport re-renders the transcript and follows the tail.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	wasAtBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript())
	if wasAtBottom || m.streaming() {
		m.viewport.GotoBottom()
	}
}
