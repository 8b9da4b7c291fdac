// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/codebrain/codebrain-tui/internal/model"
)

// STREAMING: Event application with strict arrival ordering.
//
// The Ingestor drives one answer stream: it decodes bytes into frames,
// classifies each frame into an event, and applies the event to the turn it
// was created for. Events are applied exactly once, in arrival order, and the
// turn's response text is always left as a complete, displayable string.

// =============================================================================
// MODE AND PHASE
// =============================================================================

// Mode selects the request style whose stream is being consumed.
type Mode int

const (
	// ModeSingle is a single-model ask.
	ModeSingle Mode = iota
	// ModeBlend queries several models and merges their answers server-side.
	ModeBlend
)

// Phase is the ingestor's position in the stream lifecycle.
type Phase int

const (
	PhaseIdle      Phase = iota // No event applied yet
	PhaseFetching               // Blend: querying models
	PhaseProgress               // Blend: per-model progress
	PhaseBlending               // Blend: merging answers
	PhaseStreaming              // Content chunks arriving
	PhaseDone                   // Terminal event applied
	PhaseErrored                // Transport failure surfaced
)

// String returns the phase name for status display.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseFetching:
		return "fetching"
	case PhaseProgress:
		return "progress"
	case PhaseBlending:
		return "blending"
	case PhaseStreaming:
		return "streaming"
	case PhaseDone:
		return "done"
	case PhaseErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// =============================================================================
// PLACEHOLDER TEXT
// =============================================================================

// Blend-phase placeholder texts shown while no real content exists yet.
const (
	PlaceholderFetching = "Querying models..."
	PlaceholderBlending = "Blending responses..."
)

// progressPlaceholder formats the blend progress line.
func progressPlaceholder(completed, total int, modelName string) string {
	var sb strings.Builder
	sb.WriteString(PlaceholderFetching)
	sb.WriteString(" (")
	sb.WriteString(strconv.Itoa(completed))
	sb.WriteString("/")
	sb.WriteString(strconv.Itoa(total))
	sb.WriteString(")\n[OK] ")
	sb.WriteString(modelName)
	sb.WriteString(" responded.")
	return sb.String()
}

// =============================================================================
// SNAPSHOT AND OPTIONS
// =============================================================================

// Snapshot is the state published to the consumer after each applied event.
// It is a value copy: safe to send across goroutines and render at any time.
type Snapshot struct {
	TurnClientID string
	Text         string
	Phase        Phase
}

// Options configures an Ingestor. All callbacks are optional and are invoked
// from the goroutine running the stream.
type Options struct {
	// OnUpdate receives a snapshot after every applied event. It must be
	// cheap; during fast streams it runs many times per second.
	OnUpdate func(Snapshot)

	// OnConversation fires when the server reveals a conversation identity
	// the turn did not have (completion metadata handed to the consumer
	// directly, never through shared globals).
	OnConversation func(conversationID string)

	// ResetIdle, when set, is called after every successful read so the
	// owner can re-arm its idle watchdog.
	ResetIdle func()

	// Logger receives skipped-record diagnostics. Defaults to log.Default().
	Logger *log.Logger
}

// =============================================================================
// INGESTOR
// =============================================================================

// Ingestor applies one answer stream to one turn.
type Ingestor struct {
	mode Mode
	turn *model.Turn
	opts Options

	decoder     FrameDecoder
	accumulated strings.Builder
	phase       Phase
	done        bool
}

// NewIngestor creates an ingestor bound to a turn.
func NewIngestor(mode Mode, turn *model.Turn, opts Options) *Ingestor {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Ingestor{
		mode: mode,
		turn: turn,
		opts: opts,
	}
}

// Phase returns the current stream phase.
func (ing *Ingestor) Phase() Phase {
	return ing.phase
}

// Finalized reports whether the terminal event has been applied.
func (ing *Ingestor) Finalized() bool {
	return ing.done
}

// AccumulatedText returns the running concatenation of content chunks since
// the last blend reset.
func (ing *Ingestor) AccumulatedText() string {
	return ing.accumulated.String()
}

// =============================================================================
// EVENT APPLICATION
// =============================================================================

// Apply applies one classified event to the turn. Events after the terminal
// one are ignored.
func (ing *Ingestor) Apply(ev Event) {
	if ing.done {
		return
	}

	switch e := ev.(type) {
	case ContentChunk:
		ing.accumulated.WriteString(e.Text)
		ing.turn.SetResponseText(ing.accumulated.String())
		ing.phase = PhaseStreaming

	case FetchingStatus:
		if ing.mode != ModeBlend {
			return
		}
		ing.turn.SetResponseText(PlaceholderFetching)
		ing.phase = PhaseFetching

	case ProgressStatus:
		if ing.mode != ModeBlend {
			return
		}
		ing.turn.SetResponseText(progressPlaceholder(e.Completed, e.Total, e.Model))
		ing.phase = PhaseProgress

	case BlendingStatus:
		if ing.mode != ModeBlend {
			return
		}
		// Content after this point starts a fresh answer; the placeholder
		// text shown so far must not leak into it.
		ing.accumulated.Reset()
		ing.turn.SetResponseText(PlaceholderBlending)
		ing.phase = PhaseBlending

	case Completion:
		final := e.BlendedResponse
		if final == "" {
			final = ing.accumulated.String()
		}
		newConversation := e.ConversationID != "" && ing.turn.ConversationID != e.ConversationID
		ing.turn.Commit(model.CompletionMeta{
			HistoryID:      e.HistoryID,
			ConversationID: e.ConversationID,
			FinalText:      final,
			Summary:        e.Summary,
			RoutingReason:  e.RoutingReason,
			Persona:        e.Persona,
		})
		ing.phase = PhaseDone
		ing.done = true
		if newConversation && ing.opts.OnConversation != nil {
			ing.opts.OnConversation(e.ConversationID)
		}
	}

	ing.notify()
}

// notify publishes the turn's current state to the consumer.
func (ing *Ingestor) notify() {
	if ing.opts.OnUpdate == nil {
		return
	}
	ing.opts.OnUpdate(Snapshot{
		TurnClientID: ing.turn.ClientID,
		Text:         ing.turn.ResponseText,
		Phase:        ing.phase,
	})
}

// ProcessChunk feeds one read chunk through the frame decoder and applies
// every completed record. Malformed records are logged and skipped; they
// never abort the stream.
func (ing *Ingestor) ProcessChunk(p []byte) error {
	for _, frame := range ing.decoder.Write(p) {
		payload, ok := FramePayload(frame)
		if !ok {
			continue
		}
		ev, err := DecodeEvent(payload)
		if err != nil {
			ing.opts.Logger.Printf("codebrain: skipping stream record: %v", err)
			continue
		}
		ing.Apply(ev)
		if ing.done {
			return nil
		}
	}
	if ing.decoder.Overflowed() {
		return errors.New("stream frame exceeds size limit")
	}
	return nil
}

// =============================================================================
// READ LOOP
// =============================================================================

// Run consumes the response body until the terminal event, end of input, or
// cancellation.
//
// End of input without a terminal event is a recoverable degraded state, not
// an error: the turn keeps whatever partial text it has and Run returns nil.
// Context cancellation is returned as ctx.Err() so the caller can tell a
// deliberate abort from a transport failure.
func (ing *Ingestor) Run(ctx context.Context, body io.Reader) error {
	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := body.Read(buf)
		if n > 0 {
			if ing.opts.ResetIdle != nil {
				ing.opts.ResetIdle()
			}
			if perr := ing.ProcessChunk(buf[:n]); perr != nil {
				return perr
			}
			if ing.done {
				return nil
			}
		}
		if err != nil {
			if err == io.EOF {
				// Premature close: keep the partial text, finish silently.
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
}

// Fail surfaces a transport failure on the turn: the fixed error notice is
// appended to whatever partial content exists (possibly none) and the
// session becomes terminal.
func (ing *Ingestor) Fail() {
	ing.turn.AppendErrorNotice()
	ing.phase = PhaseErrored
	ing.done = true
	ing.notify()
}
