// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// The wire protocol discriminates stream records by which fields are present,
// not by an explicit type tag. DecodeEvent performs that classification once,
// turning the loose JSON into a closed set of event variants so downstream
// code never repeats ad hoc field checks.

// =============================================================================
// EVENT VARIANTS
// =============================================================================

// Event is a single classified record from the answer stream.
// The concrete types are ContentChunk, FetchingStatus, ProgressStatus,
// BlendingStatus and Completion.
type Event interface {
	// event is a marker method; the variant set is closed.
	event()
}

// ContentChunk carries one fragment of answer text.
type ContentChunk struct {
	Text string
}

// FetchingStatus signals that blend mode has started querying models.
type FetchingStatus struct{}

// ProgressStatus reports blend-mode per-model progress.
type ProgressStatus struct {
	Completed int
	Total     int
	Model     string
}

// BlendingStatus signals that the server is merging model answers. Content
// chunks after this point start a fresh answer.
type BlendingStatus struct{}

// Completion is the terminal event carrying server-assigned identity and
// metadata for the finished turn.
type Completion struct {
	ConversationID  string
	HistoryID       string
	BlendedResponse string
	Summary         string
	RoutingReason   string
	Persona         string
}

func (ContentChunk) event()   {}
func (FetchingStatus) event() {}
func (ProgressStatus) event() {}
func (BlendingStatus) event() {}
func (Completion) event()     {}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrUnclassifiedRecord indicates a syntactically valid record carrying
	// none of the known discriminant fields.
	ErrUnclassifiedRecord = errors.New("stream record carries no known field")

	// ErrUnknownStatus indicates a status value outside the blend phases.
	ErrUnknownStatus = errors.New("unknown stream status")
)

// =============================================================================
// WIRE DECODING
// =============================================================================

// wireRecord mirrors the loose JSON shape of a stream record. All fields are
// optional; presence is the discriminant.
type wireRecord struct {
	Chunk *string `json:"chunk"`

	Status    string `json:"status"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Model     string `json:"model"`

	Done            bool            `json:"done"`
	ConversationID  json.RawMessage `json:"conversation_id"`
	HistoryID       json.RawMessage `json:"history_id"`
	BlendedResponse string          `json:"blended_response"`
	Summary         string          `json:"summary"`
	RoutingReason   string          `json:"routing_reason"`
	Persona         string          `json:"persona"`
}

// DecodeEvent parses one record payload and classifies it.
//
// Classification follows the wire's field-presence rules: chunk, then status,
// then done. A record with none of the three is an error (the caller logs
// and skips it; one bad record never aborts the stream).
func DecodeEvent(payload []byte) (Event, error) {
	var rec wireRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("parse stream record: %w", err)
	}

	switch {
	case rec.Chunk != nil:
		// Presence classifies; an empty chunk is a valid no-op fragment.
		return ContentChunk{Text: *rec.Chunk}, nil

	case rec.Status != "":
		switch rec.Status {
		case "fetching":
			return FetchingStatus{}, nil
		case "progress":
			return ProgressStatus{Completed: rec.Completed, Total: rec.Total, Model: rec.Model}, nil
		case "blending":
			return BlendingStatus{}, nil
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, rec.Status)
		}

	case rec.Done:
		return Completion{
			ConversationID:  flexibleID(rec.ConversationID),
			HistoryID:       flexibleID(rec.HistoryID),
			BlendedResponse: rec.BlendedResponse,
			Summary:         rec.Summary,
			RoutingReason:   rec.RoutingReason,
			Persona:         rec.Persona,
		}, nil
	}

	return nil, ErrUnclassifiedRecord
}

// flexibleID normalizes an identifier the server may send as either a JSON
// number or a string.
func flexibleID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatInt(n, 10)
	}
	return ""
}
