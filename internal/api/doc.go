// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the CodeBrain API client: authentication,
// conversation management, and the streaming answer pipeline.
//
// Answer streams arrive as blank-line separated "data: {json}" records.
// FrameDecoder reassembles records from arbitrarily chunked reads,
// DecodeEvent classifies each record into a closed event set, and Ingestor
// applies events to a single turn in arrival order, handling blend-phase
// placeholders, finalization, and transport failure.
package api
