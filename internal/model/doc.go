// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and turns.
//
// The central type is Turn: one question/answer exchange. A turn is created
// client-side with a pending identity when the user submits a question, is
// mutated only by the stream ingestor while its answer streams in, and is
// committed to a server identity exactly once when the terminal stream event
// arrives. After commit only user actions (favorite, delete) touch it.
package model
