// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions, messages,
// attachments and the model registry.
//
// A Session is an ordered list of Messages plus an optional code-interpreter
// Project. A MODEL message is created as a streaming placeholder alongside
// its USER message and mutated in place: incrementally while chunks arrive,
// then exactly once at finalization.
package model
