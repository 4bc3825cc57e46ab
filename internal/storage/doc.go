// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists application state in a single SQLite
// database laid out as a key/value table. Sessions, the active
// selection, tuned model lists, and UI preferences each live under a
// well-known key as a JSON document. The package also exports sessions
// to markdown and JSON files.
package storage
