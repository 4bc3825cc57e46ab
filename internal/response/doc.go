// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package response turns the raw output of a finished generation into
// the final message fields: thinking-tag extraction, citation
// deduplication, project JSON parsing and merge, and attachment
// materialization for generated media. Everything here is pure; the
// orchestrator applies the result to the placeholder message.
package response
