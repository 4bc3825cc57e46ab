// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session manages the set of chat sessions and the active
// selection. Reads hand out deep copies and writes go through Update,
// which clones, mutates, and swaps, so a renderer holding a snapshot
// never races an in-flight send. Sessions without messages are treated
// as scratch state: they are pruned on switch-away and never persisted.
package session
