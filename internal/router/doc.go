// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package router decides what kind of request a send becomes. The
// Selector tracks the active generation mode, tool toggles, and model
// selection; Build snapshots that state plus the prompt into an
// immutable Request consumed by the orchestrator. Mutations after
// Build never affect an in-flight send.
package router
