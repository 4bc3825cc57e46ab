// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable view components for the rexpro TUI:
// message rendering, the status bar, and the project file tree panel. All
// components are pure renderers over the core types; none of them mutate
// application state.
package components
