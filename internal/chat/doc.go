// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the request orchestrator: it owns the single-flight
// send loop, streams model output into the placeholder message, and
// applies the post-processed result to the session store. One send is
// in flight at a time; Stop aborts it and the partial text survives
// with a stopped notice.
package chat
