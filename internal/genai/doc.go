// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package genai implements the HTTP client for the generative language
// API: streaming chat over SSE, image generation and editing, long-poll
// video generation, token counting, and audio transcription.
//
// Streaming is pull-based. ChatStream returns a *Stream whose Recv
// method yields one chunk at a time; the caller owns the read loop and
// stops it by cancelling the request context or closing the stream.
package genai
