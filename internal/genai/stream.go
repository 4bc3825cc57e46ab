// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package genai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// MaxChunkSize is the maximum allowed size for a single SSE event.
const MaxChunkSize = 1024 * 1024

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a stream.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{
		reader: bufio.NewReader(r),
	}
}

// ReadEvent reads the next SSE event from the stream and returns the
// event type and data. Returns io.EOF when the stream ends.
func (s *SSEReader) ReadEvent() (string, []byte, error) {
	var eventType string
	var dataLines [][]byte
	var total int

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				if len(dataLines) > 0 {
					return eventType, bytes.Join(dataLines, []byte("\n")), nil
				}
				return "", nil, io.EOF
			}
			return "", nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Empty line signals end of event
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		switch {
		case bytes.HasPrefix(line, []byte("event:")):
			eventType = string(bytes.TrimSpace(line[6:]))
		case bytes.HasPrefix(line, []byte("data:")):
			data := bytes.TrimSpace(line[5:])
			total += len(data)
			if total > MaxChunkSize {
				return "", nil, fmt.Errorf("SSE event too large: %d bytes", total)
			}
			dataLines = append(dataLines, data)
		}
		// Ignore other fields (id:, retry:, comments starting with :)
	}
}

// =============================================================================
// PULL-BASED STREAM
// =============================================================================

// Stream is an open streaming generation. The caller drives it by
// calling Recv until it returns io.EOF or another error, then Close.
// Cancelling the request context aborts the stream; Recv then returns
// the context's error.
type Stream struct {
	ctx    context.Context
	body   io.ReadCloser
	reader *SSEReader

	partial strings.Builder
	done    bool
}

// Recv returns the next chunk of the stream. It returns io.EOF when the
// model has finished, and wraps mid-stream failures in a StreamError
// that carries the text received so far.
func (s *Stream) Recv() (StreamChunk, error) {
	if s.done {
		return StreamChunk{}, io.EOF
	}

	for {
		select {
		case <-s.ctx.Done():
			s.done = true
			return StreamChunk{}, s.ctx.Err()
		default:
		}

		_, data, err := s.reader.ReadEvent()
		if err != nil {
			s.done = true
			if err == io.EOF {
				return StreamChunk{}, io.EOF
			}
			if s.ctx.Err() != nil {
				return StreamChunk{}, s.ctx.Err()
			}
			return StreamChunk{}, &StreamError{Partial: s.partial.String(), Err: err}
		}

		if bytes.Equal(data, []byte("[DONE]")) {
			s.done = true
			return StreamChunk{}, io.EOF
		}

		var resp GenerateResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			// Skip malformed chunks
			continue
		}

		chunk := flattenResponse(&resp)
		s.partial.WriteString(chunk.TextDelta)
		if chunk.FinishReason != "" {
			s.done = true
		}
		return chunk, nil
	}
}

// Partial returns the visible text received so far.
func (s *Stream) Partial() string {
	return s.partial.String()
}

// Close releases the underlying connection. Safe to call more than once.
func (s *Stream) Close() error {
	s.done = true
	return s.body.Close()
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// ChatStream opens a streaming generateContent call and returns the
// stream. The caller must Close the stream when done reading.
func (c *Client) ChatStream(ctx context.Context, modelID string, req *GenerateRequest) (*Stream, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", c.baseURL, modelID)

	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	resp, err := sharedStreamingClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		resp.Body.Close()
		return nil, handleErrorResponse(resp.StatusCode, body)
	}

	return &Stream{
		ctx:    ctx,
		body:   resp.Body,
		reader: NewSSEReader(resp.Body),
	}, nil
}

// Collect drains a stream and returns the aggregated result. Used by
// callers that want streaming transport without incremental display.
func Collect(s *Stream) (StreamChunk, error) {
	defer s.Close()

	var agg StreamChunk
	for {
		chunk, err := s.Recv()
		if err == io.EOF {
			return agg, nil
		}
		if err != nil {
			return agg, err
		}
		agg.TextDelta += chunk.TextDelta
		agg.ThoughtDelta += chunk.ThoughtDelta
		agg.InlineParts = append(agg.InlineParts, chunk.InlineParts...)
		agg.GroundingChunks = append(agg.GroundingChunks, chunk.GroundingChunks...)
		if chunk.FinishReason != "" {
			agg.FinishReason = chunk.FinishReason
		}
		if chunk.Usage != nil {
			agg.Usage = chunk.Usage
		}
	}
}
