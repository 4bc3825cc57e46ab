// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package genai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// SSE READER TESTS
// =============================================================================

func TestSSEReader_ReadEvent(t *testing.T) {
	input := "data: {\"a\":1}\n\ndata: {\"b\":2}\n\n"
	reader := NewSSEReader(strings.NewReader(input))

	_, data, err := reader.ReadEvent()
	if err != nil {
		t.Fatalf("first ReadEvent: %v", err)
	}
	if string(data) != `{"a":1}` {
		t.Errorf("first event = %q", data)
	}

	_, data, err = reader.ReadEvent()
	if err != nil {
		t.Fatalf("second ReadEvent: %v", err)
	}
	if string(data) != `{"b":2}` {
		t.Errorf("second event = %q", data)
	}

	_, _, err = reader.ReadEvent()
	if err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestSSEReader_MultilineData(t *testing.T) {
	input := "event: message\ndata: line1\ndata: line2\n\n"
	reader := NewSSEReader(strings.NewReader(input))

	eventType, data, err := reader.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent: %v", err)
	}
	if eventType != "message" {
		t.Errorf("eventType = %q", eventType)
	}
	if string(data) != "line1\nline2" {
		t.Errorf("data = %q", data)
	}
}

func TestSSEReader_IgnoresComments(t *testing.T) {
	input := ": keepalive\nid: 7\ndata: hello\n\n"
	reader := NewSSEReader(strings.NewReader(input))

	_, data, err := reader.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("data = %q", data)
	}
}

// =============================================================================
// STREAMING TESTS
// =============================================================================

func sseChunk(text string) string {
	return fmt.Sprintf(`data: {"candidates":[{"content":{"parts":[{"text":%q}]}}]}`+"\n\n", text)
}

func TestChatStream_PullsChunks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":streamGenerateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseChunk("Hello"))
		io.WriteString(w, sseChunk(", world"))
		io.WriteString(w, `data: {"candidates":[{"content":{"parts":[{"text":"!"}]},"finishReason":"STOP"}],"usageMetadata":{"totalTokenCount":12}}`+"\n\n")
	}))
	defer server.Close()

	client := NewClient("test-key").WithBaseURL(server.URL)
	stream, err := client.ChatStream(context.Background(), "gemini-2.5-flash", &GenerateRequest{
		Contents: []Content{{Role: "user", Parts: []Part{{Text: "hi"}}}},
	})
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}
	defer stream.Close()

	var text string
	var finish string
	var total int
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		text += chunk.TextDelta
		if chunk.FinishReason != "" {
			finish = chunk.FinishReason
		}
		if chunk.Usage != nil {
			total = chunk.Usage.TotalTokenCount
		}
	}

	if text != "Hello, world!" {
		t.Errorf("text = %q", text)
	}
	if finish != "STOP" {
		t.Errorf("finishReason = %q", finish)
	}
	if total != 12 {
		t.Errorf("totalTokenCount = %d", total)
	}
	if stream.Partial() != "Hello, world!" {
		t.Errorf("Partial = %q", stream.Partial())
	}
}

func TestChatStream_SeparatesThoughtParts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, `data: {"candidates":[{"content":{"parts":[{"text":"pondering","thought":true},{"text":"answer"}]}}]}`+"\n\n")
	}))
	defer server.Close()

	client := NewClient("k").WithBaseURL(server.URL)
	stream, err := client.ChatStream(context.Background(), "gemini-2.5-pro", &GenerateRequest{})
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()

	chunk, err := stream.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if chunk.ThoughtDelta != "pondering" {
		t.Errorf("ThoughtDelta = %q", chunk.ThoughtDelta)
	}
	if chunk.TextDelta != "answer" {
		t.Errorf("TextDelta = %q", chunk.TextDelta)
	}
}

func TestChatStream_ContextCancel(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseChunk("partial"))
		w.(http.Flusher).Flush()
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	client := NewClient("k").WithBaseURL(server.URL)
	stream, err := client.ChatStream(ctx, "gemini-2.5-flash", &GenerateRequest{})
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()

	chunk, err := stream.Recv()
	if err != nil {
		t.Fatalf("first Recv: %v", err)
	}
	if chunk.TextDelta != "partial" {
		t.Errorf("TextDelta = %q", chunk.TextDelta)
	}

	cancel()
	_, err = stream.Recv()
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Recv after cancel = %v, want context.Canceled", err)
	}
	if !IsAborted(err) {
		t.Error("IsAborted should report true for context.Canceled")
	}
}

func TestChatStream_NotConfigured(t *testing.T) {
	client := NewClient("")
	_, err := client.ChatStream(context.Background(), "gemini-2.5-flash", &GenerateRequest{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}

// =============================================================================
// ERROR MAPPING TESTS
// =============================================================================

func TestHandleErrorResponse(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"auth", 401, `{"error":{"code":401,"status":"UNAUTHENTICATED","message":"bad key"}}`, ErrAuthFailed},
		{"forbidden", 403, `{}`, ErrAuthFailed},
		{"not found", 404, `{"error":{"message":"no such model"}}`, ErrModelNotFound},
		{"rate limited", 429, `{"error":{"message":"slow down"}}`, ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := handleErrorResponse(tt.status, []byte(tt.body))
			if !errors.Is(err, tt.want) {
				t.Errorf("handleErrorResponse(%d) = %v, want %v", tt.status, err, tt.want)
			}
		})
	}
}

func TestHandleErrorResponse_ServerError(t *testing.T) {
	err := handleErrorResponse(500, []byte(`{"error":{"code":500,"status":"INTERNAL","message":"boom"}}`))
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != 500 || apiErr.Code != "INTERNAL" {
		t.Errorf("APIError = %+v", apiErr)
	}
	if !isRetryable(err) {
		t.Error("5xx should be retryable")
	}
	if isRetryable(handleErrorResponse(400, []byte(`{"error":{"message":"bad"}}`))) {
		t.Error("4xx should not be retryable")
	}
}

// =============================================================================
// IMAGE / VIDEO / TOKEN TESTS
// =============================================================================

func TestGenerateImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "imagen-4.0-generate-001:predict") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		io.WriteString(w, `{"predictions":[{"bytesBase64Encoded":"aW1n","mimeType":"image/png"}]}`)
	}))
	defer server.Close()

	client := NewClient("k").WithBaseURL(server.URL)
	img, err := client.GenerateImage(context.Background(), "imagen-4.0-generate-001", "a red fox", nil)
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if img.Data != "aW1n" || img.MimeType != "image/png" {
		t.Errorf("image = %+v", img)
	}
}

func TestGenerateImage_NoPredictions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"predictions":[]}`)
	}))
	defer server.Close()

	client := NewClient("k").WithBaseURL(server.URL)
	_, err := client.GenerateImage(context.Background(), "imagen-4.0-generate-001", "x", nil)
	if !errors.Is(err, ErrNoResult) {
		t.Errorf("err = %v, want ErrNoResult", err)
	}
}

func TestEditImage_ReturnsInlinePart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"here you go"},{"inlineData":{"mimeType":"image/png","data":"ZWRpdGVk"}}]}}]}`)
	}))
	defer server.Close()

	client := NewClient("k").WithBaseURL(server.URL)
	img, err := client.EditImage(context.Background(), "gemini-2.0-flash-preview-image-generation", "make it blue",
		[]InlineData{{MimeType: "image/png", Data: "b3JpZw=="}})
	if err != nil {
		t.Fatalf("EditImage: %v", err)
	}
	if img.Data != "ZWRpdGVk" {
		t.Errorf("edited image data = %q", img.Data)
	}
}

func TestGenerateVideo_LongPoll(t *testing.T) {
	polls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, ":predictLongRunning"):
			io.WriteString(w, `{"name":"operations/op-123","done":false}`)
		case strings.Contains(r.URL.Path, "operations/op-123"):
			polls++
			if polls < 2 {
				io.WriteString(w, `{"name":"operations/op-123","done":false}`)
				return
			}
			io.WriteString(w, `{"name":"operations/op-123","done":true,"response":{"generateVideoResponse":{"generatedSamples":[{"video":{"uri":"https://example.com/v.mp4","mimeType":"video/mp4"}}]}}}`)
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewClient("k").WithBaseURL(server.URL).WithPollInterval(time.Millisecond)
	video, err := client.GenerateVideo(context.Background(), "veo-2.0-generate-001", "a sunrise", nil)
	if err != nil {
		t.Fatalf("GenerateVideo: %v", err)
	}
	if video.URI != "https://example.com/v.mp4" {
		t.Errorf("URI = %q", video.URI)
	}
	if polls < 2 {
		t.Errorf("polls = %d, want >= 2", polls)
	}
}

func TestGenerateVideo_ImageSeed(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, ":predictLongRunning") {
			body, _ := io.ReadAll(r.Body)
			gotBody = string(body)
			io.WriteString(w, `{"name":"operations/op-7","done":true,"response":{"generateVideoResponse":{"generatedSamples":[{"video":{"uri":"https://example.com/seed.mp4"}}]}}}`)
			return
		}
		t.Errorf("unexpected path %q", r.URL.Path)
	}))
	defer server.Close()

	client := NewClient("k").WithBaseURL(server.URL)
	_, err := client.GenerateVideo(context.Background(), "veo-2.0-generate-001", "animate this",
		&InlineData{MimeType: "image/png", Data: "c2VlZA=="})
	if err != nil {
		t.Fatalf("GenerateVideo: %v", err)
	}
	if !strings.Contains(gotBody, `"image":{"mimeType":"image/png","data":"c2VlZA=="}`) {
		t.Errorf("request body missing image seed: %s", gotBody)
	}
}

func TestGenerateVideo_CancelDuringPoll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"name":"operations/op-9","done":false}`)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client := NewClient("k").WithBaseURL(server.URL).WithPollInterval(50 * time.Millisecond)

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := client.GenerateVideo(ctx, "veo-2.0-generate-001", "x", nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestTranscribeAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"  hello from the clip  "}]}}]}`)
	}))
	defer server.Close()

	client := NewClient("k").WithBaseURL(server.URL)
	text, err := client.TranscribeAudio(context.Background(), "gemini-2.5-flash",
		InlineData{MimeType: "audio/wav", Data: "YXVkaW8="})
	if err != nil {
		t.Fatalf("TranscribeAudio: %v", err)
	}
	if text != "hello from the clip" {
		t.Errorf("transcript = %q", text)
	}
}

func TestCountTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"totalTokens":42}`)
	}))
	defer server.Close()

	client := NewClient("k").WithBaseURL(server.URL)
	n, err := client.CountTokens(context.Background(), "gemini-2.5-flash",
		[]Content{{Role: "user", Parts: []Part{{Text: "count me"}}}})
	if err != nil {
		t.Fatalf("CountTokens: %v", err)
	}
	if n != 42 {
		t.Errorf("totalTokens = %d, want 42", n)
	}
}

func TestDoJSON_ZeroRetriesStillSends(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		io.WriteString(w, `{"totalTokens":7}`)
	}))
	defer server.Close()

	client := NewClient("k").WithBaseURL(server.URL).WithMaxRetries(0)
	n, err := client.CountTokens(context.Background(), "gemini-2.5-flash", nil)
	if err != nil {
		t.Fatalf("CountTokens with zero retries: %v", err)
	}
	if n != 7 || attempts != 1 {
		t.Errorf("n = %d, attempts = %d, want 7 and 1", n, attempts)
	}
}

func TestDoJSON_RetriesServerError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(500)
			io.WriteString(w, `{"error":{"message":"transient"}}`)
			return
		}
		io.WriteString(w, `{"totalTokens":1}`)
	}))
	defer server.Close()

	client := NewClient("k").WithBaseURL(server.URL)
	n, err := client.CountTokens(context.Background(), "gemini-2.5-flash", nil)
	if err != nil {
		t.Fatalf("CountTokens after retry: %v", err)
	}
	if n != 1 || attempts != 2 {
		t.Errorf("n = %d, attempts = %d", n, attempts)
	}
}
