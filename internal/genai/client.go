// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package genai

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Configuration constants for the generative API.
const (
	// DefaultBaseURL is the base URL for the generative language API.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultTimeout is the default timeout for non-streaming requests.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for transient errors.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay is the maximum delay for exponential backoff.
	retryMaxDelay = 10 * time.Second

	// videoPollInterval is how often the long-poll video loop checks the
	// operation status.
	videoPollInterval = 10 * time.Second

	// MaxResponseSize caps response bodies to prevent memory exhaustion.
	MaxResponseSize = 32 * 1024 * 1024
)

var (
	// Shared HTTP client with connection pooling for non-streaming requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient is used for streaming requests. No timeout:
	// lifetime is controlled via the request context.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
)

// =============================================================================
// CLIENT
// =============================================================================

// Client is a client for the generative language API.
type Client struct {
	apiKey     string
	baseURL    string
	maxRetries int
	pollEvery  time.Duration
}

// NewClient creates a client with the given API key. An empty key is
// allowed; requests then fail with ErrNotConfigured.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    DefaultBaseURL,
		maxRetries: DefaultMaxRetries,
		pollEvery:  videoPollInterval,
	}
}

// WithBaseURL sets a custom base URL for the API.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// WithMaxRetries sets the maximum number of retry attempts.
func (c *Client) WithMaxRetries(maxRetries int) *Client {
	c.maxRetries = maxRetries
	return c
}

// WithPollInterval sets the long-poll interval for video operations.
func (c *Client) WithPollInterval(d time.Duration) *Client {
	c.pollEvery = d
	return c
}

// IsConfigured returns true if the client has an API key configured.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)
	req.Header.Set("User-Agent", "rexpro/0.3.0")
}

// logRequest logs an API request without the key header or body.
func (c *Client) logRequest(req *http.Request) {
	log.Printf("API Request: %s %s", req.Method, req.URL.Path)
}

func (c *Client) logResponse(resp *http.Response, duration time.Duration) {
	log.Printf("API Response: %d %s (%v)", resp.StatusCode, resp.Status, duration)
}

// calculateBackoff returns the delay to wait before the next retry.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<uint(attempt))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}

// readResponse reads the response body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// handleErrorResponse converts HTTP error responses to typed errors.
func handleErrorResponse(statusCode int, body []byte) error {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		wrapped := &APIError{
			Status:  statusCode,
			Code:    apiErr.Error.Status,
			Message: apiErr.Error.Message,
		}
		switch statusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrAuthFailed, wrapped.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrModelNotFound, wrapped.Message)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ErrRateLimited, wrapped.Message)
		default:
			return wrapped
		}
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuthFailed
	case http.StatusNotFound:
		return ErrModelNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return &APIError{Status: statusCode, Message: string(body)}
	}
}

// doJSON performs a POST with retry and decodes the response into out.
func (c *Client) doJSON(ctx context.Context, url string, in, out any) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}

	bodyBytes, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	// maxRetries counts retries on top of the initial attempt.
	attempts := c.maxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.calculateBackoff(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		c.setHeaders(req)
		c.logRequest(req)

		start := time.Now()
		resp, err := sharedHTTPClient.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}
		c.logResponse(resp, time.Since(start))

		body, err := readResponse(resp)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			apiErr := handleErrorResponse(resp.StatusCode, body)
			if isRetryable(apiErr) {
				lastErr = apiErr
				continue
			}
			return apiErr
		}

		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		return nil
	}
	if lastErr == nil {
		lastErr = errors.New("no attempt completed")
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// =============================================================================
// NON-STREAMING GENERATION
// =============================================================================

// Generate performs a non-streaming generateContent call.
func (c *Client) Generate(ctx context.Context, modelID string, req *GenerateRequest) (*GenerateResponse, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, modelID)
	var resp GenerateResponse
	if err := c.doJSON(ctx, url, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// =============================================================================
// IMAGE GENERATION
// =============================================================================

// ImageOptions tunes text-to-image generation. The zero value requests
// a single image with model defaults.
type ImageOptions struct {
	Count            int
	NegativePrompt   string
	Seed             int64
	AspectRatio      string
	PersonGeneration string
}

type imagePredictRequest struct {
	Instances []struct {
		Prompt string `json:"prompt"`
	} `json:"instances"`
	Parameters struct {
		SampleCount      int    `json:"sampleCount"`
		NegativePrompt   string `json:"negativePrompt,omitempty"`
		Seed             int64  `json:"seed,omitempty"`
		AspectRatio      string `json:"aspectRatio,omitempty"`
		PersonGeneration string `json:"personGeneration,omitempty"`
	} `json:"parameters"`
}

type imagePredictResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MimeType           string `json:"mimeType"`
	} `json:"predictions"`
}

// GenerateImage produces an image from a text prompt via the predict
// endpoint of a text-to-image model. opts may be nil.
func (c *Client) GenerateImage(ctx context.Context, modelID, prompt string, opts *ImageOptions) (*GeneratedImage, error) {
	url := fmt.Sprintf("%s/models/%s:predict", c.baseURL, modelID)

	var req imagePredictRequest
	req.Instances = append(req.Instances, struct {
		Prompt string `json:"prompt"`
	}{Prompt: prompt})
	req.Parameters.SampleCount = 1
	if opts != nil {
		if opts.Count > 0 {
			req.Parameters.SampleCount = opts.Count
		}
		req.Parameters.NegativePrompt = opts.NegativePrompt
		req.Parameters.Seed = opts.Seed
		req.Parameters.AspectRatio = opts.AspectRatio
		req.Parameters.PersonGeneration = opts.PersonGeneration
	}

	var resp imagePredictResponse
	if err := c.doJSON(ctx, url, &req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Predictions) == 0 {
		return nil, fmt.Errorf("%w: image predict returned no predictions", ErrNoResult)
	}

	pred := resp.Predictions[0]
	mime := pred.MimeType
	if mime == "" {
		mime = "image/png"
	}
	return &GeneratedImage{MimeType: mime, Data: pred.BytesBase64Encoded}, nil
}

// EditImage sends the prompt plus input images to an image-editing model
// and returns the first image part of the response.
func (c *Client) EditImage(ctx context.Context, modelID, prompt string, images []InlineData) (*GeneratedImage, error) {
	parts := []Part{{Text: prompt}}
	for i := range images {
		parts = append(parts, Part{InlineData: &images[i]})
	}
	req := &GenerateRequest{
		Contents: []Content{{Role: "user", Parts: parts}},
		GenerationConfig: &GenerationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
		},
	}

	resp, err := c.Generate(ctx, modelID, req)
	if err != nil {
		return nil, err
	}
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil {
				return &GeneratedImage{
					MimeType: part.InlineData.MimeType,
					Data:     part.InlineData.Data,
				}, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: edit returned no image part", ErrNoResult)
}

// =============================================================================
// VIDEO GENERATION (LONG POLL)
// =============================================================================

type videoOperation struct {
	Name     string `json:"name"`
	Done     bool   `json:"done"`
	Error    *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI                string `json:"uri"`
					BytesBase64Encoded string `json:"bytesBase64Encoded"`
					MimeType           string `json:"mimeType"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response,omitempty"`
}

type videoPredictRequest struct {
	Instances []struct {
		Prompt string      `json:"prompt"`
		Image  *InlineData `json:"image,omitempty"`
	} `json:"instances"`
	Parameters struct {
		SampleCount int `json:"sampleCount"`
	} `json:"parameters"`
}

// GenerateVideo starts a long-running video generation and polls the
// operation until it completes or ctx is cancelled. image, when non-nil,
// seeds an image-to-video generation.
func (c *Client) GenerateVideo(ctx context.Context, modelID, prompt string, image *InlineData) (*GeneratedVideo, error) {
	startURL := fmt.Sprintf("%s/models/%s:predictLongRunning", c.baseURL, modelID)

	var req videoPredictRequest
	req.Instances = append(req.Instances, struct {
		Prompt string      `json:"prompt"`
		Image  *InlineData `json:"image,omitempty"`
	}{Prompt: prompt, Image: image})
	req.Parameters.SampleCount = 1

	var op videoOperation
	if err := c.doJSON(ctx, startURL, &req, &op); err != nil {
		return nil, err
	}
	if op.Name == "" {
		return nil, fmt.Errorf("%w: video start returned no operation name", ErrNoResult)
	}

	for !op.Done {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollEvery):
		}
		if err := c.getOperation(ctx, op.Name, &op); err != nil {
			return nil, err
		}
	}

	if op.Error != nil {
		return nil, &APIError{Status: op.Error.Code, Message: op.Error.Message}
	}
	if op.Response == nil || len(op.Response.GenerateVideoResponse.GeneratedSamples) == 0 {
		return nil, fmt.Errorf("%w: video operation completed with no samples", ErrNoResult)
	}

	video := op.Response.GenerateVideoResponse.GeneratedSamples[0].Video
	mime := video.MimeType
	if mime == "" {
		mime = "video/mp4"
	}
	return &GeneratedVideo{MimeType: mime, URI: video.URI, Data: video.BytesBase64Encoded}, nil
}

// getOperation fetches the current state of a long-running operation.
func (c *Client) getOperation(ctx context.Context, name string, out *videoOperation) error {
	url := fmt.Sprintf("%s/%s", c.baseURL, strings.TrimPrefix(name, "/"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return handleErrorResponse(resp.StatusCode, body)
	}
	return json.Unmarshal(body, out)
}

// =============================================================================
// TOKEN COUNTING
// =============================================================================

type countTokensRequest struct {
	Contents []Content `json:"contents"`
}

type countTokensResponse struct {
	TotalTokens int `json:"totalTokens"`
}

// CountTokens returns the exact token count for the given contents.
func (c *Client) CountTokens(ctx context.Context, modelID string, contents []Content) (int, error) {
	url := fmt.Sprintf("%s/models/%s:countTokens", c.baseURL, modelID)
	var resp countTokensResponse
	if err := c.doJSON(ctx, url, &countTokensRequest{Contents: contents}, &resp); err != nil {
		return 0, err
	}
	return resp.TotalTokens, nil
}

// =============================================================================
// AUDIO TRANSCRIPTION
// =============================================================================

// TranscribeAudio sends an audio clip to a chat model and returns the
// transcript text.
func (c *Client) TranscribeAudio(ctx context.Context, modelID string, audio InlineData) (string, error) {
	req := &GenerateRequest{
		Contents: []Content{{
			Role: "user",
			Parts: []Part{
				{Text: "Transcribe this audio verbatim. Return only the transcript."},
				{InlineData: &audio},
			},
		}},
	}

	resp, err := c.Generate(ctx, modelID, req)
	if err != nil {
		return "", err
	}
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				return strings.TrimSpace(part.Text), nil
			}
		}
	}
	return "", fmt.Errorf("%w: transcription returned no text", ErrNoResult)
}
