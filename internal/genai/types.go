// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package genai

// =============================================================================
// REQUEST WIRE TYPES
// =============================================================================

// Part is one piece of a content turn: text or inline binary data.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
	Thought    bool        `json:"thought,omitempty"`
}

// InlineData carries base64-encoded binary content with its MIME type.
type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Content is a single conversation turn with its role.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// ThinkingConfig controls the model's reasoning token budget.
// A budget of 0 disables visible thinking; -1 lets the model decide.
type ThinkingConfig struct {
	ThinkingBudget  int  `json:"thinkingBudget"`
	IncludeThoughts bool `json:"includeThoughts,omitempty"`
}

// GenerationConfig holds per-request sampling and output settings.
type GenerationConfig struct {
	Temperature        *float64        `json:"temperature,omitempty"`
	TopP               *float64        `json:"topP,omitempty"`
	MaxOutputTokens    int             `json:"maxOutputTokens,omitempty"`
	ResponseMimeType   string          `json:"responseMimeType,omitempty"`
	ResponseModalities []string        `json:"responseModalities,omitempty"`
	ThinkingConfig     *ThinkingConfig `json:"thinkingConfig,omitempty"`
}

// Tool enables a built-in capability for a request. Exactly one field
// is set per tool entry.
type Tool struct {
	GoogleSearch  *struct{} `json:"googleSearch,omitempty"`
	CodeExecution *struct{} `json:"codeExecution,omitempty"`
}

// GenerateRequest is the body of a generateContent call.
type GenerateRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
	Tools             []Tool            `json:"tools,omitempty"`
}

// =============================================================================
// RESPONSE WIRE TYPES
// =============================================================================

// GroundingChunk is one search-grounding source attached to a response.
type GroundingChunk struct {
	Web *WebSource `json:"web,omitempty"`
}

// WebSource identifies a grounded web page.
type WebSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// GroundingMetadata carries the grounding sources for a candidate.
type GroundingMetadata struct {
	GroundingChunks []GroundingChunk `json:"groundingChunks,omitempty"`
}

// Candidate is one generated answer within a response.
type Candidate struct {
	Content           Content            `json:"content"`
	FinishReason      string             `json:"finishReason,omitempty"`
	GroundingMetadata *GroundingMetadata `json:"groundingMetadata,omitempty"`
}

// UsageMetadata reports token accounting for a request.
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	ThoughtsTokenCount   int `json:"thoughtsTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// GenerateResponse is one generateContent response, or one SSE chunk of
// a streaming response.
type GenerateResponse struct {
	Candidates    []Candidate    `json:"candidates"`
	UsageMetadata *UsageMetadata `json:"usageMetadata,omitempty"`
	ModelVersion  string         `json:"modelVersion,omitempty"`
}

// apiErrorResponse is the wire shape of an error body.
type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// =============================================================================
// STREAM CHUNK
// =============================================================================

// StreamChunk is one decoded unit from a streaming response, flattened
// for consumption by the orchestrator.
type StreamChunk struct {
	// TextDelta is the visible text carried by this chunk.
	TextDelta string

	// ThoughtDelta is reasoning text, present when thinking is enabled
	// and the model emits thought parts.
	ThoughtDelta string

	// InlineParts carries any binary parts (edited images) in the chunk.
	InlineParts []InlineData

	// GroundingChunks carries search sources attached to this chunk.
	GroundingChunks []GroundingChunk

	// FinishReason is non-empty on the final chunk of a candidate.
	FinishReason string

	// Usage is the token accounting, present on the final chunk.
	Usage *UsageMetadata
}

// flattenResponse converts a wire response into a StreamChunk.
func flattenResponse(resp *GenerateResponse) StreamChunk {
	chunk := StreamChunk{Usage: resp.UsageMetadata}
	if len(resp.Candidates) == 0 {
		return chunk
	}
	cand := resp.Candidates[0]
	chunk.FinishReason = cand.FinishReason
	for _, part := range cand.Content.Parts {
		switch {
		case part.Thought:
			chunk.ThoughtDelta += part.Text
		case part.InlineData != nil:
			chunk.InlineParts = append(chunk.InlineParts, *part.InlineData)
		default:
			chunk.TextDelta += part.Text
		}
	}
	if cand.GroundingMetadata != nil {
		chunk.GroundingChunks = cand.GroundingMetadata.GroundingChunks
	}
	return chunk
}

// =============================================================================
// MEDIA TYPES
// =============================================================================

// GeneratedImage is one image produced by an image model.
type GeneratedImage struct {
	MimeType string
	Data     string // base64
}

// GeneratedVideo is one video produced by the long-poll video API.
type GeneratedVideo struct {
	MimeType string
	URI      string
	Data     string // base64, when the API inlines the result
}
