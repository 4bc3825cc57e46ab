// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rexcorp1/rexpro-ai/internal/project"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleModel:
		return "Model"
	default:
		return string(r)
	}
}

// =============================================================================
// ATTACHMENT TYPE
// =============================================================================

// Attachment is an immutable media value carried by a message. DataURL is a
// self-contained base64 data URI; identity is position within the message.
type Attachment struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	DataURL  string `json:"dataUrl"`
}

// NewAttachment builds an attachment from raw base64 payload data.
func NewAttachment(name, mimeType, base64Data string) Attachment {
	return Attachment{
		Name:     name,
		MimeType: mimeType,
		DataURL:  "data:" + mimeType + ";base64," + base64Data,
	}
}

// LoadAttachment reads a file into an attachment, inferring the mime
// type from its extension.
func LoadAttachment(path string) (Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("read attachment: %w", err)
	}
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	} else if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = mimeType[:idx]
	}
	return NewAttachment(filepath.Base(path), mimeType, base64.StdEncoding.EncodeToString(data)), nil
}

// Base64Data returns the base64 payload portion of the data URI, or the
// whole DataURL if it is not in data-URI form.
func (a Attachment) Base64Data() string {
	if idx := strings.Index(a.DataURL, ";base64,"); idx >= 0 {
		return a.DataURL[idx+len(";base64,"):]
	}
	return a.DataURL
}

// IsImage reports whether the attachment carries an image mime type.
func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.MimeType, "image/")
}

// =============================================================================
// CITATION TYPE
// =============================================================================

// Citation is a grounding source reference returned alongside a
// search-augmented response.
type Citation struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a session.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Content
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`

	// Reasoning extracted from a thinking block at finalization.
	Reasoning string `json:"reasoning,omitempty"`

	// IsThinking is true from placeholder creation until finalization.
	IsThinking bool `json:"isThinking"`

	// Project fields, set when a code-interpreter response merged files.
	ProjectFilesUpdate bool             `json:"projectFilesUpdate,omitempty"`
	Project            *project.Project `json:"project,omitempty"`

	// Grounding citations (deduplicated at finalization).
	Citations []Citation `json:"groundingChunks,omitempty"`

	// Token statistics
	TokenCount int `json:"tokenCount,omitempty"`

	// Streaming accumulator (not persisted). strings.Builder avoids
	// quadratic allocations during token-by-token growth.
	streamContent strings.Builder
}

// NewUserMessage creates a user message with content and attachments.
func NewUserMessage(content string, attachments []Attachment) *Message {
	return &Message{
		ID:          generateMessageID(),
		Role:        RoleUser,
		Content:     content,
		Attachments: attachments,
		Timestamp:   time.Now(),
	}
}

// NewModelPlaceholder creates the streaming MODEL placeholder paired with a
// user message. thinking marks modes whose responses are long-running or
// carry visible reasoning.
func NewModelPlaceholder(thinking bool) *Message {
	return &Message{
		ID:         generateMessageID(),
		Role:       RoleModel,
		Timestamp:  time.Now(),
		IsThinking: thinking,
	}
}

// AppendDelta appends a streamed text delta to the placeholder accumulator.
// No-op once the message has been finalized.
func (m *Message) AppendDelta(delta string) {
	if m.IsThinking {
		m.streamContent.WriteString(delta)
	}
}

// StreamedContent returns everything accumulated so far.
func (m *Message) StreamedContent() string {
	return m.streamContent.String()
}

// DisplayContent returns the content to render: the live accumulator while
// streaming, the final content otherwise.
func (m *Message) DisplayContent() string {
	if m.IsThinking && m.streamContent.Len() > 0 {
		return m.streamContent.String()
	}
	return m.Content
}

// SetContent replaces the visible content. Used for the incremental echo
// during plain-chat streaming and for terminal stopped/error notices.
func (m *Message) SetContent(content string) {
	m.Content = content
}

// Finalize applies the post-processed fields and ends the thinking state.
// Nil slices leave the corresponding field untouched.
func (m *Message) Finalize(content, reasoning string, attachments []Attachment, citations []Citation, proj *project.Project, filesUpdated bool) {
	m.Content = content
	m.Reasoning = reasoning
	if attachments != nil {
		m.Attachments = attachments
	}
	if citations != nil {
		m.Citations = citations
	}
	if proj != nil {
		m.Project = proj
	}
	m.ProjectFilesUpdate = filesUpdated
	m.IsThinking = false
	m.streamContent.Reset()
}

// IsEmpty reports whether the message has no content or attachments.
func (m *Message) IsEmpty() bool {
	return m.Content == "" && m.streamContent.Len() == 0 && len(m.Attachments) == 0
}

// Preview returns a truncated single-line preview of the message content.
func (m *Message) Preview(maxRunes int) string {
	content := strings.ReplaceAll(m.DisplayContent(), "\n", " ")
	runes := []rune(content)
	if len(runes) <= maxRunes {
		return content
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// EstimateTokens gives a rough token estimate (~4 characters per token).
func (m *Message) EstimateTokens() int {
	return (len(m.DisplayContent()) + 3) / 4
}

// Clone returns a copy of the message. The streaming accumulator is not
// carried over; a live placeholder clones to its accumulated content.
func (m *Message) Clone() *Message {
	clone := &Message{
		ID:                 m.ID,
		Role:               m.Role,
		Timestamp:          m.Timestamp,
		Content:            m.Content,
		Reasoning:          m.Reasoning,
		IsThinking:         m.IsThinking,
		ProjectFilesUpdate: m.ProjectFilesUpdate,
		TokenCount:         m.TokenCount,
	}
	if m.IsThinking && m.streamContent.Len() > 0 {
		clone.Content = m.streamContent.String()
	}
	if m.Attachments != nil {
		clone.Attachments = append([]Attachment(nil), m.Attachments...)
	}
	if m.Citations != nil {
		clone.Citations = append([]Citation(nil), m.Citations...)
	}
	if m.Project != nil {
		clone.Project = m.Project.Clone()
	}
	return clone
}

// generateMessageID creates a unique message ID.
func generateMessageID() string {
	return "msg_" + uuid.NewString()
}
