// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sync/atomic"
	"time"

	"github.com/rexcorp1/rexpro-ai/internal/project"
	"github.com/rexcorp1/rexpro-ai/internal/util"
)

// TitleMaxRunes is the length a session title derived from the first prompt
// is truncated to.
const TitleMaxRunes = 40

// =============================================================================
// SESSION TYPE
// =============================================================================

// Session holds one chat conversation with its history and, when the
// code-interpreter has been used, its project file tree.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Messages []*Message `json:"messages"`

	// Project is created on first code-interpreter use for this session.
	Project *project.Project `json:"project,omitempty"`

	// Token tracking
	TokensUsed int `json:"tokensUsed,omitempty"`
}

// NewSession creates a session with a creation-timestamp-derived ID and a
// title derived from the first prompt.
func NewSession(firstPrompt string) *Session {
	now := time.Now()
	return &Session{
		ID:        generateSessionID(now),
		Title:     util.DeriveTitle(firstPrompt, TitleMaxRunes),
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  make([]*Message, 0),
	}
}

// sessionSeq disambiguates sessions created within the same millisecond.
var sessionSeq atomic.Int64

// generateSessionID derives a session ID token from the creation time
// plus a process-wide sequence number, so two sessions created in the
// same millisecond never share an ID.
func generateSessionID(t time.Time) string {
	return "chat_" + util.Int64ToString(t.UnixMilli()) + "_" + util.Int64ToString(sessionSeq.Add(1))
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AppendExchange appends the user message and its paired MODEL placeholder
// in one step, so the UI never observes a half-applied exchange.
func (s *Session) AppendExchange(user, placeholder *Message) {
	s.Messages = append(s.Messages, user, placeholder)
	s.UpdatedAt = time.Now()
}

// LastMessage returns the most recent message, or nil if empty.
func (s *Session) LastMessage() *Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return s.Messages[len(s.Messages)-1]
}

// LiveModelMessage returns the trailing MODEL message if it is still
// streaming, else nil. At most one message is live per in-flight request.
func (s *Session) LiveModelMessage() *Message {
	last := s.LastMessage()
	if last != nil && last.Role == RoleModel && last.IsThinking {
		return last
	}
	return nil
}

// Message returns the message with the given ID, or nil.
func (s *Session) Message(id string) *Message {
	for _, msg := range s.Messages {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

// RemoveMessage removes a message by ID. Returns true if found.
func (s *Session) RemoveMessage(id string) bool {
	for i, msg := range s.Messages {
		if msg.ID == id {
			s.Messages = append(s.Messages[:i], s.Messages[i+1:]...)
			s.UpdatedAt = time.Now()
			return true
		}
	}
	return false
}

// IsEmpty reports whether the session has no messages. Empty sessions are
// transient "new chat" placeholders and are never persisted.
func (s *Session) IsEmpty() bool {
	return len(s.Messages) == 0
}

// MessageCount returns the number of messages.
func (s *Session) MessageCount() int {
	return len(s.Messages)
}

// =============================================================================
// TOKEN TRACKING
// =============================================================================

// EstimateTokens estimates the total token count of the session history.
func (s *Session) EstimateTokens() int {
	total := 0
	for _, msg := range s.Messages {
		// ~4 tokens of per-message structure overhead.
		total += msg.EstimateTokens() + 4
	}
	return total
}

// SetTokensUsed records an authoritative token count from the API.
func (s *Session) SetTokensUsed(n int) {
	s.TokensUsed = n
}

// =============================================================================
// TITLE AND PREVIEW
// =============================================================================

// SetTitle renames the session.
func (s *Session) SetTitle(title string) {
	s.Title = title
	s.UpdatedAt = time.Now()
}

// GetTitle returns the title or a default for unnamed sessions.
func (s *Session) GetTitle() string {
	if s.Title != "" {
		return s.Title
	}
	return "New chat"
}

// Preview returns a short preview from the first user message.
func (s *Session) Preview() string {
	for _, msg := range s.Messages {
		if msg.Role == RoleUser {
			return msg.Preview(80)
		}
	}
	return ""
}

// =============================================================================
// COPY SEMANTICS
// =============================================================================

// Clone creates a deep copy of the session. The session store updates state
// by whole-session replacement, so mutation always happens on a clone.
func (s *Session) Clone() *Session {
	clone := &Session{
		ID:         s.ID,
		Title:      s.Title,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
		TokensUsed: s.TokensUsed,
		Messages:   make([]*Message, len(s.Messages)),
	}
	for i, msg := range s.Messages {
		clone.Messages[i] = msg.Clone()
	}
	if s.Project != nil {
		clone.Project = s.Project.Clone()
	}
	return clone
}

// Meta returns lightweight metadata for session listings.
func (s *Session) Meta() SessionMeta {
	return SessionMeta{
		ID:           s.ID,
		Title:        s.GetTitle(),
		MessageCount: len(s.Messages),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
		Preview:      s.Preview(),
	}
}

// SessionMeta holds lightweight metadata for listing sessions.
type SessionMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"messageCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Preview      string    `json:"preview"`
}
