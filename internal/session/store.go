// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/rexcorp1/rexpro-ai/internal/model"
)

// Store errors.
var (
	// ErrNotFound indicates the session ID is unknown.
	ErrNotFound = errors.New("session not found")
)

// Persister saves the session set and active selection. Implemented by
// the storage package; nil disables persistence.
type Persister interface {
	SaveSessions(sessions []*model.Session) error
	SaveActiveID(id string) error
}

// Store holds all sessions in memory and mirrors changes to the
// persister. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
	activeID string
	persist  Persister
}

// NewStore creates an empty store. persist may be nil.
func NewStore(persist Persister) *Store {
	return &Store{
		sessions: make(map[string]*model.Session),
		persist:  persist,
	}
}

// Load seeds the store from persisted state. Empty sessions in the
// input are dropped; an active ID that no longer resolves is cleared.
func (s *Store) Load(sessions []*model.Session, activeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range sessions {
		if sess == nil || sess.IsEmpty() {
			continue
		}
		s.sessions[sess.ID] = sess
	}
	if _, ok := s.sessions[activeID]; ok {
		s.activeID = activeID
	}
}

// Create starts a new session titled from the first prompt and makes it
// active. The previous active session is pruned if it never got a
// message.
func (s *Store) Create(firstPrompt string) *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneEmptyLocked(s.activeID)

	sess := model.NewSession(firstPrompt)
	s.sessions[sess.ID] = sess
	s.activeID = sess.ID
	s.flushLocked()
	return sess.Clone()
}

// Get returns a deep copy of the session.
func (s *Store) Get(id string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sess.Clone(), nil
}

// Active returns a deep copy of the active session, or nil if none.
func (s *Store) Active() *model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[s.activeID]
	if !ok {
		return nil
	}
	return sess.Clone()
}

// ActiveID returns the active session ID, empty if none.
func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// SetActive switches the active session. The previously active session
// is pruned if empty.
func (s *Store) SetActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if id != s.activeID {
		s.pruneEmptyLocked(s.activeID)
	}
	s.activeID = id
	s.flushLocked()
	return nil
}

// ClearActive drops the active-session pointer so the next send starts
// a fresh session. The previously active session is pruned if empty.
func (s *Store) ClearActive() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeID == "" {
		return
	}
	s.pruneEmptyLocked(s.activeID)
	s.activeID = ""
	s.flushLocked()
}

// Update applies mutate to a clone of the session and swaps it in. The
// stored session is never mutated in place, so concurrent readers keep
// a consistent snapshot.
func (s *Store) Update(id string, mutate func(*model.Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	clone := sess.Clone()
	if err := mutate(clone); err != nil {
		return err
	}
	s.sessions[id] = clone
	s.flushLocked()
	return nil
}

// Rename sets a session's title.
func (s *Store) Rename(id, title string) error {
	return s.Update(id, func(sess *model.Session) error {
		sess.SetTitle(title)
		return nil
	})
}

// Delete removes a session. Deleting the active session clears the
// active selection.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.sessions, id)
	if s.activeID == id {
		s.activeID = ""
	}
	s.flushLocked()
	return nil
}

// List returns metadata for every session, most recently updated first.
func (s *Store) List() []model.SessionMeta {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metas := make([]model.SessionMeta, 0, len(s.sessions))
	for _, sess := range s.sessions {
		metas = append(metas, sess.Meta())
	}
	sort.Slice(metas, func(i, j int) bool {
		if metas[i].UpdatedAt.Equal(metas[j].UpdatedAt) {
			return metas[i].ID > metas[j].ID
		}
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas
}

// Search returns metadata for sessions whose title or message content
// contains the query, case-insensitive.
func (s *Store) Search(query string) []model.SessionMeta {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return s.List()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var metas []model.SessionMeta
	for _, sess := range s.sessions {
		if sessionMatches(sess, query) {
			metas = append(metas, sess.Meta())
		}
	}
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas
}

func sessionMatches(sess *model.Session, query string) bool {
	if strings.Contains(strings.ToLower(sess.Title), query) {
		return true
	}
	for _, msg := range sess.Messages {
		if strings.Contains(strings.ToLower(msg.Content), query) {
			return true
		}
	}
	return false
}

// Count returns the number of sessions held.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// pruneEmptyLocked drops a session that never received a message.
func (s *Store) pruneEmptyLocked(id string) {
	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	if sess.IsEmpty() {
		delete(s.sessions, id)
		if s.activeID == id {
			s.activeID = ""
		}
	}
}

// flushLocked mirrors the non-empty sessions and active selection to
// the persister. Persistence failures are logged, not fatal: the
// in-memory state stays authoritative for the running process.
func (s *Store) flushLocked() {
	if s.persist == nil {
		return
	}

	keep := make([]*model.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if !sess.IsEmpty() {
			keep = append(keep, sess)
		}
	}
	sort.Slice(keep, func(i, j int) bool { return keep[i].CreatedAt.Before(keep[j].CreatedAt) })

	if err := s.persist.SaveSessions(keep); err != nil {
		log.Printf("session persist failed: %v", err)
	}
	if err := s.persist.SaveActiveID(s.activeID); err != nil {
		log.Printf("active session persist failed: %v", err)
	}
}
