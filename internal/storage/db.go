// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/rexcorp1/rexpro-ai/internal/model"
)

// Well-known keys in the kv table.
const (
	KeyChatHistory           = "chatHistory"
	KeyActiveChatID          = "activeChatId"
	KeyTunedModels           = "tunedModels"
	KeyTheme                 = "theme"
	KeyLiveConversationModel = "liveConversationModel"
)

// ErrKeyNotFound indicates the key has no stored value.
var ErrKeyNotFound = errors.New("key not found")

// DB is the SQLite-backed key/value store.
type DB struct {
	db *sql.DB
}

// Open creates or opens the database at path, creating parent
// directories as needed.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer; the kv table sees tiny transactions only.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		PRAGMA journal_mode = WAL;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close releases the database handle.
func (d *DB) Close() error {
	return d.db.Close()
}

// Get returns the raw value stored under key.
func (d *DB) Get(key string) (string, error) {
	var value string
	err := d.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (d *DB) Set(key, value string) error {
	_, err := d.db.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (d *DB) Delete(key string) error {
	if _, err := d.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// getJSON decodes the value under key into out.
func (d *DB) getJSON(key string, out any) error {
	raw, err := d.Get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("corrupt value under %s: %w", key, err)
	}
	return nil
}

// setJSON encodes in and stores it under key.
func (d *DB) setJSON(key string, in any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return d.Set(key, string(raw))
}

// =============================================================================
// TYPED ACCESSORS
// =============================================================================

// SaveSessions persists the session list under chatHistory.
func (d *DB) SaveSessions(sessions []*model.Session) error {
	return d.setJSON(KeyChatHistory, sessions)
}

// LoadSessions returns the persisted session list. A missing key yields
// an empty slice.
func (d *DB) LoadSessions() ([]*model.Session, error) {
	var sessions []*model.Session
	err := d.getJSON(KeyChatHistory, &sessions)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, nil
	}
	return sessions, err
}

// SaveActiveID persists the active session selection. An empty ID
// clears the key.
func (d *DB) SaveActiveID(id string) error {
	if id == "" {
		return d.Delete(KeyActiveChatID)
	}
	return d.Set(KeyActiveChatID, id)
}

// LoadActiveID returns the persisted active session ID, empty if none.
func (d *DB) LoadActiveID() (string, error) {
	id, err := d.Get(KeyActiveChatID)
	if errors.Is(err, ErrKeyNotFound) {
		return "", nil
	}
	return id, err
}

// SaveTunedModels persists the user's tuned model ID list.
func (d *DB) SaveTunedModels(ids []string) error {
	return d.setJSON(KeyTunedModels, ids)
}

// LoadTunedModels returns the persisted tuned model IDs.
func (d *DB) LoadTunedModels() ([]string, error) {
	var ids []string
	err := d.getJSON(KeyTunedModels, &ids)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, nil
	}
	return ids, err
}

// SaveTheme persists the UI theme name.
func (d *DB) SaveTheme(theme string) error {
	return d.Set(KeyTheme, theme)
}

// LoadTheme returns the persisted theme name, empty if unset.
func (d *DB) LoadTheme() (string, error) {
	theme, err := d.Get(KeyTheme)
	if errors.Is(err, ErrKeyNotFound) {
		return "", nil
	}
	return theme, err
}

// SaveLiveModel persists the model used for live conversation mode.
func (d *DB) SaveLiveModel(id string) error {
	return d.Set(KeyLiveConversationModel, id)
}

// LoadLiveModel returns the persisted live conversation model.
func (d *DB) LoadLiveModel() (string, error) {
	id, err := d.Get(KeyLiveConversationModel)
	if errors.Is(err, ErrKeyNotFound) {
		return "", nil
	}
	return id, err
}
