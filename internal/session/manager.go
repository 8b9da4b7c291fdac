// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/codebrain/codebrain-tui/internal/util"
)

// sessionFileName is the encrypted session blob on disk.
const sessionFileName = "session.enc"

// ErrNoSession indicates no stored login.
var ErrNoSession = errors.New("no stored session")

// Session is the persisted login state.
type Session struct {
	Token       string    `json:"token"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	SavedAt     time.Time `json:"saved_at"`
}

// Manager loads and stores the session for one config directory.
// Safe for concurrent use.
type Manager struct {
	mu   sync.RWMutex
	dir  string
	ks   keystore
	cur  *Session
	read bool
}

// NewManager creates a manager rooted at dir (typically ~/.codebrain).
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	return &Manager{dir: dir, ks: keystore{dir: dir}}, nil
}

// Current returns the stored session, reading it from disk on first access.
func (m *Manager) Current() (*Session, error) {
	m.mu.RLock()
	if m.read {
		defer m.mu.RUnlock()
		if m.cur == nil {
			return nil, ErrNoSession
		}
		return m.cur, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.read {
		sess, err := m.load()
		if err != nil && !errors.Is(err, ErrNoSession) {
			return nil, err
		}
		m.cur = sess
		m.read = true
	}
	if m.cur == nil {
		return nil, ErrNoSession
	}
	return m.cur, nil
}

// Token returns the stored bearer token, or "" when logged out. This is the
// shape the API client consumes as its token source.
func (m *Manager) Token() string {
	sess, err := m.Current()
	if err != nil {
		return ""
	}
	return sess.Token
}

// Save encrypts and persists a new session.
func (m *Manager) Save(sess Session) error {
	sess.SavedAt = time.Now().UTC()

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	sealed, err := m.ks.seal(data)
	if err != nil {
		return err
	}
	if err := util.AtomicWriteFile(m.path(), []byte(sealed), 0600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}

	m.mu.Lock()
	m.cur = &sess
	m.read = true
	m.mu.Unlock()
	return nil
}

// Clear removes the stored session (logout).
func (m *Manager) Clear() error {
	m.mu.Lock()
	m.cur = nil
	m.read = true
	m.mu.Unlock()

	err := os.Remove(m.path())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// load reads and decrypts the session file.
func (m *Manager) load() (*Session, error) {
	blob, err := os.ReadFile(m.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("read session: %w", err)
	}

	data, err := m.ks.open(string(blob))
	if err != nil {
		// A session that cannot be decrypted is treated as absent; the user
		// logs in again rather than being stuck behind a corrupt file.
		return nil, ErrNoSession
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, ErrNoSession
	}
	return &sess, nil
}

func (m *Manager) path() string {
	return filepath.Join(m.dir, sessionFileName)
}
