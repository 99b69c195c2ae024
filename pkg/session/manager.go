// Copyright 2026 Stratum Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stratum-ai/stratum/pkg/state"
)

// DefaultSessionKey is the storage key of the single active session.
const DefaultSessionKey = "session:default"

// Manager loads and saves the active session through a state provider.
// Single-session today; keys leave room for more.
type Manager struct {
	provider state.Provider
	key      string
	model    string
	active   *Session
}

// NewManager creates a manager storing under the default key.
func NewManager(provider state.Provider, model string) *Manager {
	return &Manager{provider: provider, key: DefaultSessionKey, model: model}
}

// Active returns the current session, or nil before the first load.
func (m *Manager) Active() *Session { return m.active }

// GetOrCreateDefaultSession restores the persisted session, or creates a
// fresh one when nothing is stored or the snapshot is corrupt. Corruption
// is logged loudly and never resurrected as partial state.
func (m *Manager) GetOrCreateDefaultSession(ctx context.Context) (*Session, error) {
	if m.active != nil {
		return m.active, nil
	}

	data, err := m.provider.Load(ctx, m.key)
	switch {
	case errors.Is(err, state.ErrNotFound):
		m.active = New(m.model)
		slog.Info("No persisted session found, starting fresh", "session_id", m.active.Metadata.SessionID)
		return m.active, nil
	case err != nil:
		m.active = New(m.model)
		slog.Error("Failed to load persisted session, starting fresh", "key", m.key, "error", err)
		return m.active, nil
	}

	restored, err := Deserialize(data)
	if err != nil {
		m.active = New(m.model)
		slog.Error("Persisted session is corrupt, starting fresh",
			"key", m.key,
			"session_id", m.active.Metadata.SessionID,
			"error", err)
		return m.active, nil
	}

	m.active = restored
	slog.Info("Session restored",
		"session_id", restored.Metadata.SessionID,
		"title", restored.Metadata.Title,
		"messages", restored.Conversation.Len())
	return m.active, nil
}

// SaveActiveSession snapshots the active session. Storage failures
// propagate to the caller; the runtime continues in memory.
func (m *Manager) SaveActiveSession(ctx context.Context) error {
	if m.active == nil {
		return fmt.Errorf("no active session to save")
	}

	data, err := m.active.Serialize()
	if err != nil {
		return err
	}
	if err := m.provider.Save(ctx, m.key, data); err != nil {
		return fmt.Errorf("failed to persist session %s: %w", m.active.Metadata.SessionID, err)
	}
	return nil
}

// DeleteActiveSession removes the snapshot and resets in-memory state.
func (m *Manager) DeleteActiveSession(ctx context.Context) error {
	if err := m.provider.Delete(ctx, m.key); err != nil {
		return err
	}
	m.active = nil
	return nil
}
