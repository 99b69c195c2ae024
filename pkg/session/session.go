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

// Package session wraps a conversation with durable metadata and the agent
// facade that runs queries against it.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stratum-ai/stratum/pkg/conversation"
)

// DefaultTitle names a session before the first user message arrives.
const DefaultTitle = "New Conversation"

const titleMaxLen = 50

// Metadata describes one session. last_active_at never precedes
// created_at.
type Metadata struct {
	SessionID    string    `json:"session_id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
	Tags         []string  `json:"tags,omitempty"`
	Model        string    `json:"model,omitempty"`
	Description  string    `json:"description,omitempty"`
}

// applyDefaults fills missing optional fields on restored metadata.
func (m *Metadata) applyDefaults() {
	if m.SessionID == "" {
		m.SessionID = uuid.NewString()
	}
	if m.Title == "" {
		m.Title = DefaultTitle
	}
	if m.Tags == nil {
		m.Tags = []string{}
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if m.LastActiveAt.Before(m.CreatedAt) {
		m.LastActiveAt = m.CreatedAt
	}
}

// Agent runs one query against the session's conversation. It is rebuilt
// from fresh infrastructure at restore time and never persisted.
type Agent interface {
	RunQuery(ctx context.Context, query string) (string, error)
}

// Session owns its conversation and agent facade.
type Session struct {
	Metadata     Metadata
	Conversation *conversation.Conversation

	agent Agent
}

// New creates a fresh session.
func New(model string) *Session {
	now := time.Now().UTC()
	return &Session{
		Metadata: Metadata{
			SessionID:    uuid.NewString(),
			Title:        DefaultTitle,
			CreatedAt:    now,
			LastActiveAt: now,
			Tags:         []string{},
			Model:        model,
		},
		Conversation: conversation.New(),
	}
}

// SetAgent attaches the agent facade.
func (s *Session) SetAgent(agent Agent) { s.agent = agent }

// Agent returns the attached agent, or nil.
func (s *Session) Agent() Agent { return s.agent }

// RunQuery forwards to the agent and bumps last_active_at on completion.
func (s *Session) RunQuery(ctx context.Context, query string) (string, error) {
	if s.agent == nil {
		return "", fmt.Errorf("session %s has no agent attached", s.Metadata.SessionID)
	}

	response, err := s.agent.RunQuery(ctx, query)
	if err != nil {
		return "", err
	}

	s.Touch()
	s.RefreshTitle()
	return response, nil
}

// Touch bumps last_active_at.
func (s *Session) Touch() {
	now := time.Now().UTC()
	if now.After(s.Metadata.LastActiveAt) {
		s.Metadata.LastActiveAt = now
	}
}

// RefreshTitle sets the title from the first user message once one
// exists. Once derived the title never changes.
func (s *Session) RefreshTitle() {
	if s.Metadata.Title != DefaultTitle {
		return
	}
	for _, msg := range s.Conversation.Messages {
		text := strings.TrimSpace(msg.Text())
		if msg.Role == "user" && text != "" {
			if len(text) > titleMaxLen {
				text = text[:titleMaxLen-3] + "..."
			}
			s.Metadata.Title = text
			return
		}
	}
}

// snapshot is the persisted shape: metadata plus conversation, no agent.
type snapshot struct {
	Metadata     Metadata                   `json:"metadata"`
	Conversation *conversation.Conversation `json:"conversation"`
}

// Serialize emits the JSON snapshot.
func (s *Session) Serialize() ([]byte, error) {
	data, err := json.Marshal(snapshot{Metadata: s.Metadata, Conversation: s.Conversation})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize session %s: %w", s.Metadata.SessionID, err)
	}
	return data, nil
}

// Deserialize restores a session from a snapshot, applying defaults for
// missing optional fields. The agent must be re-attached by the caller.
func Deserialize(data []byte) (*Session, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to deserialize session: %w", err)
	}

	snap.Metadata.applyDefaults()
	if snap.Conversation == nil {
		snap.Conversation = conversation.New()
	}
	return &Session{Metadata: snap.Metadata, Conversation: snap.Conversation}, nil
}
