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

// Package approval implements a blocking request/response rendezvous
// between the runtime and whatever surface collects user decisions.
package approval

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// RequestType classifies what is being approved.
type RequestType string

const (
	TypeQueryAnalysis RequestType = "QUERY_ANALYSIS"
	TypeToolExecution RequestType = "TOOL_EXECUTION"
)

// Request asks the user for a decision.
type Request struct {
	ID            string      `json:"id"`
	Type          RequestType `json:"type"`
	Title         string      `json:"title"`
	Details       string      `json:"details,omitempty"`
	Options       []string    `json:"options,omitempty"`
	DefaultOption string      `json:"default_option,omitempty"`

	// ToolName keys per-tool session memory for TOOL_EXECUTION requests.
	ToolName string `json:"tool_name,omitempty"`
}

// Response resolves a request.
type Response struct {
	RequestID          string         `json:"request_id"`
	Approved           bool           `json:"approved"`
	SelectedOption     string         `json:"selected_option,omitempty"`
	Cancelled          bool           `json:"cancelled,omitempty"`
	Remembered         bool           `json:"remembered,omitempty"`
	RememberForSession bool           `json:"remember_for_session,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
}

// Callback presents a request to the user. It should eventually lead to
// SubmitResponse or CancelRequest with the request's id.
type Callback func(req Request)

// Manager owns the pending request table and the per-session decision
// memory. When globally disabled, every request auto-approves.
type Manager struct {
	mu               sync.Mutex
	enabled          bool
	callback         Callback
	asyncCallback    bool
	pending          map[string]chan Response
	analysisDecision *bool
	toolDecisions    map[string]bool
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithDisabled turns the manager off: every request auto-approves with
// auto_approved metadata.
func WithDisabled() ManagerOption {
	return func(m *Manager) { m.enabled = false }
}

// WithAsyncCallback schedules the callback on its own goroutine so slow
// surfaces never block the requesting caller.
func WithAsyncCallback() ManagerOption {
	return func(m *Manager) { m.asyncCallback = true }
}

// NewManager creates an enabled manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		enabled:       true,
		pending:       make(map[string]chan Response),
		toolDecisions: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetCallback registers the presentation callback.
func (m *Manager) SetCallback(cb Callback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callback = cb
}

// RequestApproval blocks until the request is resolved by SubmitResponse,
// CancelRequest, or context cancellation. Remembered decisions and a
// disabled manager short-circuit without invoking the callback.
func (m *Manager) RequestApproval(ctx context.Context, req Request) (Response, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	m.mu.Lock()
	if !m.enabled {
		m.mu.Unlock()
		return Response{
			RequestID: req.ID,
			Approved:  true,
			Metadata:  map[string]any{"auto_approved": true},
		}, nil
	}

	if resp, ok := m.rememberedLocked(req); ok {
		m.mu.Unlock()
		return resp, nil
	}

	ch := make(chan Response, 1)
	m.pending[req.ID] = ch
	cb := m.callback
	async := m.asyncCallback
	m.mu.Unlock()

	if cb != nil {
		if async {
			go cb(req)
		} else {
			cb(req)
		}
	} else {
		slog.Warn("Approval requested with no callback registered", "request_id", req.ID, "type", string(req.Type))
	}

	select {
	case resp := <-ch:
		m.recordMemory(req, resp)
		return resp, nil
	case <-ctx.Done():
		m.removePending(req.ID)
		return Response{RequestID: req.ID, Approved: false, Cancelled: true}, ctx.Err()
	}
}

// SubmitResponse resolves a pending request. An unknown id is an error.
func (m *Manager) SubmitResponse(resp Response) error {
	m.mu.Lock()
	ch, ok := m.pending[resp.RequestID]
	if ok {
		delete(m.pending, resp.RequestID)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("no pending approval request with id %s", resp.RequestID)
	}
	ch <- resp
	return nil
}

// CancelRequest resolves a pending request as not approved and cancelled.
func (m *Manager) CancelRequest(id, reason string) {
	m.resolve(id, Response{
		RequestID: id,
		Approved:  false,
		Cancelled: true,
		Metadata:  map[string]any{"reason": reason},
	})
}

// CancelAll cancels every pending request with the same reason.
func (m *Manager) CancelAll(reason string) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.pending))
	for id := range m.pending {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.CancelRequest(id, reason)
	}
}

// PendingCount returns the number of unresolved requests.
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// ClearSessionMemory forgets remembered decisions.
func (m *Manager) ClearSessionMemory() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analysisDecision = nil
	m.toolDecisions = make(map[string]bool)
}

func (m *Manager) rememberedLocked(req Request) (Response, bool) {
	switch req.Type {
	case TypeQueryAnalysis:
		if m.analysisDecision != nil {
			return Response{RequestID: req.ID, Approved: *m.analysisDecision, Remembered: true}, true
		}
	case TypeToolExecution:
		if req.ToolName != "" {
			if approved, ok := m.toolDecisions[req.ToolName]; ok {
				return Response{RequestID: req.ID, Approved: approved, Remembered: true}, true
			}
		}
	}
	return Response{}, false
}

func (m *Manager) recordMemory(req Request, resp Response) {
	if !resp.RememberForSession || resp.Cancelled {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	switch req.Type {
	case TypeQueryAnalysis:
		approved := resp.Approved
		m.analysisDecision = &approved
	case TypeToolExecution:
		if req.ToolName != "" {
			m.toolDecisions[req.ToolName] = resp.Approved
		}
	}
}

func (m *Manager) resolve(id string, resp Response) {
	m.mu.Lock()
	ch, ok := m.pending[id]
	if ok {
		delete(m.pending, id)
	}
	m.mu.Unlock()

	if ok {
		ch <- resp
	}
}

func (m *Manager) removePending(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, id)
}
