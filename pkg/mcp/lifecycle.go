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

package mcp

import (
	"log/slog"
	"sync"
	"time"

	"github.com/stratum-ai/stratum/pkg/bus"
)

// Status is the connection state of one client.
type Status string

const (
	StatusDisconnected Status = "DISCONNECTED"
	StatusConnecting   Status = "CONNECTING"
	StatusConnected    Status = "CONNECTED"
	StatusReconnecting Status = "RECONNECTING"
	StatusError        Status = "ERROR"
)

// Lifecycle is the per-client connection state machine. Every transition
// publishes a ConnectionStatusChanged event carrying the previous and new
// status. It exposes a ready signal that resolves when the client reaches
// CONNECTED.
type Lifecycle struct {
	mu         sync.Mutex
	serverName string
	status     Status
	errMsg     string
	eventBus   *bus.Bus
	ready      chan struct{}
}

// NewLifecycle creates a lifecycle in DISCONNECTED.
func NewLifecycle(serverName string, eventBus *bus.Bus) *Lifecycle {
	return &Lifecycle{
		serverName: serverName,
		status:     StatusDisconnected,
		eventBus:   eventBus,
		ready:      make(chan struct{}),
	}
}

// Status returns the current status and error message (set on ERROR).
func (l *Lifecycle) Status() (Status, string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status, l.errMsg
}

// Ready returns a channel closed when the client is CONNECTED. After a
// disconnect or loss the channel is replaced, so callers should re-fetch it
// before waiting.
func (l *Lifecycle) Ready() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ready
}

// BeginConnect transitions to CONNECTING.
func (l *Lifecycle) BeginConnect() {
	l.transition(StatusConnecting, "")
}

// MarkConnected transitions to CONNECTED and resolves the ready signal.
func (l *Lifecycle) MarkConnected() {
	l.mu.Lock()
	prev := l.status
	l.status = StatusConnected
	l.errMsg = ""
	select {
	case <-l.ready:
	default:
		close(l.ready)
	}
	l.mu.Unlock()

	l.publish(prev, StatusConnected, "")
}

// BeginReconnect transitions to RECONNECTING after a connection loss and
// re-arms the ready signal.
func (l *Lifecycle) BeginReconnect() {
	l.mu.Lock()
	prev := l.status
	l.status = StatusReconnecting
	l.errMsg = ""
	l.rearmReadyLocked()
	l.mu.Unlock()

	l.publish(prev, StatusReconnecting, "")
}

// MarkError transitions to ERROR with a message.
func (l *Lifecycle) MarkError(errMsg string) {
	l.mu.Lock()
	prev := l.status
	l.status = StatusError
	l.errMsg = errMsg
	l.rearmReadyLocked()
	l.mu.Unlock()

	l.publish(prev, StatusError, errMsg)
}

// MarkDisconnected transitions to DISCONNECTED after an explicit disconnect.
func (l *Lifecycle) MarkDisconnected() {
	l.mu.Lock()
	prev := l.status
	l.status = StatusDisconnected
	l.errMsg = ""
	l.rearmReadyLocked()
	l.mu.Unlock()

	l.publish(prev, StatusDisconnected, "")
}

func (l *Lifecycle) transition(to Status, errMsg string) {
	l.mu.Lock()
	prev := l.status
	l.status = to
	l.errMsg = errMsg
	l.mu.Unlock()

	l.publish(prev, to, errMsg)
}

// rearmReadyLocked replaces an already-resolved ready channel so future
// waiters block until the next CONNECTED.
func (l *Lifecycle) rearmReadyLocked() {
	select {
	case <-l.ready:
		l.ready = make(chan struct{})
	default:
	}
}

// PublishReconnectProgress emits a backoff progress tick for this server.
func (l *Lifecycle) PublishReconnectProgress(attempt int, remaining time.Duration) {
	if l.eventBus != nil {
		l.eventBus.Publish(bus.NewReconnectProgress(l.serverName, attempt, remaining))
	}
}

func (l *Lifecycle) publish(prev, current Status, errMsg string) {
	slog.Debug("Connection status changed",
		"server", l.serverName,
		"previous", string(prev),
		"current", string(current))
	if l.eventBus != nil {
		l.eventBus.Publish(bus.NewConnectionStatusChanged(l.serverName, string(prev), string(current), errMsg))
	}
}
