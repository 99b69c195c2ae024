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
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/stratum-ai/stratum/pkg/bus"
)

// ClientProvider constructs a client for one server entry. Swappable in
// tests.
type ClientProvider func(name string, cfg ServerConfig, eventBus *bus.Bus) (*Client, error)

// DefaultClientProvider builds real clients with default options.
func DefaultClientProvider(name string, cfg ServerConfig, eventBus *bus.Bus) (*Client, error) {
	return NewClient(name, cfg, NewLifecycle(name, eventBus))
}

// Manager owns the fleet of MCP clients, one per configured server.
type Manager struct {
	eventBus *bus.Bus
	provider ClientProvider

	mu      sync.Mutex
	clients map[string]*Client
}

// NewManager creates an empty fleet manager. A nil provider falls back to
// DefaultClientProvider.
func NewManager(eventBus *bus.Bus, provider ClientProvider) *Manager {
	if provider == nil {
		provider = DefaultClientProvider
	}
	return &Manager{
		eventBus: eventBus,
		provider: provider,
		clients:  make(map[string]*Client),
	}
}

// Initialize constructs clients for every server entry and connects them
// concurrently. A failure on one client marks that client ERROR (its own
// lifecycle does this) but never fails the initializer; the error count is
// reported through the log.
func (m *Manager) Initialize(ctx context.Context, servers map[string]ServerConfig, useAuth bool) error {
	m.mu.Lock()
	for name, cfg := range servers {
		client, err := m.provider(name, cfg, m.eventBus)
		if err != nil {
			m.mu.Unlock()
			return fmt.Errorf("failed to construct client for %s: %w", name, err)
		}
		m.clients[name] = client
	}
	clients := m.snapshotLocked()
	m.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	var failed sync.Map
	for name, client := range clients {
		g.Go(func() error {
			if err := client.Connect(gctx, useAuth); err != nil {
				slog.Warn("Server connection failed during initialization", "server", name, "error", err)
				failed.Store(name, err)
			}
			return nil
		})
	}
	// Connect errors are isolated per client, so the group never fails.
	_ = g.Wait()

	failures := 0
	failed.Range(func(_, _ any) bool { failures++; return true })
	slog.Info("MCP fleet initialized", "servers", len(clients), "failed", failures)
	return nil
}

// Cleanup disconnects all clients concurrently, ignoring per-client errors.
func (m *Manager) Cleanup(ctx context.Context) {
	m.mu.Lock()
	clients := m.snapshotLocked()
	m.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)
	for name, client := range clients {
		g.Go(func() error {
			if err := client.Close(); err != nil {
				slog.Debug("Error during disconnect", "server", name, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Client returns the named client, or nil.
func (m *Manager) Client(name string) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clients[name]
}

// Clients returns a copy of the fleet map.
func (m *Manager) Clients() map[string]*Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// ConnectedClients returns clients currently in CONNECTED state.
func (m *Manager) ConnectedClients() map[string]*Client {
	m.mu.Lock()
	defer m.mu.Unlock()

	connected := make(map[string]*Client)
	for name, client := range m.clients {
		if status, _ := client.Status(); status == StatusConnected {
			connected[name] = client
		}
	}
	return connected
}

// ServerNames returns the configured server names, sorted.
func (m *Manager) ServerNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.clients))
	for name := range m.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StatusSnapshot returns a read-only view of server statuses.
func (m *Manager) StatusSnapshot() map[string]Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make(map[string]Status, len(m.clients))
	for name, client := range m.clients {
		status, _ := client.Status()
		snapshot[name] = status
	}
	return snapshot
}

func (m *Manager) snapshotLocked() map[string]*Client {
	clients := make(map[string]*Client, len(m.clients))
	for name, client := range m.clients {
		clients[name] = client
	}
	return clients
}
