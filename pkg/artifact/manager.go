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

package artifact

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/stratum-ai/stratum/pkg/bus"
	"github.com/stratum-ai/stratum/pkg/mcp"
)

// Manager refreshes the artifact cache from the repository and publishes
// ArtifactsFetched events. It also exposes the aggregation views over the
// cached fleet state.
type Manager struct {
	repo     *Repository
	cache    *Cache
	eventBus *bus.Bus

	serverTimeout    time.Duration
	aggregateTimeout time.Duration
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithFetchTimeouts sets per-server and aggregate fetch deadlines.
func WithFetchTimeouts(perServer, aggregate time.Duration) ManagerOption {
	return func(m *Manager) {
		m.serverTimeout = perServer
		m.aggregateTimeout = aggregate
	}
}

// NewManager creates an artifact manager.
func NewManager(repo *Repository, cache *Cache, eventBus *bus.Bus, opts ...ManagerOption) *Manager {
	m := &Manager{
		repo:             repo,
		cache:            cache,
		eventBus:         eventBus,
		serverTimeout:    15 * time.Second,
		aggregateTimeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RefreshServer fetches one server's artifacts, updates the cache, and
// publishes ArtifactsFetched with the change flag.
func (m *Manager) RefreshServer(ctx context.Context, server string) Collection {
	col := m.repo.GetServerArtifacts(ctx, server, true, m.serverTimeout)
	changed := m.cache.HasChanged(server, col)
	m.cache.Set(server, col)

	slog.Debug("Artifacts refreshed",
		"server", server,
		"tools", len(col.Tools),
		"prompts", len(col.Prompts),
		"resources", len(col.Resources),
		"changed", changed)

	if m.eventBus != nil {
		m.eventBus.Publish(bus.NewArtifactsFetched(server, col.Clone(), changed))
	}
	return col
}

// RefreshAll refreshes every configured server under the aggregate deadline.
func (m *Manager) RefreshAll(ctx context.Context) map[string]Collection {
	refreshCtx := ctx
	if m.aggregateTimeout > 0 {
		var cancel context.CancelFunc
		refreshCtx, cancel = context.WithTimeout(ctx, m.aggregateTimeout)
		defer cancel()
	}

	out := make(map[string]Collection)
	for _, server := range m.repo.source.ServerNames() {
		out[server] = m.RefreshServer(refreshCtx, server)
	}
	return out
}

// Cache exposes the underlying cache for read paths.
func (m *Manager) Cache() *Cache { return m.cache }

// --- aggregation views over the cached fleet state ---

// ResourceURIsByServer returns {server → [resource URIs]} for servers with
// at least one resource.
func (m *Manager) ResourceURIsByServer() map[string][]string {
	out := make(map[string][]string)
	for _, server := range m.cache.Servers() {
		col, ok := m.cache.Get(server)
		if !ok || len(col.Resources) == 0 {
			continue
		}
		uris := make([]string, 0, len(col.Resources))
		for _, r := range col.Resources {
			uris = append(uris, r.URI)
		}
		out[server] = uris
	}
	return out
}

// AllResources returns the flattened resource list across servers, in
// sorted server order.
func (m *Manager) AllResources() []mcp.ResourceInfo {
	var out []mcp.ResourceInfo
	for _, server := range m.cache.Servers() {
		col, ok := m.cache.Get(server)
		if !ok {
			continue
		}
		out = append(out, col.Resources...)
	}
	return out
}

// CommandNames returns the flattened prompt command names across servers,
// de-duplicated and sorted.
func (m *Manager) CommandNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, server := range m.cache.Servers() {
		col, ok := m.cache.Get(server)
		if !ok {
			continue
		}
		for _, p := range col.Prompts {
			if !seen[p.Name] {
				seen[p.Name] = true
				names = append(names, p.Name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// FindPrompt locates a prompt by name across servers. First match wins, in
// sorted server order.
func (m *Manager) FindPrompt(name string) (mcp.PromptInfo, string, bool) {
	for _, server := range m.cache.Servers() {
		col, ok := m.cache.Get(server)
		if !ok {
			continue
		}
		for _, p := range col.Prompts {
			if p.Name == name {
				return p, server, true
			}
		}
	}
	return mcp.PromptInfo{}, "", false
}

// FindResource locates a resource whose URI or name matches the token.
// First match wins, in sorted server order.
func (m *Manager) FindResource(token string) (mcp.ResourceInfo, string, bool) {
	for _, server := range m.cache.Servers() {
		col, ok := m.cache.Get(server)
		if !ok {
			continue
		}
		for _, r := range col.Resources {
			if r.URI == token || r.Name == token {
				return r, server, true
			}
		}
	}
	return mcp.ResourceInfo{}, "", false
}
