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
	"time"

	"github.com/stratum-ai/stratum/pkg/mcp"
)

// Lister is the slice of the MCP client the repository needs.
type Lister interface {
	ListTools(ctx context.Context) ([]mcp.ToolInfo, error)
	ListPrompts(ctx context.Context) ([]mcp.PromptInfo, error)
	ListResources(ctx context.Context) ([]mcp.ResourceInfo, error)
}

// Source exposes the connected fleet to the repository as Listers.
type Source interface {
	ServerNames() []string
	Lister(name string) Lister
}

// ManagerSource adapts an mcp.Manager to the Source interface.
type ManagerSource struct {
	Manager *mcp.Manager
}

func (s ManagerSource) ServerNames() []string {
	return s.Manager.ServerNames()
}

func (s ManagerSource) Lister(name string) Lister {
	client := s.Manager.Client(name)
	if client == nil {
		return nil
	}
	if status, _ := client.Status(); status != mcp.StatusConnected {
		return nil
	}
	return client
}

// Repository fetches artifact collections from the fleet with retry and
// timeout discipline. Timeouts downgrade to empty collections, never to
// errors.
type Repository struct {
	source     Source
	maxRetries int
	retryDelay time.Duration
}

// RepositoryOption customizes a Repository.
type RepositoryOption func(*Repository)

// WithFetchRetries sets the retry budget for empty or failed listings.
func WithFetchRetries(n int, delay time.Duration) RepositoryOption {
	return func(r *Repository) {
		r.maxRetries = n
		r.retryDelay = delay
	}
}

// NewRepository creates a repository over the given source.
func NewRepository(source Source, opts ...RepositoryOption) *Repository {
	r := &Repository{
		source:     source,
		maxRetries: 2,
		retryDelay: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetServerArtifacts fetches all three listings for one server under a
// single deadline. With retryOnEmpty, an empty result is retried up to the
// retry budget; listing errors are retried the same way. On timeout an
// empty collection is returned.
func (r *Repository) GetServerArtifacts(ctx context.Context, server string, retryOnEmpty bool, timeout time.Duration) Collection {
	fetchCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	lister := r.source.Lister(server)
	if lister == nil {
		slog.Debug("Artifact fetch skipped, server not connected", "server", server)
		return Collection{}
	}

	attempts := 1
	if retryOnEmpty {
		attempts += r.maxRetries
	}

	var col Collection
	for attempt := 1; attempt <= attempts; attempt++ {
		var err error
		col, err = r.fetchOnce(fetchCtx, server, lister)
		if err == nil && !col.IsEmpty() {
			return col
		}
		if fetchCtx.Err() != nil {
			slog.Warn("Artifact fetch timed out", "server", server)
			return Collection{}
		}
		if err != nil {
			slog.Debug("Artifact fetch failed", "server", server, "attempt", attempt, "error", err)
		}
		if attempt < attempts {
			select {
			case <-fetchCtx.Done():
				return Collection{}
			case <-time.After(r.retryDelay):
			}
		}
	}
	return col
}

// GetAllServersArtifacts fetches every server's collection under one
// aggregate deadline. Servers that time out contribute empty collections.
func (r *Repository) GetAllServersArtifacts(ctx context.Context, timeout time.Duration) map[string]Collection {
	fetchCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	out := make(map[string]Collection)
	for _, server := range r.source.ServerNames() {
		out[server] = r.GetServerArtifacts(fetchCtx, server, true, 0)
	}
	return out
}

func (r *Repository) fetchOnce(ctx context.Context, server string, lister Lister) (Collection, error) {
	var col Collection

	tools, err := lister.ListTools(ctx)
	if err != nil {
		return col, err
	}
	prompts, err := lister.ListPrompts(ctx)
	if err != nil {
		return col, err
	}
	resources, err := lister.ListResources(ctx)
	if err != nil {
		return col, err
	}

	col.Tools = tools
	col.Prompts = prompts
	col.Resources = resources
	return col, nil
}
