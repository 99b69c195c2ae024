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

package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/stratum-ai/stratum/pkg/mcp"
)

// MCPClient is the slice of the MCP client the tool source needs.
type MCPClient interface {
	ListTools(ctx context.Context) ([]mcp.ToolInfo, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.ToolResult, error)
}

// FleetFunc returns the currently connected clients by server name.
type FleetFunc func() map[string]MCPClient

// ManagerFleet adapts an mcp.Manager to a FleetFunc.
func ManagerFleet(m *mcp.Manager) FleetFunc {
	return func() map[string]MCPClient {
		out := make(map[string]MCPClient)
		for name, client := range m.ConnectedClients() {
			out[name] = client
		}
		return out
	}
}

// MCPToolSource surfaces every connected server's tools as one source.
// Names are deduplicated across servers (first server in sorted order
// wins); a private routing map records which server owns each name.
type MCPToolSource struct {
	name  string
	fleet FleetFunc

	mu     sync.Mutex
	tools  map[string]*mcpTool
	routes map[string]string
}

// NewMCPToolSource creates the fleet-backed tool source.
func NewMCPToolSource(name string, fleet FleetFunc) *MCPToolSource {
	return &MCPToolSource{
		name:   name,
		fleet:  fleet,
		tools:  make(map[string]*mcpTool),
		routes: make(map[string]string),
	}
}

func (s *MCPToolSource) GetName() string { return s.name }

func (s *MCPToolSource) GetType() string { return SourceTypeMCP }

// DiscoverTools concurrently lists tools from every connected client and
// rebuilds the routing map. A failure on one server skips that server.
func (s *MCPToolSource) DiscoverTools(ctx context.Context) error {
	clients := s.fleet()

	var mu sync.Mutex
	listings := make(map[string][]mcp.ToolInfo)

	g, gctx := errgroup.WithContext(ctx)
	for server, client := range clients {
		g.Go(func() error {
			tools, err := client.ListTools(gctx)
			if err != nil {
				slog.Warn("Tool listing failed", "server", server, "error", err)
				return nil
			}
			mu.Lock()
			listings[server] = tools
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	servers := make([]string, 0, len(listings))
	for server := range listings {
		servers = append(servers, server)
	}
	sort.Strings(servers)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = make(map[string]*mcpTool)
	s.routes = make(map[string]string)
	for _, server := range servers {
		for _, info := range listings[server] {
			if owner, exists := s.routes[info.Name]; exists {
				slog.Warn("Duplicate tool name across servers, first server wins",
					"tool", info.Name, "kept_server", owner, "skipped_server", server)
				continue
			}
			s.routes[info.Name] = server
			s.tools[info.Name] = &mcpTool{source: s, server: server, info: info}
		}
	}
	return nil
}

// ListTools returns the discovered tool definitions.
func (s *MCPToolSource) ListTools() []ToolInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]ToolInfo, 0, len(s.tools))
	for _, t := range s.tools {
		infos = append(infos, t.GetInfo())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// GetTool returns a discovered tool by name.
func (s *MCPToolSource) GetTool(name string) (Tool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tools[name]
	return t, ok
}

// Route returns the server owning a tool name.
func (s *MCPToolSource) Route(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	server, ok := s.routes[name]
	return server, ok
}

// mcpTool forwards execution to the owning server's client.
type mcpTool struct {
	source *MCPToolSource
	server string
	info   mcp.ToolInfo
}

func (t *mcpTool) GetName() string { return t.info.Name }

func (t *mcpTool) GetDescription() string { return t.info.Description }

func (t *mcpTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        t.info.Name,
		Description: t.info.Description,
		InputSchema: t.info.InputSchema,
		SourceType:  SourceTypeMCP,
		SourceID:    t.server,
	}
}

func (t *mcpTool) Execute(ctx context.Context, args map[string]any) (ToolResult, error) {
	client, ok := t.source.fleet()[t.server]
	if !ok {
		err := fmt.Errorf("server %s for tool %s is not connected", t.server, t.info.Name)
		return ToolResult{Success: false, Error: err.Error(), ToolName: t.info.Name}, err
	}

	result, err := client.CallTool(ctx, t.info.Name, args)
	if err != nil {
		return ToolResult{Success: false, Error: err.Error(), ToolName: t.info.Name}, err
	}
	if result == nil {
		err := fmt.Errorf("no active session on server %s", t.server)
		return ToolResult{Success: false, Error: err.Error(), ToolName: t.info.Name}, err
	}
	if result.IsError {
		return ToolResult{Success: false, Error: result.Content, ToolName: t.info.Name}, nil
	}
	return ToolResult{Success: true, Content: result.Content, ToolName: t.info.Name}, nil
}
