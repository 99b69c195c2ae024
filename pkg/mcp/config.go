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
	"encoding/json"
	"fmt"
	"os"
)

// remoteProxy is the command argument that marks a server entry as remote.
const remoteProxy = "mcp-remote"

// ServerConfig describes one MCP server entry from the servers file.
// A server is remote when its first argument is "mcp-remote"; the second
// argument is then the server URL.
type ServerConfig struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
	Env     []string `json:"env,omitempty"`
}

// IsRemote reports whether the entry points at a remote streamable-HTTP server.
func (c ServerConfig) IsRemote() bool {
	return len(c.Args) > 0 && c.Args[0] == remoteProxy
}

// RemoteURL returns the server URL for remote entries, or "" otherwise.
func (c ServerConfig) RemoteURL() string {
	if !c.IsRemote() || len(c.Args) < 2 {
		return ""
	}
	return c.Args[1]
}

// Validate checks structural requirements on a single entry.
func (c ServerConfig) Validate(name string) error {
	if c.IsRemote() {
		if c.RemoteURL() == "" {
			return fmt.Errorf("server %q: mcp-remote entry missing URL argument", name)
		}
		return nil
	}
	if c.Command == "" {
		return fmt.Errorf("server %q: command is required for stdio servers", name)
	}
	return nil
}

type serversFile struct {
	MCPServers map[string]ServerConfig `json:"mcpServers"`
}

// LoadServersConfig reads the MCP fleet file. A missing or malformed file is
// a hard failure: servers configuration errors abort startup.
func LoadServersConfig(path string) (map[string]ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read MCP servers config %s: %w", path, err)
	}

	var file serversFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse MCP servers config %s: %w", path, err)
	}
	if file.MCPServers == nil {
		return nil, fmt.Errorf("MCP servers config %s: missing mcpServers object", path)
	}

	for name, cfg := range file.MCPServers {
		if err := cfg.Validate(name); err != nil {
			return nil, err
		}
	}
	return file.MCPServers, nil
}
