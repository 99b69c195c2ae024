package mcp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerConfigRemoteDetection(t *testing.T) {
	tests := []struct {
		name      string
		cfg       ServerConfig
		isRemote  bool
		remoteURL string
	}{
		{
			name:      "remote entry",
			cfg:       ServerConfig{Command: "npx", Args: []string{"mcp-remote", "https://example.com/mcp"}},
			isRemote:  true,
			remoteURL: "https://example.com/mcp",
		},
		{
			name:     "stdio entry",
			cfg:      ServerConfig{Command: "uvx", Args: []string{"some-server"}},
			isRemote: false,
		},
		{
			name:     "no args",
			cfg:      ServerConfig{Command: "server"},
			isRemote: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.isRemote, tt.cfg.IsRemote())
			assert.Equal(t, tt.remoteURL, tt.cfg.RemoteURL())
		})
	}
}

func TestLoadServersConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mcp_servers.json")
	content := `{
		"mcpServers": {
			"docs": {"command": "npx", "args": ["mcp-remote", "https://docs.example.com/mcp"]},
			"local": {"command": "uvx", "args": ["local-server"]}
		}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	servers, err := LoadServersConfig(path)
	require.NoError(t, err)
	require.Len(t, servers, 2)
	assert.True(t, servers["docs"].IsRemote())
	assert.Equal(t, "https://docs.example.com/mcp", servers["docs"].RemoteURL())
	assert.False(t, servers["local"].IsRemote())
}

// Missing config is a hard startup failure, not a silent default.
func TestLoadServersConfigMissingFile(t *testing.T) {
	_, err := LoadServersConfig("/nonexistent/mcp_servers.json")
	require.Error(t, err)
}

func TestLoadServersConfigMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{ corrupt json"), 0o644))

	_, err := LoadServersConfig(path)
	require.Error(t, err)
}

func TestNewClientRejectsSSE(t *testing.T) {
	cfg := ServerConfig{Command: "npx", Args: []string{"mcp-remote", "https://example.com/sse"}}
	_, err := NewClient("bad", cfg, NewLifecycle("bad", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SSE")
}
