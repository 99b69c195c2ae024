package tools

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratum-ai/stratum/pkg/mcp"
)

type fakeMCPClient struct {
	tools   []mcp.ToolInfo
	listErr error
	result  *mcp.ToolResult
	callErr error
	calls   []string
}

func (f *fakeMCPClient) ListTools(ctx context.Context) ([]mcp.ToolInfo, error) {
	return f.tools, f.listErr
}

func (f *fakeMCPClient) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.ToolResult, error) {
	f.calls = append(f.calls, name)
	return f.result, f.callErr
}

func fleetOf(clients map[string]*fakeMCPClient) FleetFunc {
	return func() map[string]MCPClient {
		out := make(map[string]MCPClient)
		for name, c := range clients {
			out[name] = c
		}
		return out
	}
}

func TestMCPSourceDeduplicatesAcrossServers(t *testing.T) {
	alpha := &fakeMCPClient{
		tools:  []mcp.ToolInfo{{Name: "search"}, {Name: "fetch"}},
		result: &mcp.ToolResult{Content: "alpha result"},
	}
	beta := &fakeMCPClient{
		tools:  []mcp.ToolInfo{{Name: "search"}, {Name: "write"}},
		result: &mcp.ToolResult{Content: "beta result"},
	}

	source := NewMCPToolSource("mcp", fleetOf(map[string]*fakeMCPClient{"alpha": alpha, "beta": beta}))
	require.NoError(t, source.DiscoverTools(context.Background()))

	names := []string{}
	for _, info := range source.ListTools() {
		names = append(names, info.Name)
	}
	assert.Equal(t, []string{"fetch", "search", "write"}, names)

	// First server in sorted order owns the duplicate.
	server, ok := source.Route("search")
	require.True(t, ok)
	assert.Equal(t, "alpha", server)

	tool, ok := source.GetTool("search")
	require.True(t, ok)
	result, err := tool.Execute(context.Background(), map[string]any{"q": "x"})
	require.NoError(t, err)
	assert.Equal(t, "alpha result", result.Content)
	assert.Equal(t, []string{"search"}, alpha.calls)
	assert.Empty(t, beta.calls)
}

func TestMCPSourceSkipsFailingServer(t *testing.T) {
	good := &fakeMCPClient{tools: []mcp.ToolInfo{{Name: "fetch"}}}
	bad := &fakeMCPClient{listErr: fmt.Errorf("listing failed")}

	source := NewMCPToolSource("mcp", fleetOf(map[string]*fakeMCPClient{"good": good, "bad": bad}))
	require.NoError(t, source.DiscoverTools(context.Background()))

	assert.Len(t, source.ListTools(), 1)
}

func TestMCPToolUpstreamError(t *testing.T) {
	client := &fakeMCPClient{
		tools:   []mcp.ToolInfo{{Name: "fetch"}},
		callErr: fmt.Errorf("transport dropped"),
	}
	source := NewMCPToolSource("mcp", fleetOf(map[string]*fakeMCPClient{"srv": client}))
	require.NoError(t, source.DiscoverTools(context.Background()))

	tool, _ := source.GetTool("fetch")
	result, err := tool.Execute(context.Background(), nil)
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "transport dropped")
}

func TestMCPToolErrorResult(t *testing.T) {
	client := &fakeMCPClient{
		tools:  []mcp.ToolInfo{{Name: "fetch"}},
		result: &mcp.ToolResult{Content: "bad input", IsError: true},
	}
	source := NewMCPToolSource("mcp", fleetOf(map[string]*fakeMCPClient{"srv": client}))
	require.NoError(t, source.DiscoverTools(context.Background()))

	tool, _ := source.GetTool("fetch")
	result, err := tool.Execute(context.Background(), nil)
	require.NoError(t, err, "an upstream error result is not an execution error")
	assert.False(t, result.Success)
	assert.Equal(t, "bad input", result.Error)
}
