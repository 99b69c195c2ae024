package tools

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTool struct {
	name    string
	content string
	fail    bool
}

func (t *staticTool) GetName() string        { return t.name }
func (t *staticTool) GetDescription() string { return "static " + t.name }
func (t *staticTool) GetInfo() ToolInfo {
	return ToolInfo{Name: t.name, Description: t.GetDescription(), SourceType: SourceTypeLocal}
}

func (t *staticTool) Execute(ctx context.Context, args map[string]any) (ToolResult, error) {
	if t.fail {
		return ToolResult{Success: false, Error: "exec failed", ToolName: t.name}, nil
	}
	return ToolResult{Success: true, Content: t.content, ToolName: t.name}, nil
}

type staticSource struct {
	name  string
	tools []*staticTool
}

func (s *staticSource) GetName() string                        { return s.name }
func (s *staticSource) GetType() string                        { return SourceTypeLocal }
func (s *staticSource) DiscoverTools(ctx context.Context) error { return nil }

func (s *staticSource) ListTools() []ToolInfo {
	infos := make([]ToolInfo, 0, len(s.tools))
	for _, t := range s.tools {
		infos = append(infos, t.GetInfo())
	}
	return infos
}

func (s *staticSource) GetTool(name string) (Tool, bool) {
	for _, t := range s.tools {
		if t.name == name {
			return t, true
		}
	}
	return nil, false
}

func TestRegistryCollisionFirstWins(t *testing.T) {
	registry := NewRegistry(nil)

	first := &staticSource{name: "first", tools: []*staticTool{{name: "search", content: "from first"}}}
	second := &staticSource{name: "second", tools: []*staticTool{{name: "search", content: "from second"}}}

	require.NoError(t, registry.RegisterSource(context.Background(), first))
	require.NoError(t, registry.RegisterSource(context.Background(), second))

	result, err := registry.ExecuteTool(context.Background(), "search", nil)
	require.NoError(t, err)
	assert.Equal(t, "from first", result.Content)

	source, err := registry.GetToolSource("search")
	require.NoError(t, err)
	assert.Equal(t, "first", source)
}

func TestRegistryDisabledToolsFilteredFromDefinitions(t *testing.T) {
	state := NewStateManager()
	registry := NewRegistry(state)

	source := &staticSource{name: "src", tools: []*staticTool{
		{name: "alpha", content: "a"},
		{name: "beta", content: "b"},
	}}
	require.NoError(t, registry.RegisterSource(context.Background(), source))

	state.Disable("alpha")

	names := []string{}
	for _, info := range registry.ListTools() {
		names = append(names, info.Name)
	}
	assert.Equal(t, []string{"beta"}, names)

	// Disabled gates definitions only; execution still routes.
	result, err := registry.ExecuteTool(context.Background(), "alpha", nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "a", result.Content)

	state.Enable("alpha")
	assert.Len(t, registry.ListTools(), 2)
}

func TestRegistryToolNotFound(t *testing.T) {
	registry := NewRegistry(nil)

	result, err := registry.ExecuteTool(context.Background(), "ghost", nil)
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "not found")

	var regErr *ToolRegistryError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, "Registry", regErr.Component)
}

func TestToolRegistryErrorFormat(t *testing.T) {
	base := fmt.Errorf("underlying")
	err := NewToolRegistryError("Registry", "GetTool", "tool x not found", base)
	assert.Contains(t, err.Error(), "Registry.GetTool")
	assert.ErrorIs(t, err, base)
}

func TestStateManager(t *testing.T) {
	state := NewStateManager()
	state.Disable("b")
	state.Disable("a")

	assert.True(t, state.IsDisabled("a"))
	assert.Equal(t, []string{"a", "b"}, state.DisabledTools())

	state.Clear()
	assert.Empty(t, state.DisabledTools())
}
