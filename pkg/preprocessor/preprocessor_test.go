package preprocessor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratum-ai/stratum/pkg/llm"
	"github.com/stratum-ai/stratum/pkg/mcp"
)

type fakeArtifacts struct {
	resources map[string]mcp.ResourceInfo
	prompts   map[string]mcp.PromptInfo
	server    string
}

func (f *fakeArtifacts) FindResource(token string) (mcp.ResourceInfo, string, bool) {
	info, ok := f.resources[token]
	return info, f.server, ok
}

func (f *fakeArtifacts) FindPrompt(name string) (mcp.PromptInfo, string, bool) {
	info, ok := f.prompts[name]
	return info, f.server, ok
}

func (f *fakeArtifacts) CommandNames() []string {
	var names []string
	for name := range f.prompts {
		names = append(names, name)
	}
	return names
}

type fakeClient struct {
	resources  map[string]*mcp.ResourceContent
	promptArgs map[string]string
	messages   []mcp.PromptMessage
	promptErr  error
}

func (f *fakeClient) GetPrompt(ctx context.Context, name string, args map[string]string) ([]mcp.PromptMessage, error) {
	f.promptArgs = args
	return f.messages, f.promptErr
}

func (f *fakeClient) ReadResource(ctx context.Context, uri string) (*mcp.ResourceContent, error) {
	content, ok := f.resources[uri]
	if !ok {
		return nil, errors.New("no such resource")
	}
	return content, nil
}

func resolverFor(client Client) ClientResolver {
	return func(server string) Client { return client }
}

func TestProcessPlainQueryPassthrough(t *testing.T) {
	pre := New(&fakeArtifacts{}, resolverFor(&fakeClient{}))

	out, err := pre.Process(context.Background(), "just a question")
	require.NoError(t, err)
	assert.Equal(t, "just a question", out.Query)
	assert.False(t, out.IsCommand)
}

func TestProcessExpandsResourceMention(t *testing.T) {
	artifacts := &fakeArtifacts{
		server:    "docs",
		resources: map[string]mcp.ResourceInfo{"readme": {URI: "file:///readme.md", Name: "readme"}},
	}
	client := &fakeClient{resources: map[string]*mcp.ResourceContent{
		"file:///readme.md": {URI: "file:///readme.md", Text: "# Project readme"},
	}}
	pre := New(artifacts, resolverFor(client))

	out, err := pre.Process(context.Background(), "summarize @readme please")
	require.NoError(t, err)
	assert.Contains(t, out.Query, "summarize @readme please")
	assert.Contains(t, out.Query, "[Resource: file:///readme.md (server docs)]")
	assert.Contains(t, out.Query, "# Project readme")
}

func TestProcessUnmatchedMentionStaysLiteral(t *testing.T) {
	pre := New(&fakeArtifacts{}, resolverFor(&fakeClient{}))

	out, err := pre.Process(context.Background(), "ping @nobody about this")
	require.NoError(t, err)
	assert.Equal(t, "ping @nobody about this", out.Query)
}

func TestProcessJSONResourceRendered(t *testing.T) {
	artifacts := &fakeArtifacts{
		server:    "api",
		resources: map[string]mcp.ResourceInfo{"config": {URI: "cfg://main"}},
	}
	client := &fakeClient{resources: map[string]*mcp.ResourceContent{
		"cfg://main": {URI: "cfg://main", JSON: map[string]any{"debug": true}},
	}}
	pre := New(artifacts, resolverFor(client))

	out, err := pre.Process(context.Background(), "check @config")
	require.NoError(t, err)
	assert.Contains(t, out.Query, `"debug": true`)
}

func TestProcessCommandProducesMessages(t *testing.T) {
	artifacts := &fakeArtifacts{
		server: "tools",
		prompts: map[string]mcp.PromptInfo{"review": {
			Name: "review",
			Arguments: []mcp.PromptArgument{
				{Name: "target", Required: true},
				{Name: "style"},
			},
		}},
	}
	client := &fakeClient{messages: []mcp.PromptMessage{
		{Role: "user", Text: "Please review the target."},
		{Role: "assistant", Text: "Understood, reviewing."},
	}}
	pre := New(artifacts, resolverFor(client))

	out, err := pre.Process(context.Background(), `/review target=@main.go style="very strict"`)
	require.NoError(t, err)

	assert.True(t, out.IsCommand)
	assert.Equal(t, "review", out.Command)
	assert.Empty(t, out.Query, "prompt messages carry the context, query stays empty")
	require.Len(t, out.Messages, 2)
	assert.Equal(t, llm.RoleUser, out.Messages[0].Role)
	assert.Equal(t, "Please review the target.", out.Messages[0].Text())
	assert.Equal(t, llm.RoleAssistant, out.Messages[1].Role)

	assert.Equal(t, "main.go", client.promptArgs["target"], "@resource remapped to its id")
	assert.Equal(t, "very strict", client.promptArgs["style"])
}

func TestProcessUnknownCommandFallsThrough(t *testing.T) {
	pre := New(&fakeArtifacts{}, resolverFor(&fakeClient{}))

	out, err := pre.Process(context.Background(), "/frobnicate now")
	require.NoError(t, err)
	assert.False(t, out.IsCommand)
	assert.Equal(t, "/frobnicate now", out.Query)
}

func TestProcessCommandFetchFailureFallsThrough(t *testing.T) {
	artifacts := &fakeArtifacts{
		server:  "tools",
		prompts: map[string]mcp.PromptInfo{"review": {Name: "review"}},
	}
	client := &fakeClient{promptErr: errors.New("server gone")}
	pre := New(artifacts, resolverFor(client))

	out, err := pre.Process(context.Background(), "/review thing")
	require.NoError(t, err)
	assert.False(t, out.IsCommand)
}

func TestDefaultArgumentParser(t *testing.T) {
	spec := []mcp.PromptArgument{{Name: "first"}, {Name: "second"}, {Name: "third"}}
	parser := DefaultArgumentParser{}

	args := parser.Parse(`alpha second="two words" gamma`, spec)
	assert.Equal(t, "alpha", args["first"])
	assert.Equal(t, "two words", args["second"])
	assert.Equal(t, "gamma", args["third"])

	args = parser.Parse("", spec)
	assert.Empty(t, args)

	args = parser.Parse(`'quoted positional'`, spec)
	assert.Equal(t, "quoted positional", args["first"])
}
