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

// Package preprocessor expands @resource mentions and /prompt commands
// before a query reaches the reasoning loop.
package preprocessor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/stratum-ai/stratum/pkg/llm"
	"github.com/stratum-ai/stratum/pkg/mcp"
)

// Artifacts is the aggregated artifact view the preprocessor consults.
// *artifact.Manager satisfies it.
type Artifacts interface {
	FindResource(token string) (mcp.ResourceInfo, string, bool)
	FindPrompt(name string) (mcp.PromptInfo, string, bool)
	CommandNames() []string
}

// Client is the slice of the MCP client surface the preprocessor needs.
type Client interface {
	GetPrompt(ctx context.Context, name string, args map[string]string) ([]mcp.PromptMessage, error)
	ReadResource(ctx context.Context, uri string) (*mcp.ResourceContent, error)
}

// ClientResolver maps a server name to its client, nil when unavailable.
type ClientResolver func(server string) Client

// ManagerResolver adapts the connection manager to a ClientResolver.
func ManagerResolver(m *mcp.Manager) ClientResolver {
	return func(server string) Client {
		client := m.Client(server)
		if client == nil {
			return nil
		}
		return client
	}
}

// Output is the preprocessed form of a user query.
type Output struct {
	// Query is the expanded query text. Empty for prompt commands: the
	// Messages already carry the context and the loop runs on them.
	Query string

	// Messages are prompt-command messages to append to the
	// conversation before invoking the loop.
	Messages []llm.Message

	// IsCommand reports whether the input was a recognized /command.
	IsCommand bool
	Command   string
}

// Option customizes a Preprocessor.
type Option func(*Preprocessor)

// WithArgumentParser swaps the prompt argument parser.
func WithArgumentParser(p ArgumentParser) Option {
	return func(pre *Preprocessor) { pre.parser = p }
}

// Preprocessor rewrites queries using the artifact view and the MCP
// prompt and resource surfaces.
type Preprocessor struct {
	artifacts Artifacts
	resolve   ClientResolver
	parser    ArgumentParser
}

// New creates a preprocessor with the default argument parser.
func New(artifacts Artifacts, resolve ClientResolver, opts ...Option) *Preprocessor {
	p := &Preprocessor{artifacts: artifacts, resolve: resolve, parser: DefaultArgumentParser{}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var mentionPattern = regexp.MustCompile(`@([\w./:\-]+)`)

// Process expands the query. Prompt commands resolve to conversation
// messages with an empty query; resource mentions append context
// envelopes; everything else passes through untouched.
func (p *Preprocessor) Process(ctx context.Context, query string) (Output, error) {
	trimmed := strings.TrimSpace(query)
	if strings.HasPrefix(trimmed, "/") {
		if out, ok := p.processCommand(ctx, trimmed); ok {
			return out, nil
		}
	}
	return Output{Query: p.expandMentions(ctx, query)}, nil
}

// processCommand resolves a /name invocation against known prompts.
// Unknown commands fall back to mention expansion of the raw text.
func (p *Preprocessor) processCommand(ctx context.Context, query string) (Output, bool) {
	name, rawArgs, _ := strings.Cut(strings.TrimPrefix(query, "/"), " ")
	if name == "" {
		return Output{}, false
	}

	prompt, server, found := p.artifacts.FindPrompt(name)
	if !found {
		return Output{}, false
	}
	client := p.resolve(server)
	if client == nil {
		slog.Warn("Prompt command server unavailable", "command", name, "server", server)
		return Output{}, false
	}

	args := p.parser.Parse(rawArgs, prompt.Arguments)
	for _, arg := range prompt.Arguments {
		if arg.Required && args[arg.Name] == "" {
			slog.Warn("Prompt command missing required argument", "command", name, "argument", arg.Name)
		}
	}

	messages, err := client.GetPrompt(ctx, name, args)
	if err != nil {
		slog.Warn("Prompt command fetch failed", "command", name, "server", server, "error", err)
		return Output{}, false
	}

	out := Output{IsCommand: true, Command: name}
	for _, msg := range messages {
		role := llm.RoleUser
		if msg.Role == "assistant" {
			role = llm.RoleAssistant
		}
		out.Messages = append(out.Messages, llm.Message{
			Role:    role,
			Content: []llm.ContentBlock{llm.TextBlock(msg.Text)},
		})
	}
	return out, true
}

// expandMentions appends a context envelope for every @token that
// resolves to a resource. Unmatched tokens stay literal text.
func (p *Preprocessor) expandMentions(ctx context.Context, query string) string {
	matches := mentionPattern.FindAllStringSubmatch(query, -1)
	if len(matches) == 0 {
		return query
	}

	var envelopes []string
	seen := make(map[string]bool)
	for _, match := range matches {
		token := match[1]
		if seen[token] {
			continue
		}
		seen[token] = true

		resource, server, found := p.artifacts.FindResource(token)
		if !found {
			continue
		}
		client := p.resolve(server)
		if client == nil {
			continue
		}

		content, err := client.ReadResource(ctx, resource.URI)
		if err != nil || content == nil {
			slog.Debug("Resource mention fetch failed", "token", token, "uri", resource.URI, "error", err)
			continue
		}
		envelopes = append(envelopes, renderEnvelope(resource, server, content))
	}

	if len(envelopes) == 0 {
		return query
	}
	return query + "\n\n" + strings.Join(envelopes, "\n\n")
}

func renderEnvelope(resource mcp.ResourceInfo, server string, content *mcp.ResourceContent) string {
	body := content.Text
	if content.JSON != nil {
		if data, err := json.MarshalIndent(content.JSON, "", "  "); err == nil {
			body = string(data)
		}
	}
	return fmt.Sprintf("[Resource: %s (server %s)]\n%s", resource.URI, server, body)
}
