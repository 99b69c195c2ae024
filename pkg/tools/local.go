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
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
)

// LocalTool is one in-process function exposed as a tool. Registration is
// explicit: the schema is derived from a typed params struct, not from
// runtime introspection of the handler.
type LocalTool struct {
	name        string
	description string
	schema      map[string]any
	handler     func(ctx context.Context, args map[string]any) (string, error)
}

// NewLocalTool builds a local tool whose JSON schema is reflected from the
// params struct T (json tags name the fields; jsonschema tags refine them).
// The handler receives the decoded params.
func NewLocalTool[T any](name, description string, handler func(ctx context.Context, params T) (string, error)) *LocalTool {
	reflector := &jsonschema.Reflector{DoNotReference: true}
	var prototype T
	schema := reflectSchema(reflector.Reflect(&prototype))

	return &LocalTool{
		name:        name,
		description: description,
		schema:      schema,
		handler: func(ctx context.Context, args map[string]any) (string, error) {
			var params T
			decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
				TagName: "json",
				Result:  &params,
			})
			if err != nil {
				return "", fmt.Errorf("failed to build argument decoder: %w", err)
			}
			if err := decoder.Decode(args); err != nil {
				return "", fmt.Errorf("invalid arguments for %s: %w", name, err)
			}
			return handler(ctx, params)
		},
	}
}

// NewRawLocalTool builds a local tool from an explicit schema and an
// untyped handler, for tools whose arguments do not map to a struct.
func NewRawLocalTool(name, description string, schema map[string]any, handler func(ctx context.Context, args map[string]any) (string, error)) *LocalTool {
	if schema == nil {
		schema = map[string]any{"type": "object"}
	}
	return &LocalTool{name: name, description: description, schema: schema, handler: handler}
}

func reflectSchema(s *jsonschema.Schema) map[string]any {
	data, err := json.Marshal(s)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]any{"type": "object"}
	}
	delete(out, "$schema")
	delete(out, "$id")
	return out
}

func (t *LocalTool) GetName() string { return t.name }

func (t *LocalTool) GetDescription() string { return t.description }

func (t *LocalTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        t.name,
		Description: t.description,
		InputSchema: t.schema,
		SourceType:  SourceTypeLocal,
		SourceID:    "local",
	}
}

func (t *LocalTool) Execute(ctx context.Context, args map[string]any) (ToolResult, error) {
	content, err := t.handler(ctx, args)
	if err != nil {
		return ToolResult{Success: false, Error: err.Error(), ToolName: t.name}, nil
	}
	return ToolResult{Success: true, Content: content, ToolName: t.name}, nil
}

// LocalToolSource holds explicitly registered in-process tools.
type LocalToolSource struct {
	name string

	mu    sync.Mutex
	tools map[string]*LocalTool
}

// NewLocalToolSource creates an empty local source.
func NewLocalToolSource(name string) *LocalToolSource {
	return &LocalToolSource{name: name, tools: make(map[string]*LocalTool)}
}

func (s *LocalToolSource) GetName() string { return s.name }

func (s *LocalToolSource) GetType() string { return SourceTypeLocal }

// Register adds a tool; a duplicate name is an error.
func (s *LocalToolSource) Register(tool *LocalTool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tools[tool.name]; exists {
		return fmt.Errorf("local tool %s already registered", tool.name)
	}
	s.tools[tool.name] = tool
	return nil
}

// DiscoverTools is a no-op; local tools are registered explicitly.
func (s *LocalToolSource) DiscoverTools(ctx context.Context) error { return nil }

func (s *LocalToolSource) ListTools() []ToolInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]ToolInfo, 0, len(s.tools))
	for _, t := range s.tools {
		infos = append(infos, t.GetInfo())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

func (s *LocalToolSource) GetTool(name string) (Tool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tools[name]
	return t, ok
}
