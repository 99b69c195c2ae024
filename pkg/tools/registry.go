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
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/stratum-ai/stratum/pkg/observability"
)

// ToolRegistryError provides structured error information for registry
// operations.
type ToolRegistryError struct {
	Component string
	Action    string
	Message   string
	Err       error
}

func (e *ToolRegistryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Component, e.Action, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Component, e.Action, e.Message)
}

func (e *ToolRegistryError) Unwrap() error { return e.Err }

// NewToolRegistryError creates a structured registry error.
func NewToolRegistryError(component, action, message string, err error) *ToolRegistryError {
	return &ToolRegistryError{Component: component, Action: action, Message: message, Err: err}
}

// ToolEntry associates a registered tool with its source.
type ToolEntry struct {
	Tool       Tool
	Source     ToolSource
	SourceType string
	Name       string
}

// Registry is the union of all tool sources. Definitions are filtered by
// the state manager's disabled set; execution is not (the definition
// surface is the gate).
type Registry struct {
	mu      sync.Mutex
	sources []ToolSource
	entries map[string]ToolEntry
	state   *StateManager
	metrics *observability.Metrics
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithMetrics records tool execution counters and durations.
func WithMetrics(m *observability.Metrics) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

// NewRegistry creates an empty registry.
func NewRegistry(state *StateManager, opts ...RegistryOption) *Registry {
	if state == nil {
		state = NewStateManager()
	}
	r := &Registry{
		entries: make(map[string]ToolEntry),
		state:   state,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the tool state manager.
func (r *Registry) State() *StateManager { return r.state }

// RegisterSource adds a source and registers its current tools. Name
// collisions keep the first registration and log the skip.
func (r *Registry) RegisterSource(ctx context.Context, source ToolSource) error {
	if source.GetName() == "" {
		return NewToolRegistryError("Registry", "RegisterSource", "source name cannot be empty", nil)
	}

	if err := source.DiscoverTools(ctx); err != nil {
		return NewToolRegistryError("Registry", "RegisterSource",
			fmt.Sprintf("failed to discover tools from source %s", source.GetName()), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sources = append(r.sources, source)
	r.registerSourceToolsLocked(source)
	return nil
}

// DiscoverAllTools re-runs discovery on every source and rebuilds the entry
// map. A source that fails discovery is skipped with a warning.
func (r *Registry) DiscoverAllTools(ctx context.Context) error {
	r.mu.Lock()
	sources := append([]ToolSource(nil), r.sources...)
	r.mu.Unlock()

	for _, source := range sources {
		if err := source.DiscoverTools(ctx); err != nil {
			slog.Warn("Failed to discover tools from source", "source", source.GetName(), "error", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = make(map[string]ToolEntry)
	for _, source := range r.sources {
		r.registerSourceToolsLocked(source)
	}
	return nil
}

func (r *Registry) registerSourceToolsLocked(source ToolSource) {
	for _, info := range source.ListTools() {
		tool, ok := source.GetTool(info.Name)
		if !ok {
			slog.Warn("Tool listed but not available", "tool", info.Name, "source", source.GetName())
			continue
		}
		if existing, exists := r.entries[info.Name]; exists {
			slog.Warn("Tool name conflict, keeping first registration",
				"tool", info.Name,
				"kept_source", existing.Source.GetName(),
				"skipped_source", source.GetName())
			continue
		}
		r.entries[info.Name] = ToolEntry{
			Tool:       tool,
			Source:     source,
			SourceType: source.GetType(),
			Name:       info.Name,
		}
	}
}

// GetTool returns the named tool regardless of disabled state.
func (r *Registry) GetTool(name string) (Tool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[name]
	if !ok {
		return nil, NewToolRegistryError("Registry", "GetTool",
			fmt.Sprintf("tool %s not found", name), nil)
	}
	return entry.Tool, nil
}

// ListTools returns enabled tool definitions, sorted by name.
func (r *Registry) ListTools() []ToolInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]ToolInfo, 0, len(r.entries))
	for name, entry := range r.entries {
		if r.state.IsDisabled(name) {
			continue
		}
		infos = append(infos, entry.Tool.GetInfo())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// GetToolSource returns the source name that owns a tool.
func (r *Registry) GetToolSource(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[name]
	if !ok {
		return "", NewToolRegistryError("Registry", "GetToolSource",
			fmt.Sprintf("tool %s not found", name), nil)
	}
	return entry.Source.GetName(), nil
}

// ExecuteTool routes an execution by name. A missing tool returns an error
// result so the caller can surface it to the LLM as a text block.
func (r *Registry) ExecuteTool(ctx context.Context, name string, args map[string]any) (ToolResult, error) {
	start := time.Now()

	tracer := observability.GetTracer("stratum.tools")
	ctx, span := tracer.Start(ctx, "tool.execute")
	span.SetAttributes(attribute.String("tool.name", name))
	defer span.End()

	tool, err := r.GetTool(name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "tool not found")
		r.recordExecution(name, start, false)
		return ToolResult{Success: false, Error: err.Error(), ToolName: name}, err
	}

	result, execErr := tool.Execute(ctx, args)
	result.ToolName = name
	result.ExecutionTime = time.Since(start)

	switch {
	case execErr != nil:
		span.RecordError(execErr)
		span.SetStatus(codes.Error, execErr.Error())
	case !result.Success:
		span.SetStatus(codes.Error, result.Error)
	default:
		span.SetStatus(codes.Ok, "success")
	}
	span.SetAttributes(
		attribute.Bool("tool.success", result.Success),
		attribute.Int64("tool.duration_ms", result.ExecutionTime.Milliseconds()),
	)
	r.recordExecution(name, start, execErr == nil && result.Success)

	return result, execErr
}

func (r *Registry) recordExecution(name string, start time.Time, success bool) {
	if r.metrics == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "error"
	}
	r.metrics.ToolCallsTotal.WithLabelValues(name, outcome).Inc()
	r.metrics.ToolCallDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
}
