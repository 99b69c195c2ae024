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

package reasoning

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stratum-ai/stratum/pkg/approval"
	"github.com/stratum-ai/stratum/pkg/llm"
	"github.com/stratum-ai/stratum/pkg/tools"
)

const (
	defaultMaxToolRounds   = 10
	defaultExecMaxTokens   = 4096
	toolDeniedResult       = "Tool execution denied by user"
	toolExecutionWithTools = "You have access to tools. Use them when they help answer the query."
)

// Executor runs one query against the LLM with tool dispatch. Tool-use
// blocks are routed through the registry; every call is recorded on the
// tracker. Tool failures come back to the model as error result blocks,
// never as Go errors, so the model can re-plan or narrate.
type Executor struct {
	client        llm.Client
	registry      *tools.Registry
	approvals     *approval.Manager
	systemPrompt  string
	maxTokens     int64
	maxToolRounds int
}

// ExecutorOption customizes an Executor.
type ExecutorOption func(*Executor)

// WithSystemPrompt sets the system preamble for executions.
func WithSystemPrompt(prompt string) ExecutorOption {
	return func(e *Executor) { e.systemPrompt = prompt }
}

// WithMaxTokens bounds response length.
func WithMaxTokens(n int64) ExecutorOption {
	return func(e *Executor) { e.maxTokens = n }
}

// WithMaxToolRounds bounds tool-use round trips per execution.
func WithMaxToolRounds(n int) ExecutorOption {
	return func(e *Executor) { e.maxToolRounds = n }
}

// WithToolApproval routes tool executions through the approval manager.
func WithToolApproval(m *approval.Manager) ExecutorOption {
	return func(e *Executor) { e.approvals = m }
}

// NewExecutor creates an executor over an LLM client and tool registry.
func NewExecutor(client llm.Client, registry *tools.Registry, opts ...ExecutorOption) *Executor {
	e := &Executor{
		client:        client,
		registry:      registry,
		maxTokens:     defaultExecMaxTokens,
		maxToolRounds: defaultMaxToolRounds,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the query through the LLM, dispatching tool calls until
// the model produces a final text answer or the round limit is reached.
func (e *Executor) Execute(ctx context.Context, query string, tracker *Tracker) (string, error) {
	messages := []llm.Message{llm.UserMessage(query)}
	defs := e.toolDefinitions()

	system := e.systemPrompt
	if system == "" && len(defs) > 0 {
		system = toolExecutionWithTools
	}

	var lastText string
	for round := 0; round < e.maxToolRounds; round++ {
		resp, err := e.client.CreateMessage(ctx, llm.Request{
			Messages:  messages,
			System:    system,
			MaxTokens: e.maxTokens,
			Tools:     defs,
		})
		if err != nil {
			return "", fmt.Errorf("execution failed: %w", err)
		}

		if text := resp.Text(); text != "" {
			lastText = text
		}

		toolUses := resp.ToolUses()
		if len(toolUses) == 0 {
			return lastText, nil
		}

		messages = append(messages, llm.AssistantMessage(resp.Content...))

		var resultBlocks []llm.ContentBlock
		for _, use := range toolUses {
			output, isError := e.dispatchTool(ctx, use, tracker)
			resultBlocks = append(resultBlocks, llm.ToolResultBlock(use.ID, output, isError))
		}
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: resultBlocks})
	}

	slog.Warn("Tool round limit reached, returning last text", "rounds", e.maxToolRounds)
	return lastText, nil
}

// dispatchTool runs one tool call, returning the result text and whether
// it is an error block.
func (e *Executor) dispatchTool(ctx context.Context, use llm.ContentBlock, tracker *Tracker) (string, bool) {
	if e.approvals != nil {
		resp, err := e.approvals.RequestApproval(ctx, approval.Request{
			Type:     approval.TypeToolExecution,
			Title:    fmt.Sprintf("Execute tool %s?", use.Name),
			Details:  fingerprintArgs(use.Input),
			ToolName: use.Name,
		})
		if err != nil || !resp.Approved {
			if tracker != nil {
				tracker.RecordToolExecution(use.Name, use.Input, toolDeniedResult)
			}
			return toolDeniedResult, true
		}
	}

	result, err := e.registry.ExecuteTool(ctx, use.Name, use.Input)
	if err != nil {
		msg := fmt.Sprintf("Tool %s failed: %v", use.Name, err)
		if tracker != nil {
			tracker.RecordToolExecution(use.Name, use.Input, msg)
		}
		return msg, true
	}

	if tracker != nil {
		tracker.RecordToolExecution(use.Name, use.Input, result.Content)
	}
	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = result.Content
		}
		return msg, true
	}
	return result.Content, false
}

// toolDefinitions converts the registry's enabled tools to the LLM
// contract shape.
func (e *Executor) toolDefinitions() []llm.ToolDefinition {
	if e.registry == nil {
		return nil
	}
	infos := e.registry.ListTools()
	defs := make([]llm.ToolDefinition, 0, len(infos))
	for _, info := range infos {
		defs = append(defs, llm.ToolDefinition{
			Name:        info.Name,
			Description: info.Description,
			InputSchema: info.InputSchema,
		})
	}
	return defs
}

// ToolNames lists the names the executor can currently dispatch.
func (e *Executor) ToolNames() []string {
	if e.registry == nil {
		return nil
	}
	var names []string
	for _, info := range e.registry.ListTools() {
		names = append(names, info.Name)
	}
	return names
}
