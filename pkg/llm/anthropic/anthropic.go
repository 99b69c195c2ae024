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

// Package anthropic implements the llm.Client contract over the Anthropic
// Messages API with automatic retry on transient failures.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/stratum-ai/stratum/pkg/llm"
	"github.com/stratum-ai/stratum/pkg/observability"
	"github.com/stratum-ai/stratum/pkg/pricing"
)

const (
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 4096
)

// Config holds provider settings.
type Config struct {
	APIKey           string
	BaseURL          string
	Model            string
	MaxRetries       int
	RetryDelay       time.Duration
	DefaultMaxTokens int64
}

// Provider implements llm.Client over the Anthropic SDK.
type Provider struct {
	client     anthropic.Client
	model      string
	maxRetries int
	retryDelay time.Duration
	maxTokens  int64
	pricing    *pricing.Table
	metrics    *observability.Metrics
}

// ProviderOption customizes a Provider.
type ProviderOption func(*Provider)

// WithPricing enables per-call cost logging from reported usage.
func WithPricing(table *pricing.Table) ProviderOption {
	return func(p *Provider) { p.pricing = table }
}

// WithMetrics records request counters and token usage.
func WithMetrics(m *observability.Metrics) ProviderOption {
	return func(p *Provider) { p.metrics = m }
}

// New creates a provider. The API key is required.
func New(cfg Config, opts ...ProviderOption) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.DefaultMaxTokens <= 0 {
		cfg.DefaultMaxTokens = defaultMaxTokens
	}

	options := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		options = append(options, option.WithBaseURL(cfg.BaseURL))
	}

	p := &Provider{
		client:     anthropic.NewClient(options...),
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		maxTokens:  cfg.DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Model returns the configured model id.
func (p *Provider) Model() string { return p.model }

// CreateMessage sends one non-streaming Messages API request, retrying
// transient failures with exponential backoff.
func (p *Provider) CreateMessage(ctx context.Context, req llm.Request) (*llm.Response, error) {
	params, err := p.buildParams(req)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			delay := p.retryDelay * time.Duration(1<<(attempt-1))
			slog.Debug("Retrying LLM request", "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		msg, err := p.client.Messages.New(ctx, params)
		if err == nil {
			resp := p.convertResponse(msg)
			p.record(resp, nil)
			return resp, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}
		slog.Warn("LLM request failed with retryable error", "attempt", attempt, "error", err)
	}

	p.record(nil, lastErr)
	return nil, fmt.Errorf("anthropic: request failed: %w", lastErr)
}

func (p *Provider) buildParams(req llm.Request) (anthropic.MessageNewParams, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.maxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: maxTokens,
	}

	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: req.System}}
	}

	for _, msg := range req.Messages {
		converted, err := convertMessage(msg)
		if err != nil {
			return params, err
		}
		params.Messages = append(params.Messages, converted)
	}

	for _, tool := range req.Tools {
		schemaJSON, err := json.Marshal(tool.InputSchema)
		if err != nil {
			return params, fmt.Errorf("invalid schema for tool %s: %w", tool.Name, err)
		}
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(schemaJSON, &schema); err != nil {
			return params, fmt.Errorf("invalid schema for tool %s: %w", tool.Name, err)
		}
		toolParam := anthropic.ToolUnionParamOfTool(schema, tool.Name)
		if toolParam.OfTool == nil {
			return params, fmt.Errorf("invalid tool definition for %s", tool.Name)
		}
		toolParam.OfTool.Description = anthropic.String(tool.Description)
		params.Tools = append(params.Tools, toolParam)
	}

	return params, nil
}

func convertMessage(msg llm.Message) (anthropic.MessageParam, error) {
	var blocks []anthropic.ContentBlockParamUnion
	for _, block := range msg.Content {
		switch block.Type {
		case llm.BlockTypeText:
			blocks = append(blocks, anthropic.NewTextBlock(block.Text))
		case llm.BlockTypeToolUse:
			input := block.Input
			if input == nil {
				input = map[string]any{}
			}
			blocks = append(blocks, anthropic.NewToolUseBlock(block.ID, input, block.Name))
		case llm.BlockTypeToolResult:
			blocks = append(blocks, anthropic.NewToolResultBlock(block.ToolUseID, block.Content, block.IsError))
		default:
			return anthropic.MessageParam{}, fmt.Errorf("unknown content block type %q", block.Type)
		}
	}

	if msg.Role == llm.RoleAssistant {
		return anthropic.NewAssistantMessage(blocks...), nil
	}
	return anthropic.NewUserMessage(blocks...), nil
}

func (p *Provider) convertResponse(msg *anthropic.Message) *llm.Response {
	resp := &llm.Response{
		StopReason: string(msg.StopReason),
		Model:      p.model,
		Usage: llm.Usage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}

	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			resp.Content = append(resp.Content, llm.TextBlock(b.Text))
		case anthropic.ToolUseBlock:
			var input map[string]any
			if err := json.Unmarshal(b.Input, &input); err != nil {
				slog.Warn("Failed to decode tool input", "tool", b.Name, "error", err)
				input = map[string]any{}
			}
			resp.Content = append(resp.Content, llm.ToolUseBlock(b.ID, b.Name, input))
		}
	}
	return resp
}

func (p *Provider) record(resp *llm.Response, err error) {
	if p.metrics != nil {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		p.metrics.LLMRequestsTotal.WithLabelValues(p.model, outcome).Inc()
		if resp != nil {
			p.metrics.LLMTokensTotal.WithLabelValues(p.model, "input").Add(float64(resp.Usage.InputTokens))
			p.metrics.LLMTokensTotal.WithLabelValues(p.model, "output").Add(float64(resp.Usage.OutputTokens))
		}
	}
	if p.pricing != nil && resp != nil {
		cost := p.pricing.Cost(p.model, resp.Usage.InputTokens, resp.Usage.OutputTokens)
		slog.Debug("LLM call cost",
			"model", p.model,
			"input_tokens", resp.Usage.InputTokens,
			"output_tokens", resp.Usage.OutputTokens,
			"cost_usd", fmt.Sprintf("%.6f", cost))
	}
}

// isRetryableError classifies transient failures worth retrying: rate
// limits, 5xx server errors, timeouts, and connection drops.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())

	if strings.Contains(msg, "rate_limit") ||
		strings.Contains(msg, "429") ||
		strings.Contains(msg, "too many requests") {
		return true
	}
	if strings.Contains(msg, "500") ||
		strings.Contains(msg, "502") ||
		strings.Contains(msg, "503") ||
		strings.Contains(msg, "504") ||
		strings.Contains(msg, "internal server error") ||
		strings.Contains(msg, "bad gateway") ||
		strings.Contains(msg, "service unavailable") ||
		strings.Contains(msg, "gateway timeout") {
		return true
	}
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded") {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") {
		return true
	}
	return false
}

var _ llm.Client = (*Provider)(nil)
