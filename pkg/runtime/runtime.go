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

// Package runtime assembles the agent runtime: the MCP fleet, artifact
// view, tool registry, approval manager, reasoning loop, queues, and
// session persistence behind one facade.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/stratum-ai/stratum/pkg/approval"
	"github.com/stratum-ai/stratum/pkg/artifact"
	"github.com/stratum-ai/stratum/pkg/bus"
	"github.com/stratum-ai/stratum/pkg/config"
	"github.com/stratum-ai/stratum/pkg/llm"
	"github.com/stratum-ai/stratum/pkg/llm/anthropic"
	"github.com/stratum-ai/stratum/pkg/mcp"
	"github.com/stratum-ai/stratum/pkg/observability"
	"github.com/stratum-ai/stratum/pkg/preprocessor"
	"github.com/stratum-ai/stratum/pkg/pricing"
	"github.com/stratum-ai/stratum/pkg/queue"
	"github.com/stratum-ai/stratum/pkg/reasoning"
	"github.com/stratum-ai/stratum/pkg/session"
	"github.com/stratum-ai/stratum/pkg/state"
	"github.com/stratum-ai/stratum/pkg/tools"
)

// Runtime owns every long-lived component of the agent process.
type Runtime struct {
	cfg *config.Config

	eventBus     *bus.Bus
	fleet        *mcp.Manager
	artifacts    *artifact.Manager
	registry     *tools.Registry
	approvals    *approval.Manager
	llmClient    llm.Client
	loop         *reasoning.Loop
	pre          *preprocessor.Preprocessor
	sessions     *session.Manager
	queryQueue   *queue.QueryQueue
	statusQueue  *queue.Processor[queue.StatusUpdate]
	metrics      *observability.Metrics
	collector    *reasoning.MetricsCollector
	pricingTable *pricing.Table
}

// Option customizes runtime assembly, mostly for tests.
type Option func(*options)

type options struct {
	llmClient     llm.Client
	stateProvider state.Provider
	statusSink    queue.StatusSink
	registry      prometheus.Registerer
	approvalCB    approval.Callback
}

// WithLLMClient injects an LLM client instead of the Anthropic provider.
func WithLLMClient(c llm.Client) Option {
	return func(o *options) { o.llmClient = c }
}

// WithStateProvider overrides the filesystem session store.
func WithStateProvider(p state.Provider) Option {
	return func(o *options) { o.stateProvider = p }
}

// WithStatusSink receives ordered status updates for a UI panel.
func WithStatusSink(s queue.StatusSink) Option {
	return func(o *options) { o.statusSink = s }
}

// WithPrometheusRegistry overrides the metrics registry.
func WithPrometheusRegistry(r prometheus.Registerer) Option {
	return func(o *options) { o.registry = r }
}

// WithApprovalCallback registers the UI approval callback.
func WithApprovalCallback(cb approval.Callback) Option {
	return func(o *options) { o.approvalCB = cb }
}

// New assembles a runtime from configuration. Nothing connects until
// Start.
func New(cfg *config.Config, opts ...Option) (*Runtime, error) {
	o := &options{registry: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		opt(o)
	}

	r := &Runtime{
		cfg:          cfg,
		eventBus:     bus.New(),
		metrics:      observability.NewMetrics(o.registry),
		collector:    reasoning.NewMetricsCollector(),
		pricingTable: pricing.Load(cfg.Pricing.Path),
	}

	r.llmClient = o.llmClient
	if r.llmClient == nil {
		provider, err := anthropic.New(anthropic.Config{
			APIKey:           cfg.LLM.APIKey,
			BaseURL:          cfg.LLM.BaseURL,
			Model:            cfg.LLM.Model,
			MaxRetries:       cfg.LLM.MaxRetries,
			RetryDelay:       cfg.LLM.RetryDelay,
			DefaultMaxTokens: cfg.LLM.MaxTokens,
		}, anthropic.WithPricing(r.pricingTable), anthropic.WithMetrics(r.metrics))
		if err != nil {
			return nil, fmt.Errorf("failed to build LLM provider: %w", err)
		}
		r.llmClient = provider
	}

	approvalOpts := []approval.ManagerOption{}
	if !cfg.Approval.Enabled {
		approvalOpts = append(approvalOpts, approval.WithDisabled())
	}
	r.approvals = approval.NewManager(approvalOpts...)
	if o.approvalCB != nil {
		r.approvals.SetCallback(o.approvalCB)
	}

	r.fleet = mcp.NewManager(r.eventBus, mcp.DefaultClientProvider)
	repo := artifact.NewRepository(artifact.ManagerSource{Manager: r.fleet})
	r.artifacts = artifact.NewManager(repo, artifact.NewCache(), r.eventBus)

	r.registry = tools.NewRegistry(tools.NewStateManager(), tools.WithMetrics(r.metrics))

	executorOpts := []reasoning.ExecutorOption{reasoning.WithMaxTokens(cfg.LLM.MaxTokens)}
	if cfg.Approval.Enabled && cfg.Approval.ToolApproval {
		executorOpts = append(executorOpts, reasoning.WithToolApproval(r.approvals))
	}
	executor := reasoning.NewExecutor(r.llmClient, r.registry, executorOpts...)

	loopOpts := []reasoning.LoopOption{
		reasoning.WithThresholds(cfg.Thresholds()),
		reasoning.WithMetricsCollector(r.collector),
		reasoning.WithPrometheusMetrics(r.metrics),
	}
	if cfg.Reasoning.DirectShortcut {
		loopOpts = append(loopOpts, reasoning.WithDirectShortcut())
	}
	if cfg.Approval.Enabled {
		loopOpts = append(loopOpts, reasoning.WithStrategyApproval(r.approvals))
	}
	r.loop = reasoning.NewLoop(r.llmClient, executor, loopOpts...)

	r.pre = preprocessor.New(r.artifacts, preprocessor.ManagerResolver(r.fleet))

	provider := o.stateProvider
	if provider == nil {
		fs, err := state.NewFilesystemProvider(cfg.Session.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open session store: %w", err)
		}
		provider = fs
	}
	r.sessions = session.NewManager(provider, cfg.LLM.Model)

	r.queryQueue = queue.NewQueryQueue(func(ctx context.Context, item queue.QueryItem) error {
		_, err := r.RunQuery(ctx, item.Text)
		return err
	})
	if o.statusSink != nil {
		r.statusQueue = queue.NewStatusQueue(o.statusSink)
		r.wireStatusEvents()
	}

	return r, nil
}

// Start connects the fleet, discovers artifacts and tools, restores the
// session, and starts the queues. Individual server failures are
// isolated; only config-phase errors are fatal.
func (r *Runtime) Start(ctx context.Context) error {
	servers, err := mcp.LoadServersConfig(r.cfg.MCP.ServersFile)
	if err != nil {
		return err
	}

	if err := r.fleet.Initialize(ctx, servers, r.cfg.MCP.UseAuth); err != nil {
		return err
	}

	r.artifacts.RefreshAll(ctx)

	if err := r.registry.RegisterSource(ctx, tools.NewMCPToolSource("mcp", tools.ManagerFleet(r.fleet))); err != nil {
		slog.Warn("MCP tool discovery failed at startup", "error", err)
	}
	if err := r.registry.RegisterSource(ctx, builtinToolSource()); err != nil {
		return fmt.Errorf("failed to register built-in tools: %w", err)
	}

	active, err := r.sessions.GetOrCreateDefaultSession(ctx)
	if err != nil {
		return err
	}
	active.SetAgent(&loopAgent{runtime: r})

	if r.statusQueue != nil {
		r.statusQueue.Start()
	}
	r.queryQueue.Start()

	slog.Info("Runtime started",
		"servers", len(servers),
		"tools", len(r.registry.ListTools()),
		"session", active.Metadata.SessionID)
	return nil
}

// Stop drains the queues, cancels pending approvals, saves the session,
// and disconnects the fleet.
func (r *Runtime) Stop(ctx context.Context) {
	r.queryQueue.Stop()
	if r.statusQueue != nil {
		r.statusQueue.Stop()
	}
	r.approvals.CancelAll("runtime shutting down")

	if r.sessions.Active() != nil {
		if err := r.sessions.SaveActiveSession(ctx); err != nil {
			slog.Error("Failed to save session on shutdown", "error", err)
		}
	}
	r.fleet.Cleanup(ctx)
}

// Submit enqueues a query for FIFO processing.
func (r *Runtime) Submit(query string) int64 {
	return r.queryQueue.Submit(query)
}

// RunQuery preprocesses and executes one query synchronously, recording
// it on the active session's conversation.
func (r *Runtime) RunQuery(ctx context.Context, query string) (string, error) {
	active, err := r.sessions.GetOrCreateDefaultSession(ctx)
	if err != nil {
		return "", err
	}

	processed, err := r.pre.Process(ctx, query)
	if err != nil {
		return "", err
	}

	queryText := processed.Query
	if processed.IsCommand {
		var parts []string
		for _, msg := range processed.Messages {
			active.Conversation.AddMessage(msg)
			if msg.Role == llm.RoleUser {
				parts = append(parts, msg.Text())
			}
		}
		queryText = strings.Join(parts, "\n\n")
	} else {
		active.Conversation.AddUserMessage(processed.Query)
	}

	result, err := r.loop.Run(ctx, queryText, nil)
	if err != nil {
		return "", err
	}

	active.Conversation.AddAssistantText(result.Response)
	active.Touch()
	active.RefreshTitle()

	if err := r.sessions.SaveActiveSession(ctx); err != nil {
		slog.Error("Failed to persist session after query", "error", err)
	}
	return result.Response, nil
}

// Session returns the active session, loading it on first use.
func (r *Runtime) Session(ctx context.Context) (*session.Session, error) {
	return r.sessions.GetOrCreateDefaultSession(ctx)
}

// Components exposed for the CLI and UI layers.

func (r *Runtime) EventBus() *bus.Bus { return r.eventBus }

func (r *Runtime) Fleet() *mcp.Manager { return r.fleet }

func (r *Runtime) Artifacts() *artifact.Manager { return r.artifacts }

func (r *Runtime) Registry() *tools.Registry { return r.registry }

func (r *Runtime) Approvals() *approval.Manager { return r.approvals }

func (r *Runtime) MetricsCollector() *reasoning.MetricsCollector { return r.collector }

func (r *Runtime) Pricing() *pricing.Table { return r.pricingTable }

// loopAgent adapts the runtime to the session agent contract.
type loopAgent struct {
	runtime *Runtime
}

func (a *loopAgent) RunQuery(ctx context.Context, query string) (string, error) {
	return a.runtime.RunQuery(ctx, query)
}

// wireStatusEvents forwards bus events to the status queue so UI
// updates apply strictly in order.
func (r *Runtime) wireStatusEvents() {
	r.eventBus.Subscribe(bus.EventConnectionStatusChanged, bus.Func(func(event bus.Event) {
		if e, ok := event.(bus.ConnectionStatusChanged); ok {
			r.statusQueue.Enqueue(queue.StatusUpdate{
				Kind:       queue.StatusKindConnection,
				ServerName: e.ServerName(),
				Message:    fmt.Sprintf("%s -> %s", e.Previous, e.Current),
				Payload:    e,
			})
		}
	}))
	r.eventBus.Subscribe(bus.EventReconnectProgress, bus.Func(func(event bus.Event) {
		if e, ok := event.(bus.ReconnectProgress); ok {
			r.statusQueue.Enqueue(queue.StatusUpdate{
				Kind:       queue.StatusKindProgress,
				ServerName: e.ServerName(),
				Message:    fmt.Sprintf("reconnect attempt %d", e.Attempt),
				Payload:    e,
			})
		}
	}))
	r.eventBus.Subscribe(bus.EventArtifactsFetched, bus.Func(func(event bus.Event) {
		if e, ok := event.(bus.ArtifactsFetched); ok {
			r.statusQueue.Enqueue(queue.StatusUpdate{
				Kind:       queue.StatusKindArtifacts,
				ServerName: e.ServerName(),
				Payload:    e,
			})
		}
	}))
}
