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

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	clientName      = "stratum"
	clientVersion   = "0.1.0"
	protocolVersion = "2024-11-05"

	defaultOAuthPort = 3030

	// Health probe operations.
	HealthOpPing      = "ping"
	HealthOpListTools = "tools/list"
)

// Client manages one MCP upstream: connection lifecycle, health monitoring,
// reconnection with backoff, and the tool/prompt/resource operations.
//
// All operations degrade safely when no session is active: they log and
// return an empty result, never an error, so one dead server cannot take
// down a multi-server query.
type Client struct {
	name       string
	cfg        ServerConfig
	lifecycle  *Lifecycle
	strategy   *ReconnectionStrategy
	tokenStore *transport.MemoryTokenStore
	oauthPort  int

	healthInterval  time.Duration
	healthTimeout   time.Duration
	healthThreshold int
	healthOperation string

	runCtx    context.Context
	runCancel context.CancelFunc

	mu           sync.Mutex
	session      *client.Client
	healthCancel context.CancelFunc
	useAuth      bool
	reconnecting bool
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithReconnectionStrategy overrides the default backoff strategy.
func WithReconnectionStrategy(s *ReconnectionStrategy) ClientOption {
	return func(c *Client) { c.strategy = s }
}

// WithHealthCheck overrides probe interval, per-probe timeout, and the
// consecutive-failure threshold.
func WithHealthCheck(interval, timeout time.Duration, threshold int) ClientOption {
	return func(c *Client) {
		c.healthInterval = interval
		c.healthTimeout = timeout
		c.healthThreshold = threshold
	}
}

// WithHealthOperation names the probe call: "ping" (default) or "tools/list".
func WithHealthOperation(op string) ClientOption {
	return func(c *Client) { c.healthOperation = op }
}

// WithOAuthPort sets the local OAuth callback port.
func WithOAuthPort(port int) ClientOption {
	return func(c *Client) { c.oauthPort = port }
}

// NewClient creates a client for one server entry. Remote entries whose URL
// points at an SSE endpoint are rejected here: only streamable HTTP is
// supported for remote servers.
func NewClient(name string, cfg ServerConfig, lifecycle *Lifecycle, opts ...ClientOption) (*Client, error) {
	if cfg.IsRemote() {
		if err := rejectSSE(cfg.RemoteURL()); err != nil {
			return nil, err
		}
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	c := &Client{
		name:            name,
		cfg:             cfg,
		lifecycle:       lifecycle,
		strategy:        NewReconnectionStrategy(),
		tokenStore:      transport.NewMemoryTokenStore(),
		oauthPort:       defaultOAuthPort,
		healthInterval:  30 * time.Second,
		healthTimeout:   10 * time.Second,
		healthThreshold: 3,
		healthOperation: HealthOpPing,
		runCtx:          runCtx,
		runCancel:       runCancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func rejectSSE(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid server URL %q: %w", rawURL, err)
	}
	if strings.HasSuffix(strings.TrimSuffix(u.Path, "/"), "/sse") {
		return fmt.Errorf("SSE transport is not supported (url %s); use a streamable HTTP endpoint", rawURL)
	}
	return nil
}

// Name returns the server name.
func (c *Client) Name() string { return c.name }

// Status returns the lifecycle status and error message.
func (c *Client) Status() (Status, string) { return c.lifecycle.Status() }

// Ready returns the lifecycle ready signal.
func (c *Client) Ready() <-chan struct{} { return c.lifecycle.Ready() }

// Connect establishes the session and starts health monitoring. It returns
// once the lifecycle signals ready. With useAuth, the streamable HTTP
// transport is wrapped with an OAuth (PKCE) provider; a fresh OAuth flow
// state is built per attempt so stale callback codes are never reused.
func (c *Client) Connect(ctx context.Context, useAuth bool) error {
	c.mu.Lock()
	c.useAuth = useAuth
	c.mu.Unlock()

	c.lifecycle.BeginConnect()

	session, err := c.establish(ctx, useAuth)
	if err != nil {
		c.lifecycle.MarkError(err.Error())
		return fmt.Errorf("failed to connect to %s: %w", c.name, err)
	}

	c.installSession(session)
	c.lifecycle.MarkConnected()
	c.startHealthMonitor()
	slog.Info("Connected to MCP server", "server", c.name, "remote", c.cfg.IsRemote())
	return nil
}

// Disconnect stops health monitoring and closes the session.
func (c *Client) Disconnect() error {
	c.stopHealthMonitor()

	c.mu.Lock()
	session := c.session
	c.session = nil
	c.mu.Unlock()

	var err error
	if session != nil {
		err = session.Close()
	}
	c.lifecycle.MarkDisconnected()
	if err != nil {
		return fmt.Errorf("failed to close session for %s: %w", c.name, err)
	}
	return nil
}

// Close releases the client permanently.
func (c *Client) Close() error {
	err := c.Disconnect()
	c.runCancel()
	return err
}

// RetryConnection manually re-enters the reconnection cycle, typically after
// the lifecycle landed in ERROR and a supervisor wants another round.
func (c *Client) RetryConnection(ctx context.Context, useAuth bool) error {
	c.mu.Lock()
	c.useAuth = useAuth
	c.mu.Unlock()
	return c.reconnect(ctx)
}

func (c *Client) establish(ctx context.Context, useAuth bool) (*client.Client, error) {
	var (
		session *client.Client
		err     error
	)
	if c.cfg.IsRemote() {
		baseURL := c.cfg.RemoteURL()
		if useAuth {
			oauthCfg := client.OAuthConfig{
				ClientID:    clientName,
				RedirectURI: fmt.Sprintf("http://localhost:%d/callback", c.oauthPort),
				Scopes:      []string{},
				TokenStore:  c.tokenStore,
				PKCEEnabled: true,
			}
			session, err = client.NewOAuthStreamableHttpClient(baseURL, oauthCfg)
		} else {
			session, err = client.NewStreamableHttpClient(baseURL)
		}
	} else {
		session, err = client.NewStdioMCPClient(c.cfg.Command, c.cfg.Env, c.cfg.Args...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP client: %w", err)
	}

	if err := session.Start(ctx); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to start MCP client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    clientName,
		Version: clientVersion,
	}
	initReq.Params.ProtocolVersion = protocolVersion

	if _, err := session.Initialize(ctx, initReq); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to initialize MCP session: %w", err)
	}
	return session, nil
}

func (c *Client) installSession(session *client.Client) {
	c.mu.Lock()
	c.session = session
	c.mu.Unlock()
}

func (c *Client) currentSession() *client.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// --- health monitoring and reconnection ---

func (c *Client) startHealthMonitor() {
	c.stopHealthMonitor()

	healthCtx, cancel := context.WithCancel(c.runCtx)
	c.mu.Lock()
	c.healthCancel = cancel
	c.mu.Unlock()

	checker := NewHealthChecker(c.name, c.healthInterval, c.healthTimeout, c.healthThreshold,
		c.probe,
		func() {
			go func() {
				if err := c.reconnect(c.runCtx); err != nil {
					slog.Error("Reconnection failed", "server", c.name, "error", err)
				}
			}()
		})
	go checker.Run(healthCtx)
}

func (c *Client) stopHealthMonitor() {
	c.mu.Lock()
	cancel := c.healthCancel
	c.healthCancel = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *Client) probe(ctx context.Context) error {
	session := c.currentSession()
	if session == nil {
		return fmt.Errorf("no active session")
	}
	if c.healthOperation == HealthOpListTools {
		_, err := session.ListTools(ctx, mcp.ListToolsRequest{})
		return err
	}
	return session.Ping(ctx)
}

// reconnect runs the backoff cycle until connected or the attempt budget is
// exhausted. Only one cycle runs at a time.
func (c *Client) reconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.reconnecting {
		c.mu.Unlock()
		return nil
	}
	c.reconnecting = true
	useAuth := c.useAuth
	oldSession := c.session
	c.session = nil
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.reconnecting = false
		c.mu.Unlock()
	}()

	c.stopHealthMonitor()
	if oldSession != nil {
		oldSession.Close()
	}

	c.lifecycle.BeginReconnect()

	var lastErr error
	for attempt := 1; c.strategy.ShouldRetry(attempt); attempt++ {
		if !c.strategy.WaitBeforeRetry(ctx, attempt, func(remaining time.Duration) {
			c.lifecycle.PublishReconnectProgress(attempt, remaining)
		}) {
			c.lifecycle.MarkDisconnected()
			return ctx.Err()
		}

		slog.Info("Reconnection attempt", "server", c.name, "attempt", attempt, "max_attempts", c.strategy.MaxAttempts())
		session, err := c.establish(ctx, useAuth)
		if err == nil {
			c.installSession(session)
			c.lifecycle.MarkConnected()
			c.startHealthMonitor()
			slog.Info("Reconnected to MCP server", "server", c.name, "attempts", attempt)
			return nil
		}
		lastErr = err
		slog.Warn("Reconnection attempt failed", "server", c.name, "attempt", attempt, "error", err)
	}

	msg := fmt.Sprintf("reconnection attempts exhausted after %d tries", c.strategy.MaxAttempts())
	if lastErr != nil {
		msg = fmt.Sprintf("%s: %v", msg, lastErr)
	}
	c.lifecycle.MarkError(msg)
	return fmt.Errorf("failed to reconnect to %s: %s", c.name, msg)
}

// --- MCP operations ---

// ListTools lists the upstream's tools. Returns empty when no session.
func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	session := c.currentSession()
	if session == nil {
		slog.Debug("ListTools skipped, no active session", "server", c.name)
		return nil, nil
	}

	resp, err := session.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tools on %s: %w", c.name, err)
	}

	tools := make([]ToolInfo, 0, len(resp.Tools))
	for _, t := range resp.Tools {
		tools = append(tools, ToolInfo{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: convertSchema(t.InputSchema),
		})
	}
	return tools, nil
}

// CallTool invokes a tool. Returns nil when no session is active.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	session := c.currentSession()
	if session == nil {
		slog.Debug("CallTool skipped, no active session", "server", c.name, "tool", name)
		return nil, nil
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	resp, err := session.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("tool call %s failed on %s: %w", name, c.name, err)
	}

	var sb strings.Builder
	for _, content := range resp.Content {
		if text, ok := content.(mcp.TextContent); ok {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(text.Text)
		}
	}
	return &ToolResult{Content: sb.String(), IsError: resp.IsError}, nil
}

// ListPrompts lists the upstream's prompts. Returns empty when no session.
func (c *Client) ListPrompts(ctx context.Context) ([]PromptInfo, error) {
	session := c.currentSession()
	if session == nil {
		slog.Debug("ListPrompts skipped, no active session", "server", c.name)
		return nil, nil
	}

	resp, err := session.ListPrompts(ctx, mcp.ListPromptsRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list prompts on %s: %w", c.name, err)
	}

	prompts := make([]PromptInfo, 0, len(resp.Prompts))
	for _, p := range resp.Prompts {
		info := PromptInfo{Name: p.Name, Description: p.Description}
		for _, arg := range p.Arguments {
			info.Arguments = append(info.Arguments, PromptArgument{
				Name:        arg.Name,
				Description: arg.Description,
				Required:    arg.Required,
			})
		}
		prompts = append(prompts, info)
	}
	return prompts, nil
}

// GetPrompt expands a server-hosted prompt into messages. Returns empty
// when no session.
func (c *Client) GetPrompt(ctx context.Context, name string, args map[string]string) ([]PromptMessage, error) {
	session := c.currentSession()
	if session == nil {
		slog.Debug("GetPrompt skipped, no active session", "server", c.name, "prompt", name)
		return nil, nil
	}

	req := mcp.GetPromptRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	resp, err := session.GetPrompt(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get prompt %s on %s: %w", name, c.name, err)
	}

	messages := make([]PromptMessage, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		if text, ok := m.Content.(mcp.TextContent); ok {
			messages = append(messages, PromptMessage{Role: string(m.Role), Text: text.Text})
		}
	}
	return messages, nil
}

// ListResources lists the upstream's resources. Returns empty when no
// session.
func (c *Client) ListResources(ctx context.Context) ([]ResourceInfo, error) {
	session := c.currentSession()
	if session == nil {
		slog.Debug("ListResources skipped, no active session", "server", c.name)
		return nil, nil
	}

	resp, err := session.ListResources(ctx, mcp.ListResourcesRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list resources on %s: %w", c.name, err)
	}

	resources := make([]ResourceInfo, 0, len(resp.Resources))
	for _, r := range resp.Resources {
		resources = append(resources, ResourceInfo{
			URI:         r.URI,
			Name:        r.Name,
			Description: r.Description,
			MIMEType:    r.MIMEType,
		})
	}
	return resources, nil
}

// ReadResource fetches one resource. JSON payloads are decoded if and only
// if the MIME type is application/json; malformed JSON returns nil. Returns
// nil when no session.
func (c *Client) ReadResource(ctx context.Context, uri string) (*ResourceContent, error) {
	session := c.currentSession()
	if session == nil {
		slog.Debug("ReadResource skipped, no active session", "server", c.name, "uri", uri)
		return nil, nil
	}

	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri

	resp, err := session.ReadResource(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to read resource %s on %s: %w", uri, c.name, err)
	}

	for _, content := range resp.Contents {
		text, ok := content.(mcp.TextResourceContents)
		if !ok {
			continue
		}
		result := &ResourceContent{URI: text.URI, MIMEType: text.MIMEType, Text: text.Text}
		if text.MIMEType == "application/json" {
			var decoded any
			if err := json.Unmarshal([]byte(text.Text), &decoded); err != nil {
				slog.Warn("Resource claims JSON but failed to decode", "server", c.name, "uri", uri, "error", err)
				return nil, nil
			}
			result.JSON = decoded
		}
		return result, nil
	}
	return nil, nil
}

// convertSchema flattens the mcp-go schema type into a plain map through a
// JSON round trip.
func convertSchema(schema mcp.ToolInputSchema) map[string]any {
	data, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return map[string]any{"type": "object"}
	}
	return result
}
