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

// Package observability provides tracing and metrics instrumentation.
//
// Tracing goes through the global OpenTelemetry tracer provider; when no
// provider is installed the spans are no-ops, so instrumented code paths
// carry no configuration burden.
package observability

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/prometheus/client_golang/prometheus"
)

// GetTracer returns a tracer from the global provider.
func GetTracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// Metrics holds the prometheus instruments for the runtime.
type Metrics struct {
	QueriesTotal      *prometheus.CounterVec
	EscalationsTotal  prometheus.Counter
	QueryDuration     *prometheus.HistogramVec
	QualityScore      *prometheus.HistogramVec
	ToolCallsTotal    *prometheus.CounterVec
	ToolCallDuration  *prometheus.HistogramVec
	LLMRequestsTotal  *prometheus.CounterVec
	LLMTokensTotal    *prometheus.CounterVec
	ConnectionsUp     *prometheus.GaugeVec
	ReconnectAttempts *prometheus.CounterVec
}

// NewMetrics creates the instrument set and registers it on reg.
// Pass prometheus.NewRegistry() in tests to avoid global registry collisions.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		QueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stratum_queries_total",
			Help: "Queries processed, labeled by final strategy.",
		}, []string{"strategy"}),
		EscalationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stratum_escalations_total",
			Help: "Strategy escalations across all queries.",
		}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stratum_query_duration_seconds",
			Help:    "End-to-end query duration, labeled by final strategy.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"strategy"}),
		QualityScore: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stratum_quality_score",
			Help:    "Final quality score per query, labeled by final strategy.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}, []string{"strategy"}),
		ToolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stratum_tool_calls_total",
			Help: "Tool executions, labeled by tool and outcome.",
		}, []string{"tool", "outcome"}),
		ToolCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stratum_tool_call_duration_seconds",
			Help:    "Tool execution duration.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"tool"}),
		LLMRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stratum_llm_requests_total",
			Help: "LLM API requests, labeled by model and outcome.",
		}, []string{"model", "outcome"}),
		LLMTokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stratum_llm_tokens_total",
			Help: "LLM token usage, labeled by model and direction.",
		}, []string{"model", "direction"}),
		ConnectionsUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stratum_mcp_connection_up",
			Help: "1 when the named MCP server is connected.",
		}, []string{"server"}),
		ReconnectAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stratum_mcp_reconnect_attempts_total",
			Help: "Reconnection attempts per MCP server.",
		}, []string{"server"}),
	}

	reg.MustRegister(
		m.QueriesTotal,
		m.EscalationsTotal,
		m.QueryDuration,
		m.QualityScore,
		m.ToolCallsTotal,
		m.ToolCallDuration,
		m.LLMRequestsTotal,
		m.LLMTokensTotal,
		m.ConnectionsUp,
		m.ReconnectAttempts,
	)
	return m
}
