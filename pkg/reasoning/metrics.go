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
	"sort"
	"strings"
	"sync"
	"time"
)

// QueryMetrics records one query's journey through the loop.
type QueryMetrics struct {
	InitialStrategy Strategy
	FinalStrategy   Strategy
	Escalations     int
	Pattern         []Strategy
	QualityScore    float64
	WallTime        time.Duration
	Iterations      int
}

// PatternKey renders the strategy sequence as a stable histogram key.
func (q QueryMetrics) PatternKey() string {
	parts := make([]string, 0, len(q.Pattern))
	for _, s := range q.Pattern {
		parts = append(parts, string(s))
	}
	return strings.Join(parts, "->")
}

// MetricsSummary aggregates recorded queries.
type MetricsSummary struct {
	Count              int
	MeanQuality        float64
	MeanLatency        time.Duration
	MedianLatency      time.Duration
	P95Latency         time.Duration
	P99Latency         time.Duration
	MeanEscalations    float64
	PerStrategyLatency map[Strategy]time.Duration
	EscalationPatterns map[string]int
}

// MetricsCollector aggregates per-query metrics across the process
// lifetime.
type MetricsCollector struct {
	mu      sync.Mutex
	records []QueryMetrics
}

// NewMetricsCollector creates an empty collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

// Record appends one query's metrics.
func (c *MetricsCollector) Record(m QueryMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, m)
}

// Summary computes aggregate statistics over everything recorded.
func (c *MetricsCollector) Summary() MetricsSummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	summary := MetricsSummary{
		Count:              len(c.records),
		PerStrategyLatency: make(map[Strategy]time.Duration),
		EscalationPatterns: make(map[string]int),
	}
	if len(c.records) == 0 {
		return summary
	}

	latencies := make([]time.Duration, 0, len(c.records))
	strategyTotals := make(map[Strategy]time.Duration)
	strategyCounts := make(map[Strategy]int)

	var qualitySum, escalationSum float64
	var latencySum time.Duration
	for _, r := range c.records {
		qualitySum += r.QualityScore
		escalationSum += float64(r.Escalations)
		latencySum += r.WallTime
		latencies = append(latencies, r.WallTime)
		strategyTotals[r.FinalStrategy] += r.WallTime
		strategyCounts[r.FinalStrategy]++
		summary.EscalationPatterns[r.PatternKey()]++
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	n := len(latencies)
	summary.MeanQuality = qualitySum / float64(n)
	summary.MeanEscalations = escalationSum / float64(n)
	summary.MeanLatency = latencySum / time.Duration(n)
	summary.MedianLatency = latencies[n/2]
	summary.P95Latency = latencies[percentileIndex(n, 0.95)]
	summary.P99Latency = latencies[percentileIndex(n, 0.99)]
	for strategy, total := range strategyTotals {
		summary.PerStrategyLatency[strategy] = total / time.Duration(strategyCounts[strategy])
	}
	return summary
}

func percentileIndex(n int, p float64) int {
	idx := int(float64(n)*p) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return idx
}
