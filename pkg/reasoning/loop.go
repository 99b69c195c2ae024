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
	"time"

	"github.com/stratum-ai/stratum/pkg/approval"
	"github.com/stratum-ai/stratum/pkg/llm"
	"github.com/stratum-ai/stratum/pkg/observability"
)

// Result is the loop's verdict on one query.
type Result struct {
	Response        string
	InitialStrategy Strategy
	FinalStrategy   Strategy
	Escalations     int
	Pattern         []Strategy
	QualityScore    float64
	Evaluation      *EvaluationResult
	Elapsed         time.Duration
	Iterations      int
}

// Loop is the orchestrator: analyze, execute, evaluate, escalate. Each
// query gets a fresh tracker; escalation reuses it so context
// accumulates across strategies.
type Loop struct {
	analyzer    *Analyzer
	evaluator   *Evaluator
	executor    *Executor
	strategies  map[Strategy]ExecutionStrategy
	thresholds  Thresholds
	approvals   *approval.Manager
	collector   *MetricsCollector
	promMetrics *observability.Metrics

	// directShortcut skips the analyzer entirely and runs DIRECT.
	directShortcut bool
	approveChoice  bool
}

// LoopOption customizes a Loop.
type LoopOption func(*Loop)

// WithThresholds overrides the quality gates.
func WithThresholds(t Thresholds) LoopOption {
	return func(l *Loop) { l.thresholds = t }
}

// WithStrategyApproval asks the user to confirm the analyzer's strategy
// before executing.
func WithStrategyApproval(m *approval.Manager) LoopOption {
	return func(l *Loop) {
		l.approvals = m
		l.approveChoice = true
	}
}

// WithDirectShortcut makes every query run DIRECT without consulting
// the analyzer. Quality evaluation and escalation still apply.
func WithDirectShortcut() LoopOption {
	return func(l *Loop) { l.directShortcut = true }
}

// WithMetricsCollector aggregates per-query metrics.
func WithMetricsCollector(c *MetricsCollector) LoopOption {
	return func(l *Loop) { l.collector = c }
}

// WithPrometheusMetrics exports loop metrics through the shared
// instrument set.
func WithPrometheusMetrics(m *observability.Metrics) LoopOption {
	return func(l *Loop) { l.promMetrics = m }
}

// NewLoop wires the loop from an LLM client, executor, and thresholds.
func NewLoop(client llm.Client, executor *Executor, opts ...LoopOption) *Loop {
	evaluator := NewEvaluator(client)
	synthesizer := NewSynthesizer(client)

	l := &Loop{
		analyzer:   NewAnalyzer(client),
		evaluator:  evaluator,
		executor:   executor,
		thresholds: DefaultThresholds(),
	}
	for _, opt := range opts {
		opt(l)
	}

	planner := NewPlanner(client, l.thresholds.MaxIterations)
	direct := NewDirectStrategy(executor)
	l.strategies = map[Strategy]ExecutionStrategy{
		StrategyDirect:        direct,
		StrategyLightPlanning: NewLightPlanningStrategy(planner, executor, direct),
		StrategyDeepReasoning: NewDeepReasoningStrategy(planner, executor, evaluator, synthesizer, l.thresholds.MaxIterations),
	}
	return l
}

// Run executes one query end to end. Escalation moves forward along the
// chain; at most three strategies run. A DEEP result is returned even
// when its quality gate fails, because no further level exists.
func (l *Loop) Run(ctx context.Context, query string, cb *Callbacks) (*Result, error) {
	start := time.Now()
	tracker := NewTracker(query)

	var analysis *ComplexityAnalysis
	current := StrategyDirect
	if !l.directShortcut {
		analysis = l.analyzer.Analyze(ctx, query, l.executor.ToolNames())
		current = analysis.RecommendedStrategy

		override, err := l.confirmStrategy(ctx, query, analysis)
		if err != nil {
			return nil, err
		}
		if override != "" {
			current = override
		}
	}

	result := &Result{InitialStrategy: current}

	for {
		strategy, ok := l.strategies[current]
		if !ok {
			return nil, fmt.Errorf("no strategy registered for %s", current)
		}

		attempt := tracker.BeginAttempt(current)
		attemptStart := time.Now()
		result.Pattern = append(result.Pattern, current)
		result.Iterations++

		response, execErr := strategy.Execute(ctx, query, analysis, tracker, cb)

		var evaluation EvaluationResult
		if execErr != nil {
			slog.Warn("Strategy execution failed", "strategy", current, "error", execErr)
			evaluation = EvaluationResult{IsComplete: false, Confidence: 0, Reasoning: execErr.Error()}
		} else {
			evaluation = l.evaluator.EvaluateQuality(ctx, query, response, current, analysis)
		}
		cb.evaluation(evaluation)

		attempt.QualityScore = evaluation.Confidence
		attempt.Evaluation = &evaluation
		attempt.Elapsed = time.Since(attemptStart)
		tracker.AddFromEvaluation(evaluation)

		passed := execErr == nil && evaluation.IsComplete && evaluation.Confidence >= l.thresholds.ForStrategy(current)
		next, hasNext := NextStrategy(current)

		if passed || !hasNext {
			if execErr != nil && !hasNext {
				return nil, fmt.Errorf("all strategies exhausted: %w", execErr)
			}
			result.Response = response
			result.FinalStrategy = current
			result.QualityScore = evaluation.Confidence
			result.Evaluation = &evaluation
			result.Elapsed = time.Since(start)
			l.record(result)
			return result, nil
		}

		slog.Info("Quality below threshold, escalating",
			"from", current,
			"to", next,
			"quality", evaluation.Confidence,
			"threshold", l.thresholds.ForStrategy(current))
		result.Escalations++
		current = next
	}
}

// confirmStrategy runs the strategy through the approval manager when
// configured. The response may override the strategy or disable
// reasoning entirely; cancellation aborts the query.
func (l *Loop) confirmStrategy(ctx context.Context, query string, analysis *ComplexityAnalysis) (Strategy, error) {
	if !l.approveChoice || l.approvals == nil {
		return "", nil
	}

	resp, err := l.approvals.RequestApproval(ctx, approval.Request{
		Type:  approval.TypeQueryAnalysis,
		Title: fmt.Sprintf("Run query with %s?", analysis.RecommendedStrategy),
		Details: fmt.Sprintf("Query: %s\nComplexity: %s, confidence %.2f\n%s",
			query, analysis.Level, analysis.Confidence, analysis.Reasoning),
		Options:       []string{string(StrategyDirect), string(StrategyLightPlanning), string(StrategyDeepReasoning)},
		DefaultOption: string(analysis.RecommendedStrategy),
	})
	if err != nil {
		return "", err
	}
	if resp.Cancelled || !resp.Approved {
		return "", fmt.Errorf("query aborted: strategy not approved")
	}

	if useReasoning, ok := resp.Metadata["use_reasoning"].(bool); ok && !useReasoning {
		return StrategyDirect, nil
	}
	if selected, ok := resp.Metadata["selected_strategy"].(string); ok && selected != "" {
		return parseStrategy(selected), nil
	}
	if resp.SelectedOption != "" && resp.SelectedOption != string(analysis.RecommendedStrategy) {
		return parseStrategy(resp.SelectedOption), nil
	}
	return "", nil
}

func (l *Loop) record(result *Result) {
	metrics := QueryMetrics{
		InitialStrategy: result.InitialStrategy,
		FinalStrategy:   result.FinalStrategy,
		Escalations:     result.Escalations,
		Pattern:         result.Pattern,
		QualityScore:    result.QualityScore,
		WallTime:        result.Elapsed,
		Iterations:      result.Iterations,
	}
	if l.collector != nil {
		l.collector.Record(metrics)
	}
	if l.promMetrics != nil {
		label := string(result.FinalStrategy)
		l.promMetrics.QueriesTotal.WithLabelValues(label).Inc()
		l.promMetrics.QueryDuration.WithLabelValues(label).Observe(result.Elapsed.Seconds())
		l.promMetrics.QualityScore.WithLabelValues(label).Observe(result.QualityScore)
		if result.Escalations > 0 {
			l.promMetrics.EscalationsTotal.Add(float64(result.Escalations))
		}
	}
}
