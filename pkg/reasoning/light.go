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
	"strings"
)

const (
	lightMaxIterations   = 2
	lightContextFindings = 3
	lightContextGaps     = 3
)

// LightPlanningStrategy plans up to two subtasks and executes them in
// priority order, reusing steps the tracker already completed. When the
// planner yields nothing, or no results accumulate, it falls back to
// DIRECT.
type LightPlanningStrategy struct {
	planner  *Planner
	executor *Executor
	direct   *DirectStrategy
}

// NewLightPlanningStrategy creates the LIGHT_PLANNING strategy.
func NewLightPlanningStrategy(planner *Planner, executor *Executor, direct *DirectStrategy) *LightPlanningStrategy {
	return &LightPlanningStrategy{planner: planner, executor: executor, direct: direct}
}

func (s *LightPlanningStrategy) Name() Strategy { return StrategyLightPlanning }

func (s *LightPlanningStrategy) Execute(ctx context.Context, query string, analysis *ComplexityAnalysis, tracker *Tracker, cb *Callbacks) (string, error) {
	if cb != nil {
		cb.emit(cb.OnLightPlanning)
		cb.emit(cb.OnPlanning)
	}

	iterations := lightMaxIterations
	if analysis != nil && analysis.EstimatedIterations < iterations {
		iterations = analysis.EstimatedIterations
	}
	if iterations < 1 {
		iterations = 1
	}

	if tracker.Plan == nil {
		plan := s.planner.Plan(ctx, query, PlanContext{
			Mode:             PlanModeLight,
			Complexity:       analysis,
			AvailableTools:   s.executor.ToolNames(),
			PreviousAttempts: attemptSummaries(tracker),
			CompletedSteps:   stepDescriptions(tracker.CompletedSteps()),
			KnowledgeGaps:    tracker.KnowledgeGaps(),
			MaxIterations:    iterations,
		})
		if plan == nil || len(plan.SubTasks) == 0 {
			return s.direct.Execute(ctx, query, analysis, tracker, cb)
		}
		tracker.SetPlan(plan)
	}
	cb.planningComplete(tracker.Plan)

	if tracker.Plan == nil {
		return s.direct.Execute(ctx, query, analysis, tracker, cb)
	}

	// Steps completed in a prior attempt keep their cached findings.
	results := collectFindings(tracker.CompletedSteps())

	executed := 0
	for executed < iterations {
		step := tracker.NextPendingStep()
		if step == nil {
			break
		}
		cb.stepProgress(step)

		step.Begin()
		result, err := s.executor.Execute(ctx, s.buildSubtaskQuery(query, step, tracker), tracker)
		if err != nil {
			step.Fail()
			executed++
			continue
		}
		step.Complete(result)
		results = append(results, result)
		executed++
	}

	if len(results) == 0 {
		return s.direct.Execute(ctx, query, analysis, tracker, cb)
	}
	return strings.Join(results, "\n\n"), nil
}

// buildSubtaskQuery enriches a step with recent findings and open gaps.
func (s *LightPlanningStrategy) buildSubtaskQuery(query string, step *PlanStep, tracker *Tracker) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Overall goal: %s\n\nCurrent subtask: %s\n", query, step.Description)

	completed := tracker.CompletedSteps()
	if len(completed) > lightContextFindings {
		completed = completed[len(completed)-lightContextFindings:]
	}
	if findings := collectFindings(completed); len(findings) > 0 {
		sb.WriteString("\nFindings so far:\n")
		for _, finding := range findings {
			fmt.Fprintf(&sb, "- %s\n", finding)
		}
	}

	gaps := tracker.KnowledgeGaps()
	if len(gaps) > lightContextGaps {
		gaps = gaps[:lightContextGaps]
	}
	if len(gaps) > 0 {
		sb.WriteString("\nKnown gaps:\n")
		for _, gap := range gaps {
			fmt.Fprintf(&sb, "- %s\n", gap)
		}
	}

	return sb.String()
}

// attemptSummaries describes completed prior attempts; the in-flight
// attempt has no evaluation yet and is skipped.
func attemptSummaries(tracker *Tracker) []string {
	var out []string
	for _, attempt := range tracker.Attempts() {
		if attempt.Evaluation == nil {
			continue
		}
		summary := string(attempt.Strategy)
		if attempt.Evaluation.Reasoning != "" {
			summary += ": " + attempt.Evaluation.Reasoning
		}
		out = append(out, summary)
	}
	return out
}

func stepDescriptions(steps []*PlanStep) []string {
	var out []string
	for _, step := range steps {
		out = append(out, step.Description)
	}
	return out
}

func collectFindings(steps []*PlanStep) []string {
	var out []string
	for _, step := range steps {
		out = append(out, step.Findings...)
	}
	return out
}

var _ ExecutionStrategy = (*LightPlanningStrategy)(nil)
