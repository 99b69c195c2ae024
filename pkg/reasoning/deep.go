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

// DeepReasoningStrategy runs a comprehensive plan with per-iteration
// research evaluation. Incomplete evaluations stage their additional
// queries as dynamic steps; the loop ends on completeness or the
// iteration budget and the surviving results are filtered and
// synthesized.
type DeepReasoningStrategy struct {
	planner       *Planner
	executor      *Executor
	evaluator     *Evaluator
	synthesizer   *Synthesizer
	maxIterations int
}

// NewDeepReasoningStrategy creates the DEEP_REASONING strategy.
func NewDeepReasoningStrategy(planner *Planner, executor *Executor, evaluator *Evaluator, synthesizer *Synthesizer, maxIterations int) *DeepReasoningStrategy {
	if maxIterations < 1 {
		maxIterations = 1
	}
	return &DeepReasoningStrategy{
		planner:       planner,
		executor:      executor,
		evaluator:     evaluator,
		synthesizer:   synthesizer,
		maxIterations: maxIterations,
	}
}

func (s *DeepReasoningStrategy) Name() Strategy { return StrategyDeepReasoning }

func (s *DeepReasoningStrategy) Execute(ctx context.Context, query string, analysis *ComplexityAnalysis, tracker *Tracker, cb *Callbacks) (string, error) {
	if cb != nil {
		cb.emit(cb.OnDeepReasoning)
		cb.emit(cb.OnPlanning)
	}

	plan := s.planner.Plan(ctx, query, PlanContext{
		Mode:             PlanModeDeep,
		Complexity:       analysis,
		AvailableTools:   s.executor.ToolNames(),
		PreviousAttempts: attemptSummaries(tracker),
		CompletedSteps:   stepDescriptions(tracker.CompletedSteps()),
		KnowledgeGaps:    tracker.KnowledgeGaps(),
		MaxIterations:    s.maxIterations,
	})
	tracker.SetPlan(plan)
	cb.planningComplete(plan)

	results := collectFindings(tracker.CompletedSteps())

	for iteration := 1; iteration <= s.iterationBudget(tracker); iteration++ {
		step := tracker.NextPendingStep()
		if step == nil {
			break
		}
		cb.iteration(iteration, s.iterationBudget(tracker))
		cb.stepProgress(step)

		step.Begin()
		result, err := s.executor.Execute(ctx, s.buildSubtaskQuery(query, step, tracker), tracker)
		if err != nil {
			step.Fail()
			continue
		}
		step.Complete(result)
		results = append(results, result)

		evaluation := s.evaluator.EvaluateResearch(ctx, query, results, tracker.Plan)
		cb.evaluation(evaluation)
		tracker.AddFromEvaluation(evaluation)

		if evaluation.IsComplete {
			break
		}
		for _, followup := range evaluation.AdditionalQueries {
			tracker.AddDynamicStep(followup, step.ID)
		}
	}

	if len(results) == 0 {
		return "", fmt.Errorf("deep reasoning produced no results for query")
	}

	if cb != nil {
		cb.emit(cb.OnSynthesis)
	}
	filtered := s.synthesizer.FilterResults(ctx, query, results)
	return s.synthesizer.Synthesize(ctx, query, filtered), nil
}

// iterationBudget is recomputed each pass so dynamic steps can extend
// the loop up to the configured ceiling.
func (s *DeepReasoningStrategy) iterationBudget(tracker *Tracker) int {
	if tracker.Plan == nil {
		return 0
	}
	steps := len(tracker.Plan.Steps)
	if steps < s.maxIterations {
		return steps
	}
	return s.maxIterations
}

// buildSubtaskQuery attaches the full tracker context to a step.
func (s *DeepReasoningStrategy) buildSubtaskQuery(query string, step *PlanStep, tracker *Tracker) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Overall goal: %s\n\nCurrent subtask (%s): %s\n\n", query, step.ID, step.Description)
	sb.WriteString(tracker.ToContextText(StrategyDeepReasoning))
	return sb.String()
}

var _ ExecutionStrategy = (*DeepReasoningStrategy)(nil)
