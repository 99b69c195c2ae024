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
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const toolResultPreviewLen = 200

// ToolExecution is one entry in the tracker's tool log.
type ToolExecution struct {
	Tool            string
	ArgsFingerprint string
	ResultPreview   string
	At              time.Time
}

// Tracker is the per-query journal threaded through the reasoning loop:
// the current plan, the attempt history, accumulated knowledge gaps, and
// a log of tool executions. Attempts are append-only; knowledge gaps
// de-duplicate case-insensitively.
type Tracker struct {
	Query string
	Plan  *ResearchPlan

	attempts       []*Attempt
	knowledgeGaps  []string
	gapSeen        map[string]bool
	toolExecutions []ToolExecution
}

// NewTracker creates an empty tracker for one query.
func NewTracker(query string) *Tracker {
	return &Tracker{Query: query, gapSeen: make(map[string]bool)}
}

// SetPlan installs the plan, deriving steps when the planner did not.
func (t *Tracker) SetPlan(plan *ResearchPlan) {
	if plan != nil && len(plan.Steps) == 0 {
		plan.buildSteps()
	}
	t.Plan = plan
}

// PendingSteps returns steps not yet started, in plan order.
func (t *Tracker) PendingSteps() []*PlanStep {
	return t.stepsWithStatus(StepPending)
}

// CompletedSteps returns finished steps, in plan order.
func (t *Tracker) CompletedSteps() []*PlanStep {
	return t.stepsWithStatus(StepCompleted)
}

func (t *Tracker) stepsWithStatus(status StepStatus) []*PlanStep {
	if t.Plan == nil {
		return nil
	}
	var out []*PlanStep
	for _, step := range t.Plan.Steps {
		if step.Status == status {
			out = append(out, step)
		}
	}
	return out
}

// NextPendingStep returns the first pending step, or nil.
func (t *Tracker) NextPendingStep() *PlanStep {
	pending := t.PendingSteps()
	if len(pending) == 0 {
		return nil
	}
	return pending[0]
}

// AddDynamicStep appends a step discovered mid-execution, linked to its
// parent via SpawnedFrom.
func (t *Tracker) AddDynamicStep(description, parentID string) *PlanStep {
	if t.Plan == nil {
		return nil
	}
	step := &PlanStep{
		ID:          fmt.Sprintf("step-%d", len(t.Plan.Steps)+1),
		Description: description,
		Status:      StepPending,
		SpawnedFrom: parentID,
	}
	t.Plan.Steps = append(t.Plan.Steps, step)
	return step
}

// BeginAttempt appends a new attempt for a strategy invocation and
// returns it for completion bookkeeping.
func (t *Tracker) BeginAttempt(strategy Strategy) *Attempt {
	attempt := &Attempt{Strategy: strategy}
	t.attempts = append(t.attempts, attempt)
	return attempt
}

// Attempts returns the attempt history, oldest first.
func (t *Tracker) Attempts() []*Attempt {
	return t.attempts
}

// AddFromEvaluation unions the evaluation's missing aspects into the
// knowledge-gap set.
func (t *Tracker) AddFromEvaluation(e EvaluationResult) {
	for _, aspect := range e.MissingAspects {
		trimmed := strings.TrimSpace(aspect)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if t.gapSeen[key] {
			continue
		}
		t.gapSeen[key] = true
		t.knowledgeGaps = append(t.knowledgeGaps, trimmed)
	}
}

// KnowledgeGaps returns accumulated gaps in insertion order.
func (t *Tracker) KnowledgeGaps() []string {
	return t.knowledgeGaps
}

// RecordToolExecution logs one tool call. Arguments are fingerprinted so
// subtask builders can spot redundant calls without holding full inputs.
func (t *Tracker) RecordToolExecution(tool string, args map[string]any, result string) {
	preview := result
	if len(preview) > toolResultPreviewLen {
		preview = preview[:toolResultPreviewLen]
	}
	t.toolExecutions = append(t.toolExecutions, ToolExecution{
		Tool:            tool,
		ArgsFingerprint: fingerprintArgs(args),
		ResultPreview:   preview,
		At:              time.Now().UTC(),
	})
	if t.Plan != nil {
		for _, step := range t.Plan.Steps {
			if step.Status == StepInProgress {
				step.ToolsUsed = append(step.ToolsUsed, tool)
			}
		}
	}
}

// ToolExecutions returns the tool log, oldest first.
func (t *Tracker) ToolExecutions() []ToolExecution {
	return t.toolExecutions
}

// ToCompactContext renders a one-line digest of prior work, prepended to
// the query when a strategy retries after escalation.
func (t *Tracker) ToCompactContext() string {
	var parts []string
	if n := len(t.attempts); n > 0 {
		var strategies []string
		for _, a := range t.attempts {
			strategies = append(strategies, string(a.Strategy))
		}
		parts = append(parts, fmt.Sprintf("prior attempts: %s", strings.Join(strategies, ", ")))
	}
	if completed := t.CompletedSteps(); len(completed) > 0 {
		parts = append(parts, fmt.Sprintf("%d steps completed", len(completed)))
	}
	if len(t.knowledgeGaps) > 0 {
		parts = append(parts, fmt.Sprintf("open gaps: %s", strings.Join(t.knowledgeGaps, "; ")))
	}
	if len(t.toolExecutions) > 0 {
		parts = append(parts, fmt.Sprintf("%d tool calls made", len(t.toolExecutions)))
	}
	if len(parts) == 0 {
		return ""
	}
	return "[Previous work: " + strings.Join(parts, " | ") + "]"
}

// ToContextText renders the structured context block used by deep
// reasoning subtasks.
func (t *Tracker) ToContextText(strategy Strategy) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Progress Context (%s)\n", strategy)

	if len(t.attempts) > 0 {
		sb.WriteString("\n### Attempts\n")
		for i, a := range t.attempts {
			fmt.Fprintf(&sb, "%d. %s", i+1, a.Strategy)
			if a.QualityScore > 0 {
				fmt.Fprintf(&sb, " (quality %.2f)", a.QualityScore)
			}
			sb.WriteString("\n")
		}
	}

	if completed := t.CompletedSteps(); len(completed) > 0 {
		sb.WriteString("\n### Completed Steps\n")
		for _, step := range completed {
			fmt.Fprintf(&sb, "- %s: %s\n", step.ID, step.Description)
			for _, finding := range step.Findings {
				fmt.Fprintf(&sb, "  finding: %s\n", finding)
			}
		}
	}

	if len(t.knowledgeGaps) > 0 {
		sb.WriteString("\n### Knowledge Gaps\n")
		for _, gap := range t.knowledgeGaps {
			fmt.Fprintf(&sb, "- %s\n", gap)
		}
	}

	if len(t.toolExecutions) > 0 {
		sb.WriteString("\n### Tools Already Called\n")
		for _, exec := range t.toolExecutions {
			fmt.Fprintf(&sb, "- %s (%s): %s\n", exec.Tool, exec.ArgsFingerprint, exec.ResultPreview)
		}
	}

	return sb.String()
}

func fingerprintArgs(args map[string]any) string {
	if len(args) == 0 {
		return "no-args"
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "unfingerprintable"
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum[:8])
}
