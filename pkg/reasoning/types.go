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

// Package reasoning implements the adaptive reasoning loop: complexity
// analysis, planning, strategy execution with tool tracking, evaluation,
// synthesis, and quality-driven escalation.
package reasoning

import (
	"fmt"
	"time"
)

// ComplexityLevel classifies a query.
type ComplexityLevel string

const (
	ComplexitySimple  ComplexityLevel = "SIMPLE"
	ComplexityMedium  ComplexityLevel = "MEDIUM"
	ComplexityComplex ComplexityLevel = "COMPLEX"
)

// Strategy names an execution path over the LLM, cheapest first.
type Strategy string

const (
	StrategyDirect        Strategy = "DIRECT"
	StrategyLightPlanning Strategy = "LIGHT_PLANNING"
	StrategyDeepReasoning Strategy = "DEEP_REASONING"
)

// EscalationChain is the fixed escalation order. Escalation only moves
// forward along it.
var EscalationChain = []Strategy{StrategyDirect, StrategyLightPlanning, StrategyDeepReasoning}

// NextStrategy returns the next strategy in the chain, or ("", false) at
// the end.
func NextStrategy(s Strategy) (Strategy, bool) {
	for i, candidate := range EscalationChain {
		if candidate == s && i+1 < len(EscalationChain) {
			return EscalationChain[i+1], true
		}
	}
	return "", false
}

// ComplexityAnalysis is the analyzer's verdict on a query.
type ComplexityAnalysis struct {
	Level               ComplexityLevel
	RecommendedStrategy Strategy
	EstimatedIterations int
	Confidence          float64
	Reasoning           string
	RequiresResearch    bool
	RequiresSynthesis   bool
	MultiPartQuery      bool
	ToolCountEstimate   int
}

// SubTask is one planned unit of work. Priority 1 is highest, 3 lowest.
type SubTask struct {
	Query     string
	Priority  int
	ToolHints []string
}

// StepStatus is a plan step's lifecycle state.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
	StepFailed     StepStatus = "failed"
)

// PlanStep is one executable step of a research plan. Status only moves
// forward: pending, in_progress, then completed or failed.
type PlanStep struct {
	ID          string
	Description string
	Status      StepStatus
	StartedAt   time.Time
	CompletedAt time.Time
	Findings    []string
	ToolsUsed   []string
	DependsOn   []string
	SpawnedFrom string
}

// Begin moves the step to in_progress. No-op unless pending.
func (s *PlanStep) Begin() {
	if s.Status != StepPending {
		return
	}
	s.Status = StepInProgress
	s.StartedAt = time.Now().UTC()
}

// Complete moves the step to completed, recording findings. No-op once
// terminal.
func (s *PlanStep) Complete(findings ...string) {
	if s.Status == StepCompleted || s.Status == StepFailed {
		return
	}
	s.Status = StepCompleted
	s.CompletedAt = time.Now().UTC()
	s.Findings = append(s.Findings, findings...)
}

// Fail moves the step to failed. No-op once terminal.
func (s *PlanStep) Fail() {
	if s.Status == StepCompleted || s.Status == StepFailed {
		return
	}
	s.Status = StepFailed
	s.CompletedAt = time.Now().UTC()
}

// ResearchPlan is the planner's output: subtasks ordered by priority with
// one step per subtask.
type ResearchPlan struct {
	OriginalQuery       string
	SubTasks            []SubTask
	Steps               []*PlanStep
	MaxIterations       int
	EstimatedComplexity string
	Analysis            *ComplexityAnalysis
}

// buildSteps derives one pending step per subtask.
func (p *ResearchPlan) buildSteps() {
	p.Steps = make([]*PlanStep, 0, len(p.SubTasks))
	for i, task := range p.SubTasks {
		p.Steps = append(p.Steps, &PlanStep{
			ID:          fmt.Sprintf("step-%d", i+1),
			Description: task.Query,
			Status:      StepPending,
		})
	}
}

// EvaluationResult is an evaluator verdict, for either research
// completeness or response quality.
type EvaluationResult struct {
	IsComplete        bool
	Confidence        float64
	Reasoning         string
	AdditionalQueries []string
	MissingAspects    []string
}

// Attempt records one strategy invocation on a query.
type Attempt struct {
	Strategy     Strategy
	QualityScore float64
	Evaluation   *EvaluationResult
	Elapsed      time.Duration
}

// Callbacks surface strategy progress to observers. All fields are
// optional; nil callbacks are skipped. Implementations may dispatch
// asynchronously, the loop never depends on their completion.
type Callbacks struct {
	OnDirectExecution  func()
	OnLightPlanning    func()
	OnDeepReasoning    func()
	OnPlanning         func()
	OnPlanningComplete func(plan *ResearchPlan)
	OnIteration        func(iteration, total int)
	OnStepProgress     func(step *PlanStep)
	OnEvaluation       func(result EvaluationResult)
	OnSynthesis        func()
}

func (c *Callbacks) emit(fn func()) {
	if c != nil && fn != nil {
		fn()
	}
}

func (c *Callbacks) planningComplete(plan *ResearchPlan) {
	if c != nil && c.OnPlanningComplete != nil {
		c.OnPlanningComplete(plan)
	}
}

func (c *Callbacks) iteration(i, total int) {
	if c != nil && c.OnIteration != nil {
		c.OnIteration(i, total)
	}
}

func (c *Callbacks) stepProgress(step *PlanStep) {
	if c != nil && c.OnStepProgress != nil {
		c.OnStepProgress(step)
	}
}

func (c *Callbacks) evaluation(result EvaluationResult) {
	if c != nil && c.OnEvaluation != nil {
		c.OnEvaluation(result)
	}
}
