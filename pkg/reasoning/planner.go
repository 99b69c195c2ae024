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
	"regexp"
	"sort"
	"strings"

	"github.com/stratum-ai/stratum/pkg/llm"
)

const (
	plannerMaxTokens      = 2048
	lightModeMaxSubtasks  = 2
	defaultDeepMaxSubtask = 5
)

// PlanMode selects how aggressively the planner decomposes.
type PlanMode string

const (
	PlanModeLight PlanMode = "light"
	PlanModeDeep  PlanMode = "deep"
)

// PlanContext carries what the planner knows about the query. The
// refinement fields (PreviousAttempts, CompletedSteps, KnowledgeGaps)
// are populated only when the tracker already holds prior work.
type PlanContext struct {
	Mode             PlanMode
	Complexity       *ComplexityAnalysis
	AvailableTools   []string
	PreviousAttempts []string
	CompletedSteps   []string
	KnowledgeGaps    []string
	MaxIterations    int
}

// Planner decomposes a query into prioritized subtasks via the LLM.
type Planner struct {
	client      llm.Client
	maxSubtasks int
}

// NewPlanner creates a planner. maxSubtasks bounds deep-mode plans;
// light mode is always capped at two.
func NewPlanner(client llm.Client, maxSubtasks int) *Planner {
	if maxSubtasks <= 0 {
		maxSubtasks = defaultDeepMaxSubtask
	}
	return &Planner{client: client, maxSubtasks: maxSubtasks}
}

// Plan generates a research plan. On LLM failure it degrades to a
// single-subtask plan holding the original query.
func (p *Planner) Plan(ctx context.Context, query string, planCtx PlanContext) *ResearchPlan {
	resp, err := p.client.CreateMessage(ctx, llm.Request{
		Messages:  []llm.Message{llm.UserMessage(buildPlanningPrompt(query, planCtx))},
		MaxTokens: plannerMaxTokens,
	})
	if err != nil {
		slog.Warn("Planning failed, falling back to single-subtask plan", "error", err)
		return p.fallbackPlan(query, planCtx)
	}

	subtasks := parseSubtasks(resp.Text())
	if len(subtasks) == 0 {
		slog.Warn("Planner response yielded no subtasks, falling back")
		return p.fallbackPlan(query, planCtx)
	}

	sort.SliceStable(subtasks, func(i, j int) bool { return subtasks[i].Priority < subtasks[j].Priority })

	limit := p.maxSubtasks
	if planCtx.Mode == PlanModeLight {
		limit = lightModeMaxSubtasks
	}
	if len(subtasks) > limit {
		subtasks = subtasks[:limit]
	}

	plan := &ResearchPlan{
		OriginalQuery:       query,
		SubTasks:            subtasks,
		MaxIterations:       planCtx.MaxIterations,
		EstimatedComplexity: estimateComplexity(len(subtasks)),
		Analysis:            planCtx.Complexity,
	}
	plan.buildSteps()
	return plan
}

func (p *Planner) fallbackPlan(query string, planCtx PlanContext) *ResearchPlan {
	plan := &ResearchPlan{
		OriginalQuery:       query,
		SubTasks:            []SubTask{{Query: query, Priority: 1}},
		MaxIterations:       planCtx.MaxIterations,
		EstimatedComplexity: "low",
		Analysis:            planCtx.Complexity,
	}
	plan.buildSteps()
	return plan
}

func estimateComplexity(subtaskCount int) string {
	switch {
	case subtaskCount <= 1:
		return "low"
	case subtaskCount <= 3:
		return "medium"
	default:
		return "high"
	}
}

func buildPlanningPrompt(query string, planCtx PlanContext) string {
	var sb strings.Builder
	if planCtx.Mode == PlanModeLight {
		sb.WriteString("Break the following query into at most 2 focused subtasks.\n\n")
	} else {
		fmt.Fprintf(&sb, "Break the following query into a comprehensive research plan of up to %d subtasks.\n\n", planCtx.MaxIterations)
	}
	fmt.Fprintf(&sb, "Query: %s\n", query)

	if planCtx.Complexity != nil {
		fmt.Fprintf(&sb, "Assessed complexity: %s\n", planCtx.Complexity.Level)
	}
	if len(planCtx.AvailableTools) > 0 {
		fmt.Fprintf(&sb, "Available tools: %s\n", strings.Join(planCtx.AvailableTools, ", "))
	}
	if len(planCtx.PreviousAttempts) > 0 {
		sb.WriteString("\nPrevious attempts that were insufficient:\n")
		for _, attempt := range planCtx.PreviousAttempts {
			fmt.Fprintf(&sb, "- %s\n", attempt)
		}
	}
	if len(planCtx.CompletedSteps) > 0 {
		sb.WriteString("\nAlready completed (do not repeat):\n")
		for _, step := range planCtx.CompletedSteps {
			fmt.Fprintf(&sb, "- %s\n", step)
		}
	}
	if len(planCtx.KnowledgeGaps) > 0 {
		sb.WriteString("\nOutstanding knowledge gaps to address:\n")
		for _, gap := range planCtx.KnowledgeGaps {
			fmt.Fprintf(&sb, "- %s\n", gap)
		}
	}

	sb.WriteString(`
Format each subtask as:
N. [PRIORITY] description
Tools: tool1, tool2 (optional, on the next line)

PRIORITY is HIGH, MEDIUM, or LOW.
`)
	return sb.String()
}

var (
	prioritizedLine = regexp.MustCompile(`^\s*\d+[.)]\s*\[([^\]]+)\]\s*(.+)$`)
	numberedLine    = regexp.MustCompile(`^\s*\d+[.)]\s*(.+)$`)
	toolsLine       = regexp.MustCompile(`(?i)^\s*tools?\s*:\s*(.+)$`)
)

// parseSubtasks tries the bracketed-priority grammar first and falls
// back to a plain numbered list.
func parseSubtasks(text string) []SubTask {
	if tasks := parsePrioritizedSubtasks(text); len(tasks) > 0 {
		return tasks
	}
	return parseNumberedSubtasks(text)
}

func parsePrioritizedSubtasks(text string) []SubTask {
	lines := strings.Split(text, "\n")
	var tasks []SubTask
	for i, line := range lines {
		match := prioritizedLine.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		task := SubTask{
			Query:    strings.TrimSpace(match[2]),
			Priority: priorityFromKeyword(match[1]),
		}
		if i+1 < len(lines) {
			if toolsMatch := toolsLine.FindStringSubmatch(lines[i+1]); toolsMatch != nil {
				task.ToolHints = splitCommaList(toolsMatch[1])
			}
		}
		if task.Query != "" {
			tasks = append(tasks, task)
		}
	}
	return tasks
}

func parseNumberedSubtasks(text string) []SubTask {
	var tasks []SubTask
	for _, line := range strings.Split(text, "\n") {
		match := numberedLine.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		body := strings.TrimSpace(match[1])
		if looksLikeMetadata(body) || body == "" {
			continue
		}
		priority := len(tasks) + 1
		if priority > 3 {
			priority = 3
		}
		tasks = append(tasks, SubTask{Query: body, Priority: priority})
	}
	return tasks
}

// priorityFromKeyword maps the first priority keyword found, defaulting
// MEDIUM.
func priorityFromKeyword(raw string) int {
	upper := strings.ToUpper(raw)
	best, priority := len(upper)+1, 2
	for _, candidate := range []struct {
		keyword string
		value   int
	}{{"HIGH", 1}, {"MEDIUM", 2}, {"LOW", 3}} {
		if idx := strings.Index(upper, candidate.keyword); idx >= 0 && idx < best {
			best, priority = idx, candidate.value
		}
	}
	return priority
}

func looksLikeMetadata(body string) bool {
	lower := strings.ToLower(body)
	for _, prefix := range []string{"tools:", "priority:", "strategy:", "output"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func splitCommaList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
