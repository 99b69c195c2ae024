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
	"strings"

	"github.com/stratum-ai/stratum/pkg/llm"
)

const evaluatorMaxTokens = 1024

// Evaluator judges research completeness and response quality via the
// LLM. Both paths degrade to safe defaults on LLM failure: research
// evaluation to not-complete so deep reasoning keeps working, quality
// evaluation to sufficient so escalation cannot loop forever.
type Evaluator struct {
	client llm.Client
}

// NewEvaluator creates an evaluator over an LLM client.
func NewEvaluator(client llm.Client) *Evaluator {
	return &Evaluator{client: client}
}

// EvaluateResearch judges whether accumulated results answer the query.
func (e *Evaluator) EvaluateResearch(ctx context.Context, query string, results []string, plan *ResearchPlan) EvaluationResult {
	resp, err := e.client.CreateMessage(ctx, llm.Request{
		Messages:  []llm.Message{llm.UserMessage(buildResearchEvalPrompt(query, results, plan))},
		MaxTokens: evaluatorMaxTokens,
	})
	if err != nil {
		slog.Warn("Research evaluation failed, assuming incomplete", "error", err)
		return EvaluationResult{IsComplete: false, Confidence: 0.5, Reasoning: "evaluation unavailable"}
	}

	text := resp.Text()
	assessment := parseLabeledField(text, "Completeness Assessment")
	return EvaluationResult{
		IsComplete:        isCompleteAssessment(assessment),
		Confidence:        parseFloatField(text, "Confidence Score", 0.5),
		Reasoning:         parseLabeledField(text, "Reasoning"),
		AdditionalQueries: parseListUnderHeader(text, "Additional Queries Needed"),
		MissingAspects:    parseListUnderHeader(text, "Missing Aspects"),
	}
}

// EvaluateQuality judges a finished response against the query.
func (e *Evaluator) EvaluateQuality(ctx context.Context, query, response string, strategy Strategy, expected *ComplexityAnalysis) EvaluationResult {
	resp, err := e.client.CreateMessage(ctx, llm.Request{
		Messages:  []llm.Message{llm.UserMessage(buildQualityEvalPrompt(query, response, strategy, expected))},
		MaxTokens: evaluatorMaxTokens,
	})
	if err != nil {
		slog.Warn("Quality evaluation failed, assuming sufficient", "error", err)
		return EvaluationResult{IsComplete: true, Confidence: 0.5, Reasoning: "evaluation unavailable"}
	}

	text := resp.Text()
	assessment := strings.ToUpper(parseLabeledField(text, "Quality Assessment"))
	return EvaluationResult{
		IsComplete:     !strings.Contains(assessment, "INSUFFICIENT"),
		Confidence:     parseFloatField(text, "Confidence Score", 0.5),
		Reasoning:      parseLabeledField(text, "Reasoning"),
		MissingAspects: parseListUnderHeader(text, "Missing Aspects"),
	}
}

// isCompleteAssessment accepts COMPLETE but not INCOMPLETE.
func isCompleteAssessment(raw string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(raw)), "COMPLETE")
}

func buildResearchEvalPrompt(query string, results []string, plan *ResearchPlan) string {
	var sb strings.Builder
	sb.WriteString("Evaluate whether the accumulated research answers the original query.\n\n")
	fmt.Fprintf(&sb, "Query: %s\n", query)
	if plan != nil {
		fmt.Fprintf(&sb, "\nPlan (%d steps):\n", len(plan.Steps))
		for _, step := range plan.Steps {
			fmt.Fprintf(&sb, "- [%s] %s\n", step.Status, step.Description)
		}
	}
	sb.WriteString("\nAccumulated results:\n")
	for i, result := range results {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, result)
	}
	sb.WriteString(`
Respond with:
Completeness Assessment: COMPLETE or INCOMPLETE
Confidence Score: <0.0-1.0>
Reasoning: <short>
Additional Queries Needed:
- <query> (omit if none)
Missing Aspects:
- <aspect> (omit if none)
`)
	return sb.String()
}

func buildQualityEvalPrompt(query, response string, strategy Strategy, expected *ComplexityAnalysis) string {
	var sb strings.Builder
	sb.WriteString("Evaluate the quality of the following response to a user query.\n\n")
	fmt.Fprintf(&sb, "Query: %s\n\nResponse:\n%s\n\n", query, response)
	fmt.Fprintf(&sb, "Strategy used: %s\n", strategy)
	if expected != nil {
		fmt.Fprintf(&sb, "Expected complexity: %s\n", expected.Level)
	}
	sb.WriteString(`
Respond with:
Quality Assessment: SUFFICIENT or INSUFFICIENT
Confidence Score: <0.0-1.0>
Reasoning: <short>
Missing Aspects:
- <aspect> (omit if none)
`)
	return sb.String()
}
