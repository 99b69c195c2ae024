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

const analyzerMaxTokens = 1024

// Analyzer classifies query complexity and recommends a strategy.
type Analyzer struct {
	client llm.Client
}

// NewAnalyzer creates an analyzer over an LLM client.
func NewAnalyzer(client llm.Client) *Analyzer {
	return &Analyzer{client: client}
}

// Analyze classifies the query. On LLM failure it falls back to
// MEDIUM/LIGHT_PLANNING with confidence zero so callers can tell the
// fallback from a real verdict.
func (a *Analyzer) Analyze(ctx context.Context, query string, availableTools []string) *ComplexityAnalysis {
	prompt := buildAnalysisPrompt(query, availableTools)

	resp, err := a.client.CreateMessage(ctx, llm.Request{
		Messages:  []llm.Message{llm.UserMessage(prompt)},
		MaxTokens: analyzerMaxTokens,
	})
	if err != nil {
		slog.Warn("Complexity analysis failed, using fallback", "error", err)
		return fallbackAnalysis()
	}

	return parseAnalysis(resp.Text())
}

func fallbackAnalysis() *ComplexityAnalysis {
	return &ComplexityAnalysis{
		Level:               ComplexityMedium,
		RecommendedStrategy: StrategyLightPlanning,
		EstimatedIterations: 2,
		Confidence:          0.0,
		Reasoning:           "analysis unavailable, defaulting to light planning",
	}
}

func buildAnalysisPrompt(query string, tools []string) string {
	var sb strings.Builder
	sb.WriteString("Analyze the complexity of the following query and recommend an execution strategy.\n\n")
	fmt.Fprintf(&sb, "Query: %s\n", query)
	if len(tools) > 0 {
		fmt.Fprintf(&sb, "\nAvailable tools: %s\n", strings.Join(tools, ", "))
	}
	sb.WriteString(`
Respond with exactly these fields:
Complexity Level: SIMPLE, MEDIUM, or COMPLEX
Recommended Strategy: DIRECT, LIGHT_PLANNING, or DEEP_REASONING
Estimated Iterations: <number>
Confidence: <0.0-1.0>
Reasoning: <one or two sentences>
Requires Research: Yes/No
Requires Synthesis: Yes/No
Multi-Part Query: Yes/No
Tool Count Estimate: <number>
`)
	return sb.String()
}

func parseAnalysis(text string) *ComplexityAnalysis {
	analysis := &ComplexityAnalysis{
		Level:               parseComplexityLevel(parseLabeledField(text, "Complexity Level")),
		RecommendedStrategy: parseStrategy(parseLabeledField(text, "Recommended Strategy")),
		EstimatedIterations: parseIntField(text, "Estimated Iterations", 2),
		Confidence:          parseFloatField(text, "Confidence", 0.5),
		Reasoning:           parseLabeledField(text, "Reasoning"),
		RequiresResearch:    parseBoolField(text, "Requires Research"),
		RequiresSynthesis:   parseBoolField(text, "Requires Synthesis"),
		MultiPartQuery:      parseBoolField(text, "Multi-Part Query"),
		ToolCountEstimate:   parseIntField(text, "Tool Count Estimate", 0),
	}
	if analysis.EstimatedIterations < 1 {
		analysis.EstimatedIterations = 1
	}
	return analysis
}

func parseComplexityLevel(raw string) ComplexityLevel {
	switch {
	case strings.Contains(strings.ToUpper(raw), "SIMPLE"):
		return ComplexitySimple
	case strings.Contains(strings.ToUpper(raw), "COMPLEX"):
		return ComplexityComplex
	default:
		return ComplexityMedium
	}
}

func parseStrategy(raw string) Strategy {
	upper := strings.ToUpper(raw)
	switch {
	case strings.Contains(upper, "DEEP"):
		return StrategyDeepReasoning
	case strings.Contains(upper, "DIRECT"):
		return StrategyDirect
	default:
		return StrategyLightPlanning
	}
}
