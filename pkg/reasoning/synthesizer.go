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
	"strconv"
	"strings"

	"github.com/stratum-ai/stratum/pkg/llm"
)

const (
	synthesizerMaxTokens = 4096
	filterPassthrough    = 3
	filterMaxResults     = 7
)

// Synthesizer filters and combines subtask results into one response.
type Synthesizer struct {
	client llm.Client
}

// NewSynthesizer creates a synthesizer over an LLM client.
func NewSynthesizer(client llm.Client) *Synthesizer {
	return &Synthesizer{client: client}
}

// FilterResults ranks results by relevance and keeps the top seven.
// Three or fewer pass through untouched.
func (s *Synthesizer) FilterResults(ctx context.Context, query string, results []string) []string {
	if len(results) <= filterPassthrough {
		return results
	}

	resp, err := s.client.CreateMessage(ctx, llm.Request{
		Messages:  []llm.Message{llm.UserMessage(buildFilterPrompt(query, results))},
		MaxTokens: synthesizerMaxTokens,
	})
	if err != nil {
		slog.Warn("Result filtering failed, keeping leading results", "error", err)
		return clampResults(results)
	}

	order := parseRanking(resp.Text(), len(results))
	if len(order) == 0 {
		return clampResults(results)
	}

	var filtered []string
	for _, id := range order {
		filtered = append(filtered, results[id-1])
		if len(filtered) == filterMaxResults {
			break
		}
	}
	return filtered
}

// Synthesize combines filtered results into one answer. A single result
// passes through; LLM failure degrades to a deterministic concatenation.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, results []string) string {
	if len(results) == 0 {
		return ""
	}
	if len(results) == 1 {
		return results[0]
	}

	resp, err := s.client.CreateMessage(ctx, llm.Request{
		Messages:  []llm.Message{llm.UserMessage(buildSynthesisPrompt(query, results))},
		MaxTokens: synthesizerMaxTokens,
	})
	if err != nil {
		slog.Warn("Synthesis failed, concatenating results", "error", err)
		return concatResults(query, results)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return concatResults(query, results)
	}
	return text
}

func clampResults(results []string) []string {
	if len(results) > filterMaxResults {
		return results[:filterMaxResults]
	}
	return results
}

// concatResults is the deterministic fallback: the query followed by
// numbered sources.
func concatResults(query string, results []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Findings for: %s\n", query)
	for i, result := range results {
		fmt.Fprintf(&sb, "\n%d. %s\n", i+1, result)
	}
	return sb.String()
}

var (
	rankedListLine  = regexp.MustCompile(`^\s*\d+[.)]\s*(?:Result\s*)?#?(\d+)\s*$`)
	resultIDMention = regexp.MustCompile(`(?i)Result\s+ID:?\s*(\d+)`)
)

// parseRanking reads either an explicit ranked list at the end of the
// response or scattered "Result ID: N" mentions, in order of appearance.
// IDs are 1-based and deduplicated; out-of-range ids are dropped.
func parseRanking(text string, resultCount int) []int {
	var order []int
	seen := make(map[int]bool)
	add := func(raw string) {
		id, err := strconv.Atoi(raw)
		if err != nil || id < 1 || id > resultCount || seen[id] {
			return
		}
		seen[id] = true
		order = append(order, id)
	}

	for _, line := range strings.Split(text, "\n") {
		if match := rankedListLine.FindStringSubmatch(line); match != nil {
			add(match[1])
		}
	}
	if len(order) > 0 {
		return order
	}

	for _, match := range resultIDMention.FindAllStringSubmatch(text, -1) {
		add(match[1])
	}
	return order
}

func buildFilterPrompt(query string, results []string) string {
	var sb strings.Builder
	sb.WriteString("Rank the following results by relevance to the query.\n\n")
	fmt.Fprintf(&sb, "Query: %s\n\n", query)
	for i, result := range results {
		fmt.Fprintf(&sb, "Result ID: %d\n%s\n\n", i+1, result)
	}
	sb.WriteString("End your response with a ranked list of result ids, most relevant first, one per line like \"1. 3\".\n")
	return sb.String()
}

func buildSynthesisPrompt(query string, results []string) string {
	var sb strings.Builder
	sb.WriteString("Combine the following research results into one coherent answer.\n\n")
	fmt.Fprintf(&sb, "Query: %s\n\n", query)
	for i, result := range results {
		fmt.Fprintf(&sb, "Source %d:\n%s\n\n", i+1, result)
	}
	sb.WriteString("Write the final answer directly, citing sources by number where useful.\n")
	return sb.String()
}
