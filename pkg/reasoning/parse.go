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
	"regexp"
	"strconv"
	"strings"
)

// Shared parsing helpers for LLM responses shaped as labeled fields and
// bulleted lists. All helpers are lenient: missing fields yield zero
// values and the callers apply their own defaults.

var bulletPrefix = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)

// parseLabeledField returns the text after "Label:" on the first line
// carrying the label, matched case-insensitively.
func parseLabeledField(text, label string) string {
	needle := strings.ToLower(label + ":")
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(bulletPrefix.ReplaceAllString(line, ""))
		trimmed = strings.TrimPrefix(trimmed, "**")
		if strings.HasPrefix(strings.ToLower(trimmed), needle) {
			value := strings.Trim(trimmed[len(needle):], " *\t")
			if value != "" {
				return value
			}
		}
	}
	return ""
}

// parseFloatField parses a labeled field as a float, tolerating trailing
// prose ("0.85 (high)") and percentages ("85%").
func parseFloatField(text, label string, fallback float64) float64 {
	raw := parseLabeledField(text, label)
	if raw == "" {
		return fallback
	}
	match := regexp.MustCompile(`\d+(?:\.\d+)?`).FindString(raw)
	if match == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return fallback
	}
	if strings.Contains(raw, "%") || value > 1 {
		value /= 100
	}
	if value < 0 {
		return fallback
	}
	if value > 1 {
		return 1
	}
	return value
}

// parseIntField parses a labeled field as an int.
func parseIntField(text, label string, fallback int) int {
	raw := parseLabeledField(text, label)
	if raw == "" {
		return fallback
	}
	match := regexp.MustCompile(`\d+`).FindString(raw)
	if match == "" {
		return fallback
	}
	value, err := strconv.Atoi(match)
	if err != nil {
		return fallback
	}
	return value
}

// parseBoolField parses a Yes/No labeled field.
func parseBoolField(text, label string) bool {
	raw := strings.ToLower(parseLabeledField(text, label))
	return strings.HasPrefix(raw, "yes") || strings.HasPrefix(raw, "true")
}

// parseListUnderHeader collects bullet or numbered items following a
// header line, stopping at the first blank line after items begin or at
// the next header-looking line.
func parseListUnderHeader(text, header string) []string {
	lines := strings.Split(text, "\n")
	needle := strings.ToLower(header)

	start := -1
	for i, line := range lines {
		if strings.Contains(strings.ToLower(line), needle) {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return nil
	}

	var items []string
	for _, line := range lines[start:] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if len(items) > 0 {
				break
			}
			continue
		}
		if !bulletPrefix.MatchString(line) {
			if strings.Contains(trimmed, ":") || strings.HasPrefix(trimmed, "#") {
				break
			}
			continue
		}
		item := strings.TrimSpace(bulletPrefix.ReplaceAllString(line, ""))
		if isNoneMarker(item) {
			continue
		}
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

func isNoneMarker(item string) bool {
	lower := strings.ToLower(strings.Trim(item, ".()"))
	return lower == "none" || lower == "n/a" || lower == "none needed"
}
