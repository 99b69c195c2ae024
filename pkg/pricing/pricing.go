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

// Package pricing maps model ids to per-million-token rates. The table is
// configuration data loaded from a file with a hard-coded fallback; there
// is no API discovery.
package pricing

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Rate is the USD price per million tokens.
type Rate struct {
	Input  float64 `json:"input"`
	Output float64 `json:"output"`
}

// Table maps model id to rates, with an optional extended-context variant
// keyed by model suffix.
type Table struct {
	rates map[string]Rate

	// extendedSuffix selects the extended-context rates when the model id
	// carries it, e.g. "[1m]".
	extendedSuffix string
	extendedRates  map[string]Rate
}

// fallbackRates covers the common models when no pricing file is present.
// Values are USD per million tokens.
var fallbackRates = map[string]Rate{
	"claude-opus-4-20250514":     {Input: 15.0, Output: 75.0},
	"claude-sonnet-4-20250514":   {Input: 3.0, Output: 15.0},
	"claude-3-5-haiku-20241022":  {Input: 0.8, Output: 4.0},
	"claude-3-haiku-20240307":    {Input: 0.25, Output: 1.25},
}

type tableFile struct {
	Models         map[string]Rate `json:"models"`
	ExtendedSuffix string          `json:"extended_suffix,omitempty"`
	ExtendedModels map[string]Rate `json:"extended_models,omitempty"`
}

// NewFallbackTable builds the hard-coded table.
func NewFallbackTable() *Table {
	rates := make(map[string]Rate, len(fallbackRates))
	for model, rate := range fallbackRates {
		rates[model] = rate
	}
	return &Table{rates: rates, extendedRates: map[string]Rate{}}
}

// Load reads a pricing file. On a missing or malformed file it logs and
// returns the fallback table; pricing is informational, never fatal.
func Load(path string) *Table {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Debug("Pricing file not found, using built-in rates", "path", path)
		return NewFallbackTable()
	}

	var file tableFile
	if err := json.Unmarshal(data, &file); err != nil {
		slog.Warn("Malformed pricing file, using built-in rates", "path", path, "error", err)
		return NewFallbackTable()
	}
	if len(file.Models) == 0 {
		slog.Warn("Pricing file has no models, using built-in rates", "path", path)
		return NewFallbackTable()
	}

	t := &Table{
		rates:          file.Models,
		extendedSuffix: file.ExtendedSuffix,
		extendedRates:  file.ExtendedModels,
	}
	if t.extendedRates == nil {
		t.extendedRates = map[string]Rate{}
	}
	return t
}

// Rate returns the rates for a model id. Extended-context variants are
// selected by suffix. Unknown models return a zero rate.
func (t *Table) Rate(model string) (Rate, bool) {
	if t.extendedSuffix != "" && strings.HasSuffix(model, t.extendedSuffix) {
		base := strings.TrimSuffix(model, t.extendedSuffix)
		if rate, ok := t.extendedRates[base]; ok {
			return rate, true
		}
		model = base
	}
	rate, ok := t.rates[model]
	return rate, ok
}

// Cost computes the USD cost of one call: tokens/1e6 × rate.
func (t *Table) Cost(model string, inputTokens, outputTokens int64) float64 {
	rate, ok := t.Rate(model)
	if !ok {
		return 0
	}
	return float64(inputTokens)/1e6*rate.Input + float64(outputTokens)/1e6*rate.Output
}

// Models returns the known model ids.
func (t *Table) Models() []string {
	models := make([]string, 0, len(t.rates))
	for model := range t.rates {
		models = append(models, model)
	}
	return models
}

// Describe renders a one-line summary for a model, for status surfaces.
func (t *Table) Describe(model string) string {
	rate, ok := t.Rate(model)
	if !ok {
		return fmt.Sprintf("%s: no pricing data", model)
	}
	return fmt.Sprintf("%s: $%.2f/M input, $%.2f/M output", model, rate.Input, rate.Output)
}
