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

package preprocessor

import (
	"strings"

	"github.com/stratum-ai/stratum/pkg/mcp"
)

// ArgumentParser turns a raw argument string into named prompt
// arguments. Pluggable so UIs can bring their own grammar.
type ArgumentParser interface {
	Parse(raw string, spec []mcp.PromptArgument) map[string]string
}

// DefaultArgumentParser supports key=value pairs with optional quoting,
// falling back to positional assignment against the argument spec.
// @resource tokens are remapped to their extracted id.
type DefaultArgumentParser struct{}

func (DefaultArgumentParser) Parse(raw string, spec []mcp.PromptArgument) map[string]string {
	args := make(map[string]string)
	tokens := tokenize(raw)
	if len(tokens) == 0 {
		return args
	}

	var positional []string
	for _, token := range tokens {
		if key, value, ok := strings.Cut(token, "="); ok && key != "" {
			args[key] = normalizeValue(value)
			continue
		}
		positional = append(positional, normalizeValue(token))
	}

	idx := 0
	for _, arg := range spec {
		if _, set := args[arg.Name]; set {
			continue
		}
		if idx < len(positional) {
			args[arg.Name] = positional[idx]
			idx++
		}
	}
	return args
}

// tokenize splits on whitespace, keeping quoted runs together.
func tokenize(raw string) []string {
	var tokens []string
	var current strings.Builder
	var quote byte

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				current.WriteByte(c)
			}
		case c == '"' || c == '\'':
			quote = c
		case c == ' ' || c == '\t':
			flush()
		default:
			current.WriteByte(c)
		}
	}
	flush()
	return tokens
}

func normalizeValue(value string) string {
	value = strings.Trim(value, `"'`)
	return strings.TrimPrefix(value, "@")
}

var _ ArgumentParser = DefaultArgumentParser{}
