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

// Package artifact aggregates tools, prompts, and resources across the MCP
// fleet into a cached, change-detected view.
package artifact

import (
	"reflect"

	"github.com/stratum-ai/stratum/pkg/mcp"
)

// Record is a compact name/description pair used in summaries.
type Record struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Collection holds everything one server surfaces.
type Collection struct {
	Tools     []mcp.ToolInfo     `json:"tools"`
	Prompts   []mcp.PromptInfo   `json:"prompts"`
	Resources []mcp.ResourceInfo `json:"resources"`
}

// IsEmpty reports whether the server surfaced nothing.
func (c Collection) IsEmpty() bool {
	return len(c.Tools) == 0 && len(c.Prompts) == 0 && len(c.Resources) == 0
}

// Equal compares structurally; it drives change detection.
func (c Collection) Equal(other Collection) bool {
	return reflect.DeepEqual(c.normalize(), other.normalize())
}

// normalize maps empty slices and nil to the same shape so a freshly
// decoded collection compares equal to a constructed one.
func (c Collection) normalize() Collection {
	if len(c.Tools) == 0 {
		c.Tools = nil
	}
	if len(c.Prompts) == 0 {
		c.Prompts = nil
	}
	if len(c.Resources) == 0 {
		c.Resources = nil
	}
	return c
}

// Clone returns a deep copy.
func (c Collection) Clone() Collection {
	out := Collection{}
	if c.Tools != nil {
		out.Tools = make([]mcp.ToolInfo, len(c.Tools))
		for i, t := range c.Tools {
			out.Tools[i] = mcp.ToolInfo{
				Name:        t.Name,
				Description: t.Description,
				InputSchema: cloneMap(t.InputSchema),
			}
		}
	}
	if c.Prompts != nil {
		out.Prompts = make([]mcp.PromptInfo, len(c.Prompts))
		for i, p := range c.Prompts {
			cp := p
			cp.Arguments = append([]mcp.PromptArgument(nil), p.Arguments...)
			out.Prompts[i] = cp
		}
	}
	if c.Resources != nil {
		out.Resources = append([]mcp.ResourceInfo(nil), c.Resources...)
	}
	return out
}

// ToolRecords returns the tools as compact records.
func (c Collection) ToolRecords() []Record {
	records := make([]Record, 0, len(c.Tools))
	for _, t := range c.Tools {
		records = append(records, Record{Name: t.Name, Description: t.Description})
	}
	return records
}

// PromptRecords returns the prompts as compact records.
func (c Collection) PromptRecords() []Record {
	records := make([]Record, 0, len(c.Prompts))
	for _, p := range c.Prompts {
		records = append(records, Record{Name: p.Name, Description: p.Description})
	}
	return records
}

// ResourceRecords returns the resources as compact records keyed by URI.
func (c Collection) ResourceRecords() []Record {
	records := make([]Record, 0, len(c.Resources))
	for _, r := range c.Resources {
		records = append(records, Record{Name: r.URI, Description: r.Description})
	}
	return records
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
