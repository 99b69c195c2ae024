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

package tools

import (
	"sort"
	"sync"
)

// StateManager tracks which tools are disabled. Disabling a tool removes it
// from the definitions the registry emits; it does not hard-refuse
// execution. The gate is the LLM's tool menu.
type StateManager struct {
	mu       sync.Mutex
	disabled map[string]bool
}

// NewStateManager creates a state manager with every tool enabled.
func NewStateManager() *StateManager {
	return &StateManager{disabled: make(map[string]bool)}
}

// Disable hides a tool from emitted definitions.
func (s *StateManager) Disable(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disabled[name] = true
}

// Enable restores a tool.
func (s *StateManager) Enable(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.disabled, name)
}

// IsDisabled reports whether the tool is hidden.
func (s *StateManager) IsDisabled(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disabled[name]
}

// DisabledTools returns the hidden tool names, sorted.
func (s *StateManager) DisabledTools() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.disabled))
	for name := range s.disabled {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear re-enables everything.
func (s *StateManager) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disabled = make(map[string]bool)
}
