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

package artifact

import (
	"sort"
	"sync"
)

// Cache maps server name to its last-known artifact collection. Both store
// and load work on deep copies so callers can never mutate cached state.
type Cache struct {
	mu   sync.Mutex
	data map[string]Collection
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{data: make(map[string]Collection)}
}

// Get returns a deep copy of the cached collection for a server.
func (c *Cache) Get(server string) (Collection, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	col, ok := c.data[server]
	if !ok {
		return Collection{}, false
	}
	return col.Clone(), true
}

// Set stores a deep copy of the collection.
func (c *Cache) Set(server string, col Collection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[server] = col.Clone()
}

// HasChanged reports whether the collection differs structurally from the
// cached value, or no cached value exists.
func (c *Cache) HasChanged(server string, col Collection) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	cached, ok := c.data[server]
	if !ok {
		return true
	}
	return !cached.Equal(col)
}

// Delete removes a server's entry.
func (c *Cache) Delete(server string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, server)
}

// Servers returns the cached server names, sorted.
func (c *Cache) Servers() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.data))
	for name := range c.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a deep copy of the whole cache.
func (c *Cache) Snapshot() map[string]Collection {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]Collection, len(c.data))
	for name, col := range c.data {
		out[name] = col.Clone()
	}
	return out
}
