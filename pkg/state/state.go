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

// Package state provides pluggable persistence for session snapshots.
package state

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Load when no value exists for a key.
var ErrNotFound = errors.New("state: key not found")

// Provider is the persistence backend contract. Values are opaque JSON
// payloads.
type Provider interface {
	Save(ctx context.Context, key string, value []byte) error

	Load(ctx context.Context, key string) ([]byte, error)

	Exists(ctx context.Context, key string) (bool, error)

	Delete(ctx context.Context, key string) error

	// ListKeys returns keys matching the prefix ("" matches all),
	// alphabetically sorted.
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}
