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

package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const fileSuffix = ".json"

// FilesystemProvider stores one JSON file per key under a base directory.
// Keys map to filenames with ":" replaced by "__" and "/" by "_". Writes
// are atomic: temp file then rename.
type FilesystemProvider struct {
	baseDir string
}

// NewFilesystemProvider creates the provider, expanding a leading "~" and
// creating the base directory.
func NewFilesystemProvider(baseDir string) (*FilesystemProvider, error) {
	expanded, err := expandTilde(baseDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(expanded, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", expanded, err)
	}
	return &FilesystemProvider{baseDir: expanded}, nil
}

// BaseDir returns the resolved storage directory.
func (p *FilesystemProvider) BaseDir() string { return p.baseDir }

func (p *FilesystemProvider) Save(ctx context.Context, key string, value []byte) error {
	path := p.pathFor(key)
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return fmt.Errorf("failed to write state for %s: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to commit state for %s: %w", key, err)
	}
	return nil
}

func (p *FilesystemProvider) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(p.pathFor(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read state for %s: %w", key, err)
	}
	return data, nil
}

func (p *FilesystemProvider) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(p.pathFor(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (p *FilesystemProvider) Delete(ctx context.Context, key string) error {
	err := os.Remove(p.pathFor(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete state for %s: %w", key, err)
	}
	return nil
}

func (p *FilesystemProvider) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(p.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list state directory: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		key := keyFromFilename(strings.TrimSuffix(name, fileSuffix))
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (p *FilesystemProvider) pathFor(key string) string {
	return filepath.Join(p.baseDir, sanitizeKey(key)+fileSuffix)
}

func sanitizeKey(key string) string {
	key = strings.ReplaceAll(key, ":", "__")
	return strings.ReplaceAll(key, "/", "_")
}

func keyFromFilename(name string) string {
	name = strings.ReplaceAll(name, "__", ":")
	return strings.ReplaceAll(name, "_", "/")
}

func expandTilde(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}

var _ Provider = (*FilesystemProvider)(nil)
