// Copyright 2025 The Pubflow Authors
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

package session

import (
	"context"
	"sync"
)

// Compile-time interface assertion.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory session store for tests.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]map[string]any // run -> key -> value
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]map[string]any)}
}

// Store saves value under (run, key).
func (m *MemoryStore) Store(ctx context.Context, run, key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values[run] == nil {
		m.values[run] = make(map[string]any)
	}
	m.values[run][key] = value
	return nil
}

// Load returns the value under (run, key), or nil when absent.
func (m *MemoryStore) Load(ctx context.Context, run, key string) (any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[run][key], nil
}
