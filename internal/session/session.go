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

// Package session persists per-run key/value state shared between the
// activities of one workflow execution.
//
// Values are JSON-serializable scalars or short records. Writes are
// last-write-wins per key; by convention each key is written by exactly
// one activity, so no transactions are needed. A value stored before an
// activity reports success is visible to every activity scheduled after
// that completion.
package session

import "context"

// Store is the durable run-scoped key/value store.
type Store interface {
	// Store saves value under (run, key).
	Store(ctx context.Context, run, key string, value any) error

	// Load returns the value under (run, key), or nil when absent.
	Load(ctx context.Context, run, key string) (any, error)
}

// LoadString loads a session value and returns it as a string. Absent
// keys and non-string values return the empty string.
func LoadString(ctx context.Context, s Store, run, key string) (string, error) {
	v, err := s.Load(ctx, run, key)
	if err != nil {
		return "", err
	}
	str, _ := v.(string)
	return str, nil
}
