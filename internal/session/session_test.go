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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	defer store.Close()

	tests := []struct {
		key   string
		value any
	}{
		{"version", "1"},
		{"article_id", "00353"},
		{"status", "vor"},
		{"run_type", "silent-correction"},
		{"count", float64(3)}, // JSON numbers decode as float64
		{"approved", true},
	}

	for _, tt := range tests {
		require.NoError(t, store.Store(ctx, "run-1", tt.key, tt.value))
	}
	for _, tt := range tests {
		got, err := store.Load(ctx, "run-1", tt.key)
		require.NoError(t, err)
		assert.Equal(t, tt.value, got, tt.key)
	}
}

func TestSQLiteStoreLastWriteWins(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Store(ctx, "run-1", "version", "1"))
	require.NoError(t, store.Store(ctx, "run-1", "version", "2"))

	got, err := store.Load(ctx, "run-1", "version")
	require.NoError(t, err)
	assert.Equal(t, "2", got)
}

func TestSQLiteStoreRunsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Store(ctx, "run-1", "version", "1"))

	got, err := store.Load(ctx, "run-2", "version")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStoreLoadAbsent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	got, err := store.Load(ctx, "run-1", "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	str, err := LoadString(ctx, store, "run-1", "missing")
	require.NoError(t, err)
	assert.Equal(t, "", str)
}
