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

package objstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory Store implementation for tests and local
// development.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte // bucket/key -> body
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func memKey(addr Address) string {
	return addr.Bucket + "/" + addr.Key
}

// List returns keys under the address key prefix in lexicographic order.
func (m *MemoryStore) List(ctx context.Context, addr Address) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	prefix := addr.Bucket + "/"
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			key := strings.TrimPrefix(k, prefix)
			if strings.HasPrefix(key, addr.Key) {
				keys = append(keys, key)
			}
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Get copies the object body into w.
func (m *MemoryStore) Get(ctx context.Context, addr Address, w io.Writer) error {
	m.mu.RLock()
	body, ok := m.objects[memKey(addr)]
	m.mu.RUnlock()
	if !ok {
		return &IoError{Address: addr, Op: "get", Err: fmt.Errorf("no such key")}
	}
	_, err := io.Copy(w, bytes.NewReader(body))
	return err
}

// Put writes r as the object body.
func (m *MemoryStore) Put(ctx context.Context, addr Address, r io.Reader) error {
	body, err := io.ReadAll(r)
	if err != nil {
		return &IoError{Address: addr, Op: "put", Err: err}
	}
	m.mu.Lock()
	m.objects[memKey(addr)] = body
	m.mu.Unlock()
	return nil
}

// Copy duplicates src to dst.
func (m *MemoryStore) Copy(ctx context.Context, src, dst Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	body, ok := m.objects[memKey(src)]
	if !ok {
		return &IoError{Address: src, Op: "copy", Err: fmt.Errorf("no such key")}
	}
	dup := make([]byte, len(body))
	copy(dup, body)
	m.objects[memKey(dst)] = dup
	return nil
}

// Delete removes the object.
func (m *MemoryStore) Delete(ctx context.Context, addr Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[memKey(addr)]; !ok {
		return &IoError{Address: addr, Op: "delete", Err: fmt.Errorf("no such key")}
	}
	delete(m.objects, memKey(addr))
	return nil
}

// Exists reports whether the object is present.
func (m *MemoryStore) Exists(ctx context.Context, addr Address) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[memKey(addr)]
	return ok, nil
}
