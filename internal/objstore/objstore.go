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

// Package objstore provides a uniform facade over the object store.
//
// Objects are addressed as <scheme>://<bucket>/<key>. The facade is the
// only path activities use to touch stored files, so the pluggable
// implementations (S3 for production, memory for tests) stay
// interchangeable.
package objstore

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Store is the object-store facade.
type Store interface {
	// List returns the keys under prefix in lexicographic order.
	List(ctx context.Context, addr Address) ([]string, error)

	// Get copies the object body into w.
	Get(ctx context.Context, addr Address, w io.Writer) error

	// Put writes r as the object body.
	Put(ctx context.Context, addr Address, r io.Reader) error

	// Copy duplicates src to dst. The copy is atomic at the object level.
	Copy(ctx context.Context, src, dst Address) error

	// Delete removes the object. Callers only delete after a successful
	// Copy when archiving.
	Delete(ctx context.Context, addr Address) error

	// Exists reports whether the object is present.
	Exists(ctx context.Context, addr Address) (bool, error)
}

// Address identifies one object or key prefix.
type Address struct {
	Scheme string
	Bucket string
	Key    string
}

// String renders the address in scheme://bucket/key form. A bucket-only
// address renders without the trailing separator.
func (a Address) String() string {
	s := a.Scheme + "://" + a.Bucket
	if a.Key != "" {
		s += "/" + a.Key
	}
	return s
}

// WithKey returns a copy of the address pointing at key.
func (a Address) WithKey(key string) Address {
	return Address{Scheme: a.Scheme, Bucket: a.Bucket, Key: key}
}

// ParseAddress parses a scheme://bucket/key string. The key part may be
// empty, naming the whole bucket.
func ParseAddress(s string) (Address, error) {
	scheme, rest, ok := strings.Cut(s, "://")
	if !ok || scheme == "" {
		return Address{}, fmt.Errorf("objstore: address %q has no scheme", s)
	}
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Address{}, fmt.Errorf("objstore: address %q has no bucket", s)
	}
	return Address{Scheme: scheme, Bucket: bucket, Key: key}, nil
}

// IoError reports a storage failure along with the offending address.
type IoError struct {
	Address Address
	Op      string
	Err     error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("objstore: %s %s: %v", e.Op, e.Address, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

// FilterSuffix returns the subset of keys ending with suffix, preserving
// order.
func FilterSuffix(keys []string, suffix string) []string {
	var out []string
	for _, k := range keys {
		if strings.HasSuffix(k, suffix) {
			out = append(out, k)
		}
	}
	return out
}
