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

// Package digest talks to the digest content endpoint.
//
// The endpoint is the source of truth for digests: put is an
// idempotent upsert, and callers preserve the stage and published
// timestamp of a record that is already published.
package digest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Digest is the endpoint's JSON document. The shape is owned by the
// endpoint; the pipeline reads and writes a handful of keys and passes
// the rest through untouched.
type Digest map[string]any

// Stage returns the digest stage, "preview" or "published".
func (d Digest) Stage() string {
	s, _ := d["stage"].(string)
	return s
}

// Published returns the published timestamp, or "".
func (d Digest) Published() string {
	s, _ := d["published"].(string)
	return s
}

// Client reads and upserts digests at the endpoint.
type Client struct {
	baseURL string
	authKey string
	http    *http.Client
}

// NewClient creates a client for the endpoint at baseURL,
// authenticating with authKey.
func NewClient(baseURL, authKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		authKey: authKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Get fetches the digest for articleID. An absent digest returns
// (nil, nil).
func (c *Client) Get(ctx context.Context, articleID string) (Digest, error) {
	url := fmt.Sprintf("%s/digests/%s", c.baseURL, articleID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("digest: build request: %w", err)
	}
	req.Header.Set("Authorization", c.authKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("digest: get %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return nil, nil
	default:
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("digest: get %s: unexpected status %d", url, resp.StatusCode)
	}

	var d Digest
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		return nil, fmt.Errorf("digest: decode %s: %w", url, err)
	}
	return d, nil
}

// Put upserts the digest for articleID.
func (c *Client) Put(ctx context.Context, articleID string, d Digest) error {
	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("digest: encode digest %s: %w", articleID, err)
	}
	url := fmt.Sprintf("%s/digests/%s", c.baseURL, articleID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("digest: build request: %w", err)
	}
	req.Header.Set("Authorization", c.authKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("digest: put %s: %w", url, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("digest: put %s: unexpected status %d", url, resp.StatusCode)
	}
	return nil
}

// PreviewURL composes the human-facing preview link for articleID.
func PreviewURL(previewBase, articleID string) string {
	return fmt.Sprintf("%s/digests/%s", strings.TrimRight(previewBase, "/"), articleID)
}
