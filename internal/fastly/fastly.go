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

// Package fastly purges CDN surrogate keys after content changes.
package fastly

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pubflow/pubflow/internal/article"
)

// DefaultAPIURL is the production purge API endpoint.
const DefaultAPIURL = "https://api.fastly.com"

// Client purges surrogate keys across the configured services.
type Client struct {
	apiURL     string
	apiKey     string
	serviceIDs []string
	http       *http.Client
}

// NewClient creates a purge client. apiURL falls back to DefaultAPIURL
// when empty.
func NewClient(apiURL, apiKey string, serviceIDs []string) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{
		apiURL:     apiURL,
		apiKey:     apiKey,
		serviceIDs: serviceIDs,
		http:       &http.Client{Timeout: 30 * time.Second},
	}
}

// ArticleKeys returns the surrogate keys invalidated when an article
// version changes.
func ArticleKeys(articleID string, version int) []string {
	return []string{
		fmt.Sprintf("articles/%sv%d", article.PadID(articleID), version),
		fmt.Sprintf("articles/%s/videos", articleID),
	}
}

// PurgeArticle purges the article's surrogate keys on every configured
// service. The first failure aborts the sweep.
func (c *Client) PurgeArticle(ctx context.Context, articleID string, version int) error {
	for _, serviceID := range c.serviceIDs {
		for _, key := range ArticleKeys(articleID, version) {
			if err := c.purge(ctx, serviceID, key); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Client) purge(ctx context.Context, serviceID, key string) error {
	url := fmt.Sprintf("%s/service/%s/purge/%s", c.apiURL, serviceID, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("fastly: build request: %w", err)
	}
	req.Header.Set("Fastly-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fastly: purge %s on %s: %w", key, serviceID, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fastly: purge %s on %s: unexpected status %d", key, serviceID, resp.StatusCode)
	}
	return nil
}
