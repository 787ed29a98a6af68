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

// Package lax wraps the article-versions service.
//
// The service is deliberately lax about absence: HTTP 404 means "no
// versions yet" and is never an error. Only other non-200 responses are
// failures, and even then most call sites degrade to a sentinel value
// rather than aborting a pipeline.
package lax

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// StampFormat is the compact timestamp format used in deposit batch
// file names and pub dates.
const StampFormat = "20060102150405"

// Version is one entry of an article's version listing.
type Version struct {
	Version     int    `json:"version"`
	Status      string `json:"status"`
	Published   string `json:"published,omitempty"`
	VersionDate string `json:"versionDate,omitempty"`
}

type versionsResponse struct {
	Versions []Version `json:"versions"`
}

// Client queries the article-versions service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the service at baseURL, which should
// end without a trailing slash. verifySSL disables certificate checks
// when false, for test deployments behind self-signed certificates.
func NewClient(baseURL string, verifySSL bool) *Client {
	transport := http.DefaultTransport
	if !verifySSL {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

// Versions returns the version listing for articleID. A 404 response
// yields an empty slice and no error.
func (c *Client) Versions(ctx context.Context, articleID string) ([]Version, error) {
	url := fmt.Sprintf("%s/%s/version/", c.baseURL, articleID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("lax: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lax: get %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil
	default:
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("lax: get %s: unexpected status %d", url, resp.StatusCode)
	}

	var body versionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("lax: decode %s: %w", url, err)
	}
	return body.Versions, nil
}

// HighestVersion returns the highest known version of articleID as a
// string. An article unknown to the service is version "1".
func (c *Client) HighestVersion(ctx context.Context, articleID string) (string, error) {
	versions, err := c.Versions(ctx, articleID)
	if err != nil {
		return "", err
	}
	if len(versions) == 0 {
		return "1", nil
	}
	highest := 0
	for _, v := range versions {
		if v.Version > highest {
			highest = v.Version
		}
	}
	return strconv.Itoa(highest), nil
}

// NextVersion returns the version number following the highest known
// version, or "-1" when the version cannot be determined.
func (c *Client) NextVersion(ctx context.Context, articleID string) string {
	versions, err := c.Versions(ctx, articleID)
	if err != nil {
		return "-1"
	}
	highest := 0
	for _, v := range versions {
		if v.Version > highest {
			highest = v.Version
		}
	}
	return strconv.Itoa(highest + 1)
}

// PublicationDate returns the version-1 published date of articleID in
// StampFormat, or "" when the article or its date is unknown.
func (c *Client) PublicationDate(ctx context.Context, articleID string) (string, error) {
	versions, err := c.Versions(ctx, articleID)
	if err != nil {
		return "", err
	}
	for _, v := range versions {
		if v.Version == 1 && v.Published != "" {
			return reformatDate(v.Published)
		}
	}
	return "", nil
}

// VersionDate returns the versionDate of the given version of
// articleID in StampFormat, or "" when unknown.
func (c *Client) VersionDate(ctx context.Context, articleID string, version int) (string, error) {
	versions, err := c.Versions(ctx, articleID)
	if err != nil {
		return "", err
	}
	for _, v := range versions {
		if v.Version == version && v.VersionDate != "" {
			return reformatDate(v.VersionDate)
		}
	}
	return "", nil
}

// FirstByStatus reports whether version is the lowest version of
// articleID carrying the given status.
func (c *Client) FirstByStatus(ctx context.Context, articleID string, version int, status string) (bool, error) {
	versions, err := c.Versions(ctx, articleID)
	if err != nil {
		return false, err
	}
	first := 0
	for _, v := range versions {
		if v.Status != status {
			continue
		}
		if first == 0 || v.Version < first {
			first = v.Version
		}
	}
	return first != 0 && first == version, nil
}

func reformatDate(value string) (string, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return "", fmt.Errorf("lax: parse date %q: %w", value, err)
	}
	return t.UTC().Format(StampFormat), nil
}
