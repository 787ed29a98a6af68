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

// Package crossref deposits article metadata with the Crossref
// registration endpoint and generates the deposit XML it accepts.
package crossref

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// Client uploads deposit files to the Crossref HTTPS endpoint.
type Client struct {
	url         string
	loginID     string
	loginPasswd string
	http        *http.Client
}

// NewClient creates a deposit client for the given endpoint and
// credentials.
func NewClient(url, loginID, loginPasswd string) *Client {
	return &Client{
		url:         url,
		loginID:     loginID,
		loginPasswd: loginPasswd,
		http:        &http.Client{Timeout: 2 * time.Minute},
	}
}

// Deposit uploads one deposit file as a doMDUpload multipart form and
// returns the endpoint's response body verbatim. A non-200 response is
// an error; Crossref processes the batch asynchronously, so a 200 means
// accepted, not registered.
func (c *Client) Deposit(ctx context.Context, filename string, content []byte) (string, error) {
	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	form.WriteField("operation", "doMDUpload")
	form.WriteField("login_id", c.loginID)
	form.WriteField("login_passwd", c.loginPasswd)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("crossref: build form: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return "", fmt.Errorf("crossref: build form: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("crossref: build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return "", fmt.Errorf("crossref: build request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("crossref: post %s: %w", filename, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("crossref: read response for %s: %w", filename, err)
	}

	if resp.StatusCode != http.StatusOK {
		return string(respBody), fmt.Errorf("crossref: post %s: unexpected status %d", filename, resp.StatusCode)
	}
	return string(respBody), nil
}
