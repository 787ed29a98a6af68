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

package digest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/digests/7398", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("Authorization"))
		w.Write([]byte(`{"id": "7398", "stage": "published", "published": "2018-07-06T09:06:01Z"}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "secret")
	d, err := c.Get(context.Background(), "7398")
	require.NoError(t, err)
	assert.Equal(t, "published", d.Stage())
	assert.Equal(t, "2018-07-06T09:06:01Z", d.Published())
}

func TestGetAbsent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	c := NewClient(server.URL, "secret")
	d, err := c.Get(context.Background(), "7398")
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestPut(t *testing.T) {
	var got Digest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/digests/7398", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewClient(server.URL, "secret")
	err := c.Put(context.Background(), "7398", Digest{"id": "7398", "stage": "preview"})
	require.NoError(t, err)
	assert.Equal(t, "preview", got.Stage())
}

func TestPreviewURL(t *testing.T) {
	assert.Equal(t, "https://preview.example.org/digests/7398",
		PreviewURL("https://preview.example.org/", "7398"))
}
