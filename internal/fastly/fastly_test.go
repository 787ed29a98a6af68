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

package fastly

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArticleKeys(t *testing.T) {
	assert.Equal(t, []string{
		"articles/00353v2",
		"articles/353/videos",
	}, ArticleKeys("353", 2))
}

func TestPurgeArticle(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "key", r.Header.Get("Fastly-Key"))
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewClient(server.URL, "key", []string{"svc1", "svc2"})
	require.NoError(t, c.PurgeArticle(context.Background(), "353", 2))
	assert.Equal(t, []string{
		"/service/svc1/purge/articles/00353v2",
		"/service/svc1/purge/articles/353/videos",
		"/service/svc2/purge/articles/00353v2",
		"/service/svc2/purge/articles/353/videos",
	}, paths)
}

func TestPurgeArticleStopsOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusUnauthorized)
	}))
	defer server.Close()

	c := NewClient(server.URL, "key", []string{"svc1"})
	err := c.PurgeArticle(context.Background(), "353", 2)
	assert.Error(t, err)
}
