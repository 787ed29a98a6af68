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

package lax

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, status int, body string) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return NewClient(server.URL, true)
}

const twoVersions = `{"versions": [
	{"version": 1, "status": "poa", "published": "2017-12-12T00:00:00Z", "versionDate": "2017-12-12T00:00:00Z"},
	{"version": 2, "status": "vor", "versionDate": "2018-01-15T10:04:00Z"}
]}`

func TestHighestVersion(t *testing.T) {
	ctx := context.Background()

	c := newServer(t, http.StatusOK, twoVersions)
	got, err := c.HighestVersion(ctx, "00353")
	require.NoError(t, err)
	assert.Equal(t, "2", got)

	// an unknown article starts at version 1
	c = newServer(t, http.StatusNotFound, "")
	got, err = c.HighestVersion(ctx, "00353")
	require.NoError(t, err)
	assert.Equal(t, "1", got)

	// a server error is an error, not a guess
	c = newServer(t, http.StatusInternalServerError, "")
	_, err = c.HighestVersion(ctx, "00353")
	assert.Error(t, err)
}

func TestNextVersion(t *testing.T) {
	ctx := context.Background()

	c := newServer(t, http.StatusOK, twoVersions)
	assert.Equal(t, "3", c.NextVersion(ctx, "00353"))

	c = newServer(t, http.StatusNotFound, "")
	assert.Equal(t, "1", c.NextVersion(ctx, "00353"))

	c = newServer(t, http.StatusBadGateway, "")
	assert.Equal(t, "-1", c.NextVersion(ctx, "00353"))
}

func TestPublicationDate(t *testing.T) {
	ctx := context.Background()

	c := newServer(t, http.StatusOK, twoVersions)
	got, err := c.PublicationDate(ctx, "00353")
	require.NoError(t, err)
	assert.Equal(t, "20171212000000", got)

	c = newServer(t, http.StatusNotFound, "")
	got, err = c.PublicationDate(ctx, "00353")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestVersionDate(t *testing.T) {
	c := newServer(t, http.StatusOK, twoVersions)
	got, err := c.VersionDate(context.Background(), "00353", 2)
	require.NoError(t, err)
	assert.Equal(t, "20180115100400", got)
}

func TestFirstByStatus(t *testing.T) {
	ctx := context.Background()
	c := newServer(t, http.StatusOK, twoVersions)

	first, err := c.FirstByStatus(ctx, "00353", 2, "vor")
	require.NoError(t, err)
	assert.True(t, first)

	first, err = c.FirstByStatus(ctx, "00353", 1, "vor")
	require.NoError(t, err)
	assert.False(t, first)

	first, err = c.FirstByStatus(ctx, "00353", 1, "preprint")
	require.NoError(t, err)
	assert.False(t, first)
}
