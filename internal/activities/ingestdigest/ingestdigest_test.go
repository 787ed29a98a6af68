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

package ingestdigest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pubflow/pubflow/internal/activities/versionlookup"
	"github.com/pubflow/pubflow/internal/activity"
	"github.com/pubflow/pubflow/internal/digest"
	"github.com/pubflow/pubflow/internal/log"
	"github.com/pubflow/pubflow/internal/monitor"
	"github.com/pubflow/pubflow/internal/objstore"
	"github.com/pubflow/pubflow/internal/session"
)

type fakeDigestAPI struct {
	existing digest.Digest
	getErr   error
	put      digest.Digest
	putID    string
}

func (f *fakeDigestAPI) Get(ctx context.Context, articleID string) (digest.Digest, error) {
	return f.existing, f.getErr
}

func (f *fakeDigestAPI) Put(ctx context.Context, articleID string, d digest.Digest) error {
	f.putID = articleID
	f.put = d
	return nil
}

type stubVersions struct {
	highest  string
	firstVOR bool
	err      error
}

func (s stubVersions) HighestVersion(ctx context.Context, articleID string) (string, error) {
	return s.highest, s.err
}

func (s stubVersions) FirstByStatus(ctx context.Context, articleID string, version int, status string) (bool, error) {
	return s.firstVOR, s.err
}

type fixture struct {
	store    *objstore.MemoryStore
	api      *fakeDigestAPI
	sessions *session.MemoryStore
	sink     *monitor.MemorySink
	ingest   *Ingest
}

func newFixture(versions VersionSource) *fixture {
	f := &fixture{
		store:    objstore.NewMemoryStore(),
		api:      &fakeDigestAPI{},
		sessions: session.NewMemoryStore(),
		sink:     monitor.NewMemorySink(),
	}
	f.ingest = New(f.store, f.api, versions, f.sessions, f.sink, log.Discard(),
		"https://preview.example.org")
	return f
}

func (f *fixture) putObject(t *testing.T, key, content string) {
	t.Helper()
	err := f.store.Put(context.Background(),
		objstore.Address{Bucket: "pubflow-bot", Key: key}, strings.NewReader(content))
	require.NoError(t, err)
}

func TestIngestPreview(t *testing.T) {
	f := newFixture(stubVersions{highest: "1"})
	f.putObject(t, "digests/outbox/DIGEST 07398.docx", "digest body")

	outcome, err := f.ingest.Do(context.Background(), nil, activity.Params{
		Run:      "run-1",
		Bucket:   "pubflow-bot",
		FileName: "digests/outbox/DIGEST 07398.docx",
	})
	require.NoError(t, err)
	assert.Equal(t, activity.Success, outcome)

	assert.Equal(t, "7398", f.api.putID)
	assert.Equal(t, "preview", f.api.put.Stage())
	assert.Equal(t, "DIGEST 07398.docx", f.api.put["sourceFile"])

	require.NotEmpty(t, f.sink.Events)
	last := f.sink.Events[len(f.sink.Events)-1]
	assert.Equal(t, monitor.PhaseEnd, last.Phase)
	assert.Contains(t, last.Message, "https://preview.example.org/digests/7398")
}

func TestIngestPreservesPublishedRecord(t *testing.T) {
	f := newFixture(stubVersions{highest: "1"})
	f.api.existing = digest.Digest{
		"stage":     "published",
		"published": "2017-12-12T00:00:00Z",
		"teaser":    "kept",
	}
	f.putObject(t, "digests/outbox/DIGEST 07398.docx", "digest body")

	outcome, err := f.ingest.Do(context.Background(), nil, activity.Params{
		Run:      "run-2",
		Bucket:   "pubflow-bot",
		FileName: "digests/outbox/DIGEST 07398.docx",
	})
	require.NoError(t, err)
	assert.Equal(t, activity.Success, outcome)

	assert.Equal(t, "published", f.api.put.Stage())
	assert.Equal(t, "2017-12-12T00:00:00Z", f.api.put.Published())
	assert.Equal(t, "kept", f.api.put["teaser"])
}

func TestIngestEnrichesFromSiblingJATS(t *testing.T) {
	f := newFixture(stubVersions{highest: "1"})
	f.putObject(t, "digests/outbox/DIGEST 07398.docx", "digest body")
	f.putObject(t, "digests/outbox/DIGEST 07398.jpg", "image bytes")
	f.putObject(t, "digests/outbox/DIGEST 07398.xml", `<?xml version="1.0"?>
<article>
  <front>
    <article-meta>
      <article-id pub-id-type="publisher-id">07398</article-id>
      <article-id pub-id-type="doi">10.7554/eLife.07398</article-id>
      <title-group><article-title>Digested science</article-title></title-group>
    </article-meta>
  </front>
</article>`)

	outcome, err := f.ingest.Do(context.Background(), nil, activity.Params{
		Run:      "run-3",
		Bucket:   "pubflow-bot",
		FileName: "digests/outbox/DIGEST 07398.docx",
	})
	require.NoError(t, err)
	assert.Equal(t, activity.Success, outcome)

	assert.Equal(t, "Digested science", f.api.put["title"])
	assert.Equal(t, "DIGEST 07398.jpg", f.api.put["image"])
	related, ok := f.api.put["relatedContent"].([]any)
	require.True(t, ok)
	require.Len(t, related, 1)
	assert.Equal(t, "10.7554/eLife.07398", related[0].(map[string]any)["doi"])
}

func TestApprovalMatrix(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		runType  string
		version  string
		versions VersionSource
		approved bool
	}{
		{"vor ingests", "vor", "", "2", stubVersions{highest: "1"}, true},
		{"poa never ingests", "poa", "", "1", stubVersions{highest: "1"}, false},
		{"silent correction at highest", "vor", "silent-correction", "2", stubVersions{highest: "2"}, true},
		{"silent correction behind highest", "vor", "silent-correction", "1", stubVersions{highest: "2"}, false},
		{"silent correction non-numeric version", "vor", "silent-correction", "abc", stubVersions{highest: "2"}, false},
		{"silent correction lax down", "vor", "silent-correction", "2", stubVersions{err: errors.New("boom")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.versions)
			approved, _ := f.ingest.approve(context.Background(),
				tt.status, tt.runType, tt.version, "7398")
			assert.Equal(t, tt.approved, approved)
		})
	}
}

func TestFirstVOROnlyGate(t *testing.T) {
	first := newFixture(stubVersions{highest: "2", firstVOR: true})
	first.ingest.FirstVOROnly = true
	approved, _ := first.ingest.approve(context.Background(), "vor", "", "1", "7398")
	assert.True(t, approved)

	later := newFixture(stubVersions{highest: "2", firstVOR: false})
	later.ingest.FirstVOROnly = true
	approved, reason := later.ingest.approve(context.Background(), "vor", "", "2", "7398")
	assert.False(t, approved)
	assert.Contains(t, reason, "not the first vor")
}

func TestNotApprovedIsStillSuccess(t *testing.T) {
	f := newFixture(stubVersions{highest: "1"})

	outcome, err := f.ingest.Do(context.Background(), nil, activity.Params{
		Run:      "run-4",
		Bucket:   "pubflow-bot",
		FileName: "digests/outbox/DIGEST 07398.docx",
		Status:   "poa",
	})
	require.NoError(t, err)
	assert.Equal(t, activity.Success, outcome)
	assert.Empty(t, f.api.putID)

	require.NotEmpty(t, f.sink.Events)
	assert.Contains(t, f.sink.Events[len(f.sink.Events)-1].Message, "not ingesting")
}

func TestVersionReadFromSession(t *testing.T) {
	f := newFixture(stubVersions{highest: "2"})
	require.NoError(t, f.sessions.Store(context.Background(), "run-5",
		versionlookup.VersionKey, "2"))
	f.putObject(t, "digests/outbox/DIGEST 07398.docx", "digest body")

	outcome, err := f.ingest.Do(context.Background(), nil, activity.Params{
		Run:      "run-5",
		Bucket:   "pubflow-bot",
		FileName: "digests/outbox/DIGEST 07398.docx",
		RunType:  "silent-correction",
	})
	require.NoError(t, err)
	assert.Equal(t, activity.Success, outcome)
	assert.Equal(t, "7398", f.api.putID)
}
