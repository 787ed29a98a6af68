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

package deposit

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pubflow/pubflow/internal/activity"
	"github.com/pubflow/pubflow/internal/article"
	"github.com/pubflow/pubflow/internal/email"
	"github.com/pubflow/pubflow/internal/log"
	"github.com/pubflow/pubflow/internal/objstore"
)

const testJATS = `<?xml version="1.0"?>
<article article-type="research-article">
  <front>
    <article-meta>
      <article-id pub-id-type="publisher-id">29353</article-id>
      <article-id pub-id-type="doi">10.7554/eLife.29353</article-id>
      <title-group>
        <article-title>A study of something</article-title>
      </title-group>
      <pub-date date-type="publication">
        <day>12</day><month>12</month><year>2017</year>
      </pub-date>
    </article-meta>
  </front>
</article>`

type stubVersions struct {
	highest string
	pubDate string
	err     error
}

func (s stubVersions) HighestVersion(ctx context.Context, articleID string) (string, error) {
	return s.highest, s.err
}

func (s stubVersions) PublicationDate(ctx context.Context, articleID string) (string, error) {
	return s.pubDate, s.err
}

func newEnv(t *testing.T) *activity.Env {
	t.Helper()
	env, err := activity.NewEnv(t.TempDir(), "deposit-test")
	require.NoError(t, err)
	t.Cleanup(func() { env.Cleanup() })
	return env
}

func newPipeline(store objstore.Store, sender email.Sender, published *map[string][]byte, publishErr error) *Pipeline {
	return &Pipeline{
		Name:            "DepositCrossref",
		Domain:          "example.org",
		Store:           store,
		Bucket:          "pubflow-bot",
		OutboxPrefix:    "crossref/outbox/",
		PublishedPrefix: "crossref/published/",
		Versions:        stubVersions{highest: "1"},
		PubDateTypes:    []string{"publication"},
		Generate: func(ctx context.Context, articles []*article.Article, ts time.Time) (map[string][]byte, error) {
			files := make(map[string][]byte, len(articles))
			for _, art := range articles {
				files["crossref-"+art.ID+".xml"] = []byte("<doi_batch/>")
			}
			return files, nil
		},
		Publish: func(ctx context.Context, files map[string][]byte) (map[string]string, error) {
			detail := make(map[string]string, len(files))
			for name := range files {
				if publishErr != nil {
					detail[name] = publishErr.Error()
				} else {
					detail[name] = "accepted"
				}
			}
			if publishErr != nil {
				return detail, publishErr
			}
			if published != nil {
				*published = files
			}
			return detail, nil
		},
		Sender:     sender,
		FromEmail:  "bot@example.org",
		AdminEmail: "admin@example.org",
		Logger:     log.Discard(),
		Now:        func() time.Time { return time.Date(2018, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
}

func putObject(t *testing.T, store objstore.Store, bucket, key, content string) {
	t.Helper()
	err := store.Put(context.Background(), objstore.Address{Bucket: bucket, Key: key},
		strings.NewReader(content))
	require.NoError(t, err)
}

func objectExists(t *testing.T, store objstore.Store, bucket, key string) bool {
	t.Helper()
	ok, err := store.Exists(context.Background(), objstore.Address{Bucket: bucket, Key: key})
	require.NoError(t, err)
	return ok
}

func TestPipelinePublishesOutbox(t *testing.T) {
	store := objstore.NewMemoryStore()
	putObject(t, store, "pubflow-bot", "crossref/outbox/elife-29353-v1.xml", testJATS)
	putObject(t, store, "pubflow-bot", "crossref/outbox/notes.txt", "ignored")

	sender := &email.MemorySender{}
	var published map[string][]byte
	p := newPipeline(store, sender, &published, nil)

	outcome, result, err := p.Run(context.Background(), newEnv(t))
	require.NoError(t, err)
	assert.Equal(t, activity.Success, outcome)

	for _, status := range []string{
		StatusDownload, StatusGenerate, StatusApprove,
		StatusPublish, StatusOutbox, StatusEmail, StatusActivity,
	} {
		assert.True(t, result.Statuses[status], status)
	}
	assert.Equal(t, []string{"elife-29353-v1.xml"}, result.Published)
	assert.Empty(t, result.NotPublished)
	assert.Contains(t, published, "crossref-29353.xml")

	// the outbox source moves under a dated published prefix, batch copy
	// alongside
	assert.False(t, objectExists(t, store, "pubflow-bot", "crossref/outbox/elife-29353-v1.xml"))
	assert.True(t, objectExists(t, store, "pubflow-bot",
		"crossref/published/20180102030405/elife-29353-v1.xml"))
	assert.True(t, objectExists(t, store, "pubflow-bot",
		"crossref/published/20180102030405/batch/crossref-29353.xml"))

	require.Len(t, sender.Messages, 1)
	assert.Contains(t, sender.Messages[0].Subject, "files: 1")
	assert.Contains(t, sender.Messages[0].Subject, "Success")
	// the body carries statuses, outbox contents and the endpoint
	// response per deposit file
	assert.Contains(t, sender.Messages[0].Body, "publish: true")
	assert.Contains(t, sender.Messages[0].Body, "crossref/outbox/elife-29353-v1.xml")
	assert.Contains(t, sender.Messages[0].Body, "crossref-29353.xml: accepted")
}

func TestPipelineEmptyOutbox(t *testing.T) {
	store := objstore.NewMemoryStore()
	sender := &email.MemorySender{}
	p := newPipeline(store, sender, nil, nil)

	outcome, result, err := p.Run(context.Background(), newEnv(t))
	require.NoError(t, err)
	assert.Equal(t, activity.Success, outcome)
	assert.Empty(t, result.Published)
	assert.Empty(t, sender.Messages)
}

func TestPipelineEmbargoedArticle(t *testing.T) {
	store := objstore.NewMemoryStore()
	putObject(t, store, "pubflow-bot", "crossref/outbox/elife-29353-v1.xml", testJATS)

	sender := &email.MemorySender{}
	var published map[string][]byte
	p := newPipeline(store, sender, &published, nil)
	// before the article's 2017-12-12 publication date
	p.Now = func() time.Time { return time.Date(2017, 6, 1, 0, 0, 0, 0, time.UTC) }

	outcome, result, err := p.Run(context.Background(), newEnv(t))
	require.NoError(t, err)
	assert.Equal(t, activity.Success, outcome)

	assert.Empty(t, result.Published)
	assert.Equal(t, []string{"elife-29353-v1.xml"}, result.NotPublished)
	assert.Nil(t, published)

	// the source stays in the outbox for the next run
	assert.True(t, objectExists(t, store, "pubflow-bot", "crossref/outbox/elife-29353-v1.xml"))
	assert.Empty(t, sender.Messages)
}

func TestPipelinePublishFailureStillSucceeds(t *testing.T) {
	store := objstore.NewMemoryStore()
	putObject(t, store, "pubflow-bot", "crossref/outbox/elife-29353-v1.xml", testJATS)

	sender := &email.MemorySender{}
	p := newPipeline(store, sender, nil, errors.New("endpoint down"))

	outcome, result, err := p.Run(context.Background(), newEnv(t))
	require.NoError(t, err)
	assert.Equal(t, activity.Success, outcome)

	assert.False(t, result.Statuses[StatusPublish])
	assert.False(t, result.Statuses[StatusOutbox])
	// nothing archived, source retained
	assert.True(t, objectExists(t, store, "pubflow-bot", "crossref/outbox/elife-29353-v1.xml"))

	require.Len(t, sender.Messages, 1)
	assert.Contains(t, sender.Messages[0].Subject, "FAILED")
	assert.Contains(t, sender.Messages[0].Body, "endpoint down")
}

func TestPipelineUnparseableFile(t *testing.T) {
	store := objstore.NewMemoryStore()
	putObject(t, store, "pubflow-bot", "crossref/outbox/elife-29353-v1.xml", "<article><front>")

	sender := &email.MemorySender{}
	var published map[string][]byte
	p := newPipeline(store, sender, &published, nil)

	outcome, result, err := p.Run(context.Background(), newEnv(t))
	require.NoError(t, err)
	assert.Equal(t, activity.Success, outcome)
	assert.Equal(t, []string{"elife-29353-v1.xml"}, result.NotPublished)
	assert.Nil(t, published)
}

func TestPipelineListFailureIsTemporary(t *testing.T) {
	store := failingStore{}
	p := newPipeline(store, &email.MemorySender{}, nil, nil)

	outcome, _, err := p.Run(context.Background(), newEnv(t))
	require.Error(t, err)
	assert.Equal(t, activity.TemporaryFailure, outcome)
}

type failingStore struct{}

func (failingStore) List(ctx context.Context, addr objstore.Address) ([]string, error) {
	return nil, errors.New("list failed")
}

func (failingStore) Get(ctx context.Context, addr objstore.Address, w io.Writer) error {
	return errors.New("get failed")
}

func (failingStore) Put(ctx context.Context, addr objstore.Address, r io.Reader) error {
	return errors.New("put failed")
}

func (failingStore) Copy(ctx context.Context, src, dst objstore.Address) error {
	return errors.New("copy failed")
}

func (failingStore) Delete(ctx context.Context, addr objstore.Address) error {
	return errors.New("delete failed")
}

func (failingStore) Exists(ctx context.Context, addr objstore.Address) (bool, error) {
	return false, errors.New("exists failed")
}
