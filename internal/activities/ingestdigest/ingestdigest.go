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

// Package ingestdigest pushes digest documents from the bot bucket to
// the digest endpoint.
//
// Ingest is gated by an approval matrix: publish-on-accept articles
// never carry digests, and silent corrections only re-ingest when they
// touch the latest version. A disapproved run is still a success; the
// monitor event records why nothing was ingested.
package ingestdigest

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"github.com/pubflow/pubflow/internal/activity"
	"github.com/pubflow/pubflow/internal/article"
	"github.com/pubflow/pubflow/internal/digest"
	"github.com/pubflow/pubflow/internal/log"
	"github.com/pubflow/pubflow/internal/monitor"
	"github.com/pubflow/pubflow/internal/objstore"
	"github.com/pubflow/pubflow/internal/session"
	"github.com/pubflow/pubflow/internal/activities/versionlookup"
)

// Session keys written by the ingest.
const (
	ArticleIDKey = "article_id"
	StatusKey    = "status"
	RunTypeKey   = "run_type"
)

// DigestAPI is the digest endpoint surface the ingest needs.
type DigestAPI interface {
	Get(ctx context.Context, articleID string) (digest.Digest, error)
	Put(ctx context.Context, articleID string, d digest.Digest) error
}

// VersionSource answers the version questions of the approval gate.
type VersionSource interface {
	HighestVersion(ctx context.Context, articleID string) (string, error)

	// FirstByStatus reports whether version is the lowest version of
	// the article carrying status.
	FirstByStatus(ctx context.Context, articleID string, version int, status string) (bool, error)
}

// Purger invalidates CDN cache entries after an ingest. Optional.
type Purger interface {
	PurgeArticle(ctx context.Context, articleID string, version int) error
}

// Ingest is the IngestDigestToEndpoint activity.
type Ingest struct {
	store       objstore.Store
	digests     DigestAPI
	versions    VersionSource
	sessions    session.Store
	sink        monitor.Sink
	logger      *slog.Logger
	previewBase string

	// Purger, when set, purges the article's CDN keys after a
	// successful ingest. Purge failures are logged, never fatal: the
	// cache expires on its own.
	Purger Purger

	// FirstVOROnly restricts ingest to the first version-of-record of
	// an article; later VORs keep the digest already on the endpoint.
	FirstVOROnly bool
}

var _ activity.Activity = (*Ingest)(nil)

// New creates the activity. previewBase is the human-facing site the
// end event links to.
func New(store objstore.Store, digests DigestAPI, versions VersionSource, sessions session.Store, sink monitor.Sink, logger *slog.Logger, previewBase string) *Ingest {
	return &Ingest{
		store:       store,
		digests:     digests,
		versions:    versions,
		sessions:    sessions,
		sink:        sink,
		logger:      log.WithComponent(logger, "ingestdigest"),
		previewBase: previewBase,
	}
}

// Name implements activity.Activity.
func (i *Ingest) Name() string { return "IngestDigestToEndpoint" }

// Do implements activity.Activity.
func (i *Ingest) Do(ctx context.Context, env *activity.Env, params activity.Params) (activity.Outcome, error) {
	logger := i.logger.With(log.RunKey, params.Run)

	articleID := params.ArticleID
	if articleID == "" {
		info, err := article.Parse(params.FileName)
		if err != nil {
			return activity.PermanentFailure,
				fmt.Errorf("ingestdigest: no article id in %q: %w", params.FileName, err)
		}
		articleID = info.ID
	}

	version, err := session.LoadString(ctx, i.sessions, params.Run, versionlookup.VersionKey)
	if err != nil {
		return activity.TemporaryFailure, err
	}
	if version == "" {
		version = params.Version
	}

	for key, value := range map[string]string{
		ArticleIDKey: articleID,
		StatusKey:    params.Status,
		RunTypeKey:   params.RunType,
	} {
		if err := i.sessions.Store(ctx, params.Run, key, value); err != nil {
			return activity.TemporaryFailure, err
		}
	}

	approved, reason := i.approve(ctx, params.Status, params.RunType, version, articleID)
	if !approved {
		logger.Info("not ingesting", log.ArticleIDKey, articleID, "reason", reason)
		i.emit(ctx, articleID, version, params.Run, "not ingesting: "+reason)
		return activity.Success, nil
	}

	doc, err := i.buildDigest(ctx, articleID, params)
	if err != nil {
		logger.Error("digest build failed", log.Error(err), log.ArticleIDKey, articleID)
		return activity.TemporaryFailure, err
	}

	if err := i.digests.Put(ctx, articleID, doc); err != nil {
		return activity.TemporaryFailure, err
	}

	if i.Purger != nil {
		v, convErr := strconv.Atoi(version)
		if convErr != nil {
			v = 0
		}
		if err := i.Purger.PurgeArticle(ctx, articleID, v); err != nil {
			logger.Error("cdn purge failed", log.Error(err), log.ArticleIDKey, articleID)
		}
	}

	preview := digest.PreviewURL(i.previewBase, articleID)
	logger.Info("digest ingested", log.ArticleIDKey, articleID, "preview", preview)
	i.emit(ctx, articleID, version, params.Run, "ingested, preview at "+preview)
	return activity.Success, nil
}

// approve applies the ingest gate. Lax being unreachable during a
// silent correction disapproves: re-ingesting a stale version is worse
// than skipping a fresh one.
func (i *Ingest) approve(ctx context.Context, status, runType, version, articleID string) (bool, string) {
	if status == "poa" {
		return false, "poa articles carry no digest"
	}

	if runType == "silent-correction" {
		v, err := strconv.Atoi(version)
		if err != nil {
			return false, fmt.Sprintf("version %q is not a number", version)
		}
		highest, err := i.versions.HighestVersion(ctx, articleID)
		if err != nil {
			return false, "highest version unavailable"
		}
		h, err := strconv.Atoi(highest)
		if err != nil {
			return false, fmt.Sprintf("highest version %q is not a number", highest)
		}
		if v < h {
			return false, fmt.Sprintf("version %d behind highest %d", v, h)
		}
		return true, ""
	}

	if i.FirstVOROnly && status == "vor" {
		v, err := strconv.Atoi(version)
		if err != nil {
			return false, fmt.Sprintf("version %q is not a number", version)
		}
		first, err := i.versions.FirstByStatus(ctx, articleID, v, "vor")
		if err != nil {
			return false, "version listing unavailable"
		}
		if !first {
			return false, fmt.Sprintf("version %d is not the first vor", v)
		}
	}
	return true, ""
}

// buildDigest composes the endpoint document: the existing record as
// the base, source naming from the triggering file, and title plus
// related-article detail from a sibling JATS file when one is present.
func (i *Ingest) buildDigest(ctx context.Context, articleID string, params activity.Params) (digest.Digest, error) {
	existing, err := i.digests.Get(ctx, articleID)
	if err != nil {
		return nil, err
	}

	doc := digest.Digest{}
	for k, v := range existing {
		doc[k] = v
	}
	doc["id"] = articleID

	base := path.Base(params.FileName)
	doc["sourceFile"] = article.StripVersion(base)

	if image, ok := i.findImage(ctx, params.Bucket, params.FileName); ok {
		doc["image"] = article.StripVersion(path.Base(image))
	}

	if err := i.enrichFromJATS(ctx, doc, params.Bucket, params.FileName); err != nil {
		return nil, err
	}

	// a published digest keeps its stage and timestamp; everything else
	// lands in preview
	if existing.Stage() != "published" {
		doc["stage"] = "preview"
		delete(doc, "published")
	}
	return doc, nil
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif"}

// findImage looks for a sibling image sharing the digest file's stem.
func (i *Ingest) findImage(ctx context.Context, bucket, fileName string) (string, bool) {
	stem := strings.TrimSuffix(fileName, path.Ext(fileName))
	for _, ext := range imageExtensions {
		key := stem + ext
		ok, err := i.store.Exists(ctx, objstore.Address{Bucket: bucket, Key: key})
		if err == nil && ok {
			return key, true
		}
	}
	return "", false
}

// enrichFromJATS fills title and related-article detail from a sibling
// <stem>.xml when the producer shipped one; its absence is not an
// error.
func (i *Ingest) enrichFromJATS(ctx context.Context, doc digest.Digest, bucket, fileName string) error {
	stem := strings.TrimSuffix(fileName, path.Ext(fileName))
	addr := objstore.Address{Bucket: bucket, Key: stem + ".xml"}

	ok, err := i.store.Exists(ctx, addr)
	if err != nil || !ok {
		return err
	}

	var buf bytes.Buffer
	if err := i.store.Get(ctx, addr, &buf); err != nil {
		return err
	}
	art, err := article.ParseArticle(buf.Bytes())
	if err != nil {
		return fmt.Errorf("ingestdigest: parse sibling jats: %w", err)
	}

	if art.Title != "" {
		doc["title"] = art.Title
	}
	if art.DOI != "" {
		doc["relatedContent"] = []any{map[string]any{
			"type":  "research-article",
			"id":    art.ID,
			"doi":   art.DOI,
			"title": art.Title,
		}}
	}
	return nil
}

func (i *Ingest) emit(ctx context.Context, articleID, version, run, message string) {
	if i.sink == nil {
		return
	}
	// monitor delivery is best effort
	_ = i.sink.Emit(ctx, articleID, version, run, "IngestDigestToEndpoint", monitor.PhaseEnd, message)
}
