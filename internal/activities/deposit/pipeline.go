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

// Package deposit runs the outbox-to-endpoint deposit pipeline shared
// by the Crossref and PubMed activities.
//
// The pipeline is deliberately forgiving: once the outbox has been
// approved for publishing, endpoint failures propagate only through
// bookkeeping. The activity still succeeds so the workflow does not
// loop, and the admin email carries the failure detail.
package deposit

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pubflow/pubflow/internal/activity"
	"github.com/pubflow/pubflow/internal/article"
	"github.com/pubflow/pubflow/internal/email"
	"github.com/pubflow/pubflow/internal/log"
	"github.com/pubflow/pubflow/internal/objstore"
)

// Status keys tracked across one pipeline run.
const (
	StatusDownload = "download"
	StatusGenerate = "generate"
	StatusApprove  = "approve"
	StatusPublish  = "publish"
	StatusOutbox   = "outbox"
	StatusEmail    = "email"
	StatusActivity = "activity"
)

// VersionSource fills in article fields missing from the source XML.
type VersionSource interface {
	HighestVersion(ctx context.Context, articleID string) (string, error)
	PublicationDate(ctx context.Context, articleID string) (string, error)
}

// Generator renders deposit documents for the approved articles,
// returning file name to content.
type Generator func(ctx context.Context, articles []*article.Article, ts time.Time) (map[string][]byte, error)

// Publisher delivers generated deposit documents to the endpoint. It
// attempts every file even after a failure and returns the per-file
// endpoint responses (or failure text) alongside the first error.
type Publisher func(ctx context.Context, files map[string][]byte) (map[string]string, error)

// Pipeline is one configured deposit flow.
type Pipeline struct {
	Name   string
	Domain string

	Store           objstore.Store
	Bucket          string
	OutboxPrefix    string
	PublishedPrefix string

	Versions     VersionSource
	PubDateTypes []string

	Generate Generator
	Publish  Publisher

	Sender     email.Sender
	FromEmail  string
	AdminEmail string

	Logger *slog.Logger

	// Now is the clock; nil means time.Now. The embargo comparison and
	// the published-prefix datestamp both use it.
	Now func() time.Time
}

// Result is the bookkeeping of one pipeline run.
type Result struct {
	Statuses     map[string]bool
	Published    []string
	NotPublished []string

	// Detail holds the endpoint's verbatim response per generated file.
	Detail map[string]string
}

// Run executes the pipeline against the outbox. It returns Success in
// every case but an unreadable outbox listing; per-file failures are
// bookkeeping, not errors.
func (p *Pipeline) Run(ctx context.Context, env *activity.Env) (activity.Outcome, Result, error) {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	result := Result{Statuses: map[string]bool{StatusActivity: true}}
	logger := p.Logger.With(log.ActivityKey, p.Name)

	names, err := p.listOutbox(ctx)
	if err != nil {
		return activity.TemporaryFailure, result, err
	}
	if len(names) == 0 {
		logger.Info("outbox empty, nothing to deposit")
		return activity.Success, result, nil
	}

	ok := p.download(ctx, logger, env, names)
	result.Statuses[StatusDownload] = ok
	if !ok {
		return activity.Success, result, nil
	}

	articles := p.parse(logger, env, names, &result)
	files, ok := p.generate(ctx, logger, articles, now(), &result)
	result.Statuses[StatusGenerate] = ok

	approved := len(files) > 0
	result.Statuses[StatusApprove] = approved
	if approved {
		published := true
		detail, err := p.Publish(ctx, files)
		if err != nil {
			logger.Error("publish failed", log.Error(err))
			published = false
		}
		result.Detail = detail
		for name, response := range detail {
			logger.Info("endpoint response", log.KeyNameKey, name, "response", response)
		}
		result.Statuses[StatusPublish] = published
		if published {
			result.Statuses[StatusOutbox] = p.archive(ctx, logger, now(), result.Published, files)
		}
	}

	if len(result.Published) > 0 {
		result.Statuses[StatusEmail] = p.notify(ctx, logger, result, names, now())
	}
	return activity.Success, result, nil
}

func (p *Pipeline) listOutbox(ctx context.Context) ([]string, error) {
	keys, err := p.Store.List(ctx, objstore.Address{Bucket: p.Bucket, Key: p.OutboxPrefix})
	if err != nil {
		return nil, fmt.Errorf("deposit: list outbox: %w", err)
	}
	return objstore.FilterSuffix(keys, ".xml"), nil
}

// download fetches each outbox file into the input dir. Any failure
// aborts the run before generation.
func (p *Pipeline) download(ctx context.Context, logger *slog.Logger, env *activity.Env, keys []string) bool {
	for _, key := range keys {
		var buf bytes.Buffer
		if err := p.Store.Get(ctx, objstore.Address{Bucket: p.Bucket, Key: key}, &buf); err != nil {
			logger.Error("download failed", log.Error(err), log.KeyNameKey, key)
			return false
		}
		name := filepath.Base(key)
		if err := os.WriteFile(filepath.Join(env.InputDir, name), buf.Bytes(), 0o644); err != nil {
			logger.Error("write input failed", log.Error(err), log.KeyNameKey, key)
			return false
		}
	}
	return true
}

// parse turns each downloaded XML into an article record, filling in
// version and publication date from the version source. Unparseable
// files land on the not-published list.
func (p *Pipeline) parse(logger *slog.Logger, env *activity.Env, keys []string, result *Result) map[string]*article.Article {
	articles := make(map[string]*article.Article)
	for _, key := range keys {
		name := filepath.Base(key)
		data, err := os.ReadFile(filepath.Join(env.InputDir, name))
		if err != nil {
			logger.Error("read input failed", log.Error(err), log.KeyNameKey, name)
			result.NotPublished = append(result.NotPublished, name)
			continue
		}
		art, err := article.ParseArticle(data)
		if err != nil {
			logger.Error("unparseable article", log.Error(err), log.KeyNameKey, name)
			result.NotPublished = append(result.NotPublished, name)
			continue
		}
		if art.ID == "" {
			if info, err := article.Parse(name); err == nil {
				art.ID = info.ID
			}
		}
		articles[name] = art
	}
	return articles
}

// generate fills in missing metadata, applies the embargo and renders
// deposit documents. Articles excluded here join the not-published
// list; the rest join the published list.
func (p *Pipeline) generate(ctx context.Context, logger *slog.Logger, articles map[string]*article.Article, now time.Time, result *Result) (map[string][]byte, bool) {
	var approved []*article.Article
	for name, art := range articles {
		if err := p.fillIn(ctx, art); err != nil {
			logger.Error("metadata fill-in failed", log.Error(err), log.KeyNameKey, name)
			result.NotPublished = append(result.NotPublished, name)
			continue
		}
		if pub, ok := art.FirstPubDate(p.PubDateTypes); ok && pub.After(now) {
			logger.Info("article embargoed",
				log.ArticleIDKey, art.ID, "pub_date", pub.Format(time.RFC3339))
			result.NotPublished = append(result.NotPublished, name)
			continue
		}
		approved = append(approved, art)
		result.Published = append(result.Published, name)
	}
	if len(approved) == 0 {
		return nil, true
	}

	files, err := p.Generate(ctx, approved, now)
	if err != nil {
		logger.Error("generation failed", log.Error(err))
		result.NotPublished = append(result.NotPublished, result.Published...)
		result.Published = nil
		return nil, false
	}
	return files, true
}

// fillIn completes version and publication date from the version
// source when the XML does not carry them.
func (p *Pipeline) fillIn(ctx context.Context, art *article.Article) error {
	if art.Version == 0 && art.ID != "" {
		highest, err := p.Versions.HighestVersion(ctx, art.ID)
		if err != nil {
			return err
		}
		if v, err := strconv.Atoi(highest); err == nil {
			art.Version = v
		}
	}
	if _, ok := art.FirstPubDate(p.PubDateTypes); !ok && len(p.PubDateTypes) > 0 {
		stamp, err := p.Versions.PublicationDate(ctx, art.ID)
		if err != nil {
			return err
		}
		if stamp != "" {
			t, err := time.ParseInLocation("20060102150405", stamp, time.UTC)
			if err != nil {
				return fmt.Errorf("deposit: parse publication date %q: %w", stamp, err)
			}
			art.SetPubDate(p.PubDateTypes[0], t)
		}
	}
	return nil
}

// archive moves published sources into the dated published prefix and
// stores a copy of every generated document under batch/. Copy
// completes before delete, so a crash duplicates rather than loses.
func (p *Pipeline) archive(ctx context.Context, logger *slog.Logger, now time.Time, published []string, files map[string][]byte) bool {
	stamp := now.UTC().Format("20060102150405")
	ok := true
	for _, name := range published {
		from := objstore.Address{Bucket: p.Bucket, Key: p.OutboxPrefix + name}
		to := objstore.Address{Bucket: p.Bucket, Key: fmt.Sprintf("%s%s/%s", p.PublishedPrefix, stamp, name)}
		if err := p.Store.Copy(ctx, from, to); err != nil {
			logger.Error("archive copy failed", log.Error(err), log.KeyNameKey, name)
			ok = false
			continue
		}
		if err := p.Store.Delete(ctx, from); err != nil {
			logger.Error("outbox delete failed", log.Error(err), log.KeyNameKey, name)
			ok = false
		}
	}
	for name, content := range files {
		to := objstore.Address{Bucket: p.Bucket, Key: fmt.Sprintf("%s%s/batch/%s", p.PublishedPrefix, stamp, name)}
		if err := p.Store.Put(ctx, to, bytes.NewReader(content)); err != nil {
			logger.Error("batch upload failed", log.Error(err), log.KeyNameKey, name)
			ok = false
		}
	}
	return ok
}

func (p *Pipeline) notify(ctx context.Context, logger *slog.Logger, result Result, outbox []string, now time.Time) bool {
	if p.Sender == nil {
		return false
	}
	msg := email.AdminMessage(email.AdminReport{
		Activity:     p.Name,
		Domain:       p.Domain,
		Succeeded:    result.Statuses[StatusPublish],
		Statuses:     result.Statuses,
		Outbox:       outbox,
		Published:    result.Published,
		NotPublished: result.NotPublished,
		Detail:       result.Detail,
		Timestamp:    now,
	}, p.FromEmail, p.AdminEmail)
	if err := p.Sender.Send(ctx, msg); err != nil {
		logger.Error("admin email failed", log.Error(err))
		return false
	}
	return true
}
