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
	"log/slog"
	"time"

	"github.com/pubflow/pubflow/internal/activity"
	"github.com/pubflow/pubflow/internal/article"
	"github.com/pubflow/pubflow/internal/email"
	"github.com/pubflow/pubflow/internal/objstore"
	"github.com/pubflow/pubflow/internal/pubmed"
)

// PubmedUploader delivers a batch of deposit files to the PubMed
// dropbox.
type PubmedUploader interface {
	Upload(files map[string][]byte) error
}

// PubmedConfig configures the PubmedArticleDeposit activity.
type PubmedConfig struct {
	Bucket        string
	Domain        string
	JournalTitle  string
	PublisherName string
	PubDateTypes  []string
	FromEmail     string
	AdminEmail    string
}

// Pubmed is the PubmedArticleDeposit activity: render one article-set
// batch from the outbox and drop it on the PubMed SFTP endpoint.
type Pubmed struct {
	pipeline *Pipeline
}

var _ activity.Activity = (*Pubmed)(nil)

// NewPubmed creates the activity.
func NewPubmed(store objstore.Store, versions VersionSource, uploader PubmedUploader, sender email.Sender, logger *slog.Logger, cfg PubmedConfig) *Pubmed {
	opts := pubmed.GenerateOptions{
		JournalTitle:  cfg.JournalTitle,
		PublisherName: cfg.PublisherName,
		PubDateTypes:  cfg.PubDateTypes,
	}

	generate := func(ctx context.Context, articles []*article.Article, ts time.Time) (map[string][]byte, error) {
		content, err := pubmed.GenerateArticleSet(articles, opts)
		if err != nil {
			return nil, err
		}
		return map[string][]byte{pubmed.BatchFileName(ts): content}, nil
	}

	publish := func(ctx context.Context, files map[string][]byte) (map[string]string, error) {
		err := uploader.Upload(files)
		detail := make(map[string]string, len(files))
		for name := range files {
			// SFTP has no response body; record the transfer outcome
			if err != nil {
				detail[name] = err.Error()
			} else {
				detail[name] = "uploaded"
			}
		}
		return detail, err
	}

	return &Pubmed{
		pipeline: &Pipeline{
			Name:            "PubmedArticleDeposit",
			Domain:          cfg.Domain,
			Store:           store,
			Bucket:          cfg.Bucket,
			OutboxPrefix:    "pubmed/outbox/",
			PublishedPrefix: "pubmed/published/",
			Versions:        versions,
			PubDateTypes:    cfg.PubDateTypes,
			Generate:        generate,
			Publish:         publish,
			Sender:          sender,
			FromEmail:       cfg.FromEmail,
			AdminEmail:      cfg.AdminEmail,
			Logger:          logger,
		},
	}
}

// Name implements activity.Activity.
func (p *Pubmed) Name() string { return "PubmedArticleDeposit" }

// Do runs the deposit pipeline.
func (p *Pubmed) Do(ctx context.Context, env *activity.Env, params activity.Params) (activity.Outcome, error) {
	outcome, _, err := p.pipeline.Run(ctx, env)
	return outcome, err
}
