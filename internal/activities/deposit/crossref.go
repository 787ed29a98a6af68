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
	"fmt"
	"log/slog"
	"time"

	"github.com/pubflow/pubflow/internal/activity"
	"github.com/pubflow/pubflow/internal/article"
	"github.com/pubflow/pubflow/internal/crossref"
	"github.com/pubflow/pubflow/internal/email"
	"github.com/pubflow/pubflow/internal/objstore"
)

// CrossrefDepositor uploads one deposit file to the Crossref endpoint
// and returns the endpoint's response body.
type CrossrefDepositor interface {
	Deposit(ctx context.Context, filename string, content []byte) (string, error)
}

// CrossrefConfig configures a Crossref deposit activity.
type CrossrefConfig struct {
	Bucket        string
	Domain        string
	PubDateTypes  []string
	DepositorName string
	Email         string
	Registrant    string
	FromEmail     string
	AdminEmail    string

	// PeerReview switches the activity to the peer-review outbox and
	// deposit document.
	PeerReview bool
}

// Crossref is the DepositCrossref activity (and its peer-review
// variant): deposit article metadata from the outbox with Crossref.
type Crossref struct {
	name     string
	pipeline *Pipeline
}

var _ activity.Activity = (*Crossref)(nil)

// NewCrossref creates the activity.
func NewCrossref(store objstore.Store, versions VersionSource, depositor CrossrefDepositor, sender email.Sender, logger *slog.Logger, cfg CrossrefConfig) *Crossref {
	name := "DepositCrossref"
	outbox := "crossref/outbox/"
	published := "crossref/published/"
	filePrefix := "crossref"
	if cfg.PeerReview {
		name = "DepositCrossrefPeerReview"
		outbox = "crossref_peer_review/outbox/"
		published = "crossref_peer_review/published/"
		filePrefix = "crossref-peer-review"
	}

	opts := crossref.DepositOptions{
		DepositorName: cfg.DepositorName,
		Email:         cfg.Email,
		Registrant:    cfg.Registrant,
		PubDateTypes:  cfg.PubDateTypes,
	}

	generate := func(ctx context.Context, articles []*article.Article, ts time.Time) (map[string][]byte, error) {
		if cfg.PeerReview {
			articles = crossref.PrepareForPeerReview(articles)
		}
		stamped := opts
		stamped.Timestamp = ts
		files := make(map[string][]byte, len(articles))
		for _, art := range articles {
			var (
				content []byte
				err     error
			)
			if cfg.PeerReview {
				content, err = crossref.GeneratePeerReviewDeposit(art, stamped)
			} else {
				content, err = crossref.GenerateDeposit(art, stamped)
			}
			if err != nil {
				return nil, fmt.Errorf("deposit: generate for article %s: %w", art.ID, err)
			}
			files[crossref.BatchFileName(filePrefix, art.ID)] = content
		}
		return files, nil
	}

	// every file is attempted even after a failure so the admin email
	// records the outcome of each
	publish := func(ctx context.Context, files map[string][]byte) (map[string]string, error) {
		detail := make(map[string]string, len(files))
		var errs []error
		for fileName, content := range files {
			response, err := depositor.Deposit(ctx, fileName, content)
			if err != nil {
				errs = append(errs, err)
				if response == "" {
					response = err.Error()
				}
			}
			detail[fileName] = response
		}
		return detail, errors.Join(errs...)
	}

	return &Crossref{
		name: name,
		pipeline: &Pipeline{
			Name:            name,
			Domain:          cfg.Domain,
			Store:           store,
			Bucket:          cfg.Bucket,
			OutboxPrefix:    outbox,
			PublishedPrefix: published,
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
func (c *Crossref) Name() string { return c.name }

// Do runs the deposit pipeline.
func (c *Crossref) Do(ctx context.Context, env *activity.Env, params activity.Params) (activity.Outcome, error) {
	outcome, _, err := c.pipeline.Run(ctx, env)
	return outcome, err
}
