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

package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pubflow/pubflow/internal/activities/adminemail"
	"github.com/pubflow/pubflow/internal/activities/deposit"
	"github.com/pubflow/pubflow/internal/activities/ingestdigest"
	"github.com/pubflow/pubflow/internal/activities/ping"
	"github.com/pubflow/pubflow/internal/activities/versionlookup"
	"github.com/pubflow/pubflow/internal/activity"
	"github.com/pubflow/pubflow/internal/config"
	"github.com/pubflow/pubflow/internal/crossref"
	"github.com/pubflow/pubflow/internal/digest"
	"github.com/pubflow/pubflow/internal/fastly"
	"github.com/pubflow/pubflow/internal/pubmed"
	"github.com/pubflow/pubflow/internal/worker"
)

// NewWorkerCommand creates the activity worker subcommand.
func NewWorkerCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the activity worker loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			rt, err := NewRuntime(ctx, opts, rootLogger())
			if err != nil {
				return err
			}
			rt.ServeMetrics(ctx, opts.MetricsAddr)

			registry, err := buildActivities(rt)
			if err != nil {
				return err
			}

			runner := activity.NewRunner(rt.Logger, rt.Sink(), os.TempDir())
			w := worker.New(rt.Backend(), registry, runner, rt.Logger,
				rt.Metrics, rt.Settings.DefaultTaskList, config.Identity("worker"))
			return w.Run(ctx)
		},
	}
}

// buildActivities wires every activity the worker serves.
func buildActivities(rt *Runtime) (*activity.Registry, error) {
	settings := rt.Settings
	store := rt.Store()
	laxClient := rt.Lax()
	sender := rt.Sender()

	sessions, err := rt.Sessions()
	if err != nil {
		return nil, err
	}

	registry := activity.NewRegistry()
	registry.Register(ping.New())
	registry.Register(versionlookup.New(laxClient, sessions, rt.Logger))

	ingest := ingestdigest.New(
		store,
		digest.NewClient(settings.Digest.URL, settings.Digest.AuthKey),
		laxClient,
		sessions,
		rt.Sink(),
		rt.Logger,
		settings.Digest.PreviewBaseURL,
	)
	if settings.Fastly.APIKey != "" {
		ingest.Purger = fastly.NewClient("https://api.fastly.com",
			settings.Fastly.APIKey, settings.Fastly.ServiceIDs)
	}
	registry.Register(ingest)

	crossrefClient := crossref.NewClient(
		settings.Crossref.URL, settings.Crossref.LoginID, settings.Crossref.LoginPasswd)
	for _, peerReview := range []bool{false, true} {
		registry.Register(deposit.NewCrossref(store, laxClient, crossrefClient, sender,
			rt.Logger, deposit.CrossrefConfig{
				Bucket:        settings.PublishingBucket,
				Domain:        settings.Domain,
				PubDateTypes:  settings.Crossref.PubDateTypes,
				DepositorName: settings.Crossref.DepositorName,
				Email:         settings.Crossref.DepositorEmail,
				Registrant:    settings.Crossref.Registrant,
				FromEmail:     settings.Email.SenderEmail,
				AdminEmail:    settings.Email.AdminEmail,
				PeerReview:    peerReview,
			}))
	}

	uploader := pubmed.NewUploader(
		settings.Pubmed.Host, settings.Pubmed.Port,
		settings.Pubmed.Username, settings.Pubmed.Password, settings.Pubmed.CWD)
	registry.Register(deposit.NewPubmed(store, laxClient, uploader, sender,
		rt.Logger, deposit.PubmedConfig{
			Bucket:        settings.PublishingBucket,
			Domain:        settings.Domain,
			JournalTitle:  settings.Pubmed.JournalTitle,
			PublisherName: settings.Pubmed.PublisherName,
			PubDateTypes:  settings.Crossref.PubDateTypes,
			FromEmail:     settings.Email.SenderEmail,
			AdminEmail:    settings.Email.AdminEmail,
		}))

	registry.Register(adminemail.New(store, sender, rt.Logger, adminemail.Config{
		Bucket:     settings.BotBucket,
		Domain:     settings.Domain,
		FromEmail:  settings.Email.SenderEmail,
		AdminEmail: settings.Email.AdminEmail,
	}))

	return registry, nil
}
