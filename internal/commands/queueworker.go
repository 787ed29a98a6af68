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
	"github.com/spf13/cobra"

	"github.com/pubflow/pubflow/internal/queue"
)

// NewQueueWorkerCommand creates the S3-event router subcommand.
func NewQueueWorkerCommand(opts *Options) *cobra.Command {
	var rulesPath string

	cmd := &cobra.Command{
		Use:   "queue-worker",
		Short: "Route S3 event notifications to workflow starters",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			rt, err := NewRuntime(ctx, opts, rootLogger())
			if err != nil {
				return err
			}
			rt.ServeMetrics(ctx, opts.MetricsAddr)

			rules, err := queue.LoadRules(rulesPath)
			if err != nil {
				return err
			}

			router := queue.NewRouter(rt.SQS(), rules,
				rt.Settings.S3MonitorQueue, rt.Settings.WorkflowStarterQueue,
				rt.Logger, rt.Metrics)
			return router.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&rulesPath, "rules", "rules.yaml",
		"Path to the routing rules file")
	return cmd
}
