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
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pubflow/pubflow/internal/cron"
	"github.com/pubflow/pubflow/internal/starter"
	"github.com/pubflow/pubflow/internal/workflow"
)

// NewCronCommand creates the cron scheduler subcommand.
func NewCronCommand(opts *Options) *cobra.Command {
	var schedulePath string

	cmd := &cobra.Command{
		Use:   "cron",
		Short: "Run the workflow cron scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			rt, err := NewRuntime(ctx, opts, rootLogger())
			if err != nil {
				return err
			}
			rt.ServeMetrics(ctx, opts.MetricsAddr)

			entries := cron.DefaultSchedule()
			if schedulePath != "" {
				entries, err = cron.LoadSchedule(schedulePath)
				if err != nil {
					return err
				}
			}

			loc, err := time.LoadLocation(rt.Settings.Timezone)
			if err != nil {
				return fmt.Errorf("load timezone %q: %w", rt.Settings.Timezone, err)
			}

			s := starter.New(rt.Backend(), workflow.DefaultRegistry(), rt.Logger,
				rt.Metrics, rt.Settings.DefaultTaskList)
			scheduler := cron.New(rt.Backend(), starter.DefaultRegistry(), s,
				entries, loc, rt.Logger)
			return scheduler.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&schedulePath, "schedule", "",
		"Path to a schedule file overriding the built-in table")
	return cmd
}
