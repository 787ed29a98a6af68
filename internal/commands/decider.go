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

	"github.com/pubflow/pubflow/internal/config"
	"github.com/pubflow/pubflow/internal/decider"
	"github.com/pubflow/pubflow/internal/workflow"
)

// NewDeciderCommand creates the decider subcommand.
func NewDeciderCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "decider",
		Short: "Run the workflow decider loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			rt, err := NewRuntime(ctx, opts, rootLogger())
			if err != nil {
				return err
			}
			rt.ServeMetrics(ctx, opts.MetricsAddr)

			d := decider.New(rt.Backend(), workflow.DefaultRegistry(), rt.Logger,
				rt.Metrics, rt.Settings.DefaultTaskList, config.Identity("decider"))
			return d.Run(ctx)
		},
	}
}
