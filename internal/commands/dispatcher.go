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

	"github.com/pubflow/pubflow/internal/starter"
	"github.com/pubflow/pubflow/internal/workflow"
)

// NewDispatcherCommand creates the workflow-starter dispatcher
// subcommand.
func NewDispatcherCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "dispatcher",
		Short: "Consume start messages and start workflow executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			rt, err := NewRuntime(ctx, opts, rootLogger())
			if err != nil {
				return err
			}
			rt.ServeMetrics(ctx, opts.MetricsAddr)

			s := starter.New(rt.Backend(), workflow.DefaultRegistry(), rt.Logger,
				rt.Metrics, rt.Settings.DefaultTaskList)
			d := starter.NewDispatcher(rt.SQS(), starter.DefaultRegistry(), s,
				rt.Settings.WorkflowStarterQueue, rt.Logger, rt.Metrics)
			return d.Run(ctx)
		},
	}
}
