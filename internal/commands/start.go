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

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pubflow/pubflow/internal/queue"
	"github.com/pubflow/pubflow/internal/starter"
	"github.com/pubflow/pubflow/internal/workflow"
)

// NewStartCommand creates the one-shot workflow start subcommand, for
// operators kicking a workflow outside its schedule.
func NewStartCommand(opts *Options) *cobra.Command {
	var (
		bucket string
		key    string
	)

	cmd := &cobra.Command{
		Use:   "start <starter>",
		Short: "Start one workflow execution by starter name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			rt, err := NewRuntime(ctx, opts, rootLogger())
			if err != nil {
				return err
			}

			fn, ok := starter.DefaultRegistry().Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown starter %q", args[0])
			}
			req, err := fn(queue.StartData{
				Bucket: bucket,
				Key:    key,
				Run:    uuid.NewString(),
			})
			if err != nil {
				return err
			}

			s := starter.New(rt.Backend(), workflow.DefaultRegistry(), rt.Logger,
				rt.Metrics, rt.Settings.DefaultTaskList)
			if err := s.Start(ctx, req); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "started %s\n", req.WorkflowID)
			return nil
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "Source bucket for file-triggered starters")
	cmd.Flags().StringVar(&key, "key", "", "Source object key for file-triggered starters")
	return cmd
}
