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

// Package commands implements the pubflowd subcommands. Each long-lived
// role of the publishing system (decider, worker, queue worker, starter
// dispatcher, cron) is one subcommand over a shared runtime.
package commands

import (
	"github.com/spf13/cobra"
)

// Options carries the global flags shared by every subcommand.
type Options struct {
	// SettingsPath is the per-environment settings YAML.
	SettingsPath string

	// MetricsAddr is the listen address of the Prometheus endpoint.
	// Empty disables it.
	MetricsAddr string
}

// NewRootCommand creates the pubflowd root command.
func NewRootCommand() (*cobra.Command, *Options) {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:   "pubflowd",
		Short: "Pubflow - journal publication workflow daemon",
		Long: `Pubflow runs the automated publication backbone of a scholarly
journal: deciders and workers over the managed workflow backend, the
S3 event router, the workflow starter dispatcher and the cron
scheduler. Each role runs as its own subcommand so the fleet scales
per role.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.SettingsPath, "settings", "settings.yaml",
		"Path to the environment settings file")
	cmd.PersistentFlags().StringVar(&opts.MetricsAddr, "metrics-addr", ":9102",
		"Prometheus listen address (empty to disable)")

	return cmd, opts
}
