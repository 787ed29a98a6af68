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

package main

import (
	"fmt"
	"os"

	"github.com/pubflow/pubflow/internal/commands"
)

// Version information (injected via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	rootCmd, opts := commands.NewRootCommand()
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate)

	rootCmd.AddCommand(commands.NewDeciderCommand(opts))
	rootCmd.AddCommand(commands.NewWorkerCommand(opts))
	rootCmd.AddCommand(commands.NewQueueWorkerCommand(opts))
	rootCmd.AddCommand(commands.NewDispatcherCommand(opts))
	rootCmd.AddCommand(commands.NewCronCommand(opts))
	rootCmd.AddCommand(commands.NewStartCommand(opts))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
