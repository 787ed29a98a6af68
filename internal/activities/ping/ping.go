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

// Package ping provides the no-op worker activity used as the first
// step of every workflow and as the cron liveness check.
package ping

import (
	"context"

	"github.com/pubflow/pubflow/internal/activity"
)

// Ping succeeds unconditionally. Scheduling it as step 0 proves the
// worker fleet is polling before any real work is attempted.
type Ping struct{}

var _ activity.Activity = Ping{}

// New creates the activity.
func New() Ping { return Ping{} }

// Name implements activity.Activity.
func (Ping) Name() string { return "PingWorker" }

// Do implements activity.Activity.
func (Ping) Do(ctx context.Context, env *activity.Env, params activity.Params) (activity.Outcome, error) {
	return activity.Success, nil
}
