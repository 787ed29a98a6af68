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

// Package monitor emits structured lifecycle events and article property
// updates for dashboard consumers.
//
// Ordering is best-effort and consumers tolerate out-of-order arrival.
// Failing to emit never fails the surrounding activity.
package monitor

import "context"

// Phase is the lifecycle phase of an emitted event.
type Phase string

const (
	PhaseStart Phase = "start"
	PhaseEnd   Phase = "end"
	PhaseError Phase = "error"
)

// Sink receives monitor events and property updates.
type Sink interface {
	// Emit records a lifecycle event keyed by (article id, version, run).
	Emit(ctx context.Context, articleID, version, run, component string, phase Phase, message string) error

	// SetProperty records a named article property. Version may be empty
	// when the property is not version-scoped.
	SetProperty(ctx context.Context, articleID, name string, value any, propertyType, version string) error
}
