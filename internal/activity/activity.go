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

// Package activity is the runtime activities execute in: typed inputs,
// per-invocation scratch directories, outcome classification and
// lifecycle events.
package activity

import (
	"context"
	"encoding/json"
	"fmt"
)

// Outcome classifies how an activity invocation ended. The worker maps
// outcomes onto backend responses; only TemporaryFailure invites a
// retry.
type Outcome int

const (
	// Success completes the task with a result.
	Success Outcome = iota
	// TemporaryFailure fails the task in a retryable way.
	TemporaryFailure
	// PermanentFailure fails the task; the decider fails the workflow.
	PermanentFailure
	// Deferred leaves the task unanswered so it times out and is
	// redelivered later.
	Deferred
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case TemporaryFailure:
		return "temporary-failure"
	case PermanentFailure:
		return "permanent-failure"
	case Deferred:
		return "deferred"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Params is the data object carried in workflow and activity inputs.
// Absent fields are empty strings.
type Params struct {
	Run            string `json:"run,omitempty"`
	ArticleID      string `json:"article_id,omitempty"`
	Version        string `json:"version,omitempty"`
	ExpandedFolder string `json:"expanded_folder,omitempty"`
	Status         string `json:"status,omitempty"`
	RunType        string `json:"run_type,omitempty"`
	Bucket         string `json:"bucket,omitempty"`
	FileName       string `json:"file_name,omitempty"`
}

type envelope struct {
	Data Params `json:"data"`
}

// ParseInput decodes an activity input payload. Empty input yields
// zero params, not an error.
func ParseInput(raw string) (Params, error) {
	if raw == "" {
		return Params{}, nil
	}
	var e envelope
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return Params{}, fmt.Errorf("activity: decode input: %w", err)
	}
	return e.Data, nil
}

// EncodeInput wraps params in the input envelope.
func EncodeInput(params Params) (string, error) {
	out, err := json.Marshal(envelope{Data: params})
	if err != nil {
		return "", fmt.Errorf("activity: encode input: %w", err)
	}
	return string(out), nil
}

// Activity is one unit of work dispatched by the worker.
type Activity interface {
	// Name is the activity type the backend schedules this under.
	Name() string

	// Do performs the work. A non-nil error accompanies a failure
	// outcome and becomes the failure reason.
	Do(ctx context.Context, env *Env, params Params) (Outcome, error)
}

// Registry maps activity type names to implementations.
type Registry struct {
	activities map[string]Activity
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{activities: make(map[string]Activity)}
}

// Register adds an activity under its name.
func (r *Registry) Register(act Activity) {
	r.activities[act.Name()] = act
}

// Lookup returns the activity registered under name.
func (r *Registry) Lookup(name string) (Activity, bool) {
	act, ok := r.activities[name]
	return act, ok
}
