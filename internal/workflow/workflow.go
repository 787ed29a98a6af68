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

// Package workflow declares the step graphs the decider drives forward.
//
// A definition is an ordered list of activity invocations with
// timeouts. The representative workflows are linear; the decider
// schedules one step at a time in order.
package workflow

import "fmt"

// Step is one activity invocation in a workflow definition. Timeouts
// are in seconds.
type Step struct {
	// ActivityType names the activity to run.
	ActivityType string

	// ActivityID is unique within the workflow.
	ActivityID string

	// Version of the registered activity type.
	Version string

	// Input is the JSON payload passed to the activity.
	Input string

	// Control is opaque data carried through the schedule event.
	Control string

	HeartbeatTimeout int
	ScheduleToStart  int
	ScheduleToClose  int
	StartToClose     int
}

// Definition is a declarative workflow: name, defaults, and the ordered
// steps the decider schedules.
type Definition struct {
	Name     string
	Version  string
	TaskList string

	// ExecutionTimeout is the execution start-to-close timeout in
	// seconds.
	ExecutionTimeout int

	Steps []Step
}

// Builder produces a definition for one workflow type given the task
// list and the execution input.
type Builder func(taskList, input string) Definition

// Registry maps workflow type names to definition builders. It replaces
// import-by-name lookup: unknown names fail one decision, not the loop.
type Registry struct {
	builders map[string]Builder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// Register adds a builder under the workflow type name.
func (r *Registry) Register(name string, builder Builder) {
	r.builders[name] = builder
}

// Build returns the definition for the named workflow type.
func (r *Registry) Build(name, taskList, input string) (Definition, error) {
	builder, ok := r.builders[name]
	if !ok {
		return Definition{}, fmt.Errorf("workflow: unknown workflow type %q", name)
	}
	return builder(taskList, input), nil
}

// Known reports whether name is registered.
func (r *Registry) Known(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// shortStep builds a step with the timeouts used by quick activities.
func shortStep(activityType, input string) Step {
	return Step{
		ActivityType:     activityType,
		ActivityID:       activityType,
		Version:          "1",
		Input:            input,
		HeartbeatTimeout: 300,
		ScheduleToStart:  300,
		ScheduleToClose:  300,
		StartToClose:     300,
	}
}

// mediumStep builds a step with the timeouts used by lookup activities.
func mediumStep(activityType, input string) Step {
	return Step{
		ActivityType:     activityType,
		ActivityID:       activityType,
		Version:          "1",
		Input:            input,
		HeartbeatTimeout: 600,
		ScheduleToStart:  300,
		ScheduleToClose:  600,
		StartToClose:     600,
	}
}

// depositStep builds a step with the timeouts used by batch deposit
// activities.
func depositStep(activityType, input string) Step {
	return Step{
		ActivityType:     activityType,
		ActivityID:       activityType,
		Version:          "1",
		Input:            input,
		HeartbeatTimeout: 60 * 15,
		ScheduleToStart:  300,
		ScheduleToClose:  60 * 15,
		StartToClose:     60 * 15,
	}
}
