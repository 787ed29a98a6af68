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

// Package backend defines the client contract for the managed workflow
// service that supplies durable task queues, timers, retries and event
// history.
//
// The production adapter talks to Amazon SWF; an in-memory backend
// drives the same decider and worker loops in tests.
package backend

import (
	"context"
	"errors"
	"time"
)

// ErrExecutionAlreadyStarted is returned by StartWorkflowExecution when
// an open execution with the same workflow id exists. Starters swallow
// it: the backend-enforced id uniqueness is the deduplication mechanism.
var ErrExecutionAlreadyStarted = errors.New("backend: workflow execution already started")

// EventType names one kind of history event. Deciders must ignore kinds
// they do not understand.
type EventType string

const (
	EventWorkflowExecutionStarted   EventType = "WorkflowExecutionStarted"
	EventWorkflowExecutionCompleted EventType = "WorkflowExecutionCompleted"
	EventWorkflowExecutionFailed    EventType = "WorkflowExecutionFailed"
	EventActivityTaskScheduled      EventType = "ActivityTaskScheduled"
	EventActivityTaskStarted        EventType = "ActivityTaskStarted"
	EventActivityTaskCompleted      EventType = "ActivityTaskCompleted"
	EventActivityTaskFailed         EventType = "ActivityTaskFailed"
	EventActivityTaskTimedOut       EventType = "ActivityTaskTimedOut"
)

// HistoryEvent is one entry in a workflow execution history. Attribute
// fields are populated according to the event type; unused fields are
// zero.
type HistoryEvent struct {
	ID        int64
	Type      EventType
	Timestamp time.Time

	// ActivityTaskScheduled attributes.
	ActivityID   string
	ActivityType string
	Input        string

	// ActivityTaskCompleted attributes.
	Result string

	// ActivityTaskFailed / ActivityTaskTimedOut attributes.
	Reason  string
	Details string

	// ScheduledEventID links completion events back to the scheduling
	// event.
	ScheduledEventID int64
}

// DecisionTask is one decision delivered by the backend. Events may be
// paged: when NextPageToken is non-empty the decider fetches and
// concatenates further pages before deciding.
type DecisionTask struct {
	TaskToken     string
	WorkflowType  string
	WorkflowID    string
	RunID         string
	Input         string
	Events        []HistoryEvent
	NextPageToken string
}

// ActivityTask is one activity invocation delivered by the backend.
type ActivityTask struct {
	TaskToken    string
	ActivityType string
	ActivityID   string
	WorkflowID   string
	RunID        string
	Input        string
}

// DecisionKind names a decision the decider can respond with.
type DecisionKind string

const (
	DecisionScheduleActivityTask      DecisionKind = "ScheduleActivityTask"
	DecisionCompleteWorkflowExecution DecisionKind = "CompleteWorkflowExecution"
	DecisionFailWorkflowExecution     DecisionKind = "FailWorkflowExecution"
)

// Decision is one entry in a decision-task response.
type Decision struct {
	Kind DecisionKind

	// ScheduleActivityTask attributes. Timeouts are in seconds; zero
	// means backend default.
	ActivityType     string
	ActivityVersion  string
	ActivityID       string
	TaskList         string
	Input            string
	Control          string
	HeartbeatTimeout int
	ScheduleToStart  int
	ScheduleToClose  int
	StartToClose     int

	// CompleteWorkflowExecution attributes.
	Result string

	// FailWorkflowExecution attributes.
	Reason  string
	Details string
}

// StartRequest asks the backend to start a workflow execution.
type StartRequest struct {
	WorkflowID      string
	WorkflowType    string
	WorkflowVersion string
	TaskList        string
	Input           string
	// ExecutionTimeout is the execution start-to-close timeout in
	// seconds; zero means backend default.
	ExecutionTimeout int
}

// Client is the workflow backend contract consumed by the decider,
// worker, starter and cron processes.
//
// Poll calls long-poll for up to 60 seconds and return (nil, nil) when
// no task arrives in time. The backend guarantees at-most-one
// in-progress decision per execution and at-most-one delivery of each
// activity task.
type Client interface {
	// PollForDecisionTask polls the decision task list. A non-empty
	// pageToken fetches a further history page of the same task.
	PollForDecisionTask(ctx context.Context, taskList, identity, pageToken string) (*DecisionTask, error)

	// RespondDecisionTaskCompleted reports the decisions for a task.
	RespondDecisionTaskCompleted(ctx context.Context, taskToken string, decisions []Decision) error

	// PollForActivityTask polls the activity task list.
	PollForActivityTask(ctx context.Context, taskList, identity string) (*ActivityTask, error)

	// RespondActivityTaskCompleted reports activity success.
	RespondActivityTaskCompleted(ctx context.Context, taskToken, result string) error

	// RespondActivityTaskFailed reports activity failure with a reason
	// the retry policy can classify.
	RespondActivityTaskFailed(ctx context.Context, taskToken, reason, details string) error

	// RecordActivityTaskHeartbeat keeps a long-running task alive.
	RecordActivityTaskHeartbeat(ctx context.Context, taskToken, details string) error

	// StartWorkflowExecution starts an execution, returning
	// ErrExecutionAlreadyStarted when the workflow id is already
	// running.
	StartWorkflowExecution(ctx context.Context, req StartRequest) error

	// LastCompletedStartTime returns the start timestamp of the most
	// recent completed execution of workflowID. ok is false when none
	// completed within the lookback window.
	LastCompletedStartTime(ctx context.Context, workflowID string) (t time.Time, ok bool, err error)
}
