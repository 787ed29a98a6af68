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

package backend

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Compile-time interface assertion.
var _ Client = (*MemoryBackend)(nil)

// MemoryBackend is an in-memory workflow backend for tests and local
// development. Polls return immediately with (nil, nil) when no task is
// queued instead of long-polling.
type MemoryBackend struct {
	mu sync.Mutex

	seq        int64
	open       map[string]*memExecution // keyed by workflow id
	closed     []*memExecution
	activities []*ActivityTask

	// pendingDecisions holds workflow ids with a decision task queued.
	pendingDecisions []string

	decisionTokens map[string]*memExecution
	activityTokens map[string]*activityRef
}

type memExecution struct {
	workflowID   string
	workflowType string
	runID        string
	input        string
	taskList     string
	events       []HistoryEvent
	closeStatus  string // "" while open, then "COMPLETED" or "FAILED"
	startTime    time.Time
}

type activityRef struct {
	execution        *memExecution
	scheduledEventID int64
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		open:           make(map[string]*memExecution),
		decisionTokens: make(map[string]*memExecution),
		activityTokens: make(map[string]*activityRef),
	}
}

func (b *MemoryBackend) nextToken(prefix string) string {
	b.seq++
	return fmt.Sprintf("%s-%d", prefix, b.seq)
}

func (b *MemoryBackend) appendEvent(exec *memExecution, event HistoryEvent) int64 {
	event.ID = int64(len(exec.events) + 1)
	event.Timestamp = time.Now()
	exec.events = append(exec.events, event)
	return event.ID
}

// StartWorkflowExecution starts an execution and queues its first
// decision task. A duplicate open workflow id returns
// ErrExecutionAlreadyStarted.
func (b *MemoryBackend) StartWorkflowExecution(ctx context.Context, req StartRequest) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, running := b.open[req.WorkflowID]; running {
		return ErrExecutionAlreadyStarted
	}
	exec := &memExecution{
		workflowID:   req.WorkflowID,
		workflowType: req.WorkflowType,
		runID:        b.nextToken("run"),
		input:        req.Input,
		taskList:     req.TaskList,
		startTime:    time.Now(),
	}
	b.appendEvent(exec, HistoryEvent{Type: EventWorkflowExecutionStarted, Input: req.Input})
	b.open[req.WorkflowID] = exec
	b.pendingDecisions = append(b.pendingDecisions, req.WorkflowID)
	return nil
}

// PollForDecisionTask returns the next queued decision task, or
// (nil, nil) when none is pending. History is never paged.
func (b *MemoryBackend) PollForDecisionTask(ctx context.Context, taskList, identity, pageToken string) (*DecisionTask, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.pendingDecisions) == 0 {
		return nil, nil
	}
	workflowID := b.pendingDecisions[0]
	b.pendingDecisions = b.pendingDecisions[1:]
	exec, ok := b.open[workflowID]
	if !ok {
		return nil, nil
	}

	token := b.nextToken("decision")
	b.decisionTokens[token] = exec

	events := make([]HistoryEvent, len(exec.events))
	copy(events, exec.events)
	return &DecisionTask{
		TaskToken:    token,
		WorkflowType: exec.workflowType,
		WorkflowID:   exec.workflowID,
		RunID:        exec.runID,
		Input:        exec.input,
		Events:       events,
	}, nil
}

// RespondDecisionTaskCompleted applies the decisions to the execution.
func (b *MemoryBackend) RespondDecisionTaskCompleted(ctx context.Context, taskToken string, decisions []Decision) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	exec, ok := b.decisionTokens[taskToken]
	if !ok {
		return fmt.Errorf("memory backend: unknown decision task token %q", taskToken)
	}
	delete(b.decisionTokens, taskToken)

	for _, d := range decisions {
		switch d.Kind {
		case DecisionScheduleActivityTask:
			scheduledID := b.appendEvent(exec, HistoryEvent{
				Type:         EventActivityTaskScheduled,
				ActivityID:   d.ActivityID,
				ActivityType: d.ActivityType,
				Input:        d.Input,
			})
			token := b.nextToken("activity")
			b.activityTokens[token] = &activityRef{execution: exec, scheduledEventID: scheduledID}
			b.activities = append(b.activities, &ActivityTask{
				TaskToken:    token,
				ActivityType: d.ActivityType,
				ActivityID:   d.ActivityID,
				WorkflowID:   exec.workflowID,
				RunID:        exec.runID,
				Input:        d.Input,
			})
		case DecisionCompleteWorkflowExecution:
			b.appendEvent(exec, HistoryEvent{Type: EventWorkflowExecutionCompleted, Result: d.Result})
			b.closeExecution(exec, "COMPLETED")
		case DecisionFailWorkflowExecution:
			b.appendEvent(exec, HistoryEvent{Type: EventWorkflowExecutionFailed, Reason: d.Reason, Details: d.Details})
			b.closeExecution(exec, "FAILED")
		}
	}
	return nil
}

func (b *MemoryBackend) closeExecution(exec *memExecution, status string) {
	exec.closeStatus = status
	delete(b.open, exec.workflowID)
	b.closed = append(b.closed, exec)
}

// PollForActivityTask returns the next queued activity task, or
// (nil, nil) when none is pending.
func (b *MemoryBackend) PollForActivityTask(ctx context.Context, taskList, identity string) (*ActivityTask, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.activities) == 0 {
		return nil, nil
	}
	task := b.activities[0]
	b.activities = b.activities[1:]

	if ref, ok := b.activityTokens[task.TaskToken]; ok {
		b.appendEvent(ref.execution, HistoryEvent{
			Type:             EventActivityTaskStarted,
			ScheduledEventID: ref.scheduledEventID,
		})
	}
	return task, nil
}

// RespondActivityTaskCompleted records success and queues the next
// decision task.
func (b *MemoryBackend) RespondActivityTaskCompleted(ctx context.Context, taskToken, result string) error {
	return b.finishActivity(taskToken, HistoryEvent{Type: EventActivityTaskCompleted, Result: result})
}

// RespondActivityTaskFailed records failure and queues the next
// decision task.
func (b *MemoryBackend) RespondActivityTaskFailed(ctx context.Context, taskToken, reason, details string) error {
	return b.finishActivity(taskToken, HistoryEvent{Type: EventActivityTaskFailed, Reason: reason, Details: details})
}

func (b *MemoryBackend) finishActivity(taskToken string, event HistoryEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ref, ok := b.activityTokens[taskToken]
	if !ok {
		return fmt.Errorf("memory backend: unknown activity task token %q", taskToken)
	}
	delete(b.activityTokens, taskToken)

	event.ScheduledEventID = ref.scheduledEventID
	b.appendEvent(ref.execution, event)
	b.pendingDecisions = append(b.pendingDecisions, ref.execution.workflowID)
	return nil
}

// RecordActivityTaskHeartbeat accepts and discards heartbeats.
func (b *MemoryBackend) RecordActivityTaskHeartbeat(ctx context.Context, taskToken, details string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.activityTokens[taskToken]; !ok {
		return fmt.Errorf("memory backend: unknown activity task token %q", taskToken)
	}
	return nil
}

// LastCompletedStartTime returns the start time of the most recent
// completed execution of workflowID.
func (b *MemoryBackend) LastCompletedStartTime(ctx context.Context, workflowID string) (time.Time, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var latest time.Time
	var found bool
	for _, exec := range b.closed {
		if exec.workflowID != workflowID || exec.closeStatus != "COMPLETED" {
			continue
		}
		if exec.startTime.After(latest) {
			latest = exec.startTime
			found = true
		}
	}
	return latest, found, nil
}

// SetLastCompleted seeds a completed execution, for cron gating tests.
func (b *MemoryBackend) SetLastCompleted(workflowID string, startTime time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = append(b.closed, &memExecution{
		workflowID:  workflowID,
		closeStatus: "COMPLETED",
		startTime:   startTime,
	})
}

// CloseStatus reports the close status of workflowID, or "" while the
// execution is open or unknown.
func (b *MemoryBackend) CloseStatus(workflowID string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, exec := range b.closed {
		if exec.workflowID == workflowID {
			return exec.closeStatus
		}
	}
	return ""
}

// HistoryEventTypes returns the event types recorded for workflowID in
// history order, searching open then closed executions.
func (b *MemoryBackend) HistoryEventTypes(workflowID string) []EventType {
	b.mu.Lock()
	defer b.mu.Unlock()

	exec := b.findExecution(workflowID)
	if exec == nil {
		return nil
	}
	var types []EventType
	for _, event := range exec.events {
		types = append(types, event.Type)
	}
	return types
}

func (b *MemoryBackend) findExecution(workflowID string) *memExecution {
	if exec, ok := b.open[workflowID]; ok {
		return exec
	}
	for _, closed := range b.closed {
		if closed.workflowID == workflowID {
			return closed
		}
	}
	return nil
}

// ScheduledActivityTypes returns the activity types scheduled for
// workflowID in history order, searching open then closed executions.
func (b *MemoryBackend) ScheduledActivityTypes(workflowID string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	exec := b.findExecution(workflowID)
	if exec == nil {
		return nil
	}
	var names []string
	for _, event := range exec.events {
		if event.Type == EventActivityTaskScheduled {
			names = append(names, event.ActivityType)
		}
	}
	return names
}
