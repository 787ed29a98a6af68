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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartWorkflowExecutionDeduplicates(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()

	req := StartRequest{
		WorkflowID:      "AdminEmail",
		WorkflowType:    "AdminEmail",
		WorkflowVersion: "1",
		TaskList:        "DefaultTaskList",
	}
	require.NoError(t, b.StartWorkflowExecution(ctx, req))

	err := b.StartWorkflowExecution(ctx, req)
	require.ErrorIs(t, err, ErrExecutionAlreadyStarted)
}

func TestDecisionActivityCycle(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()

	require.NoError(t, b.StartWorkflowExecution(ctx, StartRequest{
		WorkflowID:   "Ping_1",
		WorkflowType: "Ping",
		TaskList:     "DefaultTaskList",
		Input:        `{"data":{}}`,
	}))

	// first decision: history holds only the started event
	decision, err := b.PollForDecisionTask(ctx, "DefaultTaskList", "test", "")
	require.NoError(t, err)
	require.NotNil(t, decision)
	assert.Equal(t, "Ping", decision.WorkflowType)
	require.Len(t, decision.Events, 1)
	assert.Equal(t, EventWorkflowExecutionStarted, decision.Events[0].Type)

	require.NoError(t, b.RespondDecisionTaskCompleted(ctx, decision.TaskToken, []Decision{{
		Kind:         DecisionScheduleActivityTask,
		ActivityType: "PingWorker",
		ActivityID:   "PingWorker",
		TaskList:     "DefaultTaskList",
	}}))

	// the scheduled activity becomes available to workers
	task, err := b.PollForActivityTask(ctx, "DefaultTaskList", "test")
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "PingWorker", task.ActivityType)

	require.NoError(t, b.RespondActivityTaskCompleted(ctx, task.TaskToken, "Done"))

	// the completion queues a follow-up decision with full history
	decision, err = b.PollForDecisionTask(ctx, "DefaultTaskList", "test", "")
	require.NoError(t, err)
	require.NotNil(t, decision)
	var types []EventType
	for _, event := range decision.Events {
		types = append(types, event.Type)
	}
	assert.Equal(t, []EventType{
		EventWorkflowExecutionStarted,
		EventActivityTaskScheduled,
		EventActivityTaskStarted,
		EventActivityTaskCompleted,
	}, types)

	require.NoError(t, b.RespondDecisionTaskCompleted(ctx, decision.TaskToken, []Decision{{
		Kind: DecisionCompleteWorkflowExecution,
	}}))
	assert.Equal(t, "COMPLETED", b.CloseStatus("Ping_1"))

	// a completed execution frees the workflow id for reuse
	require.NoError(t, b.StartWorkflowExecution(ctx, StartRequest{
		WorkflowID:   "Ping_1",
		WorkflowType: "Ping",
		TaskList:     "DefaultTaskList",
	}))
}

func TestPollReturnsNilWhenIdle(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()

	decision, err := b.PollForDecisionTask(ctx, "DefaultTaskList", "test", "")
	require.NoError(t, err)
	assert.Nil(t, decision)

	task, err := b.PollForActivityTask(ctx, "DefaultTaskList", "test")
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestLastCompletedStartTime(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()

	_, ok, err := b.LastCompletedStartTime(ctx, "DepositCrossref")
	require.NoError(t, err)
	assert.False(t, ok)

	earlier := time.Now().Add(-2 * time.Hour)
	later := time.Now().Add(-10 * time.Minute)
	b.SetLastCompleted("DepositCrossref", earlier)
	b.SetLastCompleted("DepositCrossref", later)

	got, ok, err := b.LastCompletedStartTime(ctx, "DepositCrossref")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, later, got)
}
