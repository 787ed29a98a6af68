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

package decider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pubflow/pubflow/internal/backend"
	"github.com/pubflow/pubflow/internal/log"
	"github.com/pubflow/pubflow/internal/metrics"
	"github.com/pubflow/pubflow/internal/workflow"
)

func startDecider(t *testing.T, b backend.Client) context.CancelFunc {
	t.Helper()
	d := New(b, workflow.DefaultRegistry(), log.Discard(), metrics.New(), "DefaultTaskList", "test")
	d.IdleDelay = time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)
	return cancel
}

// completeActivities plays the worker role: every delivered activity
// task succeeds immediately.
func completeActivities(t *testing.T, b *backend.MemoryBackend, workflowID string) {
	t.Helper()
	ctx := context.Background()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if b.CloseStatus(workflowID) != "" {
			return
		}
		task, err := b.PollForActivityTask(ctx, "DefaultTaskList", "test")
		require.NoError(t, err)
		if task != nil {
			require.NoError(t, b.RespondActivityTaskCompleted(ctx, task.TaskToken, "Done"))
			continue
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("workflow %s did not close", workflowID)
}

func TestDeciderDrivesStepsInOrder(t *testing.T) {
	b := backend.NewMemoryBackend()
	cancel := startDecider(t, b)
	defer cancel()

	require.NoError(t, b.StartWorkflowExecution(context.Background(), backend.StartRequest{
		WorkflowID:   "IngestDigest_7398",
		WorkflowType: workflow.IngestDigest,
		TaskList:     "DefaultTaskList",
		Input:        `{"data": {"run": "run-1", "article_id": "7398"}}`,
	}))

	completeActivities(t, b, "IngestDigest_7398")
	assert.Equal(t, "COMPLETED", b.CloseStatus("IngestDigest_7398"))
	assert.Equal(t, []string{"PingWorker", "VersionLookup", "IngestDigestToEndpoint"},
		b.ScheduledActivityTypes("IngestDigest_7398"))
}

func TestDeciderFailsWorkflowOnActivityFailure(t *testing.T) {
	b := backend.NewMemoryBackend()
	cancel := startDecider(t, b)
	defer cancel()

	ctx := context.Background()
	require.NoError(t, b.StartWorkflowExecution(ctx, backend.StartRequest{
		WorkflowID:   "Ping_1",
		WorkflowType: workflow.Ping,
		TaskList:     "DefaultTaskList",
	}))

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && b.CloseStatus("Ping_1") == "" {
		task, err := b.PollForActivityTask(ctx, "DefaultTaskList", "test")
		require.NoError(t, err)
		if task != nil {
			require.NoError(t, b.RespondActivityTaskFailed(ctx, task.TaskToken, "ACTIVITY_FAILURE", "boom"))
			continue
		}
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, "FAILED", b.CloseStatus("Ping_1"))
}

func TestDeciderFailsUnknownWorkflowType(t *testing.T) {
	b := backend.NewMemoryBackend()
	cancel := startDecider(t, b)
	defer cancel()

	require.NoError(t, b.StartWorkflowExecution(context.Background(), backend.StartRequest{
		WorkflowID:   "Mystery_1",
		WorkflowType: "Mystery",
		TaskList:     "DefaultTaskList",
	}))

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && b.CloseStatus("Mystery_1") == "" {
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, "FAILED", b.CloseStatus("Mystery_1"))
}

func TestNextDecisionsInFlightStep(t *testing.T) {
	definition := workflow.PingDefinition("DefaultTaskList", "")
	events := []backend.HistoryEvent{
		{Type: backend.EventWorkflowExecutionStarted},
		{Type: backend.EventActivityTaskScheduled, ActivityType: "PingWorker"},
		{Type: backend.EventActivityTaskStarted},
	}
	assert.Empty(t, nextDecisions(definition, events))
}
