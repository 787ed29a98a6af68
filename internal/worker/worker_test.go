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

package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pubflow/pubflow/internal/activity"
	"github.com/pubflow/pubflow/internal/backend"
	"github.com/pubflow/pubflow/internal/log"
	"github.com/pubflow/pubflow/internal/metrics"
)

type stubActivity struct {
	name    string
	outcome activity.Outcome
	err     error
	calls   int
}

func (s *stubActivity) Name() string { return s.name }

func (s *stubActivity) Do(ctx context.Context, env *activity.Env, params activity.Params) (activity.Outcome, error) {
	s.calls++
	return s.outcome, s.err
}

// scheduleTask starts an execution and schedules one activity on it so
// the worker has a task to pick up.
func scheduleTask(t *testing.T, b *backend.MemoryBackend, activityType string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, b.StartWorkflowExecution(ctx, backend.StartRequest{
		WorkflowID:   "wf-" + activityType,
		WorkflowType: "Ping",
		TaskList:     "DefaultTaskList",
	}))
	decision, err := b.PollForDecisionTask(ctx, "DefaultTaskList", "test", "")
	require.NoError(t, err)
	require.NotNil(t, decision)
	require.NoError(t, b.RespondDecisionTaskCompleted(ctx, decision.TaskToken, []backend.Decision{{
		Kind:         backend.DecisionScheduleActivityTask,
		ActivityType: activityType,
		ActivityID:   activityType,
		TaskList:     "DefaultTaskList",
		Input:        `{"data": {"run": "run-1", "article_id": "00353"}}`,
	}}))
}

// runWorkerUntil runs the worker until the condition holds or the
// deadline passes.
func runWorkerUntil(t *testing.T, w *Worker, condition func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached")
}

func newWorker(b backend.Client, registry *activity.Registry, t *testing.T) *Worker {
	runner := activity.NewRunner(log.Discard(), nil, t.TempDir())
	w := New(b, registry, runner, log.Discard(), metrics.New(), "DefaultTaskList", "test")
	w.IdleDelay = time.Millisecond
	return w
}

func TestWorkerCompletesSuccessfulActivity(t *testing.T) {
	b := backend.NewMemoryBackend()
	stub := &stubActivity{name: "PingWorker", outcome: activity.Success}
	registry := activity.NewRegistry()
	registry.Register(stub)
	scheduleTask(t, b, "PingWorker")

	w := newWorker(b, registry, t)
	runWorkerUntil(t, w, func() bool {
		types := historyTypes(b, "wf-PingWorker")
		return contains(types, backend.EventActivityTaskCompleted)
	})
	assert.Equal(t, 1, stub.calls)
}

func TestWorkerFailsActivityWithReason(t *testing.T) {
	b := backend.NewMemoryBackend()
	stub := &stubActivity{
		name:    "DepositCrossref",
		outcome: activity.TemporaryFailure,
		err:     errors.New("endpoint unavailable"),
	}
	registry := activity.NewRegistry()
	registry.Register(stub)
	scheduleTask(t, b, "DepositCrossref")

	w := newWorker(b, registry, t)
	runWorkerUntil(t, w, func() bool {
		return contains(historyTypes(b, "wf-DepositCrossref"), backend.EventActivityTaskFailed)
	})
}

func TestWorkerFailsUnknownActivityType(t *testing.T) {
	b := backend.NewMemoryBackend()
	scheduleTask(t, b, "Nope")

	w := newWorker(b, activity.NewRegistry(), t)
	runWorkerUntil(t, w, func() bool {
		return contains(historyTypes(b, "wf-Nope"), backend.EventActivityTaskFailed)
	})
}

func TestWorkerLeavesDeferredUnanswered(t *testing.T) {
	b := backend.NewMemoryBackend()
	stub := &stubActivity{name: "IngestDigestToEndpoint", outcome: activity.Deferred}
	registry := activity.NewRegistry()
	registry.Register(stub)
	scheduleTask(t, b, "IngestDigestToEndpoint")

	w := newWorker(b, registry, t)
	runWorkerUntil(t, w, func() bool { return stub.calls > 0 })

	// the task was neither completed nor failed
	time.Sleep(10 * time.Millisecond)
	types := historyTypes(b, "wf-IngestDigestToEndpoint")
	assert.False(t, contains(types, backend.EventActivityTaskCompleted))
	assert.False(t, contains(types, backend.EventActivityTaskFailed))
}

func historyTypes(b *backend.MemoryBackend, workflowID string) []backend.EventType {
	return b.HistoryEventTypes(workflowID)
}

func contains(types []backend.EventType, want backend.EventType) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}
