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

// Package worker polls for activity tasks and dispatches them to
// registered activities.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/pubflow/pubflow/internal/activity"
	"github.com/pubflow/pubflow/internal/backend"
	"github.com/pubflow/pubflow/internal/log"
	"github.com/pubflow/pubflow/internal/metrics"
)

// Failure reasons reported to the backend. The decider treats any
// failure as terminal for the workflow; the reasons are for operators
// and the retry policy.
const (
	ReasonTemporaryFailure = "TEMPORARY_FAILURE"
	ReasonPermanentFailure = "PERMANENT_FAILURE"
	ReasonUnknownActivity  = "UNKNOWN_ACTIVITY_TYPE"
)

// Worker runs the activity loop for one task list.
type Worker struct {
	client   backend.Client
	registry *activity.Registry
	runner   *activity.Runner
	logger   *slog.Logger
	metrics  *metrics.Metrics
	taskList string
	identity string

	// IdleDelay is slept after an empty poll. Zero disables the delay.
	IdleDelay time.Duration
}

// New creates a worker.
func New(client backend.Client, registry *activity.Registry, runner *activity.Runner, logger *slog.Logger, m *metrics.Metrics, taskList, identity string) *Worker {
	return &Worker{
		client:    client,
		registry:  registry,
		runner:    runner,
		logger:    log.WithIdentity(log.WithComponent(logger, "worker"), identity),
		metrics:   m,
		taskList:  taskList,
		identity:  identity,
		IdleDelay: time.Second,
	}
}

// Run polls for activity tasks until ctx is cancelled. Poll errors are
// logged and the loop continues.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started", "task_list", w.taskList)
	for {
		if err := ctx.Err(); err != nil {
			w.logger.Info("worker stopped")
			return nil
		}

		task, err := w.client.PollForActivityTask(ctx, w.taskList, w.identity)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.Error("activity poll failed", log.Error(err))
			w.metrics.PollErrorsTotal.WithLabelValues("worker").Inc()
			w.idle(ctx)
			continue
		}
		if task == nil {
			w.idle(ctx)
			continue
		}

		w.handle(ctx, task)
	}
}

func (w *Worker) handle(ctx context.Context, task *backend.ActivityTask) {
	logger := w.logger.With(
		log.ActivityKey, task.ActivityType,
		log.WorkflowIDKey, task.WorkflowID,
	)

	act, ok := w.registry.Lookup(task.ActivityType)
	if !ok {
		logger.Error("unknown activity type")
		w.metrics.ActivitiesTotal.WithLabelValues(task.ActivityType, "unknown").Inc()
		w.respondFailed(ctx, logger, task.TaskToken, ReasonUnknownActivity, task.ActivityType)
		return
	}

	outcome, err := w.runner.Run(ctx, act, task.Input)
	w.metrics.ActivitiesTotal.WithLabelValues(task.ActivityType, outcome.String()).Inc()

	details := ""
	if err != nil {
		details = err.Error()
	}

	switch outcome {
	case activity.Success:
		if err := w.client.RespondActivityTaskCompleted(ctx, task.TaskToken, "Success"); err != nil {
			logger.Error("failed to report completion", log.Error(err))
		}
	case activity.TemporaryFailure:
		w.respondFailed(ctx, logger, task.TaskToken, ReasonTemporaryFailure, details)
	case activity.PermanentFailure:
		w.respondFailed(ctx, logger, task.TaskToken, ReasonPermanentFailure, details)
	case activity.Deferred:
		// leave the task unanswered: it times out at the backend and
		// is redelivered later
		logger.Info("activity deferred")
	}
}

func (w *Worker) respondFailed(ctx context.Context, logger *slog.Logger, taskToken, reason, details string) {
	if err := w.client.RespondActivityTaskFailed(ctx, taskToken, reason, details); err != nil {
		logger.Error("failed to report failure", log.Error(err))
	}
}

func (w *Worker) idle(ctx context.Context) {
	if w.IdleDelay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(w.IdleDelay):
	}
}
