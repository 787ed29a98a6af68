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

// Package decider folds workflow histories into next-step decisions.
//
// The decider holds no state of its own: every decision is derived
// from the full event history delivered with the decision task, so a
// crashed decider loses nothing.
package decider

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pubflow/pubflow/internal/backend"
	"github.com/pubflow/pubflow/internal/log"
	"github.com/pubflow/pubflow/internal/metrics"
	"github.com/pubflow/pubflow/internal/workflow"
)

// Decider runs the decision loop for one task list.
type Decider struct {
	client   backend.Client
	registry *workflow.Registry
	logger   *slog.Logger
	metrics  *metrics.Metrics
	taskList string
	identity string

	// IdleDelay is slept after an empty poll, to avoid hot-looping on
	// backends that return immediately. Zero disables the delay.
	IdleDelay time.Duration
}

// New creates a decider.
func New(client backend.Client, registry *workflow.Registry, logger *slog.Logger, m *metrics.Metrics, taskList, identity string) *Decider {
	return &Decider{
		client:    client,
		registry:  registry,
		logger:    log.WithIdentity(log.WithComponent(logger, "decider"), identity),
		metrics:   m,
		taskList:  taskList,
		identity:  identity,
		IdleDelay: time.Second,
	}
}

// Run polls for decision tasks until ctx is cancelled. Poll errors are
// logged and the loop continues; only cancellation stops it.
func (d *Decider) Run(ctx context.Context) error {
	d.logger.Info("decider started", "task_list", d.taskList)
	for {
		if err := ctx.Err(); err != nil {
			d.logger.Info("decider stopped")
			return nil
		}

		task, err := d.poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			d.logger.Error("decision poll failed", log.Error(err))
			d.metrics.PollErrorsTotal.WithLabelValues("decider").Inc()
			d.idle(ctx)
			continue
		}
		if task == nil {
			d.idle(ctx)
			continue
		}

		if err := d.decide(ctx, task); err != nil {
			d.logger.Error("decision failed",
				log.Error(err),
				log.WorkflowKey, task.WorkflowType,
				log.WorkflowIDKey, task.WorkflowID)
		}
	}
}

// poll fetches one decision task, following history pages until the
// full event list is assembled.
func (d *Decider) poll(ctx context.Context) (*backend.DecisionTask, error) {
	task, err := d.client.PollForDecisionTask(ctx, d.taskList, d.identity, "")
	if err != nil || task == nil {
		return nil, err
	}
	for task.NextPageToken != "" {
		page, err := d.client.PollForDecisionTask(ctx, d.taskList, d.identity, task.NextPageToken)
		if err != nil {
			return nil, fmt.Errorf("decider: fetch history page: %w", err)
		}
		if page == nil {
			break
		}
		task.Events = append(task.Events, page.Events...)
		task.NextPageToken = page.NextPageToken
	}
	return task, nil
}

func (d *Decider) decide(ctx context.Context, task *backend.DecisionTask) error {
	logger := d.logger.With(
		log.WorkflowKey, task.WorkflowType,
		log.WorkflowIDKey, task.WorkflowID,
	)
	d.metrics.DecisionsTotal.WithLabelValues(task.WorkflowType).Inc()

	if !d.registry.Known(task.WorkflowType) {
		logger.Error("unknown workflow type")
		return d.respond(ctx, task.TaskToken, []backend.Decision{{
			Kind:   backend.DecisionFailWorkflowExecution,
			Reason: fmt.Sprintf("unknown workflow type %q", task.WorkflowType),
		}})
	}

	definition, err := d.registry.Build(task.WorkflowType, d.taskList, task.Input)
	if err != nil {
		return err
	}

	decisions := nextDecisions(definition, task.Events)
	for _, decision := range decisions {
		switch decision.Kind {
		case backend.DecisionScheduleActivityTask:
			logger.Info("scheduling activity", log.ActivityKey, decision.ActivityType)
		case backend.DecisionCompleteWorkflowExecution:
			logger.Info("workflow complete")
		case backend.DecisionFailWorkflowExecution:
			logger.Error("failing workflow", "reason", decision.Reason)
		}
	}
	return d.respond(ctx, task.TaskToken, decisions)
}

func (d *Decider) respond(ctx context.Context, taskToken string, decisions []backend.Decision) error {
	if err := d.client.RespondDecisionTaskCompleted(ctx, taskToken, decisions); err != nil {
		return fmt.Errorf("decider: respond: %w", err)
	}
	return nil
}

func (d *Decider) idle(ctx context.Context) {
	if d.IdleDelay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d.IdleDelay):
	}
}

// nextDecisions folds the event history into the decisions for the
// current decision task.
//
// The fold counts completed activities against the definition's step
// list: a failed or timed-out activity fails the workflow, an activity
// in flight produces no decision, and a fully completed step list
// completes the workflow. Event kinds outside the fold are ignored.
func nextDecisions(definition workflow.Definition, events []backend.HistoryEvent) []backend.Decision {
	var completed, scheduled int
	for _, event := range events {
		switch event.Type {
		case backend.EventActivityTaskCompleted:
			completed++
		case backend.EventActivityTaskScheduled:
			scheduled++
		case backend.EventActivityTaskFailed:
			return []backend.Decision{{
				Kind:    backend.DecisionFailWorkflowExecution,
				Reason:  "activity failed",
				Details: event.Reason,
			}}
		case backend.EventActivityTaskTimedOut:
			return []backend.Decision{{
				Kind:    backend.DecisionFailWorkflowExecution,
				Reason:  "activity timed out",
				Details: event.Details,
			}}
		}
	}

	if completed >= len(definition.Steps) {
		return []backend.Decision{{Kind: backend.DecisionCompleteWorkflowExecution}}
	}
	if scheduled > completed {
		// the next step is already in flight; nothing to decide
		return nil
	}

	step := definition.Steps[completed]
	return []backend.Decision{{
		Kind:             backend.DecisionScheduleActivityTask,
		ActivityType:     step.ActivityType,
		ActivityVersion:  step.Version,
		ActivityID:       step.ActivityID,
		TaskList:         definition.TaskList,
		Input:            step.Input,
		Control:          step.Control,
		HeartbeatTimeout: step.HeartbeatTimeout,
		ScheduleToStart:  step.ScheduleToStart,
		ScheduleToClose:  step.ScheduleToClose,
		StartToClose:     step.StartToClose,
	}}
}
