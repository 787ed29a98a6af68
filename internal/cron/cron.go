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

// Package cron starts scheduled workflows, gated on the start time of
// each workflow's last completed execution.
//
// The gate makes the scheduler stateless: it keeps no record of what
// it started, and a second scheduler instance evaluating the same
// minute produces duplicate starts that deduplicate at the backend.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pubflow/pubflow/internal/backend"
	"github.com/pubflow/pubflow/internal/log"
	"github.com/pubflow/pubflow/internal/queue"
	"github.com/pubflow/pubflow/internal/starter"
)

// Scheduler evaluates the schedule table once per minute.
type Scheduler struct {
	client   backend.Client
	starters *starter.Registry
	starter  *starter.Starter
	entries  []Entry
	loc      *time.Location
	logger   *slog.Logger
	newRun   func() string
}

// New creates a scheduler. loc is the journal timezone applied to
// Local entries.
func New(client backend.Client, starters *starter.Registry, s *starter.Starter, entries []Entry, loc *time.Location, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		client:   client,
		starters: starters,
		starter:  s,
		entries:  entries,
		loc:      loc,
		logger:   log.WithComponent(logger, "cron"),
		newRun:   func() string { return uuid.NewString() },
	}
}

// Run ticks once immediately and then every minute until ctx is
// cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("cron started", "entries", len(s.entries))
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	s.Tick(ctx, time.Now())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("cron stopped")
			return nil
		case now := <-ticker.C:
			s.Tick(ctx, now)
		}
	}
}

// Tick evaluates every entry against the given instant.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	for _, entry := range s.entries {
		if !entry.Due(now, s.loc) {
			continue
		}
		if err := s.conditionalStart(ctx, entry, now); err != nil {
			s.logger.Error("conditional start failed",
				log.Error(err), log.WorkflowIDKey, entry.WorkflowID)
		}
	}
}

// conditionalStart starts the entry's workflow unless its last
// completed execution started less than min_interval ago.
func (s *Scheduler) conditionalStart(ctx context.Context, entry Entry, now time.Time) error {
	logger := s.logger.With(log.WorkflowIDKey, entry.WorkflowID)

	// the schedule carries the full timetable; rows without a registered
	// starter are skipped without touching the backend
	fn, found := s.starters.Lookup(entry.Starter)
	if !found {
		logger.Debug("no starter registered, skipping", "starter", entry.Starter)
		return nil
	}

	last, ok, err := s.client.LastCompletedStartTime(ctx, entry.WorkflowID)
	if err != nil {
		return err
	}
	if ok {
		elapsed := now.Sub(last)
		if elapsed < time.Duration(entry.MinInterval) {
			logger.Info("interval not elapsed, skipping",
				"elapsed", elapsed.Round(time.Second).String(),
				"min_interval", time.Duration(entry.MinInterval).String())
			return nil
		}
	}

	req, err := fn(queue.StartData{Run: s.newRun()})
	if err != nil {
		return err
	}
	return s.starter.Start(ctx, req)
}
