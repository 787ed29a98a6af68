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

package activity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pubflow/pubflow/internal/log"
	"github.com/pubflow/pubflow/internal/monitor"
)

// Runner executes activities inside the runtime: scratch directories,
// lifecycle events and panic containment.
type Runner struct {
	logger  *slog.Logger
	sink    monitor.Sink
	baseDir string
}

// NewRunner creates a runner. baseDir is where scratch directories are
// made; empty means the system temp dir.
func NewRunner(logger *slog.Logger, sink monitor.Sink, baseDir string) *Runner {
	return &Runner{logger: logger, sink: sink, baseDir: baseDir}
}

// Run executes one activity invocation. A panic inside the activity is
// contained and reported as a permanent failure; the scratch space is
// removed on every path.
func (r *Runner) Run(ctx context.Context, act Activity, rawInput string) (outcome Outcome, err error) {
	params, err := ParseInput(rawInput)
	if err != nil {
		return PermanentFailure, err
	}

	logger := r.logger.With(
		log.ActivityKey, act.Name(),
		log.RunKey, params.Run,
		log.ArticleIDKey, params.ArticleID,
	)

	env, err := NewEnv(r.baseDir, act.Name())
	if err != nil {
		return TemporaryFailure, err
	}
	defer func() {
		if cleanupErr := env.Cleanup(); cleanupErr != nil {
			logger.Warn("failed to remove scratch space", log.Error(cleanupErr))
		}
	}()

	r.emit(ctx, params, act.Name(), monitor.PhaseStart, "starting "+act.Name())

	defer func() {
		if recovered := recover(); recovered != nil {
			outcome = PermanentFailure
			err = fmt.Errorf("activity: %s panicked: %v", act.Name(), recovered)
			logger.Error("activity panicked", log.Error(err))
			r.emit(ctx, params, act.Name(), monitor.PhaseError, err.Error())
		}
	}()

	outcome, err = act.Do(ctx, env, params)
	switch {
	case err != nil:
		logger.Error("activity failed", log.Error(err), "outcome", outcome.String())
		r.emit(ctx, params, act.Name(), monitor.PhaseError, err.Error())
	default:
		logger.Info("activity finished", "outcome", outcome.String())
		r.emit(ctx, params, act.Name(), monitor.PhaseEnd, "finished "+act.Name())
	}
	return outcome, err
}

func (r *Runner) emit(ctx context.Context, params Params, component string, phase monitor.Phase, message string) {
	if r.sink == nil {
		return
	}
	// a sink failure is logged by the sink itself, never propagated
	_ = r.sink.Emit(ctx, params.ArticleID, params.Version, params.Run, component, phase, message)
}
