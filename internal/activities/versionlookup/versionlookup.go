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

// Package versionlookup resolves the article version early in a
// workflow so later steps read it from the session instead of guessing.
package versionlookup

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strconv"

	"github.com/pubflow/pubflow/internal/activity"
	"github.com/pubflow/pubflow/internal/article"
	"github.com/pubflow/pubflow/internal/log"
	"github.com/pubflow/pubflow/internal/session"
)

// Session keys written by the lookup.
const (
	VersionKey             = "version"
	FilenameLastElementKey = "filename_last_element"
)

// VersionSource answers version questions the file name cannot.
type VersionSource interface {
	HighestVersion(ctx context.Context, articleID string) (string, error)
	NextVersion(ctx context.Context, articleID string) string
}

// VersionLookup derives the article version from the triggering file
// name, falling back to the versions service, and records the result
// in the session.
type VersionLookup struct {
	versions VersionSource
	sessions session.Store
	logger   *slog.Logger

	// UseNext selects NextVersion over HighestVersion for ingest runs
	// that create a new version rather than touch an existing one.
	UseNext bool
}

var _ activity.Activity = (*VersionLookup)(nil)

// New creates the activity.
func New(versions VersionSource, sessions session.Store, logger *slog.Logger) *VersionLookup {
	return &VersionLookup{
		versions: versions,
		sessions: sessions,
		logger:   log.WithComponent(logger, "versionlookup"),
	}
}

// Name implements activity.Activity.
func (v *VersionLookup) Name() string { return "VersionLookup" }

// Do implements activity.Activity. A version that cannot be determined
// is a permanent failure: retrying the lookup cannot invent one.
func (v *VersionLookup) Do(ctx context.Context, env *activity.Env, params activity.Params) (activity.Outcome, error) {
	articleID := params.ArticleID
	version := params.Version

	if info, err := article.Parse(params.FileName); err == nil {
		if articleID == "" {
			articleID = info.ID
		}
		if version == "" && info.Version > 0 {
			version = strconv.Itoa(info.Version)
		}
	}

	if version == "" {
		looked, err := v.lookup(ctx, articleID)
		if err != nil {
			return activity.PermanentFailure, err
		}
		version = looked
	}
	if version == "" || version == "-1" {
		return activity.PermanentFailure,
			fmt.Errorf("versionlookup: no version for article %q file %q", articleID, params.FileName)
	}

	if err := v.sessions.Store(ctx, params.Run, VersionKey, version); err != nil {
		return activity.TemporaryFailure, err
	}
	if err := v.sessions.Store(ctx, params.Run, FilenameLastElementKey, path.Base(params.FileName)); err != nil {
		return activity.TemporaryFailure, err
	}

	v.logger.Info("version resolved",
		log.RunKey, params.Run, log.ArticleIDKey, articleID, "version", version)
	return activity.Success, nil
}

func (v *VersionLookup) lookup(ctx context.Context, articleID string) (string, error) {
	if articleID == "" {
		return "", fmt.Errorf("versionlookup: no article id to look up")
	}
	if v.UseNext {
		return v.versions.NextVersion(ctx, articleID), nil
	}
	return v.versions.HighestVersion(ctx, articleID)
}
