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

package versionlookup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pubflow/pubflow/internal/activity"
	"github.com/pubflow/pubflow/internal/log"
	"github.com/pubflow/pubflow/internal/session"
)

type stubVersions struct {
	highest    string
	highestErr error
	next       string
}

func (s stubVersions) HighestVersion(ctx context.Context, articleID string) (string, error) {
	return s.highest, s.highestErr
}

func (s stubVersions) NextVersion(ctx context.Context, articleID string) string {
	return s.next
}

func TestVersionFromFileName(t *testing.T) {
	sessions := session.NewMemoryStore()
	v := New(stubVersions{}, sessions, log.Discard())

	outcome, err := v.Do(context.Background(), nil, activity.Params{
		Run:      "run-1",
		FileName: "elife-29353-vor-v2.zip",
	})
	require.NoError(t, err)
	assert.Equal(t, activity.Success, outcome)

	got, err := session.LoadString(context.Background(), sessions, "run-1", VersionKey)
	require.NoError(t, err)
	assert.Equal(t, "2", got)

	last, err := session.LoadString(context.Background(), sessions, "run-1", FilenameLastElementKey)
	require.NoError(t, err)
	assert.Equal(t, "elife-29353-vor-v2.zip", last)
}

func TestVersionFromLookupWhenFileNameSilent(t *testing.T) {
	sessions := session.NewMemoryStore()
	v := New(stubVersions{highest: "3"}, sessions, log.Discard())

	outcome, err := v.Do(context.Background(), nil, activity.Params{
		Run:      "run-2",
		FileName: "elife-29353-vor.zip",
	})
	require.NoError(t, err)
	assert.Equal(t, activity.Success, outcome)

	got, err := session.LoadString(context.Background(), sessions, "run-2", VersionKey)
	require.NoError(t, err)
	assert.Equal(t, "3", got)
}

func TestNextVersionLookup(t *testing.T) {
	sessions := session.NewMemoryStore()
	v := New(stubVersions{next: "4"}, sessions, log.Discard())
	v.UseNext = true

	outcome, err := v.Do(context.Background(), nil, activity.Params{
		Run:       "run-3",
		ArticleID: "29353",
		FileName:  "elife-29353-poa.zip",
	})
	require.NoError(t, err)
	assert.Equal(t, activity.Success, outcome)

	got, err := session.LoadString(context.Background(), sessions, "run-3", VersionKey)
	require.NoError(t, err)
	assert.Equal(t, "4", got)
}

func TestUndeterminableVersionIsPermanent(t *testing.T) {
	v := New(stubVersions{next: "-1"}, session.NewMemoryStore(), log.Discard())
	v.UseNext = true

	outcome, err := v.Do(context.Background(), nil, activity.Params{
		Run:       "run-4",
		ArticleID: "29353",
		FileName:  "elife-29353-poa.zip",
	})
	require.Error(t, err)
	assert.Equal(t, activity.PermanentFailure, outcome)
}

func TestMissingArticleIDIsPermanent(t *testing.T) {
	v := New(stubVersions{}, session.NewMemoryStore(), log.Discard())

	outcome, err := v.Do(context.Background(), nil, activity.Params{
		Run:      "run-5",
		FileName: "not-an-article.bin",
	})
	require.Error(t, err)
	assert.Equal(t, activity.PermanentFailure, outcome)
}
