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
	"fmt"
	"os"
	"path/filepath"
)

// Env is the per-invocation scratch space. Directories are private to
// one activity invocation and removed by Cleanup regardless of outcome.
type Env struct {
	base string

	// TmpDir holds intermediate files.
	TmpDir string
	// InputDir holds files fetched from the object store.
	InputDir string
	// OutputDir holds files produced for upload.
	OutputDir string
}

// NewEnv creates the scratch directories under baseDir (the system
// temp dir when empty).
func NewEnv(baseDir, activityName string) (*Env, error) {
	base, err := os.MkdirTemp(baseDir, activityName+"-*")
	if err != nil {
		return nil, fmt.Errorf("activity: create scratch dir: %w", err)
	}
	env := &Env{
		base:      base,
		TmpDir:    filepath.Join(base, "tmp"),
		InputDir:  filepath.Join(base, "input"),
		OutputDir: filepath.Join(base, "output"),
	}
	for _, dir := range []string{env.TmpDir, env.InputDir, env.OutputDir} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			os.RemoveAll(base)
			return nil, fmt.Errorf("activity: create scratch dir: %w", err)
		}
	}
	return env, nil
}

// Cleanup removes the scratch space.
func (e *Env) Cleanup() error {
	return os.RemoveAll(e.base)
}
