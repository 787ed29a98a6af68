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

package cron

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed schedule.yaml
var defaultScheduleYAML []byte

// Duration is a time.Duration that unmarshals from YAML strings like
// "31m" or "3h46m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("cron: parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Entry is one row of the schedule table.
type Entry struct {
	WorkflowID string `yaml:"workflow_id"`
	Starter    string `yaml:"starter"`

	// MinuteFrom and MinuteTo bound the due window within each hour.
	// An omitted MinuteTo means the whole hour.
	MinuteFrom int  `yaml:"minute_from"`
	MinuteTo   *int `yaml:"minute_to"`

	// Hour restricts the entry to one hour of the day; nil means every
	// hour. Local applies the journal timezone instead of UTC.
	Hour  *int `yaml:"hour"`
	Local bool `yaml:"local"`

	MinInterval Duration `yaml:"min_interval"`
}

// Due reports whether the entry's window covers the given instant.
// loc is the journal timezone for Local entries.
func (e Entry) Due(now time.Time, loc *time.Location) bool {
	t := now.UTC()
	if e.Local && loc != nil {
		t = now.In(loc)
	}

	minuteTo := 59
	if e.MinuteTo != nil {
		minuteTo = *e.MinuteTo
	}
	if t.Minute() < e.MinuteFrom || t.Minute() > minuteTo {
		return false
	}
	if e.Hour != nil && t.Hour() != *e.Hour {
		return false
	}
	return true
}

type scheduleFile struct {
	Schedule []Entry `yaml:"schedule"`
}

// ParseSchedule decodes a YAML schedule table.
func ParseSchedule(data []byte) ([]Entry, error) {
	var file scheduleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("cron: parse schedule: %w", err)
	}
	for i, entry := range file.Schedule {
		if entry.WorkflowID == "" || entry.Starter == "" {
			return nil, fmt.Errorf("cron: schedule entry %d missing workflow_id or starter", i)
		}
		if entry.MinInterval <= 0 {
			return nil, fmt.Errorf("cron: schedule entry %d missing min_interval", i)
		}
	}
	return file.Schedule, nil
}

// DefaultSchedule returns the embedded schedule table.
func DefaultSchedule() []Entry {
	entries, err := ParseSchedule(defaultScheduleYAML)
	if err != nil {
		// the embedded table is validated by tests
		panic(err)
	}
	return entries
}

// LoadSchedule reads a schedule table from disk, for deployments that
// override the embedded default.
func LoadSchedule(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cron: read schedule: %w", err)
	}
	return ParseSchedule(data)
}
