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

package queue

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Rule routes object-store events from one bucket to a starter when
// the key matches the pattern.
type Rule struct {
	Bucket  string `yaml:"bucket"`
	Pattern string `yaml:"pattern"`
	Starter string `yaml:"starter"`

	compiled *regexp.Regexp
}

// Rules is an ordered routing table; the first matching rule wins.
type Rules []Rule

type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// ParseRules decodes and compiles a YAML routing table.
func ParseRules(data []byte) (Rules, error) {
	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("queue: parse rules: %w", err)
	}
	for i := range file.Rules {
		rule := &file.Rules[i]
		compiled, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("queue: rule %d pattern %q: %w", i, rule.Pattern, err)
		}
		rule.compiled = compiled
	}
	return file.Rules, nil
}

// LoadRules reads and parses a routing table from disk.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("queue: read rules: %w", err)
	}
	return ParseRules(data)
}

// Match returns the starter for the first rule matching (bucket, key),
// or "" when no rule matches.
func (r Rules) Match(bucket, key string) string {
	for _, rule := range r {
		if rule.Bucket != bucket {
			continue
		}
		if rule.compiled != nil && rule.compiled.MatchString(key) {
			return rule.Starter
		}
	}
	return ""
}
