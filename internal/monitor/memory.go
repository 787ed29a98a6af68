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

package monitor

import (
	"context"
	"sync"
)

// Compile-time interface assertion.
var _ Sink = (*MemorySink)(nil)

// Event is a captured lifecycle event.
type Event struct {
	ArticleID string
	Version   string
	Run       string
	Component string
	Phase     Phase
	Message   string
}

// Property is a captured property update.
type Property struct {
	ArticleID    string
	Name         string
	Value        any
	PropertyType string
	Version      string
}

// MemorySink captures events in memory for tests.
type MemorySink struct {
	mu         sync.Mutex
	Events     []Event
	Properties []Property
}

// NewMemorySink creates an empty capturing sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Emit records the event in memory.
func (m *MemorySink) Emit(ctx context.Context, articleID, version, run, component string, phase Phase, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, Event{
		ArticleID: articleID,
		Version:   version,
		Run:       run,
		Component: component,
		Phase:     phase,
		Message:   message,
	})
	return nil
}

// SetProperty records the property update in memory.
func (m *MemorySink) SetProperty(ctx context.Context, articleID, name string, value any, propertyType, version string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Properties = append(m.Properties, Property{
		ArticleID:    articleID,
		Name:         name,
		Value:        value,
		PropertyType: propertyType,
		Version:      version,
	})
	return nil
}

// EventsByPhase returns captured events with the given phase.
func (m *MemorySink) EventsByPhase(phase Phase) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, e := range m.Events {
		if e.Phase == phase {
			out = append(out, e)
		}
	}
	return out
}
