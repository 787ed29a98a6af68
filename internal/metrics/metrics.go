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

// Package metrics registers the Prometheus instruments shared by the
// pubflow processes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the process-wide instruments.
type Metrics struct {
	registry *prometheus.Registry

	// DecisionsTotal counts decision tasks handled, by workflow type.
	DecisionsTotal *prometheus.CounterVec

	// ActivitiesTotal counts activity invocations, by activity type and
	// outcome.
	ActivitiesTotal *prometheus.CounterVec

	// StartsTotal counts workflow start attempts, by workflow type and
	// result (started, duplicate, error).
	StartsTotal *prometheus.CounterVec

	// QueueMessagesTotal counts queue messages processed, by result
	// (routed, unmatched, invalid).
	QueueMessagesTotal *prometheus.CounterVec

	// PollErrorsTotal counts backend poll failures, by loop.
	PollErrorsTotal *prometheus.CounterVec
}

// New creates a metrics set on its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		DecisionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pubflow_decisions_total",
			Help: "Decision tasks handled, by workflow type.",
		}, []string{"workflow"}),
		ActivitiesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pubflow_activities_total",
			Help: "Activity invocations, by activity type and outcome.",
		}, []string{"activity", "outcome"}),
		StartsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pubflow_workflow_starts_total",
			Help: "Workflow start attempts, by workflow type and result.",
		}, []string{"workflow", "result"}),
		QueueMessagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pubflow_queue_messages_total",
			Help: "Queue messages processed, by result.",
		}, []string{"result"}),
		PollErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pubflow_poll_errors_total",
			Help: "Backend poll failures, by loop.",
		}, []string{"loop"}),
	}
}

// Handler returns the HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
