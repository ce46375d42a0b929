// Copyright 2026 Google LLC
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

// Package telemetry counts polls and wait outcomes in a private Prometheus
// registry that can be written to a node-exporter textfile.
package telemetry

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cloudsdk"

// Metrics implements poller.Recorder. A nil *Metrics records nothing.
type Metrics struct {
	registry     *prometheus.Registry
	polls        *prometheus.CounterVec
	waits        *prometheus.CounterVec
	waitDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them.
func NewMetrics() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		polls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operation_polls_total",
				Help:      "Operation polls by operation kind and result (status or error kind).",
			},
			[]string{"kind", "result"},
		),
		waits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operation_waits_total",
				Help:      "Finished waits by operation kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		waitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_wait_duration_seconds",
				Help:      "Wall time of finished waits.",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12), //nolint:gomnd // 1s to ~34m
			},
			[]string{"kind", "outcome"},
		),
	}
	for _, c := range []prometheus.Collector{m.polls, m.waits, m.waitDuration} {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return m, nil
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObservePoll counts one poll.
func (m *Metrics) ObservePoll(kind, result string) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(kind, result).Inc()
}

// ObserveWait counts one finished wait and records its duration.
func (m *Metrics) ObserveWait(kind, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.waits.WithLabelValues(kind, outcome).Inc()
	m.waitDuration.WithLabelValues(kind, outcome).Observe(elapsed.Seconds())
}

// WriteToTextfile writes the current values in the text exposition format.
func (m *Metrics) WriteToTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		slog.Error("Metrics: Failed to write textfile", "path", path, "error", err)
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	slog.Debug("Metrics: Wrote textfile", "path", path)
	return nil
}
