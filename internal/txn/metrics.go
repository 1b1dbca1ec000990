// Copyright 2021 FerretDB Inc.
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

package txn

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Parts of Prometheus metric names.
const (
	namespace = "mongohelper"
	subsystem = "batches"
)

// metrics represents executor metrics.
type metrics struct {
	batches    *prometheus.CounterVec
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// newMetrics creates new executor metrics.
func newMetrics() *metrics {
	return &metrics{
		batches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "total",
				Help:      "Total number of executed batches.",
			},
			[]string{"mode", "result"},
		),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "operations_total",
				Help:      "Total number of operations by outcome.",
			},
			[]string{"kind", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "duration_seconds",
				Help:      "Batch execution duration.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
	}
}

// Describe implements prometheus.Collector.
func (m *metrics) Describe(ch chan<- *prometheus.Desc) {
	m.batches.Describe(ch)
	m.operations.Describe(ch)
	m.duration.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *metrics) Collect(ch chan<- prometheus.Metric) {
	m.batches.Collect(ch)
	m.operations.Collect(ch)
	m.duration.Collect(ch)
}

// observeCommitted counts operations that were committed before the batch ended.
//
// When a ReplicaSet batch fails, they are rolled back and counted as aborted.
func (m *metrics) observeCommitted(mode Mode, res []Result, err error) {
	label := "ok"
	if err != nil && mode == ReplicaSet {
		label = "aborted"
	}

	for _, r := range res {
		m.operations.WithLabelValues(r.Kind.String(), label).Inc()
	}
}

// resultLabel returns metric label for the error.
func resultLabel(err error) string {
	if err != nil {
		return "error"
	}

	return "ok"
}

// check interfaces
var (
	_ prometheus.Collector = (*metrics)(nil)
)
