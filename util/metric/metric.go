// Copyright 2024 The Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

// Package metric wires github.com/prometheus/client_golang into the lock
// manager: gauges and histograms tracking pending-transaction count,
// per-key queue depth, and range-tree size.
package metric

import "github.com/prometheus/client_golang/prometheus"

// NewRegistry returns a fresh, unregistered Prometheus registry so tests
// and multiple lockbench runs never collide on the default global one.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// LockManagerMetrics is the small metrics surface a TransactionalLocker
// updates as it runs.
type LockManagerMetrics struct {
	PendingTransactions prometheus.Gauge
	KeyQueueDepth       prometheus.Histogram
	RangeTreeSize       prometheus.Gauge
	Executable          prometheus.Counter
	ExecutableBatch     prometheus.Histogram
}

// NewLockManagerMetrics constructs and registers the metric set against
// reg.
func NewLockManagerMetrics(reg *prometheus.Registry) *LockManagerMetrics {
	m := &LockManagerMetrics{
		PendingTransactions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "txnlock",
			Name:      "pending_transactions",
			Help:      "Number of transactions currently pending in the lock manager.",
		}),
		KeyQueueDepth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "txnlock",
			Name:      "key_queue_depth",
			Help:      "Depth of a per-key lock queue at the time a holder is added.",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),
		RangeTreeSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "txnlock",
			Name:      "range_tree_size",
			Help:      "Number of range holdings currently indexed by RangeLock.",
		}),
		Executable: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "txnlock",
			Name:      "executable_total",
			Help:      "Total count of transactions that transitioned to executable.",
		}),
		ExecutableBatch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "txnlock",
			Name:      "executable_batch_size",
			Help:      "Number of executables emitted by a single update/unlock call.",
			Buckets:   prometheus.LinearBuckets(0, 1, 10),
		}),
	}
	reg.MustRegister(m.PendingTransactions, m.KeyQueueDepth, m.RangeTreeSize, m.Executable, m.ExecutableBatch)
	return m
}
