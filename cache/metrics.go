// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	inserts   prometheus.Counter
	rejected  prometheus.Counter
	evictions prometheus.Counter
	entries   prometheus.Gauge
	size      prometheus.Gauge
}

func newMetrics(r prometheus.Registerer, namespace string) *metrics {
	if r == nil {
		r = prometheus.NewRegistry() // This registry will be discarded.
	}
	f := promauto.With(r)

	return &metrics{
		hits: f.NewCounter(prometheus.CounterOpts{
			Name:      "cache_hits_total",
			Namespace: namespace,
			Help:      "Number of cache lookups that found an entry",
		}),
		misses: f.NewCounter(prometheus.CounterOpts{
			Name:      "cache_misses_total",
			Namespace: namespace,
			Help:      "Number of cache lookups that found no entry",
		}),
		inserts: f.NewCounter(prometheus.CounterOpts{
			Name:      "cache_inserts_total",
			Namespace: namespace,
			Help:      "Number of objects stored in the cache",
		}),
		rejected: f.NewCounter(prometheus.CounterOpts{
			Name:      "cache_rejected_total",
			Namespace: namespace,
			Help:      "Number of objects not stored because they exceed the max object size",
		}),
		evictions: f.NewCounter(prometheus.CounterOpts{
			Name:      "cache_evictions_total",
			Namespace: namespace,
			Help:      "Number of least recently used objects evicted to free space",
		}),
		entries: f.NewGauge(prometheus.GaugeOpts{
			Name:      "cache_entries",
			Namespace: namespace,
			Help:      "Current number of objects in the cache",
		}),
		size: f.NewGauge(prometheus.GaugeOpts{
			Name:      "cache_size_bytes",
			Namespace: namespace,
			Help:      "Current total size of the cached objects",
		}),
	}
}

func (m *metrics) hit() {
	m.hits.Inc()
}

func (m *metrics) miss() {
	m.misses.Inc()
}

func (m *metrics) insert() {
	m.inserts.Inc()
}

func (m *metrics) reject() {
	m.rejected.Inc()
}

func (m *metrics) evict() {
	m.evictions.Inc()
}

func (m *metrics) update(entries int, size int64) {
	m.entries.Set(float64(entries))
	m.size.Set(float64(size))
}
