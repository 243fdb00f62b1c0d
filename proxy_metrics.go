// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cacheproxy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type proxyMetrics struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
}

func newProxyMetrics(r prometheus.Registerer, namespace string) *proxyMetrics {
	if r == nil {
		r = prometheus.NewRegistry() // This registry will be discarded.
	}
	f := promauto.With(r)

	return &proxyMetrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name:      "proxy_requests_total",
			Namespace: namespace,
			Help:      "Number of proxied requests by the source of the response",
		}, []string{"source"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Name:      "proxy_errors_total",
			Namespace: namespace,
			Help:      "Number of proxy errors",
		}, []string{"reason"}),
	}
}

func (m *proxyMetrics) cached() {
	m.requests.WithLabelValues("cache").Inc()
}

func (m *proxyMetrics) forwarded() {
	m.requests.WithLabelValues("origin").Inc()
}

func (m *proxyMetrics) error(reason string) {
	m.errors.WithLabelValues(reason).Inc()
}
