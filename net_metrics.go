// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cacheproxy

import (
	"net"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type dialerMetrics struct {
	errors  *prometheus.CounterVec
	dialed  *prometheus.CounterVec
	active  *prometheus.GaugeVec
	rxBytes prometheus.Counter
	txBytes prometheus.Counter
}

func newDialerMetrics(r prometheus.Registerer, namespace string) *dialerMetrics {
	if r == nil {
		r = prometheus.NewRegistry() // This registry will be discarded.
	}
	f := promauto.With(r)
	l := []string{"host"}

	return &dialerMetrics{
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Name:      "dialer_errors_total",
			Namespace: namespace,
			Help:      "Number of errors dialing origin servers",
		}, l),
		dialed: f.NewCounterVec(prometheus.CounterOpts{
			Name:      "dialer_cx_total",
			Namespace: namespace,
			Help:      "Number of connections dialed to origin servers",
		}, l),
		active: f.NewGaugeVec(prometheus.GaugeOpts{
			Name:      "dialer_cx_active",
			Namespace: namespace,
			Help:      "Number of open connections to origin servers",
		}, l),
		rxBytes: f.NewCounter(prometheus.CounterOpts{
			Name:      "dialer_rx_bytes_total",
			Namespace: namespace,
			Help:      "Number of bytes read from origin servers",
		}),
		txBytes: f.NewCounter(prometheus.CounterOpts{
			Name:      "dialer_tx_bytes_total",
			Namespace: namespace,
			Help:      "Number of bytes written to origin servers",
		}),
	}
}

func (m *dialerMetrics) error(addr string) {
	m.errors.WithLabelValues(addr2Host(addr)).Inc()
}

func (m *dialerMetrics) dial(addr string) {
	host := addr2Host(addr)
	m.dialed.WithLabelValues(host).Inc()
	m.active.WithLabelValues(host).Inc()
}

func (m *dialerMetrics) close(addr string, rx, tx uint64) {
	m.active.WithLabelValues(addr2Host(addr)).Dec()
	m.rxBytes.Add(float64(rx))
	m.txBytes.Add(float64(tx))
}

// addr2Host maps loopback addresses to "localhost" to keep the label cardinality low.
func addr2Host(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return "unknown"
	}

	switch host {
	case "localhost", "":
		return "localhost"
	}
	if ip := net.ParseIP(host); ip != nil && (ip.IsLoopback() || ip.IsUnspecified()) {
		return "localhost"
	}

	return host
}

type listenerMetrics struct {
	accepted prometheus.Counter
	errors   prometheus.Counter
	closed   prometheus.Counter
	active   prometheus.Gauge
	rxBytes  prometheus.Counter
	txBytes  prometheus.Counter
}

func newListenerMetrics(r prometheus.Registerer, namespace string) *listenerMetrics {
	if r == nil {
		r = prometheus.NewRegistry() // This registry will be discarded.
	}
	f := promauto.With(r)

	return &listenerMetrics{
		accepted: f.NewCounter(prometheus.CounterOpts{
			Name:      "listener_accepted_total",
			Namespace: namespace,
			Help:      "Number of accepted client connections",
		}),
		errors: f.NewCounter(prometheus.CounterOpts{
			Name:      "listener_errors_total",
			Namespace: namespace,
			Help:      "Number of listener errors when accepting connections",
		}),
		closed: f.NewCounter(prometheus.CounterOpts{
			Name:      "listener_closed_total",
			Namespace: namespace,
			Help:      "Number of closed client connections",
		}),
		active: f.NewGauge(prometheus.GaugeOpts{
			Name:      "listener_cx_active",
			Namespace: namespace,
			Help:      "Number of open client connections",
		}),
		rxBytes: f.NewCounter(prometheus.CounterOpts{
			Name:      "listener_rx_bytes_total",
			Namespace: namespace,
			Help:      "Number of bytes read from clients",
		}),
		txBytes: f.NewCounter(prometheus.CounterOpts{
			Name:      "listener_tx_bytes_total",
			Namespace: namespace,
			Help:      "Number of bytes written to clients",
		}),
	}
}

func (m *listenerMetrics) accept() {
	m.accepted.Inc()
	m.active.Inc()
}

func (m *listenerMetrics) error() {
	m.errors.Inc()
}

func (m *listenerMetrics) close(rx, tx uint64) {
	m.closed.Inc()
	m.active.Dec()
	m.rxBytes.Add(float64(rx))
	m.txBytes.Add(float64(tx))
}
