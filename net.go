// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cacheproxy

import (
	"context"
	"errors"
	"net"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/saucelabs/cacheproxy/conntrack"
	"github.com/saucelabs/cacheproxy/log"
	"github.com/saucelabs/cacheproxy/ratelimit"
	"golang.org/x/net/netutil"
)

// Listen creates a TCP listener with keep-alive enabled on accepted connections.
func Listen(network, address string) (net.Listener, error) {
	lc := net.ListenConfig{
		KeepAlive: -1,
		Control:   keepAliveControl,
	}
	// The context cancellation does not close the listener.
	return lc.Listen(context.Background(), network, address)
}

// Listener is a TCP listener with connection limit, bandwidth limits and metrics.
type Listener struct {
	Address string
	Log     log.Logger

	// MaxConns limits the number of simultaneously open client connections.
	// Accept blocks when the limit is reached, zero means no limit.
	MaxConns int

	// ReadLimit and WriteLimit limit the bandwidth of reading from and writing to clients
	// in bytes per second, the limits are shared by all connections, zero means no limit.
	ReadLimit  int64
	WriteLimit int64

	PromRegistry  prometheus.Registerer
	PromNamespace string

	listener net.Listener
	metrics  *listenerMetrics
}

// Listen binds the address, it must be called once before Accept.
func (l *Listener) Listen() error {
	if l.Log == nil {
		l.Log = log.NopLogger
	}
	l.metrics = newListenerMetrics(l.PromRegistry, l.PromNamespace)

	ll, err := Listen("tcp", l.Address)
	if err != nil {
		return err
	}

	if l.MaxConns > 0 {
		ll = netutil.LimitListener(ll, l.MaxConns)
	}
	if l.ReadLimit > 0 || l.WriteLimit > 0 {
		ll = ratelimit.NewListener(ll, l.ReadLimit, l.WriteLimit)
	}
	l.listener = ll

	return nil
}

func (l *Listener) Accept() (net.Conn, error) {
	c, err := l.listener.Accept()
	if err != nil {
		if !errors.Is(err, net.ErrClosed) {
			l.metrics.error()
		}
		return nil, err
	}
	l.metrics.accept()

	return conntrack.Builder{
		OnClose: func(o *conntrack.Observer) {
			l.metrics.close(o.Rx(), o.Tx())
		},
	}.Build(c), nil
}

func (l *Listener) Addr() net.Addr {
	if l.listener == nil {
		return &net.IPAddr{}
	}
	return l.listener.Addr()
}

func (l *Listener) Close() error {
	if l.listener == nil {
		return nil
	}
	return l.listener.Close()
}
