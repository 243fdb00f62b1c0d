// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cacheproxy

import (
	"context"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/saucelabs/cacheproxy/conntrack"
)

type DialConfig struct {
	// DialTimeout is the maximum amount of time a dial will wait for
	// connect to complete, including name resolution.
	// Zero means no timeout, the operating system may still impose its own.
	DialTimeout time.Duration

	// KeepAlive enables TCP keep-alive probes for origin connections.
	KeepAlive bool

	PromRegistry  prometheus.Registerer
	PromNamespace string
}

func DefaultDialConfig() *DialConfig {
	return &DialConfig{
		DialTimeout:   10 * time.Second,
		KeepAlive:     true,
		PromNamespace: "proxy",
	}
}

// Dialer opens connections to origin servers.
type Dialer struct {
	nd      net.Dialer
	metrics *dialerMetrics
}

func NewDialer(cfg *DialConfig) *Dialer {
	nd := net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: -1,
	}
	if cfg.KeepAlive {
		nd.Control = keepAliveControl
	}

	return &Dialer{
		nd:      nd,
		metrics: newDialerMetrics(cfg.PromRegistry, cfg.PromNamespace),
	}
}

// DialContext connects to address, the returned connection updates the dialer metrics when closed.
func (d *Dialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	c, err := d.nd.DialContext(ctx, network, address)
	if err != nil {
		d.metrics.error(address)
		return nil, err
	}
	d.metrics.dial(address)

	return conntrack.Builder{
		OnClose: func(o *conntrack.Observer) {
			d.metrics.close(address, o.Rx(), o.Tx())
		},
	}.Build(c), nil
}
