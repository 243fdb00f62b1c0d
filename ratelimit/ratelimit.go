// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package ratelimit limits the bandwidth of accepted connections.
// The limits are shared by all connections accepted by a listener.
package ratelimit

import (
	"context"
	"net"
	"sync"

	"golang.org/x/time/rate"
)

// minBurstSize is the smallest token bucket, reads and writes larger than the burst are split.
const minBurstSize = 4 * 1024 * 1024

// NewLimiter returns a token bucket limiter for bandwidth in bytes per second.
// It returns nil if bandwidth is not positive.
func NewLimiter(bandwidth int64) *rate.Limiter {
	if bandwidth <= 0 {
		return nil
	}
	burst := max(bandwidth/64, minBurstSize)
	return rate.NewLimiter(rate.Limit(bandwidth), int(burst))
}

type Listener struct {
	net.Listener
	rx *rate.Limiter
	tx *rate.Limiter
}

// NewListener wraps l so that reads from accepted connections are limited to rxBandwidth
// and writes to txBandwidth bytes per second. Zero means no limit.
func NewListener(l net.Listener, rxBandwidth, txBandwidth int64) *Listener {
	return &Listener{
		Listener: l,
		rx:       NewLimiter(rxBandwidth),
		tx:       NewLimiter(txBandwidth),
	}
}

func (l *Listener) Accept() (net.Conn, error) {
	c, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	return NewConn(c, l.rx, l.tx), nil
}

// Conn limits the bandwidth of a connection, nil limiters are ignored.
// Waiting for the limiter is interrupted when the connection is closed.
type Conn struct {
	net.Conn
	rx *rate.Limiter
	tx *rate.Limiter

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func NewConn(c net.Conn, rx, tx *rate.Limiter) *Conn {
	ctx, cancel := context.WithCancel(context.Background())
	return &Conn{
		Conn:   c,
		rx:     rx,
		tx:     tx,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (c *Conn) Read(b []byte) (n int, err error) {
	if c.rx != nil && len(b) > c.rx.Burst() {
		b = b[:c.rx.Burst()]
	}
	n, err = c.Conn.Read(b)
	if n > 0 && c.rx != nil {
		if werr := c.rx.WaitN(c.ctx, n); werr != nil && err == nil {
			err = net.ErrClosed
		}
	}
	return
}

// Write waits for the limiter in chunks no larger than its burst.
func (c *Conn) Write(b []byte) (n int, err error) {
	if c.tx == nil {
		return c.Conn.Write(b)
	}

	for len(b) > 0 {
		chunk := b[:min(len(b), c.tx.Burst())]
		if err := c.tx.WaitN(c.ctx, len(chunk)); err != nil {
			return n, net.ErrClosed
		}
		nn, err := c.Conn.Write(chunk)
		n += nn
		if err != nil {
			return n, err
		}
		b = b[len(chunk):]
	}
	return n, nil
}

func (c *Conn) Close() error {
	c.closeOnce.Do(c.cancel)
	return c.Conn.Close()
}

// NetConn returns the wrapped connection.
func (c *Conn) NetConn() net.Conn {
	return c.Conn
}
