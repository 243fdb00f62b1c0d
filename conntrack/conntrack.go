// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package conntrack wraps connections to count transferred bytes and observe close.
package conntrack

import (
	"net"
	"sync"
	"sync/atomic"
)

// Observer allows to observe the number of bytes read and written from a connection.
type Observer struct {
	rx atomic.Uint64
	tx atomic.Uint64
}

// Rx returns the number of bytes read from the connection.
func (o *Observer) Rx() uint64 {
	return o.rx.Load()
}

// Tx returns the number of bytes written to the connection.
func (o *Observer) Tx() uint64 {
	return o.tx.Load()
}

type Builder struct {
	// OnClose is called after the underlying connection is closed and before the Close method returns.
	// It is called at most once with the observer of the connection.
	OnClose func(*Observer)
}

// Build wraps c so that traffic is counted and OnClose is called on close.
func (b Builder) Build(c net.Conn) *Conn {
	return &Conn{
		Conn:    c,
		onClose: b.OnClose,
	}
}

// Conn is a net.Conn that tracks the number of bytes read and written.
type Conn struct {
	net.Conn
	o Observer

	onClose   func(*Observer)
	closeOnce sync.Once
}

func (c *Conn) Read(p []byte) (n int, err error) {
	n, err = c.Conn.Read(p)
	c.o.rx.Add(uint64(n)) //nolint:gosec // n is never negative.
	return
}

func (c *Conn) Write(p []byte) (n int, err error) {
	n, err = c.Conn.Write(p)
	c.o.tx.Add(uint64(n)) //nolint:gosec // n is never negative.
	return
}

func (c *Conn) Close() error {
	err := c.Conn.Close()
	if c.onClose != nil {
		c.closeOnce.Do(func() { c.onClose(&c.o) })
	}
	return err
}

func (c *Conn) Observer() *Observer {
	return &c.o
}

// NetConn returns the wrapped connection.
func (c *Conn) NetConn() net.Conn {
	return c.Conn
}

// ObserverFromConn returns the observer of the first tracked connection in the chain
// of connections exposing NetConn, or nil if there is none.
func ObserverFromConn(c net.Conn) *Observer {
	type netConner interface {
		NetConn() net.Conn
	}

	for c != nil {
		if tc, ok := c.(*Conn); ok {
			return tc.Observer()
		}
		nc, ok := c.(netConner)
		if !ok {
			return nil
		}
		c = nc.NetConn()
	}
	return nil
}
