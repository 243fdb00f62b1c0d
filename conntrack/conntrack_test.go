// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package conntrack

import (
	"io"
	"net"
	"testing"
)

func TestConnCountsTraffic(t *testing.T) {
	client, server := net.Pipe()

	var (
		closed int
		rx, tx uint64
	)
	c := Builder{OnClose: func(o *Observer) {
		closed++
		rx, tx = o.Rx(), o.Tx()
	}}.Build(server)

	go func() {
		client.Write([]byte("hello"))
		io.ReadFull(client, make([]byte, 3))
		client.Close()
	}()

	buf := make([]byte, 5)
	if _, err := io.ReadFull(c, buf); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Write([]byte("abc")); err != nil {
		t.Fatal(err)
	}

	c.Close()
	c.Close()

	if closed != 1 {
		t.Fatalf("OnClose called %d times", closed)
	}
	if rx != 5 || tx != 3 {
		t.Fatalf("got rx=%d tx=%d, want rx=5 tx=3", rx, tx)
	}
}

type wrappedConn struct {
	net.Conn
}

func (w wrappedConn) NetConn() net.Conn {
	return w.Conn
}

func TestObserverFromConn(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	c := Builder{}.Build(c1)

	if ObserverFromConn(c) != c.Observer() {
		t.Error("ObserverFromConn mismatch")
	}
	if ObserverFromConn(wrappedConn{c}) != c.Observer() {
		t.Error("ObserverFromConn mismatch for wrapped conn")
	}
	if ObserverFromConn(c2) != nil {
		t.Error("Unexpected observer")
	}
}
