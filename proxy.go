// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cacheproxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/saucelabs/cacheproxy/cache"
	"github.com/saucelabs/cacheproxy/log"
)

type ProxyConfig struct {
	// Addr is the address to listen on, in the form "host:port".
	Addr string

	// MaxConns limits the number of client connections served at the same time.
	// Connections over the limit wait in the accept queue, zero means no limit.
	MaxConns int

	// ReadHeaderTimeout is the amount of time allowed to read the request line and headers.
	// Zero means no limit.
	ReadHeaderTimeout time.Duration

	// MaxHeaderBytes limits the size of the request line and headers.
	MaxHeaderBytes int

	// ReadLimit and WriteLimit are the client bandwidth limits in bytes per second.
	ReadLimit  int64
	WriteLimit int64

	PromRegistry  prometheus.Registerer
	PromNamespace string
}

func DefaultProxyConfig() *ProxyConfig {
	return &ProxyConfig{
		Addr:              ":8080",
		MaxConns:          1024,
		ReadHeaderTimeout: 1 * time.Minute,
		MaxHeaderBytes:    64 * 1024,
		PromNamespace:     "proxy",
	}
}

func (c *ProxyConfig) Validate() error {
	if c.MaxConns < 0 {
		return errors.New("max conns must not be negative")
	}
	if c.ReadHeaderTimeout < 0 {
		return errors.New("read header timeout must not be negative")
	}
	if c.MaxHeaderBytes < 0 {
		return errors.New("max header bytes must not be negative")
	}
	if c.ReadLimit < 0 || c.WriteLimit < 0 {
		return errors.New("bandwidth limits must not be negative")
	}
	return nil
}

// Proxy is a caching forward HTTP proxy.
// It serves one request per client connection and caches small responses by request URI.
type Proxy struct {
	config   ProxyConfig
	listener *Listener
	handler  *connHandler
	log      log.Logger
}

// NewProxy creates a proxy and binds the listen address.
// The store is shared by all connections, the dialer is used to connect to origin servers.
func NewProxy(cfg *ProxyConfig, store *cache.Store, d *Dialer, log log.Logger) (*Proxy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := &Listener{
		Address:       cfg.Addr,
		Log:           log,
		MaxConns:      cfg.MaxConns,
		ReadLimit:     cfg.ReadLimit,
		WriteLimit:    cfg.WriteLimit,
		PromRegistry:  cfg.PromRegistry,
		PromNamespace: cfg.PromNamespace,
	}
	if err := l.Listen(); err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}

	p := &Proxy{
		config:   *cfg,
		listener: l,
		handler: &connHandler{
			cache:             store,
			forwarder:         NewForwarder(d, store.Config().MaxObjectSize),
			log:               log,
			metrics:           newProxyMetrics(cfg.PromRegistry, cfg.PromNamespace),
			readHeaderTimeout: cfg.ReadHeaderTimeout,
			maxHeaderBytes:    cfg.MaxHeaderBytes,
		},
		log: log,
	}

	return p, nil
}

// Run accepts connections and serves each of them in its own goroutine until ctx is done.
// When ctx is done the listener is closed, in-flight connections are interrupted,
// and Run returns after all of them are closed.
func (p *Proxy) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		if err := p.listener.Close(); err != nil {
			p.log.Errorf("failed to close listener: %v", err)
		}
	})
	defer stop()

	p.log.Infof("PROXY server listen address=%s", p.Addr())

	var wg sync.WaitGroup
	defer wg.Wait()

	var delay time.Duration
	for {
		c, err := p.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}

			delay = backoff(delay)
			p.log.Errorf("accept error: %v, retrying in %v", err, delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		delay = 0

		wg.Add(1)
		go func() {
			defer wg.Done()
			p.handler.serve(ctx, c)
		}()
	}
}

func backoff(d time.Duration) time.Duration {
	const (
		minDelay = 5 * time.Millisecond
		maxDelay = 1 * time.Second
	)
	if d == 0 {
		return minDelay
	}
	return min(2*d, maxDelay)
}

// Addr returns the address the proxy listens on.
func (p *Proxy) Addr() string {
	return p.listener.Addr().String()
}

// Close closes the listener, it does not interrupt in-flight connections.
func (p *Proxy) Close() error {
	return p.listener.Close()
}
