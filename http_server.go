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
	stdlog "log"
	"net"
	"net/http"
	"time"

	"github.com/saucelabs/cacheproxy/log"
)

type HTTPServerConfig struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
}

func DefaultHTTPServerConfig() *HTTPServerConfig {
	return &HTTPServerConfig{
		Addr:              "localhost:10000",
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Profiling endpoints may stream for longer.
		WriteTimeout: 0,
	}
}

// HTTPServer is a plain HTTP server used for the API endpoints.
type HTTPServer struct {
	config   HTTPServerConfig
	log      log.Logger
	srv      *http.Server
	listener net.Listener
}

// NewHTTPServer creates a server and binds the listen address.
func NewHTTPServer(cfg *HTTPServerConfig, h http.Handler, log log.Logger) (*HTTPServer, error) {
	l, err := Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to open listener on address %s: %w", cfg.Addr, err)
	}

	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
	// Loggers backed by the standard library also receive the server internal errors.
	if u, ok := log.(interface{ Unwrap() *stdlog.Logger }); ok {
		srv.ErrorLog = u.Unwrap()
	}

	return &HTTPServer{
		config:   *cfg,
		log:      log,
		srv:      srv,
		listener: l,
	}, nil
}

// Run serves requests until ctx is done, then shuts the server down gracefully.
func (hs *HTTPServer) Run(ctx context.Context) error {
	hs.log.Infof("HTTP server listen address=%s", hs.Addr())

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hs.srv.Shutdown(sctx); err != nil {
			hs.log.Errorf("failed to shutdown server error=%s", err)
		}
	}()

	if err := hs.srv.Serve(hs.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-shutdownDone
	hs.log.Debugf("server was shutdown gracefully")

	return nil
}

func (hs *HTTPServer) Addr() string {
	return hs.listener.Addr().String()
}

func (hs *HTTPServer) Close() error {
	return hs.srv.Close()
}
