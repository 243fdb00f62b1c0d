// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cacheproxy

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/saucelabs/cacheproxy/cache"
	"github.com/saucelabs/cacheproxy/conntrack"
	"github.com/saucelabs/cacheproxy/log"
)

const readBufferSize = 8 * 1024

// connHandler serves a single request per client connection.
type connHandler struct {
	cache     *cache.Store
	forwarder *Forwarder
	log       log.Logger
	metrics   *proxyMetrics

	readHeaderTimeout time.Duration
	maxHeaderBytes    int
}

// serve handles the request and closes c.
// Cancelling ctx interrupts any blocked I/O on the connection.
func (h *connHandler) serve(ctx context.Context, c net.Conn) {
	defer func() {
		if err := c.Close(); err != nil {
			h.log.Debugf("failed to close client connection: %v", err)
		}
		if o := conntrack.ObserverFromConn(c); o != nil {
			h.log.Debugf("Closed connection from %s, rx=%d tx=%d", c.RemoteAddr(), o.Rx(), o.Tx())
		}
	}()

	stop := context.AfterFunc(ctx, func() {
		c.SetDeadline(time.Unix(1, 0)) //nolint:errcheck // best effort
	})
	defer stop()

	if host, port, err := net.SplitHostPort(c.RemoteAddr().String()); err == nil {
		h.log.Infof("Accepted connection from (%s, %s)", host, port)
	} else {
		h.log.Infof("Accepted connection from %s", c.RemoteAddr())
	}

	w := &countingWriter{w: c}
	if err := h.handle(ctx, c, w); err != nil {
		if ctx.Err() != nil {
			h.log.Debugf("connection interrupted: %v", err)
			return
		}
		h.handleError(w, err)
	}
}

func (h *connHandler) handle(ctx context.Context, c net.Conn, w *countingWriter) error {
	if h.readHeaderTimeout > 0 {
		c.SetReadDeadline(time.Now().Add(h.readHeaderTimeout)) //nolint:errcheck // best effort
		// The deadline may have replaced the one set on cancellation.
		if ctx.Err() != nil {
			return nil
		}
	}

	br := bufio.NewReaderSize(c, readBufferSize)
	req, err := ReadRequest(br, h.maxHeaderBytes)
	if err != nil {
		if errors.Is(err, io.EOF) {
			h.log.Debugf("client closed connection before sending request")
			return nil
		}
		return requestError{fmt.Errorf("read request: %w", err)}
	}

	if h.readHeaderTimeout > 0 {
		c.SetReadDeadline(time.Time{}) //nolint:errcheck // best effort
		if ctx.Err() != nil {
			return nil
		}
	}

	if data, ok := h.cache.Lookup(req.URI); ok {
		h.log.Debugf("%s %s served from cache, %d bytes", req.Method, req.URI, len(data))
		h.metrics.cached()
		if _, err := w.Write(data); err != nil {
			return &ForwardError{Stage: StageWriteResponse, Addr: c.RemoteAddr().String(), Err: err}
		}
		return nil
	}

	data, err := h.forwarder.Forward(ctx, w, br, req)
	if err != nil {
		return err
	}
	h.metrics.forwarded()

	if data == nil {
		h.log.Debugf("%s %s forwarded, %d bytes, not cacheable", req.Method, req.URI, w.n)
		return nil
	}
	if h.cache.Insert(req.URI, data) {
		h.log.Debugf("%s %s forwarded and cached, %d bytes", req.Method, req.URI, len(data))
	}

	return nil
}

// handleError sends an error response if nothing was written to the client yet.
func (h *connHandler) handleError(w *countingWriter, err error) {
	if isClientError(err) {
		h.log.Debugf("failed to write response to client: %v", err)
		return
	}

	code, msg, label := errorStatus(err)
	h.metrics.error(label)

	if w.n > 0 {
		h.log.Errorf("response interrupted after %d bytes: %v", w.n, err)
		return
	}

	if code >= 500 {
		h.log.Errorf("%d %s: %v", code, msg, err)
	} else {
		h.log.Infof("%d %s: %v", code, msg, err)
	}
	if werr := writeErrorResponse(w, code, msg, err); werr != nil {
		h.log.Debugf("failed to write error response: %v", werr)
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
