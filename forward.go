// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cacheproxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

const (
	relayChunkSize = 8 * 1024

	originUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:10.0.3) Gecko/20120305 Firefox/10.0.3"
)

type ForwardStage string

const (
	StageDial          ForwardStage = "dial"
	StageSendRequest   ForwardStage = "send request"
	StageReadResponse  ForwardStage = "read response"
	StageWriteResponse ForwardStage = "write response"
)

// ForwardError is returned by Forwarder, it carries the stage that failed.
type ForwardError struct {
	Stage ForwardStage
	Addr  string
	Err   error
}

func (e *ForwardError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Addr, e.Err)
}

func (e *ForwardError) Unwrap() error {
	return e.Err
}

// Forwarder relays requests to origin servers.
type Forwarder struct {
	dialer        *Dialer
	maxObjectSize int64
}

func NewForwarder(d *Dialer, maxObjectSize int64) *Forwarder {
	return &Forwarder{
		dialer:        d,
		maxObjectSize: maxObjectSize,
	}
}

// Forward sends req to the origin server, and streams the response to w as it arrives.
// If req has a body, ContentLength bytes are copied from body to the origin.
// It returns the complete response if the origin closed the connection cleanly
// and the response is not empty and not larger than the max object size, otherwise it returns nil.
func (f *Forwarder) Forward(ctx context.Context, w io.Writer, body io.Reader, req *Request) ([]byte, error) {
	addr := req.Addr()

	oc, err := f.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ForwardError{Stage: StageDial, Addr: addr, Err: err}
	}
	defer oc.Close()

	stop := context.AfterFunc(ctx, func() {
		oc.SetDeadline(time.Unix(1, 0)) //nolint:errcheck // best effort
	})
	defer stop()

	if err := writeOriginRequest(oc, req); err != nil {
		return nil, &ForwardError{Stage: StageSendRequest, Addr: addr, Err: err}
	}
	if req.ContentLength > 0 {
		if _, err := io.CopyN(oc, body, req.ContentLength); err != nil {
			return nil, &ForwardError{Stage: StageSendRequest, Addr: addr, Err: fmt.Errorf("request body: %w", err)}
		}
	}

	data, err := relay(w, oc, f.maxObjectSize)
	if err != nil {
		var fe *ForwardError
		if errors.As(err, &fe) {
			fe.Addr = addr
		}
		return nil, err
	}
	return data, nil
}

// droppedHeaders are replaced by the headers the proxy sends to the origin.
var droppedHeaders = []string{ //nolint:gochecknoglobals // lookup table
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"User-Agent",
}

func isDroppedHeader(line string) bool {
	name, _, ok := strings.Cut(line, ":")
	if !ok {
		return false
	}
	name = strings.TrimSpace(name)
	for _, h := range droppedHeaders {
		if strings.EqualFold(name, h) {
			return true
		}
	}
	return false
}

// writeOriginRequest writes the HTTP/1.0 request head sent to the origin.
func writeOriginRequest(w io.Writer, req *Request) error {
	var b bytes.Buffer
	b.WriteString(req.Method + " " + req.Path + " HTTP/1.0\r\n")
	b.WriteString("Host: " + req.HostHeader() + "\r\n")
	b.WriteString("User-Agent: " + originUserAgent + "\r\n")
	b.WriteString("Connection: close\r\n")
	b.WriteString("Proxy-Connection: close\r\n")
	for _, line := range strings.SplitAfter(req.OtherHeaders, "\n") {
		if line == "" || isDroppedHeader(line) {
			continue
		}
		b.WriteString(line)
	}
	b.WriteString("\r\n")

	_, err := w.Write(b.Bytes())
	return err
}

// relay copies src to dst in chunks, each chunk is written as soon as it is read.
// The bytes are also accumulated as long as their total does not exceed limit.
// It returns the accumulated bytes if src reached EOF and the total is within limit.
func relay(dst io.Writer, src io.Reader, limit int64) ([]byte, error) {
	var (
		buf      = make([]byte, relayChunkSize)
		acc      []byte
		total    int64
		overflow bool
	)
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			total += int64(n)
			if !overflow {
				if total <= limit {
					acc = append(acc, buf[:n]...)
				} else {
					overflow = true
					acc = nil
				}
			}
			if _, err := dst.Write(buf[:n]); err != nil {
				return nil, &ForwardError{Stage: StageWriteResponse, Err: err}
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				break
			}
			return nil, &ForwardError{Stage: StageReadResponse, Err: rerr}
		}
	}

	if overflow || total == 0 {
		return nil, nil
	}
	return acc, nil
}

// isClientError reports whether err happened while writing to the client.
func isClientError(err error) bool {
	var fe *ForwardError
	return errors.As(err, &fe) && fe.Stage == StageWriteResponse
}

// isTimeout reports whether err is a network timeout.
func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
