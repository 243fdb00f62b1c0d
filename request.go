// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cacheproxy

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const DefaultPort = "80"

var (
	ErrMalformedRequestLine = errors.New("malformed request line")
	ErrMissingHost          = errors.New("missing host")
	ErrHeaderTooLarge       = errors.New("request header too large")
	ErrInvalidContentLength = errors.New("invalid content length")
)

// Request is the head of a client request.
type Request struct {
	Method  string
	URI     string
	Version string

	// Path is the path part of URI, it always starts with "/".
	Path string
	Host string
	Port string

	// OtherHeaders holds the raw header lines except Host, each with its own line ending.
	OtherHeaders string

	// ContentLength is the value of the Content-Length header or 0 if not set.
	ContentLength int64
}

// Addr returns the origin address in host:port form suitable for dialing.
func (r *Request) Addr() string {
	return joinHostPort(r.Host, r.Port)
}

// HostHeader returns the value of the Host header sent to the origin.
// The port is included only if it is not the default one.
func (r *Request) HostHeader() string {
	if r.Port == DefaultPort {
		if strings.Contains(r.Host, ":") {
			return "[" + r.Host + "]"
		}
		return r.Host
	}
	return joinHostPort(r.Host, r.Port)
}

func joinHostPort(host, port string) string {
	if strings.Contains(host, ":") {
		return "[" + host + "]:" + port
	}
	return host + ":" + port
}

// ParseRequestLine splits a request line into method, URI and version.
// The line must consist of exactly three whitespace separated tokens.
func ParseRequestLine(line string) (method, uri, version string, err error) {
	f := strings.Fields(line)
	if len(f) != 3 {
		return "", "", "", fmt.Errorf("%w: %q", ErrMalformedRequestLine, line)
	}
	return f[0], f[1], f[2], nil
}

// SplitURI splits a request target into authority and path.
// The authority starts after "//" if present, otherwise at the beginning of the target.
// The path starts at the first "/" after that and defaults to "/".
// A "//" that appears after the first "/" belongs to the path.
func SplitURI(uri string) (authority, path string) {
	rest := uri
	if i := strings.Index(uri, "//"); i >= 0 && i == strings.IndexByte(uri, '/') {
		rest = uri[i+2:]
	}

	i := strings.IndexByte(rest, '/')
	if i < 0 {
		return rest, "/"
	}
	return rest[:i], rest[i:]
}

// SplitHostPort splits authority into host and port, port defaults to 80.
// Userinfo is dropped, IPv6 literals must be enclosed in brackets.
func SplitHostPort(hostport string) (host, port string) {
	if i := strings.LastIndexByte(hostport, '@'); i >= 0 {
		hostport = hostport[i+1:]
	}

	if strings.HasPrefix(hostport, "[") {
		if end := strings.IndexByte(hostport, ']'); end > 0 {
			host = hostport[1:end]
			port = strings.TrimPrefix(hostport[end+1:], ":")
		} else {
			host = hostport
		}
	} else {
		host, port, _ = strings.Cut(hostport, ":")
	}

	if port == "" {
		port = DefaultPort
	}
	return host, port
}

// maxLeadingEmptyLines bounds the empty lines skipped before the request line.
const maxLeadingEmptyLines = 16

// ReadRequest reads the request line and the header block from br.
// If maxHeaderBytes is positive, it limits the combined size of the request line and headers.
// It returns io.EOF if the client closed the connection before sending anything.
func ReadRequest(br *bufio.Reader, maxHeaderBytes int) (*Request, error) {
	hr := headerReader{br: br, limit: maxHeaderBytes}

	var line string
	for skipped := 0; ; skipped++ {
		if skipped > maxLeadingEmptyLines {
			return nil, fmt.Errorf("%w: too many empty lines", ErrMalformedRequestLine)
		}
		l, err := hr.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) && hr.n == 0 {
				return nil, io.EOF
			}
			return nil, err
		}
		// Skip empty lines preceding the request line.
		if l != "" {
			line = l
			break
		}
	}

	var (
		req Request
		err error
	)
	req.Method, req.URI, req.Version, err = ParseRequestLine(line)
	if err != nil {
		return nil, err
	}

	var (
		hostHeader string
		headers    strings.Builder
	)
	for {
		raw, err := hr.readRawLine()
		if err != nil {
			return nil, err
		}
		l := trimEOL(raw)
		if l == "" {
			break
		}

		name, value, _ := strings.Cut(l, ":")
		switch {
		case strings.EqualFold(name, "Host"):
			hostHeader = strings.TrimSpace(value)
			continue
		case strings.EqualFold(name, "Content-Length"):
			n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: %q", ErrInvalidContentLength, strings.TrimSpace(value))
			}
			req.ContentLength = n
		}
		headers.WriteString(raw)
	}
	req.OtherHeaders = headers.String()

	authority, path := SplitURI(req.URI)
	req.Path = path
	if authority == "" {
		authority = hostHeader
	}
	req.Host, req.Port = SplitHostPort(authority)
	if req.Host == "" {
		return nil, ErrMissingHost
	}

	return &req, nil
}

type headerReader struct {
	br    *bufio.Reader
	limit int
	n     int
}

func (hr *headerReader) readLine() (string, error) {
	raw, err := hr.readRawLine()
	return trimEOL(raw), err
}

// readRawLine returns the next line including its line ending.
func (hr *headerReader) readRawLine() (string, error) {
	b, err := hr.br.ReadSlice('\n')
	hr.n += len(b)
	if hr.limit > 0 && hr.n > hr.limit {
		return "", ErrHeaderTooLarge
	}
	if err != nil {
		if errors.Is(err, bufio.ErrBufferFull) {
			return "", ErrHeaderTooLarge
		}
		if errors.Is(err, io.EOF) && hr.n > 0 {
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}
	return string(b), nil
}

func trimEOL(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}
