// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cacheproxy

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseRequestLine(t *testing.T) {
	tests := []struct {
		line    string
		method  string
		uri     string
		version string
		err     bool
	}{
		{line: "GET http://example.com/ HTTP/1.1", method: "GET", uri: "http://example.com/", version: "HTTP/1.1"},
		{line: "POST  /form\tHTTP/1.0", method: "POST", uri: "/form", version: "HTTP/1.0"},
		{line: "BREW /pot HTCPCP/1.0", method: "BREW", uri: "/pot", version: "HTCPCP/1.0"},
		{line: "GET /", err: true},
		{line: "GET / HTTP/1.1 extra", err: true},
		{line: "", err: true},
	}

	for i := range tests {
		tc := &tests[i]
		t.Run(tc.line, func(t *testing.T) {
			method, uri, version, err := ParseRequestLine(tc.line)
			if tc.err {
				if !errors.Is(err, ErrMalformedRequestLine) {
					t.Fatalf("expected ErrMalformedRequestLine, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if method != tc.method || uri != tc.uri || version != tc.version {
				t.Fatalf("got %q %q %q", method, uri, version)
			}
		})
	}
}

func TestSplitURI(t *testing.T) {
	tests := []struct {
		uri       string
		authority string
		path      string
	}{
		{"http://example.com/foo.html", "example.com", "/foo.html"},
		{"http://example.com:8080/a/b?q=1", "example.com:8080", "/a/b?q=1"},
		{"http://example.com", "example.com", "/"},
		{"example.com/foo", "example.com", "/foo"},
		{"/foo.html", "", "/foo.html"},
		{"/a//b", "", "/a//b"},
		{"//example.com/x", "example.com", "/x"},
		{"http://[::1]:8080/", "[::1]:8080", "/"},
	}

	for _, tc := range tests {
		authority, path := SplitURI(tc.uri)
		if authority != tc.authority || path != tc.path {
			t.Errorf("SplitURI(%q): got (%q, %q), want (%q, %q)", tc.uri, authority, path, tc.authority, tc.path)
		}
	}
}

func TestSplitHostPort(t *testing.T) {
	tests := []struct {
		hostport string
		host     string
		port     string
	}{
		{"example.com", "example.com", "80"},
		{"example.com:8080", "example.com", "8080"},
		{"example.com:", "example.com", "80"},
		{"user:pass@example.com:81", "example.com", "81"},
		{"[::1]:8080", "::1", "8080"},
		{"[::1]", "::1", "80"},
		{"", "", "80"},
	}

	for _, tc := range tests {
		host, port := SplitHostPort(tc.hostport)
		if host != tc.host || port != tc.port {
			t.Errorf("SplitHostPort(%q): got (%q, %q), want (%q, %q)", tc.hostport, host, port, tc.host, tc.port)
		}
	}
}

func TestReadRequest(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *Request
	}{
		{
			name:  "absolute form",
			input: "GET http://example.com/index.html HTTP/1.1\r\nAccept: */*\r\nHost: ignored.com\r\n\r\n",
			want: &Request{
				Method:       "GET",
				URI:          "http://example.com/index.html",
				Version:      "HTTP/1.1",
				Path:         "/index.html",
				Host:         "example.com",
				Port:         "80",
				OtherHeaders: "Accept: */*\r\n",
			},
		},
		{
			name:  "origin form with host header",
			input: "GET /a?b=c HTTP/1.0\r\nhost: example.com:8080\r\nX-Foo: bar\r\nX-Baz: qux\n\r\n",
			want: &Request{
				Method:       "GET",
				URI:          "/a?b=c",
				Version:      "HTTP/1.0",
				Path:         "/a?b=c",
				Host:         "example.com",
				Port:         "8080",
				OtherHeaders: "X-Foo: bar\r\nX-Baz: qux\n",
			},
		},
		{
			name:  "content length",
			input: "POST http://example.com/form HTTP/1.0\r\nContent-Length: 5\r\n\r\nhello",
			want: &Request{
				Method:        "POST",
				URI:           "http://example.com/form",
				Version:       "HTTP/1.0",
				Path:          "/form",
				Host:          "example.com",
				Port:          "80",
				OtherHeaders:  "Content-Length: 5\r\n",
				ContentLength: 5,
			},
		},
		{
			name:  "leading empty line",
			input: "\r\nGET http://example.com HTTP/1.0\r\n\r\n",
			want: &Request{
				Method:  "GET",
				URI:     "http://example.com",
				Version: "HTTP/1.0",
				Path:    "/",
				Host:    "example.com",
				Port:    "80",
			},
		},
		{
			name:  "max leading empty lines",
			input: strings.Repeat("\r\n", maxLeadingEmptyLines) + "GET http://example.com/ HTTP/1.0\r\n\r\n",
			want: &Request{
				Method:  "GET",
				URI:     "http://example.com/",
				Version: "HTTP/1.0",
				Path:    "/",
				Host:    "example.com",
				Port:    "80",
			},
		},
	}

	for i := range tests {
		tc := &tests[i]
		t.Run(tc.name, func(t *testing.T) {
			br := bufio.NewReader(strings.NewReader(tc.input))
			got, err := ReadRequest(br, 0)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("unexpected request (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReadRequestBodyIsNotConsumed(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("POST http://example.com/ HTTP/1.0\r\nContent-Length: 5\r\n\r\nhello"))
	if _, err := ReadRequest(br, 0); err != nil {
		t.Fatal(err)
	}
	body, err := io.ReadAll(br)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "hello" {
		t.Fatalf("body: got %q", body)
	}
}

func TestReadRequestErrors(t *testing.T) {
	tests := []struct {
		name           string
		input          string
		maxHeaderBytes int
		bufSize        int
		want           error
	}{
		{name: "empty", input: "", want: io.EOF},
		{name: "malformed request line", input: "GET /\r\n\r\n", want: ErrMalformedRequestLine},
		{name: "missing host", input: "GET /foo HTTP/1.0\r\nAccept: */*\r\n\r\n", want: ErrMissingHost},
		{name: "invalid content length", input: "POST http://a/ HTTP/1.0\r\nContent-Length: x\r\n\r\n", want: ErrInvalidContentLength},
		{name: "negative content length", input: "POST http://a/ HTTP/1.0\r\nContent-Length: -1\r\n\r\n", want: ErrInvalidContentLength},
		{name: "truncated headers", input: "GET http://a/ HTTP/1.0\r\nAccept: */*\r\n", want: io.ErrUnexpectedEOF},
		{name: "truncated request line", input: "GET http://a/", want: io.ErrUnexpectedEOF},
		{
			name:  "too many empty lines",
			input: strings.Repeat("\r\n", maxLeadingEmptyLines+1) + "GET http://a/ HTTP/1.0\r\n\r\n",
			want:  ErrMalformedRequestLine,
		},
		{
			name:           "header block too large",
			input:          "GET http://a/ HTTP/1.0\r\nX-Long: " + strings.Repeat("x", 100) + "\r\n\r\n",
			maxHeaderBytes: 64,
			want:           ErrHeaderTooLarge,
		},
		{
			name:    "line longer than buffer",
			input:   "GET http://a/" + strings.Repeat("x", 100) + " HTTP/1.0\r\n\r\n",
			bufSize: 16,
			want:    ErrHeaderTooLarge,
		},
	}

	for i := range tests {
		tc := &tests[i]
		t.Run(tc.name, func(t *testing.T) {
			size := tc.bufSize
			if size == 0 {
				size = 4096
			}
			br := bufio.NewReaderSize(strings.NewReader(tc.input), size)
			_, err := ReadRequest(br, tc.maxHeaderBytes)
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestRequestHostHeader(t *testing.T) {
	tests := []struct {
		host, port string
		header     string
		addr       string
	}{
		{"example.com", "80", "example.com", "example.com:80"},
		{"example.com", "8080", "example.com:8080", "example.com:8080"},
		{"::1", "80", "[::1]", "[::1]:80"},
		{"::1", "8080", "[::1]:8080", "[::1]:8080"},
	}

	for _, tc := range tests {
		r := &Request{Host: tc.host, Port: tc.port}
		if got := r.HostHeader(); got != tc.header {
			t.Errorf("HostHeader(): got %q, want %q", got, tc.header)
		}
		if got := r.Addr(); got != tc.addr {
			t.Errorf("Addr(): got %q, want %q", got, tc.addr)
		}
	}
}
