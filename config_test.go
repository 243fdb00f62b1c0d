// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cacheproxy

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseListenPort(t *testing.T) {
	tests := []struct {
		input string
		addr  string
		err   bool
	}{
		{input: "8080", addr: ":8080"},
		{input: "1", addr: ":1"},
		{input: "65535", addr: ":65535"},
		{input: "localhost:3128", addr: "localhost:3128"},
		{input: "[::1]:3128", addr: "[::1]:3128"},
		{input: "0", err: true},
		{input: "65536", err: true},
		{input: "http", err: true},
		{input: "", err: true},
		{input: "localhost:0", err: true},
	}

	for i := range tests {
		tc := &tests[i]
		t.Run(tc.input, func(t *testing.T) {
			addr, err := ParseListenPort(tc.input)
			if tc.err {
				if err == nil {
					t.Fatalf("expected error, got %q", addr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if addr != tc.addr {
				t.Fatalf("got %q, want %q", addr, tc.addr)
			}
		})
	}
}

func TestOpenFileParser(t *testing.T) {
	p := OpenFileParser(os.O_CREATE|os.O_WRONLY, 0o600, 0o700)

	f, err := p("")
	if f != nil || err != nil {
		t.Fatalf("empty path: got %v, %v", f, err)
	}

	path := filepath.Join(t.TempDir(), "logs", "proxy.log")
	f, err = p(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}
}
