// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cacheproxy

import "testing"

func TestParseSizeSuffix(t *testing.T) {
	tests := []struct {
		input string
		want  SizeSuffix
		err   bool
	}{
		{input: "0", want: 0},
		{input: "1049000", want: 1049000},
		{input: "100K", want: 102400},
		{input: "100k", want: 102400},
		{input: "100KiB", want: 102400},
		{input: "100KB", want: 102400},
		{input: "1M", want: MiB},
		{input: "1.5M", want: MiB + MiB/2},
		{input: "2G", want: 2 * GiB},
		{input: "512B", want: 512},
		{input: "512b", want: 512},
		{input: "", err: true},
		{input: "M", err: true},
		{input: "-1K", err: true},
		{input: "1X", err: true},
	}

	for i := range tests {
		tc := &tests[i]
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseSizeSuffix(tc.input)
			if tc.err {
				if err == nil {
					t.Fatalf("expected error, got %d", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Fatalf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestSizeSuffixString(t *testing.T) {
	tests := []struct {
		size SizeSuffix
		want string
	}{
		{0, "0"},
		{1049000, "1049000"},
		{102400, "100K"},
		{3 * MiB, "3M"},
		{GiB, "1G"},
		{1536, "1536"},
	}

	for _, tc := range tests {
		if got := tc.size.String(); got != tc.want {
			t.Errorf("String(%d): got %q, want %q", int64(tc.size), got, tc.want)
		}
		v, err := ParseSizeSuffix(tc.want)
		if err != nil || v != tc.size {
			t.Errorf("ParseSizeSuffix(%q): got %d, %v", tc.want, v, err)
		}
	}
}
