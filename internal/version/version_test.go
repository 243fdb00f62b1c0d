// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	Version, Commit = "1.2.3", "abcdef"
	defer func() { Version, Commit = "devel", "unknown" }()

	s := String()
	for _, want := range []string{"1.2.3", "abcdef", runtime.Version()} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}
