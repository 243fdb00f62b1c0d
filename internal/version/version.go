// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package version holds the build information set with -ldflags -X.
package version

import (
	"fmt"
	"runtime"
	"strings"
)

var (
	Version = "devel"
	Time    = "unknown"
	Commit  = "unknown"
)

// String returns the build information in a tabular form.
func String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Version:\t%s\n", Version)
	fmt.Fprintf(&b, "Built time:\t%s\n", Time)
	fmt.Fprintf(&b, "Git commit:\t%s\n", Commit)
	fmt.Fprintf(&b, "Go Arch:\t%s\n", runtime.GOARCH)
	fmt.Fprintf(&b, "Go OS:\t\t%s\n", runtime.GOOS)
	fmt.Fprintf(&b, "Go Version:\t%s\n", runtime.Version())
	return b.String()
}
