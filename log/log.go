// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package log

import (
	"os"
)

// Logger is the logger used by the proxy, the cache and the API server.
type Logger interface {
	Errorf(format string, args ...any)
	Infof(format string, args ...any)
	Debugf(format string, args ...any)
}

// NopLogger is a logger that does nothing.
var NopLogger = nopLogger{} //nolint:gochecknoglobals // nop implementation

var _ Logger = nopLogger{}

type nopLogger struct{}

func (l nopLogger) Errorf(_ string, _ ...any) {}
func (l nopLogger) Infof(_ string, _ ...any)  {}
func (l nopLogger) Debugf(_ string, _ ...any) {}

var (
	DefaultFileFlags = os.O_CREATE | os.O_APPEND | os.O_WRONLY

	DefaultFileMode os.FileMode = 0o600
	DefaultDirMode  os.FileMode = 0o700
)
