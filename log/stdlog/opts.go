// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package stdlog

import (
	"io"
	"log"

	plog "github.com/saucelabs/cacheproxy/log"
)

// WithLevel allows to set the logging level.
func WithLevel(level plog.Level) Option {
	return func(l *Logger) {
		l.level = level
	}
}

// WithOnError allows to set a function that is called when an error is logged.
func WithOnError(f func(name string)) Option {
	return func(l *Logger) {
		l.onError = f
	}
}

// WithWriter redirects the output to w, it takes precedence over the configured file.
func WithWriter(w io.Writer) Option {
	return func(l *Logger) {
		l.log = log.New(w, "", defaultFlags)
	}
}
