// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package stdlog implements the proxy logger on top of the standard log package.
package stdlog

import (
	"io"
	"log"
	"os"

	plog "github.com/saucelabs/cacheproxy/log"
)

const defaultFlags = log.Ldate | log.Ltime | log.Lmicroseconds | log.LUTC

func Default() *Logger {
	return New(plog.DefaultConfig())
}

// Option is a function that modifies the Logger.
type Option func(*Logger)

func New(cfg *plog.Config, opts ...Option) *Logger {
	var w io.Writer = os.Stdout
	if cfg.File != nil {
		w = cfg.File
	}

	l := &Logger{
		log:   log.New(w, "", defaultFlags),
		file:  cfg.File,
		level: cfg.Level,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.setPrefixes()

	return l
}

// Logger implements the cacheproxy.Logger interface using the standard log package.
type Logger struct {
	log   *log.Logger
	file  *os.File
	name  string
	level plog.Level

	onError func(name string)

	errorPfx string
	infoPfx  string
	debugPfx string
}

// Named returns a copy of the logger with the given name, the options are applied to the copy.
func (sl Logger) Named(name string, opts ...Option) *Logger { //nolint:gocritic // we pass by value to get a copy
	sl.name = name
	for _, opt := range opts {
		opt(&sl)
	}
	sl.setPrefixes()

	return &sl
}

func (sl *Logger) setPrefixes() {
	var p string
	if sl.name != "" {
		p = "[" + sl.name + "] "
	}

	sl.errorPfx = p + "[ERROR] "
	sl.infoPfx = p + "[INFO] "
	sl.debugPfx = p + "[DEBUG] "
}

func (sl *Logger) Errorf(format string, args ...any) {
	if sl.onError != nil {
		sl.onError(sl.name)
	}
	sl.printf(plog.ErrorLevel, sl.errorPfx, format, args...)
}

func (sl *Logger) Infof(format string, args ...any) {
	sl.printf(plog.InfoLevel, sl.infoPfx, format, args...)
}

func (sl *Logger) Debugf(format string, args ...any) {
	sl.printf(plog.DebugLevel, sl.debugPfx, format, args...)
}

func (sl *Logger) printf(level plog.Level, pfx, format string, args ...any) {
	if sl.level < level {
		return
	}
	sl.log.Printf(pfx+format, args...)
}

// Unwrap returns the underlying log.Logger, it is used as the API server error log.
func (sl *Logger) Unwrap() *log.Logger {
	return sl.log
}

// Close closes the log file if the logger writes to one.
func (sl *Logger) Close() error {
	if sl.file == nil {
		return nil
	}
	return sl.file.Close()
}
