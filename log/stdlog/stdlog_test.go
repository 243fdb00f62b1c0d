// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package stdlog

import (
	"bytes"
	"strings"
	"testing"

	plog "github.com/saucelabs/cacheproxy/log"
	"github.com/stretchr/testify/assert"
)

func TestLoggerNamedAllowsToPassCustomLevel(t *testing.T) {
	l := New(plog.DefaultConfig())
	f := l.Named("foo", WithLevel(plog.DebugLevel))
	assert.Equal(t, plog.DebugLevel, f.level)
	assert.Equal(t, plog.InfoLevel, l.level)
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&plog.Config{Level: plog.InfoLevel}, WithWriter(&buf)).Named("proxy")

	l.Debugf("debug %d", 1)
	l.Infof("info %d", 2)
	l.Errorf("error %d", 3)

	out := buf.String()
	assert.NotContains(t, out, "debug 1")
	assert.Contains(t, out, "[proxy] [INFO] info 2")
	assert.Contains(t, out, "[proxy] [ERROR] error 3")
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestLoggerUnwrapSharesOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(&plog.Config{Level: plog.ErrorLevel}, WithWriter(&buf)).Named("api")

	l.Unwrap().Print("http: TLS handshake error")
	assert.Contains(t, buf.String(), "http: TLS handshake error")
	assert.NotContains(t, buf.String(), "[api]")
}

func TestLoggerOnError(t *testing.T) {
	var names []string
	l := New(&plog.Config{Level: plog.ErrorLevel},
		WithWriter(&bytes.Buffer{}),
		WithOnError(func(name string) { names = append(names, name) }),
	)

	l.Named("api").Errorf("boom")
	l.Named("proxy").Infof("ignored")
	l.Named("proxy").Errorf("boom")

	assert.Equal(t, []string{"api", "proxy"}, names)
}

func TestLoggerCloseWithoutFile(t *testing.T) {
	assert.NoError(t, Default().Close())
}
