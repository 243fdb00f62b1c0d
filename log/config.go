// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package log

import (
	"fmt"
	"os"
	"strings"
)

// Config is a configuration for the loggers.
type Config struct {
	File  *os.File
	Level Level
}

func DefaultConfig() *Config {
	return &Config{
		File:  nil,
		Level: InfoLevel,
	}
}

type Level int

// Levels start from 1 to avoid zero value in help printer.
const (
	ErrorLevel Level = 1 + iota
	InfoLevel
	DebugLevel
)

var levelNames = [...]string{"error", "info", "debug"} //nolint:gochecknoglobals // lookup table

func (l Level) String() string {
	if l < ErrorLevel || l > DebugLevel {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l-1]
}

// ParseLevel parses a level name, it is case-insensitive.
func ParseLevel(val string) (Level, error) {
	for i, name := range levelNames {
		if strings.EqualFold(val, name) {
			return Level(i + 1), nil
		}
	}
	return 0, fmt.Errorf("invalid log level %q, expected one of %s", val, strings.Join(levelNames[:], ", "))
}
