// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cacheproxy

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
)

// ParseListenPort parses the listen port argument and returns the listen address.
// The value may be a port number or a host:port pair.
func ParseListenPort(val string) (string, error) {
	if isPort(val) {
		return ":" + val, nil
	}

	host, port, err := net.SplitHostPort(val)
	if err != nil {
		return "", fmt.Errorf("invalid port %q", val)
	}
	if !isPort(port) {
		return "", fmt.Errorf("invalid port %q", port)
	}
	return net.JoinHostPort(host, port), nil
}

// isPort returns true iff port string is a valid port number.
func isPort(port string) bool {
	p, err := strconv.Atoi(port)
	if err != nil {
		return false
	}

	return p >= 1 && p <= 65535
}

// OpenFileParser returns a parser that calls os.OpenFile.
// If dirPerm is set it will create the directory if it does not exist.
// For empty path the parser returns nil file and nil error.
func OpenFileParser(flag int, perm, dirPerm os.FileMode) func(val string) (*os.File, error) {
	return func(val string) (*os.File, error) {
		if val == "" {
			return nil, nil
		}

		if dirPerm != 0 {
			if err := os.MkdirAll(filepath.Dir(val), dirPerm); err != nil {
				return nil, err
			}
		}
		return os.OpenFile(val, flag, perm)
	}
}
