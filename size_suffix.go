// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cacheproxy

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SizeSuffix is a size in bytes that can be written with a binary unit suffix.
// The supported suffixes are B, K, M and G, optionally followed by "iB" or "B", e.g. 512K, 1.5MiB.
type SizeSuffix int64

const (
	Byte SizeSuffix = 1 << (10 * iota)
	KiB
	MiB
	GiB
)

var sizeUnits = []struct { //nolint:gochecknoglobals // lookup table
	suffix string
	size   SizeSuffix
}{
	{"G", GiB},
	{"M", MiB},
	{"K", KiB},
	{"B", Byte},
}

// ParseSizeSuffix parses a size, a number without a suffix is a number of bytes.
func ParseSizeSuffix(val string) (SizeSuffix, error) {
	s := strings.TrimSpace(val)
	if s == "" {
		return 0, errors.New("empty size")
	}

	upper := strings.ToUpper(s)
	upper = strings.TrimSuffix(upper, "IB")
	if len(upper) > 1 && strings.HasSuffix(upper, "B") && !isDigit(upper[len(upper)-2]) {
		upper = strings.TrimSuffix(upper, "B")
	}

	mult := Byte
	for _, u := range sizeUnits {
		if strings.HasSuffix(upper, u.suffix) {
			mult = u.size
			upper = strings.TrimSuffix(upper, u.suffix)
			break
		}
	}

	f, err := strconv.ParseFloat(upper, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", val)
	}
	if f < 0 {
		return 0, fmt.Errorf("size %q must not be negative", val)
	}
	v := f * float64(mult)
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("size %q is too large", val)
	}

	return SizeSuffix(v), nil
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// String returns the shortest exact representation of the size.
func (x SizeSuffix) String() string {
	for _, u := range sizeUnits[:3] {
		if x != 0 && x%u.size == 0 {
			return strconv.FormatInt(int64(x/u.size), 10) + u.suffix
		}
	}
	return strconv.FormatInt(int64(x), 10)
}

func (x *SizeSuffix) Set(val string) error {
	v, err := ParseSizeSuffix(val)
	if err != nil {
		return err
	}
	*x = v
	return nil
}

func (x *SizeSuffix) Type() string {
	return "size"
}
