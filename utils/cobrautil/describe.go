// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cobrautil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/exp/maps"
	"gopkg.in/yaml.v3"
)

type DescribeFormat int

const (
	Plain DescribeFormat = iota
	JSON
	YAML
)

type FlagsDescriber struct {
	Format          DescribeFormat
	ShowChangedOnly bool
	ShowHidden      bool
}

// DescribeFlags renders the flag values in the configured format, keys are sorted.
func (d FlagsDescriber) DescribeFlags(fs *pflag.FlagSet) ([]byte, error) {
	args := make(map[string]any, fs.NFlag())

	fs.VisitAll(func(f *pflag.Flag) {
		if f.Name == "help" {
			return
		}
		if f.Hidden && !d.ShowHidden {
			return
		}
		if !f.Changed && d.ShowChangedOnly {
			return
		}

		switch v := f.Value.(type) {
		case pflag.SliceValue:
			if d.Format == Plain {
				args[f.Name] = strings.Join(v.GetSlice(), ",")
			} else {
				args[f.Name] = v.GetSlice()
			}
		default:
			if f.Value.Type() == "bool" {
				args[f.Name] = f.Value.String() == "true"
			} else {
				args[f.Name] = f.Value.String()
			}
		}
	})

	switch d.Format {
	case Plain:
		keys := maps.Keys(args)
		sort.Strings(keys)
		var b bytes.Buffer
		for _, name := range keys {
			fmt.Fprintf(&b, "%s=%v\n", name, args[name])
		}
		return b.Bytes(), nil
	case JSON:
		return json.Marshal(args)
	case YAML:
		if len(args) == 0 {
			return nil, nil
		}
		var b bytes.Buffer
		enc := yaml.NewEncoder(&b)
		enc.SetIndent(2)
		if err := enc.Encode(args); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return b.Bytes(), nil
	default:
		return nil, errors.New("unknown format")
	}
}
