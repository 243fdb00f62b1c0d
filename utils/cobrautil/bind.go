// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package cobrautil binds and describes cobra command flags.
package cobrautil

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

var envReplacer = strings.NewReplacer(".", "_", "-", "_") //nolint:gochecknoglobals // false positive

// BindAll updates the command flags with values from the environment variables and config file.
// The supported formats are: JSON, YAML, TOML, HCL, and Java properties.
// The file format is determined by the file extension, if not specified the default format is YAML.
// The following precedence order of configuration sources is used: command flags, environment variables, config file, default values.
func BindAll(cmd *cobra.Command, envPrefix, configFileFlagName string) error {
	v := viper.New()

	if err := v.BindPFlags(cmd.PersistentFlags()); err != nil {
		return err
	}
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	v.SetEnvKeyReplacer(envReplacer)
	v.SetEnvPrefix(envReplacer.Replace(strings.ToUpper(envPrefix)))
	v.AutomaticEnv()

	if configFileFlagName != "" {
		if err := readConfigFile(v, v.GetString(configFileFlagName)); err != nil {
			return err
		}
	}

	return multierr.Combine(
		updateFlags(v, cmd.PersistentFlags()),
		updateFlags(v, cmd.Flags()),
	)
}

func readConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}

	if filepath.Ext(path) == "" {
		v.SetConfigType("yaml")
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	return nil
}

// updateFlags sets flags that were not set on the command line to the values known by v.
func updateFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Changed || !v.IsSet(f.Name) {
			return
		}
		if serr := fs.Set(f.Name, flagValue(v.Get(f.Name))); serr != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", f.Name, serr))
		}
	})
	return err
}

// flagValue formats a config value, lists are joined with commas.
func flagValue(val any) string {
	if l, ok := val.([]any); ok {
		s := make([]string, len(l))
		for i := range l {
			s[i] = fmt.Sprint(l[i])
		}
		return strings.Join(s, ",")
	}
	return fmt.Sprint(val)
}
