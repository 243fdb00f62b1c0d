// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cobrautil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
)

type bindTestConfig struct {
	Size    string
	Timeout time.Duration
	Hosts   []string
	Debug   bool
}

func newBindTestCommand(cfg *bindTestConfig, configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use: "test",
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return BindAll(cmd, "TEST", "config-file")
		},
		RunE: func(*cobra.Command, []string) error { return nil },
	}
	fs := cmd.Flags()
	fs.StringVar(configFile, "config-file", "", "")
	fs.StringVar(&cfg.Size, "size", "1MiB", "")
	fs.DurationVar(&cfg.Timeout, "timeout", time.Second, "")
	fs.StringSliceVar(&cfg.Hosts, "hosts", nil, "")
	fs.BoolVar(&cfg.Debug, "debug", false, "")
	return cmd
}

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestBindAll(t *testing.T) {
	yamlFile := writeConfigFile(t, "config.yaml", "size: 2MiB\ntimeout: 5s\nhosts:\n  - a\n  - b\n")

	tests := []struct {
		name string
		args []string
		env  map[string]string
		want bindTestConfig
	}{
		{
			name: "defaults",
			want: bindTestConfig{Size: "1MiB", Timeout: time.Second},
		},
		{
			name: "config file",
			args: []string{"--config-file", yamlFile},
			want: bindTestConfig{Size: "2MiB", Timeout: 5 * time.Second, Hosts: []string{"a", "b"}},
		},
		{
			name: "env overrides config file",
			args: []string{"--config-file", yamlFile},
			env:  map[string]string{"TEST_SIZE": "3MiB", "TEST_DEBUG": "true"},
			want: bindTestConfig{Size: "3MiB", Timeout: 5 * time.Second, Hosts: []string{"a", "b"}, Debug: true},
		},
		{
			name: "config file from env",
			env:  map[string]string{"TEST_CONFIG_FILE": yamlFile},
			want: bindTestConfig{Size: "2MiB", Timeout: 5 * time.Second, Hosts: []string{"a", "b"}},
		},
		{
			name: "flag overrides env",
			args: []string{"--size", "4MiB"},
			env:  map[string]string{"TEST_SIZE": "3MiB"},
			want: bindTestConfig{Size: "4MiB", Timeout: time.Second},
		},
	}

	for i := range tests {
		tc := &tests[i]
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			var (
				cfg        bindTestConfig
				configFile string
			)
			cmd := newBindTestCommand(&cfg, &configFile)
			cmd.SetArgs(append([]string{}, tc.args...))
			if err := cmd.Execute(); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.want, cfg); diff != "" {
				t.Errorf("unexpected config (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBindAllConfigFileWithoutExtension(t *testing.T) {
	p := writeConfigFile(t, "proxyrc", "size: 8MiB\n")

	var (
		cfg        bindTestConfig
		configFile string
	)
	cmd := newBindTestCommand(&cfg, &configFile)
	cmd.SetArgs([]string{"--config-file", p})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if cfg.Size != "8MiB" {
		t.Fatalf("Size: got %q, want 8MiB", cfg.Size)
	}
}

func TestBindAllMissingConfigFile(t *testing.T) {
	var (
		cfg        bindTestConfig
		configFile string
	)
	cmd := newBindTestCommand(&cfg, &configFile)
	cmd.SetArgs([]string{"--config-file", filepath.Join(t.TempDir(), "missing.yaml")})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error")
	}
}

func TestBindAllInvalidValue(t *testing.T) {
	t.Setenv("TEST_TIMEOUT", "forever")

	var (
		cfg        bindTestConfig
		configFile string
	)
	cmd := newBindTestCommand(&cfg, &configFile)
	cmd.SetArgs([]string{})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error")
	}
}

func TestEnvName(t *testing.T) {
	if got := EnvName("proxy", "cache-max-object-size"); got != "PROXY_CACHE_MAX_OBJECT_SIZE" {
		t.Fatalf("got %q", got)
	}
}
