// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package bind registers command line flags for the proxy configuration types.
package bind

import (
	"strings"

	"github.com/mmatczuk/anyflag"
	"github.com/saucelabs/cacheproxy"
	"github.com/saucelabs/cacheproxy/cache"
	"github.com/saucelabs/cacheproxy/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func ConfigFile(fs *pflag.FlagSet, configFile *string) {
	fs.StringVarP(configFile,
		"config-file", "c", *configFile,
		"Configuration file to load options from. "+
			"The supported formats are: JSON, YAML, TOML, HCL, and Java properties. "+
			"The file format is determined by the file extension, if not specified the default format is YAML. "+
			"The following precedence order of configuration sources is used: command flags, environment variables, config file, default values.")
}

func ProxyConfig(fs *pflag.FlagSet, cfg *cacheproxy.ProxyConfig) {
	fs.IntVar(&cfg.MaxConns,
		"max-conns", cfg.MaxConns,
		"Maximum number of client connections served at the same time. "+
			"Connections over the limit wait until a slot is free. "+
			"Zero means no limit.")
	fs.DurationVar(&cfg.ReadHeaderTimeout,
		"read-header-timeout", cfg.ReadHeaderTimeout,
		"The amount of time allowed to read the request line and headers. "+
			"Zero means no limit.")
	fs.Var(sizeValue(&cfg.MaxHeaderBytes),
		"max-header-bytes",
		"Maximum size of the request line and headers. "+
			"Requests with larger headers get 431 Request Header Fields Too Large.")
	fs.Var(sizeValue64(&cfg.ReadLimit),
		"read-limit",
		"Global read rate limit in bytes per second i.e. how many bytes per second you can receive from clients. "+
			"Accepts binary suffixes (e.g. 512K, 1.5MiB, 2G). "+
			"Zero means no limit.")
	fs.Var(sizeValue64(&cfg.WriteLimit),
		"write-limit",
		"Global write rate limit in bytes per second i.e. how many bytes per second you can send to clients. "+
			"Accepts binary suffixes (e.g. 512K, 1.5MiB, 2G). "+
			"Zero means no limit.")
}

func DialConfig(fs *pflag.FlagSet, cfg *cacheproxy.DialConfig) {
	fs.DurationVar(&cfg.DialTimeout,
		"dial-timeout", cfg.DialTimeout,
		"The maximum amount of time a dial will wait for a connect to an origin server to complete.")
	fs.BoolVar(&cfg.KeepAlive,
		"dial-keep-alive", cfg.KeepAlive,
		"Enable TCP keep-alive probes on connections to origin servers.")
}

func CacheConfig(fs *pflag.FlagSet, cfg *cache.Config) {
	fs.Var(sizeValue64(&cfg.MaxSize),
		"cache-size",
		"Total size of the responses held in the cache. "+
			"When the cache is full, the least recently used responses are evicted.")
	fs.Var(sizeValue64(&cfg.MaxObjectSize),
		"cache-max-object-size",
		"Size of the largest response that is cached. "+
			"Larger responses are relayed to the client but not stored.")
}

func APIServerConfig(fs *pflag.FlagSet, cfg *cacheproxy.HTTPServerConfig) {
	fs.StringVar(&cfg.Addr,
		"api-address", cfg.Addr,
		"The server address to listen on for the metrics, health, and configuration API. "+
			"Use empty string to disable the API server.")
}

func PromNamespace(fs *pflag.FlagSet, ns *string) {
	fs.StringVar(ns,
		"prom-namespace", *ns,
		"Prometheus namespace to use for metrics.")
}

func LogConfig(fs *pflag.FlagSet, cfg *log.Config) {
	fs.Var(newFileFlag(&cfg.File, cacheproxy.OpenFileParser(log.DefaultFileFlags, log.DefaultFileMode, log.DefaultDirMode)),
		"log-file",
		"Path to the log file, if empty, logs to stdout.")
	fs.Var(anyflag.NewValue[log.Level](cfg.Level, &cfg.Level, log.ParseLevel),
		"log-level",
		"Log level.")
}

func sizeValue64(p *int64) pflag.Value {
	return (*cacheproxy.SizeSuffix)(p)
}

// intSize stores a size in an int field.
type intSize struct {
	p *int
}

func sizeValue(p *int) pflag.Value {
	return intSize{p}
}

func (s intSize) String() string {
	return cacheproxy.SizeSuffix(*s.p).String()
}

func (s intSize) Set(val string) error {
	v, err := cacheproxy.ParseSizeSuffix(val)
	if err != nil {
		return err
	}
	*s.p = int(v)
	return nil
}

func (s intSize) Type() string {
	return "size"
}

func MarkFlagHidden(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if err := cmd.Flags().MarkHidden(name); err != nil {
			panic(err)
		}
	}
}

func AutoMarkFlagFilename(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if strings.HasSuffix(f.Name, "-file") {
			if err := cmd.MarkFlagFilename(f.Name); err != nil {
				panic(err)
			}
		}
	})
}
