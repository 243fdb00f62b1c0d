// Copyright 2022-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package proxy implements the root command that runs the caching proxy.
package proxy

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/saucelabs/cacheproxy"
	"github.com/saucelabs/cacheproxy/bind"
	"github.com/saucelabs/cacheproxy/cache"
	versioncmd "github.com/saucelabs/cacheproxy/command/version"
	"github.com/saucelabs/cacheproxy/internal/version"
	"github.com/saucelabs/cacheproxy/log"
	"github.com/saucelabs/cacheproxy/log/stdlog"
	"github.com/saucelabs/cacheproxy/runctx"
	"github.com/saucelabs/cacheproxy/utils/cobrautil"
	"github.com/saucelabs/cacheproxy/utils/httphandler"
	"github.com/spf13/cobra"
	"go.uber.org/goleak"
	"go.uber.org/multierr"
)

const (
	EnvPrefix          = "PROXY"
	ConfigFileFlagName = "config-file"
)

type command struct {
	promReg         *prometheus.Registry
	promNamespace   string
	proxyConfig     *cacheproxy.ProxyConfig
	dialConfig      *cacheproxy.DialConfig
	cacheConfig     *cache.Config
	apiServerConfig *cacheproxy.HTTPServerConfig
	logConfig       *log.Config

	dryRun bool
	goleak bool
}

func (c *command) runE(cmd *cobra.Command, args []string) error {
	addr, err := cacheproxy.ParseListenPort(args[0])
	if err != nil {
		return err
	}
	c.proxyConfig.Addr = addr

	return c.run(cmd)
}

func (c *command) run(cmd *cobra.Command) (cmdErr error) {
	if f := c.logConfig.File; f != nil {
		defer f.Close()
	}
	onError, err := c.registerErrorsMetric()
	if err != nil {
		return fmt.Errorf("register errors metric: %w", err)
	}
	logger := stdlog.New(c.logConfig, stdlog.WithOnError(onError))

	defer func() {
		if cmdErr != nil {
			logger.Errorf("fatal error exiting: %s", cmdErr)
			cmd.SilenceErrors = true
		}
	}()

	// Usage errors are reported by cobra, runtime errors are not usage errors.
	cmd.SilenceUsage = true

	logger.Infof("Cache Proxy %s (%s)", version.Version, version.Commit)
	logger.Debugf("resource limits: GOMAXPROCS=%d GOMEMLIMIT=%s", runtime.GOMAXPROCS(0), os.Getenv("GOMEMLIMIT"))

	var ep []cacheproxy.APIEndpoint

	{
		cfg, err := cobrautil.FlagsDescriber{
			Format:          cobrautil.Plain,
			ShowChangedOnly: true,
			ShowHidden:      true,
		}.DescribeFlags(cmd.Flags())
		if err != nil {
			return err
		}
		if len(cfg) > 0 {
			logger.Infof("configuration\n%s", cfg)
		} else {
			logger.Infof("using default configuration")
		}

		cfg, err = cobrautil.FlagsDescriber{
			Format:     cobrautil.Plain,
			ShowHidden: true,
		}.DescribeFlags(cmd.Flags())
		if err != nil {
			return err
		}
		logger.Debugf("all configuration\n%s\n\n", cfg)

		ep = append(ep, cacheproxy.APIEndpoint{
			Path:    "/configz",
			Handler: httphandler.SendFile("text/plain", cfg),
		})
	}

	g := runctx.NewGroup()

	{
		store, err := cache.New(c.cacheConfig,
			cache.WithPrometheus(c.promReg, c.promNamespace),
			cache.WithLogger(logger.Named("cache")),
		)
		if err != nil {
			return fmt.Errorf("cache: %w", err)
		}
		ep = append(ep, cacheproxy.APIEndpoint{
			Path:    "/cachez",
			Handler: httphandler.SendJSON(func() any { return store.Stats() }),
		})

		p, err := cacheproxy.NewProxy(c.proxyConfig, store, cacheproxy.NewDialer(c.dialConfig), logger.Named("proxy"))
		if err != nil {
			return err
		}
		defer p.Close()
		g.Add(p.Run)
	}

	if c.apiServerConfig.Addr != "" {
		if err := multierr.Combine(
			c.registerProcMetrics(),
			c.registerVersionMetric(),
		); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}

		ep := append([]cacheproxy.APIEndpoint{
			{
				Path:    "/version",
				Handler: httphandler.Version(version.Version, version.Time, version.Commit),
			},
		}, ep...)
		h := cacheproxy.NewAPIHandler("Cache Proxy "+version.Version, c.promReg, nil, ep...)

		a, err := cacheproxy.NewHTTPServer(c.apiServerConfig, h, logger.Named("api"))
		if err != nil {
			return err
		}
		defer a.Close()
		g.Add(a.Run)
	}

	if c.goleak {
		defer func() {
			if err := goleak.Find(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "goleak: %s", err)
				os.Exit(1)
			}
		}()
	}

	if c.dryRun {
		return nil
	}

	return g.Run()
}

func (c *command) registerErrorsMetric() (func(name string), error) {
	m := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.promNamespace,
		Name:      "errors_total",
		Help:      "Number of errors logged",
	}, []string{"name"})

	if err := c.promReg.Register(m); err != nil {
		return nil, err
	}

	return func(name string) {
		m.WithLabelValues(name).Inc()
	}, nil
}

func (c *command) registerProcMetrics() error {
	return multierr.Combine(
		// Note that ProcessCollector is only available in Linux and Windows.
		c.promReg.Register(collectors.NewProcessCollector(
			collectors.ProcessCollectorOpts{Namespace: c.promNamespace})),
		c.promReg.Register(collectors.NewGoCollector()),
	)
}

func (c *command) registerVersionMetric() error {
	return c.promReg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: c.promNamespace,
		Name:      "version",
		Help:      "Cache Proxy version, value is always 1",
		ConstLabels: prometheus.Labels{
			"version": version.Version,
			"commit":  version.Commit,
			"time":    version.Time,
		},
	}, func() float64 {
		return 1
	}))
}

// Command returns the root command.
func Command() *cobra.Command {
	c := makeCommand()

	cmd := &cobra.Command{
		Use:     "proxy <listen-port>",
		Short:   "Caching forward HTTP proxy",
		Long:    long,
		Example: example,
		Args:    cobra.ExactArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return cobrautil.BindAll(cmd, EnvPrefix, ConfigFileFlagName)
		},
		// --prom-namespace is known only after flags are bound.
		PreRun: func(*cobra.Command, []string) {
			c.applyPromNamespace()
		},
		RunE: c.runE,
	}

	bind.ConfigFile(cmd.PersistentFlags(), new(string))

	fs := cmd.Flags()
	bind.ProxyConfig(fs, c.proxyConfig)
	bind.DialConfig(fs, c.dialConfig)
	bind.CacheConfig(fs, c.cacheConfig)
	bind.APIServerConfig(fs, c.apiServerConfig)
	bind.PromNamespace(fs, &c.promNamespace)
	bind.LogConfig(fs, c.logConfig)

	bind.AutoMarkFlagFilename(cmd)
	cobrautil.AppendEnvToUsage(cmd, EnvPrefix)

	fs.BoolVar(&c.goleak, "goleak", false, "enable goleak")
	bind.MarkFlagHidden(cmd, "goleak")

	cmd.AddCommand(versioncmd.Command())

	return cmd
}

// Metrics returns the registry populated by a dry run of the command.
func Metrics() (*prometheus.Registry, error) {
	c := makeCommand()
	c.logConfig.Level = log.ErrorLevel
	c.apiServerConfig.Addr = "localhost:0"
	c.dryRun = true

	c.proxyConfig.Addr = "localhost:0"

	cmd := &cobra.Command{
		Use: "proxy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd)
		},
	}
	cmd.SetArgs([]string{})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	if err := cmd.Execute(); err != nil {
		return nil, err
	}

	return c.promReg, nil
}

const promNs = "proxy"

func makeCommand() command {
	c := command{
		promReg:         prometheus.NewRegistry(),
		promNamespace:   promNs,
		proxyConfig:     cacheproxy.DefaultProxyConfig(),
		dialConfig:      cacheproxy.DefaultDialConfig(),
		cacheConfig:     cache.DefaultConfig(),
		apiServerConfig: cacheproxy.DefaultHTTPServerConfig(),
		logConfig:       log.DefaultConfig(),
	}
	c.applyPromNamespace()

	return c
}

func (c *command) applyPromNamespace() {
	c.proxyConfig.PromRegistry = c.promReg
	c.proxyConfig.PromNamespace = c.promNamespace
	c.dialConfig.PromRegistry = c.promReg
	c.dialConfig.PromNamespace = c.promNamespace
}

const long = `Start a caching forward HTTP proxy listening on the given port.
The argument may be a port number or a host:port pair.

Each client connection carries a single request.
The request is forwarded to the origin server as HTTP/1.0 and the response is streamed back to the client.
Complete responses not larger than --cache-max-object-size are kept in an in-memory LRU cache keyed by the request URI,
and repeated requests for the same URI are served from the cache without contacting the origin server.
`

const example = `  # Start the proxy on port 8080
  proxy 8080

  # Start the proxy on localhost with a 64MiB cache
  proxy localhost:3128 --cache-size 64MiB --cache-max-object-size 1MiB

  # Disable the API server and log to a file
  proxy 8080 --api-address "" --log-file /var/log/proxy.log
`
