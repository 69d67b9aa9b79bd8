// Copyright 2021 The proxyx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package cmd implements the proxyx command line.
package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/gogama/proxyx"
	"github.com/gogama/proxyx/config"
	"github.com/gogama/proxyx/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// globalOptions holds the flags shared by every sub-command.
type globalOptions struct {
	configFile      string
	proxy           string
	proxies         []string
	proxyFile       string
	proxyRate       float64
	proxyBurst      int
	connectAttempts int
	connectSleep    time.Duration
	maxProxyChanges int
	timeout         time.Duration
	baseURI         string
	headers         []string
	query           []string
	logLevel        string
	logPretty       bool
	verbose         bool
	stats           bool
}

// NewRootCommand returns the proxyx root command with its
// sub-commands attached.
func NewRootCommand() *cobra.Command {
	g := &globalOptions{}
	root := &cobra.Command{
		Use:   "proxyx",
		Short: "Send HTTP requests through rotating proxies",
		Long: `proxyx sends HTTP requests, retrying connection failures and rotating
through a supply of proxies within a bounded budget.

Options come from an optional YAML file (--config) overlaid with flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := root.PersistentFlags()
	f.StringVar(&g.configFile, "config", "", "YAML options file")
	f.StringVar(&g.proxy, "proxy", "", "proxy endpoint, host:port or scheme://host:port")
	f.StringSliceVar(&g.proxies, "proxies", nil, "further proxy endpoints to rotate through")
	f.StringVar(&g.proxyFile, "proxy-file", "", "file listing one proxy endpoint per line")
	f.Float64Var(&g.proxyRate, "proxy-rate", 0, "maximum proxy fetches per second (0 means unlimited)")
	f.IntVar(&g.proxyBurst, "proxy-burst", 0, "proxy fetch burst above --proxy-rate")
	f.IntVar(&g.connectAttempts, "connect-attempts", 0, "attempts per proxy")
	f.DurationVar(&g.connectSleep, "connect-sleep", 0, "wait before each retry or rotation")
	f.IntVar(&g.maxProxyChanges, "max-proxy-changes", 0, "proxy rotations allowed per request")
	f.DurationVar(&g.timeout, "timeout", 0, "per-attempt timeout")
	f.StringVar(&g.baseURI, "base-uri", "", "base URI for relative redirects")
	f.StringArrayVarP(&g.headers, "header", "H", nil, `default request header, "Name: value"`)
	f.StringArrayVar(&g.query, "query", nil, "default query parameter, name=value")
	f.StringVar(&g.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	f.BoolVar(&g.logPretty, "log-pretty", false, "human readable logs")
	f.BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")
	f.BoolVar(&g.stats, "stats", false, "print request metrics to stderr on exit")

	root.AddCommand(newFetchCommand(g), newBatchCommand(g))
	return root
}

// overrides returns the option keys set by flags.
func (g *globalOptions) overrides(flags *pflag.FlagSet) (map[string]interface{}, error) {
	m := make(map[string]interface{})
	set := func(flag, key string, v interface{}) {
		if flags.Changed(flag) {
			m[key] = v
		}
	}
	set("proxy", "proxy", g.proxy)
	set("proxies", "proxies", g.proxies)
	set("proxy-file", "proxyFile", g.proxyFile)
	set("proxy-rate", "proxyRate", g.proxyRate)
	set("proxy-burst", "proxyBurst", g.proxyBurst)
	set("connect-attempts", "connectAttempts", g.connectAttempts)
	set("connect-sleep", "connectSleep", g.connectSleep)
	set("max-proxy-changes", "maxProxyChanges", g.maxProxyChanges)
	set("timeout", "timeout", g.timeout)
	set("base-uri", "baseUri", g.baseURI)
	set("log-level", "log.level", g.logLevel)
	set("log-pretty", "log.pretty", g.logPretty)
	if g.verbose && !flags.Changed("log-level") {
		m["log.level"] = "debug"
	}

	if len(g.headers) > 0 {
		h := make(map[string]interface{}, len(g.headers))
		for _, s := range g.headers {
			name, value, ok := strings.Cut(s, ":")
			if !ok || strings.TrimSpace(name) == "" {
				return nil, &config.Error{Key: "headers", Err: fmt.Errorf("invalid header %q", s)}
			}
			h[strings.TrimSpace(name)] = strings.TrimSpace(value)
		}
		m["headers"] = h
	}
	if len(g.query) > 0 {
		q := make(map[string]interface{}, len(g.query))
		for _, s := range g.query {
			name, value, ok := strings.Cut(s, "=")
			if !ok || name == "" {
				return nil, &config.Error{Key: "query", Err: fmt.Errorf("invalid query parameter %q", s)}
			}
			q[name] = value
		}
		m["query"] = q
	}
	return m, nil
}

// client builds the client for a sub-command. The returned function
// prints collected metrics if --stats was given, and must be called
// once the command is done.
func (g *globalOptions) client(cmd *cobra.Command) (*config.Client, func(), error) {
	m, err := g.overrides(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	o, err := config.LoadLayered(g.configFile, m)
	if err != nil {
		return nil, nil, err
	}
	cl, err := config.NewClient(o, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}

	done := func() { cl.CloseIdleConnections() }
	if g.stats {
		reg := prometheus.NewRegistry()
		handlers := &proxyx.HandlerGroup{}
		metrics.NewCollector(reg).Install(handlers)
		cl.Handlers = handlers
		done = func() {
			cl.CloseIdleConnections()
			printStats(cmd.ErrOrStderr(), reg)
		}
	}
	return cl, done, nil
}
