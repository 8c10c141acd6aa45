package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/umputun/feedwatch/pkg/config"
	"github.com/umputun/feedwatch/pkg/feed"
	"github.com/umputun/feedwatch/pkg/reader"
	"github.com/umputun/feedwatch/pkg/scheduler"
	"github.com/umputun/feedwatch/pkg/state"
	"github.com/umputun/feedwatch/pkg/store"
	"github.com/umputun/feedwatch/server"
)

// Opts with all CLI options
type Opts struct {
	Config   string        `short:"c" long:"config" env:"CONFIG" description:"configuration file"`
	Listen   string        `short:"l" long:"listen" env:"LISTEN" description:"listen address, overrides config"`
	Feeds    []string      `short:"f" long:"feed" env:"FEEDS" env-delim:"," description:"feed url to subscribe on start"`
	Proxy    string        `long:"proxy" env:"PROXY" description:"relay url for fetching feeds, overrides config"`
	Interval time.Duration `short:"i" long:"interval" env:"INTERVAL" description:"polling interval, overrides config"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	if opts.NoColor {
		color.NoColor = true
	}
	setupLog(opts.Debug, proxySecrets(opts.Proxy)...)

	lgr.Printf("[INFO] starting feedwatch version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		lgr.Printf("[INFO] termination signal received")
		cancel()
	}()

	err := run(ctx, opts)
	cancel()

	if err != nil {
		lgr.Printf("[ERROR] %v", err)
		os.Exit(1)
	}

	lgr.Printf("[INFO] shutdown complete")
}

// run wires all components and serves until ctx is canceled
func run(ctx context.Context, opts Opts) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	st := state.New()
	feedStore := store.New(st)
	feedParser := feed.NewParser()
	fetcher := feed.NewFetcher(cfg.Fetch.Proxy, feed.FetcherParams{
		Timeout:     cfg.Fetch.Timeout,
		UserAgent:   cfg.Fetch.UserAgent,
		MaxBodySize: cfg.Fetch.MaxBodySize,
		Retries:     cfg.Fetch.Retries,
		RetryDelay:  cfg.Fetch.RetryDelay,
	})
	sched := scheduler.NewScheduler(scheduler.Params{Parser: feedParser, Store: feedStore})
	rd := reader.New(reader.Params{
		State:          st,
		Store:          feedStore,
		Scheduler:      sched,
		Fetcher:        fetcher,
		Parser:         feedParser,
		UpdateInterval: cfg.Schedule.UpdateInterval,
	})
	defer rd.Shutdown()

	if cfg.Fetch.Proxy != "" {
		lgr.Printf("[INFO] fetching feeds via %s", cfg.Fetch.Proxy)
	}
	if len(cfg.Feeds) > 0 {
		go rd.SubscribeAll(ctx, cfg.Feeds, cfg.Schedule.MaxWorkers)
	}

	srv := server.New(server.Params{
		Config:    cfg,
		Reader:    rd,
		Store:     feedStore,
		Scheduler: sched,
		State:     st,
		Version:   revision,
		Debug:     opts.Debug,
	})
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// loadConfig reads the config file if set and applies command line overrides
func loadConfig(opts Opts) (*config.Config, error) {
	cfg := config.Default()
	if opts.Config != "" {
		var err error
		if cfg, err = config.Load(opts.Config); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if opts.Listen != "" {
		cfg.Server.Listen = opts.Listen
	}
	if opts.Proxy != "" {
		cfg.Fetch.Proxy = opts.Proxy
	}
	if opts.Interval > 0 {
		cfg.Schedule.UpdateInterval = opts.Interval
	}
	cfg.Feeds = append(cfg.Feeds, opts.Feeds...)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return cfg, nil
}

// proxySecrets returns credentials embedded in the relay url, to be masked in logs
func proxySecrets(proxy string) []string {
	u, err := url.Parse(proxy)
	if err != nil || u.User == nil {
		return nil
	}
	if pass, ok := u.User.Password(); ok && pass != "" {
		return []string{pass}
	}
	return nil
}

func setupLog(dbg bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Err(io.Discard)}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))
	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
