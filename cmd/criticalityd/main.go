// Criticalityd is the synthesis-protocol daemon: it owns one protocol
// instance, drives the tick loop, and exposes a small HTTP surface for
// status, health, metrics, and blocking-query resolution.
//
// Configuration is loaded from ~/.config/criticality/config.yaml and
// overridden by environment variables. See internal/config for details.
//
// Usage:
//
//	# Start the daemon with defaults
//	criticalityd
//
//	# Configure via flags
//	criticalityd --listen :9180 --tick-interval 5s
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/criticality/internal/checkpoint"
	"github.com/fyrsmithlabs/criticality/internal/config"
	"github.com/fyrsmithlabs/criticality/internal/logging"
	"github.com/fyrsmithlabs/criticality/internal/notify"
	"github.com/fyrsmithlabs/criticality/internal/orchestrator"
	"github.com/fyrsmithlabs/criticality/internal/telemetry"
	"github.com/fyrsmithlabs/criticality/pkg/criticality"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	var (
		configPath   = flag.String("config", "", "config file path (default ~/.config/criticality/config.yaml)")
		listenAddr   = flag.String("listen", ":9180", "HTTP listen address")
		tickInterval = flag.Duration("tick-interval", 5*time.Second, "delay between orchestrator ticks")
		showVersion  = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, shutting down", sig)
		cancel()
	}()

	if err := run(ctx, *configPath, *listenAddr, *tickInterval); err != nil {
		log.Fatalf("daemon error: %v", err)
	}
	log.Println("shutdown complete")
}

func printVersion() {
	fmt.Printf("criticalityd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run initializes configuration, logging, telemetry, and the protocol
// instance, then drives the tick loop and HTTP server until ctx is
// cancelled or the protocol reaches a terminal state.
func run(ctx context.Context, configPath, listenAddr string, tickInterval time.Duration) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	tel, err := telemetry.New(ctx, telemetry.NewDefaultConfig())
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = tel.Shutdown(shutdownCtx)
	}()

	logCfg := logging.NewDefaultConfig()
	logger, err := logging.NewLogger(logCfg, tel.LoggerProvider())
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := orchestrator.NewMetrics(registry)

	protocol, err := criticality.New(criticality.Options{Config: cfg, Logger: logger})
	if err != nil {
		return fmt.Errorf("constructing protocol: %w", err)
	}
	protocol.Notifier = notify.FromConfig(cfg.Notifications)
	protocol.Metrics = metrics

	logger.Info(ctx, "starting criticalityd",
		zap.String("listen", listenAddr),
		zap.String("state_file", cfg.Paths.StateFile),
		zap.Duration("tick_interval", tickInterval),
	)

	d := newDaemon(protocol, logger)
	srv := d.newServer(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	if watcher, err := checkpoint.NewWatcher(checkpoint.DefaultConfig(cfg.Paths.StateFile)); err != nil {
		logger.Warn(ctx, "state file watcher unavailable", zap.Error(err))
	} else {
		defer watcher.Close()
		go d.watchStateFile(ctx, watcher)
	}

	httpErr := make(chan error, 1)
	go func() { httpErr <- listenAndServe(srv, listenAddr) }()

	loopDone := make(chan struct{})
	go func() {
		d.tickLoop(ctx, tickInterval)
		close(loopDone)
	}()

	var firstErr error
	select {
	case <-ctx.Done():
	case firstErr = <-httpErr:
	case <-loopDone:
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
