package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agenda/internal/config"
	"agenda/internal/engine"
	"agenda/internal/feed"
	appLog "agenda/internal/log"
	"agenda/internal/metrics"
	"agenda/internal/snapshot"
	"agenda/internal/web"
)

// flagConfig holds CLI flag values that override the config file.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	debug      bool
}

func main() {
	os.Exit(run())
}

// run wires the daemon and returns the process exit code, so deferred
// cleanup always runs before os.Exit.
func run() int {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		return 1
	}

	if flags.debug {
		appLog.Init(os.Stderr, true, appLog.LevelDebug)
	} else {
		appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	}
	appLog.Info("agenda starting", "version", "0.1.0")

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"horizon_days", conf.HorizonDays,
		"default_window_days", conf.DefaultWindowDays,
		"count_mode", conf.CountMode,
		"source_count", len(conf.Sources),
		"once", flags.once,
	)

	loc, err := time.LoadLocation(conf.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "timezone", conf.Timezone)
		loc = time.Local
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng := engine.Default()
	if conf.Disciplines != nil {
		eng = engine.New(conf.Disciplines)
	}

	m := metrics.New()
	store := &snapshot.Store{}
	fetcher := feed.NewFetcher(conf.CacheDir, nil).WithValidator(feed.Validate)
	loader := snapshot.NewLoader(conf, fetcher, eng, loc, m)
	refresher := snapshot.NewRefresher(loader, store, m)

	if flags.once {
		return runOnce(ctx, refresher, store)
	}

	srv := web.NewServer(conf, store, eng, m).WithRefresh(refresher.Refresh)
	refresher.OnReplace = srv.SnapshotReplaced

	// Initial load before serving; a failure leaves the API answering 503
	// until the next scheduled refresh succeeds.
	if err := refresher.Refresh(ctx); err != nil && store.Current() == nil {
		appLog.Error("initial load failed", err)
	}

	if err := refresher.Start(ctx, conf.RefreshCron, loc); err != nil {
		appLog.Error("failed to start refresher", err)
		return 1
	}

	httpServer := srv.HTTPServer()
	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		appLog.Info("signal received, shutting down")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("HTTP server failed", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLog.Error("HTTP shutdown failed", err)
	}
	refresher.Stop(shutdownCtx)
	appLog.Info("agenda exiting")
	return 0
}

// runOnce loads a single snapshot, logs a summary and returns the exit
// code.
func runOnce(ctx context.Context, r *snapshot.Refresher, store *snapshot.Store) int {
	err := r.Refresh(ctx)
	snap := store.Current()
	if snap == nil {
		appLog.Error("single-shot load failed", err)
		return 1
	}
	appLog.Info("single-shot load completed",
		"version", snap.Version,
		"events", len(snap.Events),
		"disciplines", len(snap.Baseline),
	)
	if err != nil {
		return 2
	}
	return 0
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/agenda/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Load the feeds once, print a summary and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Debug logging with console output")

	flag.Parse()

	return cfg
}
