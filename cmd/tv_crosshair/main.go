package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/dgnsrekt/tv_crosshair/internal/api"
	"github.com/dgnsrekt/tv_crosshair/internal/browser"
	"github.com/dgnsrekt/tv_crosshair/internal/cdpcontrol"
	"github.com/dgnsrekt/tv_crosshair/internal/config"
	"github.com/dgnsrekt/tv_crosshair/internal/controller"
	"github.com/dgnsrekt/tv_crosshair/internal/crosshair"
	"github.com/dgnsrekt/tv_crosshair/internal/netutil"
	"github.com/dgnsrekt/tv_crosshair/internal/relay"
	"github.com/dgnsrekt/tv_crosshair/internal/storage"
	"github.com/dgnsrekt/tv_crosshair/internal/tvhost"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		if _, writeErr := io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n"); writeErr != nil {
			slog.Debug("logger setup stderr write failed", "error", writeErr)
		}
		os.Exit(1)
	}

	slog.Info("tv_crosshair config loaded",
		"cdp_url", cfg.CDPURL(),
		"bind_addr", cfg.BindAddr,
		"tab_url_filter", cfg.TabURLFilter,
		"eval_timeout_ms", cfg.EvalTimeoutMS,
		"resync_interval_ms", cfg.ResyncIntervalMS,
		"mode", cfg.Mode.String(),
		"scroll_sync", cfg.ScrollSync,
		"timezone", cfg.Timezone,
		"charts_config", cfg.ChartsConfig,
		"event_journal_dir", cfg.JournalDir,
		"launch_browser", cfg.LaunchBrowser,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
	)

	charts, err := config.LoadCharts(cfg.ChartsConfig)
	if err != nil {
		slog.Error("failed to load charts config", "path", cfg.ChartsConfig, "error", err)
		os.Exit(1)
	}
	loc, err := cfg.Location()
	if err != nil {
		slog.Error("invalid timezone", "timezone", cfg.Timezone, "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var launcher *browser.Launcher
	stopBrowser := func() {
		if launcher != nil && launcher.Running() {
			launcher.Stop()
		}
	}
	if cfg.LaunchBrowser {
		launcher = browser.NewLauncher(browser.Config{
			CDPAddress: cfg.CDPAddress,
			CDPPort:    cfg.CDPPort,
			Binary:     cfg.BrowserBinary,
			URLs:       charts.URLs,
			ProfileDir: cfg.BrowserProfileDir,
		})
		if err := launcher.Launch(ctx); err != nil {
			slog.Error("failed to launch browser", "error", err)
			os.Exit(1)
		}
	}

	evalTimeout := time.Duration(cfg.EvalTimeoutMS) * time.Millisecond
	cdpClient := cdpcontrol.NewClient(cfg.CDPURL(), cfg.TabURLFilter, evalTimeout)
	if err := cdpClient.Connect(ctx); err != nil {
		slog.Error("failed to connect CDP", "cdp_url", cfg.CDPURL(), "error", err)
		stopBrowser()
		os.Exit(1)
	}
	defer func() {
		if err := cdpClient.Close(); err != nil {
			slog.Debug("CDP client close failed", "error", err)
		}
	}()
	if launcher != nil {
		if failed := launcher.OpenRemaining(ctx, cdpClient); failed > 0 {
			slog.Warn("some chart windows did not open", "failed", failed, "total", len(charts.URLs))
		}
	}

	broker := relay.NewBroker()
	observers := []crosshair.Observer{relay.Publisher(broker)}
	closeJournal := func() {}
	if cfg.JournalDir != "" {
		journal := storage.NewJournal(storage.JournalConfig{
			Dir:       cfg.JournalDir,
			MaxSizeMB: cfg.JournalMaxSizeMB,
		})
		closeJournal = func() {
			if err := journal.Close(); err != nil {
				slog.Debug("event journal close failed", "error", err)
			}
			if n := journal.Dropped(); n > 0 {
				slog.Warn("event journal dropped events", "count", n)
			}
		}
		observers = append(observers, journal.Observe)
	}
	coord := crosshair.NewCoordinator(
		crosshair.WithLocation(loc),
		crosshair.WithObserver(fanOut(observers)),
	)

	attacher := tvhost.NewAttacher(cdpClient, coord, tvhost.AttacherConfig{
		ResyncInterval: time.Duration(cfg.ResyncIntervalMS) * time.Millisecond,
		EventTimeout:   2 * evalTimeout,
		QueueSize:      cfg.HookQueueSize,
		Options: func(key crosshair.ChartKey) crosshair.Options {
			return charts.Resolve(cfg.DefaultOptions(), key)
		},
	})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := attacher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("tvhost attacher stopped", "error", err)
		}
	}()

	ln, err := netutil.Listen(cfg.BindAddr, cfg.PortCandidates, cfg.PortAutoFallback)
	if err != nil {
		slog.Error("failed to bind API", "preferred", cfg.BindAddr, "error", err)
		cancel()
		wg.Wait()
		closeJournal()
		stopBrowser()
		os.Exit(1)
	}

	svc := controller.NewService(coord, attacher, cdpClient)
	h := api.NewServer(svc, api.Options{
		Broker:    broker,
		Heartbeat: time.Duration(cfg.SSEHeartbeatMS) * time.Millisecond,
	})
	srv := &http.Server{
		Handler:     h,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	serverErr := make(chan error, 1)
	go func() {
		addr := ln.Addr().String()
		slog.Info("tv_crosshair listening", "addr", addr, "docs", "http://"+addr+"/docs")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("tv_crosshair server failed", "error", err)
			serverErr <- err
		}
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
	case <-serverErr:
		exitCode = 1
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("tv_crosshair shutdown failed", "error", err)
	}
	wg.Wait()
	closeJournal()
	stopBrowser()

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func fanOut(observers []crosshair.Observer) crosshair.Observer {
	if len(observers) == 1 {
		return observers[0]
	}
	return func(evt crosshair.Event) {
		for _, o := range observers {
			o(evt)
		}
	}
}

func setupLogger(level, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
