// AIS-WiFi-Manager - ADS-B/AIS Forwarding Daemon
// Copyright 2026 JLBMaritime
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/JLBMaritime/AIS-WiFi-Manager

package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/api"
	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/config"
	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/forwarder"
	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/logging"
	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/logstore"
	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/supervisor"
	"github.com/JLBMaritime/AIS-WiFi-Manager/internal/supervisor/services"
	ws "github.com/JLBMaritime/AIS-WiFi-Manager/internal/websocket"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// The recent-log store and the websocket hub are fed by the logger, so
	// they exist before logging is configured.
	logStore, err := logstore.Open(logstore.Config{
		Path:       cfg.LogStore.Path,
		InMemory:   cfg.LogStore.InMemory,
		Retention:  cfg.LogStore.Retention,
		MaxEntries: cfg.LogStore.MaxEntries,
	})
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.LogStore.Path).Msg("Failed to open log store")
	}
	defer func() {
		if err := logStore.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing log store")
		}
	}()

	wsHub := ws.NewHub()

	extra := []io.Writer{logStore, wsHub}
	if cfg.Logging.File != "" {
		logFile, err := logging.OpenFile(cfg.Logging.File)
		if err != nil {
			logging.Fatal().Err(err).Str("file", cfg.Logging.File).Msg("Failed to open log file")
		}
		defer logFile.Close()
		extra = append(extra, logFile)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
		Output: os.Stderr,
		Extra:  extra,
	})

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("document", cfg.Forwarding.Document).
		Str("log_file", cfg.Logging.File).
		Bool("autostart", cfg.Forwarding.Autostart).
		Msg("Starting relayd with supervisor tree")

	if cfg.Server.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (rate_limit_disabled=true)")
	}

	// Create structured logger for supervisor using our slog adapter
	// This bridges zerolog to slog for sutureslog compatibility
	slogLogger := logging.NewSlogLogger()
	treeConfig := supervisor.TreeConfigFrom(cfg.Supervisor)

	documents := config.NewDocumentStore(cfg.Forwarding.Document, cfg.Forwarding.MaxBackups)
	daemon, err := forwarder.New(forwarder.Options{
		Store:       documents,
		Publisher:   cfg.Policy.Publisher,
		Upstream:    cfg.Policy.Upstream,
		FrameBuffer: cfg.Forwarding.FrameBuffer,
		Supervisor:  treeConfig,
		Logger:      slogLogger,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create forwarder")
	}

	tree, err := supervisor.NewSupervisorTree(slogLogger, treeConfig)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	handler := api.NewHandler(daemon, logStore, wsHub, cfg.Server)
	router := api.NewRouter(handler, api.NewChiMiddlewareFromConfig(cfg.Server))
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Forwarding layer: the daemon handle, stopped before the tree exits.
	tree.AddForwardingService(services.NewForwarderService(daemon, cfg.Forwarding.Autostart))

	// Messaging layer: live feed and log retention.
	tree.AddMessagingService(services.NewWebSocketHubService(wsHub))
	tree.AddMessagingService(services.NewStatusBroadcastService(wsHub, func() any {
		return daemon.Status()
	}, cfg.Server.StatusInterval))
	tree.AddMessagingService(logStore)

	// API layer
	tree.AddAPIService(services.NewHTTPServerService(server, treeConfig.ShutdownTimeout))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	if err := tree.Wait(ctx, errCh); err != nil {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	// The forwarder service stops the daemon on cancel; this covers a tree
	// that exited without reaching it.
	_ = daemon.Stop()

	logging.Info().Msg("relayd stopped")
}
