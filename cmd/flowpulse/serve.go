package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flowpulse/flowpulse/internal/api"
	"github.com/flowpulse/flowpulse/internal/collector"
	"github.com/flowpulse/flowpulse/internal/config"
	"github.com/flowpulse/flowpulse/internal/fetch"
	"github.com/flowpulse/flowpulse/internal/metrics"
	"github.com/flowpulse/flowpulse/internal/notify"
	"github.com/flowpulse/flowpulse/internal/store"
	"github.com/flowpulse/flowpulse/internal/ws"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the collector and the HTTP API",
	Long: `Start the long-running service: poll the workflow engine on the configured
interval, rebuild the health reports, and serve them over the REST API,
the WebSocket stream and webhook notifications until interrupted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("flowpulse starting", "config", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	slog.Info("config loaded",
		"engine", cfg.Engine.BaseURL,
		"http_port", cfg.Server.HTTPPort,
		"poll_interval", cfg.Poll.Interval,
		"report_ttl", cfg.Server.ReportTTL,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := metrics.NewRegistry()

	// Report store with background TTL eviction.
	st := store.New(cfg.Server.ReportTTL)
	go st.Run(ctx)

	// Notification engine. Webhook URLs are resolved from the environment.
	notifier := notify.New(cfg.Notify, reg)

	// Engine client and the collection loop.
	client := fetch.NewClient(cfg.Engine, reg)
	coll := collector.New(client, st, notifier, reg, cfg)
	go coll.Run(ctx)

	// Config hot reload: retunes the analysis policy, rules and baselines
	// without a restart.
	go func() {
		if err := config.Watch(ctx, configPath, coll.ApplyConfig); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	// WebSocket hub pushing fleet snapshots.
	hub := ws.New(st, reg, cfg.Server.StreamInterval)
	go hub.Run(ctx)

	// Combined HTTP server: REST API, metrics and the WebSocket hub.
	mux := http.NewServeMux()
	mux.Handle("/api/", api.New(st, notifier))
	mux.Handle("/metrics", api.Metrics(reg))
	mux.Handle("/ws/stream", hub)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: mux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("flowpulse shutting down")
	return srv.Shutdown(context.Background())
}
