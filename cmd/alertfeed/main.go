package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/safeops/alertfeed/internal/alerts"
	"github.com/safeops/alertfeed/internal/api"
	"github.com/safeops/alertfeed/internal/config"
	"github.com/safeops/alertfeed/internal/upstream"
	"github.com/safeops/alertfeed/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not up yet.
		panic(err)
	}

	log := logger.New(cfg.LogLevel)
	log.Info("Starting alertfeed",
		"environment", cfg.Environment,
		"listenAddr", cfg.ListenAddr,
		"pollInterval", cfg.AlertPollInterval().String())

	client := upstream.NewClient(
		cfg.Upstream.BaseURL,
		cfg.Upstream.Token,
		time.Duration(cfg.Upstream.TimeoutSeconds)*time.Second,
		log.With("component", "upstream"),
	)

	feed := alerts.NewFeed(client, client, client, alerts.FeedConfig{
		PollInterval:      cfg.AlertPollInterval(),
		HealthInterval:    cfg.HealthPollInterval(),
		MutationRetention: cfg.MutationRetention(),
	}, log.With("component", "alerts"))

	if err := feed.Start(); err != nil {
		log.Error("Failed to start alert feed", "error", err.Error())
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewServer(feed, cfg.APIToken, log.With("component", "api")).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", "error", err.Error())
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("HTTP server shutdown failed", "error", err.Error())
	}

	if err := feed.Stop(); err != nil {
		log.Error("Alert feed shutdown failed", "error", err.Error())
	}
}
