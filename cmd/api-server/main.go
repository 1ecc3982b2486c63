// Command api-server runs the admin/control HTTP surface alongside a
// Runner: health and status endpoints, manual flow-run submission, and
// a live event stream over WebSocket. It is a control/status API, not
// a UI.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/maumercado/flowcore/internal/api"
	"github.com/maumercado/flowcore/internal/config"
	"github.com/maumercado/flowcore/internal/events"
	"github.com/maumercado/flowcore/internal/logger"
	"github.com/maumercado/flowcore/internal/orchestration"
	"github.com/maumercado/flowcore/internal/runner"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, os.Getenv("ENV") != "production")
	log := logger.Get()
	log.Info().Msg("Starting API server...")

	redisClient, err := config.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	publisher := events.NewRedisPubSub(redisClient)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close event publisher")
		}
	}()

	orchClient := orchestration.New(cfg.Orchestration.APIURL, orchestration.WithAPIKey(cfg.Orchestration.APIKey))
	r := runner.New(uuid.New().String(), orchClient, runner.Config{
		QuerySeconds:     cfg.Runner.QuerySeconds,
		HeartbeatSeconds: cfg.Runner.HeartbeatSeconds,
		PrefetchSeconds:  cfg.Runner.PrefetchSeconds,
		Concurrency:      cfg.Runner.Concurrency,
		PauseOnShutdown:  cfg.Runner.PauseOnShutdown,
	}).WithPublisher(publisher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := r.Start(ctx); err != nil {
			log.Error().Err(err).Msg("runner stopped with error")
		}
	}()

	server := api.NewServer(cfg, r, publisher)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.AdminPort),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	server.Start(ctx)

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	cancel() // stop the runner
	server.Stop()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("Server stopped")
}
