// Command runner hosts the long-lived polling agent: it watches the
// orchestration API for scheduled flow runs and launches each one as a
// child process of the engine-host binary.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

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
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, os.Getenv("ENV") != "production")
	log := logger.Get()
	log.Info().Msg("starting runner")

	orchClient := orchestration.New(cfg.Orchestration.APIURL, orchestration.WithAPIKey(cfg.Orchestration.APIKey))

	r := runner.New(uuid.New().String(), orchClient, runner.Config{
		QuerySeconds:     cfg.Runner.QuerySeconds,
		HeartbeatSeconds: cfg.Runner.HeartbeatSeconds,
		PrefetchSeconds:  cfg.Runner.PrefetchSeconds,
		Concurrency:      cfg.Runner.Concurrency,
		PauseOnShutdown:  cfg.Runner.PauseOnShutdown,
	})

	for _, raw := range os.Args[1:] {
		id, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			log.Warn().Str("arg", raw).Msg("ignoring non-UUID deployment argument")
			continue
		}
		r.AddDeployment(id)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PREFECT_RUNNER_SERVER_ENABLE mirrors the original's optional
	// embedded webserver: when set, the admin/status HTTP surface runs
	// in this same process instead of requiring a separate api-server.
	var httpServer *http.Server
	if cfg.Runner.ServerEnabled {
		redisClient, err := config.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis for embedded server")
		}
		defer redisClient.Close()

		publisher := events.NewRedisPubSub(redisClient)
		defer publisher.Close()
		r.WithPublisher(publisher)

		server := api.NewServer(cfg, r, publisher)
		server.Start(ctx)

		httpServer = &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.AdminPort),
			Handler:      server,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		}
		go func() {
			log.Info().Str("addr", httpServer.Addr).Msg("embedded admin server listening")
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("embedded admin server error")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Info().Msg("shutdown signal received")
		cancel()
		if httpServer != nil {
			_ = httpServer.Close()
		}
	}()

	if err := r.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("runner exited with error")
	}
	log.Info().Msg("runner stopped")
}
