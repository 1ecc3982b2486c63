// Command engine-host is the process the Runner spawns for each flow
// run: it reads the flow run identity out of its environment, builds
// an orchestration client, and drives the flow's task runs through
// internal/engine. Flow bodies are registered by name in the
// flows map below; a real deployment links this binary against the
// package defining its flows instead of editing this file directly.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/maumercado/flowcore/internal/config"
	"github.com/maumercado/flowcore/internal/engine"
	"github.com/maumercado/flowcore/internal/logger"
	"github.com/maumercado/flowcore/internal/orchestration"
)

// flows maps a deployment's entrypoint name to the function that runs
// it. Each flow function receives the orchestration client and the
// flow run id so it can create and drive engine.TaskRunEngine
// invocations for its own tasks.
var flows = map[string]func(ctx context.Context, client *orchestration.Client, flowRunID uuid.UUID) error{}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel, os.Getenv("ENV") != "production")
	log := logger.Get()
	engine.SetDefaultRefreshCache(cfg.Engine.RefreshCacheDefault)

	rawID := os.Getenv("PREFECT__FLOW_RUN_ID")
	if rawID == "" {
		log.Fatal().Msg("PREFECT__FLOW_RUN_ID not set")
	}
	flowRunID, err := uuid.Parse(rawID)
	if err != nil {
		log.Fatal().Err(err).Str("flow_run_id", rawID).Msg("invalid flow run id")
	}

	entrypoint := os.Getenv("PREFECT__FLOW_ENTRYPOINT")
	fn, ok := flows[entrypoint]
	if !ok {
		log.Fatal().Str("entrypoint", entrypoint).Msg("no flow registered for entrypoint")
	}

	orchClient := orchestration.New(cfg.Orchestration.APIURL, orchestration.WithAPIKey(cfg.Orchestration.APIKey))

	log.Info().Str("flow_run_id", flowRunID.String()).Str("entrypoint", entrypoint).Msg("flow run starting")
	if err := fn(context.Background(), orchClient, flowRunID); err != nil {
		log.Error().Err(err).Msg("flow run failed")
		os.Exit(1)
	}
	log.Info().Str("flow_run_id", flowRunID.String()).Msg("flow run completed")
}
