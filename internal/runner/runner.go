// Package runner implements the long-lived agent that polls the
// orchestration API for scheduled flow runs, launches them as child
// processes under a concurrency limit, and reacts to out-of-band
// cancellation requests.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/maumercado/flowcore/internal/criticalservice"
	"github.com/maumercado/flowcore/internal/engine"
	"github.com/maumercado/flowcore/internal/events"
	"github.com/maumercado/flowcore/internal/logger"
	"github.com/maumercado/flowcore/internal/metrics"
	"github.com/maumercado/flowcore/internal/orchestration"
)

// Launcher starts one flow run as a child process and returns once it
// exits. Swapped out in tests for a fake that never shells out.
type Launcher func(ctx context.Context, flowRunID uuid.UUID, recordPID func(pid int)) (exitCode int, err error)

// Config controls the Runner's polling cadence and capacity.
type Config struct {
	QuerySeconds      time.Duration
	HeartbeatSeconds  time.Duration
	PrefetchSeconds   time.Duration
	Concurrency       int
	PauseOnShutdown   bool
}

// DefaultConfig mirrors the original's PREFECT_WORKER_QUERY_SECONDS /
// PREFECT_WORKER_HEARTBEAT_SECONDS defaults.
func DefaultConfig() Config {
	return Config{
		QuerySeconds:     10 * time.Second,
		HeartbeatSeconds: 30 * time.Second,
		PrefetchSeconds:  10 * time.Second,
		Concurrency:      10,
	}
}

// Runner polls for scheduled flow runs and submits them as child
// processes, limited to cfg.Concurrency concurrent runs.
type Runner struct {
	id        string
	client    *orchestration.Client
	cfg       Config
	launch    Launcher
	logger    zerolog.Logger
	state     *RunnerState
	limiter   chan struct{}
	publisher events.Publisher

	submitLoop *criticalservice.Loop
	heartbeatLoop *criticalservice.Loop
	cancelLoop *criticalservice.Loop

	wg sync.WaitGroup
}

// New builds a Runner, defaulting its Launcher to spawning a real
// engine-host subprocess.
func New(id string, client *orchestration.Client, cfg Config) *Runner {
	r := &Runner{
		id:      id,
		client:  client,
		cfg:     cfg,
		logger:  logger.WithComponent("runner").With().Str("runner_id", id).Logger(),
		state:   newRunnerState(),
		limiter: make(chan struct{}, cfg.Concurrency),
	}
	r.launch = r.defaultLauncher
	return r
}

// WithLauncher overrides how flow runs are executed — used by tests to
// avoid shelling out.
func (r *Runner) WithLauncher(l Launcher) *Runner {
	r.launch = l
	return r
}

// WithPublisher wires an event publisher so flow run submissions,
// launches, and terminal outcomes are broadcast over it. Optional —
// a Runner with no publisher simply skips the broadcast.
func (r *Runner) WithPublisher(p events.Publisher) *Runner {
	r.publisher = p
	return r
}

// publishFlowRunEvent is a no-op when no publisher is wired. Publish
// errors are logged, never propagated — a down event bus must not
// stop the Runner from submitting or cancelling runs.
func (r *Runner) publishFlowRunEvent(ctx context.Context, eventType events.EventType, flowRunID uuid.UUID, state string, extra map[string]interface{}) {
	if r.publisher == nil {
		return
	}
	evt := events.NewEvent(eventType, events.FlowRunEventData(flowRunID.String(), state, extra))
	if err := r.publisher.Publish(ctx, evt); err != nil {
		r.logger.Warn().Err(err).Str("flow_run_id", flowRunID.String()).Msg("failed to publish flow run event")
	}
}

func (r *Runner) defaultLauncher(ctx context.Context, flowRunID uuid.UUID, recordPID func(pid int)) (int, error) {
	return runProcess(ctx, flowRunID, "flowcore-engine-host", nil, nil, recordPID)
}

// AddDeployment scopes the Runner's polling to deploymentID in
// addition to any already registered.
func (r *Runner) AddDeployment(id uuid.UUID) {
	r.state.addDeployment(id)
}

// Start runs the Runner's three critical-service loops until ctx is
// cancelled: submit (query interval), heartbeat (heartbeat interval),
// cancellation (2x query interval) — each independently jittered
// ±0.3, matching spec §4.2.
func (r *Runner) Start(ctx context.Context) error {
	if err := r.setup(ctx); err != nil {
		return fmt.Errorf("runner: setup: %w", err)
	}
	defer r.teardown(ctx)

	r.submitLoop = criticalservice.NewLoop("submit", r.cfg.QuerySeconds, 0.3, r.getAndSubmitFlowRuns)
	r.heartbeatLoop = criticalservice.NewLoop("heartbeat", r.cfg.HeartbeatSeconds, 0.3, r.sendHeartbeat)
	r.cancelLoop = criticalservice.NewLoop("cancellation", r.cfg.QuerySeconds*2, 0.3, r.checkForCancelledFlowRuns)

	r.wg.Add(3)
	go func() { defer r.wg.Done(); r.submitLoop.Run(ctx) }()
	go func() { defer r.wg.Done(); r.heartbeatLoop.Run(ctx) }()
	go func() { defer r.wg.Done(); r.cancelLoop.Run(ctx) }()

	r.logger.Info().Msg("runner started")
	<-ctx.Done()
	r.stopLoops()
	return nil
}

func (r *Runner) stopLoops() {
	if r.submitLoop != nil {
		r.submitLoop.Stop()
	}
	if r.heartbeatLoop != nil {
		r.heartbeatLoop.Stop()
	}
	if r.cancelLoop != nil {
		r.cancelLoop.Stop()
	}
	r.wg.Wait()
}

func (r *Runner) setup(ctx context.Context) error {
	r.logger.Debug().Msg("runner setup")
	return nil
}

// teardown cancels scheduled task scopes and pauses schedules (if
// configured). It does not wait for in-flight submissions or
// cancellations.
func (r *Runner) teardown(ctx context.Context) {
	r.state.cancelAllScheduledTasks()
	if r.cfg.PauseOnShutdown {
		r.pauseSchedules(ctx)
	}
	r.logger.Info().Msg("runner stopped")
}

func (r *Runner) pauseSchedules(ctx context.Context) {
	for _, id := range r.state.deploymentIDList() {
		if err := r.client.UpdateSchedule(ctx, id, false); err != nil {
			r.logger.Error().Err(err).Str("deployment_id", id.String()).Msg("failed to pause schedule")
		}
	}
}

// isRunnerStillPolling reports whether the submit loop has polled
// within queryIntervalSeconds*30 (10s -> 5m) — surfaced on the admin
// health endpoint for external liveness probes.
func (r *Runner) isRunnerStillPolling(queryIntervalSeconds time.Duration) bool {
	last := r.state.lastPolled()
	if last.IsZero() {
		return false
	}
	return time.Since(last) <= queryIntervalSeconds*30
}

// Status reports coarse Runner health for the admin surface.
type Status struct {
	ID               string    `json:"id"`
	ActiveFlowRuns   int       `json:"active_flow_runs"`
	LastPolledTime   time.Time `json:"last_polled_time"`
	StillPolling     bool      `json:"still_polling"`
}

func (r *Runner) GetStatus() Status {
	return Status{
		ID:             r.id,
		ActiveFlowRuns: len(r.state.runningFlowRunIDs()),
		LastPolledTime: r.state.lastPolled(),
		StillPolling:   r.isRunnerStillPolling(r.cfg.QuerySeconds),
	}
}

// ExecuteFlowRun runs a single named flow run synchronously, bypassing
// the polling main loop entirely — the original's ad hoc
// `execute_flow_run` one-shot mode, supplemented per SPEC_FULL §13.
func (r *Runner) ExecuteFlowRun(ctx context.Context, flowRunID uuid.UUID) error {
	recordPID := func(pid int) { r.state.setProcess(flowRunID, pid) }
	defer r.state.clearProcess(flowRunID)

	code, err := r.launch(ctx, flowRunID, recordPID)
	if err != nil && code == 0 {
		_, proposeErr := r.client.ProposeFlowRunState(ctx, flowRunID, engine.Crashed(err.Error()), true)
		return proposeErr
	}
	if code != 0 {
		return r.handleExitCode(ctx, flowRunID, code, err)
	}
	return nil
}

func (r *Runner) handleExitCode(ctx context.Context, flowRunID uuid.UUID, code int, runErr error) error {
	meaning := exitCodeMeaning(code)
	message := fmt.Sprintf("flow run process exited with code %d (%s)", code, meaning)
	var state engine.State
	eventType := events.EventFlowRunCrashed
	switch meaning {
	case "terminated", "killed":
		state = engine.Cancelled(message)
		eventType = events.EventFlowRunCancelled
	default:
		state = engine.Crashed(message)
	}
	metrics.RecordRunnerFlowRunExit(meaning)
	_, err := r.client.ProposeFlowRunState(ctx, flowRunID, state, true)
	if err != nil {
		return fmt.Errorf("runner: propose state after exit: %w", err)
	}
	r.publishFlowRunEvent(ctx, eventType, flowRunID, string(state.Type), map[string]interface{}{"exit_code": code})
	return runErr
}
