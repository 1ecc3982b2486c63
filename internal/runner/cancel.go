package runner

import (
	"context"

	"github.com/google/uuid"

	"github.com/maumercado/flowcore/internal/engine"
	"github.com/maumercado/flowcore/internal/events"
	"github.com/maumercado/flowcore/internal/metrics"
	"github.com/maumercado/flowcore/internal/orchestration"
)

// checkForCancelledFlowRuns is the cancellation loop's body. It runs a
// dual query against the orchestration API — runs whose StateType is
// Cancelling, and runs whose StateType is Cancelled but whose state
// name is still "Cancelling" — since the two can diverge depending on
// how the cancellation was set (spec §9 Open Question: this Runner
// preserves both queries rather than picking one, until the server
// guarantees a single canonical representation).
func (r *Runner) checkForCancelledFlowRuns(ctx context.Context) error {
	r.state.evictStaleCancellations()

	deploymentIDs := r.state.deploymentIDList()
	if len(deploymentIDs) == 0 {
		return nil
	}

	cancelling, err := r.client.ReadFlowRuns(ctx, orchestration.Filter{
		DeploymentIDs: deploymentIDs,
		StateType:     orchestration.StateTypeFilter{Any: []engine.StateType{engine.StateCancelling}},
	})
	if err != nil {
		return err
	}

	cancelledNamedCancelling, err := r.client.ReadFlowRuns(ctx, orchestration.Filter{
		DeploymentIDs: deploymentIDs,
		StateType:     orchestration.StateTypeFilter{Any: []engine.StateType{engine.StateCancelled}},
		StateNames:    []string{"Cancelling"},
	})
	if err != nil {
		return err
	}

	runs := dedupeFlowRuns(cancelling, cancelledNamedCancelling)

	for _, run := range runs {
		if r.state.isCancelling(run.ID) {
			continue
		}
		if _, ok := r.state.process(run.ID); !ok {
			// Not ours to kill (e.g. already exited); mark the API state
			// directly instead of hunting for a process.
			if err := r.markFlowRunCancelled(ctx, run.ID); err != nil {
				r.logger.Error().Err(err).Str("flow_run_id", run.ID.String()).Msg("failed to mark orphaned run cancelled")
			}
			continue
		}
		r.state.markCancelling(run.ID)
		go r.cancelRun(ctx, run.ID)
	}
	return nil
}

// dedupeFlowRuns merges one or more result sets by flow run ID,
// preserving the order runs were first seen in.
func dedupeFlowRuns(sets ...[]orchestration.FlowRun) []orchestration.FlowRun {
	seen := make(map[uuid.UUID]struct{})
	var out []orchestration.FlowRun
	for _, set := range sets {
		for _, run := range set {
			if _, ok := seen[run.ID]; ok {
				continue
			}
			seen[run.ID] = struct{}{}
			out = append(out, run)
		}
	}
	return out
}

// cancelRun kills the child process owning flowRunID and proposes the
// terminal Cancelled state once it's gone. If the kill fails, the run
// is dropped from the cancelling set so the next tick retries it.
func (r *Runner) cancelRun(ctx context.Context, flowRunID uuid.UUID) {
	log := r.logger.With().Str("flow_run_id", flowRunID.String()).Logger()

	pid, ok := r.state.process(flowRunID)
	if !ok {
		return
	}
	if err := killProcess(ctx, pid); err != nil {
		log.Error().Err(err).Int("pid", pid).Msg("failed to kill flow run process")
		r.state.mu.Lock()
		delete(r.state.cancellingFlowRunIDs, flowRunID)
		r.state.mu.Unlock()
		return
	}

	metrics.RecordRunnerCancellation()
	if err := r.markFlowRunCancelled(ctx, flowRunID); err != nil {
		log.Error().Err(err).Msg("failed to propose cancelled state")
	}
}

func (r *Runner) markFlowRunCancelled(ctx context.Context, flowRunID uuid.UUID) error {
	_, err := r.client.ProposeFlowRunState(ctx, flowRunID, engine.Cancelled("flow run cancelled by runner"), true)
	if err == nil {
		r.publishFlowRunEvent(ctx, events.EventFlowRunCancelled, flowRunID, string(engine.StateCancelled), nil)
	}
	return err
}
