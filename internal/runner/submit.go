package runner

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/maumercado/flowcore/internal/engine"
	"github.com/maumercado/flowcore/internal/events"
	"github.com/maumercado/flowcore/internal/metrics"
	"github.com/maumercado/flowcore/internal/orchestration"
)

// getAndSubmitFlowRuns is the submit loop's body: it queries for flow
// runs scheduled to start within PrefetchSeconds against this
// Runner's registered deployments, and submits each one that isn't
// already in flight, in ascending next_scheduled_start_time order,
// stopping the tick as soon as capacity runs out.
func (r *Runner) getAndSubmitFlowRuns(ctx context.Context) error {
	r.state.touchPolled()
	metrics.SetRunnerPollLag(0)

	deploymentIDs := r.state.deploymentIDList()
	if len(deploymentIDs) == 0 {
		return nil
	}

	before := time.Now().Add(r.cfg.PrefetchSeconds)
	runs, err := r.client.ReadFlowRuns(ctx, orchestration.Filter{
		DeploymentIDs:         deploymentIDs,
		StateType:             orchestration.StateTypeFilter{Any: []engine.StateType{engine.StateScheduled}},
		ScheduledStartsBefore: &before,
		Limit:                 r.cfg.Concurrency,
	})
	if err != nil {
		return err
	}

	sort.Slice(runs, func(i, j int) bool {
		return scheduledStartTime(runs[i]).Before(scheduledStartTime(runs[j]))
	})

	for _, run := range runs {
		run := run
		if !r.state.markSubmitting(run.ID) {
			continue
		}

		select {
		case r.limiter <- struct{}{}:
		default:
			r.state.clearSubmitting(run.ID)
			r.logger.Debug().Str("flow_run_id", run.ID.String()).Msg("submission limiter full, stopping this tick")
			return nil
		}

		go r.submitRunAndCaptureErrors(ctx, run)
	}
	return nil
}

// scheduledStartTime returns run's next scheduled start, or the zero
// time if unset, so unscheduled runs sort first rather than panicking
// on a nil dereference.
func scheduledStartTime(run orchestration.FlowRun) time.Time {
	if run.NextScheduledStartTime == nil {
		return time.Time{}
	}
	return *run.NextScheduledStartTime
}

func (r *Runner) submitRunAndCaptureErrors(ctx context.Context, run orchestration.FlowRun) {
	if err := r.submitRun(ctx, run); err != nil {
		r.logger.Error().Err(err).Str("flow_run_id", run.ID.String()).Msg("failed to submit flow run")
	}
}

// submitRun has already had its capacity slot acquired by
// getAndSubmitFlowRuns; it runs the storage-block precheck, proposes
// the Pending transition, and launches the child process, releasing
// the slot on any early exit.
func (r *Runner) submitRun(ctx context.Context, run orchestration.FlowRun) error {
	defer r.state.clearSubmitting(run.ID)

	release := func() {
		<-r.limiter
		metrics.SetRunnerActiveProcesses(float64(len(r.state.runningFlowRunIDs())))
	}

	ok, err := r.checkFlowRun(ctx, run)
	if err != nil || !ok {
		release()
		return err
	}

	ok, err = r.proposePendingState(ctx, run.ID)
	if err != nil || !ok {
		release()
		return err
	}

	r.publishFlowRunEvent(ctx, events.EventFlowRunSubmitted, run.ID, string(engine.StatePending), nil)
	go r.runSubmittedFlowRun(ctx, run.ID, release)
	return nil
}

// checkFlowRun is the Runner's storage-block precheck: a deployment
// backed by remote storage needs a worker that can pull that storage,
// which this Runner — local-code-only — cannot do. Such runs are left
// alone for a capable worker to pick up instead of being launched
// against code that isn't there.
func (r *Runner) checkFlowRun(ctx context.Context, run orchestration.FlowRun) (bool, error) {
	if run.DeploymentID == nil {
		return true, nil
	}
	deployment, err := r.client.ReadDeployment(ctx, *run.DeploymentID)
	if err != nil {
		return false, err
	}
	if deployment.UsesRemoteStorage() {
		r.logger.Debug().
			Str("flow_run_id", run.ID.String()).
			Str("deployment_id", run.DeploymentID.String()).
			Msg("skipping flow run: deployment uses remote storage")
		return false, nil
	}
	return true, nil
}

func (r *Runner) runSubmittedFlowRun(ctx context.Context, flowRunID uuid.UUID, release func()) {
	defer release()
	metrics.RecordRunnerSubmission()
	metrics.SetRunnerActiveProcesses(float64(len(r.state.runningFlowRunIDs()) + 1))
	r.publishFlowRunEvent(ctx, events.EventFlowRunRunning, flowRunID, string(engine.StateRunning), nil)

	recordPID := func(pid int) { r.state.setProcess(flowRunID, pid) }
	defer r.state.clearProcess(flowRunID)

	code, err := r.launch(ctx, flowRunID, recordPID)
	if code != 0 || err != nil {
		if handleErr := r.handleExitCode(ctx, flowRunID, code, err); handleErr != nil {
			r.logger.Error().Err(handleErr).Str("flow_run_id", flowRunID.String()).Msg("failed to report flow run exit")
		}
	}
}

// proposePendingState is the Runner's own precheck before it commits a
// process slot to a run: propose Pending so a concurrency-limited or
// already-claimed run bounces back cleanly instead of double-launching.
func (r *Runner) proposePendingState(ctx context.Context, flowRunID uuid.UUID) (bool, error) {
	result, err := r.client.ProposeFlowRunState(ctx, flowRunID, engine.Pending("", ""), false)
	if err != nil {
		return false, err
	}
	if result.Aborted || result.State.Type != engine.StatePending {
		return false, nil
	}
	return true, nil
}
