package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/maumercado/flowcore/internal/logger"
	"github.com/maumercado/flowcore/internal/metrics"
)

// ReturnType selects what RunTask hands back to its caller once a task
// run reaches a terminal state.
type ReturnType int

const (
	// ReturnResult unwraps a Completed state's data and returns it,
	// or turns any other terminal state into an error.
	ReturnResult ReturnType = iota
	// ReturnState returns the terminal State untouched, regardless of
	// its type.
	ReturnState
)

// TaskRunEngine drives a single TaskRun through the state machine: it
// resolves parameters, proposes state transitions to the orchestration
// API, runs the task body, classifies the outcome, and retries or
// finalizes accordingly. One TaskRunEngine handles exactly one
// invocation; it is not reused across retries of a *flow* run.
type TaskRunEngine struct {
	Task         *Task
	client       Client
	TaskRun      *TaskRun
	Parameters   Parameters
	WaitFor      []*TaskRun
	retries      int
	logger       zerolog.Logger
	onTransition func(run *TaskRun, state State)
}

// OnTransition registers fn to be called synchronously every time the
// engine's proposed state is accepted by the orchestration API, so a
// caller can broadcast task run events without this package importing
// the events/websocket stack. Nothing in this module registers one.
func (e *TaskRunEngine) OnTransition(fn func(run *TaskRun, state State)) {
	e.onTransition = fn
}

// NewTaskRunEngine builds an engine for one invocation of task, bound
// to run, talking to client for state proposals.
func NewTaskRunEngine(task *Task, client Client, run *TaskRun, params Parameters, waitFor []*TaskRun) *TaskRunEngine {
	return &TaskRunEngine{
		Task:       task,
		client:     client,
		TaskRun:    run,
		Parameters: params,
		WaitFor:    waitFor,
		logger:     logger.WithTaskRun(run.ID.String()),
	}
}

// RunTask executes task end to end: creates and drives a TaskRunEngine,
// then converts the terminal state per returnType.
func RunTask(ctx context.Context, task *Task, client Client, run *TaskRun, params Parameters, waitFor []*TaskRun, returnType ReturnType) (any, error) {
	eng := NewTaskRunEngine(task, client, run, params, waitFor)
	state, err := eng.Run(ctx)
	if err != nil {
		return nil, err
	}
	if returnType == ReturnState {
		return state, nil
	}
	if state.Type != StateCompleted {
		return nil, fmt.Errorf("task run %s finished in state %s: %s", run.ID, state.Type, state.Message)
	}
	return state.Data, nil
}

// Run drives the task run from Pending through to a terminal state (or
// a stable Pending{NotReady} when an upstream dependency never becomes
// usable), returning the final State.
func (e *TaskRunEngine) Run(ctx context.Context) (State, error) {
	running, err := e.beginRun(ctx)
	if err != nil {
		return State{}, err
	}
	if running.Type != StateRunning {
		// begin_run parked the run in Pending{NotReady}: no retry loop to
		// drive here, the caller (or a future re-submission) is responsible
		// for trying again once the upstream is ready.
		return running, nil
	}
	return e.callTaskFn(ctx)
}

// beginRun resolves parameters and wait_for dependencies, proposes
// Running, and — mirroring the original's poll loop — keeps
// re-proposing Running on a growing, jittered backoff for as long as
// the orchestration API responds with Pending or Paused (e.g. a
// concurrency-limited slot, or an operator-requested pause).
func (e *TaskRunEngine) beginRun(ctx context.Context) (State, error) {
	resolved, err := resolveParameters(e.Parameters)
	if err != nil {
		return e.handleNotReady(ctx, err)
	}
	if err := waitForDependencies(e.WaitFor); err != nil {
		return e.handleNotReady(ctx, err)
	}
	e.Parameters = resolved

	details := e.computeStateDetails(false)
	state, err := e.setState(ctx, Running(details), e.TaskRun.State.Type.IsPending())
	if err != nil {
		return State{}, err
	}

	backoff := &pendingBackoff{}
	for state.Type.IsPending() || state.Type.IsPaused() {
		wait := backoff.next()
		select {
		case <-ctx.Done():
			return State{}, ctx.Err()
		case <-time.After(wait):
		}
		state, err = e.setState(ctx, Running(details), false)
		if err != nil {
			return State{}, err
		}
	}
	return state, nil
}

func (e *TaskRunEngine) handleNotReady(ctx context.Context, cause error) (State, error) {
	state, err := e.setState(ctx, Pending("NotReady", cause.Error()), e.TaskRun.State.Type.IsPending())
	if err != nil {
		return State{}, err
	}
	return state, nil
}

// setState proposes state to the orchestration API and folds the
// three-way result (accepted / aborted / paused) into either an
// updated State or a control-flow error.
func (e *TaskRunEngine) setState(ctx context.Context, state State, force bool) (State, error) {
	result, err := e.client.ProposeTaskRunState(ctx, e.TaskRun.ID, state, force)
	if err != nil {
		return State{}, fmt.Errorf("propose state: %w", err)
	}
	if result.Aborted {
		return State{}, &AbortSignal{Reason: result.Reason}
	}
	newState := result.State
	if result.Paused {
		newState = Paused(state.Details.PauseReschedule)
	}
	e.TaskRun.State = newState
	metrics.RecordEngineStateTransition(string(newState.Type))
	if e.onTransition != nil {
		e.onTransition(e.TaskRun, newState)
	}
	if result.Paused && newState.Details.PauseReschedule {
		return newState, &PauseSignal{State: newState}
	}
	return newState, nil
}

// callTaskFn checks the cache, then (on a miss) runs the task body
// under its configured timeout, classifying the outcome into the
// appropriate terminal or retry transition.
func (e *TaskRunEngine) callTaskFn(ctx context.Context) (State, error) {
	if cached, ok := e.checkCache(ctx); ok {
		return e.handleSuccess(ctx, cached, true)
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if e.Task.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, e.Task.Timeout)
		defer cancel()
	}

	result, err := e.invoke(runCtx)
	switch {
	case err == nil:
		return e.handleSuccess(ctx, result, false)
	case isCrash(runCtx, err):
		return e.handleCrash(ctx, err)
	case isTimeout(runCtx, err):
		return e.handleTimeout(ctx, err)
	default:
		return e.handleException(ctx, err)
	}
}

// invoke runs the task body, converting a panic into an error so the
// caller can classify it as a crash exactly like any other fatal
// failure, instead of taking down the host process.
func (e *TaskRunEngine) invoke(ctx context.Context) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errTaskPanicked, r)
		}
	}()
	return e.Task.Fn(ctx, e.TaskRun, e.Parameters)
}

// errTaskPanicked wraps the error invoke returns for a recovered panic.
var errTaskPanicked = errors.New("task panicked")

func isTimeout(ctx context.Context, err error) bool {
	return ctx.Err() == context.DeadlineExceeded
}

func isCrash(ctx context.Context, err error) bool {
	return errors.Is(err, errTaskPanicked) || ctx.Err() == context.Canceled
}

func (e *TaskRunEngine) handleSuccess(ctx context.Context, result any, fromCache bool) (State, error) {
	details := e.computeStateDetails(true)
	state, err := e.setState(ctx, Completed(result, details), false)
	if err != nil {
		return State{}, err
	}
	if !fromCache && e.Task.PersistResult && e.Task.ResultStorage != nil && details.CacheKey != nil {
		_ = e.Task.ResultStorage.Put(ctx, *details.CacheKey, Result{Value: result, Retrieved: true}, details.CacheExpiration)
	}
	runHooks(e.Task.OnCompletion, e.Task, e.TaskRun, state)
	return state, nil
}

// handleRetry reports whether the run should be retried, transitioning
// it to Retrying and bumping the retry counter when it does.
func (e *TaskRunEngine) handleRetry(ctx context.Context, cause error) bool {
	if e.retries >= e.Task.Retries || !e.canRetry(cause) {
		return false
	}
	if _, err := e.setState(ctx, Retrying(), true); err != nil {
		return false
	}
	e.retries++
	metrics.RecordEngineRetry(e.Task.Name)
	return true
}

// canRetry evaluates the task's retry condition, treating a missing
// condition as "always retry" and a panicking one as "never retry" —
// the spec's "errors in retry_condition_fn are treated as do not
// retry" rule.
func (e *TaskRunEngine) canRetry(cause error) (ok bool) {
	if e.Task.RetryCondition == nil {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn().Interface("panic", r).Msg("retry condition panicked, not retrying")
			ok = false
		}
	}()
	return e.Task.RetryCondition(e.Task, e.TaskRun, e.TaskRun.State)
}

func (e *TaskRunEngine) handleException(ctx context.Context, cause error) (State, error) {
	if e.handleRetry(ctx, cause) {
		return e.callTaskFn(ctx)
	}
	state, err := e.setState(ctx, Failed("", "task run encountered an exception", cause.Error()), false)
	if err != nil {
		return State{}, err
	}
	runHooks(e.Task.OnFailure, e.Task, e.TaskRun, state)
	return state, nil
}

func (e *TaskRunEngine) handleTimeout(ctx context.Context, cause error) (State, error) {
	message := fmt.Sprintf("task run exceeded timeout of %s", e.Task.Timeout)
	e.logger.Error().Msg(message)
	state, err := e.setState(ctx, Failed("TimedOut", message, cause.Error()), false)
	if err != nil {
		return State{}, err
	}
	runHooks(e.Task.OnFailure, e.Task, e.TaskRun, state)
	return state, nil
}

func (e *TaskRunEngine) handleCrash(ctx context.Context, cause error) (State, error) {
	e.logger.Error().Err(cause).Msg("crash detected")
	state, err := e.setState(ctx, Crashed(cause.Error()), true)
	if err != nil {
		return State{}, err
	}
	runHooks(e.Task.OnFailure, e.Task, e.TaskRun, state)
	return state, nil
}

// checkCache looks up a cache hit for the task's computed cache key,
// skipping the lookup entirely when the task has no CacheKeyFn or
// refreshing is in effect (the task's own RefreshCache, or the
// process-wide PREFECT_TASKS_REFRESH_CACHE fallback when the task
// doesn't set one).
func (e *TaskRunEngine) checkCache(ctx context.Context) (any, bool) {
	if e.Task.CacheKeyFn == nil || e.Task.ResultStorage == nil {
		return nil, false
	}
	if refreshCacheFor(e.Task) {
		return nil, false
	}
	key := e.Task.CacheKeyFn(e.Task, e.Parameters)
	result, ok, err := e.Task.ResultStorage.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	metrics.RecordEngineCacheHit(e.Task.Name)
	return result.Value, true
}

// refreshCacheFor resolves task's effective RefreshCache: its own
// setting if given, else the process-wide default.
func refreshCacheFor(task *Task) bool {
	if task.RefreshCache != nil {
		return *task.RefreshCache
	}
	return defaultRefreshCache
}

// computeStateDetails builds the StateDetails for a proposed state,
// including the cache expiration only when the caller is about to
// propose a terminal Completed state — the spec's rule that cache
// expiration is only meaningful once a result actually exists.
func (e *TaskRunEngine) computeStateDetails(includeCacheExpiration bool) StateDetails {
	details := StateDetails{}
	if e.Task.CacheKeyFn != nil {
		key := e.Task.CacheKeyFn(e.Task, e.Parameters)
		details.CacheKey = &key
	}
	details.RefreshCache = refreshCacheFor(e.Task)
	if includeCacheExpiration && e.Task.CacheExpiration > 0 {
		expiry := time.Now().Add(e.Task.CacheExpiration)
		details.CacheExpiration = &expiry
	}
	return details
}
