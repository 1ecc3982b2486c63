package engine

import (
	"context"
	"errors"
)

// ErrTaskRunNotSet is returned when an operation needs an active task
// run but the engine has not started one yet.
var ErrTaskRunNotSet = errors.New("engine: task run is not set")

// ErrResultFactoryNotSet is returned when a terminal state needs to
// persist a result but no result store was configured for the task.
var ErrResultFactoryNotSet = errors.New("engine: result factory is not set")

// UpstreamTaskError is raised while resolving parameters when an
// upstream future did not reach a usable (Completed) state. The engine
// turns this into a Pending{NotReady} state rather than failing the
// run outright.
type UpstreamTaskError struct {
	Upstream string
	State    StateType
}

func (e *UpstreamTaskError) Error() string {
	return "upstream task run " + e.Upstream + " is in state " + string(e.State) + ", not ready"
}

// TimeoutError marks a task body that exceeded its configured timeout.
// It wraps context.DeadlineExceeded so callers can match with errors.Is.
type TimeoutError struct {
	Seconds float64
}

func (e *TimeoutError) Error() string {
	return "task run exceeded timeout"
}

func (e *TimeoutError) Unwrap() error { return context.DeadlineExceeded }

// AbortSignal is returned by the engine when the orchestration API
// refuses a proposed state transition outright (no retry is possible).
type AbortSignal struct {
	Reason string
}

func (e *AbortSignal) Error() string { return "state transition aborted: " + e.Reason }

// PauseSignal is returned by the engine when the orchestration API
// responds to a proposed state with an out-of-band pause instead.
type PauseSignal struct {
	State State
}

func (e *PauseSignal) Error() string { return "state transition paused" }
