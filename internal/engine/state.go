package engine

import "time"

// StateType identifies the position of a TaskRun in the state machine.
type StateType string

const (
	// StateScheduled is a flow-run-only state type: the orchestration
	// API places a deployment's flow runs here ahead of their
	// scheduled start time. The Task Engine's own state machine never
	// produces it — the Runner is the only consumer, selecting
	// Scheduled flow runs off the API and transitioning them to
	// Pending as it submits each one.
	StateScheduled  StateType = "SCHEDULED"
	StatePending    StateType = "PENDING"
	StateRunning    StateType = "RUNNING"
	StatePaused     StateType = "PAUSED"
	StateRetrying   StateType = "RETRYING"
	StateCompleted  StateType = "COMPLETED"
	StateFailed     StateType = "FAILED"
	StateCrashed    StateType = "CRASHED"
	StateCancelling StateType = "CANCELLING"
	StateCancelled  StateType = "CANCELLED"
)

// IsFinal reports whether a state type ends the task run's lifecycle.
func (t StateType) IsFinal() bool {
	switch t {
	case StateCompleted, StateFailed, StateCrashed, StateCancelled:
		return true
	default:
		return false
	}
}

// IsPending reports whether the type is Pending (used to drive the
// begin-run backoff loop).
func (t StateType) IsPending() bool {
	return t == StatePending
}

// IsPaused reports whether the type is Paused (used to drive the
// begin-run backoff loop).
func (t StateType) IsPaused() bool {
	return t == StatePaused
}

// StateDetails carries the extra bookkeeping a state needs beyond its
// type, name and message: cache coordinates and pause/reschedule info.
type StateDetails struct {
	CacheKey         *string    `json:"cache_key,omitempty"`
	RefreshCache     bool       `json:"refresh_cache,omitempty"`
	CacheExpiration  *time.Time `json:"cache_expiration,omitempty"`
	PauseReschedule  bool       `json:"pause_reschedule,omitempty"`
	UntrackedResult  bool       `json:"untracked_result,omitempty"`
}

// State is a point-in-time snapshot of a TaskRun's position in the
// state machine, as proposed to or accepted by the orchestration API.
type State struct {
	Type      StateType    `json:"type"`
	Name      string       `json:"name,omitempty"`
	Message   string       `json:"message,omitempty"`
	Data      any          `json:"data,omitempty"`
	Details   StateDetails `json:"state_details,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

func newState(t StateType, name, message string) State {
	return State{Type: t, Name: name, Message: message, Timestamp: time.Now().UTC()}
}

// Pending builds a Pending state, optionally named (e.g. "NotReady").
func Pending(name, message string) State {
	return newState(StatePending, name, message)
}

// Running builds a Running state carrying the supplied details.
func Running(details StateDetails) State {
	s := newState(StateRunning, "", "")
	s.Details = details
	return s
}

// Retrying builds a Retrying state.
func Retrying() State {
	return newState(StateRetrying, "", "")
}

// Completed builds a terminal Completed state wrapping a task result.
func Completed(result any, details StateDetails) State {
	s := newState(StateCompleted, "", "")
	s.Data = result
	s.Details = details
	return s
}

// Failed builds a terminal Failed state, optionally named (e.g.
// "TimedOut").
func Failed(name, message string, data any) State {
	s := newState(StateFailed, name, message)
	s.Data = data
	return s
}

// Crashed builds a terminal Crashed state.
func Crashed(message string) State {
	return newState(StateCrashed, "", message)
}

// Cancelled builds a terminal Cancelled state.
func Cancelled(message string) State {
	return newState(StateCancelled, "", message)
}

// Paused builds a Paused state, optionally set up for out-of-process
// reschedule.
func Paused(reschedule bool) State {
	s := newState(StatePaused, "", "")
	s.Details.PauseReschedule = reschedule
	return s
}
