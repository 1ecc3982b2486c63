package engine

import (
	"context"

	"github.com/google/uuid"
)

// Client is the slice of the orchestration API the engine depends on.
// internal/orchestration.Client satisfies this interface structurally;
// declaring it here (rather than importing internal/orchestration)
// keeps this package free of a dependency on the transport layer, so
// engine tests run against hand-written fakes with no network.
type Client interface {
	ReadTaskRun(ctx context.Context, id uuid.UUID) (*TaskRun, error)
	SetTaskRunName(ctx context.Context, id uuid.UUID, name string) error
	ProposeTaskRunState(ctx context.Context, taskRunID uuid.UUID, state State, force bool) (ProposeResult, error)
}

// ProposeResult is the three-way outcome of proposing a state to the
// orchestration API: it is accepted as-is (possibly with a different
// State than proposed, e.g. a concurrency-limited Pending), it is
// aborted outright, or the API pushes back with a Paused state instead.
type ProposeResult struct {
	State   State
	Aborted bool
	Reason  string
	Paused  bool
}
