package engine

import (
	"time"

	"github.com/google/uuid"
)

// InputReference records where one of a task run's inputs came from,
// so the orchestration API can build a dependency graph between runs.
type InputReference struct {
	TaskRunID uuid.UUID `json:"task_run_id"`
}

// TaskRun is the mutable record of one invocation of a Task: its
// identity, current state, and the upstream runs its parameters
// depended on.
type TaskRun struct {
	ID         uuid.UUID                  `json:"id"`
	Name       string                     `json:"name"`
	FlowRunID  *uuid.UUID                 `json:"flow_run_id,omitempty"`
	State      State                      `json:"state"`
	TaskInputs map[string][]InputReference `json:"task_inputs,omitempty"`
	CreatedAt  time.Time                  `json:"created_at"`
}

// NewTaskRun creates a TaskRun in the initial Pending state.
func NewTaskRun(name string, flowRunID *uuid.UUID) *TaskRun {
	return &TaskRun{
		ID:        uuid.New(),
		Name:      name,
		FlowRunID: flowRunID,
		State:     Pending("", ""),
		CreatedAt: time.Now().UTC(),
	}
}
