package orchestration

import (
	"time"

	"github.com/google/uuid"

	"github.com/maumercado/flowcore/internal/engine"
)

// FlowRun is the subset of a remote flow run record the Runner needs:
// enough to decide whether to submit it and how to launch it.
type FlowRun struct {
	ID                     uuid.UUID  `json:"id"`
	DeploymentID           *uuid.UUID `json:"deployment_id,omitempty"`
	Name                   string     `json:"name"`
	NextScheduledStartTime *time.Time `json:"next_scheduled_start_time,omitempty"`
	State                  engine.State `json:"state"`
}

// StateTypeFilter narrows a ReadFlowRuns call to flow runs whose state
// type is one of the given values.
type StateTypeFilter struct {
	Any []engine.StateType
}

// Filter selects which flow runs ReadFlowRuns returns. Zero-value
// fields are omitted from the query.
type Filter struct {
	DeploymentIDs       []uuid.UUID
	FlowRunIDs          []uuid.UUID
	StateType           StateTypeFilter
	StateNames          []string
	ScheduledStartsBefore *time.Time
	ScheduledStartsAfter  *time.Time
	Limit               int
}

// Deployment is the subset of a remote deployment record the Runner
// needs to decide whether it may run a flow run locally.
type Deployment struct {
	ID                uuid.UUID  `json:"id"`
	Name              string     `json:"name"`
	StorageDocumentID *uuid.UUID `json:"storage_document_id,omitempty"`
}

// UsesRemoteStorage reports whether the deployment's flow code must be
// pulled from a remote storage block before it can run — such
// deployments are out of scope for a Runner that only executes local
// code (spec §4.2's storage-block precheck).
func (d Deployment) UsesRemoteStorage() bool {
	return d.StorageDocumentID != nil
}
