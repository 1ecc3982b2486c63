package orchestration

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maumercado/flowcore/internal/engine"
)

func TestEncodeFilter_OmitsZeroValueFields(t *testing.T) {
	q, err := encodeFilter(Filter{})
	require.NoError(t, err)
	assert.Empty(t, q)
}

func TestEncodeFilter_DeploymentIDsAndStateType(t *testing.T) {
	dep := uuid.New()
	f := Filter{
		DeploymentIDs: []uuid.UUID{dep},
		StateType:     StateTypeFilter{Any: []engine.StateType{engine.StatePending, engine.StateRunning}},
		Limit:         25,
	}

	q, err := encodeFilter(f)
	require.NoError(t, err)

	assert.Contains(t, q.Get("deployment_id"), dep.String())
	assert.Contains(t, q["state_type"], "PENDING")
	assert.Contains(t, q["state_type"], "RUNNING")
	assert.Equal(t, "25", q.Get("limit"))
}

func TestEncodeFilter_FlowRunIDs(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	q, err := encodeFilter(Filter{FlowRunIDs: []uuid.UUID{a, b}})
	require.NoError(t, err)

	assert.Contains(t, q["flow_run_id"], a.String())
	assert.Contains(t, q["flow_run_id"], b.String())
}
