package runner

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRunnerState_MarkSubmittingIsExclusive(t *testing.T) {
	s := newRunnerState()
	id := uuid.New()

	assert.True(t, s.markSubmitting(id))
	assert.False(t, s.markSubmitting(id), "a second concurrent submit for the same run must be rejected")
	assert.True(t, s.isSubmitting(id))

	s.clearSubmitting(id)
	assert.False(t, s.isSubmitting(id))
	assert.True(t, s.markSubmitting(id), "after clearing, submission can be retried")
}

func TestRunnerState_ProcessTracking(t *testing.T) {
	s := newRunnerState()
	id := uuid.New()

	_, ok := s.process(id)
	assert.False(t, ok)

	s.setProcess(id, 1234)
	pid, ok := s.process(id)
	assert.True(t, ok)
	assert.Equal(t, 1234, pid)
	assert.Contains(t, s.runningFlowRunIDs(), id)

	s.clearProcess(id)
	_, ok = s.process(id)
	assert.False(t, ok)
}

func TestRunnerState_MarkCancellingIsExclusive(t *testing.T) {
	s := newRunnerState()
	id := uuid.New()

	assert.True(t, s.markCancelling(id))
	assert.False(t, s.markCancelling(id))
	assert.True(t, s.isCancelling(id))
}

func TestRunnerState_EvictStaleCancellations(t *testing.T) {
	s := newRunnerState()
	id := uuid.New()
	s.markCancelling(id)

	// backdate the entry past cancellingTTL
	s.mu.Lock()
	s.cancellingFlowRunIDs[id] = time.Now().Add(-cancellingTTL - time.Second)
	s.mu.Unlock()

	s.evictStaleCancellations()
	assert.False(t, s.isCancelling(id))
}

func TestRunnerState_CancelAllScheduledTasks(t *testing.T) {
	s := newRunnerState()
	_, cancel := context.WithCancel(context.Background())
	cancelled := false
	s.setScheduledTaskScope("key", func() { cancelled = true; cancel() })

	s.cancelAllScheduledTasks()
	assert.True(t, cancelled)
}

func TestRunnerState_TouchAndLastPolled(t *testing.T) {
	s := newRunnerState()
	assert.True(t, s.lastPolled().IsZero())

	s.touchPolled()
	assert.False(t, s.lastPolled().IsZero())
	assert.WithinDuration(t, time.Now(), s.lastPolled(), time.Second)
}

func TestRunnerState_DeploymentIDList(t *testing.T) {
	s := newRunnerState()
	a, b := uuid.New(), uuid.New()
	s.addDeployment(a)
	s.addDeployment(b)

	ids := s.deploymentIDList()
	assert.Len(t, ids, 2)
	assert.Contains(t, ids, a)
	assert.Contains(t, ids, b)
}
