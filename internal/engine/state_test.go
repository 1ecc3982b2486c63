package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateType_IsFinal(t *testing.T) {
	final := []StateType{StateCompleted, StateFailed, StateCrashed, StateCancelled}
	for _, s := range final {
		assert.True(t, s.IsFinal(), "%s should be final", s)
	}

	nonFinal := []StateType{StatePending, StateRunning, StatePaused, StateRetrying, StateCancelling}
	for _, s := range nonFinal {
		assert.False(t, s.IsFinal(), "%s should not be final", s)
	}
}

func TestStateType_IsPendingIsPaused(t *testing.T) {
	assert.True(t, StatePending.IsPending())
	assert.False(t, StateRunning.IsPending())

	assert.True(t, StatePaused.IsPaused())
	assert.False(t, StateRunning.IsPaused())
}

func TestCompleted_CarriesResultAndDetails(t *testing.T) {
	key := "cache-key"
	details := StateDetails{CacheKey: &key}

	s := Completed(42, details)

	assert.Equal(t, StateCompleted, s.Type)
	assert.Equal(t, 42, s.Data)
	assert.Equal(t, &key, s.Details.CacheKey)
	assert.False(t, s.Timestamp.IsZero())
}

func TestFailed_NamedVariant(t *testing.T) {
	s := Failed("TimedOut", "task run exceeded timeout", "deadline exceeded")

	assert.Equal(t, StateFailed, s.Type)
	assert.Equal(t, "TimedOut", s.Name)
	assert.Equal(t, "task run exceeded timeout", s.Message)
	assert.True(t, s.Type.IsFinal())
}

func TestPaused_SetsPauseReschedule(t *testing.T) {
	s := Paused(true)

	assert.Equal(t, StatePaused, s.Type)
	assert.True(t, s.Details.PauseReschedule)
	assert.True(t, s.Type.IsPaused())
}
