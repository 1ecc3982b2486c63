package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient is a minimal in-memory engine.Client: every proposed state
// is accepted verbatim unless the test configures otherwise.
type fakeClient struct {
	mu        sync.Mutex
	proposals []State
	onPropose func(state State, force bool) ProposeResult
}

func (f *fakeClient) ReadTaskRun(ctx context.Context, id uuid.UUID) (*TaskRun, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeClient) SetTaskRunName(ctx context.Context, id uuid.UUID, name string) error {
	return nil
}

func (f *fakeClient) ProposeTaskRunState(ctx context.Context, taskRunID uuid.UUID, state State, force bool) (ProposeResult, error) {
	f.mu.Lock()
	f.proposals = append(f.proposals, state)
	f.mu.Unlock()

	if f.onPropose != nil {
		return f.onPropose(state, force), nil
	}
	return ProposeResult{State: state}, nil
}

func newRun() *TaskRun {
	return NewTaskRun("test-task", nil)
}

func TestRunTask_SuccessReturnsResult(t *testing.T) {
	client := &fakeClient{}
	task := NewTask("add", func(ctx context.Context, run *TaskRun, params Parameters) (any, error) {
		return params["a"].(int) + params["b"].(int), nil
	})

	result, err := RunTask(context.Background(), task, client, newRun(), Parameters{"a": 1, "b": 2}, nil, ReturnResult)

	require.NoError(t, err)
	assert.Equal(t, 3, result)
}

func TestRunTask_FailurePropagatesAsError(t *testing.T) {
	client := &fakeClient{}
	task := NewTask("boom", func(ctx context.Context, run *TaskRun, params Parameters) (any, error) {
		return nil, errors.New("kaboom")
	})

	_, err := RunTask(context.Background(), task, client, newRun(), nil, nil, ReturnResult)

	require.Error(t, err)
}

func TestRunTask_ReturnStateGivesFailedStateWithoutError(t *testing.T) {
	client := &fakeClient{}
	task := NewTask("boom", func(ctx context.Context, run *TaskRun, params Parameters) (any, error) {
		return nil, errors.New("kaboom")
	})

	state, err := RunTask(context.Background(), task, client, newRun(), nil, nil, ReturnState)

	require.NoError(t, err)
	st := state.(State)
	assert.Equal(t, StateFailed, st.Type)
}

func TestHandleRetry_RetriesUntilSuccess(t *testing.T) {
	client := &fakeClient{}
	attempts := 0
	task := NewTask("flaky", func(ctx context.Context, run *TaskRun, params Parameters) (any, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("transient")
		}
		return "ok", nil
	}, WithRetries(5))

	result, err := RunTask(context.Background(), task, client, newRun(), nil, nil, ReturnResult)

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, attempts)
}

func TestHandleRetry_StopsAtRetryLimit(t *testing.T) {
	client := &fakeClient{}
	attempts := 0
	task := NewTask("always-fails", func(ctx context.Context, run *TaskRun, params Parameters) (any, error) {
		attempts++
		return nil, errors.New("permanent")
	}, WithRetries(2))

	_, err := RunTask(context.Background(), task, client, newRun(), nil, nil, ReturnResult)

	require.Error(t, err)
	assert.Equal(t, 3, attempts) // initial attempt + 2 retries
}

func TestCanRetry_PanicTreatedAsDoNotRetry(t *testing.T) {
	client := &fakeClient{}
	attempts := 0
	task := NewTask("never-retry-on-panic", func(ctx context.Context, run *TaskRun, params Parameters) (any, error) {
		attempts++
		return nil, errors.New("fails")
	}, WithRetries(5), WithRetryCondition(func(task *Task, run *TaskRun, state State) bool {
		panic("retry_condition exploded")
	}))

	_, err := RunTask(context.Background(), task, client, newRun(), nil, nil, ReturnResult)

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRunTask_UpstreamFailureYieldsPendingNotReady(t *testing.T) {
	client := &fakeClient{}
	task := NewTask("downstream", func(ctx context.Context, run *TaskRun, params Parameters) (any, error) {
		t := true
		_ = t
		return "should not run", nil
	})

	upstream := newRun()
	upstream.State = Failed("", "upstream broke", nil)

	state, err := RunTask(context.Background(), task, client, newRun(), nil, []*TaskRun{upstream}, ReturnState)

	require.NoError(t, err)
	st := state.(State)
	assert.Equal(t, StatePending, st.Type)
	assert.Equal(t, "NotReady", st.Name)
}

func TestRunTask_CachedResultSkipsInvocation(t *testing.T) {
	client := &fakeClient{}
	store := newMemoryResultStore()
	invocations := 0

	cacheKey := func(task *Task, params Parameters) string { return "fixed-key" }
	task := NewTask("cacheable", func(ctx context.Context, run *TaskRun, params Parameters) (any, error) {
		invocations++
		return "computed", nil
	}, WithCacheKeyFn(cacheKey), WithResultStorage(store))

	result1, err := RunTask(context.Background(), task, client, newRun(), nil, nil, ReturnResult)
	require.NoError(t, err)
	assert.Equal(t, "computed", result1)
	assert.Equal(t, 1, invocations)

	result2, err := RunTask(context.Background(), task, client, newRun(), nil, nil, ReturnResult)
	require.NoError(t, err)
	assert.Equal(t, "computed", result2)
	assert.Equal(t, 1, invocations, "second run should hit the cache, not re-invoke")
}

func TestSetState_AbortedProposalSurfacesAsError(t *testing.T) {
	client := &fakeClient{
		onPropose: func(state State, force bool) ProposeResult {
			return ProposeResult{Aborted: true, Reason: "flow run cancelled"}
		},
	}
	task := NewTask("aborted", func(ctx context.Context, run *TaskRun, params Parameters) (any, error) {
		return "unreachable", nil
	})

	_, err := RunTask(context.Background(), task, client, newRun(), nil, nil, ReturnResult)

	require.Error(t, err)
	var abort *AbortSignal
	assert.ErrorAs(t, err, &abort)
}

func TestHandleTimeout_ExceedingTaskTimeoutFails(t *testing.T) {
	client := &fakeClient{}
	task := NewTask("slow", func(ctx context.Context, run *TaskRun, params Parameters) (any, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(200 * time.Millisecond):
			return "too slow", nil
		}
	}, WithTimeout(10*time.Millisecond))

	state, err := RunTask(context.Background(), task, client, newRun(), nil, nil, ReturnState)

	require.NoError(t, err)
	st := state.(State)
	assert.Equal(t, StateFailed, st.Type)
	assert.Equal(t, "TimedOut", st.Name)
}

// memoryResultStore is a minimal engine.ResultStore for tests.
type memoryResultStore struct {
	mu   sync.Mutex
	data map[string]Result
}

func newMemoryResultStore() *memoryResultStore {
	return &memoryResultStore{data: make(map[string]Result)}
}

func (m *memoryResultStore) Get(ctx context.Context, key string) (Result, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.data[key]
	return r, ok, nil
}

func (m *memoryResultStore) Put(ctx context.Context, key string, result Result, expiresAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = result
	return nil
}
