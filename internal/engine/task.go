package engine

import (
	"context"
	"time"
)

// Parameters is the resolved (post-future-resolution) argument bag
// passed to a Task's Fn.
type Parameters map[string]any

// Fn is the body of a task. It receives the run context's cancellable
// Context, the TaskRun it is executing as, and the resolved parameters.
type Fn func(ctx context.Context, run *TaskRun, params Parameters) (any, error)

// RetryConditionFn decides, given the task, its run, and the state it
// just reached, whether a retry should be attempted. A RetryConditionFn
// that panics is treated the same as one that returns false: the spec's
// "errors in retry_condition_fn are treated as do not retry" rule.
type RetryConditionFn func(task *Task, run *TaskRun, state State) bool

// CacheKeyFn computes a cache key for a task invocation from its
// parameters. A nil CacheKeyFn disables caching for the task.
type CacheKeyFn func(task *Task, params Parameters) string

// Hook runs synchronously after a task run reaches a terminal state.
// Hook errors are logged and swallowed, never propagated to the task's
// own result.
type Hook func(task *Task, run *TaskRun, state State)

// Task is an immutable description of a unit of work: what to run, how
// many times to retry it, how to compute its cache key, and what to do
// when it finishes. Built with NewTask and functional options, mirroring
// the client SDK's options pattern.
type Task struct {
	Name string
	Fn   Fn

	Retries          int
	RetryCondition   RetryConditionFn
	CacheKeyFn       CacheKeyFn
	CacheExpiration  time.Duration
	RefreshCache     *bool
	Timeout          time.Duration
	OnCompletion     []Hook
	OnFailure        []Hook
	TaskRunNameTmpl  string
	PersistResult    bool
	ResultStorage    ResultStore
	Async            bool
}

// ResultStore is the subset of resultstore.Store the engine depends on.
// Declared locally so internal/engine does not import internal/runner
// or internal/resultstore directly in its public surface; the concrete
// type satisfies this interface structurally.
type ResultStore interface {
	Get(ctx context.Context, key string) (Result, bool, error)
	Put(ctx context.Context, key string, result Result, expiresAt *time.Time) error
}

// Result is a stored task result: its value plus whether the value
// round-tripped through serialization (UntrackedResult if not).
type Result struct {
	Value     any
	Retrieved bool
}

// TaskOption configures a Task at construction time.
type TaskOption func(*Task)

// NewTask builds a Task named name running fn, with defaults (no
// retries, no cache, no timeout) overridden by opts.
func NewTask(name string, fn Fn, opts ...TaskOption) *Task {
	t := &Task{Name: name, Fn: fn, PersistResult: true}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func WithRetries(n int) TaskOption {
	return func(t *Task) { t.Retries = n }
}

func WithRetryCondition(fn RetryConditionFn) TaskOption {
	return func(t *Task) { t.RetryCondition = fn }
}

func WithCacheKeyFn(fn CacheKeyFn) TaskOption {
	return func(t *Task) { t.CacheKeyFn = fn }
}

func WithCacheExpiration(d time.Duration) TaskOption {
	return func(t *Task) { t.CacheExpiration = d }
}

func WithRefreshCache(refresh bool) TaskOption {
	return func(t *Task) { t.RefreshCache = &refresh }
}

func WithTimeout(d time.Duration) TaskOption {
	return func(t *Task) { t.Timeout = d }
}

func WithOnCompletion(hooks ...Hook) TaskOption {
	return func(t *Task) { t.OnCompletion = append(t.OnCompletion, hooks...) }
}

func WithOnFailure(hooks ...Hook) TaskOption {
	return func(t *Task) { t.OnFailure = append(t.OnFailure, hooks...) }
}

func WithTaskRunNameTemplate(s string) TaskOption {
	return func(t *Task) { t.TaskRunNameTmpl = s }
}

func WithPersistResult(persist bool) TaskOption {
	return func(t *Task) { t.PersistResult = persist }
}

func WithResultStorage(store ResultStore) TaskOption {
	return func(t *Task) { t.ResultStorage = store }
}

func WithAsync(async bool) TaskOption {
	return func(t *Task) { t.Async = async }
}
