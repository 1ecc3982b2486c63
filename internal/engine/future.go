package engine

import "fmt"

// Future represents a not-yet-resolved upstream task run result. A
// Task's parameters may contain Futures nested arbitrarily inside
// slices and maps; resolveParameters walks that structure exactly once
// per run, replacing each Future with its resolved value or failing
// the walk with an UpstreamTaskError.
type Future struct {
	Run *TaskRun
}

// NewFuture wraps a TaskRun as a lazily-resolved parameter value.
func NewFuture(run *TaskRun) *Future { return &Future{Run: run} }

// resolveParameters walks params depth-first, replacing every *Future
// (including ones nested in []any and map[string]any) with its
// upstream result. It visits each distinct Future at most once
// (guarding against self-referential structures) and stops at the
// first upstream run that is not in a Completed state.
func resolveParameters(params Parameters) (Parameters, error) {
	visited := make(map[*Future]bool)
	resolved := make(Parameters, len(params))
	for k, v := range params {
		rv, err := resolveValue(v, visited)
		if err != nil {
			return nil, err
		}
		resolved[k] = rv
	}
	return resolved, nil
}

func resolveValue(v any, visited map[*Future]bool) (any, error) {
	switch val := v.(type) {
	case *Future:
		if visited[val] {
			return nil, fmt.Errorf("engine: cyclic future reference in parameters")
		}
		visited[val] = true
		return resolveFuture(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			rv, err := resolveValue(item, visited)
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			rv, err := resolveValue(item, visited)
			if err != nil {
				return nil, err
			}
			out[k] = rv
		}
		return out, nil
	default:
		return v, nil
	}
}

func resolveFuture(f *Future) (any, error) {
	if f.Run == nil {
		return nil, fmt.Errorf("engine: future has no task run")
	}
	if f.Run.State.Type != StateCompleted {
		return nil, &UpstreamTaskError{Upstream: f.Run.Name, State: f.Run.State.Type}
	}
	return f.Run.State.Data, nil
}

// waitForDependencies blocks parameter resolution on a set of upstream
// runs without consuming their results, mirroring wait_for semantics:
// any non-Completed upstream aborts the walk the same way a Future
// would.
func waitForDependencies(waitFor []*TaskRun) error {
	for _, run := range waitFor {
		if run.State.Type != StateCompleted {
			return &UpstreamTaskError{Upstream: run.Name, State: run.State.Type}
		}
	}
	return nil
}
