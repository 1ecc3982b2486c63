package runner

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunnerState holds every piece of mutable bookkeeping the Runner's
// concurrent loops share, guarded by one RWMutex — the Go realization
// of the spec's "in a parallel-threaded reimplementation, each is a
// mutex-guarded map/set" note, grounded on the teacher's
// worker.Pool.stateMu pattern.
type RunnerState struct {
	mu sync.RWMutex

	deploymentIDs        map[uuid.UUID]struct{}
	flowRunProcessMap    map[uuid.UUID]int
	submittingFlowRunIDs map[uuid.UUID]struct{}
	cancellingFlowRunIDs map[uuid.UUID]time.Time
	scheduledTaskScopes  map[string]context.CancelFunc
	lastPolledTime       time.Time
}

func newRunnerState() *RunnerState {
	return &RunnerState{
		deploymentIDs:        make(map[uuid.UUID]struct{}),
		flowRunProcessMap:    make(map[uuid.UUID]int),
		submittingFlowRunIDs: make(map[uuid.UUID]struct{}),
		cancellingFlowRunIDs: make(map[uuid.UUID]time.Time),
		scheduledTaskScopes:  make(map[string]context.CancelFunc),
	}
}

func (s *RunnerState) addDeployment(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deploymentIDs[id] = struct{}{}
}

func (s *RunnerState) deploymentIDList() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(s.deploymentIDs))
	for id := range s.deploymentIDs {
		ids = append(ids, id)
	}
	return ids
}

func (s *RunnerState) markSubmitting(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.submittingFlowRunIDs[id]; ok {
		return false
	}
	s.submittingFlowRunIDs[id] = struct{}{}
	return true
}

func (s *RunnerState) clearSubmitting(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.submittingFlowRunIDs, id)
}

func (s *RunnerState) isSubmitting(id uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.submittingFlowRunIDs[id]
	return ok
}

func (s *RunnerState) setProcess(id uuid.UUID, pid int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flowRunProcessMap[id] = pid
}

func (s *RunnerState) process(id uuid.UUID) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pid, ok := s.flowRunProcessMap[id]
	return pid, ok
}

func (s *RunnerState) clearProcess(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flowRunProcessMap, id)
}

func (s *RunnerState) runningFlowRunIDs() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(s.flowRunProcessMap))
	for id := range s.flowRunProcessMap {
		ids = append(ids, id)
	}
	return ids
}

// markCancelling records that id is being cancelled, returning false
// if it's already in flight. Entries are evicted after
// cancellingTTL so a flow run that disappears from the API's result
// set doesn't leak the entry forever.
func (s *RunnerState) markCancelling(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cancellingFlowRunIDs[id]; ok {
		return false
	}
	s.cancellingFlowRunIDs[id] = time.Now()
	return true
}

const cancellingTTL = 10 * time.Minute

func (s *RunnerState) evictStaleCancellations() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, markedAt := range s.cancellingFlowRunIDs {
		if now.Sub(markedAt) > cancellingTTL {
			delete(s.cancellingFlowRunIDs, id)
		}
	}
}

func (s *RunnerState) isCancelling(id uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cancellingFlowRunIDs[id]
	return ok
}

func (s *RunnerState) setScheduledTaskScope(key string, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduledTaskScopes[key] = cancel
}

func (s *RunnerState) cancelAllScheduledTasks() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, cancel := range s.scheduledTaskScopes {
		cancel()
		delete(s.scheduledTaskScopes, key)
	}
}

func (s *RunnerState) touchPolled() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPolledTime = time.Now()
}

func (s *RunnerState) lastPolled() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastPolledTime
}
