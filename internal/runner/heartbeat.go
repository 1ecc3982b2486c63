package runner

import "context"

// sendHeartbeat is the heartbeat loop's body, grounded on the
// teacher's worker heartbeat pattern: it logs the Runner's liveness and
// current load at debug level. It makes no call to the orchestration
// API.
func (r *Runner) sendHeartbeat(ctx context.Context) error {
	status := r.GetStatus()
	r.logger.Debug().
		Int("active_flow_runs", status.ActiveFlowRuns).
		Time("last_polled_time", status.LastPolledTime).
		Msg("runner heartbeat")
	return nil
}
