package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/maumercado/flowcore/internal/logger"
	"github.com/maumercado/flowcore/internal/runner"
)

// RunnerHandler exposes the Runner's operational status and a manual
// one-shot submission endpoint over HTTP — the admin surface spec §13
// supplements with (is_runner_still_polling, execute_flow_run).
type RunnerHandler struct {
	runner *runner.Runner
}

// NewRunnerHandler creates a new runner admin handler.
func NewRunnerHandler(r *runner.Runner) *RunnerHandler {
	return &RunnerHandler{runner: r}
}

// HealthCheck handles GET /runner/health.
func (h *RunnerHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := h.runner.GetStatus()
	code := http.StatusOK
	if !status.StillPolling {
		code = http.StatusServiceUnavailable
	}
	h.respondJSON(w, code, status)
}

// GetStatus handles GET /runner/status.
func (h *RunnerHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.runner.GetStatus())
}

// SubmitFlowRun handles POST /runner/flow-runs/{flowRunID}/submit: runs
// a single named flow run synchronously, bypassing the polling main
// loop — useful for CLI-driven ad hoc execution.
func (h *RunnerHandler) SubmitFlowRun(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "flowRunID")
	id, err := uuid.Parse(raw)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid flow run id")
		return
	}

	if err := h.runner.ExecuteFlowRun(r.Context(), id); err != nil {
		logger.Error().Err(err).Str("flow_run_id", raw).Msg("failed to execute flow run")
		h.respondError(w, http.StatusInternalServerError, "failed to execute flow run")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"flow_run_id": raw, "status": "completed"})
}

func (h *RunnerHandler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (h *RunnerHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]any{
		"error":   http.StatusText(status),
		"message": message,
	})
}
