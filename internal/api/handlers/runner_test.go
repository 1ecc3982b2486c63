package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/maumercado/flowcore/internal/orchestration"
	"github.com/maumercado/flowcore/internal/runner"
)

func newTestRunner() *runner.Runner {
	client := orchestration.New("http://127.0.0.1:0")
	return runner.New(uuid.New().String(), client, runner.DefaultConfig())
}

func TestRunnerHandler_HealthCheck_ServiceUnavailableBeforeFirstPoll(t *testing.T) {
	h := NewRunnerHandler(newTestRunner())

	req := httptest.NewRequest(http.MethodGet, "/runner/health", nil)
	rec := httptest.NewRecorder()

	h.HealthCheck(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRunnerHandler_GetStatus_ReturnsJSON(t *testing.T) {
	h := NewRunnerHandler(newTestRunner())

	req := httptest.NewRequest(http.MethodGet, "/runner/status", nil)
	rec := httptest.NewRecorder()

	h.GetStatus(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "still_polling")
}

func TestRunnerHandler_SubmitFlowRun_RejectsInvalidID(t *testing.T) {
	h := NewRunnerHandler(newTestRunner())

	req := httptest.NewRequest(http.MethodPost, "/runner/flow-runs/not-a-uuid/submit", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("flowRunID", "not-a-uuid")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()

	h.SubmitFlowRun(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
