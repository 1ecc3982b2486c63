// Package orchestration is a typed facade over the remote
// orchestration API: the handful of HTTP operations the Task Engine
// and Runner need to create runs, read them back, and propose state
// transitions.
package orchestration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/maumercado/flowcore/internal/engine"
)

// RequestEditorFn mutates an outgoing request before it is sent —
// the same extension point the teacher's generated client exposes,
// reused here by options.go to inject auth headers.
type RequestEditorFn func(ctx context.Context, req *http.Request) error

// Client talks to the orchestration API over HTTP. It implements
// engine.Client and adds the Runner-facing flow-run operations spec §6
// lists.
type Client struct {
	baseURL    string
	httpClient *http.Client
	editors    []RequestEditorFn
}

// New builds a Client pointed at baseURL (e.g. PREFECT_API_URL),
// configured by opts.
func New(baseURL string, opts ...Option) *Client {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: o.httpClient,
	}
	if ed := o.applyHeaders(); ed != nil {
		c.editors = append(c.editors, ed)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, query map[string]string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("orchestration: encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("orchestration: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	q := req.URL.Query()
	for k, v := range query {
		q.Set(k, v)
	}
	req.URL.RawQuery = q.Encode()

	for _, edit := range c.editors {
		if err := edit(ctx, req); err != nil {
			return fmt.Errorf("orchestration: apply request editor: %w", err)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("orchestration: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("orchestration: %s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("orchestration: decode response: %w", err)
	}
	return nil
}

// CreateTaskRun registers a new task run for task name under flowRunID
// (nil for an autonomous/standalone task run).
func (c *Client) CreateTaskRun(ctx context.Context, name string, flowRunID *uuid.UUID) (*engine.TaskRun, error) {
	var out engine.TaskRun
	body := map[string]any{"name": name, "flow_run_id": flowRunID}
	if err := c.do(ctx, http.MethodPost, "/task_runs/", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReadTaskRun fetches the current record for a task run.
func (c *Client) ReadTaskRun(ctx context.Context, id uuid.UUID) (*engine.TaskRun, error) {
	var out engine.TaskRun
	if err := c.do(ctx, http.MethodGet, "/task_runs/"+id.String(), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetTaskRunName renames an in-flight task run, used when a
// task_run_name template resolves after parameters become known.
func (c *Client) SetTaskRunName(ctx context.Context, id uuid.UUID, name string) error {
	body := map[string]any{"name": name}
	return c.do(ctx, http.MethodPatch, "/task_runs/"+id.String(), nil, body, nil)
}

// proposeStateResponse is the wire shape of a state-transition
// response: either an accepted/rejected state, or a pause signal.
type proposeStateResponse struct {
	Status  string       `json:"status"`
	State   engine.State `json:"state"`
	Reason  string       `json:"reason,omitempty"`
}

// ProposeTaskRunState proposes state for taskRunID, returning the
// API's three-way verdict.
func (c *Client) ProposeTaskRunState(ctx context.Context, taskRunID uuid.UUID, state engine.State, force bool) (engine.ProposeResult, error) {
	body := map[string]any{"state": state, "force": force}
	var out proposeStateResponse
	if err := c.do(ctx, http.MethodPost, "/task_runs/"+taskRunID.String()+"/set_state", nil, body, &out); err != nil {
		return engine.ProposeResult{}, err
	}
	return toProposeResult(out), nil
}

// ProposeFlowRunState proposes state for flowRunID; used by the Runner
// for submission bookkeeping and crash/failure reporting.
func (c *Client) ProposeFlowRunState(ctx context.Context, flowRunID uuid.UUID, state engine.State, force bool) (engine.ProposeResult, error) {
	body := map[string]any{"state": state, "force": force}
	var out proposeStateResponse
	if err := c.do(ctx, http.MethodPost, "/flow_runs/"+flowRunID.String()+"/set_state", nil, body, &out); err != nil {
		return engine.ProposeResult{}, err
	}
	return toProposeResult(out), nil
}

func toProposeResult(out proposeStateResponse) engine.ProposeResult {
	switch out.Status {
	case "ABORT":
		return engine.ProposeResult{Aborted: true, Reason: out.Reason}
	case "WAIT":
		return engine.ProposeResult{State: out.State, Paused: true}
	default:
		return engine.ProposeResult{State: out.State}
	}
}

// ReadFlowRun fetches the current record for a flow run.
func (c *Client) ReadFlowRun(ctx context.Context, id uuid.UUID) (*FlowRun, error) {
	var out FlowRun
	if err := c.do(ctx, http.MethodGet, "/flow_runs/"+id.String(), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReadFlowRuns lists flow runs matching filter — the Runner's primary
// polling operation.
func (c *Client) ReadFlowRuns(ctx context.Context, filter Filter) ([]FlowRun, error) {
	values, err := encodeFilter(filter)
	if err != nil {
		return nil, fmt.Errorf("orchestration: encode filter: %w", err)
	}
	query := make(map[string]string, len(values))
	for k := range values {
		query[k] = values.Get(k)
	}

	var out []FlowRun
	if err := c.do(ctx, http.MethodGet, "/flow_runs/filter", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadDeployment fetches the current record for a deployment, used by
// the Runner's storage-block precheck before it submits one of the
// deployment's flow runs.
func (c *Client) ReadDeployment(ctx context.Context, id uuid.UUID) (*Deployment, error) {
	var out Deployment
	if err := c.do(ctx, http.MethodGet, "/deployments/"+id.String(), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateSchedule pauses or resumes a deployment's schedule, used by
// the Runner on teardown (pause-on-shutdown).
func (c *Client) UpdateSchedule(ctx context.Context, deploymentID uuid.UUID, active bool) error {
	body := map[string]any{"active": active}
	return c.do(ctx, http.MethodPatch, "/deployments/"+deploymentID.String()+"/schedule", nil, body, nil)
}

// Ping checks API reachability.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}
