package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/maumercado/flowcore/internal/engine"
	"github.com/maumercado/flowcore/internal/orchestration"
)

// Client wraps internal/orchestration.Client with a WebSocket event
// stream, the same "generated client plus friendlier facade" shape the
// teacher's SDK carried, minus the code generation step.
type Client struct {
	orch    *orchestration.Client
	baseURL string
	opts    *options
	ws      *WebSocketClient
}

// New creates a new Client pointed at baseURL (the orchestration API's
// PREFECT_API_URL).
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSuffix(baseURL, "/")

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	orchOpts := []orchestration.Option{
		orchestration.WithHTTPClient(o.httpClient),
	}
	if o.apiKey != "" {
		orchOpts = append(orchOpts, orchestration.WithAPIKey(o.apiKey))
	}
	for k, v := range o.headers {
		orchOpts = append(orchOpts, orchestration.WithHeader(k, v))
	}

	return &Client{
		orch:    orchestration.New(baseURL, orchOpts...),
		baseURL: baseURL,
		opts:    o,
	}, nil
}

// ConnectWebSocket establishes a WebSocket connection for real-time events.
func (c *Client) ConnectWebSocket(ctx context.Context) error {
	if c.ws != nil && c.ws.IsConnected() {
		return nil
	}
	c.ws = newWebSocketClient(c.baseURL, c.opts.apiKey)
	return c.ws.Connect(ctx)
}

// Events returns a channel that receives WebSocket events. Must call
// ConnectWebSocket first.
func (c *Client) Events() <-chan *Event {
	if c.ws == nil {
		ch := make(chan *Event)
		close(ch)
		return ch
	}
	return c.ws.Events()
}

// CloseWebSocket closes the WebSocket connection.
func (c *Client) CloseWebSocket() error {
	if c.ws == nil {
		return nil
	}
	return c.ws.Close()
}

// SubscribeEvents subscribes to specific event types.
func (c *Client) SubscribeEvents(eventTypes ...EventType) error {
	if c.ws == nil {
		return fmt.Errorf("websocket not connected")
	}
	return c.ws.Subscribe(eventTypes...)
}

// CreateTaskRun registers a new task run against an optional flow run.
func (c *Client) CreateTaskRun(ctx context.Context, name string, flowRunID *uuid.UUID) (*engine.TaskRun, error) {
	return c.orch.CreateTaskRun(ctx, name, flowRunID)
}

// GetTaskRun retrieves a task run by ID.
func (c *Client) GetTaskRun(ctx context.Context, id uuid.UUID) (*engine.TaskRun, error) {
	return c.orch.ReadTaskRun(ctx, id)
}

// ProposeTaskRunState proposes a state transition for a task run.
func (c *Client) ProposeTaskRunState(ctx context.Context, taskRunID uuid.UUID, state engine.State, force bool) (engine.ProposeResult, error) {
	return c.orch.ProposeTaskRunState(ctx, taskRunID, state, force)
}

// GetFlowRun retrieves a flow run by ID.
func (c *Client) GetFlowRun(ctx context.Context, id uuid.UUID) (*orchestration.FlowRun, error) {
	return c.orch.ReadFlowRun(ctx, id)
}

// ListFlowRuns retrieves flow runs matching filter.
func (c *Client) ListFlowRuns(ctx context.Context, filter orchestration.Filter) ([]orchestration.FlowRun, error) {
	return c.orch.ReadFlowRuns(ctx, filter)
}

// ProposeFlowRunState proposes a state transition for a flow run.
func (c *Client) ProposeFlowRunState(ctx context.Context, flowRunID uuid.UUID, state engine.State, force bool) (engine.ProposeResult, error) {
	return c.orch.ProposeFlowRunState(ctx, flowRunID, state, force)
}

// UpdateSchedule activates or pauses a deployment's schedule.
func (c *Client) UpdateSchedule(ctx context.Context, deploymentID uuid.UUID, active bool) error {
	return c.orch.UpdateSchedule(ctx, deploymentID, active)
}

// Ping checks connectivity to the orchestration API.
func (c *Client) Ping(ctx context.Context) error {
	return c.orch.Ping(ctx)
}

// Orchestration returns the underlying orchestration client, for
// callers that need the full surface internal packages use directly.
func (c *Client) Orchestration() *orchestration.Client {
	return c.orch
}
