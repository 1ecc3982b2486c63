package runner

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maumercado/flowcore/internal/events"
	"github.com/maumercado/flowcore/internal/orchestration"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event *events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Subscribe(ctx context.Context, eventTypes ...events.EventType) (<-chan *events.Event, error) {
	ch := make(chan *events.Event)
	close(ch)
	return ch, nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) seen() []*events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*events.Event, len(p.events))
	copy(out, p.events)
	return out
}

func TestPublishFlowRunEvent_NoPublisherIsANoOp(t *testing.T) {
	r := New(uuid.New().String(), orchestration.New("http://127.0.0.1:0"), DefaultConfig())
	// Must not panic with no publisher wired.
	r.publishFlowRunEvent(context.Background(), events.EventFlowRunSubmitted, uuid.New(), "PENDING", nil)
}

func TestPublishFlowRunEvent_DeliversToWiredPublisher(t *testing.T) {
	pub := &recordingPublisher{}
	r := New(uuid.New().String(), orchestration.New("http://127.0.0.1:0"), DefaultConfig()).WithPublisher(pub)

	flowRunID := uuid.New()
	r.publishFlowRunEvent(context.Background(), events.EventFlowRunRunning, flowRunID, "RUNNING", map[string]interface{}{"exit_code": 0})

	seen := pub.seen()
	require.Len(t, seen, 1)
	assert.Equal(t, events.EventFlowRunRunning, seen[0].Type)
	assert.Equal(t, flowRunID.String(), seen[0].Data["flow_run_id"])
	assert.Equal(t, "RUNNING", seen[0].Data["state"])
}
