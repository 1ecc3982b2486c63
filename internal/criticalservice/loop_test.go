package criticalservice

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJitter_StaysWithinRange(t *testing.T) {
	interval := 10 * time.Second
	jitterRange := 0.3
	lower := float64(interval) * (1 - jitterRange)
	upper := float64(interval) * (1 + jitterRange)

	for i := 0; i < 200; i++ {
		got := Jitter(interval, jitterRange)
		assert.GreaterOrEqual(t, float64(got), lower)
		assert.LessOrEqual(t, float64(got), upper)
	}
}

func TestJitter_ZeroRangeReturnsIntervalUnchanged(t *testing.T) {
	assert.Equal(t, 5*time.Second, Jitter(5*time.Second, 0))
}

func TestLoop_RunsFnRepeatedlyUntilStopped(t *testing.T) {
	var calls int32
	l := NewLoop("test", 5*time.Millisecond, 0.1, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	l.Stop()
	<-done

	assert.Greater(t, int(atomic.LoadInt32(&calls)), 0)
}

func TestLoop_ErrorsAreSwallowedNotFatal(t *testing.T) {
	var calls int32
	l := NewLoop("failing", 5*time.Millisecond, 0, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return assert.AnError
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	l.Stop()
	<-done

	assert.Greater(t, int(atomic.LoadInt32(&calls)), 1, "a failing iteration must not stop subsequent ticks")
}

func TestLoop_ContextCancellationStopsRun(t *testing.T) {
	l := NewLoop("ctx-cancel", time.Second, 0, func(ctx context.Context) error {
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
