// Package criticalservice generalizes the ticker+stopCh+wg supervised
// loop shape the teacher repeats across internal/worker/heartbeat.go,
// internal/queue/scheduler.go and internal/worker/pool.go's recovery
// loop, so the Runner's submit, heartbeat and cancellation loops share
// one implementation instead of three copies.
package criticalservice

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/maumercado/flowcore/internal/logger"
)

// Jitter returns interval adjusted by a uniform random factor in
// [-jitterRange, +jitterRange], matching the ±0.3 jitter the spec
// applies to every Runner polling interval.
func Jitter(interval time.Duration, jitterRange float64) time.Duration {
	if jitterRange <= 0 {
		return interval
	}
	factor := 1 + (rand.Float64()*2-1)*jitterRange
	if factor < 0 {
		factor = 0
	}
	return time.Duration(float64(interval) * factor)
}

// Loop runs fn on a jittered interval until the context is cancelled
// or Stop is called. Each tick reschedules its own jittered delay
// rather than using a fixed-period ticker, so jitter is independent
// from tick to tick.
type Loop struct {
	name        string
	interval    time.Duration
	jitterRange float64
	fn          func(ctx context.Context) error

	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewLoop builds a critical-service loop named name, calling fn every
// interval (±jitterRange), logging and swallowing fn's errors so one
// failed iteration never kills the loop.
func NewLoop(name string, interval time.Duration, jitterRange float64, fn func(ctx context.Context) error) *Loop {
	return &Loop{
		name:        name,
		interval:    interval,
		jitterRange: jitterRange,
		fn:          fn,
		stopCh:      make(chan struct{}),
	}
}

// Run blocks, executing fn on each jittered tick, until ctx is done or
// Stop is called. Intended to be launched in its own goroutine.
func (l *Loop) Run(ctx context.Context) {
	l.wg.Add(1)
	defer l.wg.Done()

	log := logger.WithComponent("critical-service." + l.name)
	for {
		wait := Jitter(l.interval, l.jitterRange)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-l.stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := l.fn(ctx); err != nil {
			log.Error().Err(err).Msg("critical service iteration failed")
		}
	}
}

// Stop signals Run to return and waits for it to finish.
func (l *Loop) Stop() {
	l.once.Do(func() { close(l.stopCh) })
	l.wg.Wait()
}
