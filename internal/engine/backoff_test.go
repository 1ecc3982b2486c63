package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampedPoissonInterval_StaysWithinClampRange(t *testing.T) {
	average := 4.0
	factor := 0.3
	lower := average * (1 - factor)
	upper := average * (1 + factor)

	for i := 0; i < 200; i++ {
		d := clampedPoissonInterval(average, factor)
		seconds := d.Seconds()
		assert.GreaterOrEqual(t, seconds, lower)
		assert.LessOrEqual(t, seconds, upper)
	}
}

func TestPendingBackoff_GrowsTowardMaxThenHolds(t *testing.T) {
	b := &pendingBackoff{}

	var last float64
	for i := 0; i < backoffMax+5; i++ {
		wait := b.next()
		// every interval must be a positive wait.
		assert.Greater(t, wait.Seconds(), 0.0)
		last = wait.Seconds()
	}
	// after backoffMax has been reached the average no longer grows, so
	// the final sample must stay within backoffMax's clamp band.
	assert.LessOrEqual(t, last, float64(backoffMax)*(1+clampingFactor))
}
