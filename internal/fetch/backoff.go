package fetch

import (
	"math/rand"
	"time"
)

// Retry pacing. The delay doubles per attempt from retryBase up to retryCap,
// with 25% jitter either way so parallel requests against a struggling
// engine do not retry in lockstep.
const (
	retryBase   = 1 * time.Second
	retryCap    = 60 * time.Second
	retryJitter = 0.25
)

// retryDelay returns the wait before the given attempt; attempt 2 is the
// first retry. Stateless, so one helper serves every request in flight.
func retryDelay(attempt int) time.Duration {
	d := retryBase << (attempt - 2)
	if d <= 0 || d > retryCap {
		d = retryCap
	}
	spread := 1 + retryJitter*(2*rand.Float64()-1) //nolint:gosec // pacing, not crypto
	return time.Duration(float64(d) * spread)
}
