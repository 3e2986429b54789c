package broker

import (
	"math/rand"
	"time"
)

const baseRetryDelay = 60 * time.Second

// BackoffDelay computes delay = base (60s) × 2^retryCount, exponential
// backoff, with jitter of up to 10% applied on either side so a burst of
// simultaneously-failing documents doesn't retry in lockstep.
func BackoffDelay(retryCount int) time.Duration {
	delay := baseRetryDelay * time.Duration(1<<uint(retryCount))
	jitter := time.Duration(float64(delay) * 0.10 * (rand.Float64()*2 - 1))
	return delay + jitter
}
