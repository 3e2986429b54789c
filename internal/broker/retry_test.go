package broker

import (
	"testing"
	"time"
)

func TestBackoffDelay_GrowsExponentiallyWithinJitterBounds(t *testing.T) {
	for retryCount := 0; retryCount < 5; retryCount++ {
		base := baseRetryDelay * time.Duration(1<<uint(retryCount))
		delay := BackoffDelay(retryCount)
		low := base - base/10 - 1
		high := base + base/10 + 1
		if delay < low || delay > high {
			t.Errorf("retryCount=%d: delay %v outside jitter bounds [%v, %v]", retryCount, delay, low, high)
		}
	}
}
