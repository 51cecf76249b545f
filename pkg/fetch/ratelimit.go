package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RateLimiter keeps requests that share a key (usually a host) at least a minimum delay apart.
// One limiter is shared by every crawl in the process.
type RateLimiter struct {
	mu           sync.Mutex
	last         map[string]time.Time
	defaultDelay time.Duration
	log          *logrus.Entry
}

// NewRateLimiter creates a RateLimiter; defaultDelay applies when a caller passes a negative delay
func NewRateLimiter(defaultDelay time.Duration, log *logrus.Entry) *RateLimiter {
	return &RateLimiter{
		last:         make(map[string]time.Time),
		defaultDelay: defaultDelay,
		log:          log,
	}
}

// Wait blocks until minDelay (±10%) has passed since the last Mark for key, or ctx is done.
// Zero disables waiting. A key that was never marked passes immediately.
func (rl *RateLimiter) Wait(ctx context.Context, key string, minDelay time.Duration) {
	if minDelay < 0 {
		minDelay = rl.defaultDelay
	}
	if minDelay <= 0 {
		return
	}

	rl.mu.Lock()
	prev, ok := rl.last[key]
	rl.mu.Unlock()
	if !ok {
		return
	}

	remaining := jitter(minDelay - time.Since(prev))
	if remaining <= 0 {
		return
	}
	rl.log.WithFields(logrus.Fields{"key": key, "sleep": remaining, "min_delay": minDelay}).Debug("Pacing request")

	if err := sleep(ctx, remaining); err != nil {
		rl.log.WithField("key", key).Debugf("Pacing interrupted: %v", err)
	}
}

// Mark records that a request for key was just attempted
func (rl *RateLimiter) Mark(key string) {
	rl.mu.Lock()
	rl.last[key] = time.Now()
	rl.mu.Unlock()
}
