package cart

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// throttle hands out one limiter per user so reconciliation runs at most
// once per interval for that user.
type throttle struct {
	mu       sync.Mutex
	interval time.Duration
	limiters map[string]*rate.Limiter
}

func newThrottle(interval time.Duration) *throttle {
	return &throttle{
		interval: interval,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (t *throttle) allow(key string) bool {
	if t.interval <= 0 {
		return true
	}

	t.mu.Lock()
	limiter, ok := t.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(t.interval), 1)
		t.limiters[key] = limiter
	}
	t.mu.Unlock()

	return limiter.Allow()
}

// forget drops limiters that have been idle long enough to be full again.
func (t *throttle) forget() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key, limiter := range t.limiters {
		if limiter.Tokens() >= 1 {
			delete(t.limiters, key)
		}
	}
}
