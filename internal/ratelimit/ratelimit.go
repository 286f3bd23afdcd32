package ratelimit

import (
	"context"
	"time"
)

// Limit describes one throttling tier. Name scopes the counter keys so that
// tiers stacked on the same route count independently.
type Limit struct {
	Name        string
	MaxRequests int
	Window      time.Duration
	Message     string
}

// CounterStore is the swappable backend for request counting. Incr bumps the
// counter for key, starting a fresh window when none is active, and reports
// the resulting count together with the time left in the window. Counting is
// best-effort; callers treat store errors as "not limited".
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int, remaining time.Duration, err error)
}
