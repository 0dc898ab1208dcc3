// Package ratelimit implements C1: per-endpoint request spacing and daily
// caps (spec §4.4 "Quota mechanics", §5 "Locking discipline"). It is one
// of the three process-wide mutable services named in spec §9 (the
// others are the daily subscription quota and the self-update-marker
// map), deliberately kept as a small service with get/update methods.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// EndpointConfig configures the minimum inter-request spacing and an
// optional daily cap for one outbound endpoint (e.g. the Metadata
// Provider's season-details call).
type EndpointConfig struct {
	MinInterval time.Duration
	DailyCap    int // 0 means unbounded
}

// endpointState tracks a single endpoint's limiter and daily counter
// under the shared process-wide lock.
type endpointState struct {
	limiter  *rate.Limiter
	dailyCap int
	usedDate string
	usedToday int
}

// Limiter enforces per-endpoint spacing and daily caps. All state is
// guarded by one process-wide lock, held only for the compute+sleep
// decision (§5 "Locking discipline").
type Limiter struct {
	mu        sync.Mutex
	endpoints map[string]*endpointState
	now       func() time.Time
}

// New creates a Limiter. Endpoints not pre-registered via Configure fall
// back to one request per second with no daily cap.
func New() *Limiter {
	return &Limiter{
		endpoints: make(map[string]*endpointState),
		now:       time.Now,
	}
}

// Configure registers or replaces the spacing/cap for an endpoint key.
func (l *Limiter) Configure(endpoint string, cfg EndpointConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()

	interval := cfg.MinInterval
	if interval <= 0 {
		interval = time.Second
	}
	l.endpoints[endpoint] = &endpointState{
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		dailyCap: cfg.DailyCap,
	}
}

func (l *Limiter) stateFor(endpoint string) *endpointState {
	st, ok := l.endpoints[endpoint]
	if !ok {
		st = &endpointState{limiter: rate.NewLimiter(rate.Every(time.Second), 1)}
		l.endpoints[endpoint] = st
	}
	return st
}

// ErrDailyCapExhausted is returned by Wait when the endpoint's daily cap
// has been reached for today.
type ErrDailyCapExhausted struct{ Endpoint string }

func (e *ErrDailyCapExhausted) Error() string {
	return "rate limit: daily cap exhausted for endpoint " + e.Endpoint
}

// Wait enforces the endpoint's minimum spacing (sleeping if necessary)
// and fails the call if the daily cap is exhausted (§4.4, §5).
func (l *Limiter) Wait(ctx context.Context, endpoint string) error {
	l.mu.Lock()
	st := l.stateFor(endpoint)
	today := l.now().Format("2006-01-02")
	if st.usedDate != today {
		st.usedDate = today
		st.usedToday = 0
	}
	if st.dailyCap > 0 && st.usedToday >= st.dailyCap {
		l.mu.Unlock()
		return &ErrDailyCapExhausted{Endpoint: endpoint}
	}
	st.usedToday++
	limiter := st.limiter
	l.mu.Unlock()

	return limiter.Wait(ctx)
}
