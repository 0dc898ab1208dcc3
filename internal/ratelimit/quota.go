package ratelimit

import (
	"sync"
	"time"
)

// Quota is the shared daily subscription-dispatch counter (spec §3, §4.4,
// §5). Reset happens lazily on date rollover under the same lock used for
// get/decrement, so callers never observe a stale date.
type Quota struct {
	mu        sync.Mutex
	limit     int
	remaining int
	date      string
	now       func() time.Time
}

// NewQuota creates a Quota with the given daily limit.
func NewQuota(dailyLimit int) *Quota {
	return &Quota{
		limit: dailyLimit,
		now:   time.Now,
	}
}

func (q *Quota) rolloverLocked() {
	today := q.now().Format("2006-01-02")
	if q.date != today {
		q.date = today
		q.remaining = q.limit
	}
}

// SetLimit updates the daily limit. Does not affect remaining until the
// next rollover.
func (q *Quota) SetLimit(limit int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.limit = limit
}

// Remaining returns today's remaining quota, rolling over the counter
// first if the date has changed.
func (q *Quota) Remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rolloverLocked()
	return q.remaining
}

// Decrement consumes one unit of quota and reports whether it succeeded.
// A zero-quota decrement is a no-op per §5 ("the caller must check via
// get_quota() before attempting"), returning false rather than going
// negative.
func (q *Quota) Decrement() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rolloverLocked()
	if q.remaining <= 0 {
		return false
	}
	q.remaining--
	return true
}
