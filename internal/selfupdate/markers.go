// Package selfupdate tracks the short-lived per-user markers described in
// spec §6: whenever the system writes a policy/configuration change to
// the Media Server, it records the write time so a webhook handler that
// observes its own side effect can ignore it. This is the third of the
// three process-wide mutable services named in spec §9 (alongside the
// rate limiter and the quota counter).
package selfupdate

import (
	"sync"
	"time"
)

// Window is how long a marker suppresses a matching webhook event. The
// spec leaves the exact window implementation-defined but requires it be
// short; 30s matches the "T-30s" example in §6.
const Window = 30 * time.Second

// Markers is a small process-wide service with get/update methods, held
// behind a single lock per spec §9.
type Markers struct {
	mu      sync.Mutex
	stamped map[string]time.Time
	now     func() time.Time
}

// New creates an empty Markers table.
func New() *Markers {
	return &Markers{
		stamped: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Record stamps userID with the current time, just before the system
// mutates that user on the Media Server.
func (m *Markers) Record(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stamped[userID] = m.now()
}

// ShouldIgnore reports whether an incoming "user updated" webhook event
// for userID should be suppressed because a self-triggered write was
// recorded within the last Window.
func (m *Markers) ShouldIgnore(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	stamped, ok := m.stamped[userID]
	if !ok {
		return false
	}
	return m.now().Sub(stamped) < Window
}
