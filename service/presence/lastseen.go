package presence

import (
	"sync"
	"time"
)

// lastSeen is the in-process last-activity cache. It is an optimization
// hint only: it disappears on restart and the durable registry hash
// remains correct, so recency ordering degrades to "unknown" rather than
// going wrong. Never treat it as authoritative for registry membership.
type lastSeen struct {
	mu sync.RWMutex
	m  map[string]time.Time
}

func newLastSeen() *lastSeen {
	return &lastSeen{m: make(map[string]time.Time)}
}

func (l *lastSeen) set(connID string, at time.Time) {
	l.mu.Lock()
	l.m[connID] = at
	l.mu.Unlock()
}

func (l *lastSeen) get(connID string) (time.Time, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.m[connID]
	return t, ok
}

func (l *lastSeen) forget(connID string) {
	l.mu.Lock()
	delete(l.m, connID)
	l.mu.Unlock()
}
