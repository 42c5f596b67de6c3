package presence

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"TeamSync/logger"
	"TeamSync/service/storage"
)

// AdmissionConf mirrors the source constants: cap 5, 12h idle timeout.
type AdmissionConf struct {
	MaxPerUser  int
	IdleTimeout time.Duration
	Clock       func() time.Time // injectable for tests; nil => time.Now
}

func (c *AdmissionConf) norm() {
	if c.MaxPerUser <= 0 {
		c.MaxPerUser = 5
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 12 * time.Hour
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
}

// Admission enforces the per-user connection cap and idle timeout at
// connection time. The whole sequence is serialized per user id so two
// simultaneous handshakes from one user cannot both read a stale
// "not over cap" view.
//
// Store errors are fail-open: cleanup is best-effort and the new
// connection is always admitted, so a transient store outage cannot lock
// a user out. The reaper repairs whatever a failed pass skipped.
type Admission struct {
	conf  AdmissionConf
	reg   *storage.ConnRegistry
	table *ConnTable
	seen  *lastSeen

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewAdmission(conf AdmissionConf, reg *storage.ConnRegistry, table *ConnTable, seen *lastSeen) *Admission {
	conf.norm()
	return &Admission{
		conf:  conf,
		reg:   reg,
		table: table,
		seen:  seen,
		locks: make(map[string]*sync.Mutex),
	}
}

func (a *Admission) userLock(userID string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		a.locks[userID] = l
	}
	return l
}

// Admit runs the cleanup / evict / register sequence for a freshly
// handshaked connection and records it in the durable registry.
func (a *Admission) Admit(ctx context.Context, userID, connID string) {
	l := a.userLock(userID)
	l.Lock()
	defer l.Unlock()

	now := a.conf.Clock()

	// Cleanup pass: drop ids with no live local transport, disconnect
	// ids idle past the timeout. Cross-process liveness is left to the
	// reaper.
	ids, err := a.reg.Conns(ctx, userID)
	if err != nil {
		logger.Warnf("[admission] read registry user=%s err=%v", userID, err)
		ids = nil
	}
	for _, id := range ids {
		if !a.table.Live(id) {
			if err := a.reg.Remove(ctx, userID, id); err != nil {
				logger.Warnf("[admission] remove stale user=%s conn=%s err=%v", userID, id, err)
			}
			a.seen.forget(id)
			continue
		}
		if at, ok := a.lastActive(ctx, userID, id); ok && now.Sub(at) > a.conf.IdleTimeout {
			logger.Infof("[admission] disconnect expired conn=%s user=%s", id, userID)
			a.evict(ctx, userID, id)
		}
	}

	// Re-read the (possibly smaller) set and enforce the cap: evict the
	// oldest by last-activity until one slot is free.
	ids, err = a.reg.Conns(ctx, userID)
	if err != nil {
		logger.Warnf("[admission] reread registry user=%s err=%v", userID, err)
		ids = nil
	}
	if len(ids) >= a.conf.MaxPerUser {
		logger.Infof("[admission] user=%s over cap (%d), evicting oldest", userID, len(ids))
		for _, id := range a.pickOldest(ctx, userID, ids, len(ids)-a.conf.MaxPerUser+1) {
			logger.Infof("[admission] disconnect excess conn=%s user=%s", id, userID)
			a.evict(ctx, userID, id)
		}
	}

	if err := a.reg.Add(ctx, userID, connID, now); err != nil {
		logger.Warnf("[admission] register user=%s conn=%s err=%v", userID, connID, err)
	}
	a.seen.set(connID, now)
}

// Touch handles a liveness signal: refresh the cache and the durable
// timestamp. Returns the server time for the pong reply.
func (a *Admission) Touch(ctx context.Context, userID, connID string) time.Time {
	now := a.conf.Clock()
	a.seen.set(connID, now)
	if err := a.reg.Touch(ctx, userID, connID, now); err != nil {
		logger.Warnf("[admission] touch user=%s conn=%s err=%v", userID, connID, err)
	}
	return now
}

// Forget clears the cache entry and registry row on disconnect.
func (a *Admission) Forget(ctx context.Context, userID, connID string) {
	a.seen.forget(connID)
	if err := a.reg.Remove(ctx, userID, connID); err != nil {
		logger.Warnf("[admission] deregister user=%s conn=%s err=%v", userID, connID, err)
	}
}

func (a *Admission) lastActive(ctx context.Context, userID, connID string) (time.Time, bool) {
	if at, ok := a.seen.get(connID); ok {
		return at, true
	}
	at, ok, err := a.reg.LastActive(ctx, userID, connID)
	if err != nil {
		logger.Warnf("[admission] lastactive user=%s conn=%s err=%v", userID, connID, err)
		return time.Time{}, false
	}
	return at, ok
}

// pickOldest orders ids ascending by last-activity and returns the first
// n. An id with no timestamp at all sorts after every known one, so
// connections of unknown recency are evicted last (the source's
// tie-break).
func (a *Admission) pickOldest(ctx context.Context, userID string, ids []string, n int) []string {
	type aged struct {
		id string
		ms int64
	}
	entries := make([]aged, 0, len(ids))
	for _, id := range ids {
		ms := int64(math.MaxInt64)
		if at, ok := a.lastActive(ctx, userID, id); ok {
			ms = at.UnixMilli()
		}
		entries = append(entries, aged{id: id, ms: ms})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].ms < entries[j].ms })
	if n > len(entries) {
		n = len(entries)
	}
	out := make([]string, 0, n)
	for _, e := range entries[:n] {
		out = append(out, e.id)
	}
	return out
}

// evict closes the live transport if there is one and removes the
// registry entry. Each step is independently safe to abandon.
func (a *Admission) evict(ctx context.Context, userID, connID string) {
	if c, ok := a.table.Get(connID); ok {
		c.Close()
		a.table.Remove(connID)
	}
	if err := a.reg.Remove(ctx, userID, connID); err != nil {
		logger.Warnf("[admission] evict user=%s conn=%s err=%v", userID, connID, err)
	}
	a.seen.forget(connID)
}
