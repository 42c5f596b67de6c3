package presence

import (
	"context"
	"sync"
	"time"

	"TeamSync/logger"
	"TeamSync/service/storage"
	"TeamSync/tools/safe"
)

// Reaper is the backstop for disconnect handlers that never fired: a
// periodic scan over every registry entry, removing connection ids with
// no live transport on this process. Staleness can persist up to one
// interval; acceptable at the default 12h.
type Reaper struct {
	interval time.Duration
	reg      *storage.ConnRegistry
	table    *ConnTable
	seen     *lastSeen

	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewReaper(interval time.Duration, reg *storage.ConnRegistry, table *ConnTable, seen *lastSeen) *Reaper {
	if interval <= 0 {
		interval = 12 * time.Hour
	}
	return &Reaper{
		interval: interval,
		reg:      reg,
		table:    table,
		seen:     seen,
		stopCh:   make(chan struct{}),
	}
}

func (r *Reaper) Start() {
	safe.Go(func() {
		t := time.NewTicker(r.interval)
		defer t.Stop()
		for {
			select {
			case <-r.stopCh:
				return
			case <-t.C:
				r.Sweep(context.Background())
			}
		}
	})
}

func (r *Reaper) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// Sweep is one full scan; exported so admission tests and operators can
// trigger it directly.
func (r *Reaper) Sweep(ctx context.Context) {
	users, err := r.reg.Users(ctx)
	if err != nil {
		logger.Warnf("[reaper] enumerate users err=%v", err)
		return
	}
	removed := 0
	for _, uid := range users {
		ids, err := r.reg.Conns(ctx, uid)
		if err != nil {
			logger.Warnf("[reaper] conns user=%s err=%v", uid, err)
			continue
		}
		for _, id := range ids {
			if r.table.Live(id) {
				continue
			}
			if err := r.reg.Remove(ctx, uid, id); err != nil {
				logger.Warnf("[reaper] remove user=%s conn=%s err=%v", uid, id, err)
				continue
			}
			r.seen.forget(id)
			removed++
		}
	}
	if removed > 0 {
		logger.Infof("[reaper] removed %d dead registry entries", removed)
	}
}
