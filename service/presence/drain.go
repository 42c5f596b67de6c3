package presence

import (
	"context"
	"encoding/json"

	"TeamSync/logger"
	"TeamSync/service/storage"
)

// Drain flushes a user's pending-delivery queues to a newly admitted
// connection: one atomic read-and-delete per workspace, replayed in
// original FIFO order. Runs once per successful admission.
type Drain struct {
	membership *storage.Membership
	pending    *storage.PendingQueue
}

func NewDrain(membership *storage.Membership, pending *storage.PendingQueue) *Drain {
	return &Drain{membership: membership, pending: pending}
}

// Flush replays every buffered payload for the connecting user directly
// to the new connection. Malformed entries are skipped and logged; a
// failing workspace does not stop the rest.
func (d *Drain) Flush(ctx context.Context, c *Conn) {
	workspaces, err := d.membership.Workspaces(ctx, c.UserID)
	if err != nil {
		logger.Warnf("[drain] workspaces user=%s err=%v", c.UserID, err)
		return
	}
	for _, wsID := range workspaces {
		payloads, err := d.pending.Drain(ctx, wsID, c.UserID)
		if err != nil {
			logger.Warnf("[drain] ws=%s user=%s err=%v", wsID, c.UserID, err)
			continue
		}
		for _, p := range payloads {
			if !json.Valid(p) {
				logger.Warnf("[drain] skip malformed payload ws=%s user=%s", wsID, c.UserID)
				continue
			}
			if err := c.Push(BuildFrame(EvtMessage, json.RawMessage(p))); err != nil {
				logger.Warnf("[drain] push ws=%s user=%s conn=%s err=%v", wsID, c.UserID, c.ID, err)
			}
		}
		if len(payloads) > 0 {
			logger.Infof("[drain] replayed %d buffered messages ws=%s user=%s", len(payloads), wsID, c.UserID)
		}
	}
}
