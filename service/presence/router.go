package presence

import (
	"context"
	"encoding/json"

	"TeamSync/logger"
	"TeamSync/service/storage"
)

// Router fans an inbound event out to a workspace's members: every live
// connection of every member gets a push; members with no live
// connection get the payload buffered (chat messages only). Fan-out is
// fire-and-forget per connection; a single push failure never blocks the
// rest, and no ordering holds across users.
type Router struct {
	membership *storage.Membership
	reg        *storage.ConnRegistry
	pending    *storage.PendingQueue
	table      *ConnTable
	relay      *Relay // nil in single-instance deployments
}

func NewRouter(membership *storage.Membership, reg *storage.ConnRegistry, pending *storage.PendingQueue, table *ConnTable, relay *Relay) *Router {
	return &Router{
		membership: membership,
		reg:        reg,
		pending:    pending,
		table:      table,
		relay:      relay,
	}
}

// Deliver routes a chat message to every member of the workspace,
// buffering for members with no live connection. excludeConnID, when
// non-empty, skips that one connection (typically the sender's).
func (r *Router) Deliver(ctx context.Context, wsID string, payload json.RawMessage, excludeConnID string) {
	r.fanout(ctx, wsID, EvtMessage, payload, excludeConnID, true)
}

// DeliverDelete routes a deletion notice. Never buffered: offline
// members simply miss it. Preserved product decision, not a bug.
func (r *Router) DeliverDelete(ctx context.Context, wsID string, payload json.RawMessage) {
	r.fanout(ctx, wsID, EvtMessageDeleted, payload, "", false)
}

// Notify targets the explicit receiver list unioned with the workspace's
// members (when a workspace is given). Notifications are never buffered:
// offline receivers are dropped with a log.
func (r *Router) Notify(ctx context.Context, wsID string, receivers []string, payload json.RawMessage) {
	targets := make(map[string]struct{}, len(receivers))
	for _, uid := range receivers {
		if uid != "" {
			targets[uid] = struct{}{}
		}
	}
	if wsID != "" {
		members, err := r.membership.Members(ctx, wsID)
		if err != nil {
			logger.Warnf("[router] notify members ws=%s err=%v", wsID, err)
		}
		for _, uid := range members {
			targets[uid] = struct{}{}
		}
	}
	for uid := range targets {
		r.deliverUser(ctx, "", uid, EvtNotification, payload, "", false)
	}
}

func (r *Router) fanout(ctx context.Context, wsID, event string, payload json.RawMessage, excludeConnID string, buffer bool) {
	members, err := r.membership.Members(ctx, wsID)
	if err != nil {
		logger.Warnf("[router] members ws=%s err=%v", wsID, err)
		return
	}
	// workspace with no members is a no-op, not an error
	for _, uid := range members {
		r.deliverUser(ctx, wsID, uid, event, payload, excludeConnID, buffer)
	}
}

func (r *Router) deliverUser(ctx context.Context, wsID, userID, event string, payload json.RawMessage, excludeConnID string, buffer bool) {
	ids, err := r.reg.Conns(ctx, userID)
	if err != nil {
		logger.Warnf("[router] conns user=%s err=%v", userID, err)
		ids = nil
	}

	if len(ids) == 0 {
		if !buffer {
			logger.Infof("[router] drop %s for offline user=%s", event, userID)
			return
		}
		if err := r.pending.Append(ctx, wsID, userID, payload); err != nil {
			logger.Warnf("[router] buffer ws=%s user=%s err=%v", wsID, userID, err)
		}
		return
	}

	frame := BuildFrame(event, payload)
	if r.relay != nil {
		// peer gateways (and our own loopback subscription) push to
		// their local transports for this user
		r.relay.Publish(userID, excludeConnID, frame)
		return
	}
	r.pushLocal(userID, ids, excludeConnID, frame)
}

// pushLocal pushes one frame to each of the user's registered ids that
// has a transport on this process. Ids live on other instances are left
// to the relay; ids with no transport anywhere are reaper food.
func (r *Router) pushLocal(userID string, ids []string, excludeConnID string, frame []byte) {
	for _, id := range ids {
		if id == excludeConnID {
			continue
		}
		c, ok := r.table.Get(id)
		if !ok {
			continue
		}
		if err := c.Push(frame); err != nil {
			logger.Warnf("[router] push user=%s conn=%s err=%v", userID, id, err)
		}
	}
}
