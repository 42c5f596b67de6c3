package storage

import "context"

// PendingQueue holds serialized message payloads for (workspace, user)
// pairs that had no live connection at routing time. FIFO by append
// order; drained and deleted in one atomic step when the user connects.
type PendingQueue struct {
	store Store
}

func NewPendingQueue(store Store) *PendingQueue {
	return &PendingQueue{store: store}
}

// Append buffers one payload at the queue tail.
func (q *PendingQueue) Append(ctx context.Context, wsID, userID string, payload []byte) error {
	return q.store.RPush(ctx, unreadKey(wsID, userID), string(payload))
}

// Drain atomically reads and deletes the queue, returning payloads in
// original append order. A racing Append is either included here or left
// in a fresh queue for the next drain, never lost.
func (q *PendingQueue) Drain(ctx context.Context, wsID, userID string) ([][]byte, error) {
	vals, err := q.store.PopAll(ctx, unreadKey(wsID, userID))
	if err != nil {
		return nil, err
	}
	out := make([][]byte, 0, len(vals))
	for _, v := range vals {
		out = append(out, []byte(v))
	}
	return out, nil
}
