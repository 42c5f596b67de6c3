package storage

import (
	"context"
	"strconv"
	"time"
)

// ConnRegistry is the durable user -> connection-id mapping plus a
// parallel last-activity hash. It is the source of truth for "does this
// connection still have a registry entry"; any in-process timestamp map
// is only a cache on top of it.
type ConnRegistry struct {
	store Store
}

func NewConnRegistry(store Store) *ConnRegistry {
	return &ConnRegistry{store: store}
}

// Add registers a connection id for the user and records its initial
// last-activity.
func (r *ConnRegistry) Add(ctx context.Context, userID, connID string, at time.Time) error {
	if err := r.store.SAdd(ctx, userSocketsKey(userID), connID); err != nil {
		return err
	}
	return r.store.HSet(ctx, userLastSeenKey(userID), connID, formatMS(at))
}

// Remove drops the connection id and its timestamp. Idempotent.
func (r *ConnRegistry) Remove(ctx context.Context, userID, connID string) error {
	if err := r.store.SRem(ctx, userSocketsKey(userID), connID); err != nil {
		return err
	}
	return r.store.HDel(ctx, userLastSeenKey(userID), connID)
}

// Conns lists the user's registered connection ids.
func (r *ConnRegistry) Conns(ctx context.Context, userID string) ([]string, error) {
	return r.store.SMembers(ctx, userSocketsKey(userID))
}

// Touch refreshes a connection's last-activity.
func (r *ConnRegistry) Touch(ctx context.Context, userID, connID string, at time.Time) error {
	return r.store.HSet(ctx, userLastSeenKey(userID), connID, formatMS(at))
}

// LastActive reads a connection's durable last-activity timestamp.
func (r *ConnRegistry) LastActive(ctx context.Context, userID, connID string) (time.Time, bool, error) {
	v, ok, err := r.store.HGet(ctx, userLastSeenKey(userID), connID)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	ms, perr := strconv.ParseInt(v, 10, 64)
	if perr != nil {
		return time.Time{}, false, nil
	}
	return time.UnixMilli(ms), true, nil
}

// Users enumerates every user id with a registry entry; reaper input.
func (r *ConnRegistry) Users(ctx context.Context) ([]string, error) {
	keys, err := r.store.Keys(ctx, userSocketsPattern)
	if err != nil {
		return nil, err
	}
	users := make([]string, 0, len(keys))
	for _, k := range keys {
		if id, ok := userFromSocketsKey(k); ok {
			users = append(users, id)
		}
	}
	return users, nil
}

func formatMS(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
