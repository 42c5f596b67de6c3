package storage

import "context"

// Store is the narrow slice of a key-value store the gateway needs: sets
// for the connection and membership registries, a hash for last-activity,
// lists for pending-delivery queues, and prefix enumeration for the
// reaper. Production runs on Redis (redis_store.go); tests use the
// in-memory implementation (mem.go).
type Store interface {
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)

	HSet(ctx context.Context, key, field, value string) error
	HGet(ctx context.Context, key, field string) (string, bool, error)
	HDel(ctx context.Context, key string, fields ...string) error

	RPush(ctx context.Context, key string, values ...string) error

	// PopAll atomically reads the whole list and deletes the key. An
	// append racing with PopAll lands either in the returned batch or in
	// a fresh list under the same key, never lost and never duplicated.
	PopAll(ctx context.Context, key string) ([]string, error)

	Del(ctx context.Context, keys ...string) error

	// Keys returns keys matching a glob pattern (single `*` wildcards).
	Keys(ctx context.Context, pattern string) ([]string, error)
}
