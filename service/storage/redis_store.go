package storage

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Atomic read-and-clear for pending-delivery queues. A concurrent RPUSH
// lands either before the LRANGE (returned here) or after the DEL (a
// fresh queue for the next drain).
const luaPopAll = `
local vals = redis.call("LRANGE", KEYS[1], 0, -1)
redis.call("DEL", KEYS[1])
return vals
`

type redisStore struct {
	rdb       *redis.Client
	luaPopAll *redis.Script
}

// NewRedisStore wraps an initialized client in the Store interface.
func NewRedisStore(rdb *redis.Client) Store {
	return &redisStore{
		rdb:       rdb,
		luaPopAll: redis.NewScript(luaPopAll),
	}
}

func (s *redisStore) SAdd(ctx context.Context, key string, members ...string) error {
	return s.rdb.SAdd(ctx, key, toAny(members)...).Err()
}

func (s *redisStore) SRem(ctx context.Context, key string, members ...string) error {
	return s.rdb.SRem(ctx, key, toAny(members)...).Err()
}

func (s *redisStore) SMembers(ctx context.Context, key string) ([]string, error) {
	return s.rdb.SMembers(ctx, key).Result()
}

func (s *redisStore) HSet(ctx context.Context, key, field, value string) error {
	return s.rdb.HSet(ctx, key, field, value).Err()
}

func (s *redisStore) HGet(ctx context.Context, key, field string) (string, bool, error) {
	v, err := s.rdb.HGet(ctx, key, field).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *redisStore) HDel(ctx context.Context, key string, fields ...string) error {
	return s.rdb.HDel(ctx, key, fields...).Err()
}

func (s *redisStore) RPush(ctx context.Context, key string, values ...string) error {
	return s.rdb.RPush(ctx, key, toAny(values)...).Err()
}

func (s *redisStore) PopAll(ctx context.Context, key string) ([]string, error) {
	vals, err := s.luaPopAll.Run(ctx, s.rdb, []string{key}).StringSlice()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	return vals, nil
}

func (s *redisStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}

func (s *redisStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	iter := s.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
