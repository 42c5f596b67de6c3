package storage

import (
	"context"
	"sort"
	"testing"
)

func TestMemKeysGlob(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	_ = s.SAdd(ctx, "user:a:sockets", "c1")
	_ = s.SAdd(ctx, "user:b:sockets", "c2")
	_ = s.SAdd(ctx, "user:a:workspaces", "ws1")
	_ = s.HSet(ctx, "user:a:lastseen", "c1", "0")
	_ = s.RPush(ctx, "workspace:ws1:unread:a", "x")

	keys, err := s.Keys(ctx, "user:*:sockets")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "user:a:sockets" || keys[1] != "user:b:sockets" {
		t.Fatalf("keys = %v", keys)
	}
}

func TestMemDelDropsAllKindsOfKeys(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	_ = s.SAdd(ctx, "k1", "a")
	_ = s.HSet(ctx, "k2", "f", "v")
	_ = s.RPush(ctx, "k3", "x")

	if err := s.Del(ctx, "k1", "k2", "k3"); err != nil {
		t.Fatalf("del: %v", err)
	}

	if ms, _ := s.SMembers(ctx, "k1"); len(ms) != 0 {
		t.Fatalf("set survived del: %v", ms)
	}
	if _, ok, _ := s.HGet(ctx, "k2", "f"); ok {
		t.Fatal("hash field survived del")
	}
	if vs, _ := s.PopAll(ctx, "k3"); len(vs) != 0 {
		t.Fatalf("list survived del: %v", vs)
	}
}

func TestMemEmptySetKeyDisappears(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	_ = s.SAdd(ctx, "user:a:sockets", "c1")
	_ = s.SRem(ctx, "user:a:sockets", "c1")

	keys, err := s.Keys(ctx, "user:*:sockets")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("emptied set still enumerable: %v", keys)
	}
}
