package presence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"TeamSync/service/storage"
)

func TestAdmissionCapInvariant(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		e.clock.Advance(time.Minute)
		e.admit(t, "u1", fmt.Sprintf("c%d", i))

		ids, err := e.svc.reg.Conns(ctx, "u1")
		if err != nil {
			t.Fatalf("conns: %v", err)
		}
		if len(ids) > 5 {
			t.Fatalf("after admission %d: %d registered connections, cap is 5", i, len(ids))
		}
	}
}

func TestSixthConnectionEvictsOldest(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	conns := make([]*Conn, 0, 5)
	for i := 0; i < 5; i++ {
		e.clock.Advance(time.Minute)
		conns = append(conns, e.admit(t, "u1", fmt.Sprintf("c%d", i)))
	}

	e.clock.Advance(time.Minute)
	e.admit(t, "u1", "c5")

	ids, err := e.svc.reg.Conns(ctx, "u1")
	if err != nil {
		t.Fatalf("conns: %v", err)
	}
	if len(ids) != 5 {
		t.Fatalf("got %d connections, want 5", len(ids))
	}
	for _, id := range ids {
		if id == "c0" {
			t.Fatalf("oldest connection c0 still registered")
		}
	}
	if e.svc.table.Live("c0") {
		t.Fatalf("oldest connection c0 still live locally")
	}
	// only the oldest went away
	for _, c := range conns[1:] {
		if !e.svc.table.Live(c.ID) {
			t.Fatalf("connection %s evicted, only c0 should be", c.ID)
		}
	}
}

func TestIdleConnectionEvictedAtAdmission(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	old := e.admit(t, "u1", "cOld")
	e.clock.Advance(13 * time.Hour)
	e.admit(t, "u1", "cNew")

	if e.svc.table.Live(old.ID) {
		t.Fatalf("idle connection still live")
	}
	ids, _ := e.svc.reg.Conns(ctx, "u1")
	if len(ids) != 1 || ids[0] != "cNew" {
		t.Fatalf("registry = %v, want [cNew]", ids)
	}
}

func TestPingRefreshesActivity(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	old := e.admit(t, "u1", "cOld")
	e.clock.Advance(11 * time.Hour)
	e.svc.admission.Touch(ctx, "u1", "cOld")
	e.clock.Advance(2 * time.Hour)

	// 13h since creation but only 2h since the ping
	e.admit(t, "u1", "cNew")
	if !e.svc.table.Live(old.ID) {
		t.Fatalf("pinged connection was evicted as idle")
	}
}

func TestMissingTimestampEvictedLast(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	// a registered, locally live connection with no recorded activity
	ghost, _ := e.addConn("u1", "ghost")
	if err := e.store.SAdd(ctx, "user:u1:sockets", "ghost"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_ = ghost

	for i := 0; i < 4; i++ {
		e.clock.Advance(time.Minute)
		e.admit(t, "u1", fmt.Sprintf("c%d", i))
	}

	e.clock.Advance(time.Minute)
	e.admit(t, "u1", "c4")

	// c0 carries the oldest known timestamp; the ghost's unknown recency
	// sorts it after every known one, so it survives
	if !e.svc.table.Live("ghost") {
		t.Fatalf("connection without timestamp evicted before timestamped ones")
	}
	if e.svc.table.Live("c0") {
		t.Fatalf("oldest timestamped connection survived over the ghost")
	}
}

func TestStaleLocalEntriesCleanedAtAdmission(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	// registry entry with no live transport anywhere on this process
	if err := e.svc.reg.Add(ctx, "u1", "dead", e.clock.Now()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	e.admit(t, "u1", "c1")

	ids, _ := e.svc.reg.Conns(ctx, "u1")
	if len(ids) != 1 || ids[0] != "c1" {
		t.Fatalf("registry = %v, want [c1]", ids)
	}
}

// failingStore errors on every call; admission must stay fail-open.
type failingStore struct{}

func (failingStore) SAdd(context.Context, string, ...string) error { return errBoom }
func (failingStore) SRem(context.Context, string, ...string) error { return errBoom }
func (failingStore) SMembers(context.Context, string) ([]string, error) {
	return nil, errBoom
}
func (failingStore) HSet(context.Context, string, string, string) error { return errBoom }
func (failingStore) HGet(context.Context, string, string) (string, bool, error) {
	return "", false, errBoom
}
func (failingStore) HDel(context.Context, string, ...string) error  { return errBoom }
func (failingStore) RPush(context.Context, string, ...string) error { return errBoom }
func (failingStore) PopAll(context.Context, string) ([]string, error) {
	return nil, errBoom
}
func (failingStore) Del(context.Context, ...string) error { return errBoom }
func (failingStore) Keys(context.Context, string) ([]string, error) {
	return nil, errBoom
}

var errBoom = fmt.Errorf("store down")

var _ storage.Store = failingStore{}

func TestAdmissionFailOpenOnStoreError(t *testing.T) {
	svc := NewService(Conf{Clock: newFakeClock().Now}, failingStore{}, nil, nil)

	ft := newFakeTransport()
	c := newConn("c1", "u1", ft, 8, time.Second)
	svc.table.Add(c)

	// must not panic and must leave the new connection live
	svc.admission.Admit(context.Background(), "u1", "c1")

	if !svc.table.Live("c1") {
		t.Fatalf("new connection not admitted while store is down")
	}
}
