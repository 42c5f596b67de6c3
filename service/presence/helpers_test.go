package presence

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"TeamSync/service/auth"
	"TeamSync/service/storage"
)

// fakeClock is a movable clock for admission/idle tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// fakeTransport records written frames on a channel.
type fakeTransport struct {
	mu     sync.Mutex
	frames chan []byte
	closed bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{frames: make(chan []byte, 64)}
}

func (f *fakeTransport) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeTransport) WriteMessage(_ int, data []byte) error {
	f.frames <- data
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type testEnv struct {
	svc   *Service
	store storage.Store
	clock *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := newFakeClock()
	store := storage.NewMemStore()
	svc := NewService(Conf{
		MaxPerUser:    5,
		IdleTimeout:   12 * time.Hour,
		ReapEvery:     time.Hour,
		SendQueueSize: 32,
		Clock:         clock.Now,
	}, store, auth.NewHandshakeAuth(""), nil)
	return &testEnv{svc: svc, store: store, clock: clock}
}

// addConn creates a local live connection without going through
// admission.
func (e *testEnv) addConn(userID, connID string) (*Conn, *fakeTransport) {
	ft := newFakeTransport()
	c := newConn(connID, userID, ft, e.svc.conf.SendQueueSize, time.Second)
	e.svc.table.Add(c)
	return c, ft
}

// admit creates a connection and runs the full admission sequence.
func (e *testEnv) admit(t *testing.T, userID, connID string) *Conn {
	t.Helper()
	c, _ := e.addConn(userID, connID)
	e.svc.admission.Admit(context.Background(), userID, connID)
	return c
}

// recvFrame reads one queued outbound frame from the connection's send
// queue without starting the writer goroutine.
func recvFrame(t *testing.T, c *Conn) Envelope {
	t.Helper()
	select {
	case raw := <-c.send:
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("bad outbound frame %q: %v", raw, err)
		}
		return env
	case <-time.After(2 * time.Second):
		t.Fatalf("no frame on conn %s", c.ID)
		return Envelope{}
	}
}

func noFrame(t *testing.T, c *Conn) {
	t.Helper()
	select {
	case raw := <-c.send:
		t.Fatalf("unexpected frame on conn %s: %s", c.ID, raw)
	default:
	}
}
