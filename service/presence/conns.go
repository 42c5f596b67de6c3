package presence

import (
	"sync"
	"time"

	"TeamSync/logger"
	errs "TeamSync/tools/errs"

	"github.com/gorilla/websocket"
)

// Transport is the write side of one client link. *websocket.Conn
// satisfies it; tests plug in fakes.
type Transport interface {
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Conn is one live client connection on this process: transport plus a
// bounded send queue consumed by a single writer goroutine, which is what
// gives per-connection delivery ordering.
type Conn struct {
	ID     string
	UserID string

	ws   Transport
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}

	writeDeadline time.Duration
}

func newConn(id, userID string, ws Transport, queueSize int, writeDeadline time.Duration) *Conn {
	return &Conn{
		ID:            id,
		UserID:        userID,
		ws:            ws,
		send:          make(chan []byte, queueSize),
		done:          make(chan struct{}),
		writeDeadline: writeDeadline,
	}
}

// Push enqueues a frame without blocking. A full queue means a slow
// client; the frame is dropped for this connection only.
func (c *Conn) Push(frame []byte) error {
	select {
	case <-c.done:
		return errs.ErrDeliveryPartial.WithDetail("connection closed")
	default:
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return errs.ErrDeliveryPartial.WithDetail("send queue full")
	}
}

// writeLoop is the single writer; started once per connection.
func (c *Conn) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeDeadline)); err != nil {
				logger.Warnf("[conn] set deadline conn=%s err=%v", c.ID, err)
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				logger.Warnf("[conn] write conn=%s user=%s err=%v", c.ID, c.UserID, err)
			}
		}
	}
}

// Close stops the writer and closes the transport. Idempotent.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		closeQuiet(c.ws)
	})
}

func closeQuiet(t Transport) {
	if t != nil {
		_ = t.Close()
	}
}

// ConnTable indexes this process's live connections: byID is the main
// index, byUser the per-user view. Only transport liveness lives here;
// the durable registry is elsewhere.
type ConnTable struct {
	mu     sync.RWMutex
	byID   map[string]*Conn
	byUser map[string]map[string]*Conn
}

func NewConnTable() *ConnTable {
	return &ConnTable{
		byID:   make(map[string]*Conn),
		byUser: make(map[string]map[string]*Conn),
	}
}

func (t *ConnTable) Add(c *Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byID[c.ID] = c
	mm := t.byUser[c.UserID]
	if mm == nil {
		mm = make(map[string]*Conn)
		t.byUser[c.UserID] = mm
	}
	mm[c.ID] = c
}

// Remove unindexes the connection; it does not close the transport.
// Returns how many connections the user still has here.
func (t *ConnTable) Remove(connID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.byID[connID]
	if !ok {
		return -1
	}
	delete(t.byID, connID)
	remaining := 0
	if mm := t.byUser[c.UserID]; mm != nil {
		delete(mm, connID)
		remaining = len(mm)
		if remaining == 0 {
			delete(t.byUser, c.UserID)
		}
	}
	return remaining
}

func (t *ConnTable) Get(connID string) (*Conn, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.byID[connID]
	return c, ok
}

// Live reports whether a transport for this id exists on this process.
func (t *ConnTable) Live(connID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.byID[connID]
	return ok
}

// ListUser snapshots the user's local connections.
func (t *ConnTable) ListUser(userID string) []*Conn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	mm := t.byUser[userID]
	if len(mm) == 0 {
		return nil
	}
	out := make([]*Conn, 0, len(mm))
	for _, c := range mm {
		out = append(out, c)
	}
	return out
}

func (t *ConnTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byID)
}

// CloseAll closes every connection; shutdown path.
func (t *ConnTable) CloseAll() {
	t.mu.Lock()
	conns := make([]*Conn, 0, len(t.byID))
	for _, c := range t.byID {
		conns = append(conns, c)
	}
	t.byID = make(map[string]*Conn)
	t.byUser = make(map[string]map[string]*Conn)
	t.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
