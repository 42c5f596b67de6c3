package presence

import (
	"fmt"
	"testing"
	"time"
)

func TestWriterPreservesPerConnectionOrder(t *testing.T) {
	ft := newFakeTransport()
	c := newConn("c1", "u1", ft, 16, time.Second)
	go c.writeLoop()
	defer c.Close()

	for i := 0; i < 5; i++ {
		if err := c.Push([]byte(fmt.Sprintf("f%d", i))); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	for i := 0; i < 5; i++ {
		select {
		case frame := <-ft.frames:
			if want := fmt.Sprintf("f%d", i); string(frame) != want {
				t.Fatalf("frame %d = %q, want %q", i, frame, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("frame %d never written", i)
		}
	}
}

func TestPushAfterCloseFails(t *testing.T) {
	c := newConn("c1", "u1", newFakeTransport(), 4, time.Second)
	c.Close()
	if err := c.Push([]byte("x")); err == nil {
		t.Fatalf("push after close succeeded")
	}
}

func TestPushDropsWhenQueueFull(t *testing.T) {
	c := newConn("c1", "u1", newFakeTransport(), 2, time.Second)
	// no writer running: queue fills
	if err := c.Push([]byte("a")); err != nil {
		t.Fatalf("push: %v", err)
	}
	if err := c.Push([]byte("b")); err != nil {
		t.Fatalf("push: %v", err)
	}
	if err := c.Push([]byte("c")); err == nil {
		t.Fatalf("push into full queue succeeded")
	}
}

func TestCloseIsIdempotentAndClosesTransport(t *testing.T) {
	ft := newFakeTransport()
	c := newConn("c1", "u1", ft, 4, time.Second)
	c.Close()
	c.Close()
	if !ft.isClosed() {
		t.Fatalf("transport not closed")
	}
}

func TestConnTableIndexes(t *testing.T) {
	table := NewConnTable()
	c1 := newConn("c1", "u1", newFakeTransport(), 4, time.Second)
	c2 := newConn("c2", "u1", newFakeTransport(), 4, time.Second)
	table.Add(c1)
	table.Add(c2)

	if !table.Live("c1") || !table.Live("c2") {
		t.Fatalf("connections not live after Add")
	}
	if got := len(table.ListUser("u1")); got != 2 {
		t.Fatalf("ListUser = %d conns, want 2", got)
	}

	if remaining := table.Remove("c1"); remaining != 1 {
		t.Fatalf("remaining = %d, want 1", remaining)
	}
	if remaining := table.Remove("c2"); remaining != 0 {
		t.Fatalf("remaining = %d, want 0", remaining)
	}
	if table.Live("c1") || table.Live("c2") {
		t.Fatalf("connections live after Remove")
	}
	if remaining := table.Remove("ghost"); remaining != -1 {
		t.Fatalf("removing unknown id = %d, want -1", remaining)
	}
}
