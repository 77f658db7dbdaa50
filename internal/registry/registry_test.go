package registry

import (
	"errors"
	"sync"
	"testing"
)

// testConn implements Conn for testing.
type testConn struct {
	id string

	mu     sync.Mutex
	events []any
	fail   bool
}

func (c *testConn) ID() string { return c.id }

func (c *testConn) Deliver(event any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("write failed")
	}
	c.events = append(c.events, event)
	return nil
}

func (c *testConn) delivered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestRegister_RejectsEmptyIdentity(t *testing.T) {
	r := New()
	if _, err := r.Register("", &testConn{id: "c1"}); !errors.Is(err, ErrNoIdentity) {
		t.Fatalf("expected ErrNoIdentity, got %v", err)
	}
}

func TestRegister_FirstConnectionMarksOnline(t *testing.T) {
	r := New()

	first, err := r.Register("alice", &testConn{id: "c1"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if !first {
		t.Error("first connection should report first=true")
	}
	if !r.IsOnline("alice") {
		t.Error("alice should be online")
	}

	first, _ = r.Register("alice", &testConn{id: "c2"})
	if first {
		t.Error("second connection should report first=false")
	}
	if got := r.ConnectionCount("alice"); got != 2 {
		t.Errorf("expected 2 connections, got %d", got)
	}
}

func TestRegister_DuplicateHandleIsNoop(t *testing.T) {
	r := New()
	c := &testConn{id: "c1"}

	r.Register("alice", c)
	r.Register("alice", c)

	if got := r.ConnectionCount("alice"); got != 1 {
		t.Errorf("duplicate register should dedupe, got %d connections", got)
	}
}

func TestUnregister_LastConnectionRemovesEntry(t *testing.T) {
	r := New()
	c1 := &testConn{id: "c1"}
	c2 := &testConn{id: "c2"}

	r.Register("alice", c1)
	r.Register("alice", c2)

	if last := r.Unregister("alice", c1); last {
		t.Error("one connection remaining, should not report last")
	}
	if !r.IsOnline("alice") {
		t.Error("alice should still be online with one connection")
	}

	if last := r.Unregister("alice", c2); !last {
		t.Error("removing final connection should report last")
	}
	if r.IsOnline("alice") {
		t.Error("alice should be offline")
	}
	if got := r.ConnectionCount("alice"); got != 0 {
		t.Errorf("expected 0 connections, got %d", got)
	}
}

func TestUnregister_AbsentIsNoop(t *testing.T) {
	r := New()

	// Neither the user nor the handle exists.
	if last := r.Unregister("ghost", &testConn{id: "c1"}); last {
		t.Error("unregistering an absent user should not report last")
	}

	r.Register("alice", &testConn{id: "c1"})
	if last := r.Unregister("alice", &testConn{id: "other"}); last {
		t.Error("unregistering an absent handle should not drain the set")
	}
	if !r.IsOnline("alice") {
		t.Error("alice should remain online")
	}
}

func TestFanOut_DeliversToAllConnections(t *testing.T) {
	r := New()
	c1 := &testConn{id: "c1"}
	c2 := &testConn{id: "c2"}
	other := &testConn{id: "c3"}

	r.Register("bob", c1)
	r.Register("bob", c2)
	r.Register("carol", other)

	n := r.FanOut("bob", "hello")
	if n != 2 {
		t.Errorf("expected 2 deliveries, got %d", n)
	}
	if c1.delivered() != 1 || c2.delivered() != 1 {
		t.Error("both of bob's connections should receive the event")
	}
	if other.delivered() != 0 {
		t.Error("carol's connection must not receive bob's event")
	}
}

func TestFanOut_NoConnectionsIsNoop(t *testing.T) {
	r := New()
	if n := r.FanOut("nobody", "hello"); n != 0 {
		t.Errorf("expected 0 deliveries, got %d", n)
	}
}

func TestFanOut_FailedConnectionDoesNotStopOthers(t *testing.T) {
	r := New()
	bad := &testConn{id: "c1", fail: true}
	good := &testConn{id: "c2"}

	r.Register("bob", bad)
	r.Register("bob", good)

	n := r.FanOut("bob", "hello")
	if n != 1 {
		t.Errorf("expected 1 successful delivery, got %d", n)
	}
	if good.delivered() != 1 {
		t.Error("healthy connection should still receive the event")
	}
}

func TestBroadcast_SkipsExceptedUser(t *testing.T) {
	r := New()
	alice := &testConn{id: "c1"}
	bob := &testConn{id: "c2"}

	r.Register("alice", alice)
	r.Register("bob", bob)

	r.Broadcast("status", "alice")

	if alice.delivered() != 0 {
		t.Error("excepted user should not receive the broadcast")
	}
	if bob.delivered() != 1 {
		t.Error("other users should receive the broadcast")
	}
}

func TestRegistry_ConcurrentChurn(t *testing.T) {
	r := New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			c := &testConn{id: string(rune('a' + n))}
			for j := 0; j < 200; j++ {
				r.Register("shared", c)
				r.FanOut("shared", j)
				r.Unregister("shared", c)
			}
		}(i)
	}
	wg.Wait()

	if r.IsOnline("shared") {
		t.Error("all connections unregistered, user should be offline")
	}
}
