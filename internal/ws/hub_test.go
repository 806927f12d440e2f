package ws

import (
	"testing"
)

func TestHub_BroadcastReachesAllHandles(t *testing.T) {
	h := NewHub()

	// Buyer and owner each hold one handle; the sender's own is included.
	buyer := NewSession("s1", "c1", "me", nil)
	owner := NewSession("s2", "c1", "u2", nil)
	h.Add(buyer)
	h.Add(owner)

	// A handle on another conversation must not receive anything.
	other := NewSession("s3", "c2", "u3", nil)
	h.Add(other)

	delivered := h.Broadcast("c1", []byte("frame"))
	if delivered != 2 {
		t.Errorf("expected 2 deliveries, got %d", delivered)
	}
	if len(buyer.SendQueue) != 1 || len(owner.SendQueue) != 1 {
		t.Error("both conversation handles should hold the frame")
	}
	if len(other.SendQueue) != 0 {
		t.Error("unrelated conversation handle should not receive the frame")
	}
}

func TestHub_BroadcastOrderIsIdenticalAcrossHandles(t *testing.T) {
	h := NewHub()
	buyer := NewSession("s1", "c1", "me", nil)
	owner := NewSession("s2", "c1", "u2", nil)
	h.Add(buyer)
	h.Add(owner)

	frames := [][]byte{[]byte("one"), []byte("two"), []byte("three")}
	for _, f := range frames {
		h.Broadcast("c1", f)
	}

	for _, s := range []*Session{buyer, owner} {
		for i := range frames {
			got := <-s.SendQueue
			if string(got) != string(frames[i]) {
				t.Errorf("session %s: expected frame %q at position %d, got %q", s.ID, frames[i], i, got)
			}
		}
	}
}

func TestHub_RemoveIsIdentityChecked(t *testing.T) {
	h := NewHub()

	s1 := NewSession("s1", "c1", "me", nil)
	h.Add(s1)

	// A replacement session reusing the id must survive a late Remove of the
	// old one.
	s2 := NewSession("s1", "c1", "me", nil)
	h.Add(s2)
	h.Remove(s1)

	if h.SessionCount("c1") != 1 {
		t.Errorf("expected replacement session to remain, count = %d", h.SessionCount("c1"))
	}

	h.Remove(s2)
	if h.SessionCount("c1") != 0 {
		t.Errorf("expected empty hub, count = %d", h.SessionCount("c1"))
	}
}

func TestHub_ClosedSessionRefusesFrames(t *testing.T) {
	h := NewHub()
	s := NewSession("s1", "c1", "me", nil)
	h.Add(s)

	s.Close()

	select {
	case <-s.Done():
	default:
		t.Fatal("closed session should report done")
	}

	if delivered := h.Broadcast("c1", []byte("frame")); delivered != 0 {
		t.Errorf("closed session must not accept frames, delivered = %d", delivered)
	}
}

func TestHub_CloseAll(t *testing.T) {
	h := NewHub()
	s1 := NewSession("s1", "c1", "me", nil)
	s2 := NewSession("s2", "c2", "u3", nil)
	h.Add(s1)
	h.Add(s2)

	h.CloseAll()

	for _, s := range []*Session{s1, s2} {
		select {
		case <-s.Done():
		default:
			t.Errorf("session %s should be closed", s.ID)
		}
	}
}

func TestSession_BackpressureOverflowDropsConnection(t *testing.T) {
	s := NewSession("s1", "c1", "me", nil)

	for i := 0; i < SendQueueSize; i++ {
		if !s.TrySend([]byte("frame")) {
			t.Fatalf("enqueue %d should succeed", i)
		}
	}

	// The queue is full and nothing is draining it: the next frame drops the
	// connection instead of blocking the broadcaster.
	if s.TrySend([]byte("overflow")) {
		t.Error("overflowing send should be refused")
	}
	select {
	case <-s.Done():
	default:
		t.Error("overflow should close the session")
	}
}
