package main

import (
	"testing"
	"time"

	"github.com/example/handshake_sim/core"
)

// The long latency keeps the timer from firing on its own; tests drive
// delivery deterministically through fire and Drop.
const neverFires = time.Hour

func TestTransitDeliverAtMostOnce(t *testing.T) {
	delivered := 0
	tr := NewTransit(neverFires, func(pkt *core.Packet) { delivered++ }, nil)

	pkt := &core.Packet{ID: 1, Flag: core.KindSYN}
	tr.Enqueue(pkt)
	if tr.InFlightCount() != 1 {
		t.Fatalf("in-flight = %d, want 1", tr.InFlightCount())
	}

	tr.fire(pkt.ID)
	tr.fire(pkt.ID) // duplicate deadline must find the id gone
	if delivered != 1 {
		t.Fatalf("delivered %d times, want exactly 1", delivered)
	}
	if tr.InFlightCount() != 0 {
		t.Fatalf("in-flight = %d after delivery, want 0", tr.InFlightCount())
	}
}

func TestTransitDropBeforeDeadline(t *testing.T) {
	delivered := 0
	var dropped *core.Packet
	tr := NewTransit(neverFires,
		func(pkt *core.Packet) { delivered++ },
		func(pkt *core.Packet) { dropped = pkt },
	)

	pkt := &core.Packet{ID: 7, Flag: core.KindSYNACK}
	tr.Enqueue(pkt)

	if !tr.Drop(pkt.ID) {
		t.Fatalf("Drop must succeed while the packet is in flight")
	}
	if dropped == nil || !dropped.Dropped {
		t.Fatalf("onDrop not invoked with a marked packet: %+v", dropped)
	}
	tr.fire(pkt.ID)
	if delivered != 0 {
		t.Fatalf("dropped packet was delivered")
	}
	if tr.Drop(pkt.ID) {
		t.Fatalf("second Drop on the same id must be a no-op")
	}
}

func TestTransitDropAfterDelivery(t *testing.T) {
	tr := NewTransit(neverFires, func(pkt *core.Packet) {}, func(pkt *core.Packet) {
		t.Fatalf("onDrop must not fire for a delivered packet")
	})

	pkt := &core.Packet{ID: 3, Flag: core.KindDATA}
	tr.Enqueue(pkt)
	tr.fire(pkt.ID)

	if tr.Drop(pkt.ID) {
		t.Fatalf("Drop after delivery must return false")
	}
	if pkt.Dropped {
		t.Fatalf("delivered packet must not be marked dropped")
	}
}

func TestTransitDropUnknownID(t *testing.T) {
	tr := NewTransit(neverFires, nil, nil)
	if tr.Drop(42) {
		t.Fatalf("Drop on an unknown id must return false")
	}
}

func TestTransitScheduledDelivery(t *testing.T) {
	done := make(chan *core.Packet, 1)
	tr := NewTransit(10*time.Millisecond, func(pkt *core.Packet) { done <- pkt }, nil)

	tr.Enqueue(&core.Packet{ID: 9, Flag: core.KindFIN})
	select {
	case pkt := <-done:
		if pkt.ID != 9 {
			t.Fatalf("delivered wrong packet: %+v", pkt)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("packet never delivered")
	}
}

func TestTransitReset(t *testing.T) {
	delivered := 0
	tr := NewTransit(neverFires, func(pkt *core.Packet) { delivered++ }, nil)

	tr.Enqueue(&core.Packet{ID: 1})
	tr.Enqueue(&core.Packet{ID: 2})
	tr.Reset()

	if tr.InFlightCount() != 0 {
		t.Fatalf("in-flight = %d after reset, want 0", tr.InFlightCount())
	}
	tr.fire(1)
	tr.fire(2)
	if delivered != 0 {
		t.Fatalf("reset packets must not deliver")
	}
}

func TestTransitSnapshotOrderedByID(t *testing.T) {
	tr := NewTransit(neverFires, nil, nil)
	tr.Enqueue(&core.Packet{ID: 5, Flag: core.KindDATA})
	tr.Enqueue(&core.Packet{ID: 2, Flag: core.KindSYN})
	tr.Enqueue(&core.Packet{ID: 8, Flag: core.KindACK})

	snap := tr.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("snapshot len = %d, want 3", len(snap))
	}
	for i := 1; i < len(snap); i++ {
		if snap[i-1].ID >= snap[i].ID {
			t.Fatalf("snapshot not ordered by id: %v", snap)
		}
	}
}
