package main

import (
	"sort"
	"sync"
	"time"

	"github.com/example/handshake_sim/core"
)

// Transit models network transit as delayed, droppable delivery. The
// in-flight map is the single source of truth: whichever of the scheduled
// deadline or an explicit drop removes a packet id first wins, and the loser
// finds the id absent and does nothing. A packet is therefore delivered at
// most once, and never after a drop.
//
// Each packet gets an independent timer; nothing here assumes FIFO arrival
// order, so a jitter variant only needs to vary the deadline.
type Transit struct {
	mu       sync.Mutex
	latency  time.Duration
	inflight map[int64]*flight

	// deliver and onDrop fire off the owning goroutine; callers route them
	// back into the engine loop.
	deliver func(pkt *core.Packet)
	onDrop  func(pkt *core.Packet)
}

type flight struct {
	pkt   *core.Packet
	timer *time.Timer
}

// NewTransit creates a scheduler with a fixed one-way latency.
func NewTransit(latency time.Duration, deliver, onDrop func(pkt *core.Packet)) *Transit {
	return &Transit{
		latency:  latency,
		inflight: make(map[int64]*flight),
		deliver:  deliver,
		onDrop:   onDrop,
	}
}

// Enqueue registers the packet as in-flight with deadline now+latency and
// schedules its delivery.
func (t *Transit) Enqueue(pkt *core.Packet) {
	if t == nil || pkt == nil {
		return
	}
	t.mu.Lock()
	f := &flight{pkt: pkt}
	t.inflight[pkt.ID] = f
	id := pkt.ID
	f.timer = time.AfterFunc(t.latency, func() { t.fire(id) })
	t.mu.Unlock()
}

// fire is the deadline-triggered delivery path. If the packet was dropped
// in the meantime the id is already absent and this is a no-op.
func (t *Transit) fire(id int64) {
	pkt := t.take(id)
	if pkt == nil {
		return
	}
	if t.deliver != nil {
		t.deliver(pkt)
	}
}

// Drop removes an in-flight packet before its deadline. Returns false when
// the packet was already delivered or is unknown; dropping is a no-op then,
// not an error.
func (t *Transit) Drop(id int64) bool {
	t.mu.Lock()
	f, ok := t.inflight[id]
	if !ok {
		t.mu.Unlock()
		return false
	}
	delete(t.inflight, id)
	f.timer.Stop()
	t.mu.Unlock()

	// sole owner now; safe to record the fate
	f.pkt.Dropped = true
	if t.onDrop != nil {
		t.onDrop(f.pkt)
	}
	return true
}

// take removes and returns the packet for id, or nil if absent.
func (t *Transit) take(id int64) *core.Packet {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.inflight[id]
	if !ok {
		return nil
	}
	delete(t.inflight, id)
	return f.pkt
}

// Reset cancels every pending delivery and empties the in-flight set.
func (t *Transit) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, f := range t.inflight {
		f.timer.Stop()
		delete(t.inflight, id)
	}
}

// InFlightCount returns the number of packets currently in transit.
func (t *Transit) InFlightCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight)
}

// Snapshot returns the in-flight packets for presentation, ordered by id.
func (t *Transit) Snapshot() []core.PacketInfo {
	t.mu.Lock()
	infos := make([]core.PacketInfo, 0, len(t.inflight))
	for _, f := range t.inflight {
		infos = append(infos, f.pkt.Info())
	}
	t.mu.Unlock()
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}
