package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/example/handshake_sim/annotate"
	"github.com/example/handshake_sim/core"
	"github.com/example/handshake_sim/hooks"
)

var (
	// ErrInvalidAction signals a user action that is a no-op in the current
	// connection state.
	ErrInvalidAction = errors.New("invalid action for current state")
	// ErrEngineStopped signals an action against a stopped engine.
	ErrEngineStopped = errors.New("engine stopped")
)

// SimulationFrame is the presentation view of the whole simulation, published
// after every processed event. Consumers only read it.
type SimulationFrame struct {
	Nodes            []core.NodeSnapshot `json:"nodes"`
	InFlight         []core.PacketInfo   `json:"inFlight"`
	Stats            *SimulationStats    `json:"stats"`
	TransitLatencyMS int                 `json:"transitLatencyMs"`
}

type engineEventKind int

const (
	evAction engineEventKind = iota
	evArrival
	evDropped
	evAnnotation
	evSnapshot
)

type actionKind int

const (
	actConnect actionKind = iota
	actDisconnect
	actSendData
	actSendReset
	actReset
)

type engineEvent struct {
	kind engineEventKind

	action  actionKind
	payload string
	reply   chan error

	pkt *core.Packet // arrival, dropped

	annotRole core.Endpoint // annotation
	annotText string

	frameReply chan *SimulationFrame // snapshot
}

// Engine owns both NodeStates and serializes every state transition through a
// single event-loop goroutine. User actions, deliveries, drop notifications,
// and annotation results all enter as events; state is always read fresh
// inside the loop, never captured at enqueue time.
type Engine struct {
	cfg       *Config
	client    *core.NodeState
	server    *core.NodeState
	machine   *Machine
	transit   *Transit
	broker    *hooks.Broker
	annotator annotate.Annotator

	events chan engineEvent
	done   chan struct{}
	stop   sync.Once

	frameSink func(*SimulationFrame)

	pktSeq int64
	logSeq int64
	evtSeq int64
	stats  SimulationStats
}

// NewEngine wires the engine with its collaborators. The broker and
// annotator may be nil-equivalent stand-ins; the protocol behaves
// identically without them.
func NewEngine(cfg *Config, broker *hooks.Broker, annotator annotate.Annotator) *Engine {
	if broker == nil {
		broker = hooks.NewBroker()
	}
	if annotator == nil {
		annotator = annotate.NewStatic()
	}
	e := &Engine{
		cfg:       cfg,
		client:    core.NewNodeState(core.EndpointClient, cfg.ClientSeqBase),
		server:    core.NewNodeState(core.EndpointServer, cfg.ServerSeqBase),
		broker:    broker,
		annotator: annotator,
		events:    make(chan engineEvent, 64),
		done:      make(chan struct{}),
	}
	e.machine = NewMachine(
		cfg.ClientSeqBase,
		cfg.ServerSeqBase,
		e.nextPacketID,
		uuid.NewString,
		time.Now,
		e.appendLog,
	)
	e.transit = NewTransit(cfg.TransitLatency(), e.postArrival, e.postDropped)
	return e
}

// SetFrameSink installs the frame publisher. Frames are built and published
// from inside the event loop.
func (e *Engine) SetFrameSink(sink func(*SimulationFrame)) {
	e.frameSink = sink
}

// Start launches the event loop.
func (e *Engine) Start() {
	log.Debug().Int("latency_ms", e.cfg.TransitLatencyMS).Msg("engine started")
	go e.run()
}

// Stop terminates the event loop. Pending timers fire into the void.
func (e *Engine) Stop() {
	e.stop.Do(func() { close(e.done) })
}

// Connect starts the three-way handshake. Valid only from CLOSED.
func (e *Engine) Connect() error {
	return e.doAction(actConnect, "")
}

// Disconnect sends FIN and immediately tears the client down. Teardown is
// unilateral: there is no FIN-ACK exchange in this protocol.
func (e *Engine) Disconnect() error {
	return e.doAction(actDisconnect, "")
}

// SendData transmits a payload. Valid only from ESTABLISHED.
func (e *Engine) SendData(payload string) error {
	return e.doAction(actSendData, payload)
}

// SendReset sends RST and resets the client to its initial counters.
func (e *Engine) SendReset() error {
	return e.doAction(actSendReset, "")
}

// ResetSimulation cancels all in-flight packets and restores both nodes and
// the statistics to their initial values.
func (e *Engine) ResetSimulation() error {
	return e.doAction(actReset, "")
}

// DropPacket removes an in-flight packet, simulating loss. Returns false if
// the packet was already delivered or is unknown — a no-op, not an error.
func (e *Engine) DropPacket(id int64) bool {
	return e.transit.Drop(id)
}

// Snapshot returns a fresh frame built inside the event loop.
func (e *Engine) Snapshot() *SimulationFrame {
	reply := make(chan *SimulationFrame, 1)
	select {
	case e.events <- engineEvent{kind: evSnapshot, frameReply: reply}:
	case <-e.done:
		return nil
	}
	select {
	case frame := <-reply:
		return frame
	case <-e.done:
		return nil
	}
}

func (e *Engine) doAction(kind actionKind, payload string) error {
	reply := make(chan error, 1)
	select {
	case e.events <- engineEvent{kind: evAction, action: kind, payload: payload, reply: reply}:
	case <-e.done:
		return ErrEngineStopped
	}
	select {
	case err := <-reply:
		return err
	case <-e.done:
		return ErrEngineStopped
	}
}

// postArrival routes a deadline-triggered delivery into the loop. Only the
// packet travels through the timer; node state is read fresh on processing.
func (e *Engine) postArrival(pkt *core.Packet) {
	select {
	case e.events <- engineEvent{kind: evArrival, pkt: pkt}:
	case <-e.done:
	}
}

func (e *Engine) postDropped(pkt *core.Packet) {
	select {
	case e.events <- engineEvent{kind: evDropped, pkt: pkt}:
	case <-e.done:
	}
}

func (e *Engine) run() {
	for {
		select {
		case <-e.done:
			return
		case ev := <-e.events:
			e.handle(ev)
		}
	}
}

func (e *Engine) handle(ev engineEvent) {
	switch ev.kind {
	case evAction:
		err := e.applyAction(ev.action, ev.payload)
		ev.reply <- err
		e.publishFrame()
	case evArrival:
		e.handleArrival(ev.pkt)
		e.publishFrame()
	case evDropped:
		e.handleDropped(ev.pkt)
		e.publishFrame()
	case evAnnotation:
		e.appendLog(ev.annotRole, core.LogInfo, "%s", ev.annotText)
		e.publishFrame()
	case evSnapshot:
		ev.frameReply <- e.buildFrame()
	}
}

func (e *Engine) applyAction(kind actionKind, payload string) error {
	switch kind {
	case actConnect:
		if e.client.ConnState != core.StateClosed {
			e.appendLog(core.EndpointClient, core.LogWarning, "connect ignored in state %s", e.client.ConnState)
			return fmt.Errorf("%w: connect requires CLOSED, state is %s", ErrInvalidAction, e.client.ConnState)
		}
		e.client.ConnState = core.StateSynSent
		pkt := e.machine.BuildPacket(e.client, core.KindSYN, "")
		e.appendLog(core.EndpointClient, core.LogInfo, "connecting, SYN with seq %d", pkt.Seq)
		e.send(pkt)
		return nil

	case actSendData:
		if e.client.ConnState != core.StateEstablished {
			e.appendLog(core.EndpointClient, core.LogWarning, "send ignored in state %s", e.client.ConnState)
			return fmt.Errorf("%w: sendData requires ESTABLISHED, state is %s", ErrInvalidAction, e.client.ConnState)
		}
		pkt := e.machine.BuildPacket(e.client, core.KindDATA, payload)
		e.send(pkt)
		return nil

	case actDisconnect:
		if e.client.ConnState != core.StateEstablished {
			e.appendLog(core.EndpointClient, core.LogWarning, "disconnect ignored in state %s", e.client.ConnState)
			return fmt.Errorf("%w: disconnect requires ESTABLISHED, state is %s", ErrInvalidAction, e.client.ConnState)
		}
		pkt := e.machine.BuildPacket(e.client, core.KindFIN, "")
		e.send(pkt)
		// unilateral teardown: closed as soon as the FIN is on the wire
		e.client.ConnState = core.StateClosed
		e.client.SessionID = ""
		e.appendLog(core.EndpointClient, core.LogInfo, "disconnected, FIN in flight")
		return nil

	case actSendReset:
		if e.client.ConnState == core.StateClosed {
			return fmt.Errorf("%w: nothing to reset in CLOSED", ErrInvalidAction)
		}
		pkt := e.machine.BuildPacket(e.client, core.KindRST, "")
		e.send(pkt)
		e.client.ConnState = core.StateClosed
		e.client.SessionID = ""
		e.client.Seq = e.machine.SeqBase(core.EndpointClient)
		e.client.LastAckReceived = 0
		e.appendLog(core.EndpointClient, core.LogWarning, "connection reset, RST in flight")
		return nil

	case actReset:
		e.transit.Reset()
		e.client.Reset(e.cfg.ClientSeqBase)
		e.server.Reset(e.cfg.ServerSeqBase)
		e.stats = SimulationStats{}
		e.appendLog(core.EndpointClient, core.LogInfo, "simulation reset")
		e.appendLog(core.EndpointServer, core.LogInfo, "simulation reset")
		return nil

	default:
		return fmt.Errorf("%w: unknown action", ErrInvalidAction)
	}
}

// send registers an outgoing packet with the transit scheduler.
func (e *Engine) send(pkt *core.Packet) {
	e.statsFor(pkt.Source).Sent++
	e.appendLog(pkt.Source, core.LogTraffic, "-> %s seq=%d ack=%d", pkt.Flag, pkt.Seq, pkt.Ack)
	e.emitPacketEvent(core.PacketEnqueued, pkt)
	e.transit.Enqueue(pkt)
}

// handleArrival processes a delivered packet against the receiver's current
// state. The packet is gone from the in-flight set by now, so a duplicate
// delivery can never reach this point.
func (e *Engine) handleArrival(pkt *core.Packet) {
	receiver := e.node(pkt.Destination)
	e.statsFor(pkt.Destination).Delivered++
	e.emitPacketEvent(core.PacketDelivered, pkt)
	e.appendLog(receiver.Role, core.LogTraffic, "<- %s seq=%d ack=%d", pkt.Flag, pkt.Seq, pkt.Ack)

	prev := receiver.ConnState
	replies, handled := e.machine.Apply(receiver, pkt)
	if !handled {
		e.statsFor(pkt.Destination).Ignored++
		e.appendLog(receiver.Role, core.LogWarning, "%s ignored in state %s", pkt.Flag, prev)
		return
	}
	if receiver.ConnState != prev {
		e.appendLog(receiver.Role, core.LogInfo, "state %s -> %s", prev, receiver.ConnState)
	}
	if receiver.Role == core.EndpointServer && prev == core.StateSynRcvd && receiver.ConnState == core.StateEstablished {
		e.stats.HandshakesCompleted++
	}
	if receiver.Role == core.EndpointClient && pkt.Flag == core.KindACK && prev == core.StateEstablished {
		e.stats.DataAcknowledged++
	}

	e.annotateAsync(pkt, receiver)

	for _, reply := range replies {
		e.send(reply)
	}
}

func (e *Engine) handleDropped(pkt *core.Packet) {
	// loss is attributed to the sender; the receiver never learns of the packet
	e.statsFor(pkt.Source).Dropped++
	e.emitPacketEvent(core.PacketDropped, pkt)
	e.appendLog(pkt.Source, core.LogError, "%s seq=%d lost in transit", pkt.Flag, pkt.Seq)
}

// annotateAsync requests commentary for interesting packets. Fully decoupled:
// the reply packets above are emitted without ever waiting for this.
func (e *Engine) annotateAsync(pkt *core.Packet, receiver *core.NodeState) {
	if pkt.Flag == core.KindACK {
		return
	}
	info := pkt.Info()
	snap := receiver.Snapshot()
	role := receiver.Role
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		text := e.annotator.Analyze(ctx, info, snap)
		select {
		case e.events <- engineEvent{kind: evAnnotation, annotRole: role, annotText: text}:
		case <-e.done:
		}
	}()
}

func (e *Engine) node(role core.Endpoint) *core.NodeState {
	if role == core.EndpointClient {
		return e.client
	}
	return e.server
}

func (e *Engine) statsFor(role core.Endpoint) *EndpointStats {
	if role == core.EndpointClient {
		return &e.stats.Client
	}
	return &e.stats.Server
}

func (e *Engine) nextPacketID() int64 {
	e.pktSeq++
	return e.pktSeq
}

// appendLog records an entry on the node's event log and pushes it to the
// observer sinks, in the causal order of the loop.
func (e *Engine) appendLog(role core.Endpoint, category core.LogCategory, format string, args ...any) {
	e.logSeq++
	entry := core.LogEntry{
		ID:        e.logSeq,
		Timestamp: time.Now(),
		Message:   fmt.Sprintf(format, args...),
		Category:  category,
	}
	e.node(role).AppendLog(entry)
	e.broker.EmitLogEntry(role, entry)
}

func (e *Engine) emitPacketEvent(eventType core.PacketEventType, pkt *core.Packet) {
	e.evtSeq++
	e.broker.EmitPacketEvent(core.PacketEvent{
		Sequence: e.evtSeq,
		Type:     eventType,
		Packet:   pkt.Info(),
	})
}

func (e *Engine) buildFrame() *SimulationFrame {
	stats := e.stats
	stats.InFlight = e.transit.InFlightCount()
	return &SimulationFrame{
		Nodes:            []core.NodeSnapshot{e.client.Snapshot(), e.server.Snapshot()},
		InFlight:         e.transit.Snapshot(),
		Stats:            &stats,
		TransitLatencyMS: e.cfg.TransitLatencyMS,
	}
}

func (e *Engine) publishFrame() {
	if e.frameSink == nil {
		return
	}
	e.frameSink(e.buildFrame())
}
