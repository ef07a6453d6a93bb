package main

import (
	"time"

	"github.com/example/handshake_sim/core"
)

// logFunc appends an entry to a node's event log via the engine.
type logFunc func(role core.Endpoint, category core.LogCategory, format string, args ...any)

type smTransition struct {
	next   core.ConnectionState
	guard  func(node *core.NodeState, pkt *core.Packet) bool
	action func(m *Machine, node *core.NodeState, pkt *core.Packet) []*core.Packet
}

// Machine is the authoritative transition function: given the receiving
// node's current state and an arriving packet, it computes the next state and
// any automatic replies. It mutates NodeState directly and must only be
// invoked from the engine's event loop.
//
// Unmatched flag/state combinations are ignored on purpose: this permissive
// policy (no RST on violation) is part of the protocol being modeled.
type Machine struct {
	table map[core.Endpoint]map[core.ConnectionState]map[core.PacketKind]smTransition

	seqBases    map[core.Endpoint]int
	newPacketID func() int64
	newSession  func() string
	now         func() time.Time
	logf        logFunc
}

var allConnectionStates = []core.ConnectionState{
	core.StateClosed,
	core.StateListen,
	core.StateSynSent,
	core.StateSynRcvd,
	core.StateEstablished,
	core.StateFinWait,
}

// NewMachine builds the transition table for both roles.
func NewMachine(clientSeqBase, serverSeqBase int, newPacketID func() int64, newSession func() string, now func() time.Time, logf logFunc) *Machine {
	m := &Machine{
		table: make(map[core.Endpoint]map[core.ConnectionState]map[core.PacketKind]smTransition),
		seqBases: map[core.Endpoint]int{
			core.EndpointClient: clientSeqBase,
			core.EndpointServer: serverSeqBase,
		},
		newPacketID: newPacketID,
		newSession:  newSession,
		now:         now,
		logf:        logf,
	}

	// Server role.
	m.register(core.EndpointServer, core.StateListen, core.KindSYN, smTransition{
		next: core.StateSynRcvd,
		action: func(m *Machine, node *core.NodeState, pkt *core.Packet) []*core.Packet {
			node.SessionID = m.newSession()
			node.LastAckReceived = pkt.Seq + 1
			m.logf(node.Role, core.LogInfo, "SYN received, allocated session %s", node.SessionID)
			return []*core.Packet{m.BuildPacket(node, core.KindSYNACK, "")}
		},
	})
	m.register(core.EndpointServer, core.StateSynRcvd, core.KindACK, smTransition{
		next: core.StateEstablished,
		// the ACK must acknowledge the SYN_ACK, i.e. carry the server's
		// post-increment sequence value
		guard: func(node *core.NodeState, pkt *core.Packet) bool {
			return pkt.Ack == node.Seq
		},
		action: func(m *Machine, node *core.NodeState, pkt *core.Packet) []*core.Packet {
			m.logf(node.Role, core.LogSuccess, "handshake complete, session %s established", node.SessionID)
			return nil
		},
	})
	m.register(core.EndpointServer, core.StateEstablished, core.KindDATA, smTransition{
		next: core.StateEstablished,
		action: func(m *Machine, node *core.NodeState, pkt *core.Packet) []*core.Packet {
			node.LastAckReceived = pkt.Seq + 1
			m.logf(node.Role, core.LogInfo, "payload %q received, acknowledging %d", pkt.Payload, node.LastAckReceived)
			return []*core.Packet{m.BuildPacket(node, core.KindACK, "")}
		},
	})
	m.register(core.EndpointServer, core.StateEstablished, core.KindFIN, smTransition{
		next: core.StateClosed,
		action: func(m *Machine, node *core.NodeState, pkt *core.Packet) []*core.Packet {
			m.logf(node.Role, core.LogInfo, "FIN received, session %s closed by peer", node.SessionID)
			node.SessionID = ""
			return nil
		},
	})
	for _, state := range allConnectionStates {
		m.register(core.EndpointServer, state, core.KindRST, smTransition{
			next: core.StateClosed,
			action: func(m *Machine, node *core.NodeState, pkt *core.Packet) []*core.Packet {
				node.SessionID = ""
				node.Seq = m.seqBases[node.Role]
				node.LastAckReceived = 0
				m.logf(node.Role, core.LogWarning, "RST received, connection aborted")
				return nil
			},
		})
	}

	// Client role.
	m.register(core.EndpointClient, core.StateSynSent, core.KindSYNACK, smTransition{
		next: core.StateEstablished,
		action: func(m *Machine, node *core.NodeState, pkt *core.Packet) []*core.Packet {
			node.LastAckReceived = pkt.Seq + 1
			node.SessionID = pkt.SessionID
			m.logf(node.Role, core.LogSuccess, "SYN_ACK received, session %s established", node.SessionID)
			return []*core.Packet{m.BuildPacket(node, core.KindACK, "")}
		},
	})
	m.register(core.EndpointClient, core.StateEstablished, core.KindACK, smTransition{
		next: core.StateEstablished,
		action: func(m *Machine, node *core.NodeState, pkt *core.Packet) []*core.Packet {
			m.logf(node.Role, core.LogInfo, "data acknowledged up to %d", pkt.Ack)
			return nil
		},
	})

	return m
}

func (m *Machine) register(role core.Endpoint, state core.ConnectionState, kind core.PacketKind, tr smTransition) {
	if m.table[role] == nil {
		m.table[role] = make(map[core.ConnectionState]map[core.PacketKind]smTransition)
	}
	if m.table[role][state] == nil {
		m.table[role][state] = make(map[core.PacketKind]smTransition)
	}
	m.table[role][state][kind] = tr
}

// Apply processes an arriving packet against the node's current state.
// It returns the automatic replies and whether a transition matched; a false
// return means the packet was ignored and the node is unchanged.
func (m *Machine) Apply(node *core.NodeState, pkt *core.Packet) ([]*core.Packet, bool) {
	if node == nil || pkt == nil {
		return nil, false
	}
	tr, ok := m.table[node.Role][node.ConnState][pkt.Flag]
	if !ok {
		return nil, false
	}
	if tr.guard != nil && !tr.guard(node, pkt) {
		return nil, false
	}
	var replies []*core.Packet
	if tr.action != nil {
		replies = tr.action(m, node, pkt)
	}
	node.ConnState = tr.next
	return replies, true
}

// BuildPacket constructs an outgoing packet carrying the sender's current
// counters. A sequence-consuming flag advances the sender's counter by one
// immediately afterwards; the packet itself carries the pre-increment value.
func (m *Machine) BuildPacket(sender *core.NodeState, flag core.PacketKind, payload string) *core.Packet {
	pkt := &core.Packet{
		ID:          m.newPacketID(),
		Source:      sender.Role,
		Destination: sender.Role.Peer(),
		Flag:        flag,
		Seq:         sender.Seq,
		Ack:         sender.LastAckReceived,
		Payload:     payload,
		SessionID:   sender.SessionID,
		CreatedAt:   m.now(),
	}
	if flag.ConsumesSequence() {
		sender.Seq++
	}
	return pkt
}

// SeqBase returns the configured initial sequence number for a role.
func (m *Machine) SeqBase(role core.Endpoint) int {
	return m.seqBases[role]
}
