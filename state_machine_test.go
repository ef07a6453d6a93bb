package main

import (
	"testing"
	"time"

	"github.com/example/handshake_sim/core"
)

func newTestMachine() (*Machine, *core.NodeState, *core.NodeState) {
	var pktID int64
	client := core.NewNodeState(core.EndpointClient, 100)
	server := core.NewNodeState(core.EndpointServer, 5000)
	m := NewMachine(100, 5000,
		func() int64 { pktID++; return pktID },
		func() string { return "sess-1" },
		time.Now,
		func(role core.Endpoint, category core.LogCategory, format string, args ...any) {},
	)
	return m, client, server
}

// TestHandshakeNumerics walks the full three-way handshake at the transition
// level and checks every seq/ack value.
func TestHandshakeNumerics(t *testing.T) {
	m, client, server := newTestMachine()

	// connect: SYN carries the pre-increment sequence base
	client.ConnState = core.StateSynSent
	syn := m.BuildPacket(client, core.KindSYN, "")
	if syn.Flag != core.KindSYN || syn.Seq != 100 {
		t.Fatalf("unexpected SYN: %+v", syn)
	}
	if client.Seq != 101 {
		t.Fatalf("client seq after SYN = %d, want 101", client.Seq)
	}

	replies, handled := m.Apply(server, syn)
	if !handled {
		t.Fatalf("SYN in LISTEN must be handled")
	}
	if server.ConnState != core.StateSynRcvd {
		t.Fatalf("server state = %s, want SYN_RCVD", server.ConnState)
	}
	if server.LastAckReceived != 101 {
		t.Fatalf("server lastAckReceived = %d, want 101", server.LastAckReceived)
	}
	if server.SessionID != "sess-1" {
		t.Fatalf("server session = %q, want sess-1", server.SessionID)
	}
	if len(replies) != 1 {
		t.Fatalf("expected one SYN_ACK reply, got %d", len(replies))
	}
	synAck := replies[0]
	if synAck.Flag != core.KindSYNACK || synAck.Seq != 5000 || synAck.Ack != 101 {
		t.Fatalf("unexpected SYN_ACK: %+v", synAck)
	}
	if server.Seq != 5001 {
		t.Fatalf("server seq after SYN_ACK = %d, want 5001", server.Seq)
	}

	replies, handled = m.Apply(client, synAck)
	if !handled {
		t.Fatalf("SYN_ACK in SYN_SENT must be handled")
	}
	if client.ConnState != core.StateEstablished {
		t.Fatalf("client state = %s, want ESTABLISHED", client.ConnState)
	}
	if client.LastAckReceived != 5001 {
		t.Fatalf("client lastAckReceived = %d, want 5001", client.LastAckReceived)
	}
	if client.SessionID != "sess-1" {
		t.Fatalf("client did not adopt session, got %q", client.SessionID)
	}
	if len(replies) != 1 {
		t.Fatalf("expected one ACK reply, got %d", len(replies))
	}
	ack := replies[0]
	if ack.Flag != core.KindACK || ack.Seq != 101 || ack.Ack != 5001 {
		t.Fatalf("unexpected ACK: %+v", ack)
	}
	if client.Seq != 101 {
		t.Fatalf("bare ACK must not consume a sequence number, client seq = %d", client.Seq)
	}

	replies, handled = m.Apply(server, ack)
	if !handled {
		t.Fatalf("ACK acknowledging the SYN_ACK must be handled")
	}
	if server.ConnState != core.StateEstablished {
		t.Fatalf("server state = %s, want ESTABLISHED", server.ConnState)
	}
	if len(replies) != 0 {
		t.Fatalf("handshake-completing ACK must not produce replies")
	}
}

func TestHandshakeAckGuardRejectsWrongAck(t *testing.T) {
	m, _, server := newTestMachine()
	server.ConnState = core.StateSynRcvd
	server.Seq = 5001

	stale := &core.Packet{Flag: core.KindACK, Source: core.EndpointClient, Destination: core.EndpointServer, Ack: 5000}
	if _, handled := m.Apply(server, stale); handled {
		t.Fatalf("ACK not matching the SYN_ACK sequence must be ignored")
	}
	if server.ConnState != core.StateSynRcvd {
		t.Fatalf("guard failure must not change state, got %s", server.ConnState)
	}
}

func TestDataTransferAck(t *testing.T) {
	m, client, server := newTestMachine()
	client.ConnState = core.StateEstablished
	client.Seq = 101
	server.ConnState = core.StateEstablished
	server.Seq = 5001
	server.SessionID = "sess-1"

	data := m.BuildPacket(client, core.KindDATA, "X")
	if data.Seq != 101 || data.Payload != "X" {
		t.Fatalf("unexpected DATA: %+v", data)
	}
	if client.Seq != 102 {
		t.Fatalf("client seq after DATA = %d, want 102", client.Seq)
	}

	replies, handled := m.Apply(server, data)
	if !handled {
		t.Fatalf("DATA in ESTABLISHED must be handled")
	}
	if server.LastAckReceived != 102 {
		t.Fatalf("server lastAckReceived = %d, want 102", server.LastAckReceived)
	}
	if len(replies) != 1 || replies[0].Flag != core.KindACK || replies[0].Ack != 102 {
		t.Fatalf("expected ACK with ack=102, got %+v", replies)
	}
	if server.Seq != 5001 {
		t.Fatalf("ACK reply must not consume server seq, got %d", server.Seq)
	}
}

func TestFinClosesServer(t *testing.T) {
	m, client, server := newTestMachine()
	client.ConnState = core.StateEstablished
	client.Seq = 102
	server.ConnState = core.StateEstablished
	server.SessionID = "sess-1"

	fin := m.BuildPacket(client, core.KindFIN, "")
	replies, handled := m.Apply(server, fin)
	if !handled {
		t.Fatalf("FIN in ESTABLISHED must be handled")
	}
	if server.ConnState != core.StateClosed {
		t.Fatalf("server state = %s, want CLOSED", server.ConnState)
	}
	if server.SessionID != "" {
		t.Fatalf("session must be cleared on FIN")
	}
	// teardown is unilateral: no FIN-ACK in this protocol
	if len(replies) != 0 {
		t.Fatalf("FIN must not produce replies, got %+v", replies)
	}
}

func TestRstResetsServerFromAnyState(t *testing.T) {
	m, _, _ := newTestMachine()
	for _, state := range allConnectionStates {
		server := core.NewNodeState(core.EndpointServer, 5000)
		server.ConnState = state
		server.Seq = 5004
		server.LastAckReceived = 103
		server.SessionID = "sess-1"

		rst := &core.Packet{Flag: core.KindRST, Source: core.EndpointClient, Destination: core.EndpointServer}
		if _, handled := m.Apply(server, rst); !handled {
			t.Fatalf("RST in %s must be handled", state)
		}
		if server.ConnState != core.StateClosed || server.SessionID != "" {
			t.Fatalf("RST from %s: state=%s session=%q", state, server.ConnState, server.SessionID)
		}
		if server.Seq != 5000 || server.LastAckReceived != 0 {
			t.Fatalf("RST from %s must clear counters, seq=%d lastAck=%d", state, server.Seq, server.LastAckReceived)
		}
	}
}

// TestPermissiveIgnorePolicy checks that unmatched flag/state combinations
// are ignored without a state change — deliberately no RST on violation.
func TestPermissiveIgnorePolicy(t *testing.T) {
	m, client, server := newTestMachine()

	cases := []struct {
		name string
		node *core.NodeState
		pkt  *core.Packet
	}{
		{"DATA in LISTEN", server, &core.Packet{Flag: core.KindDATA, Destination: core.EndpointServer}},
		{"SYN_ACK in LISTEN", server, &core.Packet{Flag: core.KindSYNACK, Destination: core.EndpointServer}},
		{"SYN to client", client, &core.Packet{Flag: core.KindSYN, Destination: core.EndpointClient}},
		{"RST to client", client, &core.Packet{Flag: core.KindRST, Destination: core.EndpointClient}},
		{"FIN in CLOSED client", client, &core.Packet{Flag: core.KindFIN, Destination: core.EndpointClient}},
	}
	for _, tc := range cases {
		before := tc.node.ConnState
		replies, handled := m.Apply(tc.node, tc.pkt)
		if handled {
			t.Fatalf("%s: must be ignored", tc.name)
		}
		if tc.node.ConnState != before {
			t.Fatalf("%s: state changed from %s to %s", tc.name, before, tc.node.ConnState)
		}
		if len(replies) != 0 {
			t.Fatalf("%s: ignored packet produced replies", tc.name)
		}
	}
}

func TestClientDataAckIsInformational(t *testing.T) {
	m, client, _ := newTestMachine()
	client.ConnState = core.StateEstablished
	client.Seq = 102
	client.LastAckReceived = 5001

	ack := &core.Packet{Flag: core.KindACK, Source: core.EndpointServer, Destination: core.EndpointClient, Seq: 5001, Ack: 102}
	replies, handled := m.Apply(client, ack)
	if !handled {
		t.Fatalf("ACK in ESTABLISHED must be handled")
	}
	if client.ConnState != core.StateEstablished || client.Seq != 102 {
		t.Fatalf("informational ACK must not change client state")
	}
	if len(replies) != 0 {
		t.Fatalf("informational ACK must not produce replies")
	}
}
