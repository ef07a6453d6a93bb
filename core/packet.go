package core

import "time"

// Endpoint identifies one of the two protocol participants.
type Endpoint string

const (
	EndpointClient Endpoint = "CLIENT"
	EndpointServer Endpoint = "SERVER"
)

// Peer returns the opposite endpoint.
func (e Endpoint) Peer() Endpoint {
	if e == EndpointClient {
		return EndpointServer
	}
	return EndpointClient
}

// PacketKind represents the control flag carried by a packet.
// SYN_ACK is a distinct kind, not a bitwise combination: the state machine
// treats it as its own transition trigger.
type PacketKind string

const (
	KindSYN    PacketKind = "SYN"
	KindACK    PacketKind = "ACK"
	KindSYNACK PacketKind = "SYN_ACK"
	KindFIN    PacketKind = "FIN"
	KindRST    PacketKind = "RST"
	KindDATA   PacketKind = "DATA"
	KindNone   PacketKind = "NONE"
)

// ConsumesSequence reports whether the kind advances the sender's sequence
// counter. Bare ACK and RST carry the current counters without consuming.
func (k PacketKind) ConsumesSequence() bool {
	switch k {
	case KindSYN, KindSYNACK, KindFIN, KindDATA:
		return true
	default:
		return false
	}
}

// Packet is one unit of protocol traffic. Immutable after creation; owned by
// the transit scheduler while in flight and discarded after delivery or drop.
// ID is unique per packet instance, not per logical message.
type Packet struct {
	ID          int64
	Source      Endpoint
	Destination Endpoint
	Flag        PacketKind
	Seq         int
	Ack         int
	Payload     string
	SessionID   string
	CreatedAt   time.Time
	Dropped     bool
}

// PacketInfo mirrors Packet for visualization and observer sinks.
type PacketInfo struct {
	ID          int64      `json:"id"`
	Source      Endpoint   `json:"source"`
	Destination Endpoint   `json:"destination"`
	Flag        PacketKind `json:"flag"`
	Seq         int        `json:"seq"`
	Ack         int        `json:"ack"`
	Payload     string     `json:"payload,omitempty"`
	SessionID   string     `json:"sessionId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	Dropped     bool       `json:"dropped"`
}

// Info returns the visualization view of the packet.
func (p *Packet) Info() PacketInfo {
	if p == nil {
		return PacketInfo{}
	}
	return PacketInfo{
		ID:          p.ID,
		Source:      p.Source,
		Destination: p.Destination,
		Flag:        p.Flag,
		Seq:         p.Seq,
		Ack:         p.Ack,
		Payload:     p.Payload,
		SessionID:   p.SessionID,
		CreatedAt:   p.CreatedAt,
		Dropped:     p.Dropped,
	}
}
