package core

// PacketEventType represents a packet lifecycle event.
type PacketEventType string

const (
	PacketEnqueued  PacketEventType = "PacketEnqueued"
	PacketDelivered PacketEventType = "PacketDelivered"
	PacketDropped   PacketEventType = "PacketDropped"
)

// PacketEvent records one lifecycle step of a packet for observer sinks.
type PacketEvent struct {
	Sequence int64           `json:"sequence"`
	Type     PacketEventType `json:"eventType"`
	Packet   PacketInfo      `json:"packet"`
}
