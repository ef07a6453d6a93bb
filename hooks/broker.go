package hooks

import (
	"sync"

	"github.com/example/handshake_sim/core"
)

// SinkCategory represents the high-level role of an observer sink.
type SinkCategory string

const (
	// SinkCategoryConsole covers terminal log renderers.
	SinkCategoryConsole SinkCategory = "console"
	// SinkCategoryVisualization covers UI and monitoring sinks.
	SinkCategoryVisualization SinkCategory = "visualization"
	// SinkCategoryInstrumentation covers metrics, tracing, and test recorders.
	SinkCategoryInstrumentation SinkCategory = "instrumentation"
)

// SinkDescriptor describes a sink registered with the broker.
type SinkDescriptor struct {
	Name        string
	Category    SinkCategory
	Description string
}

// LogHook receives one node log entry per emission. Push-only: sinks must not
// feed back into the state machine.
type LogHook func(role core.Endpoint, entry core.LogEntry)

// PacketHook receives one packet lifecycle event per emission.
type PacketHook func(event core.PacketEvent)

// Broker fans out log entries and packet lifecycle events to registered
// observer sinks, in the causal order the engine emits them. Emission is
// never retried or batched.
type Broker struct {
	mu sync.RWMutex

	logHooks    []LogHook
	packetHooks []PacketHook

	sinkCatalog map[SinkCategory][]SinkDescriptor
	sinkIndex   map[string]SinkDescriptor
}

// NewBroker creates an empty broker instance.
func NewBroker() *Broker {
	return &Broker{
		logHooks:    make([]LogHook, 0),
		packetHooks: make([]PacketHook, 0),
		sinkCatalog: make(map[SinkCategory][]SinkDescriptor),
		sinkIndex:   make(map[string]SinkDescriptor),
	}
}

// RegisterLogSink registers a sink for node log entries.
func (b *Broker) RegisterLogSink(desc SinkDescriptor, h LogHook) {
	if b == nil || h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registerDescriptorLocked(desc)
	b.logHooks = append(b.logHooks, h)
}

// RegisterPacketSink registers a sink for packet lifecycle events.
func (b *Broker) RegisterPacketSink(desc SinkDescriptor, h PacketHook) {
	if b == nil || h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registerDescriptorLocked(desc)
	b.packetHooks = append(b.packetHooks, h)
}

// RegisterSinkMetadata stores sink metadata without registering hooks.
func (b *Broker) RegisterSinkMetadata(desc SinkDescriptor) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registerDescriptorLocked(desc)
}

// EmitLogEntry pushes a log entry to every registered log sink.
func (b *Broker) EmitLogEntry(role core.Endpoint, entry core.LogEntry) {
	if b == nil {
		return
	}
	b.mu.RLock()
	handlers := make([]LogHook, len(b.logHooks))
	copy(handlers, b.logHooks)
	b.mu.RUnlock()
	for _, handler := range handlers {
		handler(role, entry)
	}
}

// EmitPacketEvent pushes a packet lifecycle event to every packet sink.
func (b *Broker) EmitPacketEvent(event core.PacketEvent) {
	if b == nil {
		return
	}
	b.mu.RLock()
	handlers := make([]PacketHook, len(b.packetHooks))
	copy(handlers, b.packetHooks)
	b.mu.RUnlock()
	for _, handler := range handlers {
		handler(event)
	}
}

// ListSinks returns descriptors for sinks in the requested category.
func (b *Broker) ListSinks(category SinkCategory) []SinkDescriptor {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	catalog := b.sinkCatalog[category]
	if len(catalog) == 0 {
		return nil
	}
	out := make([]SinkDescriptor, len(catalog))
	copy(out, catalog)
	return out
}

// ListAllSinks returns descriptors of every registered sink.
func (b *Broker) ListAllSinks() []SinkDescriptor {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]SinkDescriptor, 0, len(b.sinkIndex))
	for _, desc := range b.sinkIndex {
		out = append(out, desc)
	}
	return out
}

func (b *Broker) registerDescriptorLocked(desc SinkDescriptor) {
	if desc.Name == "" {
		return
	}
	if _, exists := b.sinkIndex[desc.Name]; exists {
		return
	}
	b.sinkIndex[desc.Name] = desc
	b.sinkCatalog[desc.Category] = append(b.sinkCatalog[desc.Category], desc)
}
