package core

// ConnectionState represents the connection lifecycle state of an endpoint.
type ConnectionState string

const (
	StateClosed      ConnectionState = "CLOSED"
	StateListen      ConnectionState = "LISTEN"
	StateSynSent     ConnectionState = "SYN_SENT"
	StateSynRcvd     ConnectionState = "SYN_RCVD"
	StateEstablished ConnectionState = "ESTABLISHED"
	StateFinWait     ConnectionState = "FIN_WAIT"
)

// NodeState holds the per-endpoint connection state. Exactly two instances
// exist for the process lifetime, one per role; both are owned by the engine
// and mutated only inside its event loop.
type NodeState struct {
	Role            Endpoint
	ConnState       ConnectionState
	Seq             int
	LastAckReceived int
	SessionID       string
	Log             []LogEntry
}

// NewNodeState creates a node in its initial state with a role-specific
// sequence base.
func NewNodeState(role Endpoint, seqBase int) *NodeState {
	initial := StateClosed
	if role == EndpointServer {
		initial = StateListen
	}
	return &NodeState{
		Role:      role,
		ConnState: initial,
		Seq:       seqBase,
	}
}

// Reset returns the node to its initial state: session cleared, counters back
// to the sequence base, log emptied.
func (n *NodeState) Reset(seqBase int) {
	initial := StateClosed
	if n.Role == EndpointServer {
		initial = StateListen
	}
	n.ConnState = initial
	n.Seq = seqBase
	n.LastAckReceived = 0
	n.SessionID = ""
	n.Log = nil
}

// AppendLog appends an entry to the node's event log. Entries are append-only
// and never mutated after creation.
func (n *NodeState) AppendLog(entry LogEntry) {
	n.Log = append(n.Log, entry)
}

// NodeSnapshot is a read-only copy of NodeState for presentation. The
// presentation layer observes snapshots and never touches NodeState itself.
type NodeSnapshot struct {
	Role            Endpoint        `json:"role"`
	ConnectionState ConnectionState `json:"connectionState"`
	Seq             int             `json:"seq"`
	LastAckReceived int             `json:"lastAckReceived"`
	SessionID       string          `json:"sessionId,omitempty"`
	Log             []LogEntry      `json:"log"`
}

// Snapshot copies the node state, including the log tail.
func (n *NodeState) Snapshot() NodeSnapshot {
	if n == nil {
		return NodeSnapshot{}
	}
	logCopy := make([]LogEntry, len(n.Log))
	copy(logCopy, n.Log)
	return NodeSnapshot{
		Role:            n.Role,
		ConnectionState: n.ConnState,
		Seq:             n.Seq,
		LastAckReceived: n.LastAckReceived,
		SessionID:       n.SessionID,
		Log:             logCopy,
	}
}
