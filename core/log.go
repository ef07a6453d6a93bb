package core

import "time"

// LogCategory classifies a node log entry for display.
type LogCategory string

const (
	LogInfo    LogCategory = "info"
	LogSuccess LogCategory = "success"
	LogError   LogCategory = "error"
	LogWarning LogCategory = "warning"
	LogTraffic LogCategory = "traffic"
)

// LogEntry is one entry in a node's event log.
type LogEntry struct {
	ID        int64       `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Message   string      `json:"message"`
	Category  LogCategory `json:"category"`
}
