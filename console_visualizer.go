package main

import (
	"context"

	"github.com/pterm/pterm"

	"github.com/example/handshake_sim/core"
	"github.com/example/handshake_sim/hooks"
	"github.com/example/handshake_sim/visual"
)

// ConsoleVisualizer renders node event logs to the terminal as they happen.
// It is a pure observer sink: frames are already covered by the streamed log,
// so PublishFrame is a no-op and it produces no control commands.
type ConsoleVisualizer struct {
	headless bool
}

// NewConsoleVisualizer creates the console visualizer and registers it as a
// log sink on the broker.
func NewConsoleVisualizer(broker *hooks.Broker) *ConsoleVisualizer {
	cv := &ConsoleVisualizer{}
	broker.RegisterLogSink(hooks.SinkDescriptor{
		Name:        "console",
		Category:    hooks.SinkCategoryConsole,
		Description: "terminal renderer for node event logs",
	}, cv.onLogEntry)
	return cv
}

func (c *ConsoleVisualizer) onLogEntry(role core.Endpoint, entry core.LogEntry) {
	if c.headless {
		return
	}
	line := string(role) + " " + entry.Message
	switch entry.Category {
	case core.LogSuccess:
		pterm.Success.Println(line)
	case core.LogWarning:
		pterm.Warning.Println(line)
	case core.LogError:
		pterm.Error.Println(line)
	case core.LogTraffic:
		pterm.FgGray.Println(line)
	default:
		pterm.Info.Println(line)
	}
}

func (c *ConsoleVisualizer) SetHeadless(headless bool) {
	c.headless = headless
}

func (c *ConsoleVisualizer) IsHeadless() bool {
	return c.headless
}

func (c *ConsoleVisualizer) PublishFrame(frame any) {}

func (c *ConsoleVisualizer) NextCommand() (visual.ControlCommand, bool) {
	return visual.ControlCommand{Type: visual.CommandNone}, false
}

func (c *ConsoleVisualizer) WaitCommand(ctx context.Context) (visual.ControlCommand, bool) {
	select {
	case <-ctx.Done():
	default:
	}
	return visual.ControlCommand{Type: visual.CommandNone}, false
}
