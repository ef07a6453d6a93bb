package main

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/example/handshake_sim/annotate"
	"github.com/example/handshake_sim/visual"
)

// WebVisualizer bridges the engine with the web server.
type WebVisualizer struct {
	headless bool
	server   *WebServer
	commands CommandQueue
}

// NewWebVisualizer creates a web visualizer and starts its server.
func NewWebVisualizer(addr string, annotator annotate.Annotator) *WebVisualizer {
	commands := newChannelCommandQueue(16)
	server := NewWebServer(addr, commands, annotator)
	server.Start()
	log.Info().Str("addr", addr).Msg("web visualizer listening")

	return &WebVisualizer{
		server:   server,
		commands: commands,
	}
}

// SetHeadless switches headless state.
func (w *WebVisualizer) SetHeadless(headless bool) {
	w.headless = headless
}

// IsHeadless returns whether the visualizer runs without UI.
func (w *WebVisualizer) IsHeadless() bool {
	return w.headless
}

// PublishFrame updates the server with the latest frame.
func (w *WebVisualizer) PublishFrame(frame any) {
	f, ok := frame.(*SimulationFrame)
	if !ok || w.server == nil {
		return
	}
	w.server.UpdateFrame(f)
}

// NextCommand returns the next control command if available, non-blocking.
func (w *WebVisualizer) NextCommand() (visual.ControlCommand, bool) {
	if w.commands == nil {
		return visual.ControlCommand{Type: visual.CommandNone}, false
	}
	return w.commands.NextCommand()
}

// WaitCommand blocks until a control command arrives or ctx is done.
func (w *WebVisualizer) WaitCommand(ctx context.Context) (visual.ControlCommand, bool) {
	if w.commands == nil {
		return visual.ControlCommand{Type: visual.CommandNone}, false
	}
	return w.commands.WaitCommand(ctx)
}

// Shutdown stops the underlying web server.
func (w *WebVisualizer) Shutdown(ctx context.Context) error {
	if w.server == nil {
		return nil
	}
	return w.server.Shutdown(ctx)
}
