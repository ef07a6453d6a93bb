package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/example/handshake_sim/annotate"
	"github.com/example/handshake_sim/visual"
)

// WebServer provides HTTP endpoints for visualization and control.
type WebServer struct {
	mu          sync.RWMutex
	latestFrame *SimulationFrame
	commands    CommandQueue
	annotator   annotate.Annotator
	hub         *wsHub
	server      *http.Server
}

// NewWebServer creates a web server publishing frames and accepting control
// commands. The annotator is used only to fill empty send_data payloads,
// outside the engine loop.
func NewWebServer(addr string, commands CommandQueue, annotator annotate.Annotator) *WebServer {
	ws := &WebServer{
		commands:  commands,
		annotator: annotator,
	}
	ws.hub = newHub()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/frame", ws.handleFrame)
	mux.HandleFunc("/api/stats", ws.handleStats)
	mux.HandleFunc("/api/scenarios", ws.handleScenarios)
	mux.HandleFunc("/api/control", ws.handleControl)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.hub.handle(ws, w, r)
	})
	mux.Handle("/", http.FileServer(http.Dir("web/static")))

	ws.server = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return ws
}

// Start starts the HTTP server in a goroutine.
func (ws *WebServer) Start() {
	go func() {
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("web server terminated")
		}
	}()
}

// Shutdown stops the HTTP server.
func (ws *WebServer) Shutdown(ctx context.Context) error {
	return ws.server.Shutdown(ctx)
}

// UpdateFrame stores the latest frame and broadcasts it to websocket clients.
func (ws *WebServer) UpdateFrame(frame *SimulationFrame) {
	ws.mu.Lock()
	ws.latestFrame = frame
	ws.mu.Unlock()
	ws.hub.broadcastFrame(frame)
}

func (ws *WebServer) handleFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ws.mu.RLock()
	frame := ws.latestFrame
	ws.mu.RUnlock()

	if frame == nil {
		http.Error(w, "No frame available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(frame); err != nil {
		http.Error(w, "Failed to encode frame", http.StatusInternalServerError)
	}
}

func (ws *WebServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ws.mu.RLock()
	frame := ws.latestFrame
	ws.mu.RUnlock()

	if frame == nil || frame.Stats == nil {
		http.Error(w, "No stats available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(frame.Stats); err != nil {
		http.Error(w, "Failed to encode stats", http.StatusInternalServerError)
	}
}

func (ws *WebServer) handleScenarios(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(GetPredefinedConfigs()); err != nil {
		http.Error(w, "Failed to encode scenarios", http.StatusInternalServerError)
	}
}

type controlRequest struct {
	Type     string `json:"type"`
	Payload  string `json:"payload,omitempty"`
	PacketID int64  `json:"packetId,omitempty"`
}

func (ws *WebServer) handleControl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req controlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	cmd, err := ws.processControlRequest(r.Context(), &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !ws.queueCommand(*cmd) {
		http.Error(w, "Command queue full", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusAccepted)
	w.Write([]byte("Command accepted"))
}

func (ws *WebServer) processControlRequest(ctx context.Context, req *controlRequest) (*visual.ControlCommand, error) {
	var cmd visual.ControlCommand
	switch req.Type {
	case "connect":
		cmd.Type = visual.CommandConnect
	case "disconnect":
		cmd.Type = visual.CommandDisconnect
	case "send_data":
		cmd.Type = visual.CommandSendData
		cmd.Payload = req.Payload
		if cmd.Payload == "" && ws.annotator != nil {
			cmd.Payload = ws.annotator.GeneratePayload(ctx)
		}
	case "drop_packet":
		if req.PacketID <= 0 {
			return nil, &validationError{msg: "drop_packet requires packetId"}
		}
		cmd.Type = visual.CommandDropPacket
		cmd.PacketID = req.PacketID
	case "send_reset":
		cmd.Type = visual.CommandSendReset
	case "reset":
		cmd.Type = visual.CommandReset
	default:
		return nil, &validationError{msg: "invalid command type"}
	}
	return &cmd, nil
}

func (ws *WebServer) queueCommand(cmd visual.ControlCommand) bool {
	if ws.commands == nil {
		return false
	}
	return ws.commands.Enqueue(cmd)
}
