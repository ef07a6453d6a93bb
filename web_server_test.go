package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/handshake_sim/annotate"
	"github.com/example/handshake_sim/core"
	"github.com/example/handshake_sim/visual"
)

func newTestWebServer(t *testing.T) (*WebServer, CommandQueue, *httptest.Server) {
	t.Helper()
	queue := newChannelCommandQueue(16)
	ws := NewWebServer("127.0.0.1:0", queue, annotate.NewStatic())
	srv := httptest.NewServer(ws.server.Handler)
	t.Cleanup(srv.Close)
	return ws, queue, srv
}

func postControl(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/control", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("post control: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestWebServerFrameEndpoint(t *testing.T) {
	ws, _, srv := newTestWebServer(t)

	resp, err := http.Get(srv.URL + "/api/frame")
	if err != nil {
		t.Fatalf("get frame: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("frame before first publish = %d, want 404", resp.StatusCode)
	}

	ws.UpdateFrame(&SimulationFrame{
		Nodes: []core.NodeSnapshot{
			{Role: core.EndpointClient, ConnectionState: core.StateClosed, Seq: 100},
			{Role: core.EndpointServer, ConnectionState: core.StateListen, Seq: 5000},
		},
		Stats:            &SimulationStats{},
		TransitLatencyMS: 3000,
	})

	resp, err = http.Get(srv.URL + "/api/frame")
	if err != nil {
		t.Fatalf("get frame: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("frame status = %d, want 200", resp.StatusCode)
	}
	var frame SimulationFrame
	if err := json.NewDecoder(resp.Body).Decode(&frame); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if len(frame.Nodes) != 2 || frame.TransitLatencyMS != 3000 {
		t.Fatalf("unexpected frame: %+v", frame)
	}
}

func TestWebServerControlCommands(t *testing.T) {
	_, queue, srv := newTestWebServer(t)

	cases := []struct {
		body string
		want visual.ControlCommandType
	}{
		{`{"type":"connect"}`, visual.CommandConnect},
		{`{"type":"send_data","payload":"ping"}`, visual.CommandSendData},
		{`{"type":"drop_packet","packetId":4}`, visual.CommandDropPacket},
		{`{"type":"send_reset"}`, visual.CommandSendReset},
		{`{"type":"reset"}`, visual.CommandReset},
		{`{"type":"disconnect"}`, visual.CommandDisconnect},
	}
	for _, tc := range cases {
		resp := postControl(t, srv, tc.body)
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("%s: status = %d, want 202", tc.body, resp.StatusCode)
		}
		cmd, ok := queue.NextCommand()
		if !ok || cmd.Type != tc.want {
			t.Fatalf("%s: queued %+v, want type %s", tc.body, cmd, tc.want)
		}
		if tc.want == visual.CommandDropPacket && cmd.PacketID != 4 {
			t.Fatalf("drop command lost its packet id: %+v", cmd)
		}
		if tc.body == `{"type":"send_data","payload":"ping"}` && cmd.Payload != "ping" {
			t.Fatalf("send_data lost its payload: %+v", cmd)
		}
	}
}

func TestWebServerSendDataGeneratesPayload(t *testing.T) {
	_, queue, srv := newTestWebServer(t)

	resp := postControl(t, srv, `{"type":"send_data"}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	cmd, ok := queue.NextCommand()
	if !ok || cmd.Type != visual.CommandSendData {
		t.Fatalf("queued %+v, want send_data", cmd)
	}
	if cmd.Payload == "" {
		t.Fatalf("empty send_data must be filled from the payload generator")
	}
}

func TestWebServerControlRejections(t *testing.T) {
	_, queue, srv := newTestWebServer(t)

	cases := []string{
		`{"type":"warp_speed"}`,
		`{"type":"drop_packet"}`,
		`not json`,
	}
	for _, body := range cases {
		resp := postControl(t, srv, body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", body, resp.StatusCode)
		}
	}
	if _, ok := queue.NextCommand(); ok {
		t.Fatalf("rejected requests must not queue commands")
	}

	resp, err := http.Get(srv.URL + "/api/control")
	if err != nil {
		t.Fatalf("get control: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET control = %d, want 405", resp.StatusCode)
	}
}

func TestWebServerScenariosEndpoint(t *testing.T) {
	_, _, srv := newTestWebServer(t)

	resp, err := http.Get(srv.URL + "/api/scenarios")
	if err != nil {
		t.Fatalf("get scenarios: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("scenarios status = %d, want 200", resp.StatusCode)
	}
	var scenarios []ScenarioConfig
	if err := json.NewDecoder(resp.Body).Decode(&scenarios); err != nil {
		t.Fatalf("decode scenarios: %v", err)
	}
	if len(scenarios) == 0 {
		t.Fatalf("expected at least one predefined scenario")
	}
}

func TestWebServerStatsEndpoint(t *testing.T) {
	ws, _, srv := newTestWebServer(t)

	resp, err := http.Get(srv.URL + "/api/stats")
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("stats before first publish = %d, want 404", resp.StatusCode)
	}

	ws.UpdateFrame(&SimulationFrame{Stats: &SimulationStats{HandshakesCompleted: 2}})
	resp, err = http.Get(srv.URL + "/api/stats")
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	defer resp.Body.Close()
	var stats SimulationStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.HandshakesCompleted != 2 {
		t.Fatalf("stats = %+v, want 2 handshakes", stats)
	}
}
