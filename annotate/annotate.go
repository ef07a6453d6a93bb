// Package annotate provides optional natural-language commentary on protocol
// traffic. The port is best-effort: backends never block protocol progress
// and reduce every failure to a fixed fallback string.
package annotate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/example/handshake_sim/core"
)

// Annotator produces commentary for interesting packets and payload text for
// data transfers. Implementations must be safe for concurrent use and must
// return usable text in every case; failures are absorbed at this boundary.
type Annotator interface {
	Analyze(ctx context.Context, pkt core.PacketInfo, observer core.NodeSnapshot) string
	GeneratePayload(ctx context.Context) string
}

// Config holds the optional completion-service settings. An empty APIKey or
// Endpoint selects the static backend.
type Config struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

const defaultTimeout = 5 * time.Second

// New selects a backend for the given configuration. Absence of a credential
// degrades to the static backend rather than failing.
func New(cfg Config) Annotator {
	if cfg.Endpoint == "" || cfg.APIKey == "" {
		return NewStatic()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &httpAnnotator{
		cfg:      cfg,
		client:   &http.Client{Timeout: timeout},
		fallback: NewStatic(),
	}
}

// Static is the zero-dependency backend returning canned commentary.
type Static struct {
	payloadSeq atomic.Int64
}

// NewStatic creates the static backend.
func NewStatic() *Static {
	return &Static{}
}

var staticPayloads = []string{
	"hello from the client",
	"lorem ipsum over a simulated wire",
	"ping",
	"one more segment of application data",
}

// Analyze returns canned commentary keyed on the packet flag.
func (s *Static) Analyze(_ context.Context, pkt core.PacketInfo, observer core.NodeSnapshot) string {
	switch pkt.Flag {
	case core.KindSYN:
		return fmt.Sprintf("%s requests a connection with initial sequence %d.", pkt.Source, pkt.Seq)
	case core.KindSYNACK:
		return fmt.Sprintf("%s accepts: acknowledges %d and proposes its own sequence %d.", pkt.Source, pkt.Ack, pkt.Seq)
	case core.KindACK:
		return fmt.Sprintf("%s confirms receipt up to sequence %d.", pkt.Source, pkt.Ack)
	case core.KindDATA:
		return fmt.Sprintf("%s transfers %d bytes of application data at sequence %d.", pkt.Source, len(pkt.Payload), pkt.Seq)
	case core.KindFIN:
		return fmt.Sprintf("%s closes the connection; %s was %s.", pkt.Source, observer.Role, observer.ConnectionState)
	case core.KindRST:
		return fmt.Sprintf("%s aborts the connection outright.", pkt.Source)
	default:
		return "Nothing notable about this packet."
	}
}

// GeneratePayload rotates through a small set of canned payloads.
func (s *Static) GeneratePayload(_ context.Context) string {
	n := s.payloadSeq.Add(1)
	return staticPayloads[int(n-1)%len(staticPayloads)]
}

// httpAnnotator calls a text-completion service. Any transport, status, or
// decoding failure falls back to the static backend.
type httpAnnotator struct {
	cfg      Config
	client   *http.Client
	fallback *Static
}

type completionRequest struct {
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt"`
}

type completionResponse struct {
	Text string `json:"text"`
}

func (h *httpAnnotator) Analyze(ctx context.Context, pkt core.PacketInfo, observer core.NodeSnapshot) string {
	prompt := fmt.Sprintf(
		"In one sentence, explain this transport packet to a student: flag=%s seq=%d ack=%d payload=%q, observed by %s in state %s.",
		pkt.Flag, pkt.Seq, pkt.Ack, pkt.Payload, observer.Role, observer.ConnectionState,
	)
	text, err := h.complete(ctx, prompt)
	if err != nil {
		log.Warn().Err(err).Str("flag", string(pkt.Flag)).Msg("annotation request failed, using fallback")
		return h.fallback.Analyze(ctx, pkt, observer)
	}
	return text
}

func (h *httpAnnotator) GeneratePayload(ctx context.Context) string {
	text, err := h.complete(ctx, "Produce a short, friendly line of example application data.")
	if err != nil {
		log.Warn().Err(err).Msg("payload generation failed, using fallback")
		return h.fallback.GeneratePayload(ctx)
	}
	return text
}

func (h *httpAnnotator) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(completionRequest{Model: h.cfg.Model, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.cfg.APIKey)

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("completion service returned %s", resp.Status)
	}

	var decoded completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if decoded.Text == "" {
		return "", fmt.Errorf("completion service returned empty text")
	}
	return decoded.Text, nil
}
