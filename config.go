package main

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

const envAnnotationKey = "HANDSHAKE_SIM_ANNOTATION_KEY"

// AnnotationConfig holds the optional completion-service settings for the
// annotation port. An empty APIKey degrades to canned commentary.
type AnnotationConfig struct {
	Endpoint  string `toml:"endpoint"`
	APIKey    string `toml:"api_key"`
	Model     string `toml:"model"`
	TimeoutMS int    `toml:"timeout_ms"`
}

// Config holds simulation configuration values.
type Config struct {
	// one-way transit latency applied to every packet, in milliseconds
	TransitLatencyMS int `toml:"transit_latency_ms"`

	// role-specific initial sequence numbers
	ClientSeqBase int `toml:"client_seq_base"`
	ServerSeqBase int `toml:"server_seq_base"`

	// web visualization settings
	ListenAddr string `toml:"listen_addr"`
	Headless   bool   `toml:"headless"`
	VisualMode string `toml:"visual_mode"` // "web" | "console" | "none"

	Annotation AnnotationConfig `toml:"annotation"`
}

// DefaultConfig returns the stock configuration: 3000 ms latency, the
// calibration sequence bases, web visualization on localhost.
func DefaultConfig() *Config {
	return &Config{
		TransitLatencyMS: 3000,
		ClientSeqBase:    100,
		ServerSeqBase:    5000,
		ListenAddr:       "127.0.0.1:8080",
		VisualMode:       "web",
	}
}

// TransitLatency returns the configured latency as a duration.
func (c *Config) TransitLatency() time.Duration {
	return time.Duration(c.TransitLatencyMS) * time.Millisecond
}

// AnnotationTimeout returns the annotation request timeout, zero meaning the
// port's default.
func (c *Config) AnnotationTimeout() time.Duration {
	return time.Duration(c.Annotation.TimeoutMS) * time.Millisecond
}

// LoadConfigFile decodes a TOML file over the defaults and applies
// environment overrides.
func LoadConfigFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if key := os.Getenv(envAnnotationKey); key != "" {
		c.Annotation.APIKey = key
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.TransitLatencyMS <= 0 {
		return &validationError{msg: "transit_latency_ms must be positive"}
	}
	if c.ClientSeqBase < 0 || c.ServerSeqBase < 0 {
		return &validationError{msg: "sequence bases must be non-negative"}
	}
	if c.ClientSeqBase == c.ServerSeqBase {
		return &validationError{msg: "client and server sequence bases must differ"}
	}
	switch c.VisualMode {
	case "", "web", "console", "none":
	default:
		return &validationError{msg: "visual_mode must be one of web, console, none"}
	}
	if c.VisualMode == "web" && !c.Headless && c.ListenAddr == "" {
		return &validationError{msg: "listen_addr required in web mode"}
	}
	return nil
}

type validationError struct {
	msg string
}

func (e *validationError) Error() string {
	return e.msg
}
