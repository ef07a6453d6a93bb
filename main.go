package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/example/handshake_sim/annotate"
	"github.com/example/handshake_sim/core"
	"github.com/example/handshake_sim/hooks"
	"github.com/example/handshake_sim/simulator"
	"github.com/example/handshake_sim/visual"
)

func main() {
	var (
		headless   = flag.Bool("headless", false, "Run a scripted session without the web UI")
		configName = flag.String("config", "", "Predefined scenario name (e.g. 'interactive_demo', 'fast_local')")
		configFile = flag.String("config-file", "", "TOML config file (overrides -config)")
		listenAddr = flag.String("listen", "", "Override the web listen address")
		visualMode = flag.String("visual", "", "Override the visual mode: web, console, none")
	)
	flag.Parse()

	initLogger()

	cfg, err := resolveConfig(*configName, *configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *visualMode != "" {
		cfg.VisualMode = *visualMode
	}
	if *headless {
		cfg.Headless = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	broker := hooks.NewBroker()
	annotator := annotate.New(annotate.Config{
		Endpoint: cfg.Annotation.Endpoint,
		APIKey:   cfg.Annotation.APIKey,
		Model:    cfg.Annotation.Model,
		Timeout:  cfg.AnnotationTimeout(),
	})
	engine := NewEngine(cfg, broker, annotator)

	if cfg.Headless || cfg.VisualMode != "web" {
		runScripted(engine, broker, annotator)
		return
	}
	runWeb(engine, cfg, annotator)
}

func resolveConfig(name, path string) (*Config, error) {
	if path != "" {
		return LoadConfigFile(path)
	}
	cfg := GetConfigByName(name)
	if cfg == nil {
		if name != "" {
			log.Warn().Str("config", name).Msg("scenario not found, using default")
		}
		cfg = DefaultConfig()
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runWeb serves the visualization and executes control commands until the
// process is interrupted.
func runWeb(engine *Engine, cfg *Config, annotator annotate.Annotator) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	viz := NewWebVisualizer(cfg.ListenAddr, annotator)

	bridge := simulator.NewVisualBridge(false, func(frame *SimulationFrame) {
		viz.PublishFrame(frame)
	})
	handler := simulator.CommandHandlerFunc[visual.ControlCommand](func(cmd visual.ControlCommand) bool {
		dispatchCommand(engine, cmd)
		return true
	})
	runner := simulator.NewRunner(simulator.NewCommandLoop[visual.ControlCommand](viz, handler), bridge)

	engine.SetFrameSink(runner.PublishFrame)
	engine.Start()
	defer engine.Stop()
	runner.PublishFrame(engine.Snapshot())

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			viz.Shutdown(shutdownCtx)
			done()
			return
		default:
		}
		if !runner.WaitForCommand(ctx) {
			return
		}
	}
}

func dispatchCommand(engine *Engine, cmd visual.ControlCommand) {
	var err error
	switch cmd.Type {
	case visual.CommandConnect:
		err = engine.Connect()
	case visual.CommandDisconnect:
		err = engine.Disconnect()
	case visual.CommandSendData:
		err = engine.SendData(cmd.Payload)
	case visual.CommandDropPacket:
		if !engine.DropPacket(cmd.PacketID) {
			log.Debug().Int64("packet_id", cmd.PacketID).Msg("drop had no effect")
		}
	case visual.CommandSendReset:
		err = engine.SendReset()
	case visual.CommandReset:
		err = engine.ResetSimulation()
	case visual.CommandNone:
	}
	if err != nil {
		log.Warn().Err(err).Str("command", string(cmd.Type)).Msg("command rejected")
	}
}

// runScripted executes connect -> data -> disconnect against the engine and
// prints the resulting statistics.
func runScripted(engine *Engine, broker *hooks.Broker, annotator annotate.Annotator) {
	if engine.cfg.VisualMode != "none" {
		NewConsoleVisualizer(broker)
	}
	engine.Start()
	defer engine.Stop()

	settle := engine.cfg.TransitLatency()*4 + time.Second

	if err := engine.Connect(); err != nil {
		log.Fatal().Err(err).Msg("connect failed")
	}
	if !awaitFrame(engine, settle, func(f *SimulationFrame) bool {
		return f.Stats.HandshakesCompleted >= 1
	}) {
		log.Fatal().Msg("handshake did not complete")
	}

	payload := annotator.GeneratePayload(context.Background())
	if err := engine.SendData(payload); err != nil {
		log.Fatal().Err(err).Msg("send failed")
	}
	awaitFrame(engine, settle, func(f *SimulationFrame) bool {
		return f.Stats.DataAcknowledged >= 1
	})

	if err := engine.Disconnect(); err != nil {
		log.Fatal().Err(err).Msg("disconnect failed")
	}
	awaitFrame(engine, settle, func(f *SimulationFrame) bool {
		return f.Stats.InFlight == 0
	})

	frame := engine.Snapshot()
	if frame != nil {
		PrintStats(frame.Stats)
	}
}

// awaitFrame polls engine snapshots until cond holds or the timeout expires.
func awaitFrame(engine *Engine, timeout time.Duration, cond func(*SimulationFrame) bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		frame := engine.Snapshot()
		if frame == nil {
			return false
		}
		if cond(frame) {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// nodeByRole picks a node snapshot out of a frame.
func nodeByRole(frame *SimulationFrame, role core.Endpoint) *core.NodeSnapshot {
	if frame == nil {
		return nil
	}
	for i := range frame.Nodes {
		if frame.Nodes[i].Role == role {
			return &frame.Nodes[i]
		}
	}
	return nil
}
