package main

// ScenarioConfig represents a predefined simulation configuration.
type ScenarioConfig struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Config      *Config `json:"-"`
}

// GetPredefinedConfigs returns all available predefined scenarios.
func GetPredefinedConfigs() []ScenarioConfig {
	return []ScenarioConfig{
		{
			Name:        "interactive_demo",
			Description: "Interactive web demo: 3 s transit latency leaves time to drop packets mid-flight",
			Config: &Config{
				TransitLatencyMS: 3000,
				ClientSeqBase:    100,
				ServerSeqBase:    5000,
				ListenAddr:       "127.0.0.1:8080",
				VisualMode:       "web",
			},
		},
		{
			Name:        "fast_local",
			Description: "Short latency for scripted or headless runs",
			Config: &Config{
				TransitLatencyMS: 300,
				ClientSeqBase:    100,
				ServerSeqBase:    5000,
				ListenAddr:       "127.0.0.1:8080",
				VisualMode:       "console",
				Headless:         true,
			},
		},
		{
			Name:        "slow_motion",
			Description: "8 s latency: every handshake step is visible for a while",
			Config: &Config{
				TransitLatencyMS: 8000,
				ClientSeqBase:    100,
				ServerSeqBase:    5000,
				ListenAddr:       "127.0.0.1:8080",
				VisualMode:       "web",
			},
		},
	}
}

// GetConfigByName returns a copy of the named scenario config, or nil.
func GetConfigByName(name string) *Config {
	for _, sc := range GetPredefinedConfigs() {
		if sc.Name == name {
			cfg := *sc.Config
			return &cfg
		}
	}
	return nil
}
