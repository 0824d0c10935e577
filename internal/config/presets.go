package config

import "sort"

var Presets = map[string]map[string]func() *Config{
	"circle": {
		"rfd": DefaultConfig,
		"euler": func() *Config {
			cfg := DefaultConfig()
			cfg.Scheme = "EULER"
			return cfg
		},
		"forward": func() *Config {
			cfg := DefaultConfig()
			cfg.RFDVariant = "forward"
			return cfg
		},
		"bias": func() *Config {
			cfg := DefaultConfig()
			cfg.Duration = 5.0
			cfg.Replicas = 400
			cfg.RecordEvery = 50
			return cfg
		},
	},
	"wall": {
		"trimer": WallConfig,
		"trimer_euler": func() *Config {
			cfg := WallConfig()
			cfg.Scheme = "EULER"
			return cfg
		},
		"dimer": func() *Config {
			cfg := WallConfig()
			cfg.InitState = []float64{0, 0, 1.5, 1.2, 0, 1.5}
			return cfg
		},
		"serial": func() *Config {
			cfg := WallConfig()
			cfg.Forces.Backend = "serial"
			return cfg
		},
	},
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(scenario, preset string) *Config {
	scenarioPresets, ok := Presets[scenario]
	if !ok {
		return nil
	}
	build, ok := scenarioPresets[preset]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets(scenario string) []string {
	scenarioPresets, ok := Presets[scenario]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(scenarioPresets))
	for name := range scenarioPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ListScenarios() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
