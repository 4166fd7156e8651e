// internal/config/config.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Log        LogConfig        `yaml:"log"`
}

// ---- SIMULATION ----

type SimulationConfig struct {
	DeviceA DeviceConfig  `yaml:"device_a"`
	DeviceB DeviceBConfig `yaml:"device_b"`
	ModuleC ModuleCConfig `yaml:"module_c"`

	// TimingScale multiplies every simulation-driven interval.
	// 1.0 = normal speed; 0 means "use default".
	TimingScale float64 `yaml:"timing_scale"`

	// StatsWindowS is the rate-accumulation window in seconds.
	StatsWindowS float64 `yaml:"stats_window_s"`

	// WatchdogIntervalS enables the automatic watchdog-reset sender
	// when positive; 0 disables it.
	WatchdogIntervalS float64 `yaml:"watchdog_interval_s"`
}

// ---- DEVICES ----

type DeviceConfig struct {
	FrameRateHz float64 `yaml:"frame_rate_hz"`
}

type DeviceBConfig struct {
	FrameRateHz       float64 `yaml:"frame_rate_hz"`
	WatchdogTimeoutMs int     `yaml:"watchdog_timeout_ms"`
}

type ModuleCConfig struct {
	CycleMs int `yaml:"cycle_ms"`
}

// ---- LOG ----

type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Frames enables per-frame wire logging at debug level.
	Frames bool `yaml:"frames"`
}

// Load reads and decodes the YAML configuration file. It performs no
// validation; call Validate and Normalize afterwards.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return &cfg, nil
}
