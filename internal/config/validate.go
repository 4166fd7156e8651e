// internal/config/validate.go
package config

import "fmt"

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	s := cfg.Simulation

	if s.TimingScale < 0 {
		return fmt.Errorf("config: timing_scale must be positive, got %v", s.TimingScale)
	}
	if s.DeviceA.FrameRateHz < 0 {
		return fmt.Errorf("config: device_a.frame_rate_hz must not be negative, got %v", s.DeviceA.FrameRateHz)
	}
	if s.DeviceB.FrameRateHz < 0 {
		return fmt.Errorf("config: device_b.frame_rate_hz must not be negative, got %v", s.DeviceB.FrameRateHz)
	}
	if s.DeviceB.WatchdogTimeoutMs < 0 {
		return fmt.Errorf("config: device_b.watchdog_timeout_ms must not be negative, got %d", s.DeviceB.WatchdogTimeoutMs)
	}
	if s.ModuleC.CycleMs < 0 {
		return fmt.Errorf("config: module_c.cycle_ms must not be negative, got %d", s.ModuleC.CycleMs)
	}
	if s.StatsWindowS < 0 {
		return fmt.Errorf("config: stats_window_s must not be negative, got %v", s.StatsWindowS)
	}
	if s.WatchdogIntervalS < 0 {
		return fmt.Errorf("config: watchdog_interval_s must not be negative, got %v", s.WatchdogIntervalS)
	}

	switch cfg.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level must be one of debug, info, warn, error; got %q", cfg.Log.Level)
	}

	return nil
}
