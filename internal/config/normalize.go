// internal/config/normalize.go
package config

// Normalize applies post-validation defaults.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	s := &cfg.Simulation

	if s.DeviceA.FrameRateHz == 0 {
		s.DeviceA.FrameRateHz = 10
	}
	if s.DeviceB.FrameRateHz == 0 {
		s.DeviceB.FrameRateHz = 10
	}
	if s.DeviceB.WatchdogTimeoutMs == 0 {
		s.DeviceB.WatchdogTimeoutMs = 500
	}
	if s.ModuleC.CycleMs == 0 {
		s.ModuleC.CycleMs = 100
	}
	if s.StatsWindowS == 0 {
		s.StatsWindowS = 10
	}
	if s.TimingScale == 0 {
		s.TimingScale = 1.0
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
