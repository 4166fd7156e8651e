package sim

import "time"

// Snapshot types for the status surface. These are plain data with no
// logic; the excluded transport/UI layer serializes them as it pleases.

// DeviceAStatus is Device A's visible state.
type DeviceAStatus struct {
	Operational   uint8   `json:"operational"`
	UptimeSeconds uint32  `json:"uptime"`
	FrameRateHz   float64 `json:"frame_rate"`
	Running       bool    `json:"running"`
}

// DeviceBStatus is Device B's visible state.
type DeviceBStatus struct {
	Control          byte      `json:"control"`
	Status           byte      `json:"status"`
	WatchdogRegister byte      `json:"watchdog"`
	WatchdogStatus   string    `json:"watchdog_status"`
	LastCommand      time.Time `json:"last_command"`
	FrameRateHz      float64   `json:"frame_rate"`
	Running          bool      `json:"running"`
}

// ModuleCStatus is the supervisory module's visible state.
type ModuleCStatus struct {
	DeviceA           int       `json:"device_a"`
	DeviceB           int       `json:"device_b"`
	CalculationResult int       `json:"calculation_result"`
	LastCalculation   time.Time `json:"last_calculation_time"`
	Frozen            bool      `json:"is_frozen"`
}

// FrameRates holds per-category rates over the just-completed stats
// window, in frames per second of simulated time.
type FrameRates struct {
	DeviceA float64 `json:"device_a"`
	DeviceB float64 `json:"device_b"`
	Total   float64 `json:"total"`
}

// PipelineStatus is the dispatch pipeline's visible state. The counters
// cover the current (incomplete) window; Rates cover the previous one.
type PipelineStatus struct {
	FramesProcessed uint64     `json:"frames_processed"`
	DeviceAFrames   uint64     `json:"device_a_frames"`
	DeviceBFrames   uint64     `json:"device_b_frames"`
	WatchdogFrames  uint64     `json:"watchdog_frames"`
	ControlFrames   uint64     `json:"control_frames"`
	LastFrame       time.Time  `json:"last_frame_time"`
	Rates           FrameRates `json:"frame_rates"`
	LastSeenIDs     []uint32   `json:"last_received_frame_ids"`
}

// Status is the full snapshot exposed at the simulation boundary.
type Status struct {
	DeviceA  DeviceAStatus  `json:"device_a"`
	DeviceB  DeviceBStatus  `json:"device_b"`
	ModuleC  ModuleCStatus  `json:"module_c"`
	Pipeline PipelineStatus `json:"pipeline_stats"`

	LastWatchdogStatus string    `json:"last_watchdog_status"`
	LastWatchdogReset  time.Time `json:"last_watchdog_reset"`

	AutoWatchdogInterval time.Duration `json:"auto_watchdog_interval"`
	AutoWatchdogEnabled  bool          `json:"auto_watchdog_enabled"`

	TimingScale float64 `json:"timing_scale"`
	Frozen      bool    `json:"frozen"`
}
