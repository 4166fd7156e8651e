package sim

import "time"

// Reserved identifiers of the simulated protocol. The dispatcher treats
// these four specially; all other identifiers are accepted but unrouted.
const (
	// DeviceAStatusID carries Device A status: [operational, uptime be32].
	DeviceAStatusID uint32 = 0x18FF0001
	// DeviceBStatusID carries Device B status:
	// [status, control, watchdog register, ok flag].
	DeviceBStatusID uint32 = 0x18FF0002
	// WatchdogResetID resets Device B's watchdog; first payload byte is
	// stored in the watchdog register.
	WatchdogResetID uint32 = 0x100
	// ControlCommandID carries a one-byte control value for Device B.
	ControlCommandID uint32 = 0x200
)

// Base timing defaults, before scaling by the Clock.
const (
	// DefaultFrameRate is the unscaled device emission rate in Hz.
	DefaultFrameRate = 10.0
	// DefaultWatchdogTimeout is Device B's unscaled timeout.
	DefaultWatchdogTimeout = 500 * time.Millisecond
	// DefaultModuleCCycle is Module C's unscaled recomputation cadence.
	DefaultModuleCCycle = 100 * time.Millisecond
	// DefaultStatsWindow is the unscaled rate-accumulation window.
	DefaultStatsWindow = 10 * time.Second

	// watchdogCheckInterval is the monitor cadence. It is scaled by the
	// Clock but independent of the device frame rate.
	watchdogCheckInterval = 100 * time.Millisecond
)
