package sim

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ModuleC is the supervisory compute module. On its own scaled cycle it
// recomputes
//
//	result = (lastDeviceA + lastDeviceB) * step(now)
//
// where step is a wall-clock second-of-minute function, deliberately
// independent of the timing scale. Value updates arriving while the module
// is frozen are silently dropped, not queued.
type ModuleC struct {
	clock *Clock
	log   *slog.Logger

	baseCycle time.Duration

	mu       sync.Mutex
	deviceA  int
	deviceB  int
	result   int
	lastCalc time.Time
	running  bool
	frozen   bool
}

// NewModuleC creates Module C with the given unscaled cycle time.
func NewModuleC(clock *Clock, cycle time.Duration, logger *slog.Logger) *ModuleC {
	return &ModuleC{
		clock:     clock,
		log:       logger,
		baseCycle: cycle,
		running:   true,
	}
}

// stepMultiplier maps the wall-clock second of the minute to the
// calculation multiplier: 0-15 s -> 1, 16-30 s -> 10, 31-45 s -> 100,
// 46-59 s -> 1000.
func stepMultiplier(t time.Time) int {
	switch sec := t.Second(); {
	case sec <= 15:
		return 1
	case sec <= 30:
		return 10
	case sec <= 45:
		return 100
	default:
		return 1000
	}
}

// SetRunning suspends or resumes the module. Suspending also freezes value
// updates.
func (m *ModuleC) SetRunning(state bool) {
	m.mu.Lock()
	m.running = state
	m.frozen = !state
	m.mu.Unlock()
	m.log.Debug("module c running state changed", "running", state)
}

// Frozen reports whether value updates are currently dropped.
func (m *ModuleC) Frozen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frozen
}

// UpdateDeviceA records Device A's latest operational value. Dropped while
// frozen.
func (m *ModuleC) UpdateDeviceA(value int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.frozen {
		return
	}
	m.deviceA = value
}

// UpdateDeviceB records Device B's latest control value. Dropped while
// frozen.
func (m *ModuleC) UpdateDeviceB(value int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.frozen {
		return
	}
	m.deviceB = value
}

// Snapshot returns the module's visible state.
func (m *ModuleC) Snapshot() ModuleCStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ModuleCStatus{
		DeviceA:           m.deviceA,
		DeviceB:           m.deviceB,
		CalculationResult: m.result,
		LastCalculation:   m.lastCalc,
		Frozen:            m.frozen,
	}
}

// Run recomputes the result on the scaled cycle until the context is
// cancelled. The cycle is self-correcting: processing time is measured and
// only the remainder of the nominal interval is slept, so drift does not
// accumulate with processing cost.
func (m *ModuleC) Run(ctx context.Context) {
	m.log.Debug("module c: processing started")
	for {
		cycleStart := time.Now()
		active := m.calculate(cycleStart)

		wait := m.clock.Interval(m.baseCycle)
		if active {
			if spent := time.Since(cycleStart); spent < wait {
				wait -= spent
			} else {
				wait = 0
			}
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// calculate performs one recomputation at the given instant. It reports
// false when skipped because the module is stopped or frozen.
func (m *ModuleC) calculate(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running || m.frozen {
		return false
	}
	m.result = (m.deviceA + m.deviceB) * stepMultiplier(now)
	m.lastCalc = now
	m.log.Debug("module c calculation",
		"result", m.result,
		"device_a", m.deviceA,
		"device_b", m.deviceB,
	)
	return true
}
