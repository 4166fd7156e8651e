package sim

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/notnil/cansim/canbus"
)

// DeviceB emulates a controllable node: it reports status and accepts
// watchdog-reset and control frames. Each cycle it emits one extended
// status frame with payload [status, control, watchdog register, ok flag].
//
// The watchdog monitor runs as its own activity (RunWatchdog) so the latch
// keeps firing even when the device is not currently emitting.
type DeviceB struct {
	clock *Clock
	bus   canbus.Bus
	log   *slog.Logger

	baseRate float64
	watchdog *Watchdog

	mu              sync.Mutex
	control         byte
	status          byte
	watchdogReg     byte
	lastCommand     time.Time
	running         bool
	frozen          bool
	stashedWatchdog *WatchdogState // watchdog status stashed while frozen
}

// NewDeviceB creates Device B with the given unscaled watchdog timeout.
func NewDeviceB(bus canbus.Bus, clock *Clock, frameRate float64, watchdogTimeout time.Duration, logger *slog.Logger) *DeviceB {
	return &DeviceB{
		clock:    clock,
		bus:      bus,
		log:      logger,
		baseRate: frameRate,
		watchdog: NewWatchdog(clock, watchdogTimeout),
		running:  true,
	}
}

// Watchdog exposes the device's watchdog timer.
func (d *DeviceB) Watchdog() *Watchdog {
	return d.watchdog
}

// FrameRate returns the emission rate scaled by the current timing scale.
func (d *DeviceB) FrameRate() float64 {
	return d.clock.Rate(d.baseRate)
}

// SetRunning suspends or resumes the device. Suspending also freezes
// inbound frame handling and the watchdog monitor, stashing the current
// watchdog status; resuming restores it so no triggered latch is lost or
// invented across a freeze.
func (d *DeviceB) SetRunning(state bool) {
	d.mu.Lock()
	d.running = state
	if !state {
		d.frozen = true
		st := d.watchdog.State()
		d.stashedWatchdog = &st
	} else {
		d.frozen = false
		if d.stashedWatchdog != nil {
			d.watchdog.setState(*d.stashedWatchdog)
			d.stashedWatchdog = nil
		}
	}
	d.mu.Unlock()
	d.log.Debug("device b running state changed", "running", state)
}

// HandleFrame applies an inbound frame to the device registers. Watchdog
// resets (0x100) restore the watchdog and store the first payload byte in
// the watchdog register; control commands (0x200) copy the first payload
// byte into the control register. Unknown identifiers are ignored, not
// errors. Frames are dropped entirely while frozen.
func (d *DeviceB) HandleFrame(f canbus.Frame) {
	d.mu.Lock()
	if d.frozen {
		d.mu.Unlock()
		return
	}
	switch f.ID {
	case WatchdogResetID:
		if f.Len >= 1 {
			d.watchdogReg = f.Data[0]
		}
		d.watchdog.Reset()
		d.mu.Unlock()
		d.log.Debug("device b: watchdog reset received")
	case ControlCommandID:
		if f.Len >= 1 {
			d.control = f.Data[0]
			d.lastCommand = time.Now()
		}
		control := d.control
		d.mu.Unlock()
		d.log.Debug("device b: control value updated", "control", control)
	default:
		d.mu.Unlock()
	}
}

// Snapshot returns the device's visible state.
func (d *DeviceB) Snapshot() DeviceBStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := d.watchdog.State()
	if d.frozen && d.stashedWatchdog != nil {
		st = *d.stashedWatchdog
	}
	return DeviceBStatus{
		Control:          d.control,
		Status:           d.status,
		WatchdogRegister: d.watchdogReg,
		WatchdogStatus:   st.String(),
		LastCommand:      d.lastCommand,
		FrameRateHz:      d.clock.Rate(d.baseRate),
		Running:          d.running,
	}
}

// Run emits status frames until the context is cancelled.
func (d *DeviceB) Run(ctx context.Context) {
	d.log.Debug("device b: frame generation started")
	for {
		if d.isRunning() {
			d.emit()
		}
		wait := d.clock.Interval(rateInterval(d.baseRate))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// RunWatchdog checks the watchdog on a fixed cadence, scaled by the clock
// but independent of the device frame rate, until the context is
// cancelled. The check is skipped while the device is stopped or frozen so
// the latch cannot fire on pre-freeze staleness.
func (d *DeviceB) RunWatchdog(ctx context.Context) {
	d.log.Debug("device b: watchdog monitor started")
	for {
		if d.isActive() {
			if d.watchdog.Check(time.Now()) {
				d.log.Warn("watchdog triggered")
			}
		}
		timer := time.NewTimer(d.clock.Interval(watchdogCheckInterval))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (d *DeviceB) isRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *DeviceB) isActive() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running && !d.frozen
}

func (d *DeviceB) emit() {
	d.mu.Lock()
	okFlag := byte(0x00)
	if d.watchdog.State() == WatchdogOK {
		okFlag = 0x01
	}
	payload := []byte{d.status, d.control, d.watchdogReg, okFlag}
	d.mu.Unlock()

	frame, err := canbus.New(true, false, DeviceBStatusID, payload)
	if err != nil {
		d.log.Error("device b: build status frame", "error", err)
		return
	}
	if err := d.bus.Send(frame); err != nil {
		d.log.Debug("device b: send status frame", "error", err)
		return
	}
	d.log.Debug("device b: status frame sent", "control", payload[1], "watchdog_ok", okFlag == 1)
}
