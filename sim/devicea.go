package sim

import (
	"context"
	"encoding/binary"
	"log/slog"
	"sync"
	"time"

	"github.com/notnil/cansim/canbus"
)

// DeviceA emulates a status-only node: it reports but accepts no commands.
// Each cycle it emits one extended status frame with payload
// [operational, uptime be32] at baseRate / scale Hz.
type DeviceA struct {
	clock *Clock
	bus   canbus.Bus
	log   *slog.Logger

	baseRate float64
	started  time.Time

	mu          sync.Mutex
	operational uint8
	uptime      uint32
	running     bool
}

// NewDeviceA creates Device A emitting on the given bus.
func NewDeviceA(bus canbus.Bus, clock *Clock, frameRate float64, logger *slog.Logger) *DeviceA {
	now := time.Now()
	return &DeviceA{
		clock:       clock,
		bus:         bus,
		log:         logger,
		baseRate:    frameRate,
		started:     now,
		operational: operationalValue(now),
		running:     true,
	}
}

// operationalValue maps the wall-clock second of the minute to the
// device's operational value: 0-20 s -> 1, 21-40 s -> 2, 41-59 s -> 3.
// This is deliberately wall-clock driven and unaffected by the timing
// scale: the device's business-logic clock is decoupled from simulated
// event timing.
func operationalValue(t time.Time) uint8 {
	switch sec := t.Second(); {
	case sec <= 20:
		return 1
	case sec <= 40:
		return 2
	default:
		return 3
	}
}

// SetRunning suspends or resumes frame emission. While suspended the loop
// keeps running but skips its body.
func (d *DeviceA) SetRunning(state bool) {
	d.mu.Lock()
	d.running = state
	d.mu.Unlock()
	d.log.Debug("device a running state changed", "running", state)
}

// FrameRate returns the emission rate scaled by the current timing scale.
func (d *DeviceA) FrameRate() float64 {
	return d.clock.Rate(d.baseRate)
}

// ApplyStatus records the operational value and uptime decoded from a
// received status frame, making the device's visible state follow the
// wire rather than its internal registers alone.
func (d *DeviceA) ApplyStatus(operational uint8, uptime uint32) {
	d.mu.Lock()
	d.operational = operational
	d.uptime = uptime
	d.mu.Unlock()
}

// Snapshot returns the device's visible state.
func (d *DeviceA) Snapshot() DeviceAStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	return DeviceAStatus{
		Operational:   d.operational,
		UptimeSeconds: d.uptime,
		FrameRateHz:   d.clock.Rate(d.baseRate),
		Running:       d.running,
	}
}

// Run emits status frames until the context is cancelled. The wait is
// recomputed from the clock on every cycle so timing-scale changes take
// effect on the next wait.
func (d *DeviceA) Run(ctx context.Context) {
	d.log.Debug("device a: frame generation started")
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

func (d *DeviceA) isRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *DeviceA) emit() {
	now := time.Now()
	d.mu.Lock()
	d.uptime = uint32(now.Sub(d.started) / time.Second)
	d.operational = operationalValue(now)
	op, uptime := d.operational, d.uptime
	d.mu.Unlock()

	var payload [5]byte
	payload[0] = op
	binary.BigEndian.PutUint32(payload[1:5], uptime)
	frame, err := canbus.New(true, false, DeviceAStatusID, payload[:])
	if err != nil {
		d.log.Error("device a: build status frame", "error", err)
		return
	}
	if err := d.bus.Send(frame); err != nil {
		d.log.Debug("device a: send status frame", "error", err)
		return
	}
	d.log.Debug("device a: status frame sent", "operational", op, "uptime", uptime)
}

// rateInterval converts an unscaled frequency in Hz to a cycle interval.
func rateInterval(rate float64) time.Duration {
	if rate <= 0 {
		return time.Second
	}
	return time.Duration(float64(time.Second) / rate)
}
