package sim

import (
	"sync"
	"time"
)

// WatchdogState is the watchdog's observable state. Triggered is not an
// error; it is surfaced in status and interrupts nothing.
type WatchdogState uint8

const (
	WatchdogOK WatchdogState = iota
	WatchdogTriggered
)

// String returns the state as reported in status snapshots.
func (s WatchdogState) String() string {
	if s == WatchdogTriggered {
		return "triggered"
	}
	return "ok"
}

// Watchdog is a dead-man's-switch timer. It latches Triggered when no
// reset arrives within the scaled timeout; only an explicit Reset returns
// it to OK. The scaled timeout is recomputed from the clock on every
// check, never cached.
type Watchdog struct {
	clock *Clock
	base  time.Duration

	mu        sync.Mutex
	lastReset time.Time
	state     WatchdogState
}

// NewWatchdog creates a watchdog with the given unscaled timeout. The
// reset clock starts at construction time.
func NewWatchdog(clock *Clock, timeout time.Duration) *Watchdog {
	return &Watchdog{
		clock:     clock,
		base:      timeout,
		lastReset: time.Now(),
		state:     WatchdogOK,
	}
}

// Timeout returns the timeout scaled by the current timing scale.
func (w *Watchdog) Timeout() time.Duration {
	return w.clock.Interval(w.base)
}

// Reset records a reset and returns the state to OK.
func (w *Watchdog) Reset() {
	w.mu.Lock()
	w.lastReset = time.Now()
	w.state = WatchdogOK
	w.mu.Unlock()
}

// Check latches Triggered if the scaled timeout has elapsed since the last
// reset. It reports true only on the OK to Triggered transition, which
// fires at most once per latch.
func (w *Watchdog) Check(now time.Time) bool {
	timeout := w.Timeout()
	w.mu.Lock()
	defer w.mu.Unlock()
	if now.Sub(w.lastReset) <= timeout {
		return false
	}
	if w.state == WatchdogTriggered {
		return false
	}
	w.state = WatchdogTriggered
	return true
}

// State returns the current state.
func (w *Watchdog) State() WatchdogState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// LastReset returns the time of the most recent reset.
func (w *Watchdog) LastReset() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastReset
}

// setState overrides the state. Used when Device B restores a stashed
// status on unfreeze.
func (w *Watchdog) setState(s WatchdogState) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}
