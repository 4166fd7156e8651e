package sim

import (
	"testing"
	"time"
)

func TestWatchdogLatchesOnce(t *testing.T) {
	clock := NewClock()
	w := NewWatchdog(clock, 500*time.Millisecond)

	base := w.LastReset()
	if w.Check(base.Add(400 * time.Millisecond)) {
		t.Fatalf("triggered before timeout elapsed")
	}
	if w.State() != WatchdogOK {
		t.Fatalf("state = %v, want ok", w.State())
	}

	if !w.Check(base.Add(600 * time.Millisecond)) {
		t.Fatalf("expected transition past timeout")
	}
	if w.State() != WatchdogTriggered {
		t.Fatalf("state = %v, want triggered", w.State())
	}

	// Second check while latched is not a new transition.
	if w.Check(base.Add(700 * time.Millisecond)) {
		t.Fatalf("latched watchdog reported a second transition")
	}
	if w.State() != WatchdogTriggered {
		t.Fatalf("state cleared without a reset")
	}
}

func TestWatchdogResetClearsLatch(t *testing.T) {
	clock := NewClock()
	w := NewWatchdog(clock, 10*time.Millisecond)

	if !w.Check(w.LastReset().Add(time.Second)) {
		t.Fatalf("expected trigger")
	}
	w.Reset()
	if w.State() != WatchdogOK {
		t.Fatalf("state after reset = %v, want ok", w.State())
	}
	// A fresh reset restarts the window; it can trigger again.
	if !w.Check(w.LastReset().Add(time.Second)) {
		t.Fatalf("expected trigger after new window elapsed")
	}
}

func TestWatchdogTimeoutFollowsScale(t *testing.T) {
	clock := NewClock()
	w := NewWatchdog(clock, 500*time.Millisecond)

	if got := w.Timeout(); got != 500*time.Millisecond {
		t.Fatalf("Timeout at scale 1 = %v", got)
	}
	if err := clock.SetScale(2.0); err != nil {
		t.Fatalf("SetScale: %v", err)
	}
	if got := w.Timeout(); got != time.Second {
		t.Fatalf("Timeout at scale 2 = %v, want 1s", got)
	}

	// 600ms past the reset exceeds the unscaled timeout but not the
	// scaled one; the timeout is re-read on every check.
	base := w.LastReset()
	if w.Check(base.Add(600 * time.Millisecond)) {
		t.Fatalf("triggered inside scaled timeout window")
	}
	if !w.Check(base.Add(1100 * time.Millisecond)) {
		t.Fatalf("expected trigger past scaled timeout")
	}
}

func TestWatchdogStateString(t *testing.T) {
	if WatchdogOK.String() != "ok" || WatchdogTriggered.String() != "triggered" {
		t.Fatalf("unexpected state strings: %q %q", WatchdogOK, WatchdogTriggered)
	}
}
