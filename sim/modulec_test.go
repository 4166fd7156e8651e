package sim

import (
	"log/slog"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 4}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func atSecond(sec int) time.Time {
	return time.Date(2026, time.January, 1, 12, 0, sec, 0, time.UTC)
}

func TestStepMultiplierBoundaries(t *testing.T) {
	cases := []struct {
		sec  int
		want int
	}{
		{0, 1}, {15, 1},
		{16, 10}, {30, 10},
		{31, 100}, {45, 100},
		{46, 1000}, {59, 1000},
	}
	for _, tc := range cases {
		if got := stepMultiplier(atSecond(tc.sec)); got != tc.want {
			t.Fatalf("stepMultiplier at second %d = %d, want %d", tc.sec, got, tc.want)
		}
	}
}

func TestModuleCCalculate(t *testing.T) {
	m := NewModuleC(NewClock(), 100*time.Millisecond, discardLogger())
	m.UpdateDeviceA(2)
	m.UpdateDeviceB(40)

	now := atSecond(20) // multiplier 10
	if !m.calculate(now) {
		t.Fatalf("calculate skipped while running")
	}
	st := m.Snapshot()
	if st.CalculationResult != (2+40)*10 {
		t.Fatalf("result = %d, want %d", st.CalculationResult, 420)
	}
	if !st.LastCalculation.Equal(now) {
		t.Fatalf("last calculation = %v, want %v", st.LastCalculation, now)
	}
}

func TestModuleCFrozenDropsUpdates(t *testing.T) {
	m := NewModuleC(NewClock(), 100*time.Millisecond, discardLogger())
	m.UpdateDeviceA(1)
	m.UpdateDeviceB(2)
	if !m.calculate(atSecond(5)) {
		t.Fatalf("calculate skipped while running")
	}
	before := m.Snapshot()

	m.SetRunning(false)
	if !m.Frozen() {
		t.Fatalf("module not frozen after SetRunning(false)")
	}

	// Updates and calculations are dropped, not queued.
	m.UpdateDeviceA(9)
	m.UpdateDeviceB(9)
	if m.calculate(atSecond(6)) {
		t.Fatalf("calculate ran while frozen")
	}
	frozen := m.Snapshot()
	if frozen.DeviceA != before.DeviceA || frozen.DeviceB != before.DeviceB {
		t.Fatalf("frozen module accepted updates: %+v", frozen)
	}
	if frozen.CalculationResult != before.CalculationResult {
		t.Fatalf("frozen module recomputed: %+v", frozen)
	}

	// Unfreezing resumes from the retained values; the dropped updates
	// never appear.
	m.SetRunning(true)
	if !m.calculate(atSecond(7)) {
		t.Fatalf("calculate skipped after resume")
	}
	resumed := m.Snapshot()
	if resumed.DeviceA != before.DeviceA || resumed.DeviceB != before.DeviceB {
		t.Fatalf("dropped updates reappeared after resume: %+v", resumed)
	}
}
