package sim

import (
	"errors"
	"sync"
	"time"
)

// ErrInvalidScale reports a non-positive timing scale.
var ErrInvalidScale = errors.New("sim: timing scale must be positive")

// Clock holds the timing scale: a single positive multiplier applied to
// every simulation-driven interval (1.0 = normal speed, >1 slows the
// simulation down, <1 speeds it up).
//
// Components read the scale at the point of waiting, never at loop start,
// so a change takes effect on the next wait rather than retroactively on
// one already in progress. The Clock is injected into every timed
// component; there is no package-level global.
type Clock struct {
	mu    sync.RWMutex
	scale float64
}

// NewClock returns a clock at normal speed (scale 1.0).
func NewClock() *Clock {
	return &Clock{scale: 1.0}
}

// SetScale updates the timing scale. Non-positive values are rejected
// without mutating the current scale.
func (c *Clock) SetScale(v float64) error {
	if v <= 0 {
		return ErrInvalidScale
	}
	c.mu.Lock()
	c.scale = v
	c.mu.Unlock()
	return nil
}

// Scale returns the current timing scale.
func (c *Clock) Scale() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scale
}

// Interval scales a base interval by the current timing scale.
func (c *Clock) Interval(base time.Duration) time.Duration {
	return time.Duration(float64(base) * c.Scale())
}

// Rate scales a base frequency (Hz) by the current timing scale.
// Increasing the scale slows emission, so the rate divides.
func (c *Clock) Rate(base float64) float64 {
	return base / c.Scale()
}
