package sim

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/notnil/cansim/canbus"
)

// Handler processes a decoded frame routed by identifier. A handler must
// finish its state mutation before returning; the pipeline invokes it
// outside its own lock.
type Handler func(canbus.Frame)

// Pipeline decodes inbound encapsulations and routes them by identifier to
// registered handlers, keeping rolling traffic statistics.
//
// Frames with an unregistered identifier are accepted and stored as the
// last-seen frame for that identifier but not dispatched; this is benign
// by contract, not an error. While frozen the pipeline still decodes but
// neither counts nor dispatches.
type Pipeline struct {
	clock  *Clock
	log    *slog.Logger
	window time.Duration

	mu          sync.Mutex
	handlers    map[uint32]Handler
	last        map[uint32]canbus.Frame
	frozen      bool
	processed   uint64
	counts      map[uint32]uint64
	lastFrame   time.Time
	rates       FrameRates
	windowStart time.Time
}

// NewPipeline creates a pipeline with the given unscaled stats window.
func NewPipeline(clock *Clock, window time.Duration, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		clock:       clock,
		log:         logger,
		window:      window,
		handlers:    make(map[uint32]Handler),
		last:        make(map[uint32]canbus.Frame),
		counts:      make(map[uint32]uint64),
		windowStart: time.Now(),
	}
}

// Register binds a handler to an identifier, replacing any previous one.
func (p *Pipeline) Register(id uint32, h Handler) {
	p.mu.Lock()
	p.handlers[id] = h
	p.mu.Unlock()
}

// SetFrozen makes the pipeline a decode-only pass-through (true) or
// restores dispatching (false).
func (p *Pipeline) SetFrozen(state bool) {
	p.mu.Lock()
	p.frozen = state
	p.mu.Unlock()
}

// Process decodes a 13-byte encapsulation and dispatches the frame.
// Decode failures are surfaced to the caller and logged; they are fatal to
// this call only, never to the pipeline. The decoded frame is returned
// even when frozen.
func (p *Pipeline) Process(data []byte) (canbus.Frame, error) {
	var f canbus.Frame
	if err := f.UnmarshalBinary(data); err != nil {
		p.log.Error("pipeline: frame decode failed", "error", err, "len", len(data))
		return canbus.Frame{}, err
	}

	p.mu.Lock()
	if p.frozen {
		p.mu.Unlock()
		return f, nil
	}
	p.processed++
	p.lastFrame = time.Now()
	h := p.handlers[f.ID]
	if h != nil {
		p.counts[f.ID]++
	}
	p.last[f.ID] = f
	p.mu.Unlock()

	if h != nil {
		h(f)
	}
	return f, nil
}

// LastSeen returns the most recent frame stored for the identifier.
func (p *Pipeline) LastSeen(id uint32) (canbus.Frame, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f, ok := p.last[id]
	return f, ok
}

// RunStatsReset publishes window rates and zeroes the counters on the
// scaled window cadence until the context is cancelled. Rotation is
// skipped while frozen so a pause does not dilute the next window.
func (p *Pipeline) RunStatsReset(ctx context.Context) {
	for {
		timer := time.NewTimer(p.clock.Interval(p.window))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		if !p.isFrozen() {
			p.rotate(time.Now())
		}
	}
}

func (p *Pipeline) isFrozen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frozen
}

// rotate computes rate = count / elapsed * scale per counted category,
// publishes the result as the last-known rates, and zeroes the counters.
// Rates therefore always describe the just-completed window, never an
// instantaneous measure. Elapsed time is floored at one second.
func (p *Pipeline) rotate(now time.Time) {
	scale := p.clock.Scale()
	p.mu.Lock()
	defer p.mu.Unlock()
	elapsed := now.Sub(p.windowStart).Seconds()
	if elapsed < 1 {
		elapsed = 1
	}
	p.rates = FrameRates{
		DeviceA: float64(p.counts[DeviceAStatusID]) / elapsed * scale,
		DeviceB: float64(p.counts[DeviceBStatusID]) / elapsed * scale,
		Total:   float64(p.processed) / elapsed * scale,
	}
	p.processed = 0
	p.counts = make(map[uint32]uint64)
	p.windowStart = now
}

// Snapshot returns the pipeline's counters and last-known rates.
func (p *Pipeline) Snapshot() PipelineStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	seen := make([]uint32, 0, len(p.last))
	for id := range p.last {
		seen = append(seen, id)
	}
	sort.Slice(seen, func(i, j int) bool { return seen[i] < seen[j] })
	return PipelineStatus{
		FramesProcessed: p.processed,
		DeviceAFrames:   p.counts[DeviceAStatusID],
		DeviceBFrames:   p.counts[DeviceBStatusID],
		WatchdogFrames:  p.counts[WatchdogResetID],
		ControlFrames:   p.counts[ControlCommandID],
		LastFrame:       p.lastFrame,
		Rates:           p.rates,
		LastSeenIDs:     seen,
	}
}
