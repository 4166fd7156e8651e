package sim

import (
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/notnil/cansim/canbus"
)

var (
	// ErrControlRange reports a control value outside 0..255.
	ErrControlRange = errors.New("sim: control value must be between 0 and 255")
	// ErrAlreadyStarted reports a second Start on a running simulation.
	ErrAlreadyStarted = errors.New("sim: already started")
)

// Config carries the simulation's unscaled timing parameters. Zero values
// fall back to the package defaults.
type Config struct {
	DeviceARate float64 // frames per second
	DeviceBRate float64 // frames per second

	WatchdogTimeout time.Duration // Device B watchdog timeout
	ModuleCCycle    time.Duration // Module C recomputation cadence
	StatsWindow     time.Duration // pipeline rate window

	// TimingScale is the initial timing scale; 0 means normal speed.
	TimingScale float64

	// WatchdogInterval enables the automatic watchdog-reset sender when
	// positive; 0 disables it.
	WatchdogInterval time.Duration

	// Logger receives structured logs; nil means slog.Default().
	Logger *slog.Logger

	// LogFrames wraps the producers' bus endpoint with a LoggedBus at
	// debug level.
	LogFrames bool
}

func (c Config) withDefaults() Config {
	if c.DeviceARate <= 0 {
		c.DeviceARate = DefaultFrameRate
	}
	if c.DeviceBRate <= 0 {
		c.DeviceBRate = DefaultFrameRate
	}
	if c.WatchdogTimeout <= 0 {
		c.WatchdogTimeout = DefaultWatchdogTimeout
	}
	if c.ModuleCCycle <= 0 {
		c.ModuleCCycle = DefaultModuleCCycle
	}
	if c.StatsWindow <= 0 {
		c.StatsWindow = DefaultStatsWindow
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Simulation owns the bus, both devices, the supervisory module, and the
// dispatch pipeline, plus the cancellation handle of every background
// task. It exposes the control surface consumed by the excluded
// transport/UI layer.
type Simulation struct {
	log      *slog.Logger
	clock    *Clock
	bus      *canbus.LoopbackBus
	tx       canbus.Bus
	mux      *canbus.Mux
	deviceA  *DeviceA
	deviceB  *DeviceB
	moduleC  *ModuleC
	pipeline *Pipeline

	wg sync.WaitGroup

	mu                 sync.Mutex
	started            bool
	runCtx             context.Context
	cancel             context.CancelFunc
	frozen             bool
	watchdogInterval   time.Duration
	autoEnabled        bool
	autoBeforeFreeze   bool
	senderCancel       context.CancelFunc
	lastWatchdogStatus WatchdogState
	lastWatchdogReset  time.Time
}

// New assembles a simulation from the config. Nothing runs until Start.
func New(cfg Config) (*Simulation, error) {
	cfg = cfg.withDefaults()

	clock := NewClock()
	if cfg.TimingScale != 0 {
		if err := clock.SetScale(cfg.TimingScale); err != nil {
			return nil, err
		}
	}
	if cfg.WatchdogInterval < 0 {
		cfg.WatchdogInterval = 0
	}

	bus := canbus.NewLoopbackBus()
	// Producers share one endpoint: a sender never hears itself, so device
	// frames reach only the dispatcher's endpoint below.
	tx := bus.Open()
	if cfg.LogFrames {
		tx = canbus.NewLoggedBus(tx, cfg.Logger, slog.LevelDebug, canbus.LogWrite)
	}
	rx := bus.OpenBuffered(256)

	s := &Simulation{
		log:                cfg.Logger,
		clock:              clock,
		bus:                bus,
		tx:                 tx,
		mux:                canbus.NewMux(rx),
		watchdogInterval:   cfg.WatchdogInterval,
		autoEnabled:        cfg.WatchdogInterval > 0,
		lastWatchdogStatus: WatchdogOK,
		lastWatchdogReset:  time.Now(),
	}
	s.deviceA = NewDeviceA(tx, clock, cfg.DeviceARate, cfg.Logger)
	s.deviceB = NewDeviceB(tx, clock, cfg.DeviceBRate, cfg.WatchdogTimeout, cfg.Logger)
	s.moduleC = NewModuleC(clock, cfg.ModuleCCycle, cfg.Logger)
	s.pipeline = NewPipeline(clock, cfg.StatsWindow, cfg.Logger)

	s.pipeline.Register(DeviceAStatusID, s.handleDeviceAStatus)
	s.pipeline.Register(DeviceBStatusID, s.handleDeviceBStatus)
	s.pipeline.Register(WatchdogResetID, s.handleWatchdogReset)
	s.pipeline.Register(ControlCommandID, s.handleControlCommand)
	return s, nil
}

// Start launches every background activity: both producers, the watchdog
// monitor, Module C, the stats-reset loop, the dispatch loop, and the
// auto-watchdog sender when configured.
func (s *Simulation) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true
	s.runCtx, s.cancel = context.WithCancel(ctx)

	s.spawn(s.deviceA.Run)
	s.spawn(s.deviceB.Run)
	s.spawn(s.deviceB.RunWatchdog)
	s.spawn(s.moduleC.Run)
	s.spawn(s.pipeline.RunStatsReset)
	s.spawn(s.dispatch)

	if s.autoEnabled && !s.frozen {
		s.startSenderLocked()
	}
	s.log.Info("simulation started",
		"device_a_rate", s.deviceA.FrameRate(),
		"device_b_rate", s.deviceB.FrameRate(),
		"auto_watchdog", s.autoEnabled,
	)
	return nil
}

func (s *Simulation) spawn(run func(context.Context)) {
	s.wg.Add(1)
	ctx := s.runCtx
	go func() {
		defer s.wg.Done()
		run(ctx)
	}()
}

// Stop cancels every background task and waits for them to drain, bounded
// by the context. The bus and mux are closed once the tasks are done.
func (s *Simulation) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.stopSenderLocked()
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	_ = s.mux.Close()
	_ = s.bus.Close()
	s.log.Info("simulation stopped")
	return err
}

// dispatch feeds every bus frame through the wire codec into the pipeline.
// Frames travel as their 13-byte encapsulation so the full tunnel is
// exercised even in-process.
func (s *Simulation) dispatch(ctx context.Context) {
	frames, cancel := s.mux.Subscribe(nil, 128)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			data, err := f.MarshalBinary()
			if err != nil {
				s.log.Error("dispatch: encode failed", "id", f.ID, "error", err)
				continue
			}
			if _, err := s.pipeline.Process(data); err != nil {
				s.log.Error("dispatch: process failed", "error", err)
			}
		}
	}
}

// Process decodes and dispatches one raw encapsulation arriving from the
// external transport boundary.
func (s *Simulation) Process(data []byte) (canbus.Frame, error) {
	return s.pipeline.Process(data)
}

// Subscribe taps the outbound frame stream for the external transport
// layer. A nil filter is applied; slow consumers miss frames.
func (s *Simulation) Subscribe(buffer int) (<-chan canbus.Frame, func()) {
	return s.mux.Subscribe(nil, buffer)
}

// SendControl validates and injects a control command: through the
// pipeline first, then to Device B, mirroring an external client write.
func (s *Simulation) SendControl(value int) error {
	if value < 0 || value > 255 {
		return ErrControlRange
	}
	frame, err := canbus.New(false, false, ControlCommandID, []byte{byte(value)})
	if err != nil {
		return err
	}
	if err := s.inject(frame); err != nil {
		return err
	}
	s.log.Info("control value sent", "value", value)
	return nil
}

// SendWatchdogReset injects a manual watchdog-reset frame.
func (s *Simulation) SendWatchdogReset() error {
	frame, err := canbus.New(false, false, WatchdogResetID, []byte{0x01})
	if err != nil {
		return err
	}
	if err := s.inject(frame); err != nil {
		return err
	}
	s.mu.Lock()
	s.lastWatchdogReset = time.Now()
	s.mu.Unlock()
	s.log.Debug("watchdog reset sent")
	return nil
}

func (s *Simulation) inject(frame canbus.Frame) error {
	data, err := frame.MarshalBinary()
	if err != nil {
		return err
	}
	if _, err := s.pipeline.Process(data); err != nil {
		return err
	}
	s.deviceB.HandleFrame(frame)
	return nil
}

// SetWatchdogInterval reconfigures the automatic watchdog-reset sender.
// Zero or negative disables it; a positive interval (re)starts it on the
// next opportunity. While frozen the new setting is remembered and applied
// on unfreeze.
func (s *Simulation) SetWatchdogInterval(interval time.Duration) {
	if interval < 0 {
		interval = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchdogInterval = interval
	s.stopSenderLocked()
	if s.frozen {
		s.autoBeforeFreeze = interval > 0
		s.autoEnabled = false
		return
	}
	s.autoEnabled = interval > 0
	if s.autoEnabled && s.started {
		s.startSenderLocked()
	}
	s.log.Info("auto watchdog reconfigured", "interval", interval, "enabled", s.autoEnabled)
}

// startSenderLocked launches the auto-watchdog sender. Callers hold s.mu.
func (s *Simulation) startSenderLocked() {
	ctx, cancel := context.WithCancel(s.runCtx)
	s.senderCancel = cancel
	interval := s.watchdogInterval
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runWatchdogSender(ctx, interval)
	}()
}

// stopSenderLocked cancels any in-flight sender task. Callers hold s.mu.
func (s *Simulation) stopSenderLocked() {
	if s.senderCancel != nil {
		s.senderCancel()
		s.senderCancel = nil
	}
}

// runWatchdogSender periodically injects watchdog-reset frames. The wait
// is scaled at each cycle; the body is skipped while frozen.
func (s *Simulation) runWatchdogSender(ctx context.Context, interval time.Duration) {
	s.log.Debug("auto watchdog sender started", "interval", interval)
	for {
		if !s.Frozen() {
			if err := s.SendWatchdogReset(); err != nil {
				s.log.Error("auto watchdog send failed", "error", err)
			}
		}
		timer := time.NewTimer(s.clock.Interval(interval))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Debug("auto watchdog sender stopped")
			return
		case <-timer.C:
		}
	}
}

// SetFrozen pauses (true) or resumes (false) the whole system: producers
// skip their cycle bodies, the pipeline becomes a decode-only
// pass-through, the watchdog can neither latch nor clear, and the
// auto-watchdog sender is cancelled and later restored if it was enabled.
// The call is idempotent.
func (s *Simulation) SetFrozen(state bool) {
	s.mu.Lock()
	if s.frozen == state {
		s.mu.Unlock()
		return
	}
	s.frozen = state
	if state {
		s.autoBeforeFreeze = s.autoEnabled
		s.autoEnabled = false
		s.stopSenderLocked()
	} else if s.autoBeforeFreeze && s.watchdogInterval > 0 {
		s.autoEnabled = true
		s.autoBeforeFreeze = false
		if s.started {
			s.startSenderLocked()
		}
	}
	s.mu.Unlock()

	s.pipeline.SetFrozen(state)
	s.deviceA.SetRunning(!state)
	s.deviceB.SetRunning(!state)
	s.moduleC.SetRunning(!state)
	s.log.Info("freeze state changed", "frozen", state)
}

// Frozen reports the current freeze flag.
func (s *Simulation) Frozen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frozen
}

// SetTimingScale updates the global timing scale; every loop picks it up
// at its next wait.
func (s *Simulation) SetTimingScale(v float64) error {
	old := s.clock.Scale()
	if err := s.clock.SetScale(v); err != nil {
		return err
	}
	s.log.Info("timing scale changed", "from", old, "to", v)
	return nil
}

// TimingScale returns the current timing scale.
func (s *Simulation) TimingScale() float64 {
	return s.clock.Scale()
}

// Status assembles the full snapshot of every entity, the pipeline stats,
// the watchdog state, and the freeze flag.
func (s *Simulation) Status() Status {
	s.mu.Lock()
	lastStatus := s.lastWatchdogStatus
	lastReset := s.lastWatchdogReset
	interval := s.watchdogInterval
	enabled := s.autoEnabled
	frozen := s.frozen
	s.mu.Unlock()

	return Status{
		DeviceA:              s.deviceA.Snapshot(),
		DeviceB:              s.deviceB.Snapshot(),
		ModuleC:              s.moduleC.Snapshot(),
		Pipeline:             s.pipeline.Snapshot(),
		LastWatchdogStatus:   lastStatus.String(),
		LastWatchdogReset:    lastReset,
		AutoWatchdogInterval: interval,
		AutoWatchdogEnabled:  enabled,
		TimingScale:          s.clock.Scale(),
		Frozen:               frozen,
	}
}

// handleDeviceAStatus forwards Device A's operational value to Module C
// and mirrors the decoded status onto Device A's visible state.
func (s *Simulation) handleDeviceAStatus(f canbus.Frame) {
	if f.Len < 5 {
		return
	}
	operational := f.Data[0]
	uptime := binary.BigEndian.Uint32(f.Data[1:5])
	s.moduleC.UpdateDeviceA(int(operational))
	s.deviceA.ApplyStatus(operational, uptime)
}

// handleDeviceBStatus forwards Device B's control value to Module C and
// records the watchdog status flag reported on the wire.
func (s *Simulation) handleDeviceBStatus(f canbus.Frame) {
	if f.Len < 4 {
		return
	}
	control := f.Data[1]
	status := WatchdogTriggered
	if f.Data[3] != 0 {
		status = WatchdogOK
	}
	s.moduleC.UpdateDeviceB(int(control))
	s.mu.Lock()
	s.lastWatchdogStatus = status
	s.mu.Unlock()
}

// handleWatchdogReset timestamps the reset; Device B's registers are
// updated on its own inbound path.
func (s *Simulation) handleWatchdogReset(f canbus.Frame) {
	s.mu.Lock()
	s.lastWatchdogReset = time.Now()
	s.mu.Unlock()
}

// handleControlCommand only counts; the pipeline's counter is the record.
func (s *Simulation) handleControlCommand(f canbus.Frame) {
	if f.Len >= 1 {
		s.log.Debug("control command observed", "value", f.Data[0])
	}
}
