// cmd/cansim/main.go
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/notnil/cansim/internal/config"
	"github.com/notnil/cansim/sim"
)

// stopGrace bounds how long shutdown waits for background tasks to drain.
const stopGrace = 2 * time.Second

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: cansim <config.yaml>")
	}
	cfgPath := os.Args[1]

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)

	// --------------------
	// Build + run simulation
	// --------------------

	s, err := sim.New(sim.Config{
		DeviceARate:      cfg.Simulation.DeviceA.FrameRateHz,
		DeviceBRate:      cfg.Simulation.DeviceB.FrameRateHz,
		WatchdogTimeout:  time.Duration(cfg.Simulation.DeviceB.WatchdogTimeoutMs) * time.Millisecond,
		ModuleCCycle:     time.Duration(cfg.Simulation.ModuleC.CycleMs) * time.Millisecond,
		StatsWindow:      time.Duration(cfg.Simulation.StatsWindowS * float64(time.Second)),
		TimingScale:      cfg.Simulation.TimingScale,
		WatchdogInterval: time.Duration(cfg.Simulation.WatchdogIntervalS * float64(time.Second)),
		Logger:           logger,
		LogFrames:        cfg.Log.Frames,
	})
	if err != nil {
		log.Fatalf("simulation build failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.Start(ctx); err != nil {
		log.Fatalf("simulation start failed: %v", err)
	}

	<-ctx.Done()
	stop()

	graceCtx, cancel := context.WithTimeout(context.Background(), stopGrace)
	defer cancel()
	if err := s.Stop(graceCtx); err != nil {
		logger.Warn("shutdown exceeded grace period", "error", err)
	}
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
