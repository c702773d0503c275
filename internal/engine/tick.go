// Package engine provides the tick loop and the Population Manager it drives.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Engine drives the simulation forward.
type Engine struct {
	mu       sync.Mutex
	tick     uint64  // Monotonic; survives population resets
	speed    float64 // Multiplier: 1.0 = base interval, 0 = paused
	Interval time.Duration

	ReportEvery uint64 // Ticks between OnReport calls; 0 disables
	SaveEvery   uint64 // Ticks between OnSave calls; 0 disables

	// Callbacks, populated during setup.
	OnTick   func(tick uint64)
	OnReport func(tick uint64)
	OnSave   func(tick uint64)

	stop chan struct{}
	once sync.Once
}

// NewEngine creates an engine at 60 ticks per second.
func NewEngine() *Engine {
	return &Engine{
		speed:       1.0,
		Interval:    time.Second / 60,
		ReportEvery: 600,
		SaveEvery:   3600,
		stop:        make(chan struct{}),
	}
}

// Tick returns the last tick run.
func (e *Engine) Tick() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// SetTick positions the counter, used when resuming a saved run.
func (e *Engine) SetTick(t uint64) {
	e.mu.Lock()
	e.tick = t
	e.mu.Unlock()
}

// Speed returns the current multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the multiplier. Negative values pause.
func (e *Engine) SetSpeed(s float64) {
	if s < 0 {
		s = 0
	}
	e.mu.Lock()
	e.speed = s
	e.mu.Unlock()
}

// Run drives ticks until ctx is cancelled or Stop is called.
func (e *Engine) Run(ctx context.Context) {
	slog.Info("simulation engine started", "tick", e.Tick(), "speed", e.Speed())

	for {
		select {
		case <-ctx.Done():
			slog.Info("simulation engine stopped", "tick", e.Tick(), "reason", ctx.Err())
			return
		case <-e.stop:
			slog.Info("simulation engine stopped", "tick", e.Tick())
			return
		default:
		}

		speed := e.Speed()
		if speed <= 0 {
			e.sleep(ctx, 100*time.Millisecond)
			continue
		}

		start := time.Now()
		e.Step()

		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed < target {
			e.sleep(ctx, target-elapsed)
		}
	}
}

func (e *Engine) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	case <-e.stop:
	}
}

// Stop halts Run. Safe to call more than once.
func (e *Engine) Stop() {
	e.once.Do(func() { close(e.stop) })
}

// Step advances the simulation by one tick, regardless of speed.
func (e *Engine) Step() uint64 {
	e.mu.Lock()
	e.tick++
	tick := e.tick
	e.mu.Unlock()

	if e.OnTick != nil {
		e.OnTick(tick)
	}
	if e.ReportEvery > 0 && tick%e.ReportEvery == 0 && e.OnReport != nil {
		e.OnReport(tick)
	}
	if e.SaveEvery > 0 && tick%e.SaveEvery == 0 && e.OnSave != nil {
		e.OnSave(tick)
	}
	return tick
}
