// Package engine provides the day-based simulation loop and the Simulation
// aggregate that runs the stability systems each simulated day.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"
)

// Calendar constants. One tick is one simulated day.
const (
	DaysPerMonth = 30
	DaysPerYear  = 360
)

// Engine drives the simulation forward.
type Engine struct {
	Interval time.Duration // Base tick interval at speed 1

	day     atomic.Int64
	speed   atomic.Uint64 // math.Float64bits
	running atomic.Bool

	// Callbacks, populated during setup.
	OnDay   func(day int) // Every tick
	OnMonth func(day int) // Every 30 days, after OnDay
}

// NewEngine creates an engine that resumes after startDay.
func NewEngine(startDay int, interval time.Duration, speed float64) *Engine {
	e := &Engine{Interval: interval}
	e.day.Store(int64(startDay))
	e.SetSpeed(speed)
	return e
}

// Day is the last day processed.
func (e *Engine) Day() int { return int(e.day.Load()) }

// Speed is the current multiplier: 1 = one day per interval, 0 = paused.
func (e *Engine) Speed() float64 { return math.Float64frombits(e.speed.Load()) }

// SetSpeed changes the multiplier. Negative values pause.
func (e *Engine) SetSpeed(v float64) {
	if v < 0 || math.IsNaN(v) {
		v = 0
	}
	e.speed.Store(math.Float64bits(v))
}

// Running reports whether Run is looping.
func (e *Engine) Running() bool { return e.running.Load() }

// Run starts the simulation loop. Blocks until ctx is done or Stop is called.
func (e *Engine) Run(ctx context.Context) {
	e.running.Store(true)
	defer e.running.Store(false)
	slog.Info("simulation engine started", "day", e.Day(), "speed", e.Speed())

	for e.running.Load() && ctx.Err() == nil {
		speed := e.Speed()
		if speed <= 0 {
			// Paused, check again shortly.
			if !sleep(ctx, 100*time.Millisecond) {
				break
			}
			continue
		}

		start := time.Now()
		e.Step()

		// Sleep for the remainder of the tick interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed < target && !sleep(ctx, target-elapsed) {
			break
		}
	}

	slog.Info("simulation engine stopped", "day", e.Day())
}

// Stop halts the simulation loop after the current tick.
func (e *Engine) Stop() {
	e.running.Store(false)
}

// Step advances the simulation by one day and returns it.
func (e *Engine) Step() int {
	day := int(e.day.Add(1))

	if e.OnDay != nil {
		e.OnDay(day)
	}
	if day%DaysPerMonth == 0 && e.OnMonth != nil {
		e.OnMonth(day)
	}
	return day
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// SimDate returns a human-readable date for a day number.
func SimDate(day int) string {
	if day < 0 {
		day = 0
	}
	year := day/DaysPerYear + 1
	month := (day%DaysPerYear)/DaysPerMonth + 1
	dom := day%DaysPerMonth + 1
	return fmt.Sprintf("Year %d, Month %d, Day %d", year, month, dom)
}
