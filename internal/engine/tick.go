// Package engine drives the sketch: a fixed-rate frame clock and the Session
// that serializes frames, idea submissions, and exports.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"
)

// DefaultFPS matches the browser animation rate the sketch was tuned at.
const DefaultFPS = 60

// Engine advances frames at a fixed rate.
type Engine struct {
	Frame    uint64 // Current frame counter (monotonic)
	FPS      int    // Frames per simulated second
	Autosave uint64 // Frames between OnAutosave calls; 0 disables

	running atomic.Bool
	speed   atomic.Uint64 // math.Float64bits of the speed multiplier

	// Callbacks, populated during setup.
	OnFrame    func(frame uint64) // Every frame
	OnSecond   func(frame uint64) // Every FPS frames
	OnAutosave func(frame uint64) // Every Autosave frames
}

// NewEngine creates an engine with default settings.
func NewEngine(fps int) *Engine {
	if fps <= 0 {
		fps = DefaultFPS
	}
	e := &Engine{FPS: fps}
	e.SetSpeed(1.0)
	return e
}

// Speed returns the multiplier: 1.0 = real-time, 0 = paused.
// Safe to call while Run is looping.
func (e *Engine) Speed() float64 {
	return math.Float64frombits(e.speed.Load())
}

// SetSpeed changes the multiplier; negative values pause.
func (e *Engine) SetSpeed(v float64) {
	if v < 0 {
		v = 0
	}
	e.speed.Store(math.Float64bits(v))
}

// Paused reports whether the speed is zero.
func (e *Engine) Paused() bool {
	return e.Speed() <= 0
}

// Interval is the real-time duration of one frame at the current speed.
func (e *Engine) Interval() time.Duration {
	speed := e.Speed()
	if speed <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(e.FPS) / speed)
}

// Run advances frames until ctx is cancelled or Stop is called.
func (e *Engine) Run(ctx context.Context) {
	e.running.Store(true)
	slog.Info("frame engine started", "frame", e.Frame, "fps", e.FPS, "speed", e.Speed())

	for e.running.Load() {
		if err := ctx.Err(); err != nil {
			break
		}
		if e.Paused() {
			// Paused: sleep briefly and check again.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()

		e.Advance()

		// Sleep for the remainder of the frame interval.
		if elapsed, target := time.Since(start), e.Interval(); elapsed < target {
			select {
			case <-ctx.Done():
			case <-time.After(target - elapsed):
			}
		}
	}

	e.running.Store(false)
	slog.Info("frame engine stopped", "frame", e.Frame)
}

// Stop halts the loop after the current frame.
func (e *Engine) Stop() {
	e.running.Store(false)
}

// Running reports whether Run is looping.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Advance runs exactly one frame synchronously.
func (e *Engine) Advance() {
	e.Frame++

	if e.OnFrame != nil {
		e.OnFrame(e.Frame)
	}
	if e.OnSecond != nil && e.Frame%uint64(e.FPS) == 0 {
		e.OnSecond(e.Frame)
	}
	if e.OnAutosave != nil && e.Autosave > 0 && e.Frame%e.Autosave == 0 {
		e.OnAutosave(e.Frame)
	}
}

// Elapsed returns a human-readable sketch time for a frame number.
func Elapsed(frame uint64, fps int) string {
	if fps <= 0 {
		fps = DefaultFPS
	}
	secs := frame / uint64(fps)
	return fmt.Sprintf("%d:%02d.%02d", secs/60, secs%60, frame%uint64(fps))
}
