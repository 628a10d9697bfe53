package entropy

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Field is a slowly varying 2D flow field sampled from simplex noise.
// Frames act as the third noise axis so the field drifts over time.
type Field struct {
	noise     opensimplex.Noise
	scale     float64 // spatial frequency (per pixel)
	drift     float64 // temporal frequency (per frame)
	magnitude float64 // maximum velocity
}

// NewField creates a noise field for the given seed.
func NewField(seed int64, scale, drift, magnitude float64) *Field {
	return &Field{
		noise:     opensimplex.New(seed),
		scale:     scale,
		drift:     drift,
		magnitude: magnitude,
	}
}

// DefaultField returns the field used for dust particles.
func DefaultField(seed int64) *Field {
	return NewField(seed, 0.004, 0.01, 0.6)
}

// Velocity samples the field at (x, y) on the given frame.
// The returned vector has length in [0, magnitude].
func (f *Field) Velocity(x, y float64, frame uint64) (vx, vy float64) {
	t := float64(frame) * f.drift
	// Two decorrelated samples: one steers, one scales.
	angle := f.noise.Eval3(x*f.scale, y*f.scale, t) * 2 * math.Pi
	strength := (f.noise.Eval3(x*f.scale+31.7, y*f.scale-17.3, t) + 1) / 2
	speed := f.magnitude * clamp01(strength)
	return math.Cos(angle) * speed, math.Sin(angle) * speed
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
