package sketch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplacement(t *testing.T) {
	tests := []struct {
		name   string
		prev   map[int]float32
		next   map[int]float32
		dx, dy float64
	}{
		{"identical", nil, nil, 0, 0},
		{"x only", nil, map[int]float32{AxisX: 0.1}, 75, 0},
		{"y only", map[int]float32{AxisY: 0.02}, map[int]float32{AxisY: -0.02}, 0, -30},
		{"other coordinates ignored", map[int]float32{0: 1, 7: 1}, map[int]float32{0: -1, 9: 1}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dx, dy := Displacement(vector(tt.prev), vector(tt.next), MoveScale)
			assert.InDelta(t, tt.dx, dx, 1e-4)
			assert.InDelta(t, tt.dy, dy, 1e-4)

			// Deterministic.
			dx2, dy2 := Displacement(vector(tt.prev), vector(tt.next), MoveScale)
			assert.Equal(t, dx, dx2)
			assert.Equal(t, dy, dy2)
		})
	}
}

func TestLerpAngleTakesShortestPath(t *testing.T) {
	tests := []struct {
		name     string
		from, to float64
		want     float64
	}{
		{"plain", 0, 1, 0.1},
		{"wraps past pi", 3, -3, 3 + (2*math.Pi-6)*0.1},
		{"wraps past minus pi", -3, 3, -3 - (2*math.Pi-6)*0.1},
		{"no change", 1.5, 1.5, 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, LerpAngle(tt.from, tt.to, 0.1), 1e-9)
		})
	}
}

func TestDropBouncesThenSettles(t *testing.T) {
	b := newBicycle(100, 300, nil)
	var bounces int
	var landed bool
	for i := 0; i < 500 && !landed; i++ {
		prevVY := b.VY
		switch b.Update() {
		case MotionLanded:
			landed = true
		case MotionDropping:
			if prevVY > 0 && b.VY < 0 {
				bounces++
			}
			assert.LessOrEqual(t, b.Y, b.GroundY)
		}
	}
	assert.True(t, landed)
	assert.Greater(t, bounces, 1)
	assert.Equal(t, 300.0, b.Y)
	assert.False(t, b.Moving())
	assert.Equal(t, MotionIdle, b.Update())
}

func TestRearWheel(t *testing.T) {
	b := newBicycle(100, 300, nil)
	b.Y = 300
	x, y := b.RearWheel()
	assert.InDelta(t, 75, x, 1e-9)
	assert.InDelta(t, 300, y, 1e-9)

	b.Angle = math.Pi / 2
	x, y = b.RearWheel()
	assert.InDelta(t, 100, x, 1e-9)
	assert.InDelta(t, 275, y, 1e-9)
}

func TestTravelTurnsTowardTarget(t *testing.T) {
	b := newBicycle(0, 0, nil)
	b.Dropping = false
	b.X, b.Y = 0, 0
	b.SetTarget(0, 100, &Arrival{Text: "down"})

	b.Update()
	assert.Greater(t, b.Angle, 0.0)
	assert.Less(t, b.Angle, math.Pi/2)
	assert.InDelta(t, 3, b.Y, 1e-9)
	assert.InDelta(t, 3, b.Speed, 1e-9)
	assert.InDelta(t, 0.3, b.WheelRotation, 1e-9)
}
