package entropy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldVelocityBounded(t *testing.T) {
	f := DefaultField(3)
	for i := 0; i < 200; i++ {
		x, y := float64(i*13), float64(i*7)
		vx, vy := f.Velocity(x, y, uint64(i))
		assert.LessOrEqual(t, math.Hypot(vx, vy), 0.6+1e-9)
	}
}

func TestFieldDeterministic(t *testing.T) {
	a, b := DefaultField(11), DefaultField(11)
	ax, ay := a.Velocity(120, 45, 9)
	bx, by := b.Velocity(120, 45, 9)
	assert.Equal(t, ax, bx)
	assert.Equal(t, ay, by)
}
