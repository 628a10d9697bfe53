package sketch

import "math"

// Motion reports what a bicycle update settled, if anything.
type Motion uint8

const (
	MotionIdle Motion = iota
	MotionDropping
	MotionLanded
	MotionTraveling
	MotionArrived
)

// Arrival is the idea waiting to be committed when the bicycle reaches its target.
type Arrival struct {
	Text   string
	Intent string
	FromX  float64
	FromY  float64
}

// Bicycle is the single animated entity driven by ideas.
type Bicycle struct {
	X, Y   float64
	PX, PY float64 // position on the previous frame

	GroundY  float64
	VY       float64
	Gravity  float64
	Dropping bool

	Angle     float64
	HasTarget bool
	TargetX   float64
	TargetY   float64

	Speed         float64
	WheelRotation float64
	WheelRadius   float64
	WheelBase     float64

	Vector  []float32 // embedding of the most recent idea
	Pending *Arrival

	traveled float64 // path length since the current target was set
}

// newBicycle places a bicycle DropHeight above groundY and starts its drop.
func newBicycle(x, groundY float64, vector []float32) *Bicycle {
	y := groundY - DropHeight
	return &Bicycle{
		X:           x,
		Y:           y,
		PX:          x,
		PY:          y,
		GroundY:     groundY,
		Gravity:     Gravity,
		Dropping:    true,
		WheelRadius: WheelRadius,
		WheelBase:   WheelBase,
		Vector:      vector,
	}
}

// SetTarget starts travel toward (x, y) carrying the given pending idea.
func (b *Bicycle) SetTarget(x, y float64, pending *Arrival) {
	b.HasTarget = true
	b.TargetX = x
	b.TargetY = y
	b.Pending = pending
	b.traveled = 0
}

// Update advances the bicycle by one frame.
func (b *Bicycle) Update() Motion {
	switch {
	case b.Dropping:
		return b.drop()
	case b.HasTarget:
		return b.travel()
	}
	return MotionIdle
}

func (b *Bicycle) drop() Motion {
	b.PX, b.PY = b.X, b.Y
	b.VY += b.Gravity
	b.Y += b.VY
	if b.Y < b.GroundY {
		return MotionDropping
	}
	b.Y = b.GroundY
	b.VY *= BounceDamping
	if math.Abs(b.VY) < SettleVelocity {
		b.Dropping = false
		b.VY = 0
		return MotionLanded
	}
	return MotionDropping
}

func (b *Bicycle) travel() Motion {
	b.PX, b.PY = b.X, b.Y
	b.X = lerp(b.X, b.TargetX, TravelLerp)
	b.Y = lerp(b.Y, b.TargetY, TravelLerp)

	bearing := math.Atan2(b.TargetY-b.Y, b.TargetX-b.X)
	b.Angle = LerpAngle(b.Angle, bearing, HeadingLerp)

	b.Speed = math.Hypot(b.X-b.PX, b.Y-b.PY)
	b.WheelRotation += b.Speed * WheelSpin
	b.traveled += b.Speed

	if math.Hypot(b.TargetX-b.X, b.TargetY-b.Y) < ArrivalEpsilon {
		return MotionArrived
	}
	return MotionTraveling
}

// clearTarget ends travel and returns the pending idea and distance covered.
func (b *Bicycle) clearTarget() (*Arrival, float64) {
	pending, traveled := b.Pending, b.traveled
	b.HasTarget = false
	b.Pending = nil
	b.Speed = 0
	b.traveled = 0
	return pending, traveled
}

// RearWheel returns the rear wheel hub in canvas coordinates.
func (b *Bicycle) RearWheel() (float64, float64) {
	return b.X - b.WheelBase*math.Cos(b.Angle), b.Y - b.WheelBase*math.Sin(b.Angle)
}

// Moving reports whether the bicycle is still animating.
func (b *Bicycle) Moving() bool {
	return b.Dropping || b.HasTarget
}

// Displacement maps the change between two embeddings onto a canvas offset.
// Both vectors must have at least AxisY+1 coordinates.
func Displacement(prev, next []float32, scale float64) (dx, dy float64) {
	dx = float64(next[AxisX]-prev[AxisX]) * scale
	dy = float64(next[AxisY]-prev[AxisY]) * scale
	return dx, dy
}

// LerpAngle eases from one heading toward another along the shorter arc.
func LerpAngle(from, to, t float64) float64 {
	diff := math.Remainder(to-from, twoPi)
	return from + diff*t
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
