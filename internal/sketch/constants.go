package sketch

import "math"

// Drop kinematics.
const (
	Gravity        = 0.5  // px/frame² added to vertical velocity while dropping
	BounceDamping  = -0.6 // velocity multiplier on ground contact
	SettleVelocity = 1.0  // |vy| below this after a bounce ends the drop
	DropHeight     = 200  // spawn height above the ground point
)

// Travel easing.
const (
	TravelLerp     = 0.03 // fraction of the remaining distance covered per frame
	HeadingLerp    = 0.1  // fraction of the remaining heading turned per frame
	ArrivalEpsilon = 2.0  // px; closer than this counts as arrived
	WheelSpin      = 0.1  // wheel rotation per px traveled
)

// Bicycle geometry.
const (
	WheelRadius = 15.0
	WheelBase   = 25.0
)

// Idea-to-motion mapping. Coordinates index into the embedding vector.
const (
	MoveScale = 750.0

	AxisX = 5
	AxisY = 8

	ChannelR = 10
	ChannelG = 150
	ChannelB = 300

	// ColorSpan is the half-width of the embedding range mapped onto 0..255.
	ColorSpan = 0.1
)

// MinVectorLen is the shortest embedding the mapping can read.
const MinVectorLen = ChannelB + 1

// Particles.
const (
	EmitPerFrame   = 2
	EmitMinSpeed   = 0.1
	ParticleLife   = 255.0
	LifeDecay      = 2.0
	StreakVelocity = 0.5 // streak particles draw vx, vy from [-v, v)
)

// Palette.
const (
	MaxPaletteSize = 4
	BlendMin       = 0.2
	BlendMax       = 0.8
)

// Spawn region as a fraction of the canvas.
const (
	SpawnMin = 0.2
	SpawnMax = 0.8
)

// HoverRadius is how close a pointer must be to an idea node to select it.
const HoverRadius = 10.0

const twoPi = 2 * math.Pi
