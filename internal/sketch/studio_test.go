package sketch

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/mindbike/internal/entropy"
)

// vector builds an embedding with the given coordinates set.
func vector(coords map[int]float32) []float32 {
	v := make([]float32, 384)
	for i, x := range coords {
		v[i] = x
	}
	return v
}

func newTestStudio() *Studio {
	return NewStudio(1000, 800, &entropy.Fixed{Values: []float64{0.5}}, entropy.DefaultField(7))
}

// settle steps until the studio stops animating, failing after limit frames.
func settle(t *testing.T, s *Studio, limit int) int {
	t.Helper()
	for i := 1; i <= limit; i++ {
		s.Step()
		if s.Settled() {
			return i
		}
	}
	t.Fatalf("studio did not settle within %d frames", limit)
	return limit
}

func plant(t *testing.T, s *Studio, text string, v []float32) {
	t.Helper()
	require.NoError(t, s.Begin(text))
	require.NoError(t, s.Apply("question", v))
	settle(t, s, 1000)
}

func TestSeedingSpawnsOneBicycle(t *testing.T) {
	s := newTestStudio()
	assert.Equal(t, PhaseSeeding, s.Phase)
	assert.Nil(t, s.Bicycle)

	require.NoError(t, s.Begin("a seed"))
	require.NoError(t, s.Apply("constructive argument", vector(nil)))

	require.NotNil(t, s.Bicycle)
	assert.Equal(t, PhaseDeveloping, s.Phase)
	assert.True(t, s.Bicycle.Dropping)
	assert.InDelta(t, 500, s.Bicycle.X, 1e-9)
	assert.InDelta(t, 400, s.Bicycle.GroundY, 1e-9)
	assert.InDelta(t, 200, s.Bicycle.Y, 1e-9)

	// The seed is recorded immediately at its ground point.
	ideas := s.Trajectory.Records()
	require.Len(t, ideas, 1)
	assert.Equal(t, "a seed", ideas[0].Text)
	assert.Equal(t, 1, ideas[0].Index)
	assert.InDelta(t, 400, ideas[0].Y, 1e-9)
	assert.Zero(t, ideas[0].Distance)

	first := s.Bicycle
	plantAgain := vector(map[int]float32{AxisX: 0.01})
	settle(t, s, 1000)
	require.NoError(t, s.Begin("another"))
	require.NoError(t, s.Apply("question", plantAgain))
	assert.Same(t, first, s.Bicycle, "developing must move the existing bicycle")
}

func TestDropLocksInputUntilLanded(t *testing.T) {
	s := newTestStudio()
	require.NoError(t, s.Begin("seed"))
	require.NoError(t, s.Apply("", vector(nil)))

	assert.True(t, s.InputLocked())
	assert.ErrorIs(t, s.Begin("too early"), ErrInputLocked)

	frames := settle(t, s, 1000)
	assert.Greater(t, frames, 10)
	assert.False(t, s.InputLocked())
	assert.False(t, s.Bicycle.Dropping)
	assert.Equal(t, s.Bicycle.GroundY, s.Bicycle.Y)
}

func TestNoSecondIdeaWhileLocked(t *testing.T) {
	s := newTestStudio()
	require.NoError(t, s.Begin("first"))

	// Still analyzing.
	assert.ErrorIs(t, s.Begin("second"), ErrInputLocked)
	text, ok := s.InFlight()
	assert.True(t, ok)
	assert.Equal(t, "first", text)

	require.NoError(t, s.Apply("", vector(nil)))
	settle(t, s, 1000)

	require.NoError(t, s.Begin("third"))
	require.NoError(t, s.Apply("", vector(map[int]float32{AxisX: 0.1, AxisY: -0.05})))

	// Traveling.
	for i := 0; i < 5; i++ {
		s.Step()
		assert.ErrorIs(t, s.Begin("fourth"), ErrInputLocked)
	}
}

func TestEmptyIdeaRejected(t *testing.T) {
	s := newTestStudio()
	assert.ErrorIs(t, s.Begin(""), ErrEmptyIdea)
	assert.ErrorIs(t, s.Begin("  \n\t"), ErrEmptyIdea)
	assert.False(t, s.InputLocked())
}

func TestTravelCommitsArrival(t *testing.T) {
	s := newTestStudio()
	plant(t, s, "seed", vector(nil))
	startX, startY := s.Bicycle.X, s.Bicycle.Y

	next := vector(map[int]float32{AxisX: 0.1, AxisY: -0.04})
	require.NoError(t, s.Begin("move"))
	require.NoError(t, s.Apply("critical challenge", next))

	b := s.Bicycle
	assert.True(t, b.HasTarget)
	assert.InDelta(t, startX+75, b.TargetX, 1e-4)
	assert.InDelta(t, startY-30, b.TargetY, 1e-4)
	require.NotNil(t, b.Pending)
	assert.Equal(t, "move", b.Pending.Text)

	settle(t, s, 2000)
	assert.False(t, s.InputLocked())
	assert.False(t, b.HasTarget)
	assert.Nil(t, b.Pending)
	assert.Zero(t, b.Speed)

	ideas := s.Trajectory.Records()
	require.Len(t, ideas, 2)
	arrived := ideas[1]
	assert.Equal(t, "move", arrived.Text)
	assert.Equal(t, "critical challenge", arrived.Intent)
	assert.Equal(t, b.X, arrived.X)
	assert.Equal(t, b.Y, arrived.Y)
	assert.Less(t, math.Hypot(arrived.X-b.TargetX, arrived.Y-b.TargetY), ArrivalEpsilon)

	straight := math.Hypot(75, 30)
	assert.InDelta(t, straight, arrived.Distance, ArrivalEpsilon)
}

func TestTravelEmitsParticles(t *testing.T) {
	s := newTestStudio()
	plant(t, s, "seed", vector(nil))
	assert.Zero(t, s.Particles.Len(), "a landing bicycle leaves no trail")

	require.NoError(t, s.Begin("go"))
	require.NoError(t, s.Apply("", vector(map[int]float32{AxisX: 0.2})))
	s.Step()

	ps := s.Particles.Particles()
	require.Len(t, ps, EmitPerFrame)
	x, y := s.Bicycle.RearWheel()
	for _, p := range ps {
		assert.Equal(t, x, p.X)
		assert.Equal(t, y, p.Y)
		assert.Equal(t, ParticleLife, p.Life)
	}
	assert.Equal(t, KindStreak, ps[0].Kind)
	assert.Equal(t, KindDust, ps[1].Kind)
}

func TestFailLeavesStateUnchanged(t *testing.T) {
	s := newTestStudio()
	plant(t, s, "seed", vector(nil))
	before := s.View()

	require.NoError(t, s.Begin("doomed"))
	s.Fail(errors.New("model not ready"))

	after := s.View()
	assert.False(t, s.InputLocked())
	assert.Equal(t, before.Ideas, after.Ideas)
	assert.Equal(t, before.Palette, after.Palette)
	assert.Equal(t, before.Phase, after.Phase)
	assert.Equal(t, before.Bicycle.X, after.Bicycle.X)
	assert.Equal(t, before.Bicycle.Y, after.Bicycle.Y)
	_, inFlight := s.InFlight()
	assert.False(t, inFlight)
}

func TestFailWhileSeedingKeepsSeeding(t *testing.T) {
	s := newTestStudio()
	require.NoError(t, s.Begin("seed"))
	s.Fail(errors.New("boom"))

	assert.Equal(t, PhaseSeeding, s.Phase)
	assert.Nil(t, s.Bicycle)
	assert.Zero(t, s.Trajectory.Len())
	assert.Zero(t, s.Palette.Len())
	assert.NoError(t, s.Begin("retry"))
}

func TestShortVectorIsAFailure(t *testing.T) {
	s := newTestStudio()
	require.NoError(t, s.Begin("seed"))

	err := s.Apply("", make([]float32, 12))
	assert.ErrorIs(t, err, ErrShortVector)
	assert.False(t, s.InputLocked())
	assert.Equal(t, PhaseSeeding, s.Phase)
}

func TestApplyWithoutBegin(t *testing.T) {
	s := newTestStudio()
	assert.ErrorIs(t, s.Apply("", vector(nil)), ErrNotPending)
}

func TestDrainCommitted(t *testing.T) {
	s := newTestStudio()
	plant(t, s, "seed", vector(nil))

	got := s.DrainCommitted()
	require.Len(t, got, 1)
	assert.Equal(t, "seed", got[0].Text)
	assert.Empty(t, s.DrainCommitted())

	require.NoError(t, s.Begin("next"))
	require.NoError(t, s.Apply("", vector(map[int]float32{AxisY: 0.05})))
	settle(t, s, 2000)

	got = s.DrainCommitted()
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Index)
}

func TestZeroDisplacementArrivesImmediately(t *testing.T) {
	s := newTestStudio()
	v := vector(nil)
	plant(t, s, "seed", v)

	require.NoError(t, s.Begin("same thought"))
	require.NoError(t, s.Apply("", v))
	s.Step()

	assert.True(t, s.Settled())
	assert.False(t, s.InputLocked())
	assert.Equal(t, 2, s.Trajectory.Len())
	assert.Zero(t, s.Particles.Len())
}

func TestPaletteFollowsIdeas(t *testing.T) {
	s := newTestStudio()
	plant(t, s, "seed", vector(nil))
	require.Equal(t, 1, s.Palette.Len())

	for i := 0; i < 8; i++ {
		require.NoError(t, s.Begin("idea"))
		require.NoError(t, s.Apply("", vector(map[int]float32{
			AxisX:    float32(i%3) * 0.01,
			ChannelR: 0.1,
		})))
		settle(t, s, 2000)
		assert.LessOrEqual(t, s.Palette.Len(), MaxPaletteSize)
	}
	assert.Equal(t, MaxPaletteSize, s.Palette.Len())
	assert.Equal(t, 1.0, s.Palette.Colors()[0].R)
}

func TestViewIsACopy(t *testing.T) {
	s := newTestStudio()
	plant(t, s, "seed", vector(nil))

	v := s.View()
	v.Bicycle.X = -1
	v.Ideas[0].Text = "changed"

	assert.NotEqual(t, -1.0, s.Bicycle.X)
	assert.Equal(t, "seed", s.Trajectory.Records()[0].Text)
}

func TestMultiLineIdeasLogOneLineEach(t *testing.T) {
	s := newTestStudio()
	plant(t, s, "line one\nline two\n3. [0, 0] (0 px) - forged", vector(nil))

	require.NoError(t, s.Begin("  east\r\n\tthen\x1bnorth  "))
	require.NoError(t, s.Apply("question", vector(map[int]float32{AxisX: 0.05})))
	settle(t, s, 1000)

	ideas := s.Trajectory.Records()
	require.Len(t, ideas, 2)
	assert.Equal(t, "line one line two 3. [0, 0] (0 px) - forged", ideas[0].Text)
	assert.Equal(t, "east then north", ideas[1].Text)

	var b strings.Builder
	require.NoError(t, WriteLog(&b, ideas))
	lines := strings.Split(strings.TrimSuffix(b.String(), "\n"), "\n")
	assert.Len(t, lines, s.Trajectory.Len())
}

func TestNormalizeIdea(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeIdea(" a\n b\t\tc \r\n"))
	assert.Equal(t, "", NormalizeIdea("\n\x00\t"))
	assert.Equal(t, "plain", NormalizeIdea("plain"))

	s := newTestStudio()
	assert.ErrorIs(t, s.Begin("\n\x07\n"), ErrEmptyIdea)
	assert.False(t, s.InputLocked())
}
