// Package sketch holds the animation state of the idea bicycle: the input
// state machine, drop/travel kinematics, particles, palette, and trajectory.
// Nothing here blocks or locks; callers serialize access.
package sketch

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/talgya/mindbike/internal/entropy"
)

var (
	// ErrEmptyIdea is returned for blank submissions.
	ErrEmptyIdea = errors.New("empty idea")
	// ErrInputLocked is returned when an idea is already being processed or animated.
	ErrInputLocked = errors.New("input locked")
	// ErrNotPending is returned by Apply or Fail when no idea was begun.
	ErrNotPending = errors.New("no idea in flight")
	// ErrShortVector is returned when an embedding is too short to map.
	ErrShortVector = errors.New("embedding vector too short")
)

// Studio is the complete sketch state, advanced one frame at a time.
type Studio struct {
	Width  float64
	Height float64

	Phase      Phase
	Bicycle    *Bicycle
	Particles  *ParticleSystem
	Palette    *Palette
	Trajectory *Trajectory
	Frame      uint64

	locked   bool
	inFlight string // text begun but not yet applied

	rng       entropy.Source
	field     *entropy.Field
	committed []IdeaRecord // commits not yet drained
}

// NewStudio creates a studio in the seeding phase.
// field may be nil, in which case dust particles use uniform velocities.
func NewStudio(width, height float64, rng entropy.Source, field *entropy.Field) *Studio {
	return &Studio{
		Width:      width,
		Height:     height,
		Phase:      PhaseSeeding,
		Particles:  NewParticleSystem(),
		Palette:    NewPalette(MaxPaletteSize),
		Trajectory: &Trajectory{},
		rng:        rng,
		field:      field,
	}
}

// InputLocked reports whether new ideas are currently refused.
func (s *Studio) InputLocked() bool { return s.locked }

// InFlight returns the idea being analyzed, if any.
func (s *Studio) InFlight() (string, bool) {
	return s.inFlight, s.inFlight != ""
}

// NormalizeIdea folds an idea onto one line: control characters become
// spaces and whitespace runs collapse to a single space.
func NormalizeIdea(text string) string {
	text = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, text)
	return strings.Join(strings.Fields(text), " ")
}

// Begin accepts an idea for analysis and locks input. The idea is stored
// normalized, so every record and log line holds exactly one line of text.
func (s *Studio) Begin(text string) error {
	text = NormalizeIdea(text)
	if text == "" {
		return ErrEmptyIdea
	}
	if s.locked {
		return ErrInputLocked
	}
	s.locked = true
	s.inFlight = text
	return nil
}

// Apply feeds the analysis of the in-flight idea into the state machine.
// Input stays locked until the resulting animation settles. A vector too
// short to map is treated as a failed analysis.
func (s *Studio) Apply(intent string, vector []float32) error {
	text, ok := s.InFlight()
	if !ok {
		return ErrNotPending
	}
	if len(vector) < MinVectorLen {
		err := fmt.Errorf("apply %q: %w (got %d, need %d)", text, ErrShortVector, len(vector), MinVectorLen)
		s.Fail(err)
		return err
	}
	s.inFlight = ""

	switch s.Phase {
	case PhaseSeeding:
		s.seed(text, intent, vector)
	case PhaseDeveloping:
		s.develop(text, intent, vector)
	}
	return nil
}

// Fail drops the in-flight idea and re-enables input. Nothing else changes.
func (s *Studio) Fail(err error) {
	text, ok := s.InFlight()
	if !ok {
		return
	}
	slog.Warn("idea dropped", "text", text, "error", err)
	s.inFlight = ""
	s.locked = false
}

func (s *Studio) seed(text, intent string, vector []float32) {
	x := entropy.Range(s.rng, s.Width*SpawnMin, s.Width*SpawnMax)
	groundY := entropy.Range(s.rng, s.Height*SpawnMin, s.Height*SpawnMax)
	s.Bicycle = newBicycle(x, groundY, vector)
	s.Palette.Reset(ColorFromVector(vector))
	s.commit(IdeaRecord{Text: text, Intent: intent, X: x, Y: groundY})
	s.Phase = PhaseDeveloping

	slog.Info("idea planted", "text", text, "intent", intent, "x", int(x), "ground_y", int(groundY))
}

func (s *Studio) develop(text, intent string, vector []float32) {
	b := s.Bicycle
	dx, dy := Displacement(b.Vector, vector, MoveScale)
	b.SetTarget(b.X+dx, b.Y+dy, &Arrival{Text: text, Intent: intent, FromX: b.X, FromY: b.Y})

	color := ColorFromVector(vector)
	s.Palette.Push(color)
	b.Vector = vector

	slog.Info("idea developing", "text", text, "intent", intent,
		"dx", fmt.Sprintf("%.1f", dx), "dy", fmt.Sprintf("%.1f", dy), "color", color.Hex())
}

// Step advances the whole sketch by one frame.
func (s *Studio) Step() {
	s.Frame++
	s.Particles.Step()

	b := s.Bicycle
	if b == nil {
		return
	}
	switch b.Update() {
	case MotionLanded:
		s.unlock()
	case MotionTraveling:
		s.emit()
	case MotionArrived:
		s.emit()
		pending, traveled := b.clearTarget()
		if pending != nil {
			s.commit(IdeaRecord{
				Text:     pending.Text,
				Intent:   pending.Intent,
				X:        b.X,
				Y:        b.Y,
				Distance: traveled,
			})
		}
		s.unlock()
	}
}

// unlock re-enables input once an animation settles, unless an analysis is
// still outstanding.
func (s *Studio) unlock() {
	if s.inFlight != "" {
		return
	}
	s.locked = false
}

func (s *Studio) commit(r IdeaRecord) {
	r.Frame = s.Frame
	stored := s.Trajectory.Append(r)
	s.committed = append(s.committed, stored)
}

// DrainCommitted returns ideas committed since the previous call.
func (s *Studio) DrainCommitted() []IdeaRecord {
	out := s.committed
	s.committed = nil
	return out
}

func (s *Studio) emit() {
	b := s.Bicycle
	if b.Speed < EmitMinSpeed {
		return
	}
	x, y := b.RearWheel()
	for i := 0; i < EmitPerFrame; i++ {
		kind := KindStreak
		if i%2 == 1 {
			kind = KindDust
		}
		vx, vy := s.velocity(kind, x, y)
		s.Particles.Emit(Particle{
			X: x, Y: y, PX: x, PY: y,
			VX: vx, VY: vy,
			Life:  ParticleLife,
			Color: s.Palette.Mix(s.rng),
			Kind:  kind,
		})
	}
}

func (s *Studio) velocity(kind Kind, x, y float64) (float64, float64) {
	if kind == KindDust && s.field != nil {
		return s.field.Velocity(x, y, s.Frame)
	}
	return entropy.Range(s.rng, -StreakVelocity, StreakVelocity),
		entropy.Range(s.rng, -StreakVelocity, StreakVelocity)
}

// View is a read-only copy of the studio for renderers and APIs.
type View struct {
	Width       float64
	Height      float64
	Phase       Phase
	Frame       uint64
	InputLocked bool
	InFlight    string
	Bicycle     *Bicycle // copy; nil while seeding
	Particles   []Particle
	Palette     []colorful.Color
	Ideas       []IdeaRecord
}

// View copies the current state.
func (s *Studio) View() View {
	v := View{
		Width:       s.Width,
		Height:      s.Height,
		Phase:       s.Phase,
		Frame:       s.Frame,
		InputLocked: s.locked,
		InFlight:    s.inFlight,
		Particles:   s.Particles.Particles(),
		Palette:     s.Palette.Colors(),
		Ideas:       s.Trajectory.Records(),
	}
	if s.Bicycle != nil {
		b := *s.Bicycle
		b.Vector = nil
		if s.Bicycle.Pending != nil {
			p := *s.Bicycle.Pending
			b.Pending = &p
		}
		v.Bicycle = &b
	}
	return v
}

// Settled reports whether nothing is animating or being analyzed.
func (s *Studio) Settled() bool {
	if s.inFlight != "" {
		return false
	}
	return s.Bicycle == nil || !s.Bicycle.Moving()
}
