package sketch

import (
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Kind distinguishes particle behaviors.
type Kind uint8

const (
	// KindStreak particles scatter uniformly and leave bold marks.
	KindStreak Kind = iota
	// KindDust particles drift along the noise field and leave fine grain.
	KindDust
)

func (k Kind) String() string {
	if k == KindDust {
		return "dust"
	}
	return "streak"
}

// Size is the particle diameter on the live view.
func (k Kind) Size() float64 {
	if k == KindDust {
		return 3
	}
	return 5
}

// TrailSize is the diameter of the permanent mark on the trail layer.
func (k Kind) TrailSize() float64 {
	if k == KindDust {
		return 2
	}
	return 3
}

// TrailAlpha is the opacity (0-255) of the permanent mark.
func (k Kind) TrailAlpha() uint8 {
	if k == KindDust {
		return 3
	}
	return 5
}

// Particle is one short-lived mark left behind the rear wheel.
type Particle struct {
	X, Y   float64
	PX, PY float64
	VX, VY float64
	Life   float64 // counts down from ParticleLife; removed at <= 0
	Color  colorful.Color
	Kind   Kind
}

// Alpha is the particle's live opacity, 0-255.
func (p Particle) Alpha() uint8 {
	switch {
	case p.Life <= 0:
		return 0
	case p.Life >= 255:
		return 255
	}
	return uint8(p.Life)
}

// ParticleSystem owns the live particles.
type ParticleSystem struct {
	particles []Particle
}

// NewParticleSystem creates an empty system.
func NewParticleSystem() *ParticleSystem {
	return &ParticleSystem{}
}

// Emit adds a particle.
func (s *ParticleSystem) Emit(p Particle) {
	s.particles = append(s.particles, p)
}

// Step integrates every particle one frame and drops the expired ones.
// It returns the number removed.
func (s *ParticleSystem) Step() int {
	live := s.particles[:0]
	for _, p := range s.particles {
		p.PX, p.PY = p.X, p.Y
		p.X += p.VX
		p.Y += p.VY
		p.Life -= LifeDecay
		if p.Life > 0 {
			live = append(live, p)
		}
	}
	removed := len(s.particles) - len(live)
	// Zero the tail so dropped particles do not linger in the backing array.
	for i := len(live); i < len(s.particles); i++ {
		s.particles[i] = Particle{}
	}
	s.particles = live
	return removed
}

// Len returns the number of live particles.
func (s *ParticleSystem) Len() int { return len(s.particles) }

// Particles returns a copy of the live particles.
func (s *ParticleSystem) Particles() []Particle {
	out := make([]Particle, len(s.particles))
	copy(out, s.particles)
	return out
}
