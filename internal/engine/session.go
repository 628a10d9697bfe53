package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/talgya/mindbike/internal/analyzer"
	"github.com/talgya/mindbike/internal/entropy"
	"github.com/talgya/mindbike/internal/render"
	"github.com/talgya/mindbike/internal/sketch"
)

// IdeaStore persists committed ideas. Implementations must be safe for
// concurrent use.
type IdeaStore interface {
	SaveIdea(ctx context.Context, sessionID string, r sketch.IdeaRecord) error
}

// Options configures a Session.
type Options struct {
	ID       string // generated when empty
	Width    int
	Height   int
	Seed     int64 // 0 = random
	Analyzer analyzer.Analyzer
	Store    IdeaStore // optional
}

// Session is one sketch in progress. Every frame and every state change
// happens under its lock; only the analyzer call runs outside it.
type Session struct {
	ID string

	mu       sync.Mutex
	studio   *sketch.Studio
	canvas   *render.Canvas
	seed     int64
	analyzer analyzer.Analyzer
	store    IdeaStore

	pending sync.WaitGroup // Submit goroutines
}

// NewSession creates a session in the seeding phase.
func NewSession(opts Options) (*Session, error) {
	if opts.Analyzer == nil {
		return nil, errors.New("session needs an analyzer")
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}

	rng := entropy.NewSeeded(opts.Seed)
	seed := rng.Seed()

	canvas, err := render.NewCanvas(opts.Width, opts.Height, seed+1)
	if err != nil {
		return nil, fmt.Errorf("new canvas: %w", err)
	}

	return &Session{
		ID:       opts.ID,
		studio:   sketch.NewStudio(float64(opts.Width), float64(opts.Height), rng, entropy.DefaultField(seed+2)),
		canvas:   canvas,
		seed:     seed,
		analyzer: opts.Analyzer,
		store:    opts.Store,
	}, nil
}

// Seed returns the seed the session's randomness was built from.
func (s *Session) Seed() int64 { return s.seed }

// AnalyzerName names the collaborator in use.
func (s *Session) AnalyzerName() string { return s.analyzer.Name() }

// Begin accepts an idea and locks input until it settles or fails.
func (s *Session) Begin(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.studio.Begin(text)
}

// Analyze calls the collaborator. It does not touch session state, so it
// runs without the lock while input is locked.
func (s *Session) Analyze(ctx context.Context, text string) (analyzer.Analysis, error) {
	a, err := s.analyzer.Analyze(ctx, text)
	if err != nil {
		return analyzer.Analysis{}, fmt.Errorf("analyze %q: %w", text, err)
	}
	return a, nil
}

// Resolve applies the collaborator's answer (or failure) to the in-flight idea.
func (s *Session) Resolve(a analyzer.Analysis, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.studio.Fail(err)
		return err
	}
	return s.studio.Apply(a.Intent, a.Vector)
}

// Submit runs Begin, then Analyze and Resolve in the background. The
// returned channel yields the outcome of the analysis once it is applied.
func (s *Session) Submit(ctx context.Context, text string) (<-chan error, error) {
	if err := s.Begin(text); err != nil {
		return nil, err
	}
	text = sketch.NormalizeIdea(text)

	done := make(chan error, 1)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		a, err := s.Analyze(ctx, text)
		done <- s.Resolve(a, err)
		close(done)
	}()
	return done, nil
}

// Wait blocks until every Submit has resolved.
func (s *Session) Wait() {
	s.pending.Wait()
}

// Step advances one frame: physics, particles, trail stamps, and
// persistence of newly committed ideas.
func (s *Session) Step() {
	s.mu.Lock()
	s.studio.Step()
	s.canvas.StampTrail(s.studio.Particles.Particles())
	committed := s.studio.DrainCommitted()
	s.mu.Unlock()

	for _, r := range committed {
		slog.Info("idea committed",
			"index", r.Index,
			"text", r.Text,
			"x", int(r.X), "y", int(r.Y),
			"distance", fmt.Sprintf("%.1f", r.Distance),
		)
		if s.store == nil {
			continue
		}
		if err := s.store.SaveIdea(context.Background(), s.ID, r); err != nil {
			slog.Error("save idea failed", "index", r.Index, "error", err)
		}
	}
}

// Settle steps until nothing is animating, up to limit frames. It reports
// the frames stepped and whether the sketch settled.
func (s *Session) Settle(limit int) (int, bool) {
	for i := 0; i < limit; i++ {
		if s.Settled() {
			return i, true
		}
		s.Step()
	}
	return limit, s.Settled()
}

// Settled reports whether input is idle: nothing analyzing, nothing moving.
func (s *Session) Settled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.studio.Settled()
}

// View returns a copy of the current state.
func (s *Session) View() sketch.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.studio.View()
}

// Ideas returns the committed trajectory.
func (s *Session) Ideas() []sketch.IdeaRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.studio.Trajectory.Records()
}

// Snapshot composes the artwork as the save action exports it.
func (s *Session) Snapshot() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canvas.Snapshot()
}

// Frame composes the live view, with a tooltip on the idea at hoverIndex
// (1-based; 0 for none).
func (s *Session) Frame(hoverIndex int) image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.studio.View()
	var hover *sketch.IdeaRecord
	if hoverIndex > 0 && hoverIndex <= len(v.Ideas) {
		hover = &v.Ideas[hoverIndex-1]
	}
	return s.canvas.Frame(v, hover)
}

// Export writes the artwork and the trajectory log into dir.
func (s *Session) Export(dir string) (render.Exported, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := render.Export(dir, s.canvas, s.studio.Trajectory.Records())
	if err != nil {
		return render.Exported{}, fmt.Errorf("export session %s: %w", s.ID, err)
	}
	slog.Info("session exported", "artwork", out.Artwork, "trajectory", out.Trajectory, "ideas", out.Ideas)
	return out, nil
}

// LogStats writes a one-line summary of the session.
func (s *Session) LogStats(frame uint64, fps int) {
	s.mu.Lock()
	st := s.studio
	phase, ideas, particles := st.Phase, st.Trajectory.Len(), st.Particles.Len()
	distance, locked := st.Trajectory.TotalDistance(), st.InputLocked()
	s.mu.Unlock()

	slog.Debug("sketch stats",
		"time", Elapsed(frame, fps),
		"phase", phase.String(),
		"ideas", ideas,
		"particles", particles,
		"distance", fmt.Sprintf("%.0f", distance),
		"input_locked", locked,
	)
}

// Attach makes eng drive this session: one Step per frame and a stats line
// every second.
func (s *Session) Attach(eng *Engine) {
	eng.OnFrame = func(uint64) { s.Step() }
	eng.OnSecond = func(frame uint64) { s.LogStats(frame, eng.FPS) }
}
