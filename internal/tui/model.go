// Package tui is the interactive terminal front end: a half-block render of
// the live canvas, an idea prompt, and save/copy shortcuts.
package tui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/talgya/mindbike/internal/analyzer"
	"github.com/talgya/mindbike/internal/engine"
	"github.com/talgya/mindbike/internal/render"
	"github.com/talgya/mindbike/internal/sketch"
)

// chromeLines is the space below the canvas: status, tooltip, input, help.
const chromeLines = 4

var (
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236"))
	phaseStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	tooltipStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("255"))
	noteStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type frameMsg time.Time

type analyzedMsg struct {
	text     string
	analysis analyzer.Analysis
	err      error
}

type exportedMsg struct {
	out render.Exported
	err error
}

type copiedMsg struct {
	ideas int
	err   error
}

// Model drives one session from the terminal.
type Model struct {
	ctx     context.Context
	sess    *engine.Session
	eng     *engine.Engine
	saveDir string

	input  textinput.Model
	width  int
	height int
	hover  int // 1-based idea index under the pointer; 0 for none

	note    string
	noteErr bool

	copyText func(string) error
}

// New creates the model. The engine's frame callbacks must already be
// attached to sess; the model advances the engine itself, one frame per tick.
func New(ctx context.Context, sess *engine.Session, eng *engine.Engine, saveDir string) Model {
	ti := textinput.New()
	ti.Placeholder = sketch.PhaseSeeding.Prompt()
	ti.CharLimit = 200
	ti.Prompt = "> "
	ti.Focus()

	return Model{
		ctx:      ctx,
		sess:     sess,
		eng:      eng,
		saveDir:  saveDir,
		input:    ti,
		copyText: clipboard.WriteAll,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.tick())
}

func (m Model) tick() tea.Cmd {
	d := m.eng.Interval()
	if d <= 0 {
		d = 100 * time.Millisecond
	}
	return tea.Tick(d, func(t time.Time) tea.Msg { return frameMsg(t) })
}

// Update handles input events and advances the sketch.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = max(msg.Width-len(m.input.Prompt)-1, 10)
		return m, nil

	case frameMsg:
		if !m.eng.Paused() {
			m.eng.Advance()
		}
		m.syncInput()
		return m, m.tick()

	case analyzedMsg:
		if err := m.sess.Resolve(msg.analysis, msg.err); err != nil {
			m.setError(describe(err))
		} else {
			m.setNote(fmt.Sprintf("%s: %q", msg.analysis.Intent, msg.text))
		}
		m.syncInput()
		return m, nil

	case exportedMsg:
		if msg.err != nil {
			m.setError(fmt.Sprintf("save failed: %v", msg.err))
		} else {
			m.setNote(fmt.Sprintf("saved %s and %s (%d ideas)", msg.out.Artwork, msg.out.Trajectory, msg.out.Ideas))
		}
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.setError(fmt.Sprintf("copy failed: %v", msg.err))
		} else {
			m.setNote(fmt.Sprintf("copied %d ideas to the clipboard", msg.ideas))
		}
		return m, nil

	case tea.MouseMsg:
		m.hover = m.hoverAt(msg.X, msg.Y)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyCtrlS:
			return m, m.export()
		case tea.KeyCtrlY:
			return m, m.copyLog()
		case tea.KeyCtrlP:
			if !m.eng.Paused() {
				m.eng.SetSpeed(0)
				m.setNote("paused")
			} else {
				m.eng.SetSpeed(1)
				m.setNote("resumed")
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if err := m.sess.Begin(text); err != nil {
		m.setError(describe(err))
		return m, nil
	}
	text = sketch.NormalizeIdea(text)
	m.input.Reset()
	m.input.Blur()
	m.setNote(fmt.Sprintf("thinking about %q...", text))

	ctx, sess := m.ctx, m.sess
	return m, func() tea.Msg {
		a, err := sess.Analyze(ctx, text)
		return analyzedMsg{text: text, analysis: a, err: err}
	}
}

func (m Model) export() tea.Cmd {
	sess, dir := m.sess, m.saveDir
	return func() tea.Msg {
		out, err := sess.Export(dir)
		return exportedMsg{out: out, err: err}
	}
}

func (m Model) copyLog() tea.Cmd {
	ideas, copyText := m.sess.Ideas(), m.copyText
	return func() tea.Msg {
		var b strings.Builder
		if err := sketch.WriteLog(&b, ideas); err != nil {
			return copiedMsg{err: err}
		}
		return copiedMsg{ideas: len(ideas), err: copyText(b.String())}
	}
}

// syncInput enables the prompt only while the sketch accepts ideas.
func (m *Model) syncInput() {
	v := m.sess.View()
	m.input.Placeholder = v.Phase.Prompt()
	switch {
	case v.InputLocked && m.input.Focused():
		m.input.Blur()
	case !v.InputLocked && !m.input.Focused():
		m.input.Focus()
	}
}

func (m Model) canvasRows() int {
	return max(m.height-chromeLines, 1)
}

// hoverAt returns the idea under terminal cell (x, y), or 0.
func (m Model) hoverAt(x, y int) int {
	rows := m.canvasRows()
	if m.width <= 0 || x < 0 || y < 0 || x >= m.width || y >= rows {
		return 0
	}
	v := m.sess.View()
	cx, cy := CellToCanvas(x, y, m.width, rows, v.Width, v.Height)
	// A cell may be wider than the hover radius; accept anything inside it.
	radius := math.Max(sketch.HoverRadius, math.Max(v.Width/float64(m.width), v.Height/float64(rows)))
	if r, ok := sketch.Nearest(v.Ideas, cx, cy, radius); ok {
		return r.Index
	}
	return 0
}

func (m *Model) setNote(s string) {
	m.note, m.noteErr = s, false
}

func (m *Model) setError(s string) {
	m.note, m.noteErr = s, true
}

func describe(err error) string {
	switch {
	case errors.Is(err, sketch.ErrEmptyIdea):
		return "type an idea first"
	case errors.Is(err, sketch.ErrInputLocked):
		return "wait for the bicycle to settle"
	case errors.Is(err, analyzer.ErrNotReady):
		return "the analyzer is not ready yet; try again in a moment"
	}
	return err.Error()
}

// View renders the canvas and the chrome below it.
func (m Model) View() string {
	if m.width == 0 {
		return "starting..."
	}
	v := m.sess.View()

	var b strings.Builder
	b.WriteString(Rasterize(m.sess.Frame(m.hover), m.width, m.canvasRows()))
	b.WriteByte('\n')

	status := fmt.Sprintf(" %s  %s ideas  %s px traveled  %s particles  %s ",
		phaseStyle.Render(v.Phase.String()),
		humanize.Comma(int64(len(v.Ideas))),
		humanize.Comma(int64(math.Round(sketch.TotalDistance(v.Ideas)))),
		humanize.Comma(int64(len(v.Particles))),
		engine.Elapsed(v.Frame, m.eng.FPS),
	)
	if m.eng.Paused() {
		status += " paused "
	}
	b.WriteString(statusStyle.Width(m.width).Render(status))
	b.WriteByte('\n')

	switch {
	case m.hover > 0 && m.hover <= len(v.Ideas):
		r := v.Ideas[m.hover-1]
		b.WriteString(tooltipStyle.Render(truncate(fmt.Sprintf(" %s (%s) ", sketch.FormatLine(r), r.Intent), m.width)))
	case m.noteErr:
		b.WriteString(errorStyle.Render(truncate(m.note, m.width)))
	default:
		b.WriteString(noteStyle.Render(truncate(m.note, m.width)))
	}
	b.WriteByte('\n')

	b.WriteString(m.input.View())
	b.WriteByte('\n')
	b.WriteString(helpStyle.Render(truncate("enter submit · ctrl+s save · ctrl+y copy log · ctrl+p pause · ctrl+c quit", m.width)))
	return b.String()
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}
