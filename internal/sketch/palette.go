package sketch

import (
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/talgya/mindbike/internal/entropy"
)

// White is the particle color used before any idea has colored the palette.
var White = colorful.Color{R: 1, G: 1, B: 1}

// Palette holds the most recent idea colors, newest first.
type Palette struct {
	colors []colorful.Color
	max    int
}

// NewPalette creates an empty palette holding at most max colors.
func NewPalette(max int) *Palette {
	if max < 1 {
		max = 1
	}
	return &Palette{max: max}
}

// Reset replaces the palette contents with a single color.
func (p *Palette) Reset(c colorful.Color) {
	p.colors = append(p.colors[:0], c)
}

// Push adds c as the newest color, evicting the oldest on overflow.
func (p *Palette) Push(c colorful.Color) {
	p.colors = append(p.colors, colorful.Color{})
	copy(p.colors[1:], p.colors)
	p.colors[0] = c
	if len(p.colors) > p.max {
		p.colors = p.colors[:p.max]
	}
}

// Len returns the number of colors held.
func (p *Palette) Len() int { return len(p.colors) }

// Colors returns a copy of the palette, newest first.
func (p *Palette) Colors() []colorful.Color {
	out := make([]colorful.Color, len(p.colors))
	copy(out, p.colors)
	return out
}

// Mix samples a particle color: white when empty, the only color when there
// is one, otherwise a blend of two distinct entries.
func (p *Palette) Mix(src entropy.Source) colorful.Color {
	switch len(p.colors) {
	case 0:
		return White
	case 1:
		return p.colors[0]
	}
	n := len(p.colors)
	i := entropy.Index(src, n)
	j := entropy.Index(src, n-1)
	if j >= i {
		j++
	}
	t := entropy.Range(src, BlendMin, BlendMax)
	return p.colors[i].BlendRgb(p.colors[j], t).Clamped()
}

// ColorFromVector derives an idea color from three fixed embedding coordinates,
// mapping [-ColorSpan, ColorSpan] onto the full channel range.
func ColorFromVector(v []float32) colorful.Color {
	return colorful.Color{
		R: channel(v[ChannelR]),
		G: channel(v[ChannelG]),
		B: channel(v[ChannelB]),
	}
}

func channel(x float32) float64 {
	c := (float64(x) + ColorSpan) / (2 * ColorSpan)
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
