// Package render draws the sketch: a live frame, the persistent trail layer
// the particles stamp into, and the PNG/text export.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/talgya/mindbike/internal/entropy"
	"github.com/talgya/mindbike/internal/sketch"
)

// Background is the night-sky fill behind everything.
var Background = color.RGBA{R: 10, G: 10, B: 20, A: 255}

const (
	starCount      = 500
	nodeAlpha      = 120
	nodeHoverAlpha = 255
	tooltipWidth   = 200.0
	tooltipPadding = 10.0
	tooltipHeight  = 80.0
)

type star struct {
	x, y, size float64
	alpha      uint8
}

// Canvas owns the persistent layers of one session.
type Canvas struct {
	width, height int

	base  *image.RGBA // background + starfield, drawn once
	trail *gg.Context // accumulates particle stamps; transparent elsewhere
	face  font.Face
}

// NewCanvas creates a canvas with a starfield derived from seed.
func NewCanvas(width, height int, seed int64) (*Canvas, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", width, height)
	}

	ttf, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	face := truetype.NewFace(ttf, &truetype.Options{
		Size:    12,
		DPI:     72,
		Hinting: font.HintingFull,
	})

	c := &Canvas{
		width:  width,
		height: height,
		trail:  gg.NewContext(width, height),
		face:   face,
	}
	c.base = c.drawBase(seed)
	return c, nil
}

func (c *Canvas) drawBase(seed int64) *image.RGBA {
	src := entropy.NewSeeded(seed)
	dc := gg.NewContext(c.width, c.height)
	dc.SetColor(Background)
	dc.Clear()
	for i := 0; i < starCount; i++ {
		s := star{
			x:     entropy.Range(src, 0, float64(c.width)),
			y:     entropy.Range(src, 0, float64(c.height)),
			size:  entropy.Range(src, 1, 3),
			alpha: uint8(entropy.Range(src, 100, 255)),
		}
		dc.SetRGBA255(255, 255, 255, int(s.alpha))
		dc.DrawCircle(s.x, s.y, s.size/2)
		dc.Fill()
	}
	return dc.Image().(*image.RGBA)
}

// StampTrail leaves each particle's faint permanent mark on the trail layer.
func (c *Canvas) StampTrail(particles []sketch.Particle) {
	for _, p := range particles {
		r, g, b := p.Color.RGB255()
		c.trail.SetRGBA255(int(r), int(g), int(b), int(p.Kind.TrailAlpha()))
		c.trail.DrawCircle(p.X, p.Y, p.Kind.TrailSize()/2)
		c.trail.Fill()
	}
}

// Trail returns the trail layer alone.
func (c *Canvas) Trail() image.Image { return c.trail.Image() }

// Snapshot composes background, stars, and trail: the artwork without the
// live bicycle, particles, or nodes.
func (c *Canvas) Snapshot() *image.RGBA {
	dst := image.NewRGBA(c.base.Bounds())
	draw.Draw(dst, dst.Bounds(), c.base, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), c.trail.Image(), image.Point{}, draw.Over)
	return dst
}

// Frame composes the full live view. hover, when non-nil, gets a tooltip.
func (c *Canvas) Frame(v sketch.View, hover *sketch.IdeaRecord) image.Image {
	dc := gg.NewContextForRGBA(c.Snapshot())
	dc.SetFontFace(c.face)

	c.drawNodes(dc, v.Ideas, hover)
	for _, p := range v.Particles {
		drawParticle(dc, p)
	}
	if v.Bicycle != nil {
		drawBicycle(dc, v.Bicycle)
	}
	if hover != nil {
		c.drawTooltip(dc, *hover)
	}
	return dc.Image()
}

func (c *Canvas) drawNodes(dc *gg.Context, ideas []sketch.IdeaRecord, hover *sketch.IdeaRecord) {
	for _, idea := range ideas {
		alpha := nodeAlpha
		if hover != nil && hover.Index == idea.Index {
			alpha = nodeHoverAlpha
		}
		dc.SetRGBA255(255, 255, 0, alpha)
		dc.DrawCircle(idea.X, idea.Y, sketch.HoverRadius/2)
		dc.Fill()
	}
}

func drawParticle(dc *gg.Context, p sketch.Particle) {
	r, g, b := p.Color.RGB255()
	dc.SetRGBA255(int(r), int(g), int(b), int(p.Alpha()))
	dc.DrawCircle(p.X, p.Y, p.Kind.Size()/2)
	dc.Fill()
}

func drawBicycle(dc *gg.Context, b *sketch.Bicycle) {
	const (
		seatHeight   = -25.0
		handleHeight = -35.0
	)
	wr, wb := b.WheelRadius, b.WheelBase

	dc.Push()
	defer dc.Pop()
	dc.Translate(b.X, b.Y)
	dc.Rotate(b.Angle)
	dc.SetRGB255(255, 255, 255)
	dc.SetLineWidth(4)

	for _, hub := range []float64{-wb, wb} {
		dc.DrawCircle(hub, 0, wr)
		dc.Stroke()
		dc.DrawLine(hub, 0, hub+math.Cos(b.WheelRotation)*wr, math.Sin(b.WheelRotation)*wr)
		dc.Stroke()
	}

	dc.DrawLine(-wb, 0, -5, seatHeight)
	dc.DrawLine(wb, 0, -5, seatHeight)
	dc.DrawLine(0, seatHeight, -10, seatHeight)
	dc.DrawLine(wb, 0, wb-5, handleHeight)
	dc.DrawLine(wb-15, handleHeight, wb+5, handleHeight)
	dc.Stroke()
}

func (c *Canvas) drawTooltip(dc *gg.Context, idea sketch.IdeaRecord) {
	x := idea.X + 15
	y := idea.Y - 20
	w := tooltipWidth + tooltipPadding*2

	dc.SetRGBA255(0, 0, 0, 180)
	dc.DrawRoundedRectangle(x, y, w, tooltipHeight, 5)
	dc.FillPreserve()
	dc.SetRGBA255(255, 255, 255, 150)
	dc.SetLineWidth(1)
	dc.Stroke()

	dc.SetRGB255(255, 255, 255)
	dc.DrawStringWrapped(idea.Text, x+tooltipPadding, y+tooltipPadding, 0, 0, tooltipWidth, 1.2, gg.AlignLeft)
}
