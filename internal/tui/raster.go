package tui

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/image/draw"
)

const halfBlock = "▀"

// Rasterize scales img onto cols x rows terminal cells. Each cell shows two
// vertically stacked pixels: the upper one as foreground of a half block,
// the lower one as its background.
func Rasterize(img image.Image, cols, rows int) string {
	if cols <= 0 || rows <= 0 {
		return ""
	}
	dst := image.NewRGBA(image.Rect(0, 0, cols, rows*2))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	var b strings.Builder
	for y := 0; y < rows; y++ {
		// Runs of identical cells share one styled span.
		runStart := 0
		for x := 1; x <= cols; x++ {
			if x < cols && sameCell(dst, x, runStart, y) {
				continue
			}
			top, bot := dst.RGBAAt(runStart, 2*y), dst.RGBAAt(runStart, 2*y+1)
			style := lipgloss.NewStyle().Foreground(hex(top)).Background(hex(bot))
			b.WriteString(style.Render(strings.Repeat(halfBlock, x-runStart)))
			runStart = x
		}
		if y < rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func sameCell(img *image.RGBA, x, ref, row int) bool {
	return img.RGBAAt(x, 2*row) == img.RGBAAt(ref, 2*row) &&
		img.RGBAAt(x, 2*row+1) == img.RGBAAt(ref, 2*row+1)
}

func hex(c color.RGBA) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
}

// CellToCanvas maps the centre of terminal cell (col, row) on a cols x rows
// grid to canvas coordinates.
func CellToCanvas(col, row, cols, rows int, width, height float64) (float64, float64) {
	return (float64(col) + 0.5) * width / float64(cols),
		(float64(row) + 0.5) * height / float64(rows)
}
