package render

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"

	"github.com/talgya/mindbike/internal/sketch"
)

// Export file names, as written by the save action.
const (
	ArtworkName    = "bicycle-for-the-mind.png"
	TrajectoryName = "idea-trajectory.txt"
)

// Exported lists the files written by Export.
type Exported struct {
	Artwork    string `json:"artwork"`
	Trajectory string `json:"trajectory"`
	Ideas      int    `json:"ideas"`
}

// Export writes the canvas snapshot and the trajectory log into dir.
func Export(dir string, c *Canvas, records []sketch.IdeaRecord) (Exported, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Exported{}, fmt.Errorf("create export dir: %w", err)
	}

	out := Exported{
		Artwork:    filepath.Join(dir, ArtworkName),
		Trajectory: filepath.Join(dir, TrajectoryName),
		Ideas:      len(records),
	}

	if err := gg.SavePNG(out.Artwork, c.Snapshot()); err != nil {
		return Exported{}, fmt.Errorf("save artwork: %w", err)
	}

	f, err := os.Create(out.Trajectory)
	if err != nil {
		return Exported{}, fmt.Errorf("create trajectory log: %w", err)
	}
	defer f.Close()
	if err := sketch.WriteLog(f, records); err != nil {
		return Exported{}, err
	}
	return out, f.Close()
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}
