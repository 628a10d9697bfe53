package sketch

import (
	"bufio"
	"fmt"
	"io"
	"math"
)

// IdeaRecord is one committed idea and where it took the bicycle.
type IdeaRecord struct {
	Index    int     `json:"index"` // 1-based position in the trajectory
	Text     string  `json:"text"`
	Intent   string  `json:"intent,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Distance float64 `json:"distance"` // path length traveled to reach it
	Frame    uint64  `json:"frame"`
}

// Trajectory is the append-only idea history.
type Trajectory struct {
	records []IdeaRecord
}

// Append commits r, assigning its index, and returns the stored record.
func (t *Trajectory) Append(r IdeaRecord) IdeaRecord {
	r.Index = len(t.records) + 1
	t.records = append(t.records, r)
	return r
}

// Len returns the number of committed ideas.
func (t *Trajectory) Len() int { return len(t.records) }

// Records returns a copy of the history.
func (t *Trajectory) Records() []IdeaRecord {
	out := make([]IdeaRecord, len(t.records))
	copy(out, t.records)
	return out
}

// TotalDistance sums the distance of every committed idea.
func (t *Trajectory) TotalDistance() float64 {
	return TotalDistance(t.records)
}

// TotalDistance sums the distance of records.
func TotalDistance(records []IdeaRecord) float64 {
	var sum float64
	for _, r := range records {
		sum += r.Distance
	}
	return sum
}

// Nearest returns the most recent idea within radius of (x, y).
func Nearest(records []IdeaRecord, x, y, radius float64) (IdeaRecord, bool) {
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		if math.Hypot(r.X-x, r.Y-y) < radius {
			return r, true
		}
	}
	return IdeaRecord{}, false
}

// FormatLine renders one trajectory log line.
func FormatLine(r IdeaRecord) string {
	return fmt.Sprintf("%d. [%d, %d] (%d px) - %s",
		r.Index, round(r.X), round(r.Y), round(r.Distance), r.Text)
}

// WriteLog writes the plain-text trajectory log, one line per idea.
func WriteLog(w io.Writer, records []IdeaRecord) error {
	bw := bufio.NewWriter(w)
	for _, r := range records {
		if _, err := fmt.Fprintln(bw, FormatLine(r)); err != nil {
			return fmt.Errorf("write trajectory line %d: %w", r.Index, err)
		}
	}
	return bw.Flush()
}

func round(v float64) int64 {
	return int64(math.Round(v))
}
