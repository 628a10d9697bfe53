package analyzer

import (
	"context"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"unicode"
)

// LocalDims matches the width of the sentence embeddings the sketch was
// tuned for.
const LocalDims = 384

// spread is how many coordinates each feature lands on.
const spread = 8

// Local is an offline analyzer: a feature-hashing embedder plus keyword
// intent rules. It is deterministic, so equal ideas land on equal vectors.
type Local struct {
	dims int
}

// NewLocal creates a local analyzer producing dims-wide vectors.
func NewLocal(dims int) *Local {
	if dims <= 0 {
		dims = LocalDims
	}
	return &Local{dims: dims}
}

// Name implements Analyzer.
func (l *Local) Name() string { return "local" }

// Analyze implements Analyzer.
func (l *Local) Analyze(ctx context.Context, text string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	labels := ClassifyIntent(text)
	return Analysis{
		Intent: labels[0].Name,
		Labels: labels,
		Vector: l.Embed(text),
	}, nil
}

// Embed hashes word unigrams and character trigrams into a unit vector.
func (l *Local) Embed(text string) []float32 {
	v := make([]float32, l.dims)
	for _, f := range features(text) {
		for p := 0; p < spread; p++ {
			h := fnv.New64a()
			h.Write([]byte{byte(p)})
			h.Write([]byte(f))
			sum := h.Sum64()
			idx := int(sum % uint64(l.dims))
			if sum>>63 == 1 {
				v[idx] -= 1
			} else {
				v[idx] += 1
			}
		}
	}
	return normalize(v)
}

func features(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make([]string, 0, len(words)*4)
	for _, w := range words {
		out = append(out, "w:"+w)
		padded := []rune("^" + w + "$")
		for i := 0; i+3 <= len(padded); i++ {
			out = append(out, "c:"+string(padded[i:i+3]))
		}
	}
	return out
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	n := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= n
	}
	return v
}

var (
	questionStarts = []string{"what", "why", "how", "when", "where", "who", "which", "could", "should", "would", "is", "are", "can", "do", "does", "will"}
	challengeWords = []string{"but", "not", "no", "however", "wrong", "disagree", "fails", "fail", "never", "doubt", "problem", "risk", "flaw", "unless", "although"}
)

// ClassifyIntent ranks CandidateLabels for text with keyword rules.
// Scores sum to 1.
func ClassifyIntent(text string) []Label {
	lower := strings.ToLower(strings.TrimSpace(text))
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})

	scores := map[string]float64{
		CandidateLabels[0]: 1, // constructive argument is the prior
		CandidateLabels[1]: 0,
		CandidateLabels[2]: 0,
	}
	if strings.HasSuffix(lower, "?") {
		scores[CandidateLabels[2]] += 3
	}
	if len(words) > 0 && contains(questionStarts, words[0]) {
		scores[CandidateLabels[2]] += 1.5
	}
	for _, w := range words {
		if contains(challengeWords, w) || strings.HasSuffix(w, "n't") {
			scores[CandidateLabels[1]] += 1
		}
	}

	var total float64
	for _, s := range scores {
		total += s
	}
	labels := make([]Label, 0, len(scores))
	for _, name := range CandidateLabels {
		labels = append(labels, Label{Name: name, Score: scores[name] / total})
	}
	sort.SliceStable(labels, func(i, j int) bool { return labels[i].Score > labels[j].Score })
	return labels
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
