package faceid

import (
	"github.com/kozaktomas/face-verifier/internal/database"
)

// DefaultThreshold is the largest euclidean distance still accepted as the
// same person for 128-dimensional dlib descriptors.
const DefaultThreshold = 0.6

// Distance returns the euclidean distance between a and b.
// Embeddings of different or zero length are infinitely far apart.
func Distance(a, b Embedding) float64 {
	return database.EuclideanDistance(a, b)
}

// Matcher applies a distance threshold.
type Matcher struct {
	Threshold float64
}

// NewMatcher creates a matcher; non-positive thresholds select DefaultThreshold.
func NewMatcher(threshold float64) Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return Matcher{Threshold: threshold}
}

// IsMatch reports whether d is within the threshold (inclusive).
func (m Matcher) IsMatch(d float64) bool {
	return d <= m.Threshold
}

// Compare returns the distance between a and b and whether it matches.
func (m Matcher) Compare(a, b Embedding) (float64, bool) {
	d := Distance(a, b)
	return d, m.IsMatch(d)
}
