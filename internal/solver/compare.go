package solver

import (
	"errors"
	"fmt"
	"math"
)

// ErrLengthMismatch is returned when comparing vectors of different length.
var ErrLengthMismatch = errors.New("solver: vector length mismatch")

// Compare returns the cosine similarity of a and b. A zero-magnitude vector
// on either side yields 0.
func Compare(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
