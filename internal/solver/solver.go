package solver

import (
	"errors"
	"fmt"
	"image"
)

// ErrNoCandidates is returned when Solve is called without options.
var ErrNoCandidates = errors.New("solver: no candidate images")

// Result is the outcome of ranking the options against a target.
type Result struct {
	// Answer is the 1-based index of the best option.
	Answer     int       `json:"answer"`
	Confidence float64   `json:"confidence"`
	Scores     []float64 `json:"scores"`
}

// Solve scores every option against target and picks the most similar one.
// Ties go to the lowest index.
func Solve(target image.Image, options []image.Image) (*Result, error) {
	if len(options) == 0 {
		return nil, ErrNoCandidates
	}

	targetFeat, err := describe(target)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}

	scores := make([]float64, len(options))
	best := 0
	for i, opt := range options {
		feat, err := describe(opt)
		if err != nil {
			return nil, fmt.Errorf("option %d: %w", i+1, err)
		}
		score, err := Compare(targetFeat[:], feat[:])
		if err != nil {
			return nil, fmt.Errorf("option %d: %w", i+1, err)
		}
		scores[i] = score
		if score > scores[best] {
			best = i
		}
	}

	return &Result{
		Answer:     best + 1,
		Confidence: scores[best],
		Scores:     scores,
	}, nil
}

func describe(img image.Image) (Features, error) {
	scaled, err := Preprocess(img)
	if err != nil {
		return Features{}, err
	}
	return ExtractFeatures(scaled)
}
