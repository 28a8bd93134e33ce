// Package energy provides a model-free [vad.Scorer] based on frame RMS
// energy. It is far less accurate than the Silero model but needs no model
// file, which makes it useful for tests and constrained deployments.
package energy

import (
	"math"

	"github.com/MrWong99/scrive/pkg/vad"
)

var _ vad.Scorer = (*Scorer)(nil)

// DefaultFloor is the RMS level treated as certain silence.
const DefaultFloor = 0.005

// DefaultCeiling is the RMS level treated as certain speech.
const DefaultCeiling = 0.12

// Scorer maps frame RMS energy linearly onto [0, 1] between a silence floor
// and a speech ceiling. It is stateless and safe for concurrent use.
type Scorer struct {
	// Floor is the RMS below which the score is 0. Defaults to
	// DefaultFloor when zero.
	Floor float64

	// Ceiling is the RMS above which the score is 1. Defaults to
	// DefaultCeiling when zero.
	Ceiling float64
}

// Score returns the frame's normalized RMS energy.
func (s *Scorer) Score(frame []float32, _ int) (float64, error) {
	if len(frame) == 0 {
		return 0, nil
	}
	var sum float64
	for _, v := range frame {
		sum += float64(v) * float64(v)
	}
	rms := math.Sqrt(sum / float64(len(frame)))

	floor, ceiling := s.Floor, s.Ceiling
	if floor <= 0 {
		floor = DefaultFloor
	}
	if ceiling <= floor {
		ceiling = DefaultCeiling
	}
	switch {
	case rms <= floor:
		return 0, nil
	case rms >= ceiling:
		return 1, nil
	default:
		return (rms - floor) / (ceiling - floor), nil
	}
}
