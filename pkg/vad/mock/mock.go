// Package mock provides test doubles for the vad package interfaces.
//
// Use Scorer to script per-frame probabilities and inspect the frames that
// were submitted for scoring.
//
// Example:
//
//	sc := &mock.Scorer{Probabilities: []float64{0.9, 0.9, 0.1}}
//	det, _ := vad.New(vad.DefaultConfig(), sc)
package mock

import (
	"sync"

	"github.com/MrWong99/scrive/pkg/vad"
)

// ScoreCall records a single invocation of Scorer.Score.
type ScoreCall struct {
	// Frame is a copy of the samples passed to Score.
	Frame []float32

	// SampleRate is the rate passed to Score.
	SampleRate int
}

// Scorer is a scripted implementation of vad.Scorer.
type Scorer struct {
	mu sync.Mutex

	// Probabilities are returned by successive Score calls in order. When
	// the script is exhausted the last value repeats; an empty script
	// returns 0.
	Probabilities []float64

	// ScoreErr, if non-nil, is returned by every Score call.
	ScoreErr error

	// ScoreCalls records every call to Score in order.
	ScoreCalls []ScoreCall

	next int
}

// Score records the call and returns the next scripted probability.
func (s *Scorer) Score(frame []float32, sampleRate int) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]float32, len(frame))
	copy(cp, frame)
	s.ScoreCalls = append(s.ScoreCalls, ScoreCall{Frame: cp, SampleRate: sampleRate})

	if s.ScoreErr != nil {
		return 0, s.ScoreErr
	}
	if len(s.Probabilities) == 0 {
		return 0, nil
	}
	i := s.next
	if i >= len(s.Probabilities) {
		i = len(s.Probabilities) - 1
	} else {
		s.next++
	}
	return s.Probabilities[i], nil
}

// Reset clears all recorded calls and rewinds the script. Thread-safe.
func (s *Scorer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ScoreCalls = nil
	s.next = 0
}

// Ensure Scorer implements vad.Scorer at compile time.
var _ vad.Scorer = (*Scorer)(nil)
