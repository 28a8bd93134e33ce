// Package silero provides a [vad.Scorer] backed by the Silero VAD ONNX model
// via the silero-vad-go bindings.
//
// The bindings expose stream events (speech started / speech ended) rather
// than the model's raw per-frame probability, so this scorer saturates:
// frames inside a detected speech span score 1.0 and frames outside score
// 0.0. That is exactly what the downstream threshold comparison needs; the
// model's own threshold is configured to match the detector's.
package silero

import (
	"fmt"

	"github.com/streamer45/silero-vad-go/speech"

	"github.com/MrWong99/scrive/pkg/vad"
)

// Ensure Scorer implements vad.Scorer at compile time.
var _ vad.Scorer = (*Scorer)(nil)

// Scorer scores frames with the Silero VAD model. It is stateful — the model
// keeps recurrent state across frames of one stream — and must not be shared
// across concurrent streams.
type Scorer struct {
	det        *speech.Detector
	sampleRate int
	inSpeech   bool
}

// Config holds the parameters for loading the Silero model.
type Config struct {
	// ModelPath is the path to silero_vad.onnx.
	ModelPath string

	// SampleRate must match the stream fed to Score (16000 or 8000).
	SampleRate int

	// Threshold is the model-internal speech probability threshold used to
	// emit start/end events. Keep it equal to the detector's
	// SpeechThreshold so both layers agree on what counts as speech.
	Threshold float32
}

// New loads the Silero VAD model and returns a ready Scorer.
func New(cfg Config) (*Scorer, error) {
	det, err := speech.NewDetector(speech.DetectorConfig{
		ModelPath:  cfg.ModelPath,
		SampleRate: cfg.SampleRate,
		Threshold:  cfg.Threshold,
	})
	if err != nil {
		return nil, fmt.Errorf("silero: create detector: %w", err)
	}
	return &Scorer{det: det, sampleRate: cfg.SampleRate}, nil
}

// Score feeds one frame to the model and returns 1.0 while the model
// considers the stream inside a speech span, 0.0 otherwise.
func (s *Scorer) Score(frame []float32, sampleRate int) (float64, error) {
	if sampleRate != s.sampleRate {
		return 0, fmt.Errorf("silero: frame sample rate %d does not match model rate %d", sampleRate, s.sampleRate)
	}

	event, err := s.det.DetectStreamFrame(frame)
	if err != nil {
		return 0, fmt.Errorf("silero: detect frame: %w", err)
	}
	if event != nil {
		if event.IsStart {
			s.inSpeech = true
		}
		if event.IsEnd {
			s.inSpeech = false
		}
	}
	if s.inSpeech {
		return 1, nil
	}
	return 0, nil
}

// Reset clears the model's recurrent state between recording sessions.
func (s *Scorer) Reset() error {
	s.inSpeech = false
	if err := s.det.Reset(); err != nil {
		return fmt.Errorf("silero: reset: %w", err)
	}
	return nil
}

// Close releases the ONNX session. The scorer must not be used after Close.
func (s *Scorer) Close() error {
	if err := s.det.Destroy(); err != nil {
		return fmt.Errorf("silero: destroy: %w", err)
	}
	return nil
}
