// Package vad implements frame-by-frame voice activity detection for the
// scrive capture pipeline.
//
// A [Detector] wraps a frame-level speech [Scorer] (e.g., Silero VAD) and
// turns per-frame speech probabilities into a small temporal state machine:
// it accumulates speech and silence time, walks through pause states as
// silence grows, and reports when a recording should stop. Detection is
// synchronous by design: [Detector.Process] returns immediately, making it
// suitable for the real-time capture callback that gates recording.
//
// A Detector is not safe for concurrent use; the capture pipeline drives it
// from a single goroutine.
package vad

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is wrapped by all [Config.Validate] failures.
var ErrInvalidConfig = errors.New("vad: invalid config")

// Scorer scores a single audio frame for speech presence.
//
// Implementations wrap an inference backend (Silero ONNX, an energy model,
// a test double). The scorer may keep internal state across calls for the
// same stream; the detector never resets that state explicitly.
type Scorer interface {
	// Score returns the speech probability in [0, 1] for one frame of mono
	// float32 samples at the given rate. The frame always has exactly the
	// length the scorer requires — the caller handles padding and
	// truncation. Score runs inside the real-time capture path and must not
	// block on I/O.
	Score(frame []float32, sampleRate int) (float64, error)
}

// State classifies the detector's view of the stream after the latest frame.
type State int

const (
	// StateSilence means no recent speech; it is both the initial state and
	// the stop trigger once an utterance has been validated.
	StateSilence State = iota

	// StateSpeech means the latest frame scored above the speech threshold.
	StateSpeech

	// StateShortPause means silence has lasted at least the short threshold.
	StateShortPause

	// StateLongPause means silence has lasted at least the long threshold.
	StateLongPause
)

// String returns a short human-readable label for the state.
func (s State) String() string {
	switch s {
	case StateSpeech:
		return "speech"
	case StateShortPause:
		return "short-pause"
	case StateLongPause:
		return "long-pause"
	case StateSilence:
		return "silence"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Config holds the detection thresholds for a [Detector]. The zero value is
// not usable; start from [DefaultConfig] and validate with [Config.Validate].
type Config struct {
	// SampleRate is the audio sample rate in Hz. Frames passed to Process
	// must be captured at this rate.
	SampleRate int

	// FrameSize is the exact sample count the scorer requires per frame
	// (512 for Silero at 16 kHz). Shorter input is zero-padded, longer
	// input truncated, inside the detector.
	FrameSize int

	// SpeechThreshold is the probability above which a frame counts as
	// speech. Must lie strictly between 0 and 1.
	SpeechThreshold float64

	// SilenceShort, SilenceLong, and SilenceMax are the cumulative-silence
	// durations at which the detector enters short pause, long pause, and
	// silence respectively. They must be strictly increasing.
	SilenceShort time.Duration
	SilenceLong  time.Duration
	SilenceMax   time.Duration

	// MinSpeech is the cumulative speech duration required before an
	// utterance counts as validated. Guards against transient false
	// positives triggering an auto-save.
	MinSpeech time.Duration
}

// DefaultConfig returns the detection parameters tuned for 16 kHz dictation.
func DefaultConfig() Config {
	return Config{
		SampleRate:      16000,
		FrameSize:       512,
		SpeechThreshold: 0.5,
		SilenceShort:    800 * time.Millisecond,
		SilenceLong:     1500 * time.Millisecond,
		SilenceMax:      2500 * time.Millisecond,
		MinSpeech:       500 * time.Millisecond,
	}
}

// FrameDuration returns the wall-clock time one full frame represents.
func (c Config) FrameDuration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(c.FrameSize) * time.Second / time.Duration(c.SampleRate)
}

// Validate checks that c is internally coherent. It returns a joined error
// listing every violation, each wrapping [ErrInvalidConfig].
func (c Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...)))
	}

	if c.SampleRate <= 0 {
		fail("sample_rate %d must be positive", c.SampleRate)
	}
	if c.FrameSize <= 0 {
		fail("frame_size %d must be positive", c.FrameSize)
	}
	if c.SpeechThreshold <= 0 || c.SpeechThreshold >= 1 {
		fail("speech_threshold %.3f must lie in (0, 1)", c.SpeechThreshold)
	}
	if c.SilenceShort <= 0 {
		fail("silence_short %v must be positive", c.SilenceShort)
	}
	if c.SilenceShort >= c.SilenceLong {
		fail("silence thresholds must be strictly increasing: short %v >= long %v", c.SilenceShort, c.SilenceLong)
	}
	if c.SilenceLong >= c.SilenceMax {
		fail("silence thresholds must be strictly increasing: long %v >= max %v", c.SilenceLong, c.SilenceMax)
	}
	if c.MinSpeech < 0 {
		fail("min_speech %v must not be negative", c.MinSpeech)
	}

	return errors.Join(errs...)
}
