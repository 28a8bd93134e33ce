package vad

import (
	"fmt"
	"time"

	"github.com/MrWong99/scrive/pkg/audio"
)

// Result is the outcome of processing one frame.
type Result struct {
	// State is the detector state after this frame.
	State State

	// Probability is the scorer's speech probability for this frame.
	Probability float64

	// ValidSpeech reports whether cumulative speech has met
	// [Config.MinSpeech] at any point since the last Reset.
	ValidSpeech bool
}

// Detector is the stateful frame-by-frame voice activity classifier.
//
// Construct one per recording session with [New]; call [Detector.Reset]
// before every new recording attempt. State across sessions without a Reset
// is undefined.
type Detector struct {
	cfg    Config
	scorer Scorer

	state       State
	silence     time.Duration
	speech      time.Duration
	validSpeech bool

	// scratch holds the normalized copy handed to the scorer, so Process
	// never mutates the caller's frame and never allocates per call.
	scratch []float32
}

// New creates a Detector for cfg. It fails fast on an invalid configuration
// and never errors at runtime for malformed frames — those are normalized.
func New(cfg Config, scorer Scorer) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if scorer == nil {
		return nil, fmt.Errorf("%w: scorer must not be nil", ErrInvalidConfig)
	}
	return &Detector{
		cfg:     cfg,
		scorer:  scorer,
		state:   StateSilence,
		scratch: make([]float32, cfg.FrameSize),
	}, nil
}

// Config returns the configuration the detector was built with.
func (d *Detector) Config() Config { return d.cfg }

// Process scores one frame and advances the detector state.
//
// frameDuration is the wall-clock time the frame represents
// (FrameSize / SampleRate for a full frame). The frame is zero-padded or
// truncated to [Config.FrameSize] and peak-normalized (a no-op for pure
// silence) before scoring, so behavior is reproducible regardless of how the
// caller batches samples. Scorer failures propagate untouched; the detector
// performs no retry.
func (d *Detector) Process(frame []float32, frameDuration time.Duration) (Result, error) {
	n := copy(d.scratch, frame)
	for i := n; i < len(d.scratch); i++ {
		d.scratch[i] = 0
	}
	audio.Normalize(d.scratch)

	prob, err := d.scorer.Score(d.scratch, d.cfg.SampleRate)
	if err != nil {
		return Result{}, err
	}

	if prob > d.cfg.SpeechThreshold {
		d.silence = 0
		d.speech += frameDuration
		d.state = StateSpeech
		if d.speech >= d.cfg.MinSpeech {
			d.validSpeech = true
		}
	} else {
		// Any non-speech frame clears the speech accumulator, so validation
		// restarts from zero after every dip below the threshold.
		d.speech = 0
		d.silence += frameDuration
		d.updateSilenceState()
	}

	return Result{State: d.state, Probability: prob, ValidSpeech: d.validSpeech}, nil
}

// updateSilenceState derives the state from accumulated silence, longest
// threshold first. Below the short threshold the previous state is kept, so
// brief inter-word gaps never downgrade an ongoing utterance.
func (d *Detector) updateSilenceState() {
	switch {
	case d.silence >= d.cfg.SilenceMax:
		d.state = StateSilence
	case d.silence >= d.cfg.SilenceLong:
		d.state = StateLongPause
	case d.silence >= d.cfg.SilenceShort:
		d.state = StateShortPause
	}
}

// State returns the state after the most recently processed frame.
func (d *Detector) State() State { return d.state }

// ValidSpeech reports whether a validated utterance has been observed since
// the last Reset. Once true it stays true until Reset.
func (d *Detector) ValidSpeech() bool { return d.validSpeech }

// ShouldStop reports whether accumulated silence has reached
// [Config.SilenceMax]. The detector reports this unconditionally; the
// recording session additionally requires a validated utterance before
// acting on it.
func (d *Detector) ShouldStop() bool { return d.state == StateSilence }

// Reset returns the detector to its initial state: silence, zeroed
// accumulators, no validated speech. Call it at the start of every new
// recording attempt.
func (d *Detector) Reset() {
	d.state = StateSilence
	d.silence = 0
	d.speech = 0
	d.validSpeech = false
}
