// Package record implements the recording session lifecycle: it pulls frames
// from an audio source, classifies them with a voice activity detector, and
// finalizes the captured audio into a WAV artifact once the speaker is done.
//
// A Session is single-use. The typical flow is
//
//	sess, _ := record.New(record.Config{Source: src, Detector: det, Writer: w})
//	if err := sess.Start(); err != nil { ... }
//	if err := sess.Wait(ctx); err != nil { ... }
//	art, err := sess.Finalize()
package record

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrWong99/scrive/pkg/audio"
	"github.com/MrWong99/scrive/pkg/vad"
	"github.com/MrWong99/scrive/pkg/wav"
)

// State is the lifecycle state of a Session.
type State int

const (
	// StateIdle is the state before Start.
	StateIdle State = iota

	// StateRecording means the session is subscribed and ingesting frames.
	StateRecording

	// StateFinalizing means Finalize is writing the artifact.
	StateFinalizing

	// StateDone means the artifact was written successfully.
	StateDone

	// StateFailed means the source or scorer failed mid-recording.
	// Finalize may still be called to salvage the audio captured so far.
	StateFailed
)

// String returns a short human-readable label for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Status is the advisory per-frame feedback emitted to Config.OnStatus.
// It is never consulted for the stop decision.
type Status struct {
	// State is the detector state after the frame.
	State vad.State

	// Probability is the scorer's speech probability for the frame.
	Probability float64

	// Peak is the frame's peak amplitude before normalization, for level
	// metering.
	Peak float32

	// ValidSpeech reports whether the session has heard a validated
	// utterance so far.
	ValidSpeech bool
}

// Artifact describes the written recording.
type Artifact struct {
	// Path is where the WAV file was written.
	Path string

	// Duration is the wall-clock time between Start and the stop of frame
	// delivery.
	Duration time.Duration
}

// Config holds the collaborators for a Session.
type Config struct {
	// Source delivers audio frames. Required.
	Source audio.Source

	// Detector classifies frames. Required; the session calls Reset on it
	// at Start, so a detector may be reused across consecutive sessions.
	Detector *vad.Detector

	// Writer persists the finalized samples. Required.
	Writer wav.Writer

	// Logger receives session lifecycle events. Defaults to slog.Default.
	Logger *slog.Logger

	// OnStatus, if set, is called from the audio delivery goroutine after
	// every classified frame. It must return quickly.
	OnStatus func(Status)
}

// Session records one utterance from start to finalized artifact.
//
// Frame ingestion runs on the source's delivery goroutine; RequestStop, Wait
// and Finalize are safe to call from any other goroutine.
type Session struct {
	cfg Config
	log *slog.Logger

	started    atomic.Bool
	manualStop atomic.Bool

	// stopped is closed exactly once when frame delivery ends, after
	// failure and stopTime are set. Control-side reads of the buffer and
	// those fields are ordered by receiving on it.
	stopped  chan struct{}
	stopOnce sync.Once
	failure  error
	stopTime time.Time

	mu     sync.Mutex
	state  State
	buf    []float32
	window []float32

	sub       audio.Subscription
	startTime time.Time
}

// New validates cfg and returns a Session in StateIdle.
func New(cfg Config) (*Session, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("record: config: source must not be nil")
	}
	if cfg.Detector == nil {
		return nil, fmt.Errorf("record: config: detector must not be nil")
	}
	if cfg.Writer == nil {
		return nil, fmt.Errorf("record: config: writer must not be nil")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		cfg:     cfg,
		log:     log,
		stopped: make(chan struct{}),
		state:   StateIdle,
	}, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the failure that ended the recording, or nil if it stopped
// cleanly. Only meaningful once Wait has returned.
func (s *Session) Err() error {
	select {
	case <-s.stopped:
		return s.failure
	default:
		return nil
	}
}

// Start resets the detector, subscribes to the source and begins ingesting
// frames. It returns ErrSessionUsed on a second call.
func (s *Session) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrSessionUsed
	}

	s.cfg.Detector.Reset()
	dcfg := s.cfg.Detector.Config()

	s.mu.Lock()
	s.state = StateRecording
	s.buf = s.buf[:0]
	s.window = s.window[:0]
	s.mu.Unlock()

	s.startTime = time.Now()
	sub, err := s.cfg.Source.Subscribe(audio.StreamConfig{
		SampleRate: dcfg.SampleRate,
		Channels:   1,
		FrameSize:  dcfg.FrameSize,
	}, s.ingest)
	if err != nil {
		s.setState(StateFailed)
		s.stop(fmt.Errorf("record: subscribe: %w", err), "subscribe failed")
		return fmt.Errorf("record: subscribe: %w", err)
	}
	s.sub = sub

	s.log.Info("recording started",
		slog.Int("sample_rate", dcfg.SampleRate),
		slog.Int("frame_size", dcfg.FrameSize))
	return nil
}

// ingest is the source frame callback. Returning false ends delivery.
func (s *Session) ingest(samples []float32, status audio.Status) bool {
	if s.manualStop.Load() {
		s.stop(nil, "manual")
		return false
	}
	if status.InputOverflow {
		s.log.Warn("input overflow, samples may be dropped")
	}

	s.mu.Lock()
	s.buf = append(s.buf, samples...)
	s.window = append(s.window, samples...)

	dcfg := s.cfg.Detector.Config()
	if len(s.window) < dcfg.FrameSize {
		s.mu.Unlock()
		return true
	}

	// Consume at most one frame per delivered chunk. Chunk sizes at or
	// above the frame size keep the window bounded; smaller chunks drain
	// on subsequent callbacks.
	frame := s.window[:dcfg.FrameSize]
	peak := audio.Peak(frame)
	res, err := s.cfg.Detector.Process(frame, dcfg.FrameDuration())
	n := copy(s.window, s.window[dcfg.FrameSize:])
	s.window = s.window[:n]
	s.mu.Unlock()

	if err != nil {
		s.setState(StateFailed)
		s.stop(fmt.Errorf("record: score frame: %w", err), "scorer failure")
		return false
	}

	if s.cfg.OnStatus != nil {
		s.cfg.OnStatus(Status{
			State:       res.State,
			Probability: res.Probability,
			Peak:        peak,
			ValidSpeech: res.ValidSpeech,
		})
	}

	if s.manualStop.Load() {
		s.stop(nil, "manual")
		return false
	}
	if res.ValidSpeech && s.cfg.Detector.ShouldStop() {
		s.stop(nil, "silence after speech")
		return false
	}
	return true
}

// RequestStop asks the session to stop at the next delivered frame. It is
// safe from any goroutine and idempotent.
func (s *Session) RequestStop() {
	s.manualStop.Store(true)
}

// Wait blocks until frame delivery has ended, the source has failed, or ctx
// is done. On every path the source subscription is released, so a Wait that
// returns ctx.Err() leaves no goroutine still feeding the session.
func (s *Session) Wait(ctx context.Context) error {
	if s.sub == nil {
		select {
		case <-s.stopped:
			return s.failure
		default:
			return fmt.Errorf("record: session not started")
		}
	}

	select {
	case <-s.stopped:
		s.sub.Unsubscribe()
		return s.failure
	case <-s.sub.Done():
		err := s.sub.Err()
		if err != nil {
			err = fmt.Errorf("record: source: %w", err)
			s.setState(StateFailed)
		}
		s.stop(err, "source closed")
		return s.failure
	case <-ctx.Done():
		s.sub.Unsubscribe()
		s.stop(ctx.Err(), "context done")
		return ctx.Err()
	}
}

// Finalize normalizes the captured audio, writes it through the writer and
// returns the artifact. It returns ErrStillRecording before the session has
// stopped and ErrEmptyRecording when nothing was captured. On a failed
// session it salvages whatever audio was buffered before the failure.
func (s *Session) Finalize() (Artifact, error) {
	select {
	case <-s.stopped:
	default:
		return Artifact{}, ErrStillRecording
	}

	s.mu.Lock()
	if s.state != StateFailed {
		s.state = StateFinalizing
	}
	samples := s.buf
	s.mu.Unlock()

	if len(samples) == 0 {
		s.setState(StateFailed)
		return Artifact{}, ErrEmptyRecording
	}

	audio.Normalize(samples)
	duration := s.stopTime.Sub(s.startTime)

	path, err := s.cfg.Writer.Write(samples, s.cfg.Detector.Config().SampleRate)
	if err != nil {
		s.setState(StateFailed)
		return Artifact{}, fmt.Errorf("record: write artifact: %w", err)
	}

	s.setState(StateDone)
	s.log.Info("recording finalized",
		slog.String("path", path),
		slog.Duration("duration", duration),
		slog.Int("samples", len(samples)))
	return Artifact{Path: path, Duration: duration}, nil
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// stop ends frame delivery exactly once, recording the failure (nil for a
// clean stop) and the stop time before closing the stopped channel.
func (s *Session) stop(err error, reason string) {
	s.stopOnce.Do(func() {
		s.failure = err
		s.stopTime = time.Now()
		close(s.stopped)
		s.log.Info("recording stopped", slog.String("reason", reason))
	})
}
