// Package transcribe defines the Provider interface for speech-to-text
// backends that turn a finished recording into text.
//
// Unlike a streaming recognizer, providers here work on complete recordings:
// the dictation flow finalizes a WAV artifact first and hands it over in one
// call. Implementations must be safe for concurrent use.
package transcribe

import (
	"context"
	"errors"
)

// ErrNoAudio is returned when a request carries neither samples nor a path.
var ErrNoAudio = errors.New("transcribe: request has no audio")

// Request describes one recording to transcribe. Either Path or Samples must
// be set; providers prefer whichever form suits their backend and fall back
// to the other.
type Request struct {
	// Path is the WAV file of the recording.
	Path string

	// Samples is the recording as mono float PCM, for providers that work
	// on raw audio directly.
	Samples []float32

	// SampleRate is the rate of Samples in Hz.
	SampleRate int

	// Language is the ISO 639-1 language code (e.g. "en", "de"). Empty
	// lets the provider auto-detect where supported.
	Language string

	// Prompt is optional context to bias recognition, such as names and
	// jargon likely to occur in the dictation.
	Prompt string
}

// Result is a completed transcription.
type Result struct {
	// Text is the transcribed speech.
	Text string

	// Language is the language the provider detected or was told, when
	// reported.
	Language string
}

// Provider is the abstraction over any transcription backend.
type Provider interface {
	// Transcribe converts one finished recording to text. It blocks until
	// the backend responds or ctx is done.
	Transcribe(ctx context.Context, req Request) (Result, error)
}
