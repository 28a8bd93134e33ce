// Package store persists the dictation history: one record per finalized
// recording, together with its transcription once available.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested recording does not exist.
var ErrNotFound = errors.New("store: recording not found")

// Recording is one entry of the dictation history.
type Recording struct {
	// ID uniquely identifies the recording.
	ID uuid.UUID

	// Path is where the WAV artifact was written.
	Path string

	// Duration is the wall-clock length of the recording.
	Duration time.Duration

	// SampleRate is the artifact's sample rate in Hz.
	SampleRate int

	// Text is the transcription, empty until one was produced.
	Text string

	// Provider names the transcription backend that produced Text.
	Provider string

	// Language is the transcription language, when known.
	Language string

	// CreatedAt is when the recording was finalized.
	CreatedAt time.Time
}

// Validate checks the fields the store requires.
func (r *Recording) Validate() error {
	if r.ID == uuid.Nil {
		return errors.New("store: recording id must not be nil")
	}
	if r.Path == "" {
		return errors.New("store: recording path must not be empty")
	}
	return nil
}

// Store provides CRUD operations for the dictation history.
// Implementations must be safe for concurrent use.
type Store interface {
	// Create inserts a new recording. Returns an error if a recording with
	// the same ID already exists.
	Create(ctx context.Context, rec *Recording) error

	// Get retrieves a recording by ID. Returns ErrNotFound if it does not
	// exist.
	Get(ctx context.Context, id uuid.UUID) (*Recording, error)

	// SetTranscription attaches a transcription to an existing recording.
	// Returns ErrNotFound if the recording does not exist.
	SetTranscription(ctx context.Context, id uuid.UUID, text, provider, language string) error

	// List returns the most recent recordings, newest first, at most limit
	// entries. A non-positive limit returns all.
	List(ctx context.Context, limit int) ([]Recording, error)

	// Delete removes a recording by ID. Deleting a non-existent recording
	// is not an error.
	Delete(ctx context.Context, id uuid.UUID) error
}
