// Package mock provides a test double for the wav package interfaces.
package mock

import (
	"sync"

	"github.com/MrWong99/scrive/pkg/wav"
)

// WriteCall records a single invocation of Writer.Write.
type WriteCall struct {
	// Samples is a copy of the samples passed to Write.
	Samples []float32

	// SampleRate is the rate passed to Write.
	SampleRate int
}

// Writer is a scripted implementation of wav.Writer.
type Writer struct {
	mu sync.Mutex

	// Path is returned by successful Write calls. Defaults to
	// "mock.wav" when empty.
	Path string

	// WriteErr, if non-nil, is returned by every Write call.
	WriteErr error

	// WriteCalls records every call to Write in order.
	WriteCalls []WriteCall
}

// Write records the call and returns the scripted path or error.
func (w *Writer) Write(samples []float32, sampleRate int) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	cp := make([]float32, len(samples))
	copy(cp, samples)
	w.WriteCalls = append(w.WriteCalls, WriteCall{Samples: cp, SampleRate: sampleRate})

	if w.WriteErr != nil {
		return "", w.WriteErr
	}
	if w.Path == "" {
		return "mock.wav", nil
	}
	return w.Path, nil
}

// Ensure Writer implements wav.Writer at compile time.
var _ wav.Writer = (*Writer)(nil)
