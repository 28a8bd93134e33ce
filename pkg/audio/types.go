// Package audio defines the capture-source contract and shared sample
// utilities for the scrive voice pipeline.
//
// Audio flows as mono float32 PCM in [-1, 1]. A [Source] pushes chunks to a
// [FrameFunc] on its own delivery goroutine; consumers signal stop either by
// returning false from the callback or by calling [Subscription.Unsubscribe].
// No control-flow panics cross the producer/consumer boundary.
package audio

// StreamConfig describes the stream a consumer wants from a [Source].
type StreamConfig struct {
	// SampleRate in Hz (e.g., 16000 for VAD/STT input).
	SampleRate int

	// Channels is the channel count delivered to the callback. Sources
	// downmix internally; the callback always receives mono when Channels
	// is 1.
	Channels int

	// FrameSize is the preferred number of samples per delivered chunk.
	// Sources may deliver smaller chunks; consumers must not rely on exact
	// chunk sizes.
	FrameSize int
}

// Status carries per-chunk delivery diagnostics from the source.
type Status struct {
	// InputOverflow reports that the capture backend dropped samples before
	// this chunk because the consumer fell behind.
	InputOverflow bool
}

// FrameFunc receives one chunk of mono float32 samples. It runs on the
// source's delivery goroutine and must complete within one chunk interval —
// no I/O, no blocking. Returning false tells the source to stop delivering;
// the subscription then completes as if Unsubscribe had been called.
//
// The samples slice is only valid for the duration of the call; callbacks
// that retain audio must copy it.
type FrameFunc func(samples []float32, status Status) bool

// Source delivers audio chunks from a capture backend via a push callback.
//
// Implementations must be safe for concurrent use; each Subscribe call
// creates an independent delivery stream.
type Source interface {
	// Subscribe starts delivering chunks to fn until the callback returns
	// false or Unsubscribe is called. Returns an error if the stream cannot
	// be opened (device unavailable, unsupported rate).
	Subscribe(cfg StreamConfig, fn FrameFunc) (Subscription, error)
}

// Subscription is a live delivery stream created by [Source.Subscribe].
type Subscription interface {
	// Unsubscribe stops delivery and releases the backend stream. Safe to
	// call more than once and concurrently with the delivery callback.
	Unsubscribe() error

	// Done is closed once delivery has fully stopped, whether by callback
	// stop signal, Unsubscribe, or a delivery failure.
	Done() <-chan struct{}

	// Err reports the delivery failure that terminated the stream, or nil
	// if delivery ended cleanly. Only meaningful after Done is closed.
	Err() error
}
