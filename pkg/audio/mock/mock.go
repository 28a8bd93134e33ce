// Package mock provides test doubles for the audio package interfaces.
//
// Source hands out Subscriptions that tests drive by hand: Push delivers a
// chunk to the subscriber's callback, Fail simulates a delivery failure.
package mock

import (
	"sync"

	"github.com/MrWong99/scrive/pkg/audio"
)

// Source is a scripted implementation of audio.Source.
type Source struct {
	mu sync.Mutex

	// SubscribeErr, if non-nil, is returned by Subscribe.
	SubscribeErr error

	// SubscribeCalls records the stream configs of every Subscribe call.
	SubscribeCalls []audio.StreamConfig

	subs []*Subscription
}

// Subscribe records the call and returns a new controllable Subscription.
func (s *Source) Subscribe(cfg audio.StreamConfig, fn audio.FrameFunc) (audio.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.SubscribeCalls = append(s.SubscribeCalls, cfg)
	if s.SubscribeErr != nil {
		return nil, s.SubscribeErr
	}
	sub := &Subscription{fn: fn, done: make(chan struct{})}
	s.subs = append(s.subs, sub)
	return sub, nil
}

// Last returns the most recently created Subscription, or nil.
func (s *Source) Last() *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.subs) == 0 {
		return nil
	}
	return s.subs[len(s.subs)-1]
}

// Subscription is a hand-driven audio.Subscription.
type Subscription struct {
	mu sync.Mutex
	fn audio.FrameFunc

	done     chan struct{}
	doneOnce sync.Once
	err      error

	stopped      bool
	unsubscribed bool
}

// Push delivers one chunk to the subscriber and reports whether the
// subscriber wants more. Delivery after the subscriber stopped, failed or
// unsubscribed is a silent no-op returning false, like a real source that
// has already torn the stream down.
func (s *Subscription) Push(samples []float32, status audio.Status) bool {
	s.mu.Lock()
	if s.stopped || s.unsubscribed {
		s.mu.Unlock()
		return false
	}
	select {
	case <-s.done:
		s.mu.Unlock()
		return false
	default:
	}
	fn := s.fn
	s.mu.Unlock()

	cont := fn(samples, status)
	if !cont {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
		s.close(nil)
	}
	return cont
}

// Fail ends the stream with err, as a device or transport failure would.
func (s *Subscription) Fail(err error) { s.close(err) }

// Close ends the stream cleanly, as an orderly source shutdown would.
func (s *Subscription) Close() { s.close(nil) }

// Unsubscribe implements audio.Subscription.
func (s *Subscription) Unsubscribe() error {
	s.mu.Lock()
	s.unsubscribed = true
	s.mu.Unlock()
	s.close(nil)
	return nil
}

// Unsubscribed reports whether Unsubscribe was called.
func (s *Subscription) Unsubscribed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsubscribed
}

// Done implements audio.Subscription.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Err implements audio.Subscription.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription) close(err error) {
	s.doneOnce.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.done)
	})
}

// Ensure the doubles implement the audio interfaces at compile time.
var (
	_ audio.Source       = (*Source)(nil)
	_ audio.Subscription = (*Subscription)(nil)
)
