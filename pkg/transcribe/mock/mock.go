// Package mock provides a test double for the transcribe package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/scrive/pkg/transcribe"
)

// Provider is a scripted implementation of transcribe.Provider.
type Provider struct {
	mu sync.Mutex

	// Result is returned by successful Transcribe calls.
	Result transcribe.Result

	// TranscribeErr, if non-nil, is returned by every Transcribe call.
	TranscribeErr error

	// TranscribeCalls records every request passed to Transcribe in order.
	TranscribeCalls []transcribe.Request
}

// Transcribe records the call and returns the scripted result or error.
func (p *Provider) Transcribe(ctx context.Context, req transcribe.Request) (transcribe.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.TranscribeCalls = append(p.TranscribeCalls, req)
	if err := ctx.Err(); err != nil {
		return transcribe.Result{}, err
	}
	if p.TranscribeErr != nil {
		return transcribe.Result{}, p.TranscribeErr
	}
	return p.Result, nil
}

// Ensure Provider implements transcribe.Provider at compile time.
var _ transcribe.Provider = (*Provider)(nil)
