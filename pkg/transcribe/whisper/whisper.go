// Package whisper provides a local transcription provider backed by the
// whisper.cpp CGO bindings. The whisper.cpp static library (libwhisper.a)
// and headers (whisper.h) must be available at link time via LIBRARY_PATH
// and C_INCLUDE_PATH environment variables.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/MrWong99/scrive/pkg/transcribe"
	"github.com/MrWong99/scrive/pkg/wav"
)

// modelSampleRate is the only input rate whisper.cpp accepts.
const modelSampleRate = 16000

const defaultLanguage = "en"

// Compile-time assertion that Provider satisfies transcribe.Provider.
var _ transcribe.Provider = (*Provider)(nil)

// Provider implements transcribe.Provider using whisper.cpp. The model is
// loaded once and shared; each Transcribe call creates its own whisper
// context, so concurrent calls do not interfere.
type Provider struct {
	model    whisperlib.Model
	language string

	mu     sync.Mutex
	closed bool
}

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithLanguage sets the default ISO 639-1 language code for transcription
// (e.g. "en", "de"). Requests with their own language override it.
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// New creates a Provider that loads the whisper.cpp model from the given
// file path. The caller must call Close when the provider is no longer
// needed.
func New(modelPath string, opts ...Option) (*Provider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	p := &Provider{
		model:    model,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the whisper model.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.model.Close()
}

// Transcribe runs the recording through whisper.cpp and joins the resulting
// segments into one text. The audio must be 16 kHz mono; a request carrying
// only a file path is decoded first.
func (p *Provider) Transcribe(ctx context.Context, req transcribe.Request) (transcribe.Result, error) {
	if err := ctx.Err(); err != nil {
		return transcribe.Result{}, fmt.Errorf("whisper: context already cancelled: %w", err)
	}

	samples, rate, err := requestSamples(req)
	if err != nil {
		return transcribe.Result{}, err
	}
	if rate != modelSampleRate {
		return transcribe.Result{}, fmt.Errorf("whisper: sample rate %d not supported, want %d", rate, modelSampleRate)
	}

	lang := req.Language
	if lang == "" {
		lang = p.language
	}

	wctx, err := p.model.NewContext()
	if err != nil {
		return transcribe.Result{}, fmt.Errorf("whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(lang); err != nil {
		return transcribe.Result{}, fmt.Errorf("whisper: set language %q: %w", lang, err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return transcribe.Result{}, fmt.Errorf("whisper: process audio: %w", err)
	}

	var sb strings.Builder
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return transcribe.Result{}, fmt.Errorf("whisper: read segment: %w", err)
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strings.TrimSpace(segment.Text))
	}

	return transcribe.Result{Text: sb.String(), Language: lang}, nil
}

func requestSamples(req transcribe.Request) ([]float32, int, error) {
	if len(req.Samples) > 0 {
		return req.Samples, req.SampleRate, nil
	}
	if req.Path == "" {
		return nil, 0, transcribe.ErrNoAudio
	}
	f, err := os.Open(req.Path)
	if err != nil {
		return nil, 0, fmt.Errorf("whisper: open recording: %w", err)
	}
	defer f.Close()
	samples, rate, err := wav.Decode(f)
	if err != nil {
		return nil, 0, fmt.Errorf("whisper: decode recording: %w", err)
	}
	return samples, rate, nil
}
