// Package openai provides a transcription provider backed by the OpenAI
// audio transcription API. It implements the transcribe.Provider interface.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/MrWong99/scrive/pkg/transcribe"
	"github.com/MrWong99/scrive/pkg/wav"
)

// DefaultModel is the default OpenAI transcription model.
const DefaultModel = oai.AudioModelWhisper1

// Ensure Provider implements the transcribe.Provider interface.
var _ transcribe.Provider = (*Provider)(nil)

// Provider implements transcribe.Provider using the OpenAI API.
type Provider struct {
	client oai.Client
	model  string
}

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL, e.g. to target an
// API-compatible local server.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new OpenAI transcription Provider.
// If model is empty, DefaultModel (whisper-1) is used.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai transcribe: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}

	return &Provider{
		client: oai.NewClient(reqOpts...),
		model:  model,
	}, nil
}

// Transcribe uploads the recording and returns the transcription. A request
// with only raw samples is encoded to WAV in memory before upload.
func (p *Provider) Transcribe(ctx context.Context, req transcribe.Request) (transcribe.Result, error) {
	file, err := requestFile(req)
	if err != nil {
		return transcribe.Result{}, err
	}

	params := oai.AudioTranscriptionNewParams{
		File:  file,
		Model: oai.AudioModel(p.model),
	}
	if req.Language != "" {
		params.Language = oai.String(req.Language)
	}
	if req.Prompt != "" {
		params.Prompt = oai.String(req.Prompt)
	}

	resp, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return transcribe.Result{}, fmt.Errorf("openai transcribe: %w", err)
	}
	return transcribe.Result{Text: resp.Text, Language: req.Language}, nil
}

func requestFile(req transcribe.Request) (io.Reader, error) {
	if req.Path != "" {
		f, err := os.Open(req.Path)
		if err != nil {
			return nil, fmt.Errorf("openai transcribe: open recording: %w", err)
		}
		return f, nil
	}
	if len(req.Samples) == 0 {
		return nil, transcribe.ErrNoAudio
	}
	var buf bytes.Buffer
	if err := wav.Encode(&buf, req.Samples, req.SampleRate); err != nil {
		return nil, fmt.Errorf("openai transcribe: encode recording: %w", err)
	}
	return oai.File(&buf, "recording.wav", "audio/wav"), nil
}
