package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// validSources, validScorers, validProviders, and validBackends list the
// recognised values for the selector fields. Used by [Validate].
var (
	validSources   = []string{SourcePortAudio, SourceWebSocket}
	validScorers   = []string{ScorerSilero, ScorerEnergy}
	validProviders = []string{ProviderOpenAI, ProviderWhisper, ProviderNone}
	validBackends  = []string{HistoryMemory, HistoryPostgres}
)

// Load reads the YAML configuration file at path, merges it over [Default],
// and returns the validated result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over [Default] and validates
// the result. Useful in tests where configs are constructed from string
// literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if !slices.Contains(validSources, cfg.Audio.Source) {
		errs = append(errs, fmt.Errorf("audio.source %q is invalid; valid values: %v", cfg.Audio.Source, validSources))
	}
	if cfg.Audio.Source == SourceWebSocket && cfg.Audio.WSURL == "" {
		errs = append(errs, errors.New("audio.ws_url must be set for the websocket source"))
	}

	if !slices.Contains(validScorers, cfg.VAD.Scorer) {
		errs = append(errs, fmt.Errorf("vad.scorer %q is invalid; valid values: %v", cfg.VAD.Scorer, validScorers))
	}
	if cfg.VAD.Scorer == ScorerSilero && cfg.VAD.ModelPath == "" {
		errs = append(errs, errors.New("vad.model_path must be set for the silero scorer"))
	}
	if err := cfg.VAD.Detection().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("vad: %w", err))
	}

	if !slices.Contains(validProviders, cfg.Transcription.Provider) {
		errs = append(errs, fmt.Errorf("transcription.provider %q is invalid; valid values: %v", cfg.Transcription.Provider, validProviders))
	}
	if cfg.Transcription.Provider == ProviderOpenAI && cfg.Transcription.APIKey == "" {
		errs = append(errs, errors.New("transcription.api_key must be set for the openai provider"))
	}
	if cfg.Transcription.Provider == ProviderWhisper && cfg.Transcription.ModelPath == "" {
		errs = append(errs, errors.New("transcription.model_path must be set for the whisper provider"))
	}

	if !slices.Contains(validBackends, cfg.History.Backend) {
		errs = append(errs, fmt.Errorf("history.backend %q is invalid; valid values: %v", cfg.History.Backend, validBackends))
	}
	if cfg.History.Backend == HistoryPostgres && cfg.History.DSN == "" {
		errs = append(errs, errors.New("history.dsn must be set for the postgres backend"))
	}

	return errors.Join(errs...)
}
