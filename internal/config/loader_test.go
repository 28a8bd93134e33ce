package config_test

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/scrive/internal/config"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()
	if err := config.Validate(config.Default()); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestLoadFromReaderMergesOverDefaults(t *testing.T) {
	t.Parallel()
	const doc = `
server:
  listen_addr: ":9090"
  log_level: debug
vad:
  silence_max_ms: 3000
transcription:
  provider: openai
  api_key: sk-test
`
	cfg, err := config.LoadFromReader(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("listen_addr = %q, want :9090", cfg.Server.ListenAddr)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel = %v, want debug", cfg.SlogLevel())
	}
	if got := cfg.VAD.Detection().SilenceMax; got != 3*time.Second {
		t.Errorf("silence_max = %v, want 3s", got)
	}
	// Untouched fields keep their defaults.
	if cfg.VAD.FrameSize != 512 || cfg.VAD.SampleRate != 16000 {
		t.Errorf("vad defaults lost: %+v", cfg.VAD)
	}
	if cfg.Audio.Source != config.SourcePortAudio {
		t.Errorf("audio.source = %q, want portaudio default", cfg.Audio.Source)
	}
	if cfg.Transcription.Provider != config.ProviderOpenAI {
		t.Errorf("transcription.provider = %q, want openai", cfg.Transcription.Provider)
	}
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader("serverr:\n  listen_addr: ':1'\n"))
	if err == nil {
		t.Fatal("expected error for unknown top-level field")
	}
}

func TestValidateCollectsAllFailures(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	cfg.Server.LogLevel = "verbose"
	cfg.Audio.Source = "pulse"
	cfg.VAD.Scorer = config.ScorerSilero
	cfg.VAD.ModelPath = ""
	cfg.History.Backend = config.HistoryPostgres
	cfg.History.DSN = ""

	err := config.Validate(cfg)
	if err == nil {
		t.Fatal("expected validation failure")
	}
	for _, want := range []string{"server.log_level", "audio.source", "vad.model_path", "history.dsn"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %v should mention %s", err, want)
		}
	}
}

func TestValidateProviderRequirements(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Transcription.Provider = config.ProviderOpenAI
	if err := config.Validate(cfg); err == nil || !strings.Contains(err.Error(), "api_key") {
		t.Errorf("openai without api_key: err = %v", err)
	}

	cfg = config.Default()
	cfg.Transcription.Provider = config.ProviderWhisper
	if err := config.Validate(cfg); err == nil || !strings.Contains(err.Error(), "model_path") {
		t.Errorf("whisper without model_path: err = %v", err)
	}

	cfg = config.Default()
	cfg.Audio.Source = config.SourceWebSocket
	if err := config.Validate(cfg); err == nil || !strings.Contains(err.Error(), "ws_url") {
		t.Errorf("websocket without ws_url: err = %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	if _, err := config.Load("/does/not/exist.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
