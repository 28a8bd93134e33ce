// Package config provides the configuration schema and loader for the Scrive
// dictation service.
package config

import (
	"log/slog"
	"time"

	"github.com/MrWong99/scrive/pkg/vad"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Audio source kinds.
const (
	SourcePortAudio = "portaudio"
	SourceWebSocket = "websocket"
)

// VAD scorer kinds.
const (
	ScorerSilero = "silero"
	ScorerEnergy = "energy"
)

// Transcription provider kinds. ProviderNone disables transcription.
const (
	ProviderOpenAI  = "openai"
	ProviderWhisper = "whisper"
	ProviderNone    = "none"
)

// History backend kinds.
const (
	HistoryMemory   = "memory"
	HistoryPostgres = "postgres"
)

// Config is the root configuration structure for Scrive.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Audio         AudioConfig         `yaml:"audio"`
	VAD           VADConfig           `yaml:"vad"`
	Recording     RecordingConfig     `yaml:"recording"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	History       HistoryConfig       `yaml:"history"`
}

// ServerConfig holds the settings for the metrics and health HTTP endpoint.
type ServerConfig struct {
	// ListenAddr is the TCP address for /metrics, /healthz and /readyz
	// (e.g. ":8080"). Empty disables the HTTP endpoint.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// AudioConfig selects and configures the capture source.
type AudioConfig struct {
	// Source is the capture backend, "portaudio" or "websocket".
	Source string `yaml:"source"`

	// Device selects the PortAudio input device by name substring. Empty
	// uses the system default input.
	Device string `yaml:"device"`

	// WSURL is the remote recorder endpoint for the websocket source.
	WSURL string `yaml:"ws_url"`

	// WSCodec is the websocket wire codec, "pcm16" or "opus".
	WSCodec string `yaml:"ws_codec"`
}

// VADConfig holds the voice activity detection parameters. Durations are in
// milliseconds.
type VADConfig struct {
	// Scorer selects the frame scorer, "silero" or "energy".
	Scorer string `yaml:"scorer"`

	// ModelPath is the path to the Silero ONNX model.
	ModelPath string `yaml:"model_path"`

	SampleRate      int     `yaml:"sample_rate"`
	FrameSize       int     `yaml:"frame_size"`
	SpeechThreshold float64 `yaml:"speech_threshold"`
	SilenceShortMs  int     `yaml:"silence_short_ms"`
	SilenceLongMs   int     `yaml:"silence_long_ms"`
	SilenceMaxMs    int     `yaml:"silence_max_ms"`
	MinSpeechMs     int     `yaml:"min_speech_ms"`
}

// Detection converts the YAML fields into the detector's configuration.
func (v VADConfig) Detection() vad.Config {
	return vad.Config{
		SampleRate:      v.SampleRate,
		FrameSize:       v.FrameSize,
		SpeechThreshold: v.SpeechThreshold,
		SilenceShort:    time.Duration(v.SilenceShortMs) * time.Millisecond,
		SilenceLong:     time.Duration(v.SilenceLongMs) * time.Millisecond,
		SilenceMax:      time.Duration(v.SilenceMaxMs) * time.Millisecond,
		MinSpeech:       time.Duration(v.MinSpeechMs) * time.Millisecond,
	}
}

// RecordingConfig controls where artifacts are written.
type RecordingConfig struct {
	// OutputDir is the directory for WAV artifacts. The system temp
	// directory is used as fallback when it is not writable.
	OutputDir string `yaml:"output_dir"`
}

// TranscriptionConfig selects and configures the transcription backend.
type TranscriptionConfig struct {
	// Provider is "openai", "whisper" or "none".
	Provider string `yaml:"provider"`

	// APIKey authenticates against the OpenAI API.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the OpenAI API endpoint, e.g. for a compatible
	// local server.
	BaseURL string `yaml:"base_url"`

	// Model selects the model within the provider.
	Model string `yaml:"model"`

	// ModelPath is the whisper.cpp model file for the local provider.
	ModelPath string `yaml:"model_path"`

	// Language is the ISO 639-1 language code. Empty auto-detects.
	Language string `yaml:"language"`
}

// HistoryConfig selects the dictation history backend.
type HistoryConfig struct {
	// Backend is "memory" or "postgres".
	Backend string `yaml:"backend"`

	// DSN is the PostgreSQL connection string for the postgres backend.
	DSN string `yaml:"dsn"`
}

// Default returns the built-in configuration: default microphone, Silero
// VAD tuned for 16 kHz dictation, no transcription, in-memory history.
func Default() *Config {
	det := vad.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			LogLevel: LogInfo,
		},
		Audio: AudioConfig{
			Source:  SourcePortAudio,
			WSCodec: "pcm16",
		},
		VAD: VADConfig{
			Scorer:          ScorerSilero,
			ModelPath:       "models/silero_vad.onnx",
			SampleRate:      det.SampleRate,
			FrameSize:       det.FrameSize,
			SpeechThreshold: det.SpeechThreshold,
			SilenceShortMs:  int(det.SilenceShort.Milliseconds()),
			SilenceLongMs:   int(det.SilenceLong.Milliseconds()),
			SilenceMaxMs:    int(det.SilenceMax.Milliseconds()),
			MinSpeechMs:     int(det.MinSpeech.Milliseconds()),
		},
		Recording: RecordingConfig{
			OutputDir: "recordings",
		},
		Transcription: TranscriptionConfig{
			Provider: ProviderNone,
		},
		History: HistoryConfig{
			Backend: HistoryMemory,
		},
	}
}

// SlogLevel maps the configured log level onto slog's levels. Unset or
// unknown levels map to info.
func (c *Config) SlogLevel() slog.Level {
	switch c.Server.LogLevel {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
