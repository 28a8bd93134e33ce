package vad_test

import (
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/scrive/pkg/vad"
)

func TestConfigValidate(t *testing.T) {
	if err := vad.DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*vad.Config)
	}{
		{"zero sample rate", func(c *vad.Config) { c.SampleRate = 0 }},
		{"negative frame size", func(c *vad.Config) { c.FrameSize = -1 }},
		{"threshold zero", func(c *vad.Config) { c.SpeechThreshold = 0 }},
		{"threshold one", func(c *vad.Config) { c.SpeechThreshold = 1 }},
		{"short above long", func(c *vad.Config) { c.SilenceShort = c.SilenceLong + time.Second }},
		{"long above max", func(c *vad.Config) { c.SilenceLong = c.SilenceMax + time.Second }},
		{"negative min speech", func(c *vad.Config) { c.MinSpeech = -time.Second }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := vad.DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !errors.Is(err, vad.ErrInvalidConfig) {
				t.Errorf("error %v should wrap ErrInvalidConfig", err)
			}
		})
	}
}

func TestConfigValidateJoinsAllViolations(t *testing.T) {
	cfg := vad.Config{SampleRate: -1, FrameSize: 0, SpeechThreshold: 2}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if !errors.Is(err, vad.ErrInvalidConfig) {
		t.Errorf("error %v should wrap ErrInvalidConfig", err)
	}
}

func TestFrameDuration(t *testing.T) {
	cfg := vad.DefaultConfig()
	if got, want := cfg.FrameDuration(), 32*time.Millisecond; got != want {
		t.Errorf("FrameDuration() = %v, want %v", got, want)
	}

	var zero vad.Config
	if got := zero.FrameDuration(); got != 0 {
		t.Errorf("FrameDuration() on zero config = %v, want 0", got)
	}
}

func TestStateString(t *testing.T) {
	cases := map[vad.State]string{
		vad.StateSilence:    "silence",
		vad.StateSpeech:     "speech",
		vad.StateShortPause: "short-pause",
		vad.StateLongPause:  "long-pause",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
