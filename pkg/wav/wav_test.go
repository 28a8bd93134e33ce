package wav_test

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/scrive/pkg/wav"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	samples := make([]float32, 1600)
	for i := range samples {
		samples[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / 16000))
	}

	var buf bytes.Buffer
	if err := wav.Encode(&buf, samples, 16000); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got, want := buf.Len(), 44+len(samples)*2; got != want {
		t.Errorf("encoded size = %d, want %d", got, want)
	}

	got, rate, err := wav.Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if rate != 16000 {
		t.Errorf("decoded rate = %d, want 16000", rate)
	}
	if len(got) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(got), len(samples))
	}
	for i := range samples {
		if math.Abs(float64(got[i]-samples[i])) > 2.0/32768 {
			t.Fatalf("sample %d = %v, want %v within quantization error", i, got[i], samples[i])
		}
	}
}

func TestEncodeRejectsBadRate(t *testing.T) {
	if err := wav.Encode(&bytes.Buffer{}, []float32{0}, 0); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	junk := append([]byte("JUNKJUNKJUNK"), make([]byte, 40)...)
	if _, _, err := wav.Decode(bytes.NewReader(junk)); err == nil {
		t.Fatal("expected error for non-RIFF input")
	}
}

func TestFileWriterNaming(t *testing.T) {
	dir := t.TempDir()
	ts := time.Date(2026, 8, 29, 14, 30, 5, 0, time.UTC)
	fw := &wav.FileWriter{Dir: dir, Now: func() time.Time { return ts }}

	path, err := fw.Write([]float32{0, 0.5, -0.5}, 16000)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got, want := filepath.Base(path), "recording_20260829_143005.wav"; got != want {
		t.Errorf("file name = %q, want %q", got, want)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("file written to %q, want %q", filepath.Dir(path), dir)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open artifact: %v", err)
	}
	defer f.Close()
	samples, rate, err := wav.Decode(f)
	if err != nil {
		t.Fatalf("Decode artifact: %v", err)
	}
	if rate != 16000 || len(samples) != 3 {
		t.Errorf("artifact = %d samples at %d Hz, want 3 at 16000", len(samples), rate)
	}
}

func TestFileWriterFallsBackToTempDir(t *testing.T) {
	// A regular file in the path makes directory creation fail for any uid.
	blocked := filepath.Join(t.TempDir(), "blocked")
	if err := os.WriteFile(blocked, nil, 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	fw := &wav.FileWriter{Dir: filepath.Join(blocked, "out")}

	path, err := fw.Write([]float32{0.1}, 16000)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	defer os.Remove(path)
	if !strings.HasPrefix(path, os.TempDir()) {
		t.Errorf("fallback path = %q, want under %q", path, os.TempDir())
	}
}
