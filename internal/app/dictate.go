package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/scrive/internal/store"
	"github.com/MrWong99/scrive/pkg/record"
	"github.com/MrWong99/scrive/pkg/transcribe"
	"github.com/MrWong99/scrive/pkg/vad"
)

// Dictation is one completed dictation cycle.
type Dictation struct {
	// ID is the history entry's identity.
	ID uuid.UUID

	// Path is the written WAV file.
	Path string

	// Duration is the recording's wall-clock length.
	Duration time.Duration

	// Text is the transcription. Empty when no provider is configured.
	Text string
}

// runDictation records utterances back to back until ctx is cancelled.
// Empty recordings are discarded and the loop continues.
func (a *App) runDictation(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		d, err := a.DictateOnce(ctx)
		switch {
		case errors.Is(err, record.ErrEmptyRecording):
			slog.Debug("discarded empty recording")
			continue
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		case err != nil:
			return err
		}
		if a.onResult != nil {
			a.onResult(d)
		}
	}
}

// DictateOnce records a single utterance, persists the artifact, transcribes
// it when a provider is configured and stores the result in history.
func (a *App) DictateOnce(ctx context.Context) (Dictation, error) {
	det, err := vad.New(a.cfg.VAD.Detection(), a.scorer)
	if err != nil {
		return Dictation{}, fmt.Errorf("app: build detector: %w", err)
	}
	a.resetScorer()

	sess, err := record.New(record.Config{
		Source:   a.source,
		Detector: det,
		Writer:   a.writer,
		OnStatus: a.statusHook(ctx),
	})
	if err != nil {
		return Dictation{}, fmt.Errorf("app: build session: %w", err)
	}

	a.mu.Lock()
	a.cur = sess
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.cur = nil
		a.mu.Unlock()
	}()

	a.metrics.ActiveSessions.Add(ctx, 1)
	defer a.metrics.ActiveSessions.Add(ctx, -1)

	if err := sess.Start(); err != nil {
		a.metrics.RecordRecording(ctx, "failed", 0)
		return Dictation{}, err
	}
	if err := sess.Wait(ctx); err != nil {
		a.metrics.RecordRecording(ctx, "failed", 0)
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			a.salvage(ctx, sess)
		}
		return Dictation{}, err
	}

	art, err := sess.Finalize()
	if err != nil {
		if errors.Is(err, record.ErrEmptyRecording) {
			a.metrics.RecordRecording(ctx, "empty", 0)
		} else {
			a.metrics.RecordRecording(ctx, "failed", 0)
		}
		return Dictation{}, err
	}
	a.metrics.RecordRecording(ctx, "done", art.Duration.Seconds())

	rec := store.Recording{
		ID:         uuid.New(),
		Path:       art.Path,
		Duration:   art.Duration,
		SampleRate: a.cfg.VAD.SampleRate,
		Provider:   a.cfg.Transcription.Provider,
		CreatedAt:  time.Now().UTC(),
	}
	if err := a.history.Create(ctx, &rec); err != nil {
		return Dictation{}, fmt.Errorf("app: store recording: %w", err)
	}

	d := Dictation{ID: rec.ID, Path: art.Path, Duration: art.Duration}
	if a.transcriber == nil {
		return d, nil
	}

	text, err := a.transcribeArtifact(ctx, art.Path)
	if err != nil {
		// The WAV is safely on disk; a transcription failure must not
		// lose the recording.
		slog.Error("transcription failed",
			slog.String("path", art.Path), slog.Any("error", err))
		return d, nil
	}
	d.Text = text
	if err := a.history.SetTranscription(ctx, rec.ID, text,
		a.cfg.Transcription.Provider, a.cfg.Transcription.Language); err != nil {
		slog.Error("storing transcription failed",
			slog.String("id", rec.ID.String()), slog.Any("error", err))
	}
	return d, nil
}

// salvage persists whatever audio a failed session buffered before it broke,
// so a crashed scorer or source does not lose the dictation.
func (a *App) salvage(ctx context.Context, sess *record.Session) {
	art, err := sess.Finalize()
	if err != nil {
		return
	}
	rec := store.Recording{
		ID:         uuid.New(),
		Path:       art.Path,
		Duration:   art.Duration,
		SampleRate: a.cfg.VAD.SampleRate,
		CreatedAt:  time.Now().UTC(),
	}
	if serr := a.history.Create(ctx, &rec); serr != nil {
		slog.Error("storing salvaged recording failed", slog.Any("error", serr))
	}
	slog.Warn("salvaged partial recording", slog.String("path", art.Path))
}

func (a *App) transcribeArtifact(ctx context.Context, path string) (string, error) {
	start := time.Now()
	res, err := a.transcriber.Transcribe(ctx, transcribe.Request{
		Path:       path,
		SampleRate: a.cfg.VAD.SampleRate,
		Language:   a.cfg.Transcription.Language,
	})
	status := "ok"
	if err != nil {
		status = "error"
	}
	a.metrics.RecordTranscription(ctx, a.cfg.Transcription.Provider, status,
		time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// statusHook fans frame status out to metrics and the optional UI callback.
func (a *App) statusHook(ctx context.Context) func(record.Status) {
	return func(st record.Status) {
		a.metrics.RecordFrame(ctx, st.State.String())
		if a.onStatus != nil {
			a.onStatus(st)
		}
	}
}

// resetScorer clears scorer state carried over from the previous session.
// Stateless scorers don't implement Reset and are left alone.
func (a *App) resetScorer() {
	if r, ok := a.scorer.(interface{ Reset() error }); ok {
		if err := r.Reset(); err != nil {
			slog.Warn("scorer reset failed", slog.Any("error", err))
		}
	}
}
