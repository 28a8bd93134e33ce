// Package app wires all Scrive subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes the dictation loop and the HTTP endpoint, and
// Shutdown tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithSource, WithScorer, etc.). When an option is not provided, New creates
// real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/scrive/internal/config"
	"github.com/MrWong99/scrive/internal/health"
	"github.com/MrWong99/scrive/internal/observe"
	"github.com/MrWong99/scrive/internal/store"
	"github.com/MrWong99/scrive/pkg/audio"
	portaudiosrc "github.com/MrWong99/scrive/pkg/audio/portaudio"
	"github.com/MrWong99/scrive/pkg/audio/wsaudio"
	"github.com/MrWong99/scrive/pkg/record"
	"github.com/MrWong99/scrive/pkg/transcribe"
	openaistt "github.com/MrWong99/scrive/pkg/transcribe/openai"
	whisperstt "github.com/MrWong99/scrive/pkg/transcribe/whisper"
	"github.com/MrWong99/scrive/pkg/vad"
	"github.com/MrWong99/scrive/pkg/vad/energy"
	"github.com/MrWong99/scrive/pkg/vad/silero"
	"github.com/MrWong99/scrive/pkg/wav"
)

// App owns all subsystem lifetimes and runs the dictation pipeline.
type App struct {
	cfg     *config.Config
	metrics *observe.Metrics

	source      audio.Source
	scorer      vad.Scorer
	writer      wav.Writer
	transcriber transcribe.Provider
	history     store.Store

	// onStatus, when set, receives per-frame feedback for UI display.
	onStatus func(record.Status)

	// onResult, when set, receives every finished dictation.
	onResult func(Dictation)

	httpSrv *http.Server

	mu  sync.Mutex
	cur *record.Session

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithSource injects an audio source instead of creating one from config.
func WithSource(s audio.Source) Option {
	return func(a *App) { a.source = s }
}

// WithScorer injects a frame scorer instead of creating one from config.
func WithScorer(s vad.Scorer) Option {
	return func(a *App) { a.scorer = s }
}

// WithWriter injects an artifact writer instead of the file writer.
func WithWriter(w wav.Writer) Option {
	return func(a *App) { a.writer = w }
}

// WithTranscriber injects a transcription provider instead of creating one
// from config.
func WithTranscriber(p transcribe.Provider) Option {
	return func(a *App) { a.transcriber = p }
}

// WithHistory injects a history store instead of creating one from config.
func WithHistory(s store.Store) Option {
	return func(a *App) { a.history = s }
}

// WithMetrics injects a metrics instance instead of the global default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithStatusFunc registers a per-frame status callback, e.g. for a terminal
// level meter. It is called from the audio delivery goroutine.
func WithStatusFunc(fn func(record.Status)) Option {
	return func(a *App) { a.onStatus = fn }
}

// WithResultFunc registers a callback invoked for every finished dictation.
func WithResultFunc(fn func(Dictation)) Option {
	return func(a *App) { a.onResult = fn }
}

// New creates an App by wiring all subsystems from cfg. Use Option functions
// to inject test doubles for any subsystem.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	if err := a.initScorer(); err != nil {
		return nil, fmt.Errorf("app: init scorer: %w", err)
	}
	a.initSource()
	if a.writer == nil {
		a.writer = &wav.FileWriter{Dir: cfg.Recording.OutputDir}
	}
	if err := a.initTranscriber(); err != nil {
		return nil, fmt.Errorf("app: init transcriber: %w", err)
	}
	if err := a.initHistory(ctx); err != nil {
		return nil, fmt.Errorf("app: init history: %w", err)
	}
	a.initHTTP()

	return a, nil
}

func (a *App) initScorer() error {
	if a.scorer != nil {
		return nil
	}
	switch a.cfg.VAD.Scorer {
	case config.ScorerSilero:
		sc, err := silero.New(silero.Config{
			ModelPath:  a.cfg.VAD.ModelPath,
			SampleRate: a.cfg.VAD.SampleRate,
			Threshold:  float32(a.cfg.VAD.SpeechThreshold),
		})
		if err != nil {
			return err
		}
		a.scorer = sc
		a.closers = append(a.closers, sc.Close)
	case config.ScorerEnergy:
		a.scorer = &energy.Scorer{}
	default:
		return fmt.Errorf("unknown scorer %q", a.cfg.VAD.Scorer)
	}
	return nil
}

func (a *App) initSource() {
	if a.source != nil {
		return
	}
	if a.cfg.Audio.Source == config.SourceWebSocket {
		a.source = &wsaudio.Source{
			URL:   a.cfg.Audio.WSURL,
			Codec: a.cfg.Audio.WSCodec,
		}
		return
	}
	a.source = &portaudiosrc.Source{DeviceName: a.cfg.Audio.Device}
}

func (a *App) initTranscriber() error {
	if a.transcriber != nil {
		return nil
	}
	switch a.cfg.Transcription.Provider {
	case config.ProviderOpenAI:
		p, err := openaistt.New(a.cfg.Transcription.APIKey, a.cfg.Transcription.Model,
			transcriberOptions(a.cfg.Transcription)...)
		if err != nil {
			return err
		}
		a.transcriber = p
	case config.ProviderWhisper:
		var opts []whisperstt.Option
		if a.cfg.Transcription.Language != "" {
			opts = append(opts, whisperstt.WithLanguage(a.cfg.Transcription.Language))
		}
		p, err := whisperstt.New(a.cfg.Transcription.ModelPath, opts...)
		if err != nil {
			return err
		}
		a.transcriber = p
		a.closers = append(a.closers, p.Close)
	case config.ProviderNone, "":
		// Dictation without transcription still records and stores WAVs.
	}
	return nil
}

func transcriberOptions(cfg config.TranscriptionConfig) []openaistt.Option {
	var opts []openaistt.Option
	if cfg.BaseURL != "" {
		opts = append(opts, openaistt.WithBaseURL(cfg.BaseURL))
	}
	return opts
}

func (a *App) initHistory(ctx context.Context) error {
	if a.history != nil {
		return nil
	}
	if a.cfg.History.Backend == config.HistoryPostgres {
		pool, err := pgxpool.New(ctx, a.cfg.History.DSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		pg := store.NewPostgresStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()
			return err
		}
		a.closers = append(a.closers, func() error {
			pool.Close()
			return nil
		})
		a.history = pg
		return nil
	}
	a.history = store.NewMemoryStore()
	return nil
}

func (a *App) initHTTP() {
	if a.cfg.Server.ListenAddr == "" {
		return
	}
	mux := http.NewServeMux()
	health.New(a.healthCheckers()...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	a.httpSrv = &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (a *App) healthCheckers() []health.Checker {
	checkers := []health.Checker{{
		Name: "history",
		Check: func(ctx context.Context) error {
			_, err := a.history.List(ctx, 1)
			return err
		},
	}}
	if dir := a.cfg.Recording.OutputDir; dir != "" {
		checkers = append(checkers, health.Checker{
			Name: "output_dir",
			Check: func(context.Context) error {
				return os.MkdirAll(dir, 0o755)
			},
		})
	}
	return checkers
}

// Run executes the dictation loop and, when configured, the HTTP endpoint.
// It blocks until ctx is cancelled or a subsystem fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.httpSrv != nil {
		g.Go(func() error {
			slog.Info("http endpoint listening", slog.String("addr", a.httpSrv.Addr))
			if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("app: http: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return a.httpSrv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		return a.runDictation(ctx)
	})

	return g.Wait()
}

// StopRecording requests a manual stop of the recording currently in
// progress, if any. Safe from any goroutine.
func (a *App) StopRecording() {
	a.mu.Lock()
	cur := a.cur
	a.mu.Unlock()
	if cur != nil {
		cur.RequestStop()
	}
}

// Shutdown releases all resources. Safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	a.stopOnce.Do(func() {
		if a.httpSrv != nil {
			if err := a.httpSrv.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		for _, close := range a.closers {
			if err := close(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}
