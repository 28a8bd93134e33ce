package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/scrive/internal/config"
	"github.com/MrWong99/scrive/internal/store"
	"github.com/MrWong99/scrive/pkg/audio"
	audiomock "github.com/MrWong99/scrive/pkg/audio/mock"
	"github.com/MrWong99/scrive/pkg/record"
	"github.com/MrWong99/scrive/pkg/transcribe"
	transcribemock "github.com/MrWong99/scrive/pkg/transcribe/mock"
	vadmock "github.com/MrWong99/scrive/pkg/vad/mock"
	wavmock "github.com/MrWong99/scrive/pkg/wav/mock"
)

// Frames are 32ms at the default rate. Two speech frames validate an
// utterance, five silent frames reach max silence.
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.VAD.MinSpeechMs = 64
	cfg.VAD.SilenceShortMs = 96
	cfg.VAD.SilenceLongMs = 128
	cfg.VAD.SilenceMaxMs = 160
	cfg.Transcription.Provider = config.ProviderOpenAI
	cfg.Transcription.Language = "en"
	return cfg
}

type fixture struct {
	app         *App
	src         *audiomock.Source
	scorer      *vadmock.Scorer
	writer      *wavmock.Writer
	transcriber *transcribemock.Provider
	history     *store.MemoryStore
}

func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()

	f := &fixture{
		src:         &audiomock.Source{},
		scorer:      &vadmock.Scorer{Probabilities: []float64{0.9, 0.9, 0.9, 0.0}},
		writer:      &wavmock.Writer{Path: "/tmp/out.wav"},
		transcriber: &transcribemock.Provider{Result: transcribe.Result{Text: "hello world"}},
		history:     store.NewMemoryStore(),
	}
	a, err := New(context.Background(), cfg,
		WithSource(f.src),
		WithScorer(f.scorer),
		WithWriter(f.writer),
		WithTranscriber(f.transcriber),
		WithHistory(f.history),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.app = a
	return f
}

func waitSub(t *testing.T, src *audiomock.Source) *audiomock.Subscription {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sub := src.Last(); sub != nil {
			return sub
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("source was never subscribed")
	return nil
}

func chunk(amp float32) []float32 {
	samples := make([]float32, 512)
	for i := range samples {
		samples[i] = amp
	}
	return samples
}

type dictateResult struct {
	d   Dictation
	err error
}

func dictate(f *fixture, ctx context.Context) <-chan dictateResult {
	ch := make(chan dictateResult, 1)
	go func() {
		d, err := f.app.DictateOnce(ctx)
		ch <- dictateResult{d, err}
	}()
	return ch
}

func await(t *testing.T, ch <-chan dictateResult) dictateResult {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("dictation did not finish")
		return dictateResult{}
	}
}

func TestDictateOnceRecordsAndTranscribes(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()

	ch := dictate(f, ctx)
	sub := waitSub(t, f.src)
	for i := 0; i < 3; i++ {
		if !sub.Push(chunk(0.5), audio.Status{}) {
			t.Fatalf("speech chunk %d was rejected", i)
		}
	}
	for i := 0; i < 20 && sub.Push(chunk(0), audio.Status{}); i++ {
	}

	res := await(t, ch)
	if res.err != nil {
		t.Fatalf("DictateOnce: %v", res.err)
	}
	if res.d.Path != "/tmp/out.wav" {
		t.Errorf("path = %q, want /tmp/out.wav", res.d.Path)
	}
	if res.d.Text != "hello world" {
		t.Errorf("text = %q, want %q", res.d.Text, "hello world")
	}

	if len(f.writer.WriteCalls) != 1 {
		t.Fatalf("writer called %d times, want 1", len(f.writer.WriteCalls))
	}
	if len(f.transcriber.TranscribeCalls) != 1 {
		t.Fatalf("transcriber called %d times, want 1", len(f.transcriber.TranscribeCalls))
	}
	req := f.transcriber.TranscribeCalls[0]
	if req.Path != "/tmp/out.wav" || req.Language != "en" {
		t.Errorf("transcribe request = %+v", req)
	}

	recs, err := f.history.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("history has %d recordings, want 1", len(recs))
	}
	got := recs[0]
	if got.ID != res.d.ID {
		t.Errorf("history ID = %v, want %v", got.ID, res.d.ID)
	}
	if got.Text != "hello world" {
		t.Errorf("history text = %q, want %q", got.Text, "hello world")
	}
	if got.Provider != config.ProviderOpenAI {
		t.Errorf("history provider = %q, want %q", got.Provider, config.ProviderOpenAI)
	}
}

func TestDictateOnceEmptyRecording(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()

	ch := dictate(f, ctx)
	sub := waitSub(t, f.src)
	f.app.StopRecording()
	sub.Push(chunk(0), audio.Status{})

	res := await(t, ch)
	if !errors.Is(res.err, record.ErrEmptyRecording) {
		t.Fatalf("err = %v, want ErrEmptyRecording", res.err)
	}
	if len(f.writer.WriteCalls) != 0 {
		t.Errorf("writer called for an empty recording")
	}
	recs, _ := f.history.List(ctx, 0)
	if len(recs) != 0 {
		t.Errorf("history has %d recordings, want 0", len(recs))
	}
}

func TestDictateOnceKeepsRecordingWhenTranscriptionFails(t *testing.T) {
	f := newFixture(t, testConfig())
	f.transcriber.TranscribeErr = errors.New("provider down")
	ctx := context.Background()

	ch := dictate(f, ctx)
	sub := waitSub(t, f.src)
	for i := 0; i < 3; i++ {
		sub.Push(chunk(0.5), audio.Status{})
	}
	for i := 0; i < 20 && sub.Push(chunk(0), audio.Status{}); i++ {
	}

	res := await(t, ch)
	if res.err != nil {
		t.Fatalf("DictateOnce: %v", res.err)
	}
	if res.d.Text != "" {
		t.Errorf("text = %q, want empty", res.d.Text)
	}
	recs, err := f.history.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("history has %d recordings, want 1", len(recs))
	}
	if recs[0].Text != "" {
		t.Errorf("history text = %q, want empty", recs[0].Text)
	}
}

func TestDictateOnceSalvagesAfterScorerFailure(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()
	scoreErr := errors.New("onnx session lost")

	ch := dictate(f, ctx)
	sub := waitSub(t, f.src)
	for i := 0; i < 3; i++ {
		sub.Push(chunk(0.5), audio.Status{})
	}
	f.scorer.ScoreErr = scoreErr
	sub.Push(chunk(0.5), audio.Status{})

	res := await(t, ch)
	if !errors.Is(res.err, scoreErr) {
		t.Fatalf("err = %v, want wrapped scorer failure", res.err)
	}
	if len(f.writer.WriteCalls) != 1 {
		t.Fatalf("writer called %d times, want 1 salvage write", len(f.writer.WriteCalls))
	}
	if got, want := len(f.writer.WriteCalls[0].Samples), 4*512; got != want {
		t.Errorf("salvaged sample count = %d, want %d", got, want)
	}
	recs, _ := f.history.List(ctx, 0)
	if len(recs) != 1 {
		t.Fatalf("history has %d recordings, want 1 salvaged entry", len(recs))
	}
	if len(f.transcriber.TranscribeCalls) != 0 {
		t.Errorf("salvaged recording must not be transcribed")
	}
}

func TestDictateOnceForwardsStatus(t *testing.T) {
	var statuses []record.Status
	f := &fixture{
		src:         &audiomock.Source{},
		scorer:      &vadmock.Scorer{Probabilities: []float64{0.9, 0.9, 0.9, 0.0}},
		writer:      &wavmock.Writer{},
		transcriber: &transcribemock.Provider{},
		history:     store.NewMemoryStore(),
	}
	a, err := New(context.Background(), testConfig(),
		WithSource(f.src),
		WithScorer(f.scorer),
		WithWriter(f.writer),
		WithTranscriber(f.transcriber),
		WithHistory(f.history),
		WithStatusFunc(func(st record.Status) { statuses = append(statuses, st) }),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.app = a

	ch := dictate(f, context.Background())
	sub := waitSub(t, f.src)
	for i := 0; i < 3; i++ {
		sub.Push(chunk(0.5), audio.Status{})
	}
	for i := 0; i < 20 && sub.Push(chunk(0), audio.Status{}); i++ {
	}
	if res := await(t, ch); res.err != nil {
		t.Fatalf("DictateOnce: %v", res.err)
	}

	if len(statuses) == 0 {
		t.Fatal("status callback never fired")
	}
	if got := statuses[0].Probability; got != 0.9 {
		t.Errorf("first status probability = %v, want 0.9", got)
	}
	last := statuses[len(statuses)-1]
	if !last.ValidSpeech {
		t.Error("final status should report validated speech")
	}
}

func TestNewRejectsUnknownScorer(t *testing.T) {
	cfg := testConfig()
	cfg.VAD.Scorer = "bogus"
	_, err := New(context.Background(), cfg,
		WithSource(&audiomock.Source{}),
		WithWriter(&wavmock.Writer{}),
		WithHistory(store.NewMemoryStore()),
	)
	if err == nil {
		t.Fatal("expected error for unknown scorer")
	}
}

func TestShutdownRunsClosers(t *testing.T) {
	f := newFixture(t, testConfig())
	closed := 0
	f.app.closers = append(f.app.closers, func() error {
		closed++
		return nil
	})

	if err := f.app.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if closed != 1 {
		t.Errorf("closer ran %d times, want 1", closed)
	}
	// A second Shutdown must not run the closers again.
	if err := f.app.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
	if closed != 1 {
		t.Errorf("closer ran %d times after repeat shutdown, want 1", closed)
	}
}
