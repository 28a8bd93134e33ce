// Command scrive is the main entry point for the Scrive dictation engine.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrWong99/scrive/internal/app"
	"github.com/MrWong99/scrive/internal/config"
	"github.com/MrWong99/scrive/internal/observe"
	portaudiosrc "github.com/MrWong99/scrive/pkg/audio/portaudio"
	"github.com/MrWong99/scrive/pkg/record"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	listDevices := flag.Bool("list-devices", false, "list available audio input devices and exit")
	flag.Parse()

	if *listDevices {
		return printInputDevices()
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "scrive: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "scrive: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	slog.Info("scrive starting",
		"config", *configPath,
		"audio_source", cfg.Audio.Source,
		"scorer", cfg.VAD.Scorer,
		"transcription", cfg.Transcription.Provider,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "scrive",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	// ── Application ───────────────────────────────────────────────────────────
	application, err := app.New(ctx, cfg,
		app.WithStatusFunc(printStatus),
		app.WithResultFunc(printResult),
	)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// Enter on stdin stops the current recording by hand.
	go watchStdin(ctx, application)

	slog.Info("listening — speak to record, press Enter to stop a recording, Ctrl+C to quit")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║          Scrive — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printSetting("Audio", cfg.Audio.Source, cfg.Audio.Device)
	printSetting("Scorer", cfg.VAD.Scorer, cfg.VAD.ModelPath)
	printSetting("Output", cfg.Recording.OutputDir, "")
	printSetting("STT", cfg.Transcription.Provider, cfg.Transcription.Model)
	printSetting("History", cfg.History.Backend, "")
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printSetting(label, name, detail string) {
	if name == "" {
		name = "-"
	}
	line := fmt.Sprintf("  %-8s %s", label, name)
	if detail != "" {
		line += " (" + detail + ")"
	}
	fmt.Println(line)
}

// printStatus renders a single-line level meter on stderr. It is called for
// every classified frame.
func printStatus(st record.Status) {
	bar := int(st.Peak * 20)
	if bar > 20 {
		bar = 20
	}
	fmt.Fprintf(os.Stderr, "\r[%-10s] %-20s", st.State, meter(bar))
}

func meter(n int) string {
	const blocks = "████████████████████"
	return blocks[:n*len("█")]
}

// printResult writes the finished dictation to stdout, which is the primary
// output channel when scrive is used in a pipeline.
func printResult(d app.Dictation) {
	fmt.Fprint(os.Stderr, "\r\x1b[K")
	if d.Text != "" {
		fmt.Println(d.Text)
		return
	}
	slog.Info("recording saved",
		"path", d.Path,
		"duration", d.Duration.Round(time.Millisecond),
	)
}

// watchStdin turns every line on stdin into a manual stop request.
func watchStdin(ctx context.Context, application *app.App) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		application.StopRecording()
	}
}

func printInputDevices() int {
	devices, err := portaudiosrc.ListInputDevices()
	if err != nil {
		fmt.Fprintf(os.Stderr, "scrive: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Println("no audio input devices found")
		return 0
	}
	for _, d := range devices {
		marker := " "
		if d.Default {
			marker = "*"
		}
		fmt.Printf("%s [%d] %s (%d ch, %.0f Hz)\n",
			marker, d.Index, d.Name, d.MaxInputChannels, d.DefaultSampleRate)
	}
	return 0
}
