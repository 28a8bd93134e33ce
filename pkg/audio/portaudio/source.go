// Package portaudio captures microphone audio through PortAudio and delivers
// it as an [audio.Source].
//
// Each Subscribe call initializes PortAudio, opens one input stream and runs
// a blocking read loop on its own goroutine until the subscriber stops,
// Unsubscribe is called or the device fails. PortAudio reference-counts
// Initialize/Terminate, so concurrent subscriptions are safe.
package portaudio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/MrWong99/scrive/pkg/audio"
)

var _ audio.Source = (*Source)(nil)

// Source opens PortAudio input streams.
type Source struct {
	// DeviceName selects the capture device by case-insensitive substring
	// match against the PortAudio device name. Empty selects the system
	// default input.
	DeviceName string

	// Logger receives capture lifecycle events. Defaults to slog.Default.
	Logger *slog.Logger
}

// Subscribe opens the capture stream and starts delivering frames to fn.
func (s *Source) Subscribe(cfg audio.StreamConfig, fn audio.FrameFunc) (audio.Subscription, error) {
	if cfg.SampleRate <= 0 || cfg.FrameSize <= 0 {
		return nil, fmt.Errorf("portaudio: invalid stream config %+v", cfg)
	}
	channels := cfg.Channels
	if channels == 0 {
		channels = 1
	}
	if channels > 2 {
		return nil, fmt.Errorf("portaudio: %d channels not supported, want 1 or 2", channels)
	}
	log := s.Logger
	if log == nil {
		log = slog.Default()
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: initialize: %w", err)
	}

	buf := make([]float32, cfg.FrameSize*channels)
	stream, device, err := s.openStream(cfg, channels, buf)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("portaudio: start stream: %w", err)
	}
	log.Info("capture stream opened",
		slog.String("device", device),
		slog.Int("sample_rate", cfg.SampleRate),
		slog.Int("frame_size", cfg.FrameSize),
		slog.Int("channels", channels))

	sub := &subscription{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go s.readLoop(sub, stream, buf, channels, fn, log)
	return sub, nil
}

func (s *Source) openStream(cfg audio.StreamConfig, channels int, buf []float32) (*portaudio.Stream, string, error) {
	if s.DeviceName == "" {
		stream, err := portaudio.OpenDefaultStream(channels, 0, float64(cfg.SampleRate), cfg.FrameSize, buf)
		if err != nil {
			return nil, "", fmt.Errorf("portaudio: open default stream: %w", err)
		}
		return stream, "default", nil
	}

	dev, err := findInputDevice(s.DeviceName)
	if err != nil {
		return nil, "", err
	}
	params := portaudio.HighLatencyParameters(dev, nil)
	params.Input.Channels = channels
	params.SampleRate = float64(cfg.SampleRate)
	params.FramesPerBuffer = cfg.FrameSize
	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return nil, "", fmt.Errorf("portaudio: open stream on %q: %w", dev.Name, err)
	}
	return stream, dev.Name, nil
}

// readLoop blocks on the device and forwards each buffer to fn. Stereo
// buffers are folded to mono before delivery, so subscribers always see
// cfg.FrameSize samples.
func (s *Source) readLoop(sub *subscription, stream *portaudio.Stream, buf []float32, channels int, fn audio.FrameFunc, log *slog.Logger) {
	defer func() {
		stream.Close()
		portaudio.Terminate()
		close(sub.done)
	}()

	for {
		select {
		case <-sub.stop:
			return
		default:
		}

		err := stream.Read()
		overflow := errors.Is(err, portaudio.InputOverflowed)
		if err != nil && !overflow {
			sub.setErr(fmt.Errorf("portaudio: read stream: %w", err))
			return
		}

		samples := buf
		if channels == 2 {
			samples = audio.StereoToMono(buf)
		}
		if !fn(samples, audio.Status{InputOverflow: overflow}) {
			log.Debug("subscriber stopped capture")
			return
		}
	}
}

type subscription struct {
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	mu  sync.Mutex
	err error
}

func (sub *subscription) Unsubscribe() error {
	sub.stopOnce.Do(func() { close(sub.stop) })
	<-sub.done
	return nil
}

func (sub *subscription) Done() <-chan struct{} { return sub.done }

func (sub *subscription) Err() error {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.err
}

func (sub *subscription) setErr(err error) {
	sub.mu.Lock()
	sub.err = err
	sub.mu.Unlock()
}
