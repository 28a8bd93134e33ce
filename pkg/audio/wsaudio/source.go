// Package wsaudio captures audio from a remote recorder over WebSocket and
// delivers it as an [audio.Source].
//
// The client dials the recorder, sends one JSON handshake describing the
// stream it wants, then receives binary messages carrying either raw
// little-endian PCM16 or Opus packets. This is how a thin capture daemon on
// another machine (or a browser) feeds the dictation pipeline.
package wsaudio

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/coder/websocket"
	"layeh.com/gopus"

	"github.com/MrWong99/scrive/pkg/audio"
)

// Supported wire codecs.
const (
	CodecPCM16 = "pcm16"
	CodecOpus  = "opus"
)

var _ audio.Source = (*Source)(nil)

// Source streams capture audio from a remote WebSocket endpoint.
type Source struct {
	// URL is the ws:// or wss:// endpoint of the recorder.
	URL string

	// Codec is the wire codec, CodecPCM16 or CodecOpus. Defaults to
	// CodecPCM16.
	Codec string

	// Logger receives stream lifecycle events. Defaults to slog.Default.
	Logger *slog.Logger
}

// handshake is the first message sent to the recorder.
type handshake struct {
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	FrameSize  int    `json:"frame_size"`
	Codec      string `json:"codec"`
}

// Subscribe dials the recorder and starts delivering decoded frames to fn.
func (s *Source) Subscribe(cfg audio.StreamConfig, fn audio.FrameFunc) (audio.Subscription, error) {
	if s.URL == "" {
		return nil, fmt.Errorf("wsaudio: URL must not be empty")
	}
	if cfg.SampleRate <= 0 || cfg.FrameSize <= 0 {
		return nil, fmt.Errorf("wsaudio: invalid stream config %+v", cfg)
	}
	channels := cfg.Channels
	if channels == 0 {
		channels = 1
	}
	codec := s.Codec
	if codec == "" {
		codec = CodecPCM16
	}
	log := s.Logger
	if log == nil {
		log = slog.Default()
	}

	var dec *gopus.Decoder
	if codec == CodecOpus {
		var err error
		dec, err = gopus.NewDecoder(cfg.SampleRate, channels)
		if err != nil {
			return nil, fmt.Errorf("wsaudio: create opus decoder: %w", err)
		}
	} else if codec != CodecPCM16 {
		return nil, fmt.Errorf("wsaudio: unsupported codec %q", codec)
	}

	ctx, cancel := context.WithCancel(context.Background())
	conn, _, err := websocket.Dial(ctx, s.URL, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("wsaudio: dial %s: %w", s.URL, err)
	}

	hello, err := json.Marshal(handshake{
		SampleRate: cfg.SampleRate,
		Channels:   channels,
		FrameSize:  cfg.FrameSize,
		Codec:      codec,
	})
	if err != nil {
		cancel()
		conn.Close(websocket.StatusInternalError, "handshake")
		return nil, fmt.Errorf("wsaudio: marshal handshake: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, hello); err != nil {
		cancel()
		conn.Close(websocket.StatusInternalError, "handshake")
		return nil, fmt.Errorf("wsaudio: send handshake: %w", err)
	}
	log.Info("remote capture stream opened",
		slog.String("url", s.URL),
		slog.String("codec", codec),
		slog.Int("sample_rate", cfg.SampleRate))

	sub := &subscription{cancel: cancel, done: make(chan struct{})}
	go s.readLoop(ctx, sub, conn, dec, cfg, channels, fn)
	return sub, nil
}

func (s *Source) readLoop(ctx context.Context, sub *subscription, conn *websocket.Conn, dec *gopus.Decoder, cfg audio.StreamConfig, channels int, fn audio.FrameFunc) {
	defer close(sub.done)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return
			}
			sub.setErr(fmt.Errorf("wsaudio: read: %w", err))
			return
		}
		if typ != websocket.MessageBinary {
			continue
		}

		samples, err := s.decode(dec, data, cfg, channels)
		if err != nil {
			sub.setErr(err)
			return
		}
		if len(samples) == 0 {
			continue
		}
		if !fn(samples, audio.Status{}) {
			return
		}
	}
}

func (s *Source) decode(dec *gopus.Decoder, data []byte, cfg audio.StreamConfig, channels int) ([]float32, error) {
	var pcm []int16
	if dec != nil {
		var err error
		pcm, err = dec.Decode(data, cfg.FrameSize, false)
		if err != nil {
			return nil, fmt.Errorf("wsaudio: opus decode: %w", err)
		}
	} else {
		pcm = audio.BytesToInt16s(data)
	}
	samples := audio.Int16ToFloat32(pcm)
	if channels == 2 {
		samples = audio.StereoToMono(samples)
	}
	return samples, nil
}

type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

func (sub *subscription) Unsubscribe() error {
	sub.cancel()
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
