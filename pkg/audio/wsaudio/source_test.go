package wsaudio_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/MrWong99/scrive/pkg/audio"
	"github.com/MrWong99/scrive/pkg/audio/wsaudio"
)

// wsURL converts an httptest server HTTP URL to a WebSocket URL.
func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// startRecorder launches a test WebSocket server. The handler receives the
// accepted connection after the client handshake has been read and decoded.
func startRecorder(t *testing.T, handler func(conn *websocket.Conn, hello map[string]any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "done")

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var hello map[string]any
		if err := json.Unmarshal(data, &hello); err != nil {
			return
		}
		handler(conn, hello)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSubscribeSendsHandshake(t *testing.T) {
	var (
		mu    sync.Mutex
		hello map[string]any
	)
	srv := startRecorder(t, func(conn *websocket.Conn, h map[string]any) {
		mu.Lock()
		hello = h
		mu.Unlock()
	})

	src := &wsaudio.Source{URL: wsURL(srv)}
	sub, err := src.Subscribe(audio.StreamConfig{SampleRate: 16000, Channels: 1, FrameSize: 512},
		func([]float32, audio.Status) bool { return true })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	deadline := time.Now().Add(3 * time.Second)
	for {
		mu.Lock()
		got := hello
		mu.Unlock()
		if got != nil {
			if got["sample_rate"] != float64(16000) || got["codec"] != "pcm16" || got["frame_size"] != float64(512) {
				t.Errorf("handshake = %v", got)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("handshake never arrived")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSubscribeDeliversDecodedPCM(t *testing.T) {
	// Two PCM16 samples: 0x4000 (0.5) and 0xC000 (-0.5).
	payload := []byte{0x00, 0x40, 0x00, 0xc0}
	srv := startRecorder(t, func(conn *websocket.Conn, _ map[string]any) {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		conn.Write(ctx, websocket.MessageBinary, payload)
		// Keep the stream open until the client walks away.
		conn.Read(ctx)
	})

	frames := make(chan []float32, 1)
	src := &wsaudio.Source{URL: wsURL(srv)}
	sub, err := src.Subscribe(audio.StreamConfig{SampleRate: 16000, Channels: 1, FrameSize: 512},
		func(samples []float32, _ audio.Status) bool {
			cp := make([]float32, len(samples))
			copy(cp, samples)
			select {
			case frames <- cp:
			default:
			}
			return false
		})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	select {
	case got := <-frames:
		if len(got) != 2 {
			t.Fatalf("delivered %d samples, want 2", len(got))
		}
		if got[0] != 0.5 || got[1] != -0.5 {
			t.Errorf("samples = %v, want [0.5 -0.5]", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no frame delivered")
	}

	select {
	case <-sub.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("subscription not done after callback returned false")
	}
	if err := sub.Err(); err != nil {
		t.Errorf("Err() = %v, want nil after clean stop", err)
	}
}

func TestSubscribeRejectsBadInput(t *testing.T) {
	src := &wsaudio.Source{}
	if _, err := src.Subscribe(audio.StreamConfig{SampleRate: 16000, FrameSize: 512}, nil); err == nil {
		t.Error("expected error for empty URL")
	}

	src = &wsaudio.Source{URL: "ws://localhost:1", Codec: "mp3"}
	if _, err := src.Subscribe(audio.StreamConfig{SampleRate: 16000, FrameSize: 512}, nil); err == nil {
		t.Error("expected error for unsupported codec")
	}
}
