// Package wav encodes mono float PCM to 16-bit WAV files.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/MrWong99/scrive/pkg/audio"
)

// Writer persists a finished recording and returns where it was written.
type Writer interface {
	// Write stores samples as a mono recording at sampleRate and returns
	// the path of the created file.
	Write(samples []float32, sampleRate int) (string, error)
}

// Encode writes samples as a 16-bit PCM mono WAV stream.
func Encode(w io.Writer, samples []float32, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("wav: sample rate %d must be positive", sampleRate)
	}
	data := audio.Int16sToBytes(audio.Float32ToInt16(samples))

	var header [44]byte
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+len(data)))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], 1) // mono
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(header[32:34], 2)  // block align
	binary.LittleEndian.PutUint16(header[34:36], 16) // bits per sample
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(data)))

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("wav: write header: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("wav: write data: %w", err)
	}
	return nil
}

// Decode reads a 16-bit PCM mono WAV stream and returns the samples and
// sample rate. It accepts only the format Encode produces.
func Decode(r io.Reader) ([]float32, int, error) {
	var header [44]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, 0, fmt.Errorf("wav: read header: %w", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return nil, 0, errors.New("wav: not a RIFF/WAVE stream")
	}
	if format := binary.LittleEndian.Uint16(header[20:22]); format != 1 {
		return nil, 0, fmt.Errorf("wav: unsupported format %d, want PCM", format)
	}
	if ch := binary.LittleEndian.Uint16(header[22:24]); ch != 1 {
		return nil, 0, fmt.Errorf("wav: unsupported channel count %d, want mono", ch)
	}
	if bits := binary.LittleEndian.Uint16(header[34:36]); bits != 16 {
		return nil, 0, fmt.Errorf("wav: unsupported bit depth %d, want 16", bits)
	}
	sampleRate := int(binary.LittleEndian.Uint32(header[24:28]))
	size := binary.LittleEndian.Uint32(header[40:44])

	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, 0, fmt.Errorf("wav: read data: %w", err)
	}
	return audio.Int16ToFloat32(audio.BytesToInt16s(data)), sampleRate, nil
}

// FileWriter writes timestamped recordings into a directory, falling back to
// the system temp directory when the configured one is not writable.
type FileWriter struct {
	// Dir is the target directory. It is created if missing.
	Dir string

	// Now supplies the timestamp for file names. Defaults to time.Now.
	Now func() time.Time
}

// Write stores the recording as recording_YYYYMMDD_HHMMSS.wav under Dir.
func (fw *FileWriter) Write(samples []float32, sampleRate int) (string, error) {
	now := time.Now
	if fw.Now != nil {
		now = fw.Now
	}
	name := "recording_" + now().Format("20060102_150405") + ".wav"

	dir := fw.Dir
	if dir == "" {
		dir = "."
	}
	f, err := createIn(dir, name)
	if err != nil {
		fallback := filepath.Join(os.TempDir(), "scrive")
		f, err = createIn(fallback, name)
		if err != nil {
			return "", fmt.Errorf("wav: create file: %w", err)
		}
	}

	if err := Encode(f, samples, sampleRate); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("wav: close file: %w", err)
	}
	return f.Name(), nil
}

func createIn(dir, name string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return os.Create(filepath.Join(dir, name))
}
