package portaudio

import (
	"fmt"
	"strings"

	"github.com/gordonklaus/portaudio"
)

// Device describes one capture-capable PortAudio device.
type Device struct {
	// Index is the PortAudio device index.
	Index int

	// Name is the device name reported by the host API.
	Name string

	// MaxInputChannels is the channel capacity of the device.
	MaxInputChannels int

	// DefaultSampleRate is the device's native sample rate in Hz.
	DefaultSampleRate float64

	// Default reports whether this is the system default input.
	Default bool
}

// ListInputDevices enumerates all devices that can capture audio.
func ListInputDevices() ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: initialize: %w", err)
	}
	defer portaudio.Terminate()

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("portaudio: list devices: %w", err)
	}
	def, _ := portaudio.DefaultInputDevice()

	var devices []Device
	for i, info := range infos {
		if info.MaxInputChannels < 1 {
			continue
		}
		devices = append(devices, Device{
			Index:             i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
			Default:           def != nil && info == def,
		})
	}
	return devices, nil
}

// findInputDevice returns the first capture device whose name contains name,
// ignoring case. Assumes PortAudio is initialized.
func findInputDevice(name string) (*portaudio.DeviceInfo, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("portaudio: list devices: %w", err)
	}
	needle := strings.ToLower(name)
	for _, info := range infos {
		if info.MaxInputChannels < 1 {
			continue
		}
		if strings.Contains(strings.ToLower(info.Name), needle) {
			return info, nil
		}
	}
	return nil, fmt.Errorf("portaudio: no capture device matches %q", name)
}
