// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"io"

	"github.com/gordonklaus/portaudio"
)

// PortAudio entry points, swapped out by tests.
var (
	paLibInitialize  = portaudio.Initialize
	paLibTerminate   = portaudio.Terminate
	paLibDevicesFunc = portaudio.Devices
)

// Initialize sets up the PortAudio subsystem.
// This must be called before any audio operations and paired with a Terminate() call.
func Initialize() error {
	if err := paLibInitialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate cleanly shuts down the PortAudio subsystem.
func Terminate() error {
	if err := paLibTerminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// paDevices never returns a nil slice without an error.
func paDevices() ([]*portaudio.DeviceInfo, error) {
	devices, err := paLibDevicesFunc()
	if err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []*portaudio.DeviceInfo{}
	}
	return devices, nil
}

// PortAudioCatalog enumerates devices through PortAudio. IDs are PortAudio
// device indices, which is what DEVICE_ID refers to.
type PortAudioCatalog struct{}

// Devices implements DeviceCatalog.
func (PortAudioCatalog) Devices() ([]DeviceDescriptor, error) {
	infos, err := paDevices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}

	devices := make([]DeviceDescriptor, len(infos))
	for i, info := range infos {
		devices[i] = descriptorFromInfo(i, info)
	}
	return devices, nil
}

func descriptorFromInfo(id int, info *portaudio.DeviceInfo) DeviceDescriptor {
	d := DeviceDescriptor{
		ID:                      id,
		Name:                    info.Name,
		MaxInputChannels:        info.MaxInputChannels,
		MaxOutputChannels:       info.MaxOutputChannels,
		DefaultSampleRate:       info.DefaultSampleRate,
		DefaultLowInputLatency:  info.DefaultLowInputLatency,
		DefaultHighInputLatency: info.DefaultHighInputLatency,
	}
	if info.HostApi != nil {
		d.HostAPI = info.HostApi.Name
	}
	return d
}

// ListDevices writes a human-readable table of every device in catalog.
func ListDevices(w io.Writer, catalog DeviceCatalog) error {
	devices, err := catalog.Devices()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\nAvailable Audio Devices\n\n")

	for _, device := range devices {
		fmt.Fprintf(w, "[%d] %s (%s)\n", device.ID, device.Name, device.Kind())
		fmt.Fprintf(w, "    Input channels: %d, Output channels: %d\n", device.MaxInputChannels, device.MaxOutputChannels)
		fmt.Fprintf(w, "    Default sample rate: %.0f Hz\n", device.DefaultSampleRate)
		fmt.Fprintf(w, "    Latency: Low=%.2fms, High=%.2fms\n",
			device.DefaultLowInputLatency.Seconds()*1000,
			device.DefaultHighInputLatency.Seconds()*1000)
		fmt.Fprintln(w)
	}

	return nil
}
