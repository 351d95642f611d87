// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// Stream is an open hardware stream. *portaudio.Stream satisfies it.
type Stream interface {
	Start() error
	Stop() error
	Close() error
}

// StreamParams describes a mono int16 input stream.
type StreamParams struct {
	Device          DeviceDescriptor
	SampleRate      float64
	FramesPerBuffer int
}

// StreamOpener opens an input stream that invokes callback once per buffer
// on the driver's own thread. The callback must not block.
type StreamOpener func(params StreamParams, callback func(in []int16)) (Stream, error)

// OpenPortAudioStream is the StreamOpener backed by PortAudio. The device is
// looked up by index in the current PortAudio enumeration.
func OpenPortAudioStream(params StreamParams, callback func(in []int16)) (Stream, error) {
	infos, err := paDevices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	if params.Device.ID < 0 || params.Device.ID >= len(infos) {
		return nil, fmt.Errorf("invalid device ID: %d", params.Device.ID)
	}
	info := infos[params.Device.ID]
	if info.MaxInputChannels < 1 {
		return nil, fmt.Errorf("device %d (%s) does not support input", params.Device.ID, info.Name)
	}

	p := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 1,
			Device:   info,
			Latency:  info.DefaultLowInputLatency,
		},
		FramesPerBuffer: params.FramesPerBuffer,
		SampleRate:      params.SampleRate,
	}

	stream, err := portaudio.OpenStream(p, callback)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream on device %d: %w", params.Device.ID, err)
	}
	return stream, nil
}
