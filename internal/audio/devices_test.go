// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visaudio/internal/config"
	"visaudio/internal/log"
)

func fakeInfos() []*portaudio.DeviceInfo {
	return []*portaudio.DeviceInfo{
		{Name: "Built-in Microphone", MaxInputChannels: 1, DefaultSampleRate: 44100,
			DefaultLowInputLatency: 3 * time.Millisecond, DefaultHighInputLatency: 12 * time.Millisecond,
			HostApi: &portaudio.HostApiInfo{Name: "Core Audio"}},
		{Name: "Built-in Output", MaxOutputChannels: 2, DefaultSampleRate: 48000},
		{Name: "USB Interface", MaxInputChannels: 2, MaxOutputChannels: 2, DefaultSampleRate: 96000},
	}
}

func stubDevices(t *testing.T, fn func() ([]*portaudio.DeviceInfo, error)) {
	t.Helper()
	orig := paLibDevicesFunc
	paLibDevicesFunc = fn
	t.Cleanup(func() { paLibDevicesFunc = orig })
}

func TestPortAudioCatalog(t *testing.T) {
	stubDevices(t, func() ([]*portaudio.DeviceInfo, error) { return fakeInfos(), nil })

	devices, err := PortAudioCatalog{}.Devices()
	require.NoError(t, err)
	require.Len(t, devices, 3)

	for i, d := range devices {
		assert.Equal(t, i, d.ID)
		assert.NotEmpty(t, d.Name)
	}
	assert.Equal(t, "Core Audio", devices[0].HostAPI)
	assert.Equal(t, "Input", devices[0].Kind())
	assert.Equal(t, "Output", devices[1].Kind())
	assert.Equal(t, "Input/Output", devices[2].Kind())
	assert.Equal(t, 3*time.Millisecond, devices[0].DefaultLowInputLatency)
}

func TestPortAudioCatalogError(t *testing.T) {
	stubDevices(t, func() ([]*portaudio.DeviceInfo, error) { return nil, fmt.Errorf("mock error") })

	_, err := PortAudioCatalog{}.Devices()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mock error")
}

func TestNilDevices(t *testing.T) {
	stubDevices(t, func() ([]*portaudio.DeviceInfo, error) { return nil, nil })

	devices, err := paDevices()
	require.NoError(t, err)
	assert.NotNil(t, devices)
	assert.Empty(t, devices)
}

func TestErrorInitialize(t *testing.T) {
	orig := paLibInitialize
	defer func() { paLibInitialize = orig }()

	paLibInitialize = func() error { return nil }
	assert.NoError(t, Initialize())

	paLibInitialize = func() error { return fmt.Errorf("mock init error") }
	err := Initialize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mock init error")
}

func TestErrorTerminate(t *testing.T) {
	orig := paLibTerminate
	defer func() { paLibTerminate = orig }()

	paLibTerminate = func() error { return nil }
	assert.NoError(t, Terminate())

	paLibTerminate = func() error { return fmt.Errorf("mock term error") }
	err := Terminate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mock term error")
}

func TestListDevices(t *testing.T) {
	stubDevices(t, func() ([]*portaudio.DeviceInfo, error) { return fakeInfos(), nil })

	var buf bytes.Buffer
	require.NoError(t, ListDevices(&buf, PortAudioCatalog{}))

	out := buf.String()
	assert.Contains(t, out, "[0] Built-in Microphone (Input)")
	assert.Contains(t, out, "[2] USB Interface (Input/Output)")
	assert.Contains(t, out, "Latency: Low=3.00ms, High=12.00ms")
}

func TestOpenPortAudioStreamRejectsBadDevice(t *testing.T) {
	stubDevices(t, func() ([]*portaudio.DeviceInfo, error) { return fakeInfos(), nil })

	noop := func([]int16) {}

	_, err := OpenPortAudioStream(StreamParams{Device: DeviceDescriptor{ID: 9}}, noop)
	assert.ErrorContains(t, err, "invalid device ID")

	_, err = OpenPortAudioStream(StreamParams{Device: DeviceDescriptor{ID: 1}}, noop)
	assert.ErrorContains(t, err, "does not support input")
}

func threeDevices() []DeviceDescriptor {
	return []DeviceDescriptor{
		{ID: 0, Name: "zero", MaxInputChannels: 1},
		{ID: 1, Name: "one", MaxInputChannels: 1},
		{ID: 2, Name: "two", MaxInputChannels: 1},
	}
}

func TestResolveDevice(t *testing.T) {
	tests := []struct {
		name   string
		ref    config.DeviceRef
		wantID int
	}{
		{"exact match", "1", 1},
		{"missing id falls back to first", "7", 0},
		{"negative id falls back to first", "-1", 0},
		{"unparsable id uses index zero", "mic", 0},
		{"padded id", " 2 ", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ResolveDevice(threeDevices(), tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, d.ID)
		})
	}
}

func TestResolveDeviceIsIdempotent(t *testing.T) {
	devices := threeDevices()
	a, err := ResolveDevice(devices, "7")
	require.NoError(t, err)
	b, err := ResolveDevice(devices, "7")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestResolveDeviceFallbackBanner(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	_, err := ResolveDevice(threeDevices(), "7")
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Could not find the mic with the id: 7")
	assert.Contains(t, out, "Using the first mic as fallback.")
	assert.Equal(t, 6, strings.Count(out, `"level":"warn"`))
}

func TestResolveDeviceEmpty(t *testing.T) {
	_, err := ResolveDevice(nil, "0")
	assert.ErrorIs(t, err, ErrNoDevices)
}
