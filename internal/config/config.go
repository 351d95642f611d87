// SPDX-License-Identifier: MIT
package config

import "time"

// Core configuration constants that define the boundaries and defaults
// for the capture and processing pipeline.
const (
	// general_settings defaults
	DefaultDeviceID           = 0     // First enumerated device
	DefaultSampleRate         = 44100 // CD-quality audio
	DefaultFramesPerBuffer    = 512   // Balanced latency/performance
	DefaultFFTBinCount        = 24    // Spectral bins per feature vector
	DefaultMinVolumeThreshold = 0.001 // Below this the bins fade to zero

	// processing defaults
	DefaultTargetFPS        = 120
	DefaultOutboundQueue    = 2
	DefaultCommandQueue     = 16
	DefaultIntakeTimeout    = time.Second
	DefaultEvictTimeout     = 33 * time.Millisecond
	DefaultRateLogInterval  = 10 * time.Second
	DefaultFFTWindow        = "hann"
	DefaultWebSocketAddress = ":8080"
	DefaultUDPTarget        = "127.0.0.1:9090"
	DefaultUDPMinInterval   = 16 * time.Millisecond
	DefaultMetricsPath      = "/metrics"

	// IntakeQueueCapacity is fixed; a deeper intake only adds latency.
	IntakeQueueCapacity = 2

	// Hardware and processing limits
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames = 8192   // Maximum frames per buffer
	MaxFFTBinCount  = 1024
)

// Default returns the built-in configuration used when no file is found.
func Default() Config {
	return Config{
		LogLevel: "info",
		General: GeneralSettings{
			DeviceID:           DeviceRef("0"),
			SampleRate:         DefaultSampleRate,
			FramesPerBuffer:    DefaultFramesPerBuffer,
			FFTBinCount:        DefaultFFTBinCount,
			MinVolumeThreshold: DefaultMinVolumeThreshold,
		},
		Processing: ProcessingConfig{
			TargetFPS:         DefaultTargetFPS,
			OutboundQueueSize: DefaultOutboundQueue,
			CommandQueueSize:  DefaultCommandQueue,
			IntakeTimeout:     DefaultIntakeTimeout,
			EvictTimeout:      DefaultEvictTimeout,
			RateLogInterval:   DefaultRateLogInterval,
			FFTWindow:         DefaultFFTWindow,
		},
		Transport: TransportConfig{
			WebSocketEnabled: true,
			WebSocketAddress: DefaultWebSocketAddress,
			UDPEnabled:       false,
			UDPTargetAddress: DefaultUDPTarget,
			UDPMinInterval:   DefaultUDPMinInterval,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    DefaultMetricsPath,
		},
	}
}
