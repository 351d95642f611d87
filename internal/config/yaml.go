// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	LogLevel   string           `yaml:"log_level"`        // Logging level (e.g., "debug", "info", "warn", "error").
	General    GeneralSettings  `yaml:"general_settings"` // Capture and feature settings consumed by the pipeline.
	Processing ProcessingConfig `yaml:"processing"`       // Loop cadence and queue sizing.
	Transport  TransportConfig  `yaml:"transport"`        // Where feature vectors are published.
	Metrics    MetricsConfig    `yaml:"metrics"`          // Prometheus exposition.
}

// GeneralSettings keeps the key names used by the visualizer configuration
// files this service reads.
type GeneralSettings struct {
	DeviceID           DeviceRef `yaml:"DEVICE_ID"`            // Input device index; parsed lazily so a bad value only triggers the fallback.
	SampleRate         float64   `yaml:"DEFAULT_SAMPLE_RATE"`  // Sample rate in Hz.
	FramesPerBuffer    int       `yaml:"FRAMES_PER_BUFFER"`    // Frames delivered per capture callback.
	FFTBinCount        int       `yaml:"N_FFT_BINS"`           // Number of spectral bins in each feature vector.
	MinVolumeThreshold float64   `yaml:"MIN_VOLUME_THRESHOLD"` // Volume gate threshold.
}

// ProcessingConfig holds settings for the rate-limited processing loop.
type ProcessingConfig struct {
	TargetFPS         int           `yaml:"target_fps"`          // Frame limiter target in iterations per second.
	OutboundQueueSize int           `yaml:"outbound_queue_size"` // Capacity of the feature vector queue.
	CommandQueueSize  int           `yaml:"command_queue_size"`  // Capacity of the command and event FIFOs.
	IntakeTimeout     time.Duration `yaml:"intake_timeout"`      // Bounded wait when popping a raw frame.
	EvictTimeout      time.Duration `yaml:"evict_timeout"`       // Bounded wait when evicting the oldest feature vector.
	RateLogInterval   time.Duration `yaml:"rate_log_interval"`   // Window of the rate monitors.
	FFTWindow         string        `yaml:"fft_window"`          // Window applied before the FFT ("hann", "hamming", ...).
}

// TransportConfig holds settings related to sending feature vectors to consumers.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`  // Serve feature vectors and accept commands on /ws.
	WebSocketAddress string        `yaml:"websocket_address"`  // Listen address of the HTTP server (e.g., ":8080").
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Enable sending feature packets over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port for UDP packets (e.g., "127.0.0.1:9090").
	UDPMinInterval   time.Duration `yaml:"udp_min_interval"`   // Minimum spacing between UDP packets.
}

// MetricsConfig controls the Prometheus endpoint mounted on the HTTP server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		candidates := []string{
			"config.yaml",
			"config.yml",
		}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return &cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks ranges that would otherwise surface as stream-open or DSP
// failures deep inside the pipeline. DEVICE_ID is deliberately not checked;
// an unusable id falls back to the first device at init time.
func (c *Config) Validate() error {
	g := c.General
	if g.SampleRate < MinSampleRate || g.SampleRate > MaxSampleRate {
		return fmt.Errorf("%w: DEFAULT_SAMPLE_RATE %.0f outside [%d, %d]", ErrInvalid, g.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if g.FramesPerBuffer <= 0 || g.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("%w: FRAMES_PER_BUFFER %d outside (0, %d]", ErrInvalid, g.FramesPerBuffer, MaxBufferFrames)
	}
	if g.FFTBinCount <= 0 || g.FFTBinCount > MaxFFTBinCount {
		return fmt.Errorf("%w: N_FFT_BINS %d outside (0, %d]", ErrInvalid, g.FFTBinCount, MaxFFTBinCount)
	}
	if g.MinVolumeThreshold < 0 {
		return fmt.Errorf("%w: MIN_VOLUME_THRESHOLD must not be negative", ErrInvalid)
	}

	p := c.Processing
	if p.TargetFPS <= 0 {
		return fmt.Errorf("%w: processing.target_fps must be positive", ErrInvalid)
	}
	if p.OutboundQueueSize <= 0 {
		return fmt.Errorf("%w: processing.outbound_queue_size must be positive", ErrInvalid)
	}
	if p.CommandQueueSize <= 0 {
		return fmt.Errorf("%w: processing.command_queue_size must be positive", ErrInvalid)
	}
	if p.IntakeTimeout <= 0 || p.EvictTimeout <= 0 || p.RateLogInterval <= 0 {
		return fmt.Errorf("%w: processing timeouts must be positive", ErrInvalid)
	}

	if c.Transport.UDPEnabled {
		if !strings.Contains(c.Transport.UDPTargetAddress, ":") {
			return fmt.Errorf("%w: transport.udp_target_address '%s' appears invalid (missing port?)", ErrInvalid, c.Transport.UDPTargetAddress)
		}
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("%w: metrics.path must start with '/'", ErrInvalid)
	}

	return nil
}

// applyEnvOverrides lets container deployments change the device and the
// transport without editing the file. Unparseable values are ignored.
func (cfg *Config) applyEnvOverrides() {
	// ENV_DEVICE_ID
	if val, ok := os.LookupEnv("ENV_DEVICE_ID"); ok {
		cfg.General.DeviceID = DeviceRef(strings.TrimSpace(val))
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		cfg.LogLevel = val
	}

	// ENV_UDP_{...}
	// These are specific to the transport layer.

	// ENV_UDP_ENABLED
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = bVal
		}
	}
	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
	}
	// ENV_WS_ADDRESS
	if val, ok := os.LookupEnv("ENV_WS_ADDRESS"); ok {
		cfg.Transport.WebSocketAddress = val
	}
}
