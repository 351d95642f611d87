// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
log_level: debug
general_settings:
  DEVICE_ID: 2
  DEFAULT_SAMPLE_RATE: 48000
  FRAMES_PER_BUFFER: 1024
  N_FFT_BINS: 32
  MIN_VOLUME_THRESHOLD: 0.01
processing:
  target_fps: 60
  outbound_queue_size: 4
  evict_timeout: 20ms
`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("")
	if err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoadConfig_UnmarshalError(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, ":\n:bad")
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Error("expected unmarshal error, got nil or wrong error")
	}
}

func TestLoadConfig_GeneralSettings(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig(writeTempConfig(t, sampleConfig))
	require.NoError(t, err)

	snap := cfg.Snapshot()
	assert.Equal(t, DeviceRef("2"), snap.DeviceID)
	assert.Equal(t, 48000.0, snap.SampleRate)
	assert.Equal(t, 1024, snap.FramesPerBuffer)
	assert.Equal(t, 32, snap.FFTBinCount)
	assert.Equal(t, 0.01, snap.MinVolumeThreshold)

	// Unset keys keep their defaults.
	assert.Equal(t, 60, cfg.Processing.TargetFPS)
	assert.Equal(t, 4, cfg.Processing.OutboundQueueSize)
	assert.Equal(t, 20*time.Millisecond, cfg.Processing.EvictTimeout)
	assert.Equal(t, DefaultIntakeTimeout, cfg.Processing.IntakeTimeout)
}

func TestLoadConfig_MalformedDeviceIDIsNotFatal(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, "general_settings:\n  DEVICE_ID: usb-mic\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	_, err = cfg.General.DeviceID.Index()
	assert.Error(t, err)
}

func TestLoadConfig_ValidationError(t *testing.T) {
	t.Parallel()
	path := writeTempConfig(t, "general_settings:\n  N_FFT_BINS: 0\n")

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ENV_DEVICE_ID", " 5 ")
	t.Setenv("ENV_UDP_ENABLED", "true")
	t.Setenv("ENV_UDP_TARGET_ADDRESS", "10.0.0.2:7000")

	cfg, err := LoadConfig(writeTempConfig(t, sampleConfig))
	require.NoError(t, err)

	id, err := cfg.General.DeviceID.Index()
	require.NoError(t, err)
	assert.Equal(t, 5, id)
	assert.True(t, cfg.Transport.UDPEnabled)
	assert.Equal(t, "10.0.0.2:7000", cfg.Transport.UDPTargetAddress)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"sample rate too low", func(c *Config) { c.General.SampleRate = 100 }, false},
		{"zero frames", func(c *Config) { c.General.FramesPerBuffer = 0 }, false},
		{"too many bins", func(c *Config) { c.General.FFTBinCount = MaxFFTBinCount + 1 }, false},
		{"negative threshold", func(c *Config) { c.General.MinVolumeThreshold = -1 }, false},
		{"zero fps", func(c *Config) { c.Processing.TargetFPS = 0 }, false},
		{"zero outbound", func(c *Config) { c.Processing.OutboundQueueSize = 0 }, false},
		{"udp without port", func(c *Config) {
			c.Transport.UDPEnabled = true
			c.Transport.UDPTargetAddress = "localhost"
		}, false},
		{"metrics path", func(c *Config) { c.Metrics.Path = "metrics" }, false},
		{"bad device id is allowed", func(c *Config) { c.General.DeviceID = "abc" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalid)
			}
		})
	}
}

func TestExampleConfigMatchesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "..", "config.example.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}
