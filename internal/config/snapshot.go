// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DeviceRef is the raw DEVICE_ID value. It stays unparsed until device
// selection so a malformed id degrades to the fallback device instead of
// rejecting the whole file.
type DeviceRef string

// UnmarshalYAML accepts any scalar (int, string, float) as a device reference.
func (d *DeviceRef) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("DEVICE_ID must be a scalar, got yaml kind %d", value.Kind)
	}
	*d = DeviceRef(strings.TrimSpace(value.Value))
	return nil
}

// Index parses the reference as a device index.
func (d DeviceRef) Index() (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(string(d)))
	if err != nil {
		return 0, fmt.Errorf("could not parse device id %q: %w", string(d), err)
	}
	return id, nil
}

// Snapshot is the read-only view of the settings the capture pipeline
// consumes in one cycle. It is a value; a reload replaces it wholesale.
type Snapshot struct {
	DeviceID           DeviceRef
	SampleRate         float64
	FramesPerBuffer    int
	FFTBinCount        int
	MinVolumeThreshold float64
}

// Snapshot extracts the pipeline settings from the full configuration.
func (c *Config) Snapshot() Snapshot {
	return Snapshot{
		DeviceID:           c.General.DeviceID,
		SampleRate:         c.General.SampleRate,
		FramesPerBuffer:    c.General.FramesPerBuffer,
		FFTBinCount:        c.General.FFTBinCount,
		MinVolumeThreshold: c.General.MinVolumeThreshold,
	}
}
