// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"time"

	"visaudio/internal/config"
	"visaudio/internal/log"
)

// ErrNoDevices is returned when the catalog enumerates nothing to fall back to.
var ErrNoDevices = errors.New("audio: no audio devices available")

// DeviceDescriptor describes one enumerated audio device.
type DeviceDescriptor struct {
	ID                      int
	Name                    string
	HostAPI                 string
	MaxInputChannels        int
	MaxOutputChannels       int
	DefaultSampleRate       float64
	DefaultLowInputLatency  time.Duration
	DefaultHighInputLatency time.Duration
}

// Kind reports "Input", "Output", "Input/Output" or "" for a device with no channels.
func (d DeviceDescriptor) Kind() string {
	switch {
	case d.MaxInputChannels > 0 && d.MaxOutputChannels > 0:
		return "Input/Output"
	case d.MaxInputChannels > 0:
		return "Input"
	case d.MaxOutputChannels > 0:
		return "Output"
	default:
		return ""
	}
}

func (d DeviceDescriptor) String() string {
	return fmt.Sprintf("[%d] %s (%s, %d in, %.0f Hz)", d.ID, d.Name, d.Kind(), d.MaxInputChannels, d.DefaultSampleRate)
}

// DeviceCatalog enumerates devices in a stable order.
type DeviceCatalog interface {
	Devices() ([]DeviceDescriptor, error)
}

// CatalogFunc adapts a plain function to DeviceCatalog.
type CatalogFunc func() ([]DeviceDescriptor, error)

func (f CatalogFunc) Devices() ([]DeviceDescriptor, error) { return f() }

// ResolveDevice picks the device whose ID matches ref. An unparsable ref is
// treated as index 0 and logged; an ID that matches nothing falls back to the
// first enumerated device with a warning banner. Only an empty device list
// is an error.
func ResolveDevice(devices []DeviceDescriptor, ref config.DeviceRef) (DeviceDescriptor, error) {
	if len(devices) == 0 {
		return DeviceDescriptor{}, ErrNoDevices
	}

	id, err := ref.Index()
	if err != nil {
		log.Exceptionf(err, "Could not parse audio id")
		id = 0
	}

	for _, d := range devices {
		if d.ID == id {
			log.Debugf("Selected Device: %s", d)
			return d, nil
		}
	}

	log.Warnf("********************************************************")
	log.Warnf("*                      Warning                         *")
	log.Warnf("********************************************************")
	log.Warnf("Could not find the mic with the id: %d", id)
	log.Warnf("Using the first mic as fallback.")
	log.Warnf("Please change the id of the mic inside the config.")
	return devices[0], nil
}
