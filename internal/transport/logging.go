// SPDX-License-Identifier: MIT
package transport

import (
	"sync/atomic"

	"visaudio/internal/control"
	"visaudio/internal/dsp"
	"visaudio/internal/log"
)

// LoggingTransport writes a one-line summary of every nth feature vector at
// debug level, and every control event at info level. It is the sink used
// when no network output is enabled.
type LoggingTransport struct {
	every uint64
	count atomic.Uint64
}

// NewLoggingTransport logs one in every `every` feature vectors; 0 means all.
func NewLoggingTransport(every int) *LoggingTransport {
	log.Debugf("Transport: Using LoggingTransport")
	if every <= 0 {
		every = 1
	}
	return &LoggingTransport{every: uint64(every)}
}

// Name implements Named.
func (lt *LoggingTransport) Name() string { return "log" }

// Send logs data. It never fails.
func (lt *LoggingTransport) Send(data any) error {
	switch v := data.(type) {
	case dsp.FeatureVector:
		n := lt.count.Add(1)
		if (n-1)%lt.every != 0 {
			return nil
		}
		peak, peakVal := 0, 0.0
		for i, b := range v.Bins {
			if b > peakVal {
				peak, peakVal = i, b
			}
		}
		log.Debugf("Features #%d: volume=%.5f bins=%d peak=%d (%.4f)", n, v.Volume, len(v.Bins), peak, peakVal)
	case control.Event:
		log.Infof("Event: %s", v)
	default:
		log.Debugf("LoggingTransport: %T %+v", data, data)
	}
	return nil
}

// Close is a no-op.
func (lt *LoggingTransport) Close() error { return nil }

var _ Transport = (*LoggingTransport)(nil)
