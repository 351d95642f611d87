// SPDX-License-Identifier: MIT
/*
Package audio owns the hardware side of the pipeline: device enumeration,
device selection and the single active input stream.

Thread Safety:
  - The capture callback runs on the driver's thread and never blocks: it
    copies the buffer and offers it to the intake queue with a non-blocking put.
  - Pause is an atomic flag read by the callback; the stream keeps running.
  - Init and Close are serialised by a mutex and are only expected to be
    called from the processing loop.
*/
package audio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"visaudio/internal/config"
	"visaudio/internal/log"
	"visaudio/internal/metrics"
	"visaudio/internal/queue"
	"visaudio/internal/ratemon"
)

// ErrStreamNotOpen is returned when an operation needs an active stream.
var ErrStreamNotOpen = errors.New("audio: no active input stream")

// RawFrame is one callback's worth of int16 samples, owned by whoever
// dequeues it.
type RawFrame []int16

// Source captures one device into an intake queue.
type Source struct {
	catalog    DeviceCatalog
	open       StreamOpener
	metrics    *metrics.Metrics
	rateWindow time.Duration

	paused atomic.Bool

	mu     sync.Mutex
	stream Stream
	device DeviceDescriptor
	inits  int
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithMetrics reports capture outcomes and callback rate.
func WithMetrics(m *metrics.Metrics) SourceOption {
	return func(s *Source) { s.metrics = m }
}

// WithRateWindow sets how often the callback rate is logged.
func WithRateWindow(d time.Duration) SourceOption {
	return func(s *Source) { s.rateWindow = d }
}

// NewSource creates an idle source. Call Init to open a stream.
func NewSource(catalog DeviceCatalog, open StreamOpener, opts ...SourceOption) *Source {
	s := &Source{
		catalog:    catalog,
		open:       open,
		rateWindow: config.DefaultRateLogInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init closes any active stream, resolves the configured device and opens a
// new stream feeding intake. Failures are logged at error level and leave the
// source idle; the error is returned so callers can account for it.
func (s *Source) Init(snap config.Snapshot, intake *queue.Bounded[RawFrame]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeLocked()
	s.inits++
	first := s.inits == 1

	devices, err := s.catalog.Devices()
	if err != nil {
		log.Errorf("Could not init AudioService: %v", err)
		return err
	}

	announce(first, "Found the following audio sources:")
	for _, d := range devices {
		announce(first, "  %s", d)
	}

	device, err := ResolveDevice(devices, snap.DeviceID)
	if err != nil {
		log.Errorf("Could not init AudioService: %v", err)
		return err
	}
	announce(first, "Selected Device: %s", device)

	log.Debugf("Starting Open Audio Stream...")
	stream, err := s.open(StreamParams{
		Device:          device,
		SampleRate:      snap.SampleRate,
		FramesPerBuffer: snap.FramesPerBuffer,
	}, s.newCallback(intake))
	if err != nil {
		log.Errorf("Could not init AudioService: %v", err)
		return err
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		log.Errorf("Could not init AudioService: failed to start stream: %v", err)
		return fmt.Errorf("failed to start stream: %w", err)
	}

	s.stream = stream
	s.device = device
	return nil
}

// newCallback binds a callback to one intake queue and a fresh rate monitor.
// Each stream gets its own, so a reload never shares state with the stream
// it replaced.
func (s *Source) newCallback(intake *queue.Bounded[RawFrame]) func(in []int16) {
	rate := ratemon.New("Callback", s.rateWindow, ratemon.WithObserver(s.metrics.RateObserver(metrics.LoopCallback)))

	return func(in []int16) {
		if s.paused.Load() {
			return
		}

		frame := make(RawFrame, len(in))
		copy(frame, in)
		s.metrics.RecordCapture(intake.TryPut(frame))

		rate.Tick()
	}
}

// SetPaused toggles whether the callback enqueues frames.
func (s *Source) SetPaused(paused bool) { s.paused.Store(paused) }

// Paused reports the current pause flag.
func (s *Source) Paused() bool { return s.paused.Load() }

// Device returns the device of the active stream.
func (s *Source) Device() (DeviceDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return DeviceDescriptor{}, ErrStreamNotOpen
	}
	return s.device, nil
}

// Active reports whether a stream is open.
func (s *Source) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream != nil
}

// Close stops and releases the active stream. It is safe to call when idle
// and more than once.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Source) closeLocked() error {
	if s.stream == nil {
		return nil
	}
	stream := s.stream
	s.stream = nil
	s.device = DeviceDescriptor{}

	stopErr := stream.Stop()
	closeErr := stream.Close()
	if err := errors.Join(stopErr, closeErr); err != nil {
		log.Warnf("Error closing audio stream: %v", err)
		return err
	}
	return nil
}

// announce logs at info on the first init and at debug on reloads.
func announce(first bool, format string, v ...interface{}) {
	if first {
		log.Infof(format, v...)
		return
	}
	log.Debugf(format, v...)
}
