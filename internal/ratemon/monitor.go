// SPDX-License-Identifier: MIT
// Package ratemon measures how often a loop or callback fires and reports it
// periodically.
package ratemon

import (
	"time"

	"visaudio/internal/log"
)

// Monitor tracks the instantaneous rate of successive Tick calls. It is not
// safe for concurrent use; give each caller its own Monitor.
type Monitor struct {
	name        string
	window      time.Duration
	now         func() time.Time
	observe     func(hz float64)
	last        time.Time
	windowStart time.Time
	rate        float64
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// WithObserver is called with the rate every time it is logged.
func WithObserver(fn func(hz float64)) Option {
	return func(m *Monitor) { m.observe = fn }
}

// New creates a monitor that logs "<name> | FPS: <rate>" once per window.
func New(name string, window time.Duration, opts ...Option) *Monitor {
	m := &Monitor{name: name, window: window, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	t := m.now()
	m.last = t
	m.windowStart = t
	return m
}

// Tick records one event and returns the current rate in Hz. The rate is the
// inverse of the gap since the previous Tick, so it reflects the latest
// interval only. A zero gap leaves the previous rate in place.
func (m *Monitor) Tick() float64 {
	t := m.now()
	if dt := t.Sub(m.last); dt > 0 {
		m.rate = 1 / dt.Seconds()
	}
	m.last = t

	if t.Sub(m.windowStart) >= m.window {
		log.Infof("%s | FPS: %.2f", m.name, m.rate)
		if m.observe != nil {
			m.observe(m.rate)
		}
		m.windowStart = t
	}
	return m.rate
}

// Rate returns the most recently computed rate.
func (m *Monitor) Rate() float64 { return m.rate }

// Name returns the label used in log lines.
func (m *Monitor) Name() string { return m.name }
