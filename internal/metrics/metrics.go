// SPDX-License-Identifier: MIT
// Package metrics exposes Prometheus counters and gauges for the capture
// pipeline. All record methods are safe to call on a nil *Metrics, so
// components built without metrics need no guards.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Loop labels for the rate gauge.
const (
	LoopCallback = "callback"
	LoopRoutine  = "routine"
)

// Outcome labels for outbound deliveries.
const (
	OutboundStored  = "stored"
	OutboundEvicted = "evicted"
	OutboundDropped = "dropped"
)

// Status labels for configuration reloads.
const (
	ReloadSuccess     = "success"
	ReloadConfigError = "config_error"
	ReloadDSPError    = "dsp_error"
	ReloadStreamError = "stream_error"
)

// Metrics holds every collector the pipeline reports to.
type Metrics struct {
	registry *prometheus.Registry

	intakeDropsTotal    prometheus.Counter
	framesCapturedTotal prometheus.Counter
	outboundTotal       *prometheus.CounterVec
	gatedTotal          prometheus.Counter
	commandsTotal       *prometheus.CounterVec
	reloadsTotal        *prometheus.CounterVec
	iterationErrors     *prometheus.CounterVec
	sinkErrorsTotal     *prometheus.CounterVec
	rateHz              *prometheus.GaugeVec
	paused              prometheus.Gauge
	websocketClients    prometheus.Gauge
}

// New creates the collectors and registers them with registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.intakeDropsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "visaudio_intake_drops_total",
		Help: "Frames dropped by the capture callback because the intake queue was full",
	})
	m.framesCapturedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "visaudio_frames_captured_total",
		Help: "Frames accepted into the intake queue",
	})
	m.outboundTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visaudio_outbound_total",
			Help: "Feature vectors offered to the outbound queue by outcome",
		},
		[]string{"outcome"}, // stored, evicted, dropped
	)
	m.gatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "visaudio_gated_total",
		Help: "Feature vectors whose bins were zeroed by the volume gate",
	})
	m.commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visaudio_commands_total",
			Help: "Control commands handled by the processing loop",
		},
		[]string{"command"},
	)
	m.reloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visaudio_reloads_total",
			Help: "Configuration reloads by status",
		},
		[]string{"status"}, // Reload* constants
	)
	m.iterationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visaudio_iteration_errors_total",
			Help: "Processing iterations abandoned because of an error",
		},
		[]string{"kind"},
	)
	m.sinkErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visaudio_sink_errors_total",
			Help: "Failed sends per output sink",
		},
		[]string{"sink"},
	)
	m.rateHz = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "visaudio_rate_hz",
			Help: "Most recently reported iteration rate",
		},
		[]string{"loop"},
	)
	m.paused = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "visaudio_paused",
		Help: "1 while feature production is paused",
	})
	m.websocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "visaudio_websocket_clients",
		Help: "Connected websocket clients",
	})
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.intakeDropsTotal.Describe(ch)
	m.framesCapturedTotal.Describe(ch)
	m.outboundTotal.Describe(ch)
	m.gatedTotal.Describe(ch)
	m.commandsTotal.Describe(ch)
	m.reloadsTotal.Describe(ch)
	m.iterationErrors.Describe(ch)
	m.sinkErrorsTotal.Describe(ch)
	m.rateHz.Describe(ch)
	m.paused.Describe(ch)
	m.websocketClients.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.intakeDropsTotal.Collect(ch)
	m.framesCapturedTotal.Collect(ch)
	m.outboundTotal.Collect(ch)
	m.gatedTotal.Collect(ch)
	m.commandsTotal.Collect(ch)
	m.reloadsTotal.Collect(ch)
	m.iterationErrors.Collect(ch)
	m.sinkErrorsTotal.Collect(ch)
	m.rateHz.Collect(ch)
	m.paused.Collect(ch)
	m.websocketClients.Collect(ch)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordCapture counts one callback outcome.
func (m *Metrics) RecordCapture(accepted bool) {
	if m == nil {
		return
	}
	if accepted {
		m.framesCapturedTotal.Inc()
	} else {
		m.intakeDropsTotal.Inc()
	}
}

// RecordOutbound counts one delivery attempt by outcome label.
func (m *Metrics) RecordOutbound(outcome string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(outcome).Inc()
}

// RecordGated counts one gated feature vector.
func (m *Metrics) RecordGated() {
	if m == nil {
		return
	}
	m.gatedTotal.Inc()
}

// RecordCommand counts one handled command.
func (m *Metrics) RecordCommand(name string) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(name).Inc()
}

// RecordReload counts one reload by status.
func (m *Metrics) RecordReload(status string) {
	if m == nil {
		return
	}
	m.reloadsTotal.WithLabelValues(status).Inc()
}

// RecordIterationError counts one abandoned iteration.
func (m *Metrics) RecordIterationError(kind string) {
	if m == nil {
		return
	}
	m.iterationErrors.WithLabelValues(kind).Inc()
}

// RecordSinkError counts one failed send on the named sink.
func (m *Metrics) RecordSinkError(sink string) {
	if m == nil {
		return
	}
	m.sinkErrorsTotal.WithLabelValues(sink).Inc()
}

// SetRate stores the latest rate for a loop label.
func (m *Metrics) SetRate(loop string, hz float64) {
	if m == nil {
		return
	}
	m.rateHz.WithLabelValues(loop).Set(hz)
}

// SetPaused mirrors the loop's run state.
func (m *Metrics) SetPaused(paused bool) {
	if m == nil {
		return
	}
	if paused {
		m.paused.Set(1)
	} else {
		m.paused.Set(0)
	}
}

// SetWebSocketClients records the connected client count.
func (m *Metrics) SetWebSocketClients(n int) {
	if m == nil {
		return
	}
	m.websocketClients.Set(float64(n))
}

// RateObserver returns a callback suitable for ratemon.WithObserver.
func (m *Metrics) RateObserver(loop string) func(float64) {
	return func(hz float64) { m.SetRate(loop, hz) }
}
