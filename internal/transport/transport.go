// SPDX-License-Identifier: MIT
// Package transport delivers feature vectors and control events to external
// consumers and feeds their commands back into the control channel.
package transport

import (
	"context"
	"fmt"

	"visaudio/internal/dsp"
	"visaudio/internal/log"
	"visaudio/internal/metrics"
	"visaudio/internal/queue"
)

// Transport defines a generic interface for sending processed data or events.
// Implementations should be thread-safe and must not block for long.
type Transport interface {
	Send(data any) error
	Close() error
}

// Named is implemented by transports that report a stable label for metrics.
type Named interface {
	Name() string
}

func transportName(t Transport) string {
	if n, ok := t.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", t)
}

// Publisher is the single consumer of the outbound queue. Every feature
// vector it takes is offered to each sink in order.
type Publisher struct {
	source  *queue.Bounded[dsp.FeatureVector]
	sinks   []Transport
	metrics *metrics.Metrics
}

// NewPublisher fans source out to sinks. m may be nil.
func NewPublisher(source *queue.Bounded[dsp.FeatureVector], m *metrics.Metrics, sinks ...Transport) *Publisher {
	return &Publisher{source: source, sinks: sinks, metrics: m}
}

// Run drains the outbound queue until ctx is done.
func (p *Publisher) Run(ctx context.Context) error {
	log.Debugf("Publisher: started with %d sink(s)", len(p.sinks))
	for {
		fv, ok := p.source.Pop(ctx)
		if !ok {
			log.Debugf("Publisher: stopped")
			return nil
		}
		p.Broadcast(fv)
	}
}

// Broadcast offers data to every sink. A failing sink does not stop the others.
func (p *Publisher) Broadcast(data any) {
	for _, sink := range p.sinks {
		if err := sink.Send(data); err != nil {
			name := transportName(sink)
			p.metrics.RecordSinkError(name)
			log.Debugf("Publisher: %s send failed: %v", name, err)
		}
	}
}

// Close closes every sink and returns the first error.
func (p *Publisher) Close() error {
	var first error
	for _, sink := range p.sinks {
		if err := sink.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
