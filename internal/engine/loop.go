// SPDX-License-Identifier: MIT
/*
Package engine runs the processing loop that sits between the capture
callback and the feature consumers.

Each iteration:
 1. takes at most one pending control command and applies it,
 2. returns straight away while paused,
 3. waits a bounded time for a raw frame from the intake queue,
 4. runs the frame through the DSP engine,
 5. zeroes the bins of quiet frames,
 6. hands the result to the outbound queue, evicting the oldest entry if full.

Failures are contained at the iteration boundary: they are logged and the
loop carries on with the next frame.
*/
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"visaudio/internal/audio"
	"visaudio/internal/config"
	"visaudio/internal/control"
	"visaudio/internal/dsp"
	"visaudio/internal/log"
	"visaudio/internal/metrics"
	"visaudio/internal/queue"
	"visaudio/internal/ratemon"
)

var (
	// ErrShortFrame is returned for a frame that carries no samples.
	ErrShortFrame = errors.New("engine: frame carries no samples")
	// ErrNoDSP is returned while no DSP engine could be built for the active configuration.
	ErrNoDSP = errors.New("engine: no DSP engine for the active configuration")
)

// Capture is the part of audio.Source the loop drives.
type Capture interface {
	Init(snap config.Snapshot, intake *queue.Bounded[audio.RawFrame]) error
	SetPaused(paused bool)
	Close() error
}

// ConfigSource supplies and refreshes configuration. *config.Accessor satisfies it.
type ConfigSource interface {
	Reload() error
	Snapshot() config.Snapshot
}

// Options are the loop's fixed parameters.
type Options struct {
	TargetFPS         int
	IntakeTimeout     time.Duration
	EvictTimeout      time.Duration
	RateLogInterval   time.Duration
	IntakeQueueLength int
}

// OptionsFromConfig reads loop parameters from the processing section.
func OptionsFromConfig(p config.ProcessingConfig) Options {
	return Options{
		TargetFPS:         p.TargetFPS,
		IntakeTimeout:     p.IntakeTimeout,
		EvictTimeout:      p.EvictTimeout,
		RateLogInterval:   p.RateLogInterval,
		IntakeQueueLength: config.IntakeQueueCapacity,
	}
}

// Loop owns the processing side of the pipeline.
type Loop struct {
	config   ConfigSource
	capture  Capture
	newDSP   dsp.Factory
	control  *control.Channel
	outbound *queue.Bounded[dsp.FeatureVector]
	limiter  *FrameLimiter
	metrics  *metrics.Metrics
	opts     Options
}

// NewLoop wires a loop. m may be nil.
func NewLoop(
	cfg ConfigSource,
	capture Capture,
	newDSP dsp.Factory,
	ctrl *control.Channel,
	outbound *queue.Bounded[dsp.FeatureVector],
	m *metrics.Metrics,
	opts Options,
) *Loop {
	if opts.IntakeQueueLength <= 0 {
		opts.IntakeQueueLength = config.IntakeQueueCapacity
	}
	if opts.IntakeTimeout <= 0 {
		opts.IntakeTimeout = config.DefaultIntakeTimeout
	}
	if opts.EvictTimeout <= 0 {
		opts.EvictTimeout = config.DefaultEvictTimeout
	}
	if opts.RateLogInterval <= 0 {
		opts.RateLogInterval = config.DefaultRateLogInterval
	}
	return &Loop{
		config:   cfg,
		capture:  capture,
		newDSP:   newDSP,
		control:  ctrl,
		outbound: outbound,
		limiter:  NewFrameLimiter(opts.TargetFPS),
		metrics:  m,
		opts:     opts,
	}
}

// State is the loop's per-run context. It is owned by the goroutine calling
// Step and must not be shared.
type State struct {
	paused   bool
	snapshot config.Snapshot
	dsp      dsp.Engine
	intake   *queue.Bounded[audio.RawFrame]
	rate     *ratemon.Monitor
	samples  []float64
}

// Paused reports whether feature production is suspended.
func (s *State) Paused() bool { return s.paused }

// Snapshot returns the configuration the pipeline was last built from.
func (s *State) Snapshot() config.Snapshot { return s.snapshot }

// Intake returns the current intake queue. It is replaced on every reload.
func (s *State) Intake() *queue.Bounded[audio.RawFrame] { return s.intake }

// Start builds the DSP engine and intake queue from the current
// configuration and opens the capture stream. A failed stream open is
// logged by the capture side and does not prevent the loop from running.
func (l *Loop) Start() *State {
	st := &State{}
	if err := l.rebuild(st); err != nil {
		log.Debugf("Pipeline started without an active stream: %v", err)
	}
	return st
}

// rebuild replaces everything derived from configuration. The capture
// stream is re-initialised last so the callback only ever sees the new queue.
func (l *Loop) rebuild(st *State) error {
	snap := l.config.Snapshot()
	st.snapshot = snap

	st.dsp = nil
	if engine, err := l.newDSP(snap); err != nil {
		log.Errorf("Could not build DSP engine: %v", err)
	} else {
		st.dsp = engine
	}

	st.intake = queue.New[audio.RawFrame](l.opts.IntakeQueueLength)
	st.rate = ratemon.New("Routine", l.opts.RateLogInterval,
		ratemon.WithObserver(l.metrics.RateObserver(metrics.LoopRoutine)))

	l.capture.SetPaused(st.paused)
	if err := l.capture.Init(snap, st.intake); err != nil {
		return fmt.Errorf("capture init: %w", err)
	}
	return nil
}

// Run iterates until ctx is cancelled, throttled by the frame limiter. The
// capture stream is closed on return; frames still queued are discarded.
func (l *Loop) Run(ctx context.Context) error {
	st := l.Start()
	defer l.capture.Close()

	for {
		if ctx.Err() != nil {
			return nil
		}
		l.Step(ctx, st)
		if err := l.limiter.Wait(ctx); err != nil {
			return nil
		}
	}
}

// Step runs one iteration. Errors and panics are logged and counted, never
// returned: a bad frame costs one iteration, not the loop.
func (l *Loop) Step(ctx context.Context, st *State) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Could not run AudioService routine.")
			log.Errorf("Unexpected error in routine: %v\n%s", r, debug.Stack())
			l.metrics.RecordIterationError("panic")
		}
	}()

	if err := l.iterate(ctx, st); err != nil {
		kind := "dsp"
		if errors.Is(err, ErrShortFrame) {
			kind = "read"
			log.Errorf("Error while reading the microphone stream: %v", err)
		} else {
			log.Errorf("Could not run AudioService routine: %v", err)
		}
		l.metrics.RecordIterationError(kind)
	}
}

func (l *Loop) iterate(ctx context.Context, st *State) error {
	if cmd, ok := l.control.Receive(); ok {
		l.dispatch(ctx, st, cmd)
	}

	if st.paused {
		return nil
	}

	frame, ok := st.intake.PopTimeout(ctx, l.opts.IntakeTimeout)
	if !ok {
		log.Debugf("Audio in timeout. Queue is Empty")
		return nil
	}
	if len(frame) == 0 {
		return ErrShortFrame
	}
	if st.dsp == nil {
		return ErrNoDSP
	}

	st.samples = toSamples(st.samples, frame)
	fv, err := st.dsp.Update(st.samples)
	if err != nil {
		return fmt.Errorf("dsp update: %w", err)
	}

	fv, gated := ApplyVolumeGate(fv, st.snapshot.MinVolumeThreshold, st.snapshot.FFTBinCount)
	if gated {
		l.metrics.RecordGated()
	}

	l.deliver(fv)
	st.rate.Tick()
	return nil
}

// deliver never blocks for longer than the eviction budget.
func (l *Loop) deliver(fv dsp.FeatureVector) {
	switch l.outbound.PutEvictOldest(fv, l.opts.EvictTimeout) {
	case queue.Stored:
		l.metrics.RecordOutbound(metrics.OutboundStored)
	case queue.StoredAfterEvict:
		l.metrics.RecordOutbound(metrics.OutboundEvicted)
	case queue.Dropped:
		l.metrics.RecordOutbound(metrics.OutboundDropped)
	}
}

// dispatch is the only place commands are interpreted.
func (l *Loop) dispatch(ctx context.Context, st *State, cmd control.Command) {
	l.metrics.RecordCommand(commandName(cmd))

	switch c := cmd.(type) {
	case control.Pause:
		st.paused = true
		l.capture.SetPaused(true)
		l.metrics.SetPaused(true)
		log.Infof("Processing paused")
	case control.Resume:
		st.paused = false
		l.capture.SetPaused(false)
		l.metrics.SetPaused(false)
		log.Infof("Processing resumed")
	case control.ReloadConfig:
		l.reload(ctx, st, c)
	default:
		log.Warnf("Ignoring unknown command %v", cmd)
	}
}

// reload closes the stream, re-reads configuration, rebuilds the pipeline
// and reports completion. The run state held before the reload is kept.
// ReloadConfigFinished is sent even when the new stream could not be opened,
// so every request gets exactly one answer.
func (l *Loop) reload(ctx context.Context, st *State, cmd control.ReloadConfig) {
	log.Infof("Reloading configuration (requested for device %d)", cmd.DeviceID)
	status := metrics.ReloadSuccess

	if err := l.capture.Close(); err != nil {
		log.Warnf("Error closing stream before reload: %v", err)
	}

	if err := l.config.Reload(); err != nil {
		log.Exceptionf(err, "Could not reload configuration, keeping the previous one")
		status = metrics.ReloadConfigError
	}

	// A missing DSP engine fails every later iteration with ErrNoDSP.
	if err := l.rebuild(st); err != nil {
		status = metrics.ReloadStreamError
	} else if st.dsp == nil {
		status = metrics.ReloadDSPError
	}
	l.metrics.RecordReload(status)

	if err := l.control.Emit(ctx, control.ReloadConfigFinished{DeviceID: cmd.DeviceID}); err != nil {
		log.Warnf("Could not publish reload completion for device %d: %v", cmd.DeviceID, err)
	}
}

func commandName(cmd control.Command) string {
	switch cmd.(type) {
	case control.Pause:
		return "pause"
	case control.Resume:
		return "resume"
	case control.ReloadConfig:
		return "reload_config"
	default:
		return "unknown"
	}
}

// toSamples widens int16 samples to float64, reusing dst's storage.
func toSamples(dst []float64, frame audio.RawFrame) []float64 {
	dst = dst[:0]
	for _, v := range frame {
		dst = append(dst, float64(v))
	}
	return dst
}
