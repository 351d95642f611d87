// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"visaudio/cmd"
	"visaudio/internal/audio"
	"visaudio/internal/config"
	"visaudio/internal/control"
	"visaudio/internal/dsp"
	"visaudio/internal/engine"
	"visaudio/internal/log"
	"visaudio/internal/metrics"
	"visaudio/internal/queue"
	"visaudio/internal/transport"
	"visaudio/internal/transport/udp"
	"visaudio/internal/tui"
	"visaudio/pkg/build"
)

// main is the entry point of the feature stream service.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load configuration
//   - Initialize PortAudio
//   - Execute one-off commands if requested
//
// 2. Concurrent Phase (Hot Path):
//   - Start transports and the outbound publisher
//   - Run the processing loop, which opens the input stream
//
// 3. Shutdown Phase (Cold Path):
//   - Cancel on SIGINT/SIGTERM
//   - Close the stream, then the transports
func main() {
	if err := run(); err != nil {
		log.Fatalf("%v", err)
	}
}

func run() error {
	// ==================== STARTUP PHASE (Cold Path) ====================

	if err := build.Initialize(); err != nil {
		log.Debugf("Build: %v", err)
	}

	opts, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		return err
	}
	if !opts.Serve && opts.Command == "" {
		// --help or --version
		return nil
	}

	// Route --device through the env override so reloads keep it.
	if opts.DeviceSet {
		os.Setenv("ENV_DEVICE_ID", strconv.Itoa(opts.DeviceID))
	}

	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	configureLogging(cfg.LogLevel, opts.Verbose)

	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	if opts.Command != "" {
		return executeCommand(opts, cfg)
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	log.Infof("Starting %s", build.GetBuildFlags())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, opts, cfg)
}

func configureLogging(level string, verbose bool) {
	lvl, ok := log.ParseLevel(level)
	if !ok {
		log.Warnf("Unknown log_level '%s', using %s", level, lvl)
	}
	if verbose {
		lvl = log.LevelDebug
	}
	log.SetLevel(lvl)
}

func serve(ctx context.Context, opts *cmd.Options, cfg *config.Config) error {
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		var err error
		if m, err = metrics.New(prometheus.NewRegistry()); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	window, err := dsp.ParseWindowFunc(cfg.Processing.FFTWindow)
	if err != nil {
		return fmt.Errorf("processing.fft_window: %w", err)
	}

	accessor := config.NewAccessor(opts.ConfigPath, cfg)
	ctrl := control.NewChannel(cfg.Processing.CommandQueueSize)
	outbound := queue.New[dsp.FeatureVector](cfg.Processing.OutboundQueueSize)

	sinks, err := buildSinks(cfg, ctrl, m)
	if err != nil {
		return err
	}
	publisher := transport.NewPublisher(outbound, m, sinks...)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Errorf("Error closing transports: %v", err)
		}
	}()

	source := audio.NewSource(audio.PortAudioCatalog{}, audio.OpenPortAudioStream,
		audio.WithMetrics(m),
		audio.WithRateWindow(cfg.Processing.RateLogInterval))
	loop := engine.NewLoop(accessor, source, dsp.NewSpectrumFactory(window),
		ctrl, outbound, m, engine.OptionsFromConfig(cfg.Processing))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		publisher.Run(ctx)
	}()
	// Events must be drained: the loop blocks on a full event FIFO.
	go func() {
		defer wg.Done()
		for {
			select {
			case ev := <-ctrl.Events():
				publisher.Broadcast(ev)
			case <-ctx.Done():
				return
			}
		}
	}()

	// CRITICAL: Start of real-time audio processing. The loop opens the
	// input stream on its first iteration and closes it when ctx is done.
	err = loop.Run(ctx)

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	wg.Wait()
	log.Infof("Shutting down")
	return err
}

// buildSinks creates the configured transports. With no network output the
// feature stream goes to the log.
func buildSinks(cfg *config.Config, ctrl *control.Channel, m *metrics.Metrics) ([]transport.Transport, error) {
	var sinks []transport.Transport
	tc := cfg.Transport

	if tc.WebSocketEnabled {
		ws := transport.NewWebSocketTransport(tc.WebSocketAddress, ctrl, m)
		if m != nil {
			ws.Handle(cfg.Metrics.Path, m.Handler())
		}
		if err := ws.Start(); err != nil {
			ws.Close()
			return nil, err
		}
		sinks = append(sinks, ws)
	} else if m != nil {
		log.Warnf("Metrics are enabled but served on the websocket server, which is disabled")
	}

	if tc.UDPEnabled {
		sender, err := udp.NewSender(tc.UDPTargetAddress)
		if err != nil {
			closeAll(sinks)
			return nil, err
		}
		pub, err := udp.NewPublisher(sender, tc.UDPMinInterval)
		if err != nil {
			sender.Close()
			closeAll(sinks)
			return nil, err
		}
		sinks = append(sinks, pub)
	}

	if len(sinks) == 0 {
		sinks = append(sinks, transport.NewLoggingTransport(cfg.Processing.TargetFPS))
	}
	return sinks, nil
}

func closeAll(sinks []transport.Transport) {
	for _, s := range sinks {
		s.Close()
	}
}

// executeCommand handles one-off commands that don't require the processing
// loop, such as listing available audio devices.
func executeCommand(opts *cmd.Options, cfg *config.Config) error {
	switch opts.Command {
	case cmd.CommandList:
		catalog := audio.PortAudioCatalog{}
		if !opts.Interactive {
			return audio.ListDevices(os.Stdout, catalog)
		}

		current, err := cfg.General.DeviceID.Index()
		if err != nil {
			current = 0
		}
		id, ok, err := tui.StartDeviceListUI(catalog, current)
		if err != nil {
			return err
		}
		if ok {
			fmt.Printf("Set DEVICE_ID: %d under general_settings, or run with --device %d\n", id, id)
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q", opts.Command)
	}
}
