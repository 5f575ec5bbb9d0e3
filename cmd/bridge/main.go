package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lewislewin/rustysdx-audio/internal/audio"
	"github.com/lewislewin/rustysdx-audio/internal/bridge"
	"github.com/lewislewin/rustysdx-audio/internal/capture"
	"github.com/lewislewin/rustysdx-audio/internal/config"
	"github.com/lewislewin/rustysdx-audio/internal/diag"
	"github.com/lewislewin/rustysdx-audio/internal/metrics"
	"github.com/lewislewin/rustysdx-audio/internal/playback"
	"github.com/lewislewin/rustysdx-audio/internal/protocol"
	"github.com/lewislewin/rustysdx-audio/internal/serial"
	"github.com/lewislewin/rustysdx-audio/internal/server"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "rustysdx-audio"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary
	logger.Info("Configuration loaded",
		slog.String("device", cfg.Serial.Device),
		slog.Int("baud_rate", cfg.Serial.BaudRate),
		slog.Int("chunk_bytes", cfg.Serial.ChunkBytes),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Int("channel_capacity", cfg.Channel.Capacity),
		slog.Int("silence_level", cfg.Gate.SilenceLevel),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Open the serial link to the rig
	port, err := serial.Open(cfg.Serial.Device, cfg.Serial.BaudRate, cfg.Serial.GetReadTimeout())
	if err != nil {
		logger.Error("Failed to open serial port",
			slog.String("device", cfg.Serial.Device),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	defer port.Close()
	logger.Info("Serial port opened",
		slog.String("device", cfg.Serial.Device),
		slog.Int("baud_rate", cfg.Serial.BaudRate),
	)

	// Initialize the speaker output
	player, err := playback.NewPlayer(cfg.Audio.SampleRate, cfg.Audio.GetPlaybackBuffer())
	if err != nil {
		logger.Error("Failed to initialize playback", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer player.Close()
	logger.Info("Playback initialized", slog.Int("sample_rate", cfg.Audio.SampleRate))

	// Initialize the microphone capture device
	mic, err := capture.NewDevice(cfg.Audio.SampleRate, cfg.Audio.CaptureWindowBytes)
	if err != nil {
		logger.Error("Failed to initialize capture device", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer mic.Close()
	if err := mic.Start(); err != nil {
		logger.Error("Failed to start capture device", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Capture device started",
		slog.Int("window_bytes", cfg.Audio.CaptureWindowBytes),
	)

	// Let the rig settle before asking it to stream audio
	if delay := cfg.Serial.GetStartupDelay(); delay > 0 {
		logger.Info("Waiting for device to settle", slog.Duration("delay", delay))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
	if err := protocol.WriteToken(port, protocol.TokenEnableStreaming); err != nil {
		logger.Error("Failed to enable audio streaming", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Audio streaming enabled")

	// Assemble the bridge
	br := bridge.New(bridge.Config{
		ChunkBytes:       cfg.Serial.ChunkBytes,
		PollInterval:     cfg.Serial.GetPollInterval(),
		ChannelCapacity:  cfg.Channel.Capacity,
		MinDecodeBytes:   cfg.Channel.MinDecodeBytes,
		MinPlayableBytes: cfg.Channel.MinPlayableBytes,
		GatePollInterval: cfg.Gate.GetPollInterval(),
		SettleDelay:      cfg.Gate.GetSettleDelay(),
		SilenceLevel:     byte(cfg.Gate.SilenceLevel),
	}, port, port, audio.DecodePCM, player, mic, logger, appMetrics)

	// Initialize HTTP diagnostics server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg, br)
		logger.Info("HTTP diagnostics server initialized",
			slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		)
	}

	// Start the bridge pumps
	br.Start(ctx)

	// Start HTTP server (if enabled)
	if httpServer != nil {
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Start periodic status reporting
	reporter := diag.NewReporter(br, cfg.Diagnostics.GetStatusInterval(), logger)
	go reporter.Run(ctx)

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Bridge started successfully, waiting for signals...",
		slog.String("device", cfg.Serial.Device),
	)

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	// Stop the bridge pumps; the transmit gate releases the rig on its way out
	br.Stop()

	// Get final statistics
	stats := br.Stats()
	logger.Info("Final bridge statistics",
		slog.Duration("uptime", stats.Uptime.Round(time.Second)),
		slog.Int64("buffered_bytes", stats.BufferedBytes),
		slog.Uint64("underruns", stats.Underruns),
		slog.Uint64("capture_windows", mic.Windows()),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
