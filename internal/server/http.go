package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lewislewin/rustysdx-audio/internal/bridge"
	"github.com/lewislewin/rustysdx-audio/internal/config"
)

const (
	serviceName    = "rustysdx-audio"
	serviceVersion = "1.0.0"
)

// StatsSource provides a point-in-time snapshot of bridge state.
type StatsSource interface {
	Stats() bridge.Statistics
}

// HTTPServer provides HTTP endpoints for monitoring the bridge
type HTTPServer struct {
	server *http.Server
	logger *slog.Logger
	config *config.Config
	stats  StatsSource

	startTime time.Time
}

// NewHTTPServer creates a new diagnostics HTTP server
func NewHTTPServer(cfg config.HTTPConfig, logger *slog.Logger, appConfig *config.Config, stats StatsSource) *HTTPServer {
	h := &HTTPServer{
		logger:    logger,
		config:    appConfig,
		stats:     stats,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Health check endpoint
	mux.HandleFunc("/health", h.handleHealth)

	// Configuration endpoint
	mux.HandleFunc("/config", h.handleConfig)

	// Statistics endpoint
	mux.HandleFunc("/stats", h.handleStats)

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.handleRoot)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting diagnostics HTTP server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping diagnostics HTTP server...")

	return h.server.Shutdown(ctx)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := h.stats.Stats()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
		"service": map[string]interface{}{
			"name":    serviceName,
			"version": serviceVersion,
		},
		"components": map[string]interface{}{
			"bridge": map[string]interface{}{
				"status":         "running",
				"buffered_bytes": stats.BufferedBytes,
				"channel_depth":  stats.ChannelDepth,
				"underruns":      stats.Underruns,
				"transmitting":   stats.Transmitting,
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cfg := map[string]interface{}{
		"serial": map[string]interface{}{
			"device":           h.config.Serial.Device,
			"baud_rate":        h.config.Serial.BaudRate,
			"read_timeout_ms":  h.config.Serial.ReadTimeoutMS,
			"chunk_bytes":      h.config.Serial.ChunkBytes,
			"poll_interval_ms": h.config.Serial.PollIntervalMS,
		},
		"audio": map[string]interface{}{
			"sample_rate":          h.config.Audio.SampleRate,
			"playback_buffer_ms":   h.config.Audio.PlaybackBufferMS,
			"capture_window_bytes": h.config.Audio.CaptureWindowBytes,
		},
		"channel": map[string]interface{}{
			"capacity":           h.config.Channel.Capacity,
			"min_decode_bytes":   h.config.Channel.MinDecodeBytes,
			"min_playable_bytes": h.config.Channel.MinPlayableBytes,
		},
		"gate": map[string]interface{}{
			"silence_level":    h.config.Gate.SilenceLevel,
			"settle_delay_ms":  h.config.Gate.SettleDelayMS,
			"poll_interval_ms": h.config.Gate.PollIntervalMS,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cfg)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := h.stats.Stats()

	response := map[string]interface{}{
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC(),
		"bridge": map[string]interface{}{
			"buffered_bytes": stats.BufferedBytes,
			"channel_depth":  stats.ChannelDepth,
			"channel_cap":    stats.ChannelCap,
			"underruns":      stats.Underruns,
			"transmitting":   stats.Transmitting,
		},
		"detector": map[string]interface{}{
			"center":            stats.Detector.Center,
			"total_windows":     stats.Detector.TotalWindows,
			"active_windows":    stats.Detector.ActiveWindows,
			"active_percentage": stats.Detector.ActivePercentage,
			"last_processed":    stats.Detector.LastProcessed,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": serviceName,
		"version": serviceVersion,
		"endpoints": map[string]interface{}{
			"GET /":        "API documentation",
			"GET /health":  "Bridge health check",
			"GET /config":  "Get bridge configuration",
			"GET /stats":   "Get bridge statistics",
			"GET /metrics": "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
