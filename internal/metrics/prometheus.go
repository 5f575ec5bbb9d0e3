package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the audio bridge
type Metrics struct {
	// Serial receive metrics
	ChunksReceived prometheus.Counter
	BytesReceived  prometheus.Counter
	ReceiveErrors  prometheus.Counter
	ChannelDepth   prometheus.Gauge
	ChunkSize      prometheus.Histogram

	// Playback metrics
	ChunksPlayed   prometheus.Counter
	BytesPlayed    prometheus.Counter
	Underruns      prometheus.Counter
	DecodeFailures prometheus.Counter

	// Transmit metrics
	WindowsProcessed prometheus.Counter
	ActiveWindows    prometheus.Counter
	BytesTransmitted prometheus.Counter
	ModeTransitions  *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Serial receive metrics
		ChunksReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sdx_chunks_received_total",
			Help: "Total number of audio chunks read from the serial device",
		}),
		BytesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sdx_bytes_received_total",
			Help: "Total number of audio bytes read from the serial device",
		}),
		ReceiveErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sdx_receive_errors_total",
			Help: "Total number of fatal serial read errors",
		}),
		ChannelDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sdx_channel_depth_chunks",
			Help: "Current number of chunks queued between receive and playback",
		}),
		ChunkSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sdx_chunk_size_bytes",
			Help:    "Size of received audio chunks in bytes",
			Buckets: prometheus.ExponentialBuckets(2, 2, 10), // 2B to ~1KB
		}),

		// Playback metrics
		ChunksPlayed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sdx_chunks_played_total",
			Help: "Total number of chunks decoded and submitted for playback",
		}),
		BytesPlayed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sdx_bytes_played_total",
			Help: "Total number of audio bytes submitted for playback",
		}),
		Underruns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sdx_playback_underruns_total",
			Help: "Total number of playback starvation events",
		}),
		DecodeFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sdx_decode_failures_total",
			Help: "Total number of chunks dropped due to decode errors",
		}),

		// Transmit metrics
		WindowsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sdx_capture_windows_total",
			Help: "Total number of capture windows examined by the silence gate",
		}),
		ActiveWindows: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sdx_capture_windows_active_total",
			Help: "Total number of capture windows carrying signal",
		}),
		BytesTransmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sdx_bytes_transmitted_total",
			Help: "Total number of audio bytes written to the serial device",
		}),
		ModeTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sdx_mode_transitions_total",
			Help: "Total number of transmit/receive mode switches sent",
		}, []string{"mode"}),
	}
}

// RecordChunkReceived records one chunk read from the serial device
func (m *Metrics) RecordChunkReceived(sizeBytes int) {
	m.ChunksReceived.Inc()
	m.BytesReceived.Add(float64(sizeBytes))
	m.ChunkSize.Observe(float64(sizeBytes))
}

// RecordReceiveError increments the fatal serial read error counter
func (m *Metrics) RecordReceiveError() {
	m.ReceiveErrors.Inc()
}

// SetChannelDepth sets the current chunk channel depth
func (m *Metrics) SetChannelDepth(depth int) {
	m.ChannelDepth.Set(float64(depth))
}

// RecordChunkPlayed records one decoded chunk submitted for playback
func (m *Metrics) RecordChunkPlayed(sizeBytes int) {
	m.ChunksPlayed.Inc()
	m.BytesPlayed.Add(float64(sizeBytes))
}

// RecordUnderrun increments the playback starvation counter
func (m *Metrics) RecordUnderrun() {
	m.Underruns.Inc()
}

// RecordDecodeFailure increments the dropped-chunk counter
func (m *Metrics) RecordDecodeFailure() {
	m.DecodeFailures.Inc()
}

// RecordCaptureWindow records one capture window examined by the gate
func (m *Metrics) RecordCaptureWindow(active bool) {
	m.WindowsProcessed.Inc()
	if active {
		m.ActiveWindows.Inc()
	}
}

// RecordBytesTransmitted adds to the transmitted byte counter
func (m *Metrics) RecordBytesTransmitted(n int) {
	m.BytesTransmitted.Add(float64(n))
}

// RecordModeTransition records a mode switch ("tx" or "rx")
func (m *Metrics) RecordModeTransition(mode string) {
	m.ModeTransitions.WithLabelValues(mode).Inc()
}
