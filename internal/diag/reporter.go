package diag

import (
	"context"
	"log/slog"
	"time"

	"github.com/lewislewin/rustysdx-audio/internal/bridge"
)

// StatsSource provides a point-in-time snapshot of bridge state.
type StatsSource interface {
	Stats() bridge.Statistics
}

// Reporter periodically logs a one-line summary of bridge activity.
type Reporter struct {
	source   StatsSource
	interval time.Duration
	logger   *slog.Logger
}

// NewReporter creates a status reporter emitting one line per interval.
func NewReporter(source StatsSource, interval time.Duration, logger *slog.Logger) *Reporter {
	return &Reporter{
		source:   source,
		interval: interval,
		logger:   logger,
	}
}

// Run emits status lines until the context is cancelled.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.report()
		}
	}
}

func (r *Reporter) report() {
	stats := r.source.Stats()

	r.logger.Info("bridge status",
		slog.Duration("uptime", stats.Uptime.Round(time.Second)),
		slog.Int64("buffered_bytes", stats.BufferedBytes),
		slog.Int("channel_depth", stats.ChannelDepth),
		slog.Int("channel_cap", stats.ChannelCap),
		slog.Uint64("underruns", stats.Underruns),
		slog.Bool("transmitting", stats.Transmitting),
		slog.Uint64("capture_windows", stats.Detector.TotalWindows),
		slog.Uint64("active_windows", stats.Detector.ActiveWindows),
	)
}
