package bridge

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/lewislewin/rustysdx-audio/internal/metrics"
	"github.com/lewislewin/rustysdx-audio/internal/protocol"
	"github.com/lewislewin/rustysdx-audio/internal/vad"
)

// WindowSource is the audio-capture collaborator as seen by the transmit
// gate: the most recently captured fixed-size window and its sequence
// number, or nil and zero if none has completed yet. The sequence must
// advance with each new window so the gate can tell fresh audio from a
// re-read of a window it already forwarded.
type WindowSource interface {
	Latest() ([]byte, uint64)
}

// TransmitGate forwards captured microphone windows over the serial device
// when they carry signal, switching the remote end's mode with in-band
// tokens. The transmit token goes out exactly once per silence-to-activity
// transition and the receive token exactly once per activity-to-silence
// transition, after a settle delay that lets trailing audio flush.
type TransmitGate struct {
	src     WindowSource
	port    io.Writer
	det     *vad.Detector
	logger  *slog.Logger
	metrics *metrics.Metrics

	pollInterval time.Duration
	settleDelay  time.Duration

	// Owned exclusively by the gate goroutine; read-only elsewhere.
	transmitting atomic.Bool

	// Sequence of the last window written to serial. The poll interval is
	// shorter than the capture window period, so the gate sees each window
	// on several consecutive ticks and must forward it only once.
	lastSent uint64
}

// NewTransmitGate creates a transmit gate polling the capture source every
// pollInterval and settling for settleDelay before releasing transmit mode.
func NewTransmitGate(src WindowSource, port io.Writer, det *vad.Detector, logger *slog.Logger, m *metrics.Metrics, pollInterval, settleDelay time.Duration) *TransmitGate {
	return &TransmitGate{
		src:          src,
		port:         port,
		det:          det,
		logger:       logger,
		metrics:      m,
		pollInterval: pollInterval,
		settleDelay:  settleDelay,
	}
}

// Run polls the capture source until ctx is cancelled or a serial write
// fails. If cancelled while still transmitting, it releases the remote end
// back to receive mode before returning.
func (g *TransmitGate) Run(ctx context.Context) error {
	ticker := time.NewTicker(g.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if g.transmitting.Load() {
				// Best effort: don't leave the rig keyed on shutdown.
				if err := protocol.WriteToken(g.port, protocol.TokenReceive); err == nil {
					g.transmitting.Store(false)
					g.logger.Info("Transmit released on shutdown")
				}
			}
			g.logger.Info("Transmit gate stopping", slog.String("reason", "shutdown"))
			return nil
		case <-ticker.C:
		}

		window, seq := g.src.Latest()
		if window == nil {
			continue
		}

		if err := g.step(ctx, window, seq); err != nil {
			g.logger.Error("Serial write failed, stopping transmit gate",
				slog.String("error", err.Error()),
			)
			return err
		}
	}
}

// step applies the silence gate to one capture window and performs the
// resulting serial writes. A window whose sequence matches the last one
// written is evaluated for activity but never re-sent, so sustained
// activity produces exactly one serial write per completed window.
func (g *TransmitGate) step(ctx context.Context, window []byte, seq uint64) error {
	active := g.det.Active(window)
	g.metrics.RecordCaptureWindow(active)

	switch {
	case active && !g.transmitting.Load():
		if err := protocol.WriteToken(g.port, protocol.TokenTransmit); err != nil {
			return err
		}
		g.transmitting.Store(true)
		g.metrics.RecordModeTransition("tx")
		min, max := g.det.Extremes(window)
		g.logger.Info("Transmit on",
			slog.Int("window_bytes", len(window)),
			slog.Int("min_sample", int(min)),
			slog.Int("max_sample", int(max)),
		)
		fallthrough

	case active:
		if seq == g.lastSent {
			// Same window as the previous tick; it already went out.
			break
		}
		n, err := g.port.Write(window)
		if err != nil {
			return err
		}
		g.lastSent = seq
		g.metrics.RecordBytesTransmitted(n)

	case g.transmitting.Load():
		// Let in-flight audio flush before switching the remote end's mode.
		sleepCtx(ctx, g.settleDelay)
		if err := protocol.WriteToken(g.port, protocol.TokenReceive); err != nil {
			return err
		}
		g.transmitting.Store(false)
		g.metrics.RecordModeTransition("rx")
		g.logger.Info("Transmit off")

	default:
		// Sustained silence while idle: no serial traffic at all.
	}

	return nil
}

// Transmitting reports whether the gate currently holds transmit mode.
// Eventually consistent, diagnostic only.
func (g *TransmitGate) Transmitting() bool {
	return g.transmitting.Load()
}
