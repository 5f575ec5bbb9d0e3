package bridge

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lewislewin/rustysdx-audio/internal/audio"
	"github.com/lewislewin/rustysdx-audio/internal/metrics"
	"github.com/lewislewin/rustysdx-audio/internal/serial"
)

// SerialReader is the read side of the serial collaborator. A read with no
// data available returns serial.ErrWouldBlock; any other error is fatal to
// the device.
type SerialReader interface {
	Read(buf []byte) (int, error)
}

// ReceivePump drains the serial device into the chunk channel. It never
// blocks the read loop on playback speed: backpressure from a slow
// consumer shows up as a blocking Send, and the serial driver's own buffer
// absorbs the jitter.
type ReceivePump struct {
	src     SerialReader
	ch      *audio.ChunkChannel
	logger  *slog.Logger
	metrics *metrics.Metrics

	chunkBytes   int
	pollInterval time.Duration
}

// NewReceivePump creates a receive pump reading chunkBytes-sized blocks
// and retrying after pollInterval when no data is available.
func NewReceivePump(src SerialReader, ch *audio.ChunkChannel, logger *slog.Logger, m *metrics.Metrics, chunkBytes int, pollInterval time.Duration) *ReceivePump {
	return &ReceivePump{
		src:          src,
		ch:           ch,
		logger:       logger,
		metrics:      m,
		chunkBytes:   chunkBytes,
		pollInterval: pollInterval,
	}
}

// Run reads from the serial device until a fatal I/O error or cancellation.
// On exit it closes the send side of the chunk channel so the playback pump
// observes termination rather than hanging. A fatal read error is returned;
// cancellation returns nil.
func (p *ReceivePump) Run(ctx context.Context) error {
	defer p.ch.CloseSend()

	buf := make([]byte, p.chunkBytes)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Receive pump stopping", slog.String("reason", "shutdown"))
			return nil
		default:
		}

		n, err := p.src.Read(buf)
		switch {
		case errors.Is(err, serial.ErrWouldBlock):
			if !sleepCtx(ctx, p.pollInterval) {
				p.logger.Info("Receive pump stopping", slog.String("reason", "shutdown"))
				return nil
			}
			continue
		case err != nil:
			p.metrics.RecordReceiveError()
			p.logger.Error("Serial read failed, stopping receive pump",
				slog.String("error", err.Error()),
			)
			return err
		}

		// Exactly the bytes read form one chunk, never padded.
		chunk := make(audio.Chunk, n)
		copy(chunk, buf[:n])

		if err := p.ch.Send(ctx, chunk); err != nil {
			// Playback side gone or shutdown in progress; both are normal
			// termination for this pump.
			p.logger.Info("Receive pump stopping", slog.String("reason", err.Error()))
			return nil
		}

		p.metrics.RecordChunkReceived(n)
		p.metrics.SetChannelDepth(p.ch.Len())
	}
}

// sleepCtx sleeps for d unless ctx is cancelled first. It reports whether
// the full delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
