package bridge

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lewislewin/rustysdx-audio/internal/audio"
	"github.com/lewislewin/rustysdx-audio/internal/metrics"
	"github.com/lewislewin/rustysdx-audio/internal/vad"
)

// Config holds tuning parameters for the bridge pumps.
type Config struct {
	ChunkBytes       int           // serial read block size
	PollInterval     time.Duration // retry delay on would-block reads
	ChannelCapacity  int           // chunks buffered between receive and playback
	MinDecodeBytes   int           // below this a chunk is an underrun
	MinPlayableBytes int           // accumulate to this before decoding after an underrun
	GatePollInterval time.Duration // capture window poll cadence
	SettleDelay      time.Duration // pause before releasing transmit mode
	SilenceLevel     byte          // digitized zero for the silence gate
}

// Bridge owns the three pump goroutines and the chunk channel between
// them. The receive and transmit directions share only the physical serial
// device; the bridge itself carries no data between them.
type Bridge struct {
	cfg    Config
	logger *slog.Logger

	ch   *audio.ChunkChannel
	det  *vad.Detector
	recv *ReceivePump
	play *PlaybackPump
	gate *TransmitGate

	start  time.Time
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Statistics is a point-in-time snapshot of bridge state for diagnostics.
type Statistics struct {
	Uptime        time.Duration     `json:"uptime_ns"`
	BufferedBytes int64             `json:"buffered_bytes"`
	ChannelDepth  int               `json:"channel_depth"`
	ChannelCap    int               `json:"channel_capacity"`
	Underruns     uint64            `json:"underruns"`
	Transmitting  bool              `json:"transmitting"`
	Detector      vad.DetectorStats `json:"detector"`
}

// New wires a bridge from its collaborators. reader and writer are the two
// sides of the shared serial device; decode and out drive playback; src
// supplies capture windows.
func New(cfg Config, reader SerialReader, writer SerialWriter, decode Decoder, out Player, src WindowSource, logger *slog.Logger, m *metrics.Metrics) *Bridge {
	ch := audio.NewChunkChannel(cfg.ChannelCapacity)
	det := vad.NewDetector(cfg.SilenceLevel)

	return &Bridge{
		cfg:    cfg,
		logger: logger,
		ch:     ch,
		det:    det,
		recv:   NewReceivePump(reader, ch, logger, m, cfg.ChunkBytes, cfg.PollInterval),
		play:   NewPlaybackPump(ch, decode, out, logger, m, cfg.MinDecodeBytes, cfg.MinPlayableBytes),
		gate:   NewTransmitGate(src, writer, det, logger, m, cfg.GatePollInterval, cfg.SettleDelay),
	}
}

// SerialWriter is the write side of the serial collaborator. Writes from
// the transmit gate interleave safely with reads from the receive pump.
type SerialWriter interface {
	Write(b []byte) (int, error)
}

// Start launches the three pump goroutines. Each pump terminates on its
// own fatal I/O error without taking the others down; all observe ctx.
func (b *Bridge) Start(ctx context.Context) {
	ctx, b.cancel = context.WithCancel(ctx)
	b.start = time.Now()

	b.wg.Add(3)
	go func() {
		defer b.wg.Done()
		if err := b.recv.Run(ctx); err != nil {
			b.logger.Error("Receive pump terminated", slog.String("error", err.Error()))
		}
	}()
	go func() {
		defer b.wg.Done()
		b.play.Run(ctx)
	}()
	go func() {
		defer b.wg.Done()
		if err := b.gate.Run(ctx); err != nil {
			b.logger.Error("Transmit gate terminated", slog.String("error", err.Error()))
		}
	}()

	b.logger.Info("Bridge started",
		slog.Int("chunk_bytes", b.cfg.ChunkBytes),
		slog.Int("channel_capacity", b.cfg.ChannelCapacity),
		slog.Duration("poll_interval", b.cfg.PollInterval),
		slog.Duration("settle_delay", b.cfg.SettleDelay),
	)
}

// Stop cancels all pumps and waits for them to exit.
func (b *Bridge) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
	b.logger.Info("Bridge stopped",
		slog.Uint64("underruns", b.play.Underruns()),
	)
}

// Stats returns a snapshot of bridge state.
func (b *Bridge) Stats() Statistics {
	return Statistics{
		Uptime:        time.Since(b.start),
		BufferedBytes: b.ch.BufferedBytes(),
		ChannelDepth:  b.ch.Len(),
		ChannelCap:    b.ch.Cap(),
		Underruns:     b.play.Underruns(),
		Transmitting:  b.gate.Transmitting(),
		Detector:      b.det.Stats(),
	}
}
