package bridge

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/faiface/beep"

	"github.com/lewislewin/rustysdx-audio/internal/audio"
	"github.com/lewislewin/rustysdx-audio/internal/metrics"
)

// Decoder is the decode collaborator: a pure function from one received
// chunk to a playable sample stream, or a typed decode error.
type Decoder func(chunk []byte) (beep.Streamer, error)

// Player is the audio-output collaborator. Submitted streams play in
// submission order; queuing beyond submission is the player's concern.
type Player interface {
	Submit(s beep.Streamer)
}

// PlaybackPump consumes chunks from the channel, decodes them, and submits
// the resulting sample streams for playback in receive order. Starvation
// and single-chunk corruption are tolerated; only channel closure or
// cancellation stops the pump.
type PlaybackPump struct {
	ch      *audio.ChunkChannel
	decode  Decoder
	out     Player
	logger  *slog.Logger
	metrics *metrics.Metrics

	minDecodeBytes   int
	minPlayableBytes int

	underruns atomic.Uint64
}

// NewPlaybackPump creates a playback pump. Chunks shorter than
// minDecodeBytes count as underruns and are accumulated with follow-up
// chunks until minPlayableBytes before decoding.
func NewPlaybackPump(ch *audio.ChunkChannel, decode Decoder, out Player, logger *slog.Logger, m *metrics.Metrics, minDecodeBytes, minPlayableBytes int) *PlaybackPump {
	return &PlaybackPump{
		ch:               ch,
		decode:           decode,
		out:              out,
		logger:           logger,
		metrics:          m,
		minDecodeBytes:   minDecodeBytes,
		minPlayableBytes: minPlayableBytes,
	}
}

// Run consumes chunks until the channel closes or ctx is cancelled. It
// always returns nil: channel closure is a normal termination signal and
// decode failures never terminate the pump.
func (p *PlaybackPump) Run(ctx context.Context) error {
	defer p.ch.Close()

	for {
		chunk, err := p.ch.Receive(ctx)
		if err != nil {
			p.reportStop(err)
			return nil
		}

		if len(chunk) < p.minDecodeBytes {
			n := p.underruns.Add(1)
			p.metrics.RecordUnderrun()
			p.logger.Warn("Playback underrun, refilling",
				slog.Uint64("underrun", n),
				slog.Int("chunk_bytes", len(chunk)),
			)

			chunk, err = p.refill(ctx, chunk)
			if err != nil && len(chunk) < p.minDecodeBytes {
				// Channel closed before anything playable accumulated.
				p.reportStop(err)
				return nil
			}
		}

		stream, decodeErr := p.decode(chunk)
		if decodeErr != nil {
			// Corruption of a single chunk happens at channel boundaries
			// and must not kill playback of the rest of the stream.
			p.metrics.RecordDecodeFailure()
			p.logger.Debug("Dropping undecodable chunk",
				slog.Int("chunk_bytes", len(chunk)),
				slog.String("error", decodeErr.Error()),
			)
		} else {
			p.out.Submit(stream)
			p.metrics.RecordChunkPlayed(len(chunk))
		}
		p.metrics.SetChannelDepth(p.ch.Len())

		if err != nil {
			// refill hit closure after accumulating a playable tail.
			p.reportStop(err)
			return nil
		}
	}
}

// refill pulls subsequent chunks until a minimum playable amount has
// accumulated. It returns early with the partial accumulation and the
// receive error if the channel closes or ctx is cancelled, so starvation
// on a dead channel never blocks indefinitely.
func (p *PlaybackPump) refill(ctx context.Context, head audio.Chunk) (audio.Chunk, error) {
	acc := head
	for len(acc) < p.minPlayableBytes {
		chunk, err := p.ch.Receive(ctx)
		if err != nil {
			return acc, err
		}
		acc = append(acc, chunk...)
	}
	return acc, nil
}

func (p *PlaybackPump) reportStop(err error) {
	if errors.Is(err, audio.ErrClosed) {
		p.logger.Info("Playback pump stopping", slog.String("reason", "channel closed"))
	} else {
		p.logger.Info("Playback pump stopping", slog.String("reason", "shutdown"))
	}
}

// Underruns returns the number of starvation events observed so far.
// Diagnostic only.
func (p *PlaybackPump) Underruns() uint64 {
	return p.underruns.Load()
}
