package audio

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Send once the receiving side has shut down, and
// by Receive once the sending side has closed and the queue is drained.
// It signals normal termination of the opposite pump, not a failure.
var ErrClosed = errors.New("audio: chunk channel closed")

// Chunk is one discrete unit of raw bytes moved between serial I/O and
// decoding. A chunk is immutable once enqueued and is consumed exactly once.
type Chunk []byte

// ChunkChannel is a bounded FIFO queue of chunks between a single producer
// and a single consumer. Send blocks while the channel is full and Receive
// blocks while it is empty, so backpressure from a slow consumer is visible
// as delay rather than silent data loss. Capacity bounds both memory use
// and receive-side latency.
type ChunkChannel struct {
	ch   chan Chunk
	done chan struct{}

	closeSendOnce sync.Once
	closeOnce     sync.Once

	buffered atomic.Int64 // bytes currently queued
}

// NewChunkChannel creates a channel holding at most capacity chunks.
func NewChunkChannel(capacity int) *ChunkChannel {
	if capacity < 1 {
		capacity = 1
	}
	return &ChunkChannel{
		ch:   make(chan Chunk, capacity),
		done: make(chan struct{}),
	}
}

// Send enqueues one chunk, blocking while the channel is at capacity. It
// returns ErrClosed if the receiving side has terminated, or the context
// error if ctx is cancelled while waiting. Only the single producer may
// call Send, and never after CloseSend.
func (c *ChunkChannel) Send(ctx context.Context, chunk Chunk) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.ch <- chunk:
		c.buffered.Add(int64(len(chunk)))
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive dequeues the next chunk in FIFO order, blocking while the channel
// is empty. After the producer calls CloseSend, Receive keeps returning the
// remaining queued chunks and only then returns ErrClosed; ErrClosed is
// terminal. The context error is returned if ctx is cancelled while waiting.
func (c *ChunkChannel) Receive(ctx context.Context) (Chunk, error) {
	select {
	case chunk, ok := <-c.ch:
		if !ok {
			return nil, ErrClosed
		}
		c.buffered.Add(-int64(len(chunk)))
		return chunk, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CloseSend marks the producer side as terminated. Chunks already queued
// remain receivable; once drained, Receive returns ErrClosed. Safe to call
// more than once.
func (c *ChunkChannel) CloseSend() {
	c.closeSendOnce.Do(func() { close(c.ch) })
}

// Close marks the receiving side as terminated, unblocking any pending or
// future Send with ErrClosed. Safe to call more than once.
func (c *ChunkChannel) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Len returns the number of chunks currently queued. Diagnostic only; the
// value may be stale by the time the caller inspects it.
func (c *ChunkChannel) Len() int {
	return len(c.ch)
}

// Cap returns the channel capacity.
func (c *ChunkChannel) Cap() int {
	return cap(c.ch)
}

// BufferedBytes returns the total size of all queued chunks. Diagnostic
// only, eventually consistent.
func (c *ChunkChannel) BufferedBytes() int64 {
	n := c.buffered.Load()
	if n < 0 {
		return 0
	}
	return n
}
