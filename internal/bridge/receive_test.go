package bridge

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/lewislewin/rustysdx-audio/internal/audio"
	"github.com/lewislewin/rustysdx-audio/internal/metrics"
	"github.com/lewislewin/rustysdx-audio/internal/serial"
)

// Prometheus collectors register globally, so the whole test binary shares
// one Metrics instance.
var (
	testMetricsOnce sync.Once
	testMetricsInst *metrics.Metrics
)

func testMetrics() *metrics.Metrics {
	testMetricsOnce.Do(func() { testMetricsInst = metrics.NewMetrics() })
	return testMetricsInst
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// readResult scripts one Read call of the fake serial device.
type readResult struct {
	data []byte
	err  error
}

// fakeSerial replays a script of read results. After the script is
// exhausted it keeps returning finalErr.
type fakeSerial struct {
	mu       sync.Mutex
	script   []readResult
	finalErr error
	reads    int
}

func (f *fakeSerial) Read(buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if len(f.script) == 0 {
		return 0, f.finalErr
	}
	next := f.script[0]
	f.script = f.script[1:]
	if next.err != nil {
		return 0, next.err
	}
	return copy(buf, next.data), nil
}

func TestReceivePumpForwardsExactChunks(t *testing.T) {
	src := &fakeSerial{
		script: []readResult{
			{data: []byte{1, 2, 3}},
			{data: []byte{4, 5}},
		},
		finalErr: io.ErrUnexpectedEOF,
	}
	ch := audio.NewChunkChannel(10)
	pump := NewReceivePump(src, ch, testLogger(), testMetrics(), 500, time.Millisecond)

	err := pump.Run(context.Background())
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("Run = %v, want io.ErrUnexpectedEOF", err)
	}

	ctx := context.Background()
	got, err := ch.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("first chunk = %v, want [1 2 3] (must not be padded to block size)", got)
	}

	got, err = ch.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if !bytes.Equal(got, []byte{4, 5}) {
		t.Errorf("second chunk = %v, want [4 5]", got)
	}

	// The pump closed its side, so the consumer observes termination.
	if _, err := ch.Receive(ctx); !errors.Is(err, audio.ErrClosed) {
		t.Errorf("Receive after pump exit = %v, want ErrClosed", err)
	}
}

func TestReceivePumpRetriesOnWouldBlock(t *testing.T) {
	src := &fakeSerial{
		script: []readResult{
			{err: serial.ErrWouldBlock},
			{err: serial.ErrWouldBlock},
			{data: []byte{9}},
		},
		finalErr: io.EOF,
	}
	ch := audio.NewChunkChannel(10)
	pump := NewReceivePump(src, ch, testLogger(), testMetrics(), 500, time.Millisecond)

	pump.Run(context.Background())

	// Would-block reads must not enqueue anything; only the real read does.
	got, err := ch.Receive(context.Background())
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if !bytes.Equal(got, []byte{9}) {
		t.Errorf("chunk = %v, want [9]", got)
	}
	if _, err := ch.Receive(context.Background()); !errors.Is(err, audio.ErrClosed) {
		t.Errorf("expected exactly one chunk, got more (err=%v)", err)
	}
	if src.reads != 4 {
		t.Errorf("device reads = %d, want 4 (two retries, one data, one EOF)", src.reads)
	}
}

func TestReceivePumpFatalErrorClosesChannel(t *testing.T) {
	src := &fakeSerial{finalErr: io.ErrClosedPipe}
	ch := audio.NewChunkChannel(10)
	pump := NewReceivePump(src, ch, testLogger(), testMetrics(), 500, time.Millisecond)

	if err := pump.Run(context.Background()); !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("Run = %v, want io.ErrClosedPipe", err)
	}

	if _, err := ch.Receive(context.Background()); !errors.Is(err, audio.ErrClosed) {
		t.Errorf("Receive after fatal pump error = %v, want ErrClosed (not a hang)", err)
	}
}

func TestReceivePumpStopsOnCancel(t *testing.T) {
	// Endless would-block: the pump only exits via ctx.
	src := &fakeSerial{finalErr: serial.ErrWouldBlock}
	ch := audio.NewChunkChannel(10)
	pump := NewReceivePump(src, ch, testLogger(), testMetrics(), 500, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pump.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run after cancel = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("pump did not stop after cancellation")
	}
}
