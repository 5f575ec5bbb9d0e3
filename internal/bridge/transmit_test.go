package bridge

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/lewislewin/rustysdx-audio/internal/protocol"
	"github.com/lewislewin/rustysdx-audio/internal/vad"
)

// recordingPort captures each Write call as a separate record.
type recordingPort struct {
	mu     sync.Mutex
	writes [][]byte
	err    error
}

func (p *recordingPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return 0, p.err
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	p.writes = append(p.writes, cp)
	return len(b), nil
}

func (p *recordingPort) all() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}

func newTestGate(port io.Writer) *TransmitGate {
	det := vad.NewDetector(128)
	return NewTransmitGate(nil, port, det, testLogger(), testMetrics(), time.Millisecond, time.Millisecond)
}

func silentWindow(n int) []byte {
	return bytes.Repeat([]byte{128}, n)
}

func activeWindow(n int) []byte {
	w := silentWindow(n)
	w[n/2] = 200
	return w
}

// feed runs a trace of capture windows through the gate, each window a
// freshly completed one.
func feed(t *testing.T, g *TransmitGate, trace [][]byte) {
	t.Helper()
	ctx := context.Background()
	for i, w := range trace {
		if err := g.step(ctx, w, uint64(i+1)); err != nil {
			t.Fatalf("step(%d) failed: %v", i, err)
		}
	}
}

func TestGateAllSilenceWritesNothing(t *testing.T) {
	port := &recordingPort{}
	g := newTestGate(port)

	trace := [][]byte{silentWindow(64), silentWindow(64), silentWindow(64)}
	feed(t, g, trace)

	if n := len(port.all()); n != 0 {
		t.Errorf("gate issued %d writes on all-silence trace, want 0", n)
	}
	if g.Transmitting() {
		t.Error("Transmitting = true after silence-only trace")
	}
}

func TestGateSingleTransitionWritesTokenThenBuffer(t *testing.T) {
	port := &recordingPort{}
	g := newTestGate(port)

	window := activeWindow(64)
	feed(t, g, [][]byte{silentWindow(64), window})

	writes := port.all()
	if len(writes) != 2 {
		t.Fatalf("gate issued %d writes, want 2 (mode switch + buffer)", len(writes))
	}
	if !bytes.Equal(writes[0], protocol.TokenTransmit) {
		t.Errorf("first write = %q, want transmit token %q", writes[0], protocol.TokenTransmit)
	}
	if !bytes.Equal(writes[1], window) {
		t.Errorf("second write = %v, want the captured window", writes[1])
	}
	if !g.Transmitting() {
		t.Error("Transmitting = false after activity")
	}
}

func TestGateSteadyActivitySendsTokenOnce(t *testing.T) {
	port := &recordingPort{}
	g := newTestGate(port)

	feed(t, g, [][]byte{activeWindow(64), activeWindow(64), activeWindow(64)})

	tokens := 0
	for _, w := range port.all() {
		if bytes.Equal(w, protocol.TokenTransmit) {
			tokens++
		}
	}
	if tokens != 1 {
		t.Errorf("transmit token sent %d times during steady activity, want 1", tokens)
	}
	// Token plus one buffer write per active window.
	if n := len(port.all()); n != 4 {
		t.Errorf("gate issued %d writes, want 4", n)
	}
}

func TestGateReleaseSendsReceiveTokenOnce(t *testing.T) {
	port := &recordingPort{}
	g := newTestGate(port)

	feed(t, g, [][]byte{
		activeWindow(64),
		silentWindow(64),
		silentWindow(64), // steady silence after release: no traffic
	})

	writes := port.all()
	if len(writes) != 3 {
		t.Fatalf("gate issued %d writes, want 3 (tx token, buffer, rx token)", len(writes))
	}
	if !bytes.Equal(writes[2], protocol.TokenReceive) {
		t.Errorf("release write = %q, want receive token %q", writes[2], protocol.TokenReceive)
	}
	if g.Transmitting() {
		t.Error("Transmitting = true after release")
	}
}

func TestGateTokenCountMatchesSignChanges(t *testing.T) {
	port := &recordingPort{}
	g := newTestGate(port)

	// Trace with three silence->activity and three activity->silence edges.
	trace := [][]byte{
		silentWindow(8),
		activeWindow(8), activeWindow(8),
		silentWindow(8),
		activeWindow(8),
		silentWindow(8), silentWindow(8),
		activeWindow(8),
		silentWindow(8),
	}
	feed(t, g, trace)

	txTokens, rxTokens := 0, 0
	for _, w := range port.all() {
		switch {
		case bytes.Equal(w, protocol.TokenTransmit):
			txTokens++
		case bytes.Equal(w, protocol.TokenReceive):
			rxTokens++
		}
	}
	if txTokens != 3 {
		t.Errorf("transmit tokens = %d, want 3", txTokens)
	}
	if rxTokens != 3 {
		t.Errorf("receive tokens = %d, want 3", rxTokens)
	}
}

func TestGateReleasesOnShutdown(t *testing.T) {
	port := &recordingPort{}
	det := vad.NewDetector(128)

	// The source keeps producing activity so the gate keys up, then we
	// cancel and expect it to unkey before exiting.
	src := &staticSource{window: activeWindow(64), seq: 1}
	g := NewTransmitGate(src, port, det, testLogger(), testMetrics(), time.Millisecond, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Run(ctx) }()

	// Wait until the gate has keyed up.
	deadline := time.After(time.Second)
	for !g.Transmitting() {
		select {
		case <-deadline:
			t.Fatal("gate never entered transmit mode")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("gate did not stop after cancellation")
	}

	writes := port.all()
	if len(writes) == 0 || !bytes.Equal(writes[len(writes)-1], protocol.TokenReceive) {
		t.Error("gate did not release transmit mode on shutdown")
	}
	if g.Transmitting() {
		t.Error("Transmitting = true after shutdown release")
	}
}

// staticSource hands out the same window on every poll, as the real
// capture accumulator does between window completions.
type staticSource struct {
	window []byte
	seq    uint64
}

func (s *staticSource) Latest() ([]byte, uint64) { return s.window, s.seq }

func TestGateSendsEachWindowOnce(t *testing.T) {
	port := &recordingPort{}
	det := vad.NewDetector(128)

	// Poll much faster than windows complete: the gate sees the same
	// window on many consecutive ticks and must forward it exactly once.
	src := &staticSource{window: activeWindow(64), seq: 1}
	g := NewTransmitGate(src, port, det, testLogger(), testMetrics(), time.Millisecond, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	g.Run(ctx)

	buffers := 0
	for _, w := range port.all() {
		if !bytes.Equal(w, protocol.TokenTransmit) && !bytes.Equal(w, protocol.TokenReceive) {
			buffers++
		}
	}
	if buffers != 1 {
		t.Errorf("one capture window completed but %d buffer writes went out, want 1", buffers)
	}
}

func TestGateRepeatedPollsOfSameWindowWriteNothingNew(t *testing.T) {
	port := &recordingPort{}
	g := newTestGate(port)
	ctx := context.Background()

	// First poll of window 1 keys up and sends it; three re-reads of the
	// same window change nothing; window 2 goes out exactly once.
	first := activeWindow(64)
	for i := 0; i < 4; i++ {
		if err := g.step(ctx, first, 1); err != nil {
			t.Fatalf("step(window 1, poll %d) failed: %v", i, err)
		}
	}
	second := activeWindow(64)
	second[3] = 42
	if err := g.step(ctx, second, 2); err != nil {
		t.Fatalf("step(window 2) failed: %v", err)
	}

	writes := port.all()
	if len(writes) != 3 {
		t.Fatalf("gate issued %d writes, want 3 (token, window 1, window 2)", len(writes))
	}
	if !bytes.Equal(writes[1], first) {
		t.Errorf("second write = %v, want window 1", writes[1])
	}
	if !bytes.Equal(writes[2], second) {
		t.Errorf("third write = %v, want window 2", writes[2])
	}
}

func TestGateIgnoresEmptySource(t *testing.T) {
	port := &recordingPort{}
	det := vad.NewDetector(128)
	g := NewTransmitGate(&staticSource{}, port, det, testLogger(), testMetrics(), time.Millisecond, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	g.Run(ctx)

	if n := len(port.all()); n != 0 {
		t.Errorf("gate issued %d writes before any capture window, want 0", n)
	}
}
