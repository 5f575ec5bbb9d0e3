package capture

import "sync"

// Accumulator collects capture callback deliveries into fixed-size windows.
// The callback thread pushes whatever the device hands it; the transmit
// gate reads only the most recently completed window. Older windows are
// discarded, the gate always sees fresh audio.
type Accumulator struct {
	mu      sync.Mutex
	pending []byte
	latest  []byte
	size    int
	windows uint64
}

// NewAccumulator creates an accumulator producing windows of size bytes.
func NewAccumulator(size int) *Accumulator {
	return &Accumulator{
		pending: make([]byte, 0, size),
		size:    size,
	}
}

// Push adds captured samples. Each time a full window accumulates it
// replaces the latest window. Safe to call from the device callback thread.
func (a *Accumulator) Push(samples []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.pending = append(a.pending, samples...)
	for len(a.pending) >= a.size {
		window := make([]byte, a.size)
		copy(window, a.pending[:a.size])
		a.pending = a.pending[:copy(a.pending, a.pending[a.size:])]
		a.latest = window
		a.windows++
	}
}

// Latest returns a copy of the most recently completed window and its
// sequence number, or nil and zero if no full window has accumulated yet.
// The sequence advances by one per completed window, so a caller can tell
// a fresh window from a re-read of one it already consumed.
func (a *Accumulator) Latest() ([]byte, uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.latest == nil {
		return nil, 0
	}
	window := make([]byte, len(a.latest))
	copy(window, a.latest)
	return window, a.windows
}

// Windows returns the total number of completed windows.
func (a *Accumulator) Windows() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.windows
}
