package playback

import (
	"fmt"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
)

// Player owns the speaker and a FIFO queue of decoded sample streams.
// Submission order is playback order; buffering beyond submission is the
// speaker's concern.
type Player struct {
	queue      *Queue
	sampleRate beep.SampleRate
}

// NewPlayer initializes the default audio output device at the given
// sample rate and starts the playback queue. bufferDuration sets the
// speaker's internal buffer; larger values tolerate more scheduling jitter
// at the cost of latency.
func NewPlayer(sampleRate int, bufferDuration time.Duration) (*Player, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	sr := beep.SampleRate(sampleRate)
	if err := speaker.Init(sr, sr.N(bufferDuration)); err != nil {
		return nil, fmt.Errorf("failed to initialize audio output: %w", err)
	}

	q := &Queue{}
	speaker.Play(q)

	return &Player{queue: q, sampleRate: sr}, nil
}

// Submit appends a decoded sample stream to the playback queue. Streams
// play in submission order.
func (p *Player) Submit(s beep.Streamer) {
	speaker.Lock()
	p.queue.Append(s)
	speaker.Unlock()
}

// QueueLen returns the number of streams still waiting to play.
func (p *Player) QueueLen() int {
	speaker.Lock()
	defer speaker.Unlock()
	return p.queue.Len()
}

// Close drops any queued audio.
func (p *Player) Close() {
	speaker.Clear()
}
