package playback

import "github.com/faiface/beep"

// Queue is a beep.Streamer that plays appended streamers back to back in
// submission order. When empty it streams silence instead of ending, so
// the speaker keeps pulling and later submissions play immediately.
// Append must be called under speaker.Lock once the queue is playing.
type Queue struct {
	streamers []beep.Streamer
	queued    uint64
}

// Append adds a streamer to the tail of the queue.
func (q *Queue) Append(s beep.Streamer) {
	q.streamers = append(q.streamers, s)
	q.queued++
}

// Len returns the number of streamers waiting to play, including the one
// currently playing.
func (q *Queue) Len() int {
	return len(q.streamers)
}

// Queued returns the total number of streamers ever appended.
func (q *Queue) Queued() uint64 {
	return q.queued
}

func (q *Queue) Stream(samples [][2]float64) (int, bool) {
	filled := 0
	for filled < len(samples) {
		if len(q.streamers) == 0 {
			// Nothing queued: emit silence.
			for i := filled; i < len(samples); i++ {
				samples[i][0] = 0
				samples[i][1] = 0
			}
			return len(samples), true
		}

		n, ok := q.streamers[0].Stream(samples[filled:])
		if !ok {
			q.streamers = q.streamers[1:]
		}
		filled += n
	}
	return len(samples), true
}

func (q *Queue) Err() error { return nil }
