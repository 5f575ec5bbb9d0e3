package audio

import (
	"fmt"

	"github.com/faiface/beep"
)

// MinDecodeBytes is the smallest chunk the decoder accepts. Anything
// shorter is starvation debris, not audio.
const MinDecodeBytes = 2

// SilenceLevel is the digitized zero for unsigned 8-bit PCM.
const SilenceLevel = 128

// pcmStreamer renders unsigned 8-bit mono PCM as a beep sample stream,
// duplicating the mono signal into both output channels.
type pcmStreamer struct {
	data []byte
	pos  int
}

func (s *pcmStreamer) Stream(samples [][2]float64) (int, bool) {
	if s.pos >= len(s.data) {
		return 0, false
	}
	n := 0
	for i := range samples {
		if s.pos >= len(s.data) {
			break
		}
		v := (float64(s.data[s.pos]) - SilenceLevel) / SilenceLevel
		samples[i][0] = v
		samples[i][1] = v
		s.pos++
		n++
	}
	return n, true
}

func (s *pcmStreamer) Err() error { return nil }

// DecodePCM converts one received chunk of unsigned 8-bit mono PCM into a
// playable sample stream. It rejects chunks shorter than MinDecodeBytes so
// degenerate reads never reach the speaker.
func DecodePCM(chunk []byte) (beep.Streamer, error) {
	if len(chunk) < MinDecodeBytes {
		return nil, fmt.Errorf("chunk too short to decode: %d bytes", len(chunk))
	}
	data := make([]byte, len(chunk))
	copy(data, chunk)
	return &pcmStreamer{data: data}, nil
}
