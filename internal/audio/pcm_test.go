package audio

import (
	"testing"
)

func TestDecodePCMShortChunk(t *testing.T) {
	for _, chunk := range [][]byte{nil, {}, {128}} {
		if _, err := DecodePCM(chunk); err == nil {
			t.Errorf("DecodePCM(%v) succeeded, want error", chunk)
		}
	}
}

func TestDecodePCMSampleValues(t *testing.T) {
	stream, err := DecodePCM([]byte{0, 128, 255})
	if err != nil {
		t.Fatalf("DecodePCM failed: %v", err)
	}

	samples := make([][2]float64, 4)
	n, ok := stream.Stream(samples)
	if !ok {
		t.Fatal("Stream returned ok=false on first call")
	}
	if n != 3 {
		t.Fatalf("Stream returned %d samples, want 3", n)
	}

	// Byte 0 maps to -1, the center byte 128 to 0, byte 255 just under +1.
	if samples[0][0] != -1 {
		t.Errorf("sample 0 = %f, want -1", samples[0][0])
	}
	if samples[1][0] != 0 {
		t.Errorf("sample 1 = %f, want 0", samples[1][0])
	}
	if samples[2][0] <= 0.9 || samples[2][0] >= 1 {
		t.Errorf("sample 2 = %f, want just below 1", samples[2][0])
	}

	// Mono duplicated into both channels.
	for i := 0; i < 3; i++ {
		if samples[i][0] != samples[i][1] {
			t.Errorf("sample %d channels differ: %f vs %f", i, samples[i][0], samples[i][1])
		}
	}

	// Stream is exhausted after all samples are drained.
	if n, ok := stream.Stream(samples); ok || n != 0 {
		t.Errorf("Stream after exhaustion = (%d, %v), want (0, false)", n, ok)
	}
}

func TestDecodePCMCopiesChunk(t *testing.T) {
	chunk := []byte{10, 20, 30, 40}
	stream, err := DecodePCM(chunk)
	if err != nil {
		t.Fatalf("DecodePCM failed: %v", err)
	}

	// Mutating the source chunk after decode must not affect the stream.
	chunk[0] = 128

	samples := make([][2]float64, 1)
	stream.Stream(samples)
	want := (float64(10) - SilenceLevel) / SilenceLevel
	if samples[0][0] != want {
		t.Errorf("sample 0 = %f, want %f (chunk not copied)", samples[0][0], want)
	}
}
