// Package audio provides the chunk data model shared by the serial and
// playback paths. It implements the bounded single-producer single-consumer
// chunk channel that decouples serial receive pacing from playback pacing,
// and PCM decoding of received chunks into playable sample streams.
package audio
