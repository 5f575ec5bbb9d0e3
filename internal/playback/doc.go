// Package playback is the audio-output collaborator. It wraps the speaker
// device and queues decoded sample streams for gapless in-order playback.
package playback
