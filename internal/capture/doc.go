// Package capture is the audio-capture collaborator. A callback-driven
// microphone device delivers sample buffers on its own thread; the package
// accumulates them into fixed-size windows and exposes the most recent one.
package capture
