// Package bridge contains the real-time core of the relay: the receive
// pump draining serial audio into the chunk channel, the playback pump
// decoding and submitting it to the speaker, and the transmit gate
// forwarding gated microphone windows back over serial with in-band mode
// switching. Each runs on its own goroutine; the chunk channel is the only
// data shared between them.
package bridge
