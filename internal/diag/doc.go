// Package diag emits a periodic human-readable status line summarizing
// bridge activity: uptime, buffered audio, channel depth, underruns, and
// the current transmit state.
package diag
