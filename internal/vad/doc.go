// Package vad implements the silence gate used by the transmit path. It
// compares the extremes of each captured sample window against the
// digitized-zero constant to decide whether the operator is speaking.
package vad
