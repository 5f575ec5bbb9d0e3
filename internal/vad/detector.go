package vad

import (
	"sync"
	"time"
)

// Detector implements the silence gate for captured microphone windows.
// A window is silent if and only if every sample equals the digitized
// center level: min == max == center. Any deviation, including single-
// sample quantization noise off center, counts as activity. The byte-exact
// test deliberately has no tolerance band; see DetectorStats for how often
// it fires.
type Detector struct {
	center byte

	// Statistics
	totalWindows  uint64
	activeWindows uint64
	lastProcessed time.Time

	mu sync.RWMutex
}

// DetectorStats reports detector activity for diagnostics.
type DetectorStats struct {
	Center           byte      `json:"center"`
	TotalWindows     uint64    `json:"total_windows"`
	ActiveWindows    uint64    `json:"active_windows"`
	ActivePercentage float64   `json:"active_percentage"`
	LastProcessed    time.Time `json:"last_processed"`
}

// NewDetector creates a detector gated on the given center sample value
// (128 for unsigned 8-bit audio).
func NewDetector(center byte) *Detector {
	return &Detector{center: center}
}

// Active reports whether the window carries signal. An empty window is
// silent.
func (d *Detector) Active(window []byte) bool {
	active := false
	if len(window) > 0 {
		min, max := window[0], window[0]
		for _, s := range window[1:] {
			if s < min {
				min = s
			}
			if s > max {
				max = s
			}
		}
		active = min != d.center || max != d.center
	}

	d.mu.Lock()
	d.totalWindows++
	if active {
		d.activeWindows++
	}
	d.lastProcessed = time.Now()
	d.mu.Unlock()

	return active
}

// Extremes returns the minimum and maximum sample values of the window.
// Both are the center level for an empty window.
func (d *Detector) Extremes(window []byte) (min, max byte) {
	if len(window) == 0 {
		return d.center, d.center
	}
	min, max = window[0], window[0]
	for _, s := range window[1:] {
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	return min, max
}

// Center returns the silence-level constant the detector compares against.
func (d *Detector) Center() byte {
	return d.center
}

// Stats returns current detector statistics.
func (d *Detector) Stats() DetectorStats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	activePercentage := float64(0)
	if d.totalWindows > 0 {
		activePercentage = float64(d.activeWindows) / float64(d.totalWindows) * 100
	}

	return DetectorStats{
		Center:           d.center,
		TotalWindows:     d.totalWindows,
		ActiveWindows:    d.activeWindows,
		ActivePercentage: activePercentage,
		LastProcessed:    d.lastProcessed,
	}
}
