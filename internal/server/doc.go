// Package server provides the optional diagnostics HTTP server exposing
// health, configuration, bridge statistics, and Prometheus metrics.
package server
