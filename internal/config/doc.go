// Package config provides YAML configuration loading and validation for
// the serial device, audio devices, chunk channel, silence gate, and
// diagnostics.
package config
