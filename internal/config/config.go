package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete bridge configuration
type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	Audio       AudioConfig       `yaml:"audio"`
	Channel     ChannelConfig     `yaml:"channel"`
	Gate        GateConfig        `yaml:"gate"`
	HTTP        HTTPConfig        `yaml:"http"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// SerialConfig contains serial device parameters
type SerialConfig struct {
	Device         string `yaml:"device"`
	BaudRate       int    `yaml:"baud_rate"`
	ReadTimeoutMS  int    `yaml:"read_timeout_ms"`
	ChunkBytes     int    `yaml:"chunk_bytes"`
	PollIntervalMS int    `yaml:"poll_interval_ms"`
	StartupDelayS  int    `yaml:"startup_delay_s"` // device settle before enabling streaming
}

// AudioConfig contains audio device parameters
type AudioConfig struct {
	SampleRate         int `yaml:"sample_rate"`
	PlaybackBufferMS   int `yaml:"playback_buffer_ms"`
	CaptureWindowBytes int `yaml:"capture_window_bytes"`
}

// ChannelConfig contains chunk channel tuning
type ChannelConfig struct {
	Capacity         int `yaml:"capacity"`
	MinDecodeBytes   int `yaml:"min_decode_bytes"`
	MinPlayableBytes int `yaml:"min_playable_bytes"`
}

// GateConfig contains silence gate parameters
type GateConfig struct {
	SilenceLevel   int `yaml:"silence_level"`
	SettleDelayMS  int `yaml:"settle_delay_ms"`
	PollIntervalMS int `yaml:"poll_interval_ms"`
}

// HTTPConfig contains diagnostics HTTP server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
	Enabled bool   `yaml:"enabled"`
}

// DiagnosticsConfig contains the periodic status line settings
type DiagnosticsConfig struct {
	StatusIntervalS int `yaml:"status_interval_s"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Serial.Validate(); err != nil {
		return fmt.Errorf("serial config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Channel.Validate(); err != nil {
		return fmt.Errorf("channel config: %w", err)
	}

	if err := c.Gate.Validate(); err != nil {
		return fmt.Errorf("gate config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Diagnostics.Validate(); err != nil {
		return fmt.Errorf("diagnostics config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates serial configuration
func (s *SerialConfig) Validate() error {
	if s.Device == "" {
		return fmt.Errorf("device cannot be empty")
	}

	if s.BaudRate < 1200 {
		return fmt.Errorf("baud_rate must be at least 1200, got %d", s.BaudRate)
	}

	if s.ReadTimeoutMS < 1 {
		return fmt.Errorf("read_timeout_ms must be at least 1, got %d", s.ReadTimeoutMS)
	}

	if s.ChunkBytes < 2 || s.ChunkBytes > 65536 {
		return fmt.Errorf("chunk_bytes must be between 2 and 65536, got %d", s.ChunkBytes)
	}

	if s.PollIntervalMS < 1 {
		return fmt.Errorf("poll_interval_ms must be at least 1, got %d", s.PollIntervalMS)
	}

	if s.StartupDelayS < 0 {
		return fmt.Errorf("startup_delay_s cannot be negative, got %d", s.StartupDelayS)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate < 8000 || a.SampleRate > 48000 {
		return fmt.Errorf("sample_rate must be between 8000 and 48000 Hz, got %d", a.SampleRate)
	}

	if a.PlaybackBufferMS < 10 {
		return fmt.Errorf("playback_buffer_ms must be at least 10, got %d", a.PlaybackBufferMS)
	}

	if a.CaptureWindowBytes < 64 {
		return fmt.Errorf("capture_window_bytes must be at least 64, got %d", a.CaptureWindowBytes)
	}

	return nil
}

// Validate validates channel configuration
func (c *ChannelConfig) Validate() error {
	if c.Capacity < 1 {
		return fmt.Errorf("capacity must be at least 1, got %d", c.Capacity)
	}

	if c.MinDecodeBytes < 1 {
		return fmt.Errorf("min_decode_bytes must be at least 1, got %d", c.MinDecodeBytes)
	}

	if c.MinPlayableBytes < c.MinDecodeBytes {
		return fmt.Errorf("min_playable_bytes (%d) must be at least min_decode_bytes (%d)",
			c.MinPlayableBytes, c.MinDecodeBytes)
	}

	return nil
}

// Validate validates gate configuration
func (g *GateConfig) Validate() error {
	if g.SilenceLevel < 0 || g.SilenceLevel > 255 {
		return fmt.Errorf("silence_level must be between 0 and 255, got %d", g.SilenceLevel)
	}

	if g.SettleDelayMS < 0 {
		return fmt.Errorf("settle_delay_ms cannot be negative, got %d", g.SettleDelayMS)
	}

	if g.PollIntervalMS < 1 {
		return fmt.Errorf("poll_interval_ms must be at least 1, got %d", g.PollIntervalMS)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates diagnostics configuration
func (d *DiagnosticsConfig) Validate() error {
	if d.StatusIntervalS < 1 {
		return fmt.Errorf("status_interval_s must be at least 1, got %d", d.StatusIntervalS)
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetReadTimeout returns the serial read timeout as a time.Duration
func (s *SerialConfig) GetReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutMS) * time.Millisecond
}

// GetPollInterval returns the would-block retry delay as a time.Duration
func (s *SerialConfig) GetPollInterval() time.Duration {
	return time.Duration(s.PollIntervalMS) * time.Millisecond
}

// GetStartupDelay returns the device settle delay as a time.Duration
func (s *SerialConfig) GetStartupDelay() time.Duration {
	return time.Duration(s.StartupDelayS) * time.Second
}

// GetPlaybackBuffer returns the speaker buffer duration as a time.Duration
func (a *AudioConfig) GetPlaybackBuffer() time.Duration {
	return time.Duration(a.PlaybackBufferMS) * time.Millisecond
}

// GetSettleDelay returns the transmit release settle delay as a time.Duration
func (g *GateConfig) GetSettleDelay() time.Duration {
	return time.Duration(g.SettleDelayMS) * time.Millisecond
}

// GetPollInterval returns the gate poll cadence as a time.Duration
func (g *GateConfig) GetPollInterval() time.Duration {
	return time.Duration(g.PollIntervalMS) * time.Millisecond
}

// GetStatusInterval returns the status line interval as a time.Duration
func (d *DiagnosticsConfig) GetStatusInterval() time.Duration {
	return time.Duration(d.StatusIntervalS) * time.Second
}

// Default returns the built-in configuration matching the reference
// transceiver setup.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Device:         "/dev/ttyUSB0",
			BaudRate:       115200,
			ReadTimeoutMS:  10,
			ChunkBytes:     500,
			PollIntervalMS: 10,
			StartupDelayS:  3,
		},
		Audio: AudioConfig{
			SampleRate:         11525,
			PlaybackBufferMS:   100,
			CaptureWindowBytes: 1024,
		},
		Channel: ChannelConfig{
			Capacity:         10,
			MinDecodeBytes:   2,
			MinPlayableBytes: 10,
		},
		Gate: GateConfig{
			SilenceLevel:   128,
			SettleDelayMS:  100,
			PollIntervalMS: 50,
		},
		HTTP: HTTPConfig{
			Port:    8090,
			Address: "127.0.0.1",
			Enabled: false,
		},
		Diagnostics: DiagnosticsConfig{
			StatusIntervalS: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}
