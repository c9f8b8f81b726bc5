package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds recording engine configuration
type Config struct {
	// TargetSampleRate is the sample rate requested from every capture
	// device and the rate of the output WAV file. 48000 is the fixed
	// output contract; changing it changes what negotiation aims for,
	// not the fact that mismatched devices are mixed without resampling.
	TargetSampleRate int `json:"target_sample_rate"`
	// BitDepth of the output WAV samples.
	BitDepth int `json:"bit_depth"`
	// RingCapacity is the per-device ring buffer size in float samples.
	RingCapacity int `json:"ring_capacity"`
	// WriterPollMS is how long the mixer sleeps when both rings are empty.
	WriterPollMS int `json:"writer_poll_ms"`
	// WatchdogIntervalMS is the device-loss polling interval. 0 disables
	// the watchdog.
	WatchdogIntervalMS int `json:"watchdog_interval_ms"`
	// LoopbackDevice optionally names (by substring) the input device to
	// use as the loopback source, for platforms where automatic selection
	// is not attempted. Empty means use the platform heuristic.
	LoopbackDevice string `json:"loopback_device"`
	// LogDir is where engine logs go; empty logs to stderr.
	LogDir string `json:"log_dir"`
	// LogLevel is "debug", "info", "warn" or "error".
	LogLevel string `json:"log_level"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		TargetSampleRate:   48000,
		BitDepth:           16,
		RingCapacity:       32768,
		WriterPollMS:       10,
		WatchdogIntervalMS: 2000,
		LogLevel:           "info",
	}
}

// Load loads configuration from the specified path. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves configuration to the specified path.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate validates all configuration fields.
func (c *Config) Validate() error {
	if c.TargetSampleRate < 8000 || c.TargetSampleRate > 384000 {
		return fmt.Errorf("invalid target_sample_rate: %d (must be between 8000 and 384000)", c.TargetSampleRate)
	}
	if c.BitDepth != 16 {
		return fmt.Errorf("invalid bit_depth: %d (only 16 is supported)", c.BitDepth)
	}
	if c.RingCapacity < 1024 {
		return fmt.Errorf("invalid ring_capacity: %d (must be at least 1024)", c.RingCapacity)
	}
	if c.WriterPollMS <= 0 || c.WriterPollMS > 1000 {
		return fmt.Errorf("invalid writer_poll_ms: %d (must be between 1 and 1000)", c.WriterPollMS)
	}
	if c.WatchdogIntervalMS < 0 {
		return fmt.Errorf("invalid watchdog_interval_ms: %d (must not be negative)", c.WatchdogIntervalMS)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level: %q (must be debug, info, warn or error)", c.LogLevel)
	}
	return nil
}
