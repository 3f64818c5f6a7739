// Package config loads and saves the ondas YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ohmyondas/ondas/pkg/converter"
	"github.com/ohmyondas/ondas/pkg/sequencer"
)

// Config is the on-disk configuration. Zero values in the file fall back to
// DefaultConfig.
type Config struct {
	Tempo       float64      `yaml:"tempo"`
	Seed        uint64       `yaml:"seed"` // 0 seeds from the clock
	PatternsDir string       `yaml:"patterns_dir"`
	LogLevel    string       `yaml:"log_level"`
	MIDI        MIDIConfig   `yaml:"midi"`
	Server      ServerConfig `yaml:"server"`
	Export      ExportConfig `yaml:"export"`
}

// MIDIConfig configures live output.
type MIDIConfig struct {
	Port        string  `yaml:"port"`
	ChannelBase uint8   `yaml:"channel_base"`
	BaseNotes   []int   `yaml:"base_notes"`
	BendRange   float32 `yaml:"bend_range"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// ExportConfig configures SMF import/export.
type ExportConfig struct {
	Loops   int   `yaml:"loops"`
	Channel uint8 `yaml:"channel"`
	Notes   []int `yaml:"notes"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	dir := "patterns"
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, ".local", "share", "ondas", "patterns")
	}
	return &Config{
		Tempo:       sequencer.DefaultTempo,
		PatternsDir: dir,
		LogLevel:    "info",
		MIDI: MIDIConfig{
			BendRange: 12,
		},
		Server: ServerConfig{Port: 8080},
		Export: ExportConfig{Loops: 1, Channel: 9},
	}
}

// DefaultPath returns ~/.config/ondas/config.yaml (or the platform equivalent).
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, "ondas", "config.yaml"), nil
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks ranges.
func (c *Config) Validate() error {
	if c.Tempo < sequencer.MinTempo || c.Tempo > sequencer.MaxTempo {
		return fmt.Errorf("tempo %.1f outside %.0f..%.0f", c.Tempo, sequencer.MinTempo, sequencer.MaxTempo)
	}
	if c.PatternsDir == "" {
		return errors.New("patterns_dir is empty")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.MIDI.ChannelBase > 15 || c.Export.Channel > 15 {
		return errors.New("midi channels are 0..15")
	}
	for _, n := range append(append([]int(nil), c.MIDI.BaseNotes...), c.Export.Notes...) {
		if n < 0 || n > 127 {
			return fmt.Errorf("note %d outside 0..127", n)
		}
	}
	if len(c.Export.Notes) > sequencer.MaxTracks {
		return fmt.Errorf("export notes: %d entries for %d tracks", len(c.Export.Notes), sequencer.MaxTracks)
	}
	if c.Export.Loops < 1 || c.Export.Loops > converter.MaxExportLoops {
		return fmt.Errorf("export loops %d out of range 1..%d", c.Export.Loops, converter.MaxExportLoops)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	return nil
}

// SlogLevel parses LogLevel ("debug", "info", "warn", "error").
func (c *Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// Notes converts a validated note list for the MIDI packages.
func Notes(notes []int) []uint8 {
	out := make([]uint8, len(notes))
	for i, n := range notes {
		out[i] = uint8(n)
	}
	return out
}
