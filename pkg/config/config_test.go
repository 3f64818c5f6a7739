package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Tempo != 120 || cfg.Server.Port != 8080 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
tempo: 96
seed: 7
log_level: debug
midi:
  port: "IAC Driver"
  base_notes: [60, 62, 64]
server:
  port: 9000
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Tempo != 96 || cfg.Seed != 7 || cfg.Server.Port != 9000 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.MIDI.Port != "IAC Driver" || len(cfg.MIDI.BaseNotes) != 3 {
		t.Errorf("midi = %+v", cfg.MIDI)
	}
	if cfg.MIDI.BendRange != 12 || cfg.Export.Loops != 1 {
		t.Error("fields absent from the file should keep defaults")
	}
	if l, _ := cfg.SlogLevel(); l != slog.LevelDebug {
		t.Errorf("SlogLevel() = %v, want debug", l)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"tempo", "tempo: 500\n", "tempo"},
		{"log level", "log_level: loud\n", "log_level"},
		{"port", "server:\n  port: 0\n", "port"},
		{"channel", "midi:\n  channel_base: 16\n", "channel"},
		{"note", "export:\n  notes: [200]\n", "note"},
		{"loops", "export:\n  loops: 1000\n", "loops"},
		{"syntax", "tempo: [\n", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			os.WriteFile(path, []byte(tt.doc), 0o644)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Tempo = 133
	cfg.Export.Notes = []int{36, 38}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Tempo != 133 || len(got.Export.Notes) != 2 || got.PatternsDir != cfg.PatternsDir {
		t.Errorf("round trip = %+v", got)
	}
}
