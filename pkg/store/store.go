// Package store provides pattern persistence for the sequencer engine.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/ohmyondas/ondas/pkg/sequencer"
)

// FileStore keeps one JSON file per slot in a directory.
type FileStore struct {
	dir string
	log *slog.Logger
}

// NewFileStore creates a store rooted at dir. The directory is created on
// first save.
func NewFileStore(dir string, log *slog.Logger) *FileStore {
	if log == nil {
		log = slog.Default()
	}
	return &FileStore{dir: dir, log: log}
}

// Dir returns the directory the store writes to.
func (s *FileStore) Dir() string { return s.dir }

// Path returns the file used for slot.
func (s *FileStore) Path(slot int) string {
	return filepath.Join(s.dir, fmt.Sprintf("pattern%02d.json", slot))
}

// Load reads and decodes slot.
func (s *FileStore) Load(slot int) (sequencer.Pattern, error) {
	if !sequencer.ValidSlot(slot) {
		return sequencer.Pattern{}, sequencer.ErrSlotRange
	}
	data, err := os.ReadFile(s.Path(slot))
	if errors.Is(err, fs.ErrNotExist) {
		return sequencer.Pattern{}, fmt.Errorf("%s: %w", s.Path(slot), sequencer.ErrNotFound)
	}
	if err != nil {
		return sequencer.Pattern{}, fmt.Errorf("failed to read pattern: %w", err)
	}
	return Decode(data)
}

// Save encodes p into slot. The file is written next to its destination and
// renamed into place so a crash never leaves a truncated pattern behind.
func (s *FileStore) Save(slot int, p sequencer.Pattern) error {
	if !sequencer.ValidSlot(slot) {
		return sequencer.ErrSlotRange
	}
	data, err := Encode(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create pattern directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".pattern-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write pattern: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write pattern: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path(slot)); err != nil {
		return fmt.Errorf("failed to store pattern: %w", err)
	}
	s.log.Debug("pattern written", "path", s.Path(slot))
	return nil
}

// Slots lists the slots that currently hold a pattern file.
func (s *FileStore) Slots() ([]int, error) {
	var slots []int
	for slot := 0; slot < sequencer.MaxPatterns; slot++ {
		_, err := os.Stat(s.Path(slot))
		if err == nil {
			slots = append(slots, slot)
			continue
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return slots, nil
}

// Encode serializes a pattern to indented JSON.
func Encode(p sequencer.Pattern) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode pattern: %w", err)
	}
	return data, nil
}

// Decode parses pattern JSON. Object fields missing from the document keep
// their defaults; array elements missing from it are zeroed.
func Decode(data []byte) (sequencer.Pattern, error) {
	p := sequencer.NewPattern()
	if err := json.Unmarshal(data, &p); err != nil {
		return sequencer.Pattern{}, fmt.Errorf("failed to decode pattern: %w", err)
	}
	return p, nil
}
