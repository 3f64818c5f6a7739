package converter

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ohmyondas/ondas/pkg/sequencer"
	"github.com/ohmyondas/ondas/pkg/store"
)

// Format represents a file format
type Format string

const (
	FormatMIDI    Format = "midi"
	FormatJSON    Format = "json"
	FormatUnknown Format = "unknown"
)

// DetectFormat detects the format of a file based on extension
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mid", ".midi":
		return FormatMIDI
	case ".json":
		return FormatJSON
	default:
		return FormatUnknown
	}
}

// DetectFormatFromContent detects format from file content
func DetectFormatFromContent(data []byte) Format {
	if len(data) >= 4 && string(data[:4]) == "MThd" {
		return FormatMIDI
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	return FormatUnknown
}

// ConvertFile converts a pattern file from one format to another
func (c *Converter) ConvertFile(inputPath, outputPath string) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	inputFormat := DetectFormat(inputPath)
	if inputFormat == FormatUnknown {
		inputFormat = DetectFormatFromContent(data)
	}
	outputFormat := DetectFormat(outputPath)
	if outputFormat == FormatUnknown {
		return errors.New("cannot determine output format from filename")
	}

	var outputData []byte
	switch {
	case inputFormat == FormatJSON && outputFormat == FormatMIDI:
		outputData, err = c.JSONToMIDI(data)
	case inputFormat == FormatMIDI && outputFormat == FormatJSON:
		outputData, err = c.MIDIToJSON(data)
	default:
		return fmt.Errorf("unsupported conversion: %s to %s", inputFormat, outputFormat)
	}
	if err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}

	if err := os.WriteFile(outputPath, outputData, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// JSONToMIDI renders pattern JSON to an SMF.
func (c *Converter) JSONToMIDI(data []byte) ([]byte, error) {
	p, err := store.Decode(data)
	if err != nil {
		return nil, err
	}
	return c.midi.GenerateMIDI(p, c.tempo, c.loops)
}

// MIDIToJSON quantizes an SMF into pattern JSON.
func (c *Converter) MIDIToJSON(data []byte) ([]byte, error) {
	p, err := c.midi.ParseMIDI(data)
	if err != nil {
		return nil, err
	}
	return store.Encode(p)
}

// ReadPattern decodes pattern JSON or an SMF, whichever data holds.
func (c *Converter) ReadPattern(data []byte) (sequencer.Pattern, error) {
	switch DetectFormatFromContent(data) {
	case FormatJSON:
		return store.Decode(data)
	case FormatMIDI:
		return c.midi.ParseMIDI(data)
	}
	return sequencer.Pattern{}, errors.New("unrecognized pattern data")
}

// ExportMIDI renders p at tempo using the configured loop count.
func (c *Converter) ExportMIDI(p sequencer.Pattern, tempo float64) ([]byte, error) {
	return c.midi.GenerateMIDI(p, tempo, c.loops)
}

// GetSupportedConversions returns a list of supported conversion paths
func GetSupportedConversions() []string {
	return []string{
		"json -> midi",
		"midi -> json",
	}
}
