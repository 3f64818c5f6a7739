// Package converter converts sequencer patterns to and from Standard MIDI Files.
package converter

import (
	"github.com/ohmyondas/ondas/pkg/sequencer"
)

// NoteMap assigns a MIDI note to each track.
type NoteMap [sequencer.MaxTracks]uint8

// DefaultNoteMap follows the General MIDI drum map: kick, snare, closed hat,
// open hat, low tom, mid tom, crash, clap.
var DefaultNoteMap = NoteMap{36, 38, 42, 46, 41, 45, 49, 39}

// Track returns the first track mapped to note.
func (m NoteMap) Track(note uint8) (int, bool) {
	for t, n := range m {
		if n == note {
			return t, true
		}
	}
	return 0, false
}

// DrumChannel is the General MIDI percussion channel (10, zero based).
const DrumChannel = 9

// Converter converts between pattern JSON files and Standard MIDI Files.
type Converter struct {
	midi  *MIDIConverter
	tempo float64
	loops int
}

// New creates a Converter exporting at tempo for loops repetitions.
func New(m *MIDIConverter, tempo float64, loops int) *Converter {
	if m == nil {
		m = NewMIDIConverter()
	}
	return &Converter{midi: m, tempo: tempo, loops: loops}
}

// MIDI returns the underlying MIDI converter.
func (c *Converter) MIDI() *MIDIConverter {
	return c.midi
}
