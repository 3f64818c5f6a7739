// Package midiout plays sequencer triggers on an external sampler over MIDI.
package midiout

import (
	"log/slog"
	"math"

	"gitlab.com/gomidi/midi/v2"

	"github.com/ohmyondas/ondas/pkg/sequencer"
)

// Control change numbers for lockable parameters. Pitch is sent as pitch
// bend instead.
var paramCC = [sequencer.NumParams]uint8{
	sequencer.ParamVolume:      7,
	sequencer.ParamPan:         10,
	sequencer.ParamFilterFreq:  74,
	sequencer.ParamFilterRes:   71,
	sequencer.ParamFXSend1:     91,
	sequencer.ParamFXSend2:     93,
	sequencer.ParamSampleStart: 20,
	sequencer.ParamSampleEnd:   21,
}

// Values sent for unlocked parameters. Volume and pan come from the track.
var paramDefaults = [sequencer.NumParams]float32{
	sequencer.ParamFilterFreq: 1,
	sequencer.ParamSampleEnd:  1,
}

const (
	// DefaultBaseNote is the note played by source slot 0; slot n plays
	// DefaultBaseNote+n unless base notes are configured.
	DefaultBaseNote = 36
	// DefaultBendRange is the receiver's pitch bend range in semitones.
	DefaultBendRange = 12
)

// SendFunc writes one MIDI message, as returned by midi.SendTo.
type SendFunc func(msg midi.Message) error

// Sink turns triggers into MIDI messages: control changes for the resolved
// parameters, then a note-on/note-off pair on the track's channel.
type Sink struct {
	send        SendFunc
	channelBase uint8
	baseNotes   []uint8
	bendRange   float32
	log         *slog.Logger

	// Last value sent per channel and parameter; -1 means nothing sent yet.
	last [16][sequencer.NumParams]int
}

// Option configures a Sink.
type Option func(*Sink)

// WithChannelBase maps track 0 to channel base, track n to base+n (mod 16).
func WithChannelBase(ch uint8) Option {
	return func(s *Sink) { s.channelBase = ch & 0x0F }
}

// WithBaseNotes sets the note played per source slot. Slots past the end of
// notes fall back to DefaultBaseNote+slot.
func WithBaseNotes(notes []uint8) Option {
	return func(s *Sink) { s.baseNotes = append([]uint8(nil), notes...) }
}

// WithBendRange sets the receiver's pitch bend range in semitones.
func WithBendRange(semitones float32) Option {
	return func(s *Sink) {
		if semitones > 0 {
			s.bendRange = semitones
		}
	}
}

// WithLogger sets the logger used for send failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) { s.log = l }
}

// NewSink creates a sink writing through send.
func NewSink(send SendFunc, opts ...Option) *Sink {
	s := &Sink{
		send:      send,
		bendRange: DefaultBendRange,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	for ch := range s.last {
		for p := range s.last[ch] {
			s.last[ch][p] = -1
		}
	}
	return s
}

// Channel returns the MIDI channel used by track.
func (s *Sink) Channel(track int) uint8 {
	return uint8((int(s.channelBase) + track) & 0x0F)
}

// Note returns the MIDI note for a source slot and pitch offset.
func (s *Sink) Note(slot uint8, offset int8) uint8 {
	base := DefaultBaseNote + int(slot)
	if int(slot) < len(s.baseNotes) {
		base = int(s.baseNotes[slot])
	}
	return uint8(clamp(base+int(offset), 0, 127))
}

// Trigger implements sequencer.TriggerSink. Send errors are logged and
// dropped; the engine never sees them.
func (s *Sink) Trigger(tr sequencer.Trigger) {
	ch := s.Channel(tr.Track)

	for p := sequencer.ParamType(0); p < sequencer.NumParams; p++ {
		v, ok := tr.Overrides.Get(p)
		if !ok {
			v = s.unlocked(tr, p)
		}
		if p == sequencer.ParamPitch {
			s.sendParam(ch, p, int(bendValue(v, s.bendRange)), func(n int) midi.Message {
				return midi.Pitchbend(ch, int16(n))
			})
			continue
		}
		s.sendParam(ch, p, int(ccValue(p, v)), func(n int) midi.Message {
			return midi.ControlChange(ch, paramCC[p], uint8(n))
		})
	}

	if tr.Velocity == 0 {
		return
	}
	note := s.Note(tr.SourceSlot, tr.PitchOffset)
	s.write(midi.NoteOn(ch, note, tr.Velocity))
	s.write(midi.NoteOff(ch, note))
}

func (s *Sink) unlocked(tr sequencer.Trigger, p sequencer.ParamType) float32 {
	switch p {
	case sequencer.ParamVolume:
		return tr.Volume
	case sequencer.ParamPan:
		return tr.Pan
	}
	return paramDefaults[p]
}

// sendParam writes a parameter change only when it differs from the last
// value sent on that channel.
func (s *Sink) sendParam(ch uint8, p sequencer.ParamType, value int, msg func(int) midi.Message) {
	if s.last[ch][p] == value {
		return
	}
	if s.write(msg(value)) {
		s.last[ch][p] = value
	}
}

func (s *Sink) write(msg midi.Message) bool {
	if s.send == nil {
		return false
	}
	if err := s.send(msg); err != nil {
		s.log.Warn("midi send failed", "msg", msg.String(), "err", err)
		return false
	}
	return true
}

// ccValue scales a parameter value onto 0..127. Pan spans -1..1, the rest 0..1.
func ccValue(p sequencer.ParamType, v float32) uint8 {
	if p == sequencer.ParamPan {
		v = (v + 1) / 2
	}
	return uint8(clamp(int(math.Round(float64(v)*127)), 0, 127))
}

// bendValue maps semitones onto the 14-bit signed pitch bend range.
func bendValue(semitones, bendRange float32) int16 {
	n := int(math.Round(float64(semitones / bendRange * 8191)))
	return int16(clamp(n, -8192, 8191))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
