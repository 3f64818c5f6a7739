package converter

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/ohmyondas/ondas/pkg/sequencer"
	"github.com/ohmyondas/ondas/pkg/store"
)

// renderResolution is the simulated clock step used when rendering a
// pattern. Each step lands at most this late.
const renderResolution = 10 * time.Microsecond

// MaxExportLoops bounds the passes GenerateMIDI renders. Render time grows
// linearly with loops.
const MaxExportLoops = 64

// MIDIConverter handles MIDI file parsing and generation
type MIDIConverter struct {
	ticksPerQuarter uint16
	notes           NoteMap
	channel         uint8
	seed            uint64
	fill            bool
	log             *slog.Logger
}

// Option configures a MIDIConverter.
type Option func(*MIDIConverter)

// WithNoteMap sets the track to note assignment.
func WithNoteMap(m NoteMap) Option {
	return func(c *MIDIConverter) { c.notes = m }
}

// WithChannel sets the MIDI channel notes are written on.
func WithChannel(ch uint8) Option {
	return func(c *MIDIConverter) { c.channel = ch & 0x0F }
}

// WithSeed fixes the outcome of probability conditions in renders.
func WithSeed(seed uint64) Option {
	return func(c *MIDIConverter) { c.seed = seed }
}

// WithFill renders with fill mode on.
func WithFill(on bool) Option {
	return func(c *MIDIConverter) { c.fill = on }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *MIDIConverter) { c.log = l }
}

// NewMIDIConverter creates a new MIDI converter
func NewMIDIConverter(opts ...Option) *MIDIConverter {
	c := &MIDIConverter{
		ticksPerQuarter: 480,
		notes:           DefaultNoteMap,
		channel:         DrumChannel,
		seed:            1,
		log:             slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (m *MIDIConverter) ticksPerStep() uint32 {
	return uint32(m.ticksPerQuarter) / sequencer.StepsPerBeat
}

// timedEvent is a trigger stamped with the simulated time it fired at.
type timedEvent struct {
	at time.Duration
	tr sequencer.Trigger
}

// render plays p on a private engine for loops passes and returns every
// trigger with its onset, measured from the first step.
func (m *MIDIConverter) render(p sequencer.Pattern, tempo float64, loops int) ([]timedEvent, *sequencer.Engine, error) {
	var (
		now    time.Duration
		events []timedEvent
	)
	sink := sequencer.TriggerFunc(func(tr sequencer.Trigger) {
		events = append(events, timedEvent{at: now, tr: tr})
	})

	mem := store.NewMemoryStore()
	if err := mem.Save(0, p); err != nil {
		return nil, nil, err
	}
	e := sequencer.New(sink,
		sequencer.WithStore(mem),
		sequencer.WithSeed(m.seed),
		sequencer.WithTempo(tempo),
		sequencer.WithLogger(m.log),
	)
	if err := e.LoadPattern(0); err != nil {
		return nil, nil, err
	}
	e.SetFillMode(m.fill)

	var first time.Duration
	e.Start(0)
	for steps := 0; steps < loops*e.Length(); {
		now += renderResolution
		if e.Tick(now) {
			if steps == 0 {
				first = now
			}
			steps++
		}
	}
	for i := range events {
		events[i].at -= first
	}
	return events, e, nil
}

// GenerateMIDI renders loops passes of p at tempo (the pattern's own BPM
// override wins) into a single-track SMF. Conditions are evaluated exactly
// as during playback, so probability and ordinal steps come out as they
// would have sounded.
func (m *MIDIConverter) GenerateMIDI(p sequencer.Pattern, tempo float64, loops int) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	loops = min(max(loops, 1), MaxExportLoops)

	events, e, err := m.render(p, tempo, loops)
	if err != nil {
		return nil, fmt.Errorf("failed to render pattern: %w", err)
	}
	bpm := e.Tempo()
	quarter := float64(time.Minute) / bpm

	type stamped struct {
		tick uint32
		off  bool
		msg  midi.Message
	}
	var msgs []stamped
	noteLength := m.ticksPerStep() / 2
	for _, ev := range events {
		if ev.tr.Velocity == 0 {
			continue
		}
		tick := uint32(float64(ev.at)/quarter*float64(m.ticksPerQuarter) + 0.5)
		note := m.noteFor(ev.tr)
		msgs = append(msgs,
			stamped{tick: tick, msg: midi.NoteOn(m.channel, note, ev.tr.Velocity)},
			stamped{tick: tick + noteLength, off: true, msg: midi.NoteOff(m.channel, note)},
		)
	}
	// Note-offs go first on a shared tick so repeated notes retrigger.
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].tick != msgs[j].tick {
			return msgs[i].tick < msgs[j].tick
		}
		return msgs[i].off && !msgs[j].off
	})

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(m.ticksPerQuarter)

	var track smf.Track
	track.Add(0, smf.MetaTrackSequenceName("ondas"))
	track.Add(0, smf.MetaTempo(bpm))
	track.Add(0, smf.MetaMeter(4, 4))

	var current uint32
	for _, sm := range msgs {
		track.Add(sm.tick-current, sm.msg)
		current = sm.tick
	}

	// The track ends exactly after the last loop.
	total := uint32(loops*e.Length()) * m.ticksPerStep()
	var tail uint32
	if current < total {
		tail = total - current
	}
	track.Close(tail)

	if err := s.Add(track); err != nil {
		return nil, fmt.Errorf("failed to add track: %w", err)
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write MIDI: %w", err)
	}
	m.log.Debug("midi rendered", "bpm", bpm, "loops", loops, "notes", len(msgs)/2)
	return buf.Bytes(), nil
}

func (m *MIDIConverter) noteFor(tr sequencer.Trigger) uint8 {
	n := int(m.notes[tr.Track]) + int(tr.PitchOffset)
	if n < 0 {
		n = 0
	}
	if n > 127 {
		n = 127
	}
	return uint8(n)
}

// WriteMIDIFile renders p to filename.
func (m *MIDIConverter) WriteMIDIFile(p sequencer.Pattern, tempo float64, loops int, filename string) error {
	data, err := m.GenerateMIDI(p, tempo, loops)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

// ParseMIDIFile reads a MIDI file and extracts pattern data
func (m *MIDIConverter) ParseMIDIFile(filename string) (sequencer.Pattern, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return sequencer.Pattern{}, fmt.Errorf("failed to read MIDI file: %w", err)
	}
	return m.ParseMIDI(data)
}

// ParseMIDI quantizes the note-ons of an SMF onto sixteenth-note steps of one
// pattern. Notes are assigned to tracks through the note map; unmapped notes
// are dropped. The pattern length follows the file length, stretched to hold
// the last quantized note, up to MaxSteps; later notes wrap around. A tempo event sets the pattern BPM override.
func (m *MIDIConverter) ParseMIDI(data []byte) (sequencer.Pattern, error) {
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return sequencer.Pattern{}, fmt.Errorf("failed to parse MIDI: %w", err)
	}

	tpq := m.ticksPerQuarter
	if mt, ok := s.TimeFormat.(smf.MetricTicks); ok {
		tpq = mt.Resolution()
	}
	ticksPerStep := int64(tpq) / sequencer.StepsPerBeat
	if ticksPerStep == 0 {
		return sequencer.Pattern{}, fmt.Errorf("resolution %d too coarse for sixteenth steps", tpq)
	}

	type noteEvent struct {
		tick     int64
		track    int
		velocity uint8
	}
	var (
		notes   []noteEvent
		tempo   float64
		endTick int64
		skipped int
	)

	for _, track := range s.Tracks {
		var tick int64
		for _, ev := range track {
			tick += int64(ev.Delta)
			msg := ev.Message

			// Tempo meta message (FF 51 03 tt tt tt).
			if len(msg) >= 6 && msg[0] == 0xFF && msg[1] == 0x51 && msg[2] == 0x03 {
				usPerBeat := uint32(msg[3])<<16 | uint32(msg[4])<<8 | uint32(msg[5])
				if usPerBeat > 0 && tempo == 0 {
					tempo = 60000000.0 / float64(usPerBeat)
				}
			}

			var ch, key, vel uint8
			if midi.Message(msg).GetNoteStart(&ch, &key, &vel) {
				t, ok := m.notes.Track(key)
				if !ok {
					skipped++
					continue
				}
				notes = append(notes, noteEvent{tick: tick, track: t, velocity: vel})
			}
		}
		if tick > endTick {
			endTick = tick
		}
	}

	quantize := func(tick int64) int { return int((tick + ticksPerStep/2) / ticksPerStep) }
	length := int((endTick + ticksPerStep - 1) / ticksPerStep)
	for _, n := range notes {
		length = max(length, quantize(n.tick)+1)
	}
	if length < 1 {
		length = sequencer.DefaultLength
	}
	if length > sequencer.MaxSteps {
		length = sequencer.MaxSteps
	}

	p := sequencer.NewPattern()
	p.Length = uint8(length)
	if tempo > 0 {
		p.BPM = float32(min(max(tempo, sequencer.MinTempo), sequencer.MaxTempo))
	}
	for _, n := range notes {
		step := quantize(n.tick) % length
		st := &p.Tracks[n.track].Steps[step]
		st.Active = true
		st.Velocity = min(n.velocity, sequencer.MaxVelocity)
	}

	if skipped > 0 {
		m.log.Debug("unmapped notes dropped", "count", skipped)
	}
	return p, nil
}
