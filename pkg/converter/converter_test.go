package converter

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/ohmyondas/ondas/pkg/sequencer"
	"github.com/ohmyondas/ondas/pkg/store"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		filename string
		expected Format
	}{
		{"test.mid", FormatMIDI},
		{"test.MIDI", FormatMIDI},
		{"pattern03.json", FormatJSON},
		{"test.seq", FormatUnknown},
		{"test", FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			result := DetectFormat(tt.filename)
			if result != tt.expected {
				t.Errorf("DetectFormat(%q) = %v, want %v", tt.filename, result, tt.expected)
			}
		})
	}
}

func TestDetectFormatFromContent(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected Format
	}{
		{"MIDI file", []byte("MThd\x00\x00\x00\x06"), FormatMIDI},
		{"JSON object", []byte("  \n{\"length\": 16}"), FormatJSON},
		{"Short data", []byte{0x00, 0x01}, FormatUnknown},
		{"Binary", []byte{0xF0, 0x00, 0x20, 0x32}, FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DetectFormatFromContent(tt.data)
			if result != tt.expected {
				t.Errorf("DetectFormatFromContent() = %v, want %v", result, tt.expected)
			}
		})
	}
}

// noteOnTicks returns the absolute tick and key of every note-on in an SMF.
func noteOnTicks(t *testing.T, data []byte) [][2]int {
	t.Helper()
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	var out [][2]int
	for _, track := range s.Tracks {
		tick := 0
		for _, ev := range track {
			tick += int(ev.Delta)
			var ch, key, vel uint8
			if midi.Message(ev.Message).GetNoteStart(&ch, &key, &vel) {
				out = append(out, [2]int{tick, int(key)})
			}
		}
	}
	return out
}

func fourOnTheFloor() sequencer.Pattern {
	p := sequencer.NewPattern()
	for _, s := range []int{0, 4, 8, 12} {
		p.Tracks[0].Steps[s].Active = true
		p.Tracks[0].Steps[s].Velocity = 90
	}
	for _, s := range []int{4, 12} {
		p.Tracks[1].Steps[s].Active = true
	}
	return p
}

func TestGenerateMIDI(t *testing.T) {
	m := NewMIDIConverter(WithLogger(quiet()))
	data, err := m.GenerateMIDI(fourOnTheFloor(), 120, 1)
	if err != nil {
		t.Fatalf("GenerateMIDI() error = %v", err)
	}
	if DetectFormatFromContent(data) != FormatMIDI {
		t.Fatal("output is not an SMF")
	}

	want := [][2]int{{0, 36}, {480, 36}, {480, 38}, {960, 36}, {1440, 36}, {1440, 38}}
	got := noteOnTicks(t, data)
	if len(got) != len(want) {
		t.Fatalf("note-ons = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("note-on %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestGenerateMIDILoopsAndMutes(t *testing.T) {
	m := NewMIDIConverter(WithLogger(quiet()))
	p := fourOnTheFloor()
	p.Tracks[1].Muted = true

	data, err := m.GenerateMIDI(p, 120, 3)
	if err != nil {
		t.Fatal(err)
	}
	notes := noteOnTicks(t, data)
	if len(notes) != 12 {
		t.Errorf("note-ons = %d, want 12", len(notes))
	}
	for _, n := range notes {
		if n[1] != 36 {
			t.Errorf("muted track rendered: %v", n)
		}
	}
}

func TestGenerateMIDISwing(t *testing.T) {
	m := NewMIDIConverter(WithLogger(quiet()))
	p := sequencer.NewPattern()
	p.Swing = 100
	for s := 0; s < 4; s++ {
		p.Tracks[0].Steps[s].Active = true
	}
	data, err := m.GenerateMIDI(p, 120, 1)
	if err != nil {
		t.Fatal(err)
	}
	notes := noteOnTicks(t, data)
	if len(notes) != 4 {
		t.Fatalf("note-ons = %v", notes)
	}
	// Odd steps land late, even steps stay on the grid.
	if notes[1][0] <= 120 || notes[3][0] <= 360 {
		t.Errorf("odd steps not delayed: %v", notes)
	}
	if d := notes[2][0] - 240; d < -1 || d > 1 {
		t.Errorf("step 2 at tick %d, want 240", notes[2][0])
	}
}

func TestGenerateMIDIRejectsInvalidPattern(t *testing.T) {
	p := sequencer.NewPattern()
	p.Length = 0
	if _, err := NewMIDIConverter(WithLogger(quiet())).GenerateMIDI(p, 120, 1); err == nil {
		t.Error("GenerateMIDI accepted an invalid pattern")
	}
}

func TestMIDIRoundTrip(t *testing.T) {
	m := NewMIDIConverter(WithLogger(quiet()))
	src := fourOnTheFloor()
	data, err := m.GenerateMIDI(src, 132, 1)
	if err != nil {
		t.Fatal(err)
	}
	p, err := m.ParseMIDI(data)
	if err != nil {
		t.Fatalf("ParseMIDI() error = %v", err)
	}

	if p.Length != sequencer.DefaultLength {
		t.Errorf("length = %d, want %d", p.Length, sequencer.DefaultLength)
	}
	if p.BPM < 131.9 || p.BPM > 132.1 {
		t.Errorf("bpm = %v, want 132", p.BPM)
	}
	for tr := 0; tr < 2; tr++ {
		for s := 0; s < sequencer.DefaultLength; s++ {
			if p.Tracks[tr].Steps[s].Active != src.Tracks[tr].Steps[s].Active {
				t.Errorf("track %d step %d active = %v", tr, s, p.Tracks[tr].Steps[s].Active)
			}
		}
	}
	if v := p.Tracks[0].Steps[4].Velocity; v != 90 {
		t.Errorf("velocity = %d, want 90", v)
	}
}

func TestParseMIDIUnmappedNotes(t *testing.T) {
	data, err := NewMIDIConverter(WithLogger(quiet())).GenerateMIDI(fourOnTheFloor(), 120, 1)
	if err != nil {
		t.Fatal(err)
	}
	notes := DefaultNoteMap
	notes[0] = 100 // kick no longer mapped
	p, err := NewMIDIConverter(WithNoteMap(notes), WithLogger(quiet())).ParseMIDI(data)
	if err != nil {
		t.Fatal(err)
	}
	for s := 0; s < int(p.Length); s++ {
		if p.Tracks[0].Steps[s].Active {
			t.Errorf("unmapped note landed on track 0 step %d", s)
		}
	}
	if !p.Tracks[1].Steps[4].Active {
		t.Error("mapped snare missing")
	}
}

func TestParseMIDIInvalid(t *testing.T) {
	if _, err := NewMIDIConverter().ParseMIDI([]byte("not midi")); err == nil {
		t.Error("ParseMIDI accepted garbage")
	}
}

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "pattern00.json")
	mid := filepath.Join(dir, "out.mid")
	back := filepath.Join(dir, "back.json")

	data, err := store.Encode(fourOnTheFloor())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(in, data, 0644); err != nil {
		t.Fatal(err)
	}

	c := New(NewMIDIConverter(WithLogger(quiet())), 120, 1)
	if err := c.ConvertFile(in, mid); err != nil {
		t.Fatalf("json -> midi: %v", err)
	}
	if err := c.ConvertFile(mid, back); err != nil {
		t.Fatalf("midi -> json: %v", err)
	}

	raw, err := os.ReadFile(back)
	if err != nil {
		t.Fatal(err)
	}
	p, err := store.Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if !p.Tracks[0].Steps[8].Active || p.Tracks[0].Steps[9].Active {
		t.Error("round trip through files lost steps")
	}

	if err := c.ConvertFile(in, filepath.Join(dir, "out.wav")); err == nil {
		t.Error("unknown output format accepted")
	}
	if err := c.ConvertFile(in, filepath.Join(dir, "copy.json")); err == nil {
		t.Error("json -> json should be unsupported")
	}
}

func TestNoteMapTrack(t *testing.T) {
	if tr, ok := DefaultNoteMap.Track(38); !ok || tr != 1 {
		t.Errorf("Track(38) = %d, %v; want 1, true", tr, ok)
	}
	if _, ok := DefaultNoteMap.Track(0); ok {
		t.Error("Track(0) should be unmapped")
	}
}

func TestReadPattern(t *testing.T) {
	c := New(NewMIDIConverter(WithLogger(quiet())), 120, 2)
	src := fourOnTheFloor()

	js, err := store.Encode(src)
	if err != nil {
		t.Fatal(err)
	}
	smfData, err := c.ExportMIDI(src, 120)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{"json", js, false},
		{"midi", smfData, false},
		{"garbage", []byte("hello"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := c.ReadPattern(tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ReadPattern() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !p.Tracks[0].Steps[4].Active {
				t.Error("kick on step 4 lost")
			}
		})
	}
}

func TestParseMIDIKeepsLateNote(t *testing.T) {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(480)
	var tr smf.Track
	tr.Add(0, midi.NoteOn(9, 36, 100))
	tr.Add(60, midi.NoteOff(9, 36))
	// 1900 ticks is step 15.83: the file ends inside step 16, and the note
	// rounds onto step 16.
	tr.Add(1840, midi.NoteOn(9, 38, 100))
	tr.Close(0)
	if err := s.Add(tr); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}

	p, err := NewMIDIConverter(WithLogger(quiet())).ParseMIDI(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if p.Length != 17 {
		t.Errorf("length = %d, want 17", p.Length)
	}
	if !p.Tracks[1].Steps[16].Active {
		t.Error("late snare missing from step 16")
	}
	if p.Tracks[1].Steps[0].Active {
		t.Error("late snare wrapped onto step 0")
	}
	if !p.Tracks[0].Steps[0].Active {
		t.Error("kick missing from step 0")
	}
}

func TestGenerateMIDIClampsLoops(t *testing.T) {
	m := NewMIDIConverter(WithLogger(quiet()))
	p := sequencer.NewPattern()
	p.Length = 1
	p.Tracks[0].Steps[0].Active = true

	data, err := m.GenerateMIDI(p, 300, MaxExportLoops*100)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(noteOnTicks(t, data)); n != MaxExportLoops {
		t.Errorf("note-ons = %d, want %d", n, MaxExportLoops)
	}
}
