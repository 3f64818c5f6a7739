package tui

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ohmyondas/ondas/pkg/converter"
	"github.com/ohmyondas/ondas/pkg/player"
	"github.com/ohmyondas/ondas/pkg/sequencer"
	"github.com/ohmyondas/ondas/pkg/store"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestModel(t *testing.T) Model {
	t.Helper()
	e := sequencer.New(nil,
		sequencer.WithStore(store.NewMemoryStore()),
		sequencer.WithLogger(quiet()),
		sequencer.WithSeed(1),
	)
	p := player.New(e, player.WithLogger(quiet()))
	conv := converter.New(converter.NewMIDIConverter(converter.WithLogger(quiet())), 120, 1)
	return New(p, conv, WithExportDir(t.TempDir()))
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends keys in order and returns the resulting model.
func press(m Model, keys ...string) Model {
	for _, k := range keys {
		next, _ := m.Update(keyPress(k))
		m = next.(Model)
	}
	return m
}

func TestToggleStepAtCursor(t *testing.T) {
	m := press(newTestModel(t), "l", "l", "j", "enter")

	if m.cursor != 2 || m.state.SelectedTrack != 1 {
		t.Fatalf("cursor = %d track = %d, want 2/1", m.cursor, m.state.SelectedTrack)
	}
	if !m.state.Pattern.Tracks[1].Steps[2].Active {
		t.Error("enter did not arm the step under the cursor")
	}
	m = press(m, "enter")
	if m.state.Pattern.Tracks[1].Steps[2].Active {
		t.Error("second enter did not disarm the step")
	}
}

func TestCursorMovement(t *testing.T) {
	tests := []struct {
		name       string
		keys       []string
		wantCursor int
		wantTrack  int
	}{
		{"left wraps to last step", []string{"h"}, sequencer.DefaultLength - 1, 0},
		{"right wraps to first step", []string{"h", "l"}, 0, 0},
		{"up stops at first track", []string{"k"}, 0, 0},
		{"down stops at last track", []string{"j", "j", "j", "j", "j", "j", "j", "j", "j"}, 0, sequencer.MaxTracks - 1},
		{"arrow keys", []string{"down", "right"}, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(t)
			for _, k := range tt.keys {
				var msg tea.KeyMsg
				switch k {
				case "down":
					msg = tea.KeyMsg{Type: tea.KeyDown}
				case "right":
					msg = tea.KeyMsg{Type: tea.KeyRight}
				default:
					msg = keyPress(k)
				}
				next, _ := m.Update(msg)
				m = next.(Model)
			}
			if m.cursor != tt.wantCursor || m.state.SelectedTrack != tt.wantTrack {
				t.Errorf("cursor = %d track = %d, want %d/%d", m.cursor, m.state.SelectedTrack, tt.wantCursor, tt.wantTrack)
			}
		})
	}
}

func TestEditKeys(t *testing.T) {
	tests := []struct {
		name  string
		keys  []string
		check func(s sequencer.State) bool
	}{
		{"cycle condition", []string{"c", "c"}, func(s sequencer.State) bool {
			return s.Pattern.Tracks[0].Steps[0].Condition == sequencer.TrigNotFill
		}},
		{"condition wraps", []string{"c", "c", "c", "c", "c", "c", "c", "c", "c", "c", "c", "c"}, func(s sequencer.State) bool {
			return s.Pattern.Tracks[0].Steps[0].Condition == sequencer.TrigAlways
		}},
		{"mute toggles", []string{"m"}, func(s sequencer.State) bool { return s.Pattern.Tracks[0].Muted }},
		{"mute twice", []string{"m", "m"}, func(s sequencer.State) bool { return !s.Pattern.Tracks[0].Muted }},
		{"solo", []string{"j", "o"}, func(s sequencer.State) bool { return s.Pattern.Tracks[1].Soloed }},
		{"fill", []string{"f"}, func(s sequencer.State) bool { return s.FillMode }},
		{"tempo up", []string{"+", "+"}, func(s sequencer.State) bool { return s.GlobalBPM == 122 }},
		{"tempo down", []string{"-"}, func(s sequencer.State) bool { return s.GlobalBPM == 119 }},
		{"swing", []string{"]", "]", "["}, func(s sequencer.State) bool { return s.Pattern.Swing == 5 }},
		{"swing floor", []string{"["}, func(s sequencer.State) bool { return s.Pattern.Swing == 0 }},
		{"play", []string{" "}, func(s sequencer.State) bool { return s.Running }},
		{"play then pause", []string{" ", " "}, func(s sequencer.State) bool { return !s.Running }},
		{"stop", []string{" ", "s"}, func(s sequencer.State) bool { return !s.Running && s.CurrentStep == 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := press(newTestModel(t), tt.keys...)
			if !tt.check(m.state) {
				t.Errorf("keys %q: unexpected state", tt.keys)
			}
			if m.player.Snapshot() != m.state {
				t.Error("model state is stale")
			}
		})
	}
}

func TestUndoRedoStatus(t *testing.T) {
	m := press(newTestModel(t), "u")
	if m.status != "nothing to undo" {
		t.Errorf("status = %q", m.status)
	}
	m = press(m, "r")
	if m.status != "nothing to redo" {
		t.Errorf("status = %q", m.status)
	}
}

func TestSaveSlot(t *testing.T) {
	m := press(newTestModel(t), "enter", "w")
	if m.err != nil {
		t.Fatalf("save: %v", m.err)
	}
	if m.status != "saved pattern 00" {
		t.Errorf("status = %q", m.status)
	}
}

func TestQuit(t *testing.T) {
	_, cmd := newTestModel(t).Update(keyPress("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestExport(t *testing.T) {
	m := press(newTestModel(t), "enter")

	next, cmd := m.Update(keyPress("x"))
	m = next.(Model)
	if m.mode != ModeWorking || cmd == nil {
		t.Fatalf("mode = %v, want working", m.mode)
	}

	msg := m.exportCmd()()
	done, ok := msg.(doneMsg)
	if !ok || done.err != nil {
		t.Fatalf("export = %#v", msg)
	}
	path := filepath.Join(m.exportDir, "pattern00.mid")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "MThd") {
		t.Error("export is not an SMF")
	}

	next, _ = m.Update(done)
	m = next.(Model)
	if m.mode != ModeGrid || !strings.Contains(m.status, "pattern00.mid") {
		t.Errorf("after export mode = %v status = %q", m.mode, m.status)
	}
}

func TestImport(t *testing.T) {
	m := newTestModel(t)

	p := sequencer.NewPattern()
	p.Length = 8
	p.Tracks[3].Steps[5].Active = true
	data, err := store.Encode(p)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "groove.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	next, _ := m.Update(m.importCmd(path)())
	m = next.(Model)
	if m.err != nil {
		t.Fatalf("import: %v", m.err)
	}
	if m.state.Pattern.Length != 8 || !m.state.Pattern.Tracks[3].Steps[5].Active {
		t.Error("imported pattern not loaded")
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(bad, []byte("nope"), 0644)
	next, _ = m.Update(m.importCmd(bad)())
	if next.(Model).err == nil {
		t.Error("garbage import succeeded")
	}
}

func TestFilePickerEscape(t *testing.T) {
	m := press(newTestModel(t), "i")
	if m.mode != ModeFilePicker {
		t.Fatalf("mode = %v, want file picker", m.mode)
	}
	m = press(m, "esc")
	if m.mode != ModeGrid {
		t.Errorf("mode = %v, want grid", m.mode)
	}
}

func TestView(t *testing.T) {
	m := press(newTestModel(t), "enter", "m")
	v := m.View()
	for _, want := range []string{"BPM", "T1 M", "T8", "PATTERN 00"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestUpdatesRefreshState(t *testing.T) {
	m := newTestModel(t)
	m.player.Do(func(e *sequencer.Engine) { e.SetStep(2, 3, true) })

	next, cmd := m.Update(updateMsg{})
	m = next.(Model)
	if !m.state.Pattern.Tracks[2].Steps[3].Active {
		t.Error("update message did not refresh state")
	}
	if cmd == nil {
		t.Error("listener not re-armed")
	}
}

func TestCursorClampedWhenLengthShrinks(t *testing.T) {
	m := press(newTestModel(t), "h")
	m.player.Do(func(e *sequencer.Engine) { e.SetLength(4) })
	next, _ := m.Update(frameMsg{})
	m = next.(Model)
	if m.cursor != 3 {
		t.Errorf("cursor = %d, want 3", m.cursor)
	}
}

func TestTransportKeysShowNewState(t *testing.T) {
	m := press(newTestModel(t), " ")
	if !m.state.Running {
		t.Fatal("space did not show the transport running")
	}
	m.player.Do(func(e *sequencer.Engine) { e.SetPosition(5) })
	m = press(m, "s")
	if m.state.Running || m.state.CurrentStep != 0 {
		t.Errorf("after stop running = %v step = %d", m.state.Running, m.state.CurrentStep)
	}
}
