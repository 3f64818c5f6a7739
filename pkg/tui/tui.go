// Package tui provides the terminal grid editor for ondas
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ohmyondas/ondas/pkg/converter"
	"github.com/ohmyondas/ondas/pkg/player"
	"github.com/ohmyondas/ondas/pkg/sequencer"
)

// Acid-inspired color scheme
var (
	acidGreen  = lipgloss.Color("#39FF14")
	acidYellow = lipgloss.Color("#FFFF00")
	silverGray = lipgloss.Color("#C0C0C0")
	darkGray   = lipgloss.Color("#333333")
	dimGray    = lipgloss.Color("#666666")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(acidGreen).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(silverGray)

	selectedLabelStyle = lipgloss.NewStyle().
				Foreground(acidGreen).
				Bold(true)

	stepOffStyle = lipgloss.NewStyle().
			Foreground(dimGray)

	stepOnStyle = lipgloss.NewStyle().
			Foreground(acidGreen).
			Bold(true)

	playheadStyle = lipgloss.NewStyle().
			Background(darkGray)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(acidYellow)

	statusStyle = lipgloss.NewStyle().
			Foreground(acidYellow).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(dimGray).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(acidGreen).
			Padding(1, 2)
)

// FrameRate is how often the grid redraws while nothing else changes.
const FrameRate = 30

var conditionGlyphs = [sequencer.NumConditions]string{
	"■", "F", "f", "p", "n", "¼", "½", "¾", "1", "2", "3", "4",
}

// Mode is the current screen of the editor.
type Mode int

const (
	ModeGrid Mode = iota
	ModeFilePicker
	ModeWorking
)

// Model is the bubbletea model of the grid editor.
type Model struct {
	player *player.Player
	conv   *converter.Converter

	state  sequencer.State
	mode   Mode
	cursor int

	keys       keyMap
	help       help.Model
	filePicker filepicker.Model
	spinner    spinner.Model

	exportDir string
	working   string
	status    string
	err       error
	width     int
	height    int
}

type (
	frameMsg  time.Time
	updateMsg struct{}

	// doneMsg reports the end of an import or export.
	doneMsg struct {
		status string
		err    error
	}
)

// Option configures a Model.
type Option func(*Model)

// WithExportDir sets where exported MIDI files are written.
func WithExportDir(dir string) Option {
	return func(m *Model) { m.exportDir = dir }
}

// New creates the editor for p. A nil converter gets the defaults.
func New(p *player.Player, conv *converter.Converter, opts ...Option) Model {
	if conv == nil {
		conv = converter.New(nil, sequencer.DefaultTempo, 1)
	}

	fp := filepicker.New()
	fp.AllowedTypes = []string{".json", ".mid", ".midi"}
	fp.CurrentDirectory, _ = os.Getwd()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(acidGreen)

	m := Model{
		player:     p,
		conv:       conv,
		mode:       ModeGrid,
		keys:       defaultKeys,
		help:       help.New(),
		filePicker: fp,
		spinner:    s,
		exportDir:  ".",
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.refresh()
	return m
}

// Init starts the frame clock and the player update listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(frame(), waitForUpdate(m.player.Updates()))
}

func frame() tea.Cmd {
	return tea.Tick(time.Second/FrameRate, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func waitForUpdate(updates <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-updates
		return updateMsg{}
	}
}

func (m *Model) refresh() {
	m.state = m.player.Snapshot()
	if n := int(m.state.Pattern.Length); m.cursor >= n {
		m.cursor = n - 1
	}
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		m.refresh()
		return m, frame()

	case updateMsg:
		m.refresh()
		return m, waitForUpdate(m.player.Updates())

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.filePicker.SetHeight(msg.Height - 10)
		return m, nil

	case spinner.TickMsg:
		if m.mode != ModeWorking {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case doneMsg:
		m.mode = ModeGrid
		m.status = msg.status
		m.err = msg.err
		m.refresh()
		return m, nil
	}

	// The file picker needs every remaining message, including its own
	// directory listings.
	if m.mode == ModeFilePicker {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc":
				m.mode = ModeGrid
				return m, nil
			case "ctrl+c":
				return m, tea.Quit
			}
		}

		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)
		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.mode = ModeWorking
			m.working = "Importing " + filepath.Base(path)
			return m, tea.Batch(m.spinner.Tick, m.importCmd(path))
		}
		return m, cmd
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok && m.mode == ModeGrid {
		return m.updateGrid(keyMsg)
	}
	return m, nil
}

func (m Model) updateGrid(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	track := m.state.SelectedTrack
	length := int(m.state.Pattern.Length)
	m.status, m.err = "", nil

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Play):
		m.player.TogglePlay()
		m.refresh()
	case key.Matches(msg, m.keys.Stop):
		m.player.Stop()
		m.refresh()
	case key.Matches(msg, m.keys.Left):
		m.cursor = (m.cursor + length - 1) % length
	case key.Matches(msg, m.keys.Right):
		m.cursor = (m.cursor + 1) % length
	case key.Matches(msg, m.keys.Up):
		m.edit(func(e *sequencer.Engine) { e.SelectTrack(track - 1) })
	case key.Matches(msg, m.keys.Down):
		m.edit(func(e *sequencer.Engine) { e.SelectTrack(track + 1) })
	case key.Matches(msg, m.keys.Toggle):
		m.edit(func(e *sequencer.Engine) { e.ToggleStepAt(track, m.cursor) })
	case key.Matches(msg, m.keys.Condition):
		m.edit(func(e *sequencer.Engine) {
			next := (e.TrigCondition(track, m.cursor) + 1) % sequencer.NumConditions
			e.SetTrigCondition(track, m.cursor, next)
		})
	case key.Matches(msg, m.keys.Mute):
		m.edit(func(e *sequencer.Engine) { e.ToggleMute(track) })
	case key.Matches(msg, m.keys.Solo):
		m.edit(func(e *sequencer.Engine) { e.ToggleSolo(track) })
	case key.Matches(msg, m.keys.Fill):
		m.edit(func(e *sequencer.Engine) { e.SetFillMode(!e.FillMode()) })
	case key.Matches(msg, m.keys.TempoUp):
		m.edit(func(e *sequencer.Engine) { e.SetTempo(e.GlobalTempo() + 1) })
	case key.Matches(msg, m.keys.TempoDown):
		m.edit(func(e *sequencer.Engine) { e.SetTempo(e.GlobalTempo() - 1) })
	case key.Matches(msg, m.keys.SwingUp):
		m.edit(func(e *sequencer.Engine) { e.AdjustSwing(5) })
	case key.Matches(msg, m.keys.SwingDown):
		m.edit(func(e *sequencer.Engine) { e.AdjustSwing(-5) })
	case key.Matches(msg, m.keys.Undo):
		var ok bool
		m.edit(func(e *sequencer.Engine) { ok = e.Undo() })
		if !ok {
			m.status = "nothing to undo"
		}
	case key.Matches(msg, m.keys.Redo):
		var ok bool
		m.edit(func(e *sequencer.Engine) { ok = e.Redo() })
		if !ok {
			m.status = "nothing to redo"
		}
	case key.Matches(msg, m.keys.Save):
		slot := m.state.PatternNumber
		m.edit(func(e *sequencer.Engine) { m.err = e.SavePattern(slot) })
		if m.err == nil {
			m.status = fmt.Sprintf("saved pattern %02d", slot)
		}
	case key.Matches(msg, m.keys.Import):
		m.mode = ModeFilePicker
		return m, m.filePicker.Init()
	case key.Matches(msg, m.keys.Export):
		m.mode = ModeWorking
		m.working = "Exporting MIDI"
		return m, tea.Batch(m.spinner.Tick, m.exportCmd())
	}
	return m, nil
}

// edit runs fn on the engine and picks up the result immediately.
func (m *Model) edit(fn func(e *sequencer.Engine)) {
	m.player.Do(fn)
	m.refresh()
}

func (m Model) exportCmd() tea.Cmd {
	state := m.state
	return func() tea.Msg {
		data, err := m.conv.ExportMIDI(state.Pattern, state.GlobalBPM)
		if err != nil {
			return doneMsg{err: fmt.Errorf("export failed: %w", err)}
		}
		path := filepath.Join(m.exportDir, fmt.Sprintf("pattern%02d.mid", state.PatternNumber))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return doneMsg{err: fmt.Errorf("export failed: %w", err)}
		}
		return doneMsg{status: "exported " + path}
	}
}

func (m Model) importCmd(path string) tea.Cmd {
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return doneMsg{err: err}
		}
		p, err := m.conv.ReadPattern(data)
		if err != nil {
			return doneMsg{err: fmt.Errorf("import %s: %w", filepath.Base(path), err)}
		}
		m.player.Do(func(e *sequencer.Engine) { err = e.ImportPattern(p) })
		if err != nil {
			return doneMsg{err: fmt.Errorf("import %s: %w", filepath.Base(path), err)}
		}
		return doneMsg{status: "imported " + filepath.Base(path)}
	}
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(asciiLogo())
	s.WriteString("\n")

	switch m.mode {
	case ModeGrid:
		s.WriteString(m.viewGrid())
		s.WriteString("\n")
		s.WriteString(helpStyle.Render(m.help.View(m.keys)))
	case ModeFilePicker:
		s.WriteString(titleStyle.Render(" IMPORT PATTERN "))
		s.WriteString("\n\n")
		s.WriteString(m.filePicker.View())
		s.WriteString("\n")
		s.WriteString(helpStyle.Render("esc: back to grid"))
	case ModeWorking:
		s.WriteString(boxStyle.Render(fmt.Sprintf("%s %s...", m.spinner.View(), m.working)))
	}

	return s.String()
}

func (m Model) viewGrid() string {
	var s strings.Builder
	st := m.state

	transport := "■ STOP"
	if st.Running {
		transport = "▶ PLAY"
	}
	header := fmt.Sprintf(" %s  %.1f BPM  SWING %d  PATTERN %02d  STEP %02d/%02d ",
		transport, st.Tempo, st.Pattern.Swing, st.PatternNumber, st.CurrentStep+1, st.Pattern.Length)
	if st.FillMode {
		header += " FILL "
	}
	s.WriteString(titleStyle.Render(header))
	s.WriteString("\n")

	for tr := 0; tr < sequencer.MaxTracks; tr++ {
		s.WriteString(m.viewTrack(tr))
		s.WriteString("\n")
	}

	step := st.Pattern.Tracks[st.SelectedTrack].Steps[m.cursor]
	info := fmt.Sprintf("T%d S%02d  %s  vel %d  pitch %+d", st.SelectedTrack+1, m.cursor+1, step.Condition, step.Velocity, step.PitchOffset)
	s.WriteString(statusStyle.Render(info))

	switch {
	case m.err != nil:
		s.WriteString("\n")
		s.WriteString(errorStyle.Render("✗ " + m.err.Error()))
	case m.status != "":
		s.WriteString("\n")
		s.WriteString(statusStyle.Render(m.status))
	}

	return boxStyle.Render(s.String())
}

func (m Model) viewTrack(tr int) string {
	var s strings.Builder
	st := m.state
	track := st.Pattern.Tracks[tr]

	flags := "  "
	if track.Muted {
		flags = "M" + flags[1:]
	}
	if track.Soloed {
		flags = flags[:1] + "S"
	}
	label := fmt.Sprintf("T%d %s ", tr+1, flags)
	if tr == st.SelectedTrack {
		s.WriteString(selectedLabelStyle.Render("▸" + label))
	} else {
		s.WriteString(labelStyle.Render(" " + label))
	}

	for i := 0; i < int(st.Pattern.Length); i++ {
		if i > 0 && i%sequencer.StepsPerBeat == 0 {
			s.WriteString(" ")
		}
		step := track.Steps[i]
		cell, style := "·", stepOffStyle
		if step.Active {
			cell, style = conditionGlyphs[step.Condition], stepOnStyle
		}
		switch {
		case tr == st.SelectedTrack && i == m.cursor:
			style = cursorStyle
		case st.Running && i == st.CurrentStep:
			style = style.Inherit(playheadStyle)
		}
		s.WriteString(style.Render(cell))
	}
	return s.String()
}

func asciiLogo() string {
	logo := `
   ___  _  _ ___   _   ___
  / _ \| \| |   \ /_\ / __|
 | (_) | .' | |) / _ \\__ \
  \___/|_|\_|___/_/ \_\___/
`
	return lipgloss.NewStyle().Foreground(acidGreen).Render(logo)
}

// Run drives p and the editor until the user quits or ctx is cancelled.
func Run(ctx context.Context, p *player.Player, conv *converter.Converter, opts ...Option) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- p.Run(ctx) }()

	prog := tea.NewProgram(New(p, conv, opts...), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := prog.Run()
	cancel()
	if runErr := <-errc; runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
