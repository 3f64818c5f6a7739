package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Play      key.Binding
	Stop      key.Binding
	Left      key.Binding
	Right     key.Binding
	Up        key.Binding
	Down      key.Binding
	Toggle    key.Binding
	Condition key.Binding
	Mute      key.Binding
	Solo      key.Binding
	Fill      key.Binding
	TempoUp   key.Binding
	TempoDown key.Binding
	SwingUp   key.Binding
	SwingDown key.Binding
	Undo      key.Binding
	Redo      key.Binding
	Save      key.Binding
	Import    key.Binding
	Export    key.Binding
	Help      key.Binding
	Quit      key.Binding
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Play, k.Toggle, k.Condition, k.Mute, k.Solo, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Play, k.Stop, k.Fill, k.TempoUp, k.TempoDown, k.SwingUp, k.SwingDown},
		{k.Left, k.Right, k.Up, k.Down, k.Toggle, k.Condition},
		{k.Mute, k.Solo, k.Undo, k.Redo},
		{k.Save, k.Import, k.Export, k.Help, k.Quit},
	}
}

var defaultKeys = keyMap{
	Play:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
	Stop:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
	Left:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "step left")),
	Right:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "step right")),
	Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "track up")),
	Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "track down")),
	Toggle:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "toggle step")),
	Condition: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "cycle condition")),
	Mute:      key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mute")),
	Solo:      key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "solo")),
	Fill:      key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "fill")),
	TempoUp:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "tempo up")),
	TempoDown: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "tempo down")),
	SwingUp:   key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "swing up")),
	SwingDown: key.NewBinding(key.WithKeys("["), key.WithHelp("[", "swing down")),
	Undo:      key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "undo")),
	Redo:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "redo")),
	Save:      key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "save slot")),
	Import:    key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "import file")),
	Export:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "export .mid")),
	Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}
