package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Step     key.Binding
	Run      key.Binding
	Reset    key.Binding
	Settings key.Binding
	Help     key.Binding
	Quit     key.Binding

	Up    key.Binding
	Down  key.Binding
	Left  key.Binding
	Right key.Binding
	Apply key.Binding
	Back  key.Binding
}

var keys = keyMap{
	Step:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "step")),
	Run:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "run/pause")),
	Reset:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
	Settings: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "settings")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),

	Up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("k/up", "previous field")),
	Down:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("j/down", "next field")),
	Left:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("h/left", "decrease")),
	Right: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("l/right", "increase")),
	Apply: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply")),
	Back:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Step, k.Run, k.Reset, k.Settings, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Step, k.Run, k.Reset},
		{k.Settings, k.Help, k.Quit},
		{k.Up, k.Down, k.Left, k.Right, k.Apply, k.Back},
	}
}

// settingsKeys is the help shown while the settings panel is open.
type settingsKeys struct{ keyMap }

func (k settingsKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Left, k.Right, k.Apply, k.Back}
}

func (k settingsKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
