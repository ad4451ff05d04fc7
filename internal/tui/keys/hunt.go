package keys

import "github.com/charmbracelet/bubbles/key"

// HuntKeys adds result navigation and rescan on top of the common keys
type HuntKeys struct {
	CommonKeys
	Rescan     key.Binding
	Up         key.Binding
	Down       key.Binding
	GotoTop    key.Binding
	GotoBottom key.Binding
}

func NewHuntKeys() HuntKeys {
	return HuntKeys{
		CommonKeys: NewCommonKeys(),
		Rescan: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rescan"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		GotoTop: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "goto top"),
		),
		GotoBottom: key.NewBinding(
			key.WithKeys("G"),
			key.WithHelp("G", "goto bottom"),
		),
	}
}

func (k HuntKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Rescan, k.Quit}
}

func (k HuntKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Rescan, k.Up, k.Down, k.GotoTop, k.GotoBottom},
		{k.Help, k.Quit},
	}
}
