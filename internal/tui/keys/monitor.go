package keys

import "github.com/charmbracelet/bubbles/key"

// MonitorKeys are the bindings of the frame monitor
type MonitorKeys struct {
	CommonKeys
	Clear        key.Binding
	ToggleHex    key.Binding
	ToggleASCII  key.Binding
	ToggleFrames key.Binding
	Reset        key.Binding
	Pause        key.Binding
}

func NewMonitorKeys() MonitorKeys {
	return MonitorKeys{
		CommonKeys: NewCommonKeys(),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear frames"),
		),
		ToggleHex: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "toggle hex"),
		),
		ToggleASCII: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "toggle ascii"),
		),
		ToggleFrames: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "toggle SLIP decoding"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reset device"),
		),
		Pause: key.NewBinding(
			key.WithKeys("p", " "),
			key.WithHelp("p/space", "pause display"),
		),
	}
}

func (k MonitorKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Reset, k.Clear, k.Quit}
}

func (k MonitorKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Reset, k.Pause, k.Clear},
		{k.ToggleHex, k.ToggleASCII, k.ToggleFrames},
		{k.Help, k.Quit},
	}
}
