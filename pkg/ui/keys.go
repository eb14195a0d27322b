package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Send       key.Binding
	Clear      key.Binding
	ToggleDark key.Binding
	CopyReply  key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Send:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Clear:      key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "clear chat")),
		ToggleDark: key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "dark mode")),
		CopyReply:  key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy reply")),
		Quit:       key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.Clear, k.ToggleDark, k.CopyReply, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
