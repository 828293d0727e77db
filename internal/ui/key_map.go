package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the dashboard.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	focus   key.Binding
	refresh key.Binding
	remove  key.Binding
	more    key.Binding
	fewer   key.Binding
	toggle  key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "add city")),
		focus:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "search/widgets")),
		refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		remove:  key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		more:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "more days")),
		fewer:   key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "fewer days")),
		toggle:  key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "hourly/daily")),
		quit:    key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.focus, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter},
		{k.refresh, k.remove, k.more, k.fewer, k.toggle},
		{k.focus, k.quit},
	}
}
