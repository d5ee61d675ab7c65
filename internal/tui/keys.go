package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	up         key.Binding
	down       key.Binding
	section    key.Binding
	edit       key.Binding
	rename     key.Binding
	add        key.Binding
	remove     key.Binding
	sort       key.Binding
	newChat    key.Binding
	nextChat   key.Binding
	prevChat   key.Binding
	closeChat  key.Binding
	toggle     key.Binding
	toggleHelp key.Binding
	quit       key.Binding
	cancel     key.Binding
	submit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		section: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch section"),
		),
		edit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "edit value"),
		),
		rename: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rename"),
		),
		add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		remove: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete (twice)"),
		),
		sort: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "cycle sort"),
		),
		newChat: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new chat"),
		),
		nextChat: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "next chat"),
		),
		prevChat: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "prev chat"),
		),
		closeChat: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "close chat"),
		),
		toggle: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "toggle panel"),
		),
		toggleHelp: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "save"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.add, k.edit, k.remove, k.toggle, k.toggleHelp, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.section},
		{k.add, k.edit, k.rename, k.remove, k.sort},
		{k.newChat, k.nextChat, k.prevChat, k.closeChat},
		{k.toggle, k.toggleHelp, k.quit},
	}
}
