package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up        key.Binding
	down      key.Binding
	enter     key.Binding
	escape    key.Binding
	tab       key.Binding
	downloads key.Binding
	sync      key.Binding
	avatars   key.Binding
	external  key.Binding
	scheduler key.Binding
	download  key.Binding
	toggle    key.Binding
	pause     key.Binding
	resume    key.Binding
	clear     key.Binding
	filter    key.Binding
	dismiss   key.Binding
	help      key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		escape:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close all")),
		tab:       key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "next field")),
		downloads: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "downloads")),
		sync:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sync all")),
		avatars:   key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "refresh avatars")),
		external:  key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "external download")),
		scheduler: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "scheduler")),
		download:  key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "download account")),
		toggle:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
		pause:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause")),
		resume:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "resume")),
		clear:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear completed")),
		filter:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		dismiss:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "dismiss toast")),
		help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.downloads, k.sync, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.downloads, k.sync, k.avatars, k.external, k.scheduler},
		{k.up, k.down, k.enter, k.toggle, k.filter},
		{k.pause, k.resume, k.clear, k.download},
		{k.dismiss, k.escape, k.help, k.quit},
	}
}

// modalKeys are the bindings shown under an open modal.
func (k keyMap) modalKeys(id ModalID) []key.Binding {
	switch id {
	case ModalDownloads:
		return []key.Binding{k.enter, k.toggle, k.pause, k.resume, k.clear, k.filter, k.escape}
	case ModalDetail:
		return []key.Binding{k.pause, k.resume, k.escape}
	case ModalExternal:
		return []key.Binding{k.tab, key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "start")), k.escape}
	default:
		return []key.Binding{k.escape}
	}
}
