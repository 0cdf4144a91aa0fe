package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/trackui/internal/tasks"
	"github.com/desertthunder/trackui/internal/toast"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title    lipgloss.Style
	ok       lipgloss.Style
	err      lipgloss.Style
	warn     lipgloss.Style
	info     lipgloss.Style
	help     lipgloss.Style
	muted    lipgloss.Style
	selected lipgloss.Style
	modal    lipgloss.Style
	toast    lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title:    NewBold(t).MarginBottom(1),
		ok:       NewBold(s),
		err:      NewBold(e),
		warn:     NewStyle(w),
		info:     NewStyle(t),
		help:     NewEm(h),
		muted:    NewStyle(h),
		selected: NewBold(t).Reverse(true),
		modal:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(t)).Padding(0, 1),
		toast:    lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).PaddingLeft(1),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// state picks the style of an indicator state.
func (p *Palette) state(s tasks.IndicatorState) lipgloss.Style {
	switch s {
	case tasks.StateTimeout:
		return p.err
	case tasks.StateRunning:
		return p.warn
	case tasks.StateActive:
		return p.info
	default:
		return p.ok
	}
}

// tone picks the style of a detail message.
func (p *Palette) tone(t tasks.Tone) lipgloss.Style {
	switch t {
	case tasks.ToneSuccess:
		return p.ok
	case tasks.ToneError:
		return p.err
	default:
		return p.muted
	}
}

// level picks the style of a toast.
func (p *Palette) level(l toast.Level) lipgloss.Style {
	switch l {
	case toast.Success:
		return p.toast.BorderForeground(p.ok.GetForeground()).Foreground(p.ok.GetForeground())
	case toast.Warning:
		return p.toast.BorderForeground(p.warn.GetForeground()).Foreground(p.warn.GetForeground())
	case toast.Error:
		return p.toast.BorderForeground(p.err.GetForeground()).Foreground(p.err.GetForeground())
	default:
		return p.toast.BorderForeground(p.info.GetForeground())
	}
}
