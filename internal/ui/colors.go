package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/qlink/internal/monitor"
)

var styles = NewPalette("#1DB954", "#04B575", "#FF5F5F", "#FFA500", "#626262")

// interface Painter defines coloring text with [lipgloss] styles
type Painter interface {
	As(string, monitor.EventKind) string // Renders text in the style for an event kind
}

var _ Painter = (*Palette)(nil)

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

// As renders text with the style that matches the severity of kind.
func (p *Palette) As(text string, kind monitor.EventKind) string {
	switch kind {
	case monitor.Queued, monitor.Matched:
		return p.ok.Render(text)
	case monitor.QueueFailed, monitor.DeviceError:
		return p.err.Render(text)
	case monitor.NoDevice, monitor.ServiceError, monitor.Stopped:
		return p.warn.Render(text)
	case monitor.Idle, monitor.Refreshed:
		return p.help.Render(text)
	default:
		return text
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
