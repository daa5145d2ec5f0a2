package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/qlink/internal/monitor"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgMonitorEvent MsgKind = iota
	MsgMonitorClosed
)

// eventMsg is the constructor for [MsgMonitorEvent]
func eventMsg(e monitor.Event) Msg {
	return Msg{kind: MsgMonitorEvent, data: e}
}

// closedMsg is the constructor for [MsgMonitorClosed]
func closedMsg() Msg {
	return Msg{kind: MsgMonitorClosed}
}

// waitForEvent blocks on the next monitor event. A closed channel yields [MsgMonitorClosed].
func waitForEvent(events <-chan monitor.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return closedMsg()
		}
		return eventMsg(e)
	}
}
