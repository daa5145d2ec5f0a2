package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/qlink/internal/models"
	"github.com/desertthunder/qlink/internal/monitor"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	EventsView ViewState = iota
	LinksView
)

const maxLogEntries = 200

type logEntry struct {
	at   time.Time
	kind monitor.EventKind
	text string
}

// Model represents the TUI application state.
type Model struct {
	view     ViewState
	events   <-chan monitor.Event
	cancel   context.CancelFunc
	now      func() time.Time
	width    int
	height   int
	current  models.Track
	playing  bool
	last     monitor.EventKind
	log      []logEntry
	offset   int
	queued   int
	linkList list.Model
	spinner  spinner.Model
	stopped  bool
	err      error
	help     help.Model
	keys     keyMap
}

// NewModel creates a dashboard that renders events until the channel is closed.
//
// cancel stops the monitor when the user quits; it may be nil.
func NewModel(events <-chan monitor.Event, links []*models.Link, cancel context.CancelFunc) *Model {
	linkList := list.New(linkItems(links), list.NewDefaultDelegate(), 0, 0)
	linkList.Title = fmt.Sprintf("Links (%d)", len(links))

	return &Model{
		view:     EventsView,
		events:   events,
		cancel:   cancel,
		now:      time.Now,
		linkList: linkList,
		spinner:  spinner.New(spinner.WithSpinner(spinner.MiniDot)),
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Err returns the error the monitor stopped with, if any.
func (m *Model) Err() error {
	return m.err
}

// Init starts the spinner and waits for the first monitor event.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events))
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.linkList.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case spinner.TickMsg:
		if m.stopped {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgMonitorEvent:
			m.apply(msg.data.(monitor.Event))
			return m, waitForEvent(m.events)
		case MsgMonitorClosed:
			m.stopped = true
			return m, nil
		}
	}

	if m.view == LinksView {
		var cmd tea.Cmd
		m.linkList, cmd = m.linkList.Update(msg)
		return m, cmd
	}
	return m, nil
}

// apply folds a monitor event into the dashboard state.
//
// Repeated observations of the same track and repeated idle polls are collapsed so the log
// only records changes.
func (m *Model) apply(e monitor.Event) {
	switch e.Kind {
	case monitor.Observed:
		changed := !m.playing || !m.current.SameAs(e.Track)
		m.current, m.playing = e.Track, true
		if !changed {
			return
		}
	case monitor.Idle:
		wasIdle := !m.playing && m.last == monitor.Idle
		m.current, m.playing = models.Track{}, false
		if wasIdle {
			return
		}
	case monitor.Queued:
		m.queued++
	case monitor.Stopped:
		m.stopped = true
		m.err = e.Err
	}

	m.last = e.Kind
	m.append(logEntry{at: m.now(), kind: e.Kind, text: e.Message})
}

func (m *Model) append(entry logEntry) {
	m.log = append(m.log, entry)
	if len(m.log) > maxLogEntries {
		m.log = m.log[len(m.log)-maxLogEntries:]
	}
	m.offset = 0
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.view == LinksView && m.linkList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.linkList, cmd = m.linkList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.tab):
		if m.view == EventsView {
			m.view = LinksView
		} else {
			m.view = EventsView
		}
		return m, nil
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	if m.view == LinksView {
		var cmd tea.Cmd
		m.linkList, cmd = m.linkList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.up):
		if m.offset < len(m.log)-1 {
			m.offset++
		}
	case key.Matches(msg, m.keys.down):
		if m.offset > 0 {
			m.offset--
		}
	case key.Matches(msg, m.keys.clear):
		m.log = nil
		m.offset = 0
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case LinksView:
		return fmt.Sprintf("%s\n\n%s", m.linkList.View(), m.help.View(m.keys))
	default:
		return m.renderEvents()
	}
}

func (m *Model) renderEvents() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("qlink"))
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n\n")

	for _, entry := range m.visibleLog() {
		line := fmt.Sprintf("%s %s", entry.at.Format("15:04:05"), entry.text)
		b.WriteString(styles.As(line, entry.kind))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderStatus() string {
	var status string
	switch {
	case m.stopped && m.err != nil:
		return styles.err.Render(fmt.Sprintf("Stopped: %v", m.err))
	case m.stopped:
		return styles.warn.Render("Stopped")
	case m.playing:
		status = fmt.Sprintf("%s Now playing: %s", m.spinner.View(), m.current)
		if m.current.Remaining > 0 {
			status = fmt.Sprintf("%s (%s left)", status, m.current.Remaining.Round(time.Second))
		}
	default:
		status = fmt.Sprintf("%s Waiting for playback", m.spinner.View())
	}

	if m.queued > 0 {
		status = fmt.Sprintf("%s • %s", status, styles.ok.Render(fmt.Sprintf("%d queued", m.queued)))
	}
	return status
}

// visibleLog returns the entries that fit on screen, newest last, shifted back by the scroll offset.
func (m *Model) visibleLog() []logEntry {
	rows := m.height - 8
	if rows <= 0 {
		rows = 10
	}

	end := len(m.log) - m.offset
	if end < 0 {
		end = 0
	}
	start := end - rows
	if start < 0 {
		start = 0
	}
	return m.log[start:end]
}
