package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/qlink/internal/monitor"
	"github.com/desertthunder/qlink/internal/shared"
	"github.com/desertthunder/qlink/internal/ui"
)

const tuiLogPath = "./tmp/qlink-tui.log"

// WatchTUI runs the monitor behind the interactive dashboard.
//
// Quitting the dashboard stops the monitor; a monitor that stops on its own leaves the dashboard
// open so the reason stays on screen.
func (r *Runner) WatchTUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(tuiLogPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	events := make(chan monitor.Event, eventBuffer)
	m, err := r.buildMonitor(events)
	if err != nil {
		return err
	}

	links, err := r.links.All()
	if err != nil {
		r.logger.Warn("could not load links for the dashboard", "error", err)
	}

	monitorCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		err := m.Run(monitorCtx)
		close(events)
		runErr <- err
	}()

	model := ui.NewModel(events, links, cancel)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		cancel()
		<-runErr
		return fmt.Errorf("error running TUI: %w", err)
	}

	cancel()
	return <-runErr
}
