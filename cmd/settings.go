package main

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// SettingsShow prints the stored preferences.
func (r *Runner) SettingsShow(ctx context.Context, cmd *cli.Command) error {
	if err := r.openStore(); err != nil {
		return err
	}

	settings, err := r.settings.Get()
	if err != nil {
		return err
	}

	r.writePlain("Reverse links: %s\n", onOff(settings.Reverse))
	if !settings.UpdatedAt.IsZero() {
		r.writePlain("Updated: %s\n", humanize.Time(settings.UpdatedAt))
	}
	return nil
}

// SettingsSet updates the preferences named by flags and leaves the rest unchanged.
func (r *Runner) SettingsSet(ctx context.Context, cmd *cli.Command) error {
	if err := r.openStore(); err != nil {
		return err
	}

	settings, err := r.settings.Get()
	if err != nil {
		return err
	}

	if !cmd.IsSet("reverse") {
		return r.writePlain("Nothing to change. Use --reverse=true|false.\n")
	}

	settings.Reverse = cmd.Bool("reverse")
	if err := r.settings.Save(settings); err != nil {
		return err
	}

	r.logger.Info("settings saved", "reverse", settings.Reverse)
	return r.writePlain("✓ Reverse links: %s\n", onOff(settings.Reverse))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

