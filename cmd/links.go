package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/qlink/internal/formatter"
	"github.com/desertthunder/qlink/internal/models"
	"github.com/desertthunder/qlink/internal/monitor"
	"github.com/desertthunder/qlink/internal/shared"
)

// LinksAdd records a link from two observations: the trigger, then the target.
//
// The user plays each track and presses enter; anything other than a playing track aborts the capture.
// Linking a trigger that is already linked replaces its target.
func (r *Runner) LinksAdd(ctx context.Context, cmd *cli.Command) error {
	if err := r.openStore(); err != nil {
		return err
	}

	supplier, err := r.credentialSupplier()
	if err != nil {
		return err
	}

	cred, err := supplier.Obtain(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
	}

	opts := monitor.OptionsFromConfig(r.config.Monitor)
	observer := monitor.NewPlaybackObserver(r.spotifyService(), r.clock, opts, r.logger)
	input := bufio.NewReader(r.input)

	trigger, err := r.capture(ctx, input, observer, cred, "Play the track that should trigger the link")
	if err != nil {
		return err
	}
	target, err := r.capture(ctx, input, observer, cred, "Play the track to queue after it")
	if err != nil {
		return err
	}

	link := models.NewLink(0, trigger, target)
	if err := link.Validate(); err != nil {
		return fmt.Errorf("%w: the link could not be completed: %v", shared.ErrInvalidInput, err)
	}

	if err := r.links.Insert(link); err != nil {
		return err
	}

	r.logger.Info("link saved", "trigger", trigger.ID, "target", target.ID, "sequence", link.Sequence())
	return r.writePlainln("✓ %d. %s", link.Sequence(), link)
}

// capture prompts, waits for enter, then observes what is playing.
func (r *Runner) capture(ctx context.Context, input *bufio.Reader, observer monitor.Observer, cred models.Credential, prompt string) (models.Track, error) {
	r.writePlain("%s, then press enter: ", prompt)
	if _, err := input.ReadString('\n'); err != nil && !errors.Is(err, io.EOF) {
		return models.Track{}, fmt.Errorf("failed to read input: %w", err)
	}

	obs := observer.Observe(ctx, cred)
	if !obs.IsPlaying() {
		r.logger.Warn("capture failed", "kind", obs.Kind, "message", obs.Message)
		return models.Track{}, fmt.Errorf("%w: the link could not be completed (%s)", shared.ErrNothingPlaying, obs.Kind)
	}

	r.writePlain("  %s\n", obs.Track)
	return obs.Track, nil
}

// LinksList prints every link in sequence order.
func (r *Runner) LinksList(ctx context.Context, cmd *cli.Command) error {
	if err := r.openStore(); err != nil {
		return err
	}

	links, err := r.links.List(map[string]any{"search": cmd.String("search")})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		records := make([]formatter.LinkRecord, len(links))
		for i, link := range links {
			records[i] = formatter.Record(link)
		}
		return r.writeJSON(records, true)
	}

	if len(links) == 0 {
		return r.writePlain("No links yet. Create one with 'qlink links add'.\n")
	}

	r.writePlainHeader(fmt.Sprintf("Links (%d)", len(links)))
	for _, link := range links {
		r.writePlain("%d. %s (%s)\n", link.Sequence(), link, humanize.Time(link.UpdatedAt()))
	}
	return nil
}

// LinksRemove deletes the link triggered by the given track id.
func (r *Runner) LinksRemove(ctx context.Context, cmd *cli.Command) error {
	triggerID := cmd.StringArg("trigger-id")
	if triggerID == "" {
		return fmt.Errorf("%w: trigger-id", shared.ErrMissingArgument)
	}

	if err := r.openStore(); err != nil {
		return err
	}

	if err := r.links.DeleteByTriggerID(triggerID); err != nil {
		return err
	}

	r.logger.Info("link removed", "trigger", triggerID)
	return r.writePlain("✓ Removed link for %s\n", triggerID)
}

// LinksExport writes every link to a file in the requested format.
func (r *Runner) LinksExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	if err := r.openStore(); err != nil {
		return err
	}

	links, err := r.links.All()
	if err != nil {
		return err
	}

	path, err := formatter.WriteExport(format, links, cmd.String("output"))
	if err != nil {
		return err
	}

	r.logger.Info("links exported", "path", path, "format", format, "count", len(links))
	return r.writePlain("✓ Exported %d links to %s\n", len(links), path)
}
