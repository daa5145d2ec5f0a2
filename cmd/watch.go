package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/qlink/internal/monitor"
	"github.com/desertthunder/qlink/internal/repositories"
)

const eventBuffer = 64

// Watch runs the monitor until the context is cancelled, printing what it does.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("tui") {
		return r.WatchTUI(ctx, cmd)
	}

	events := make(chan monitor.Event, eventBuffer)
	m, err := r.buildMonitor(events)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.printEvents(events)
	}()

	r.writePlain("Watching playback. Press Ctrl+C to stop.\n")
	err = m.Run(ctx)
	close(events)
	<-done
	return err
}

// buildMonitor wires the monitor to Spotify and a cached view of the link store.
func (r *Runner) buildMonitor(events chan<- monitor.Event) (*monitor.Monitor, error) {
	if err := r.openStore(); err != nil {
		return nil, err
	}

	supplier, err := r.credentialSupplier()
	if err != nil {
		return nil, err
	}

	settings, err := r.settings.Get()
	if err != nil {
		return nil, err
	}

	cache, err := repositories.NewLinkCache(r.links, r.config.Monitor.CacheSize)
	if err != nil {
		return nil, err
	}

	opts := monitor.OptionsFromConfig(r.config.Monitor)
	opts.Reverse = settings.Reverse

	spotify := r.spotifyService()
	r.logger.Debug("monitor configured", "reverse", opts.Reverse, "exit_on_device_error", opts.ExitOnDeviceError)

	return monitor.New(monitor.Config{
		Supplier: supplier,
		Links:    cache,
		Observer: monitor.NewPlaybackObserver(spotify, r.clock, opts, r.logger),
		Resolver: monitor.NewDeviceResolver(spotify, r.logger),
		Injector: monitor.NewQueueInjector(spotify),
		Clock:    r.clock,
		Options:  opts,
		Logger:   r.logger,
		Events:   events,
	}), nil
}

// printEvents writes events until the channel is closed.
// Repeated polls that report the same track, or nothing playing, are printed once.
func (r *Runner) printEvents(events <-chan monitor.Event) {
	var last monitor.Event
	for e := range events {
		if repeats(last, e) {
			continue
		}
		last = e
		r.writePlain("%s %s\n", r.clock.Now().Format("15:04:05"), e.Message)
	}
}

func repeats(prev, next monitor.Event) bool {
	if prev.Kind != next.Kind {
		return false
	}
	switch next.Kind {
	case monitor.Idle:
		return true
	case monitor.Observed:
		return prev.Track.SameAs(next.Track)
	default:
		return false
	}
}
