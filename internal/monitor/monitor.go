package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/qlink/internal/models"
	"github.com/desertthunder/qlink/internal/shared"
)

const stopTimeout = 500 * time.Millisecond

// CredentialSupplier mints a fresh bearer credential on every call.
type CredentialSupplier interface {
	Obtain(ctx context.Context) (models.Credential, error)
}

// Observer classifies the now-playing state, waiting out any backoff before it returns.
type Observer interface {
	Observe(ctx context.Context, cred models.Credential) models.Observation
}

// Resolver finds the active playback device.
type Resolver interface {
	ActiveDevice(ctx context.Context, cred models.Credential) models.DeviceQueryResult
}

// Injector appends a track to a device's queue.
type Injector interface {
	Enqueue(ctx context.Context, cred models.Credential, deviceID string, track models.Track) error
}

// Monitor polls playback and queues the target of every link whose trigger starts playing.
//
// A single goroutine runs the loop. After a match the monitor waits for the trigger to stop playing
// before it looks for matches again, so a link fires once per play of its trigger.
type Monitor struct {
	supplier  CredentialSupplier
	links     models.LinkStore
	observer  Observer
	resolver  Resolver
	injector  Injector
	lifecycle *Lifecycle
	clock     Clock
	opts      Options
	logger    *log.Logger
	events    chan<- Event
}

// Config holds a Monitor's collaborators. Clock, Lifecycle and Logger are optional.
type Config struct {
	Supplier  CredentialSupplier
	Links     models.LinkStore
	Observer  Observer
	Resolver  Resolver
	Injector  Injector
	Lifecycle *Lifecycle
	Clock     Clock
	Options   Options
	Logger    *log.Logger
	Events    chan<- Event
}

// New creates a Monitor from cfg.
func New(cfg Config) *Monitor {
	m := &Monitor{
		supplier:  cfg.Supplier,
		links:     cfg.Links,
		observer:  cfg.Observer,
		resolver:  cfg.Resolver,
		injector:  cfg.Injector,
		lifecycle: cfg.Lifecycle,
		clock:     cfg.Clock,
		opts:      cfg.Options,
		logger:    cfg.Logger,
		events:    cfg.Events,
	}
	if m.lifecycle == nil {
		m.lifecycle = NewLifecycle()
	}
	if m.clock == nil {
		m.clock = SystemClock()
	}
	m.logger = orDiscard(m.logger)
	return m
}

func orDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return log.New(io.Discard)
	}
	return l
}

// Lifecycle returns the credential state the monitor refreshes.
func (m *Monitor) Lifecycle() *Lifecycle {
	return m.lifecycle
}

// Run polls until ctx is done or a fatal error occurs.
//
// Fatal errors are a credential that cannot be obtained and, when ExitOnDeviceError is set,
// a device query answered with an unexpected status. Cancellation returns nil.
func (m *Monitor) Run(ctx context.Context) error {
	err := m.run(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	m.emitFinal(stoppedEvent(err))
	return err
}

func (m *Monitor) run(ctx context.Context) error {
	if all, err := m.links.All(); err != nil {
		m.logger.Warn("could not count links", "error", err)
		m.emit(startedEvent(0))
	} else {
		m.emit(startedEvent(len(all)))
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if m.lifecycle.Expiring(m.clock.Now(), 0) {
			if err := m.refresh(ctx); err != nil {
				return err
			}
		}

		obs := m.observer.Observe(ctx, m.lifecycle.Credential())

		switch obs.Kind {
		case models.Unauthorized:
			m.logger.Info("credential rejected, refreshing")
			if err := m.refresh(ctx); err != nil {
				return err
			}
			continue
		case models.NoActiveSession:
			m.emit(idleEvent())
			continue
		case models.TransientServiceError, models.NotFound:
			m.emit(serviceErrorEvent(obs))
			continue
		}

		track := obs.Track
		m.emit(observedEvent(track))

		link, err := m.match(track)
		if err != nil {
			m.logger.Error("link lookup failed", "track", track.ID, "error", err)
			if err := m.clock.Sleep(ctx, m.opts.ServiceErrorBackoff); err != nil {
				return err
			}
			continue
		}
		if link == nil {
			continue
		}

		m.logger.Info("link matched", "trigger", track.ID, "target", link.Target().ID)
		m.emit(matchedEvent(track, link))

		if err := m.inject(ctx, track, link); err != nil {
			return err
		}

		if err := m.awaitCompletion(ctx, track); err != nil {
			return err
		}
	}
}

// match returns the link to fire for track, or nil.
func (m *Monitor) match(track models.Track) (*models.Link, error) {
	link, err := m.links.FindByTriggerID(track.ID)
	if err == nil {
		return link, nil
	}
	if !errors.Is(err, shared.ErrLinkNotFound) {
		return nil, err
	}

	if !m.opts.Reverse {
		return nil, nil
	}

	link, err = m.links.FindByTargetID(track.ID)
	if errors.Is(err, shared.ErrLinkNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return link.Reversed(), nil
}

// refresh obtains a new credential. Failure is fatal.
func (m *Monitor) refresh(ctx context.Context) error {
	cred, err := m.supplier.Obtain(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	m.lifecycle.MarkIssued(cred, m.clock.Now())
	m.logger.Debug("credential issued")
	m.emit(refreshedEvent())
	return nil
}

// inject queues link's target on the active device.
//
// Only fatal errors are returned; device and queue failures are reported and the injection is dropped.
func (m *Monitor) inject(ctx context.Context, playing models.Track, link *models.Link) error {
	if m.lifecycle.Expiring(m.clock.Now(), playing.Remaining) {
		if err := m.refresh(ctx); err != nil {
			return err
		}
	}

	deviceID, err := m.resolveDevice(ctx)
	switch {
	case err == nil:
	case errors.Is(err, shared.ErrRefreshFailed), ctx.Err() != nil:
		return err
	case errors.Is(err, shared.ErrDeviceQuery) && m.opts.ExitOnDeviceError:
		m.emit(deviceErrorEvent(err))
		return err
	default:
		m.logger.Warn("skipping injection", "target", link.Target().ID, "error", err)
		if !errors.Is(err, shared.ErrNoActiveDevice) {
			m.emit(deviceErrorEvent(err))
		}
		return nil
	}

	if err := m.injector.Enqueue(ctx, m.lifecycle.Credential(), deviceID, link.Target()); err != nil {
		m.logger.Error("enqueue failed", "target", link.Target().ID, "device", deviceID, "error", err)
		m.emit(queueFailedEvent(link, err))
		return nil
	}

	m.logger.Info("queued", "target", link.Target().ID, "device", deviceID)
	m.emit(queuedEvent(link))
	return nil
}

// resolveDevice queries the active device, refreshing the credential at most once
// and retrying at most MaxRateLimitRetries times after a 429.
func (m *Monitor) resolveDevice(ctx context.Context) (string, error) {
	refreshed := false
	retries := 0

	for {
		res := m.resolver.ActiveDevice(ctx, m.lifecycle.Credential())

		switch res.Kind {
		case models.ActiveDevice:
			return res.DeviceID, nil
		case models.NoActiveDevice:
			m.emit(noDeviceEvent())
			if err := m.clock.Sleep(ctx, m.opts.NoDeviceWait); err != nil {
				return "", err
			}
			return "", shared.ErrNoActiveDevice
		case models.DeviceUnauthorized:
			if refreshed {
				return "", fmt.Errorf("%w: device query rejected after refresh", shared.ErrNotAuthenticated)
			}
			refreshed = true
			if err := m.refresh(ctx); err != nil {
				return "", err
			}
		case models.DeviceRateLimited:
			if retries >= m.opts.MaxRateLimitRetries {
				return "", fmt.Errorf("%w: gave up after %d retries", shared.ErrRateLimited, retries)
			}
			retries++
			m.logger.Info("device query rate limited", "wait", m.opts.RateLimitWait, "attempt", retries)
			if err := m.clock.Sleep(ctx, m.opts.RateLimitWait); err != nil {
				return "", err
			}
		case models.DeviceUnreachable:
			return "", fmt.Errorf("%w: %s", shared.ErrAPIRequest, res.Message)
		default:
			return "", fmt.Errorf("%w: status %d: %s", shared.ErrDeviceQuery, res.Status, res.Message)
		}
	}
}

// awaitCompletion polls on CompletionInterval until something other than trigger is playing.
func (m *Monitor) awaitCompletion(ctx context.Context, trigger models.Track) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if m.lifecycle.Expiring(m.clock.Now(), 0) {
			if err := m.refresh(ctx); err != nil {
				return err
			}
		}

		obs := m.observer.Observe(ctx, m.lifecycle.Credential())

		switch obs.Kind {
		case models.Unauthorized:
			if err := m.refresh(ctx); err != nil {
				return err
			}
			continue
		case models.NoActiveSession:
			m.emit(finishedEvent(trigger))
			return nil
		case models.Playing:
			if !obs.Track.SameAs(trigger) {
				m.emit(finishedEvent(trigger))
				return nil
			}
		}

		if err := m.clock.Sleep(ctx, m.opts.CompletionInterval); err != nil {
			return err
		}
	}
}

// emit sends e without blocking; events are dropped when nobody is reading.
func (m *Monitor) emit(e Event) {
	if m.events == nil {
		return
	}
	select {
	case m.events <- e:
	default:
	}
}

// emitFinal waits up to stopTimeout for room in the channel so the last event is not lost.
func (m *Monitor) emitFinal(e Event) {
	if m.events == nil {
		return
	}
	timer := time.NewTimer(stopTimeout)
	defer timer.Stop()
	select {
	case m.events <- e:
	case <-timer.C:
		m.logger.Warn("dropped stop event", "error", e.Err)
	}
}
