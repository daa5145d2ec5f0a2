package monitor

import (
	"fmt"

	"github.com/desertthunder/qlink/internal/models"
)

// Event reports what the monitor is doing.
//
// Events are sent to the CLI or UI layer for display and never block the loop.
type Event struct {
	Kind    EventKind    // What happened
	Track   models.Track // The track involved, if any
	Link    *models.Link // The matched link, for match and queue events
	Message string       // Human-readable message for display
	Err     error        // Set for failure events
}

// EventKind enumerates the monitor's events
type EventKind int

const (
	Started EventKind = iota
	Refreshed
	Observed
	Idle
	ServiceError
	Matched
	Queued
	QueueFailed
	NoDevice
	DeviceError
	Finished
	Stopped
)

func (k EventKind) String() string {
	switch k {
	case Started:
		return "started"
	case Refreshed:
		return "refreshed"
	case Observed:
		return "observed"
	case Idle:
		return "idle"
	case ServiceError:
		return "service_error"
	case Matched:
		return "matched"
	case Queued:
		return "queued"
	case QueueFailed:
		return "queue_failed"
	case NoDevice:
		return "no_device"
	case DeviceError:
		return "device_error"
	case Finished:
		return "finished"
	case Stopped:
		return "stopped"
	default:
		return ""
	}
}

func startedEvent(links int) Event {
	return Event{Kind: Started, Message: fmt.Sprintf("Watching playback (%d links)", links)}
}

func refreshedEvent() Event {
	return Event{Kind: Refreshed, Message: "Credential refreshed"}
}

func observedEvent(t models.Track) Event {
	return Event{Kind: Observed, Track: t, Message: fmt.Sprintf("Now playing: %s", t)}
}

func idleEvent() Event {
	return Event{Kind: Idle, Message: "Nothing is playing"}
}

func serviceErrorEvent(obs models.Observation) Event {
	msg := fmt.Sprintf("Playback query failed (%s)", obs.Kind)
	if obs.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, obs.Message)
	}
	return Event{Kind: ServiceError, Message: msg}
}

func matchedEvent(t models.Track, link *models.Link) Event {
	return Event{
		Kind:    Matched,
		Track:   t,
		Link:    link,
		Message: fmt.Sprintf("Matched %s -> %s", t, link.Target()),
	}
}

func queuedEvent(link *models.Link) Event {
	return Event{
		Kind:    Queued,
		Track:   link.Target(),
		Link:    link,
		Message: fmt.Sprintf("✓ Queued %s", link.Target()),
	}
}

func queueFailedEvent(link *models.Link, err error) Event {
	return Event{
		Kind:    QueueFailed,
		Track:   link.Target(),
		Link:    link,
		Message: fmt.Sprintf("✗ Could not queue %s: %v", link.Target(), err),
		Err:     err,
	}
}

func noDeviceEvent() Event {
	return Event{Kind: NoDevice, Message: "No active device, start playback on a device to queue tracks"}
}

func deviceErrorEvent(err error) Event {
	return Event{Kind: DeviceError, Message: fmt.Sprintf("Device lookup failed: %v", err), Err: err}
}

func finishedEvent(t models.Track) Event {
	return Event{Kind: Finished, Track: t, Message: fmt.Sprintf("Finished: %s", t)}
}

func stoppedEvent(err error) Event {
	if err != nil {
		return Event{Kind: Stopped, Message: fmt.Sprintf("Stopped: %v", err), Err: err}
	}
	return Event{Kind: Stopped, Message: "Stopped"}
}
