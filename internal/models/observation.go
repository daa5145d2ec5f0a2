package models

// ObservationKind classifies the result of asking the service what is playing.
type ObservationKind int

const (
	Playing ObservationKind = iota
	NoActiveSession
	TransientServiceError
	NotFound
	Unauthorized
)

func (k ObservationKind) String() string {
	switch k {
	case Playing:
		return "playing"
	case NoActiveSession:
		return "no_active_session"
	case TransientServiceError:
		return "transient_service_error"
	case NotFound:
		return "not_found"
	case Unauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// Observation is the tagged result of a single poll. Only [Playing] carries a Track.
type Observation struct {
	Kind    ObservationKind
	Track   Track
	Message string // service-provided message, when there was one
}

// PlayingObservation wraps t as a [Playing] observation.
func PlayingObservation(t Track) Observation {
	return Observation{Kind: Playing, Track: t}
}

// ErrorObservation builds a payload-free observation of kind k.
func ErrorObservation(k ObservationKind, message string) Observation {
	return Observation{Kind: k, Message: message}
}

// IsPlaying reports whether the observation carries a track.
func (o Observation) IsPlaying() bool {
	return o.Kind == Playing
}

// DeviceResultKind classifies the result of a device list query.
type DeviceResultKind int

const (
	ActiveDevice DeviceResultKind = iota
	NoActiveDevice
	DeviceUnauthorized
	DeviceRateLimited
	DeviceOtherError
	DeviceUnreachable
)

func (k DeviceResultKind) String() string {
	switch k {
	case ActiveDevice:
		return "active_device"
	case NoActiveDevice:
		return "no_active_device"
	case DeviceUnauthorized:
		return "unauthorized"
	case DeviceRateLimited:
		return "rate_limited"
	case DeviceOtherError:
		return "other_error"
	case DeviceUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// DeviceQueryResult is the tagged result of resolving the active device.
type DeviceQueryResult struct {
	Kind     DeviceResultKind
	DeviceID string // set for [ActiveDevice]
	Status   int    // HTTP status for error kinds
	Message  string // set for [DeviceOtherError] and [DeviceUnreachable]
}

// ActiveDeviceResult wraps id as an [ActiveDevice] result.
func ActiveDeviceResult(id string) DeviceQueryResult {
	return DeviceQueryResult{Kind: ActiveDevice, DeviceID: id}
}
