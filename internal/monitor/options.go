package monitor

import (
	"time"

	"github.com/desertthunder/qlink/internal/shared"
)

// Options tunes the monitor's waits and retry bounds.
type Options struct {
	CompletionInterval  time.Duration // poll cadence while a matched trigger is still playing
	NoSessionBackoff    time.Duration // wait after an empty now-playing response
	ServiceErrorBackoff time.Duration // wait after a 502/503 or transport failure
	RateLimitWait       time.Duration // wait after a 429
	NoDeviceWait        time.Duration // wait after finding no active device
	MaxRateLimitRetries int           // device queries retried after a 429
	ExitOnDeviceError   bool          // treat an unexpected device query status as fatal
	Reverse             bool          // a playing target enqueues its trigger
}

// DefaultOptions returns the waits the service tolerates in practice.
func DefaultOptions() Options {
	return Options{
		CompletionInterval:  10 * time.Second,
		NoSessionBackoff:    10 * time.Second,
		ServiceErrorBackoff: 30 * time.Second,
		RateLimitWait:       20 * time.Second,
		NoDeviceWait:        10 * time.Second,
		MaxRateLimitRetries: 3,
	}
}

// OptionsFromConfig builds Options from the [monitor] config section, keeping defaults for unset values.
func OptionsFromConfig(cfg shared.MonitorConfig) Options {
	d := DefaultOptions()

	opts := Options{
		CompletionInterval:  shared.Seconds(cfg.CompletionIntervalSeconds, d.CompletionInterval),
		NoSessionBackoff:    shared.Seconds(cfg.NoSessionBackoffSeconds, d.NoSessionBackoff),
		ServiceErrorBackoff: shared.Seconds(cfg.ServiceErrorBackoffSeconds, d.ServiceErrorBackoff),
		RateLimitWait:       shared.Seconds(cfg.RateLimitWaitSeconds, d.RateLimitWait),
		NoDeviceWait:        shared.Seconds(cfg.NoDeviceWaitSeconds, d.NoDeviceWait),
		MaxRateLimitRetries: cfg.MaxRateLimitRetries,
		ExitOnDeviceError:   cfg.ExitOnDeviceError,
	}
	if opts.MaxRateLimitRetries <= 0 {
		opts.MaxRateLimitRetries = d.MaxRateLimitRetries
	}
	return opts
}
