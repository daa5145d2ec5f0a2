package monitor

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/qlink/internal/models"
	"github.com/desertthunder/qlink/internal/services"
)

// PlaybackObserver asks the service what is playing and classifies the answer.
//
// The waits tied to each classification happen inside [PlaybackObserver.Observe]:
// callers can poll again as soon as it returns.
type PlaybackObserver struct {
	player services.Player
	clock  Clock
	opts   Options
	logger *log.Logger
}

// NewPlaybackObserver creates a PlaybackObserver.
func NewPlaybackObserver(player services.Player, clock Clock, opts Options, logger *log.Logger) *PlaybackObserver {
	if clock == nil {
		clock = SystemClock()
	}
	return &PlaybackObserver{player: player, clock: clock, opts: opts, logger: orDiscard(logger)}
}

// Observe polls the now-playing endpoint once with cred.
//
//   - empty response, or nothing with a track id: [models.NoActiveSession], after NoSessionBackoff
//   - 502/503 or a transport failure: [models.TransientServiceError], after ServiceErrorBackoff
//   - 429: [models.TransientServiceError], after RateLimitWait
//   - 404: [models.NotFound]
//   - 401: [models.Unauthorized]
//   - track payload: [models.Playing]
func (o *PlaybackObserver) Observe(ctx context.Context, cred models.Credential) models.Observation {
	obs, wait := o.classify(ctx, cred)
	if wait > 0 {
		o.logger.Debug("backing off", "kind", obs.Kind, "wait", wait)
		_ = o.clock.Sleep(ctx, wait)
	}
	return obs
}

func (o *PlaybackObserver) classify(ctx context.Context, cred models.Credential) (models.Observation, time.Duration) {
	resp, err := o.player.CurrentlyPlaying(ctx, cred)
	if err != nil {
		if ctx.Err() != nil {
			return models.ErrorObservation(models.TransientServiceError, err.Error()), 0
		}
		o.logger.Warn("now playing request failed", "error", err)
		return models.ErrorObservation(models.TransientServiceError, err.Error()), o.opts.ServiceErrorBackoff
	}

	switch resp.Kind {
	case services.ResponseEmpty:
		return models.ErrorObservation(models.NoActiveSession, ""), o.opts.NoSessionBackoff
	case services.ResponseErrorEnvelope:
		return o.classifyError(resp)
	}

	var playing services.CurrentlyPlaying
	if err := resp.Decode(&playing); err != nil {
		o.logger.Warn("unreadable now playing response", "error", err)
		return models.ErrorObservation(models.TransientServiceError, err.Error()), o.opts.ServiceErrorBackoff
	}

	track, ok := playing.Track()
	if !ok {
		return models.ErrorObservation(models.NoActiveSession, ""), o.opts.NoSessionBackoff
	}
	return models.PlayingObservation(track), 0
}

func (o *PlaybackObserver) classifyError(resp *services.APIResponse) (models.Observation, time.Duration) {
	msg := resp.Error.Message

	switch resp.Status() {
	case http.StatusUnauthorized:
		return models.ErrorObservation(models.Unauthorized, msg), 0
	case http.StatusNotFound:
		return models.ErrorObservation(models.NotFound, msg), 0
	case http.StatusTooManyRequests:
		return models.ErrorObservation(models.TransientServiceError, msg), o.opts.RateLimitWait
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return models.ErrorObservation(models.TransientServiceError, msg), o.opts.ServiceErrorBackoff
	default:
		o.logger.Warn("unexpected now playing status", "status", resp.Status(), "message", msg)
		return models.ErrorObservation(models.TransientServiceError, msg), o.opts.ServiceErrorBackoff
	}
}
