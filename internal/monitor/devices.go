package monitor

import (
	"context"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/qlink/internal/models"
	"github.com/desertthunder/qlink/internal/services"
)

// DeviceResolver finds the device playback is happening on.
//
// It makes one request per call; retries for [models.DeviceUnauthorized] and [models.DeviceRateLimited] are the monitor's.
type DeviceResolver struct {
	player services.Player
	logger *log.Logger
}

// NewDeviceResolver creates a DeviceResolver.
func NewDeviceResolver(player services.Player, logger *log.Logger) *DeviceResolver {
	return &DeviceResolver{player: player, logger: orDiscard(logger)}
}

// ActiveDevice returns the first device flagged active.
func (r *DeviceResolver) ActiveDevice(ctx context.Context, cred models.Credential) models.DeviceQueryResult {
	resp, err := r.player.Devices(ctx, cred)
	if err != nil {
		r.logger.Warn("device query did not complete", "error", err)
		return models.DeviceQueryResult{Kind: models.DeviceUnreachable, Message: err.Error()}
	}

	switch resp.Kind {
	case services.ResponseEmpty:
		return models.DeviceQueryResult{Kind: models.NoActiveDevice}
	case services.ResponseErrorEnvelope:
		status := resp.Status()
		switch status {
		case http.StatusUnauthorized:
			return models.DeviceQueryResult{Kind: models.DeviceUnauthorized, Status: status}
		case http.StatusTooManyRequests:
			return models.DeviceQueryResult{Kind: models.DeviceRateLimited, Status: status}
		default:
			return models.DeviceQueryResult{Kind: models.DeviceOtherError, Status: status, Message: resp.Error.Message}
		}
	}

	var list services.DeviceList
	if err := resp.Decode(&list); err != nil {
		return models.DeviceQueryResult{Kind: models.DeviceOtherError, Status: resp.StatusCode, Message: err.Error()}
	}

	device, ok := list.Active()
	if !ok {
		r.logger.Debug("no active device", "devices", len(list.Devices))
		return models.DeviceQueryResult{Kind: models.NoActiveDevice}
	}
	return models.ActiveDeviceResult(device.ID)
}
