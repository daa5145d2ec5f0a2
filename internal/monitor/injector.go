package monitor

import (
	"context"
	"fmt"

	"github.com/desertthunder/qlink/internal/models"
	"github.com/desertthunder/qlink/internal/services"
	"github.com/desertthunder/qlink/internal/shared"
)

// QueueInjector appends tracks to a device's playback queue.
type QueueInjector struct {
	player services.Player
}

// NewQueueInjector creates a QueueInjector.
func NewQueueInjector(player services.Player) *QueueInjector {
	return &QueueInjector{player: player}
}

// Enqueue adds track to the queue of deviceID.
// Any error envelope is a failure carrying the service's message.
func (q *QueueInjector) Enqueue(ctx context.Context, cred models.Credential, deviceID string, track models.Track) error {
	if track.URI == "" {
		return fmt.Errorf("%w: %s has no uri", shared.ErrEnqueueFailed, track.ID)
	}

	resp, err := q.player.AddToQueue(ctx, cred, deviceID, track.URI)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrEnqueueFailed, err)
	}

	if resp.Kind == services.ResponseErrorEnvelope {
		return fmt.Errorf("%w: %s", shared.ErrEnqueueFailed, resp.Error.Message)
	}
	return nil
}
