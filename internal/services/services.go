// package services defines the Player interface for the remote playback API
package services

import (
	"context"

	"github.com/desertthunder/qlink/internal/models"
)

// Player is the playback surface of a music streaming provider.
//
// Every call takes the credential explicitly and returns the classified raw response;
// interpreting statuses is up to the caller.
type Player interface {
	// CurrentlyPlaying returns the now-playing state.
	CurrentlyPlaying(ctx context.Context, cred models.Credential) (*APIResponse, error)

	// Devices returns the list of playback devices.
	Devices(ctx context.Context, cred models.Credential) (*APIResponse, error)

	// AddToQueue appends uri to the queue of deviceID.
	AddToQueue(ctx context.Context, cred models.Credential, deviceID, uri string) (*APIResponse, error)

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}
