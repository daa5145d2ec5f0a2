package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/qlink/internal/models"
	"github.com/desertthunder/qlink/internal/monitor"
	"github.com/desertthunder/qlink/internal/shared"
)

// AuthLogin runs the authorization code flow and stores the resulting tokens.
//
// Starts a local HTTP server, opens the browser for user authorization, and exchanges the code for tokens.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	config, err := r.oauthConfig()
	if err != nil {
		return err
	}

	token, err := r.authorizer()(ctx, config)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	if err := r.saveTokens(token); err != nil {
		return err
	}

	r.logger.Info("authorization successful")
	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", r.configFile())
	r.writePlain("You can now use: qlink links add\n")
	return nil
}

// AuthStatus reports the stored token and, when one can be issued, the active device.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Spotify
	token := creds.Token()

	r.writePlainHeader("Spotify")
	if creds.ClientID == "" {
		r.writePlain("Client: ✗ client_id not set\n")
	} else {
		r.writePlain("Client: %s\n", creds.ClientID)
	}

	if token == nil || token.RefreshToken == "" {
		r.writePlain("Authentication: ✗ Not authenticated (run 'qlink auth login')\n")
		return nil
	}

	if token.Expiry.IsZero() {
		r.writePlain("Authentication: ✓ Refresh token stored\n")
	} else if token.Expiry.Before(r.clock.Now()) {
		r.writePlain("Authentication: ✓ Refresh token stored (access token expired %s)\n", humanize.Time(token.Expiry))
	} else {
		r.writePlain("Authentication: ✓ Access token expires %s\n", humanize.Time(token.Expiry))
	}

	supplier, err := r.credentialSupplier()
	if err != nil {
		return err
	}

	cred, err := supplier.Obtain(ctx)
	if err != nil {
		r.logger.Warn("could not issue a credential", "error", err)
		return r.writePlain("Device: ✗ could not issue a credential: %v\n", err)
	}

	res := monitor.NewDeviceResolver(r.spotifyService(), r.logger).ActiveDevice(ctx, cred)
	switch res.Kind {
	case models.ActiveDevice:
		return r.writePlain("Device: ✓ %s\n", res.DeviceID)
	case models.NoActiveDevice:
		return r.writePlain("Device: ✗ No active device\n")
	default:
		return r.writePlain("Device: ✗ %s (%d) %s\n", res.Kind, res.Status, res.Message)
	}
}
