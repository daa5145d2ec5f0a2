package main

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/desertthunder/qlink/internal/monitor"
	"github.com/desertthunder/qlink/internal/server"
	"github.com/desertthunder/qlink/internal/services"
	"github.com/desertthunder/qlink/internal/shared"
)

const authorizeTimeout = 5 * time.Minute

// spotifyService returns the injected service or builds one with the configured timeout and rate limit.
func (r *Runner) spotifyService() *services.SpotifyService {
	if r.spotify == nil {
		cfg := r.config.Monitor
		timeout := shared.Seconds(cfg.RequestTimeoutSeconds, 15*time.Second)
		r.spotify = services.NewSpotifyService(services.NewSpotifyAPIClient(timeout, cfg.RequestsPerSecond))
	}
	return r.spotify
}

func (r *Runner) oauthConfig() (*oauth2.Config, error) {
	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" {
		return nil, fmt.Errorf("%w: Spotify client_id must be set in %s", shared.ErrMissingCredentials, r.configFile())
	}
	return services.NewOAuthConfig(creds.ClientID, creds.ClientSecret, creds.RedirectURI), nil
}

// credentialSupplier returns the injected supplier or an [services.OAuthSupplier] seeded with the stored token.
func (r *Runner) credentialSupplier() (monitor.CredentialSupplier, error) {
	if r.supplier != nil {
		return r.supplier, nil
	}

	config, err := r.oauthConfig()
	if err != nil {
		return nil, err
	}

	token := r.config.Credentials.Spotify.Token()
	r.supplier = services.NewOAuthSupplier(config, token, r.authorizer(), r.saveTokens, r.logger)
	return r.supplier, nil
}

// authorizer runs the browser flow against the local callback server.
func (r *Runner) authorizer() services.Authorizer {
	if r.authorize != nil {
		return r.authorize
	}
	return func(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
		r.writePlain("Opening your browser to authorize qlink with Spotify...\n")
		return server.Authorize(ctx, config, r.callbackAddr(), shared.OpenBrowser, authorizeTimeout, r.logger)
	}
}

func (r *Runner) callbackAddr() string {
	host := r.config.Server.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := r.config.Server.Port
	if port == 0 {
		port = 8080
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// saveTokens stores token in the config and writes it back to the config file, if there is one.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("%w: config is nil", shared.ErrMissingConfig)
	}

	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}

	if r.configPath == "" {
		return nil
	}

	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	r.logger.Debug("tokens saved", "path", r.configPath)
	return nil
}

func (r *Runner) configFile() string {
	if r.configPath == "" {
		return "config.toml"
	}
	return r.configPath
}
