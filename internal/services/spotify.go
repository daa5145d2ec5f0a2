// Spotify Web API player endpoints.
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/desertthunder/qlink/internal/models"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// Scopes required to read playback state and modify the queue.
var spotifyScopes = []string{
	"user-read-currently-playing",
	"user-read-playback-state",
	"user-modify-playback-state",
}

// SpotifyArtist is the simplified artist object embedded in tracks.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyTrack is a track object as returned inside playback state.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	DurationMS int             `json:"duration_ms"`
	ProgressMS *int            `json:"progress_ms,omitempty"`
	URI        string          `json:"uri"`
}

// CurrentlyPlaying is the body of GET /me/player/currently-playing.
type CurrentlyPlaying struct {
	Timestamp            int64         `json:"timestamp"`
	ProgressMS           *int          `json:"progress_ms"`
	IsPlaying            bool          `json:"is_playing"`
	CurrentlyPlayingType string        `json:"currently_playing_type"`
	Item                 *SpotifyTrack `json:"item"`
}

// Track converts the playing item to a [models.Track] with its remaining duration.
//
// Returns false when nothing with a track id is playing (ads, podcasts between episodes, a paused empty queue).
func (c CurrentlyPlaying) Track() (models.Track, bool) {
	if c.Item == nil || c.Item.ID == "" {
		return models.Track{}, false
	}

	progress := 0
	switch {
	case c.ProgressMS != nil:
		progress = *c.ProgressMS
	case c.Item.ProgressMS != nil:
		progress = *c.Item.ProgressMS
	}

	remaining := max(c.Item.DurationMS-progress, 0)

	artists := make([]string, 0, len(c.Item.Artists))
	for _, a := range c.Item.Artists {
		artists = append(artists, a.Name)
	}

	return models.Track{
		ID:        c.Item.ID,
		Name:      c.Item.Name,
		Artists:   artists,
		URI:       c.Item.URI,
		Remaining: time.Duration(remaining) * time.Millisecond,
	}, true
}

// Device is a Spotify Connect device.
type Device struct {
	ID               string `json:"id"`
	IsActive         bool   `json:"is_active"`
	IsPrivateSession bool   `json:"is_private_session"`
	IsRestricted     bool   `json:"is_restricted"`
	Name             string `json:"name"`
	Type             string `json:"type"`
	VolumePercent    *int   `json:"volume_percent"`
}

// DeviceList is the body of GET /me/player/devices.
type DeviceList struct {
	Devices []Device `json:"devices"`
}

// Active returns the first device flagged active.
func (d DeviceList) Active() (Device, bool) {
	for _, device := range d.Devices {
		if device.IsActive {
			return device, true
		}
	}
	return Device{}, false
}

// SpotifyService implements [Player] against the Spotify Web API.
//
// It holds no token; each call takes the credential to authorize with.
type SpotifyService struct {
	api *APIClient
}

// NewSpotifyService creates a SpotifyService using api. A nil api gets a default client against api.spotify.com.
func NewSpotifyService(api *APIClient) *SpotifyService {
	if api == nil {
		api = NewAPIClient(spotifyBaseURL, nil, 15*time.Second, 0)
	}
	return &SpotifyService{api: api}
}

// NewSpotifyAPIClient creates an [APIClient] for the Spotify Web API.
func NewSpotifyAPIClient(timeout time.Duration, requestsPerSecond float64) *APIClient {
	return NewAPIClient(spotifyBaseURL, nil, timeout, requestsPerSecond)
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// CurrentlyPlaying queries the track playing on the user's account.
func (s *SpotifyService) CurrentlyPlaying(ctx context.Context, cred models.Credential) (*APIResponse, error) {
	return s.api.Get(ctx, cred.AccessToken, "/me/player/currently-playing", nil)
}

// Devices lists the user's available Connect devices.
func (s *SpotifyService) Devices(ctx context.Context, cred models.Credential) (*APIResponse, error) {
	return s.api.Get(ctx, cred.AccessToken, "/me/player/devices", nil)
}

// AddToQueue appends the item at uri to the playback queue of deviceID.
func (s *SpotifyService) AddToQueue(ctx context.Context, cred models.Credential, deviceID, uri string) (*APIResponse, error) {
	query := url.Values{}
	query.Set("uri", uri)
	if deviceID != "" {
		query.Set("device_id", deviceID)
	}
	return s.api.Do(ctx, cred.AccessToken, http.MethodPost, "/me/player/queue", query, nil)
}

// NewOAuthConfig builds the [oauth2.Config] for Spotify's authorization code flow.
//
// Without a client secret the config is meant for PKCE; the client id is then sent in the request body.
func NewOAuthConfig(clientID, clientSecret, redirectURI string) *oauth2.Config {
	if redirectURI == "" {
		redirectURI = "http://127.0.0.1:8080/callback"
	}

	endpoint := oauth2.Endpoint{
		AuthURL:   spotifyAuthURL,
		TokenURL:  spotifyTokenURL,
		AuthStyle: oauth2.AuthStyleInHeader,
	}
	if clientSecret == "" {
		endpoint.AuthStyle = oauth2.AuthStyleInParams
	}

	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       spotifyScopes,
		Endpoint:     endpoint,
	}
}
