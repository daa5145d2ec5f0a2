// Package services defines the [Player] interface for remote playback APIs and implements it for Spotify.
//
// # HTTP Layer
//
// [APIClient] performs bearer-authorized requests and returns an [APIResponse] whose [ResponseKind] is
// decided once, when the body is read:
//   - [ResponseEmpty] : no body (Spotify answers 204 when nothing is playing)
//   - [ResponsePayload] : a JSON document
//   - [ResponseErrorEnvelope] : {"error":{"status":...,"message":...}}, or any 4xx/5xx status
//
// Transport failures are the only errors returned; everything the service says comes back as a response.
// Requests are throttled by a [rate.Limiter] when requests_per_second is set.
//
// # Spotify Implementation
//
// [SpotifyService] holds no token. Each call takes the [models.Credential] to authorize with,
// so the monitor decides when a credential is replaced.
//
// # Credentials
//
// [OAuthSupplier] issues a new access token on every call to Obtain, redeeming the stored refresh token with
// [oauth2.Config.TokenSource] and falling back to an interactive [Authorizer] (the local callback server).
// Issued tokens are handed to a [TokenSaver] so the config file keeps the latest refresh token.
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrNotAuthenticated] : request attempted without a token
//   - [shared.ErrAPIRequest] : HTTP request failed or a payload could not be decoded
//   - [shared.ErrRefreshFailed] : the refresh token was rejected
//   - [shared.ErrAuthFailed] : the interactive flow failed
package services
