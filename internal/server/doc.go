// Package server runs the short-lived local HTTP server that completes Spotify's OAuth authorization code flow.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [BasicRouter] registers method-qualified patterns on an [http.ServeMux]; [Logging] is the one middleware.
//
// # OAuth Callback Handler
//
// [OAuthHandler] validates the state parameter (CSRF protection), exchanges the authorization code for tokens,
// and sends the result through a channel. It only processes one callback to prevent replay attacks.
// With a PKCE verifier, the challenge goes into the authorization URL and the verifier into the exchange.
//
// # Flow
//
// [Authorize] listens on the configured host and port, opens the authorization URL, waits for the callback
// and shuts the server down. `qlink auth login` calls it directly; the monitor reaches it through
// services.OAuthSupplier when a refresh token is rejected.
package server
