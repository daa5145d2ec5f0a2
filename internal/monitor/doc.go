// Package monitor watches what is playing and queues the targets of matching links.
//
// # Loop
//
// [Monitor.Run] drives a single polling loop:
//
//	refresh if due -> observe -> classify -> look up link -> resolve device -> enqueue -> await completion
//
// An unmatched track is polled again immediately. A matched trigger is queued once and the loop then polls
// every CompletionInterval until a different track (or nothing) is playing.
//
// # Credentials
//
// [Lifecycle] holds the current [models.Credential]. It is replaced proactively at 58 minutes and before
// an injection whose trigger would outlast the 60 minute token lifetime. Any 401 forces a replacement.
// A [CredentialSupplier] that cannot produce a credential stops the loop.
//
// # Backoffs
//
// [PlaybackObserver] owns the waits tied to a classification (10s with nothing playing, 30s on 502/503).
// Device queries are retried by the monitor: one refresh after a 401, and up to MaxRateLimitRetries 20s waits after a 429.
// All waits go through a [Clock], so tests substitute a fake and assert durations.
//
// # Events
//
// An optional channel receives [Event] values. Sends never block; events are dropped if the reader falls behind.
package monitor
