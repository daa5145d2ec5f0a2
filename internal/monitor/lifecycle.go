package monitor

import (
	"sync"
	"time"

	"github.com/desertthunder/qlink/internal/models"
)

const (
	// CredentialLifetime is how long Spotify honors an access token.
	CredentialLifetime = 60 * time.Minute
	// RefreshAfter is the age at which a credential is replaced regardless of what is playing.
	RefreshAfter = 58 * time.Minute
)

// Lifecycle tracks the current credential and when it was issued.
//
// It only answers whether a refresh is due; the monitor performs the refresh and reports it with [Lifecycle.MarkIssued].
type Lifecycle struct {
	mu   sync.RWMutex
	cred models.Credential
}

// NewLifecycle returns a Lifecycle with no credential, which is always expiring.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{}
}

// Expiring reports whether the credential must be replaced at now.
//
// A credential is expiring once it is [RefreshAfter] old, or when a lookahead (the remaining time of the playing track)
// would carry it past [CredentialLifetime].
func (l *Lifecycle) Expiring(now time.Time, lookahead time.Duration) bool {
	cred := l.Credential()
	if !cred.Valid() || cred.IssuedAt.IsZero() {
		return true
	}

	age := now.Sub(cred.IssuedAt)
	if age >= RefreshAfter {
		return true
	}
	return lookahead > 0 && age+lookahead >= CredentialLifetime
}

// MarkIssued replaces the credential, stamping it as issued at now.
func (l *Lifecycle) MarkIssued(cred models.Credential, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cred.IssuedAt = now
	l.cred = cred
}

// Credential returns the current credential.
func (l *Lifecycle) Credential() models.Credential {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cred
}
