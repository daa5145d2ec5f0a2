package models

import (
	"fmt"
	"strings"
	"time"
)

// Track is a single item on the remote service.
//
// Only ID takes part in equality; the other fields are display or request payload.
// Remaining is only meaningful for the track that is currently playing.
type Track struct {
	ID        string
	Name      string
	Artists   []string
	URI       string
	Remaining time.Duration
}

// Artist joins the track's artists for display.
func (t Track) Artist() string {
	return strings.Join(t.Artists, ", ")
}

// SameAs reports whether t and other identify the same track.
func (t Track) SameAs(other Track) bool {
	return t.ID != "" && t.ID == other.ID
}

// String renders the track as "name by artist".
func (t Track) String() string {
	if artist := t.Artist(); artist != "" {
		return fmt.Sprintf("%s by %s", t.Name, artist)
	}
	return t.Name
}

// Credential is a bearer token and the time it was issued.
//
// Credentials are never mutated, a refresh replaces the whole value.
type Credential struct {
	AccessToken string
	IssuedAt    time.Time
}

// Valid reports whether the credential carries a token.
func (c Credential) Valid() bool {
	return c.AccessToken != ""
}
