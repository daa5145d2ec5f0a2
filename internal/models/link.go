package models

import (
	"fmt"
	"time"
)

// Link associates a trigger track with the target track that is queued whenever the trigger plays.
//
// The trigger id is the lookup key; the target needs a URI since it is what gets enqueued.
type Link struct {
	id        string
	sequence  int
	trigger   Track
	target    Track
	createdAt time.Time
	updatedAt time.Time
}

// NewLink creates a Link from two observed tracks. Playback-only fields are dropped.
func NewLink(sequence int, trigger, target Track) *Link {
	now := time.Now()
	return &Link{
		sequence:  sequence,
		trigger:   identifying(trigger),
		target:    identifying(target),
		createdAt: now,
		updatedAt: now,
	}
}

func identifying(t Track) Track {
	artists := make([]string, len(t.Artists))
	copy(artists, t.Artists)
	return Track{ID: t.ID, Name: t.Name, Artists: artists, URI: t.URI}
}

func (l *Link) ID() string           { return l.id }
func (l *Link) Sequence() int        { return l.sequence }
func (l *Link) Trigger() Track       { return l.trigger }
func (l *Link) Target() Track        { return l.target }
func (l *Link) CreatedAt() time.Time { return l.createdAt }
func (l *Link) UpdatedAt() time.Time { return l.updatedAt }

func (l *Link) SetID(id string)          { l.id = id }
func (l *Link) SetSequence(sequence int) { l.sequence = sequence }
func (l *Link) SetCreatedAt(t time.Time) { l.createdAt = t }
func (l *Link) SetUpdatedAt(t time.Time) { l.updatedAt = t }
func (l *Link) SetTarget(target Track)   { l.target = identifying(target) }

// Reversed returns a copy of l with trigger and target swapped.
func (l *Link) Reversed() *Link {
	r := *l
	r.trigger, r.target = l.target, l.trigger
	return &r
}

// Validate checks the fields the monitor relies on.
func (l *Link) Validate() error {
	if l.trigger.ID == "" {
		return fmt.Errorf("trigger id is required")
	}
	if l.target.ID == "" {
		return fmt.Errorf("target id is required")
	}
	if l.target.URI == "" {
		return fmt.Errorf("target uri is required")
	}
	if l.trigger.ID == l.target.ID {
		return fmt.Errorf("a track cannot be linked to itself")
	}
	return nil
}

// String renders the link the way the CLI lists it.
func (l *Link) String() string {
	return fmt.Sprintf("%s linked to %s", l.trigger, l.target)
}

// Settings holds user preferences stored next to the links.
type Settings struct {
	// Reverse makes a playing target enqueue its trigger.
	Reverse   bool
	UpdatedAt time.Time
}
