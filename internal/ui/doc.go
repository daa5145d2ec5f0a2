// Package ui implements the watch dashboard using bubbletea's Elm architecture.
//
// The dashboard has two views:
//  1. [EventsView] : the track that is playing and a scrolling log of monitor events
//  2. [LinksView] : a filterable list of stored links
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Monitor events arrive on a channel that the model reads one message at a time, so the monitor never waits on rendering.
//
// Keyboard navigation uses vim-style bindings (j/k, tab, c, ?, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
