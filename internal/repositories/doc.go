// Package repositories implements SQLite persistence for links and settings.
//
// Key Implementations:
//   - [LinkRepository] : link CRUD plus the trigger/target lookups of models.LinkStore
//   - [LinkCache] : LRU front for LinkRepository used by the monitor's poll loop
//   - [SettingsRepository] : the single row of user preferences
//
// Sequence numbers provide stable, human-readable ordering (link #3) independent of UUIDs.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
