// Package models defines the value types that flow through a radiosync run.
//
// Data flows in one direction:
//
//   - [Track] and [Episode] come from an episode source (JSON feed or page scrape)
//   - [CatalogTrack] candidates come back from catalog search and collapse to a track URI
//   - [Playlist] is the managed playlist whose description carries the sync marker
//
// Only the local journal is persisted by radiosync itself:
//   - [SyncRun] : one row per program per run, terminal [SyncState] and counts
//   - [ResolvedTrack] : resolution cache keyed by [Track.Key]
package models
