// Package tasks reconciles radio program playlists with their most recently aired episodes.
//
// # Core Operations
//
// The [Engine] exposes the playlist operations driven by the CLI:
//
//  1. [Engine.Sync] : Reconcile one program
//     - Reads the sync marker from the playlist description and skips when it is current
//     - Walks back day by day to the newest aired episode after the marker
//     - Resolves each track against the catalog, honoring the program's exclusion pattern
//     - Removes stale tracks, adds new ones, then rewrites the description marker
//
//  2. [Engine.SyncAll] : Reconcile many programs sequentially
//     - A failing program never stops its siblings
//     - Every result is journaled through the configured [RunRecorder]
//
//  3. [Engine.Aggregate] : Merge program playlists into one combined playlist
//
//  4. [Engine.Clear] : Remove every track from a playlist
//
// # Progress Reporting
//
// All operations report through an optional channel of [ProgressUpdate]. Sends use select with default so a slow or
// absent reader never blocks a sync.
//
// # Marker Commit
//
// The description marker is the only sync state. It is written after the playlist writes succeed and only when the
// diff changed something, so a failed or partial run leaves the marker where it was and the next run retries the
// same episode.
package tasks
