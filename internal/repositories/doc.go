// Package repositories implements SQLite persistence for the sync journal and the resolution cache.
//
// Key Implementations:
//   - [SyncRunRepository] : one row per program per run, queried by `radiosync history`
//   - [ResolutionRepository] : raw track key to catalog URI cache consulted by the resolver
//
// Both are optional: the engine runs without a database and simply records nothing.
package repositories
