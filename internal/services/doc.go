// Package services defines the [Catalog] interface for the streaming catalog and implements it for Spotify.
//
// # Catalog Interface
//
// The reconciliation engine only talks to [Catalog], so tests swap in a mock and a different provider could be added
// without touching the engine.
//
// # Spotify Implementation
//
// [SpotifyService] authenticates with an OAuth2 refresh token taken from the credential bundle. Every issued access
// token is handed to the refresh callback so the bundle on disk stays current.
//
// Requests are throttled by a [rate.Limiter], bounded by an explicit client timeout, and retried with exponential
// backoff on 429 (honoring Retry-After) and 5xx responses.
//
// Playlist writes are chunked ([DefaultBatchSize] per call, never more than [MaxBatchSize]). A write that fails
// partway returns a [*BatchError] naming the identifiers that were not written.
//
// # Error Handling
//
// Non-success responses become a [*ProviderError], which matches these sentinels with errors.Is:
//   - [shared.ErrAPIRequest] : any non-2xx response
//   - [shared.ErrTokenExpired] : 401, reauthorization needed
//   - [shared.ErrPlaylistNotFound] : 404
//
// Token refresh failures wrap [shared.ErrRefreshFailed] and are never retried.
package services
