package services

import (
	"context"
	"fmt"

	"github.com/desertthunder/radiosync/internal/models"
	"github.com/desertthunder/radiosync/internal/shared"
)

// DefaultBatchSize is the number of track identifiers sent per playlist write call.
const DefaultBatchSize = 75

// MaxBatchSize is the provider's per-call item cap for playlist writes.
const MaxBatchSize = 100

// Catalog defines the operations the reconciliation engine needs from the streaming catalog.
type Catalog interface {
	// Search runs a free-text track query and returns provider-ranked candidates.
	Search(ctx context.Context, query string) ([]models.CatalogTrack, error)

	// PlaylistTracks returns every track URI in the playlist, in playlist order, across all pages.
	PlaylistTracks(ctx context.Context, playlistID string) ([]string, error)

	// AddTracks appends uris to the playlist in fixed-size chunks.
	AddTracks(ctx context.Context, playlistID string, uris []string) (BatchResult, error)

	// RemoveTracks removes every occurrence of uris from the playlist in fixed-size chunks.
	RemoveTracks(ctx context.Context, playlistID string, uris []string) (BatchResult, error)

	// UpdateDescription replaces the playlist description.
	UpdateDescription(ctx context.Context, playlistID, description string) error

	// UpdateDetails replaces the playlist name and description.
	UpdateDetails(ctx context.Context, playlistID, name, description string) error

	// FindPlaylist looks up an owner's playlist by exact name. Returns [shared.ErrPlaylistNotFound] when absent.
	FindPlaylist(ctx context.Context, owner, name string) (*models.Playlist, error)

	// GetOrCreatePlaylist returns the owner's playlist with the given name, creating it with description when absent.
	// The boolean reports whether the playlist was created by this call.
	GetOrCreatePlaylist(ctx context.Context, owner, name, description string) (*models.Playlist, bool, error)

	// ClearPlaylist removes every track from the playlist and returns how many distinct tracks were removed.
	ClearPlaylist(ctx context.Context, playlistID string) (int, error)
}

// BatchResult reports how a chunked write went.
type BatchResult struct {
	Chunks    int // Number of chunks the input was split into
	Completed int // Number of chunks written successfully
	Written   int // Number of identifiers in completed chunks
}

// BatchError is returned when a chunked write fails partway. Remaining holds the identifiers of the failed
// chunk and every chunk after it, so a caller can retry only those.
type BatchError struct {
	Op        string
	Completed int
	Remaining []string
	Err       error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%s: %d chunk(s) completed, %d track(s) not written: %v", e.Op, e.Completed, len(e.Remaining), e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// ProviderError is a non-success HTTP response from the catalog.
type ProviderError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("spotify API error: %s %s: status %d", e.Method, e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("spotify API error: %s %s: status %d: %s", e.Method, e.Endpoint, e.StatusCode, e.Body)
}

// Unwrap lets callers match provider failures with errors.Is against the shared sentinels.
func (e *ProviderError) Unwrap() []error {
	errs := []error{shared.ErrAPIRequest}
	if e.StatusCode == 401 {
		errs = append(errs, shared.ErrTokenExpired)
	}
	if e.StatusCode == 404 {
		errs = append(errs, shared.ErrPlaylistNotFound)
	}
	return errs
}

// Chunk splits ids into consecutive slices of at most size elements.
func Chunk(ids []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
