package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/radiosync/internal/models"
)

// ResolutionRepository caches raw track keys to catalog track URIs. It satisfies the resolver's cache interface.
type ResolutionRepository struct {
	db *sql.DB
}

// NewResolutionRepository creates a new ResolutionRepository with the given database connection
func NewResolutionRepository(db *sql.DB) *ResolutionRepository {
	return &ResolutionRepository{db: db}
}

// Lookup returns the cached URI for key. A missing key is ("", false, nil).
func (r *ResolutionRepository) Lookup(ctx context.Context, key string) (string, bool, error) {
	var uri string
	err := r.db.QueryRowContext(ctx, `SELECT uri FROM resolved_tracks WHERE track_key = ?`, key).Scan(&uri)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up resolution: %w", err)
	}
	return uri, true, nil
}

// Store upserts the resolution of key.
func (r *ResolutionRepository) Store(ctx context.Context, key, uri, query string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO resolved_tracks (track_key, uri, query, resolved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (track_key) DO UPDATE SET uri = excluded.uri, query = excluded.query, resolved_at = excluded.resolved_at
	`, key, uri, query, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to store resolution: %w", err)
	}
	return nil
}

// Get returns the full cache row for key.
func (r *ResolutionRepository) Get(ctx context.Context, key string) (*models.ResolvedTrack, error) {
	var rt models.ResolvedTrack
	err := r.db.QueryRowContext(ctx,
		`SELECT track_key, uri, query, resolved_at FROM resolved_tracks WHERE track_key = ?`, key,
	).Scan(&rt.Key, &rt.URI, &rt.Query, &rt.ResolvedAt)
	if err != nil {
		return nil, notFound(err, "resolution")
	}
	return &rt, nil
}

// Forget deletes the cached resolution for key, so the next sync searches again. An unknown key is [ErrNotFound].
func (r *ResolutionRepository) Forget(ctx context.Context, key string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM resolved_tracks WHERE track_key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete resolution: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: resolution %q", ErrNotFound, key)
	}
	return nil
}

// Count returns the number of cached resolutions.
func (r *ResolutionRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM resolved_tracks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count resolutions: %w", err)
	}
	return n, nil
}

// Clear deletes every cached resolution and returns how many were removed.
func (r *ResolutionRepository) Clear(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM resolved_tracks`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear resolutions: %w", err)
	}
	return result.RowsAffected()
}
