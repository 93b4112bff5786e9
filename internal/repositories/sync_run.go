package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/radiosync/internal/models"
	"github.com/desertthunder/radiosync/internal/shared"
)

const syncRunColumns = `
	id, program, playlist_id, episode_date, state, tracks, excluded, resolved,
	missed, added, removed, dry_run, error, started_at, finished_at
`

// SyncRunRepository journals reconciliation runs.
type SyncRunRepository struct {
	db *sql.DB
}

// NewSyncRunRepository creates a new SyncRunRepository with the given database connection
func NewSyncRunRepository(db *sql.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

// Create inserts run, generating its ID when unset.
func (r *SyncRunRepository) Create(ctx context.Context, run *models.SyncRun) error {
	if run.Program == "" {
		return fmt.Errorf("%w: sync run has no program", shared.ErrInvalidInput)
	}
	if run.ID == "" {
		run.ID = shared.GenerateID()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = run.StartedAt
	}

	query := `INSERT INTO sync_runs (` + syncRunColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.Program,
		run.PlaylistID,
		run.EpisodeDate,
		string(run.State),
		run.Tracks,
		run.Excluded,
		run.Resolved,
		run.Missed,
		run.Added,
		run.Removed,
		run.DryRun,
		run.Error,
		run.StartedAt.UTC(),
		run.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}
	return nil
}

// Record is [SyncRunRepository.Create] under the name the engine's recorder interface uses.
func (r *SyncRunRepository) Record(ctx context.Context, run *models.SyncRun) error {
	return r.Create(ctx, run)
}

// Get retrieves a run by ID.
func (r *SyncRunRepository) Get(ctx context.Context, id string) (*models.SyncRun, error) {
	query := `SELECT ` + syncRunColumns + ` FROM sync_runs WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// Latest returns the newest run for program.
func (r *SyncRunRepository) Latest(ctx context.Context, program string) (*models.SyncRun, error) {
	query := `SELECT ` + syncRunColumns + ` FROM sync_runs WHERE program = ? ORDER BY started_at DESC LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, program))
}

// List retrieves runs matching the given criteria, newest first.
//
// Supported criteria: "program" (string), "state" (string), "dry_run" (bool) and "limit" (int).
func (r *SyncRunRepository) List(ctx context.Context, criteria map[string]any) ([]*models.SyncRun, error) {
	query := `SELECT ` + syncRunColumns + ` FROM sync_runs WHERE 1 = 1`
	args := []any{}

	if program, ok := criteria["program"].(string); ok && program != "" {
		query += " AND program = ?"
		args = append(args, program)
	}

	if state, ok := criteria["state"].(string); ok && state != "" {
		query += " AND state = ?"
		args = append(args, state)
	}

	if dryRun, ok := criteria["dry_run"].(bool); ok {
		query += " AND dry_run = ?"
		args = append(args, dryRun)
	}

	query += " ORDER BY started_at DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.SyncRun
	for rows.Next() {
		run, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

func (r *SyncRunRepository) scanOne(row *sql.Row) (*models.SyncRun, error) {
	run, err := r.scanRow(row)
	if err != nil {
		return nil, notFound(err, "sync run")
	}
	return run, nil
}

func (r *SyncRunRepository) scanRow(s scanner) (*models.SyncRun, error) {
	var run models.SyncRun
	var state string
	err := s.Scan(
		&run.ID,
		&run.Program,
		&run.PlaylistID,
		&run.EpisodeDate,
		&state,
		&run.Tracks,
		&run.Excluded,
		&run.Resolved,
		&run.Missed,
		&run.Added,
		&run.Removed,
		&run.DryRun,
		&run.Error,
		&run.StartedAt,
		&run.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	run.State = models.SyncState(state)
	return &run, nil
}
