package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/radiosync/internal/services"
	"github.com/desertthunder/radiosync/internal/shared"
)

// DefaultAggregateDescription is used when the target has no description of its own.
const DefaultAggregateDescription = "Aggregation of tracks from various public radio programs. DJs > bots."

// AggregateTarget is the combined playlist that program playlists are merged into.
type AggregateTarget struct {
	ID          string // Existing playlist ID; when empty, Name is looked up or created
	Name        string // Replaces the playlist name when set
	Description string // Prefix of the rendered description
}

// AggregateResult reports a merge of program playlists into the target.
type AggregateResult struct {
	PlaylistID  string         `json:"playlist_id"`
	Sources     map[string]int `json:"sources"` // Tracks read per program
	Missing     []string       `json:"missing,omitempty"`
	Total       int            `json:"total"`
	Shared      int            `json:"shared"` // Already in the target
	Added       int            `json:"added"`
	Removed     int            `json:"removed"`
	Description string         `json:"description,omitempty"`
	DryRun      bool           `json:"dry_run"`
}

// Aggregate replaces the target's contents with the union of the programs' playlists using the same diff rules as
// [Engine.Sync]. Programs without a playlist are skipped. The description is only rewritten when tracks changed.
func (e *Engine) Aggregate(
	ctx context.Context, programs []shared.ProgramConfig, target AggregateTarget, opts SyncOpts, progress chan<- ProgressUpdate,
) (*AggregateResult, error) {
	logger := e.logger.With("op", "aggregate")
	result := &AggregateResult{Sources: make(map[string]int, len(programs)), DryRun: opts.DryRun}

	targetID, err := e.aggregateTarget(ctx, target, opts.DryRun)
	if err != nil {
		return nil, err
	}
	result.PlaylistID = targetID

	var union []string
	for i, program := range programs {
		pl, err := e.catalog.FindPlaylist(ctx, e.owner, program.Name)
		if isMissing(err) {
			logger.Warn("program has no playlist", "program", program.Slug, "name", program.Name)
			result.Missing = append(result.Missing, program.Slug)
			continue
		}
		if err != nil {
			return result, err
		}

		tracks, err := e.catalog.PlaylistTracks(ctx, pl.ID)
		if err != nil {
			return result, err
		}
		result.Sources[program.Slug] = len(tracks)
		union = append(union, tracks...)
		e.sendProgress(progress, aggregateUpdate(i+1, len(programs), pl.Name, len(tracks)))
	}
	result.Total = len(union)

	var current []string
	if targetID != "" {
		if current, err = e.catalog.PlaylistTracks(ctx, targetID); err != nil {
			return result, err
		}
	}

	diff := ComputeDiff(current, union)
	result.Added, result.Removed = len(diff.ToAdd), len(diff.ToRemove)
	result.Shared = countShared(current, union)

	description := target.Description
	if description == "" {
		description = DefaultAggregateDescription
	}
	result.Description = fmt.Sprintf("%s Last updated %s.", strings.TrimSpace(description), e.now().Format(shared.DateLayout))

	logger.Info("aggregate diff", "total", result.Total, "shared", result.Shared, "add", result.Added, "remove", result.Removed)
	if opts.DryRun || diff.Empty() {
		return result, nil
	}

	res := &SyncResult{}
	if err := e.apply(ctx, "", targetID, diff, res, progress); err != nil {
		result.Added, result.Removed = res.Added, res.Removed
		return result, err
	}

	if target.Name != "" {
		err = e.catalog.UpdateDetails(ctx, targetID, target.Name, result.Description)
	} else {
		err = e.catalog.UpdateDescription(ctx, targetID, result.Description)
	}
	return result, err
}

// aggregateTarget resolves the target playlist ID, creating a named target unless this is a dry run.
func (e *Engine) aggregateTarget(ctx context.Context, target AggregateTarget, dryRun bool) (string, error) {
	if target.ID != "" {
		return target.ID, nil
	}
	if target.Name == "" {
		return "", fmt.Errorf("%w: aggregate target needs an id or a name", shared.ErrMissingArgument)
	}

	if dryRun {
		pl, err := e.catalog.FindPlaylist(ctx, e.owner, target.Name)
		if isMissing(err) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return pl.ID, nil
	}

	pl, _, err := e.catalog.GetOrCreatePlaylist(ctx, e.owner, target.Name, target.Description)
	if err != nil {
		return "", err
	}
	return pl.ID, nil
}

// ClearResult reports a playlist clear.
type ClearResult struct {
	PlaylistID string `json:"playlist_id"`
	Tracks     int    `json:"tracks"`
	Removed    int    `json:"removed"`
	DryRun     bool   `json:"dry_run"`
}

// Clear removes every track from the playlist. Dry runs only count.
func (e *Engine) Clear(ctx context.Context, playlistID string, dryRun bool, progress chan<- ProgressUpdate) (*ClearResult, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	tracks, err := e.catalog.PlaylistTracks(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	result := &ClearResult{PlaylistID: playlistID, Tracks: len(tracks), DryRun: dryRun}
	e.sendProgress(progress, clearUpdate(playlistID, len(tracks)))
	if dryRun || len(tracks) == 0 {
		return result, nil
	}

	removed, err := e.catalog.ClearPlaylist(ctx, playlistID)
	result.Removed = removed
	if err != nil {
		return result, err
	}
	e.logger.Info("cleared playlist", "playlist", playlistID, "removed", removed)
	return result, nil
}

// isMissing reports a lookup that found no playlist, as opposed to a provider failure.
func isMissing(err error) bool {
	var perr *services.ProviderError
	return errors.Is(err, shared.ErrPlaylistNotFound) && !errors.As(err, &perr)
}

func countShared(current, union []string) int {
	in := make(map[string]struct{}, len(union))
	for _, uri := range union {
		in[uri] = struct{}{}
	}
	seen := make(map[string]struct{})
	for _, uri := range current {
		if _, ok := in[uri]; ok {
			seen[uri] = struct{}{}
		}
	}
	return len(seen)
}
