package tasks

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/radiosync/internal/marker"
	"github.com/desertthunder/radiosync/internal/models"
	"github.com/desertthunder/radiosync/internal/resolver"
	"github.com/desertthunder/radiosync/internal/services"
	"github.com/desertthunder/radiosync/internal/shared"
	"github.com/desertthunder/radiosync/internal/sources"
)

// DefaultLookback is the number of days walked back when no cutoff is configured.
const DefaultLookback = 30

// SourceFactory builds the episode source for a program.
type SourceFactory func(program shared.ProgramConfig) (sources.EpisodeSource, error)

// RunRecorder journals finished program runs.
type RunRecorder interface {
	Record(ctx context.Context, run *models.SyncRun) error
}

// EngineOpts configures an [Engine]. Catalog and Owner are required.
type EngineOpts struct {
	Catalog  services.Catalog
	Sources  SourceFactory     // Defaults to [sources.New] with a 30s client
	Strategy resolver.Strategy // Defaults to [resolver.FirstMatch]
	Cache    resolver.Cache    // Optional resolution cache
	Recorder RunRecorder       // Optional run journal
	Logger   *log.Logger
	Owner    string           // Catalog user that owns the synced playlists
	Cutoff   time.Time        // Oldest broadcast day ever considered
	Now      func() time.Time // Clock, defaults to time.Now
}

// Engine reconciles program playlists with their latest aired episodes.
type Engine struct {
	catalog  services.Catalog
	sources  SourceFactory
	resolver *resolver.Resolver
	recorder RunRecorder
	logger   *log.Logger
	owner    string
	cutoff   time.Time
	now      func() time.Time
}

// SyncOpts controls a single sync run.
type SyncOpts struct {
	DryRun bool // Compute everything, write nothing
	Force  bool // Ignore the stored marker
}

// SyncResult reports how one program's reconciliation ended. Counts are filled as far as the run reached.
type SyncResult struct {
	Program      string           `json:"program"`
	PlaylistID   string           `json:"playlist_id,omitempty"`
	PlaylistName string           `json:"playlist_name"`
	Created      bool             `json:"created,omitempty"`
	State        models.SyncState `json:"state"`
	Reason       string           `json:"reason,omitempty"`
	Marker       string           `json:"marker,omitempty"`
	EpisodeDate  string           `json:"episode_date,omitempty"`
	Tracks       int              `json:"tracks"`
	Excluded     int              `json:"excluded"`
	Resolved     int              `json:"resolved"`
	Missed       int              `json:"missed"`
	Misses       []models.Track   `json:"misses,omitempty"`
	Added        int              `json:"added"`
	Removed      int              `json:"removed"`
	Description  string           `json:"description,omitempty"`
	DryRun       bool             `json:"dry_run"`
	Error        string           `json:"error,omitempty"`
	StartedAt    time.Time        `json:"started_at"`
	FinishedAt   time.Time        `json:"finished_at"`

	Err error `json:"-"`
}

// Run converts the result into its journal record.
func (r *SyncResult) Run() *models.SyncRun {
	return &models.SyncRun{
		Program:     r.Program,
		PlaylistID:  r.PlaylistID,
		EpisodeDate: r.EpisodeDate,
		State:       r.State,
		Tracks:      r.Tracks,
		Excluded:    r.Excluded,
		Resolved:    r.Resolved,
		Missed:      r.Missed,
		Added:       r.Added,
		Removed:     r.Removed,
		DryRun:      r.DryRun,
		Error:       r.Error,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
	}
}

// NewEngine creates an engine over the given catalog.
func NewEngine(opts EngineOpts) (*Engine, error) {
	if opts.Catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}
	if opts.Owner == "" {
		return nil, fmt.Errorf("%w: catalog user id is required", shared.ErrMissingConfig)
	}

	factory := opts.Sources
	if factory == nil {
		client := &http.Client{Timeout: 30 * time.Second}
		factory = func(p shared.ProgramConfig) (sources.EpisodeSource, error) {
			return sources.New(p, client)
		}
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	var cutoff time.Time
	if !opts.Cutoff.IsZero() {
		cutoff = models.DateOf(opts.Cutoff)
	}

	logger := shared.WithLogger(opts.Logger, "component", "engine")
	return &Engine{
		catalog: opts.Catalog,
		sources: factory,
		resolver: resolver.New(opts.Catalog, resolver.Opts{
			Strategy: opts.Strategy,
			Cache:    opts.Cache,
			Logger:   opts.Logger,
		}),
		recorder: opts.Recorder,
		logger:   logger,
		owner:    opts.Owner,
		cutoff:   cutoff,
		now:      now,
	}, nil
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Sync reconciles one program's playlist with its newest aired episode.
//
// The run moves through CHECK_FRESHNESS, FETCH, RESOLVE, DIFF, APPLY and COMMIT_MARKER and ends Skipped, Synced or
// Failed. The marker is only rewritten after every playlist write succeeded, so a run that dies partway is retried in
// full next time. The returned error is non-nil exactly when the state is Failed.
func (e *Engine) Sync(ctx context.Context, program shared.ProgramConfig, opts SyncOpts, progress chan<- ProgressUpdate) (*SyncResult, error) {
	logger := e.logger.With("program", program.Slug)
	res := &SyncResult{
		Program:      program.Slug,
		PlaylistName: program.Name,
		DryRun:       opts.DryRun,
		StartedAt:    e.now(),
	}
	today := models.DateOf(res.StartedAt)

	fail := func(err error) (*SyncResult, error) {
		res.State = models.StateFailed
		res.Err = err
		res.Error = err.Error()
		res.FinishedAt = e.now()
		logger.Error("sync failed", "error", err)
		return res, err
	}
	skip := func(reason string) (*SyncResult, error) {
		res.State = models.StateSkipped
		res.Reason = reason
		res.FinishedAt = e.now()
		logger.Info("skipped", "reason", reason)
		return res, nil
	}

	// CHECK_FRESHNESS
	e.sendProgress(progress, checkFreshnessUpdate(program.Slug, program.Name))
	playlist, created, err := e.playlist(ctx, program, opts.DryRun)
	if err != nil {
		return fail(err)
	}
	res.Created = created
	var description string
	if playlist != nil {
		res.PlaylistID = playlist.ID
		description = playlist.Description
	}

	markerDate, hasMarker := marker.Extract(description)
	if hasMarker {
		res.Marker = markerDate.Format(shared.DateLayout)
	}
	if hasMarker && !opts.Force && !markerDate.Before(today) {
		return skip(fmt.Sprintf("up to date, last episode %s", res.Marker))
	}

	// FETCH
	src, err := e.sources(program)
	if err != nil {
		return fail(err)
	}

	floor, err := e.floor(program, today, markerDate, hasMarker && !opts.Force)
	if err != nil {
		return fail(err)
	}

	e.sendProgress(progress, fetchEpisodeUpdate(program.Slug, src.Name()))
	logger.Debug("fetching episode", "source", src.Name(), "from", today.Format(shared.DateLayout), "to", floor.Format(shared.DateLayout))
	episode, err := sources.Fetch(ctx, src, today, floor)
	if err != nil {
		return fail(err)
	}
	if episode.Empty() {
		return skip(fmt.Sprintf("no episode aired since %s", floor.Format(shared.DateLayout)))
	}

	episodeDate := models.DateOf(episode.Date)
	res.EpisodeDate = episodeDate.Format(shared.DateLayout)
	if hasMarker && !opts.Force && !episodeDate.After(markerDate) {
		return skip(fmt.Sprintf("episode %s already synced", res.EpisodeDate))
	}

	skipRe, err := program.SkipRegexp()
	if err != nil {
		return fail(err)
	}
	tracks, excluded := resolver.NewExclusion(skipRe).Filter(episode.Tracks)
	res.Tracks = len(episode.Tracks)
	res.Excluded = excluded
	e.sendProgress(progress, foundEpisodeUpdate(program.Slug, episode, len(tracks)))
	if len(tracks) == 0 {
		return skip(fmt.Sprintf("episode %s has no tracks after exclusions", res.EpisodeDate))
	}

	// RESOLVE
	e.sendProgress(progress, resolveTracksUpdate(program.Slug, len(tracks)))
	resolution, err := e.resolver.ResolveAll(ctx, tracks)
	res.Resolved = resolution.Resolved()
	res.Missed = len(resolution.Misses)
	res.Misses = resolution.Misses
	if err != nil {
		return fail(err)
	}
	if len(resolution.URIs) == 0 {
		logger.Warn("no tracks resolved, marker left unchanged", "episode", res.EpisodeDate, "tracks", len(tracks))
		return skip(fmt.Sprintf("none of %d tracks resolved", len(tracks)))
	}

	// DIFF
	var current []string
	if playlist != nil {
		if current, err = e.catalog.PlaylistTracks(ctx, playlist.ID); err != nil {
			return fail(err)
		}
	}
	diff := ComputeDiff(current, resolution.URIs)
	res.Added = len(diff.ToAdd)
	res.Removed = len(diff.ToRemove)
	res.Description = marker.Render(program.Description, episodeDate, program.Name)
	e.sendProgress(progress, diffUpdate(program.Slug, diff))

	if diff.Empty() {
		logger.Warn("episode matches playlist, marker left unchanged", "episode", res.EpisodeDate, "resolved", res.Resolved)
		return skip(fmt.Sprintf("playlist already matches episode %s", res.EpisodeDate))
	}

	if opts.DryRun {
		res.State = models.StateSynced
		res.FinishedAt = e.now()
		logger.Info("dry run", "episode", res.EpisodeDate, "add", res.Added, "remove", res.Removed)
		return res, nil
	}

	// APPLY
	if err := e.apply(ctx, program.Slug, playlist.ID, diff, res, progress); err != nil {
		return fail(err)
	}

	// COMMIT_MARKER
	e.sendProgress(progress, commitMarkerUpdate(program.Slug, res.Description))
	if err := e.catalog.UpdateDescription(ctx, playlist.ID, res.Description); err != nil {
		return fail(err)
	}

	res.State = models.StateSynced
	res.FinishedAt = e.now()
	logger.Info("synced", "episode", res.EpisodeDate, "added", res.Added, "removed", res.Removed, "missed", res.Missed)
	return res, nil
}

// playlist finds or creates the program's playlist. Dry runs never create: a missing playlist is reported as nil.
func (e *Engine) playlist(ctx context.Context, program shared.ProgramConfig, dryRun bool) (*models.Playlist, bool, error) {
	if !dryRun {
		return e.catalog.GetOrCreatePlaylist(ctx, e.owner, program.Name, marker.Pending(program.Description, program.Name))
	}

	playlist, err := e.catalog.FindPlaylist(ctx, e.owner, program.Name)
	if isMissing(err) {
		return nil, false, nil
	}
	return playlist, false, err
}

// floor is the oldest day the fetch may walk back to: the latest of the global cutoff, the program's interval window,
// its start date and the day after the marker. With neither a cutoff nor an interval the walk is bounded by
// [DefaultLookback].
func (e *Engine) floor(program shared.ProgramConfig, today, markerDate time.Time, useMarker bool) (time.Time, error) {
	window, err := program.Window()
	if err != nil {
		return time.Time{}, err
	}

	floor := e.cutoff
	if floor.IsZero() && window == 0 {
		window = DefaultLookback
	}
	if window > 0 {
		if earliest := today.AddDate(0, 0, -window); earliest.After(floor) {
			floor = earliest
		}
	}

	start, ok, err := program.Start()
	if err != nil {
		return time.Time{}, err
	}
	if ok && start.After(floor) {
		floor = start
	}
	if useMarker {
		if next := markerDate.AddDate(0, 0, 1); next.After(floor) {
			floor = next
		}
	}
	return floor, nil
}

// apply removes stale tracks before adding new ones. Counts in res reflect what was actually written.
func (e *Engine) apply(ctx context.Context, slug, playlistID string, diff Diff, res *SyncResult, progress chan<- ProgressUpdate) error {
	res.Added, res.Removed = 0, 0

	if len(diff.ToRemove) > 0 {
		e.sendProgress(progress, applyUpdate(slug, 1, fmt.Sprintf("Removing %d tracks...", len(diff.ToRemove))))
		written, err := e.catalog.RemoveTracks(ctx, playlistID, diff.ToRemove)
		res.Removed = written.Written
		if err != nil {
			return err
		}
	}

	if len(diff.ToAdd) > 0 {
		e.sendProgress(progress, applyUpdate(slug, 2, fmt.Sprintf("Adding %d tracks...", len(diff.ToAdd))))
		written, err := e.catalog.AddTracks(ctx, playlistID, diff.ToAdd)
		res.Added = written.Written
		if err != nil {
			return err
		}
	}
	return nil
}

// SyncAll syncs programs one after another. A failed program never stops its siblings; every result is journaled
// when a recorder is configured. Cancelling ctx stops before the next program.
func (e *Engine) SyncAll(ctx context.Context, programs []shared.ProgramConfig, opts SyncOpts, progress chan<- ProgressUpdate) []*SyncResult {
	results := make([]*SyncResult, 0, len(programs))

	for i, program := range programs {
		if ctx.Err() != nil {
			e.logger.Warn("sync cancelled", "remaining", len(programs)-i)
			break
		}

		res, _ := e.Sync(ctx, program, opts, progress)
		results = append(results, res)
		e.record(ctx, res)
		e.sendProgress(progress, finishedUpdate(i+1, len(programs), res))
	}
	return results
}

func (e *Engine) record(ctx context.Context, res *SyncResult) {
	if e.recorder == nil {
		return
	}
	// Journal even when the run was cancelled.
	if err := e.recorder.Record(context.WithoutCancel(ctx), res.Run()); err != nil {
		e.logger.Warn("failed to journal sync run", "program", res.Program, "error", err)
	}
}

// FindPlaylist looks up one of the owner's playlists by exact name.
func (e *Engine) FindPlaylist(ctx context.Context, name string) (*models.Playlist, error) {
	return e.catalog.FindPlaylist(ctx, e.owner, name)
}

// Failed counts results in the Failed state.
func Failed(results []*SyncResult) int {
	n := 0
	for _, r := range results {
		if r.State == models.StateFailed {
			n++
		}
	}
	return n
}
