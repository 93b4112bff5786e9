// package resolver turns aired tracks into catalog track URIs.
//
// Each track is sanitized into a field-qualified search query, searched in the catalog, and one candidate is chosen
// by a [Strategy]. A [Cache] of earlier resolutions can short-circuit the search.
package resolver

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/radiosync/internal/models"
	"github.com/desertthunder/radiosync/internal/shared"
)

// Searcher is the slice of the catalog the resolver needs.
type Searcher interface {
	Search(ctx context.Context, query string) ([]models.CatalogTrack, error)
}

// Cache remembers earlier resolutions keyed by [models.Track.Key].
type Cache interface {
	Lookup(ctx context.Context, key string) (uri string, ok bool, err error)
	Store(ctx context.Context, key, uri, query string) error
}

// Opts configures a [Resolver]. Nil fields fall back to [FirstMatch], no cache and a discarded log.
type Opts struct {
	Strategy Strategy
	Cache    Cache
	Logger   *log.Logger
}

// Resolver resolves tracks one at a time against a [Searcher].
type Resolver struct {
	searcher Searcher
	strategy Strategy
	cache    Cache
	logger   *log.Logger
}

// Resolution is the outcome of resolving an episode's tracks.
type Resolution struct {
	URIs      []string       // Distinct URIs in first-seen order
	Misses    []models.Track // Tracks with no acceptable candidate
	Attempted int
	Cached    int // Resolutions served from the cache
}

// Resolved is the number of tracks that produced a URI, duplicates included.
func (r Resolution) Resolved() int {
	return r.Attempted - len(r.Misses)
}

// Yield is the fraction of attempted tracks that resolved, or 0 when nothing was attempted.
func (r Resolution) Yield() float64 {
	if r.Attempted == 0 {
		return 0
	}
	return float64(r.Resolved()) / float64(r.Attempted)
}

// New creates a resolver over searcher.
func New(searcher Searcher, opts Opts) *Resolver {
	strategy := opts.Strategy
	if strategy == nil {
		strategy = FirstMatch{}
	}
	return &Resolver{
		searcher: searcher,
		strategy: strategy,
		cache:    opts.Cache,
		logger:   shared.WithLogger(opts.Logger, "component", "resolver"),
	}
}

// Resolve returns the catalog URI for t. A track with no acceptable candidate is a miss (ok false, nil error);
// search failures are returned. Cache failures are logged and never fail the resolution.
func (r *Resolver) Resolve(ctx context.Context, t models.Track) (uri string, ok bool, err error) {
	uri, ok, _, err = r.resolve(ctx, t)
	return uri, ok, err
}

func (r *Resolver) resolve(ctx context.Context, t models.Track) (uri string, ok, cached bool, err error) {
	key := t.Key()
	if r.cache != nil {
		uri, ok, err := r.cache.Lookup(ctx, key)
		if err != nil {
			r.logger.Warn("resolution cache lookup failed", "key", key, "error", err)
		} else if ok {
			return uri, true, true, nil
		}
	}

	query := BuildQuery(t)
	candidates, err := r.searcher.Search(ctx, query)
	if err != nil {
		return "", false, false, err
	}

	match, ok := r.strategy.Pick(t, candidates)
	if !ok {
		r.logger.Debug("no catalog match", "track", t.Name, "artist", t.Artist, "album", t.Album, "query", query)
		return "", false, false, nil
	}

	uri = URI(match)
	if r.cache != nil {
		if err := r.cache.Store(ctx, key, uri, query); err != nil {
			r.logger.Warn("resolution cache store failed", "key", key, "error", err)
		}
	}
	return uri, true, false, nil
}

// ResolveAll resolves every track in order. The first search failure aborts and is returned with the partial
// resolution.
func (r *Resolver) ResolveAll(ctx context.Context, tracks []models.Track) (Resolution, error) {
	var res Resolution
	seen := make(map[string]struct{}, len(tracks))

	for _, t := range tracks {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		res.Attempted++
		uri, ok, cached, err := r.resolve(ctx, t)
		if err != nil {
			res.Attempted--
			return res, err
		}
		if !ok {
			res.Misses = append(res.Misses, t)
			continue
		}
		if cached {
			res.Cached++
		}
		if _, dup := seen[uri]; dup {
			continue
		}
		seen[uri] = struct{}{}
		res.URIs = append(res.URIs, uri)
	}

	r.logger.Debug("resolved tracks", "attempted", res.Attempted, "resolved", res.Resolved(), "missed", len(res.Misses))
	return res, nil
}
