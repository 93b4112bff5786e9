// package sources fetches aired episodes from the stations' playlist feeds.
//
// A source can fetch the episode for a given broadcast day ([DateFetcher]), only the most recent one ([LatestFetcher]),
// or both. [Fetch] picks the right strategy for whichever a program is configured with.
package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/desertthunder/radiosync/internal/models"
	"github.com/desertthunder/radiosync/internal/shared"
)

const (
	userAgent      = "radiosync/1.0 (+https://github.com/desertthunder/radiosync)"
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 512
)

// EpisodeSource is a named upstream feed of aired playlists.
type EpisodeSource interface {
	Name() string
}

// LatestFetcher returns the most recent aired episode.
type LatestFetcher interface {
	EpisodeSource
	FetchLatest(ctx context.Context) (*models.Episode, error)
}

// DateFetcher returns the episode aired on day d. A day with nothing aired yields an empty episode, not an error.
type DateFetcher interface {
	EpisodeSource
	FetchForDate(ctx context.Context, d time.Time) (*models.Episode, error)
}

// New builds the source named by the program's source kind.
func New(program shared.ProgramConfig, client *http.Client) (EpisodeSource, error) {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	switch program.Source.Kind {
	case shared.SourceComposer:
		return NewComposerSource(program.Source, client), nil
	case shared.SourceBBC:
		return NewBBCSource(program.Source, client), nil
	default:
		return nil, fmt.Errorf("%w: program %q: unknown source kind %q", shared.ErrInvalidConfig, program.Slug, program.Source.Kind)
	}
}

// Walk steps back one day at a time from `from` until a non-empty episode is found or the day falls before cutoff.
// An empty episode is returned when nothing aired in the window.
func Walk(ctx context.Context, src DateFetcher, from, cutoff time.Time) (*models.Episode, error) {
	from, cutoff = models.DateOf(from), models.DateOf(cutoff)

	for day := from; !day.Before(cutoff); day = day.AddDate(0, 0, -1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		episode, err := src.FetchForDate(ctx, day)
		if err != nil {
			return nil, err
		}
		if !episode.Empty() {
			return episode, nil
		}
	}
	return &models.Episode{}, nil
}

// Fetch returns the newest episode the source can provide, walking back from now to cutoff for date-addressable
// sources and asking latest-only sources directly.
func Fetch(ctx context.Context, src EpisodeSource, now, cutoff time.Time) (*models.Episode, error) {
	switch s := src.(type) {
	case DateFetcher:
		return Walk(ctx, s, now, cutoff)
	case LatestFetcher:
		return s.FetchLatest(ctx)
	default:
		return nil, fmt.Errorf("%w: source %q cannot fetch episodes", shared.ErrInvalidConfig, src.Name())
	}
}

// get performs a GET and returns the response for the caller to consume. Non-2xx statuses become
// [shared.ErrSourceRequest].
func get(ctx context.Context, client *http.Client, rawURL, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", shared.ErrSourceRequest, rawURL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: GET %s: status %d: %s", shared.ErrSourceRequest, rawURL, resp.StatusCode, body)
	}
	return resp, nil
}
