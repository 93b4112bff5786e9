package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/radiosync/internal/models"
	"github.com/desertthunder/radiosync/internal/shared"
)

const composerBaseURL = "https://api.composer.nprstations.org"

type composerItem struct {
	TrackName      string `json:"trackName"`
	ArtistName     string `json:"artistName"`
	CollectionName string `json:"collectionName"`
}

type composerEpisode struct {
	Date      string         `json:"date"`
	EpisodeID string         `json:"episode_id"`
	Playlist  []composerItem `json:"playlist"`
}

type composerResponse struct {
	Playlist []composerEpisode `json:"playlist"`
}

// ComposerSource reads playlists from an NPR station composer widget. It supports both date-addressed and latest
// fetches.
type ComposerSource struct {
	client     *http.Client
	baseURL    string
	widget     string
	programID  string
	playlistID string
}

// NewComposerSource creates a composer source for the widget and program in cfg.
func NewComposerSource(cfg shared.SourceConfig, client *http.Client) *ComposerSource {
	base := cfg.BaseURL
	if base == "" {
		base = composerBaseURL
	}
	return &ComposerSource{
		client:     client,
		baseURL:    strings.TrimRight(base, "/"),
		widget:     cfg.Widget,
		programID:  cfg.ProgramID,
		playlistID: cfg.PlaylistID,
	}
}

func (c *ComposerSource) Name() string {
	return "composer"
}

func (c *ComposerSource) endpoint(datestamp string) string {
	params := url.Values{}
	if c.playlistID != "" {
		params.Set("t", c.playlistID)
	}
	params.Set("prog_id", c.programID)
	if datestamp != "" {
		params.Set("datestamp", datestamp)
	}
	return fmt.Sprintf("%s/v1/widget/%s/playlist?%s", c.baseURL, url.PathEscape(c.widget), params.Encode())
}

func (c *ComposerSource) fetch(ctx context.Context, datestamp string) (*composerResponse, error) {
	rawURL := c.endpoint(datestamp)
	resp, err := get(ctx, c.client, rawURL, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var data composerResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %w", shared.ErrSourceRequest, rawURL, err)
	}
	return &data, nil
}

// FetchForDate returns the first episode the widget lists for day d, dated d.
func (c *ComposerSource) FetchForDate(ctx context.Context, d time.Time) (*models.Episode, error) {
	day := models.DateOf(d)
	data, err := c.fetch(ctx, day.Format(shared.DateLayout))
	if err != nil {
		return nil, err
	}

	if len(data.Playlist) == 0 {
		return &models.Episode{Date: day}, nil
	}

	first := data.Playlist[0]
	return &models.Episode{
		ID:     first.EpisodeID,
		Date:   day,
		Tracks: composerTracks(first.Playlist),
	}, nil
}

// FetchLatest returns the most recently dated episode the widget lists.
func (c *ComposerSource) FetchLatest(ctx context.Context) (*models.Episode, error) {
	data, err := c.fetch(ctx, "")
	if err != nil {
		return nil, err
	}

	var latest *composerEpisode
	var latestDate time.Time
	for i := range data.Playlist {
		ep := &data.Playlist[i]
		d, err := time.Parse(shared.DateLayout, ep.Date)
		if err != nil {
			continue
		}
		if latest == nil || d.After(latestDate) {
			latest, latestDate = ep, d
		}
	}

	if latest == nil {
		return &models.Episode{}, nil
	}
	return &models.Episode{
		ID:     latest.EpisodeID,
		Date:   latestDate,
		Tracks: composerTracks(latest.Playlist),
	}, nil
}

// composerTracks drops entries without a track or artist name.
func composerTracks(items []composerItem) []models.Track {
	tracks := make([]models.Track, 0, len(items))
	for _, item := range items {
		name := strings.TrimSpace(item.TrackName)
		artist := strings.TrimSpace(item.ArtistName)
		if name == "" || artist == "" {
			continue
		}
		tracks = append(tracks, models.Track{
			Name:   name,
			Artist: artist,
			Album:  strings.TrimSpace(item.CollectionName),
		})
	}
	return tracks
}
