// package models defines the data model shared by the episode sources, the track resolver and the reconciliation engine
package models

import (
	"time"

	"github.com/desertthunder/radiosync/internal/shared"
)

// Track is one raw track as aired, produced by an episode source. An empty Album means the source gave none.
type Track struct {
	Name   string `json:"name"`
	Artist string `json:"artist"`
	Album  string `json:"album,omitempty"`
}

// Key returns the duplicate key of the track: normalized name and artist.
func (t Track) Key() string {
	return shared.NormalizeTrackKey(t.Name, t.Artist)
}

// Episode is one broadcast's aired playlist.
type Episode struct {
	ID     string    `json:"id,omitempty"`
	Date   time.Time `json:"date"`
	Tracks []Track   `json:"tracks"`
}

// Empty reports whether the source had nothing aired for the requested date.
func (e *Episode) Empty() bool {
	return e == nil || len(e.Tracks) == 0
}

// DateOf truncates t to its calendar day, expressed as midnight UTC so days compare with ==.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CatalogTrack is a search candidate returned by the streaming catalog.
type CatalogTrack struct {
	ID         string   `json:"id"`
	URI        string   `json:"uri"`
	Name       string   `json:"name"`
	Artists    []string `json:"artists"`
	Album      string   `json:"album"`
	DurationMS int      `json:"duration_ms"`
}

// Artist returns the first credited artist, or "".
func (c CatalogTrack) Artist() string {
	if len(c.Artists) == 0 {
		return ""
	}
	return c.Artists[0]
}

// Playlist represents a playlist owned by the operator's catalog account.
// Description doubles as storage for the sync marker.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
	TrackCount  int    `json:"track_count"`
}

// SyncState is the terminal state of one program's reconciliation.
type SyncState string

const (
	StateSkipped SyncState = "skipped"
	StateSynced  SyncState = "synced"
	StateFailed  SyncState = "failed"
)

// SyncRun is the journal record of one program's reconciliation.
type SyncRun struct {
	ID          string    `json:"id"`
	Program     string    `json:"program"`
	PlaylistID  string    `json:"playlist_id"`
	EpisodeDate string    `json:"episode_date"`
	State       SyncState `json:"state"`
	Tracks      int       `json:"tracks"`
	Excluded    int       `json:"excluded"`
	Resolved    int       `json:"resolved"`
	Missed      int       `json:"missed"`
	Added       int       `json:"added"`
	Removed     int       `json:"removed"`
	DryRun      bool      `json:"dry_run"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// ResolvedTrack is a cached mapping from a raw track key to a catalog track URI.
type ResolvedTrack struct {
	Key        string    `json:"key"`
	URI        string    `json:"uri"`
	Query      string    `json:"query"`
	ResolvedAt time.Time `json:"resolved_at"`
}
