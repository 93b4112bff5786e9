package testing

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/desertthunder/radiosync/internal/models"
	"github.com/desertthunder/radiosync/internal/services"
	"github.com/desertthunder/radiosync/internal/shared"
)

// MockCatalog is an in-memory [services.Catalog]. Playlist writes mutate its state so repeated syncs observe
// their own effects.
type MockCatalog struct {
	mu sync.Mutex

	Playlists     map[string]*models.Playlist      // Playlists by ID
	Tracks        map[string][]string              // Track URIs by playlist ID
	SearchResults map[string][]models.CatalogTrack // Candidates by exact query
	Errs          map[string]error                 // Errors returned by method name
	Calls         []string                         // Method names in call order
	BatchSize     int

	nextID int
}

// NewMockCatalog creates an empty catalog.
func NewMockCatalog() *MockCatalog {
	return &MockCatalog{
		Playlists:     map[string]*models.Playlist{},
		Tracks:        map[string][]string{},
		SearchResults: map[string][]models.CatalogTrack{},
		Errs:          map[string]error{},
		BatchSize:     services.DefaultBatchSize,
	}
}

// AddPlaylist seeds a playlist and returns it.
func (m *MockCatalog) AddPlaylist(name, description string, uris ...string) *models.Playlist {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addPlaylist(name, description, uris)
}

func (m *MockCatalog) addPlaylist(name, description string, uris []string) *models.Playlist {
	m.nextID++
	pl := &models.Playlist{ID: fmt.Sprintf("pl-%d", m.nextID), Name: name, Description: description, Public: true}
	m.Playlists[pl.ID] = pl
	m.Tracks[pl.ID] = slices.Clone(uris)
	return pl
}

// Stub registers search candidates for query.
func (m *MockCatalog) Stub(query string, uris ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	candidates := make([]models.CatalogTrack, len(uris))
	for i, uri := range uris {
		candidates[i] = models.CatalogTrack{URI: uri}
	}
	m.SearchResults[query] = candidates
}

// Count returns how many times method was called.
func (m *MockCatalog) Count(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c == method {
			n++
		}
	}
	return n
}

// Writes returns the number of calls that mutate playlists.
func (m *MockCatalog) Writes() int {
	return m.Count("AddTracks") + m.Count("RemoveTracks") + m.Count("UpdateDescription") +
		m.Count("UpdateDetails") + m.Count("ClearPlaylist")
}

// Description returns the current description of playlist id.
func (m *MockCatalog) Description(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pl, ok := m.Playlists[id]; ok {
		return pl.Description
	}
	return ""
}

// PlaylistByName returns the first playlist named name, or nil.
func (m *MockCatalog) PlaylistByName(name string) *models.Playlist {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byName(name)
}

func (m *MockCatalog) byName(name string) *models.Playlist {
	ids := make([]string, 0, len(m.Playlists))
	for id := range m.Playlists {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if m.Playlists[id].Name == name {
			return m.Playlists[id]
		}
	}
	return nil
}

// call records method and returns its injected error.
func (m *MockCatalog) call(method string) error {
	m.Calls = append(m.Calls, method)
	return m.Errs[method]
}

func (m *MockCatalog) Search(_ context.Context, query string) ([]models.CatalogTrack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("Search"); err != nil {
		return nil, err
	}
	return m.SearchResults[query], nil
}

func (m *MockCatalog) PlaylistTracks(_ context.Context, playlistID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("PlaylistTracks"); err != nil {
		return nil, err
	}
	if _, ok := m.Playlists[playlistID]; !ok {
		return nil, &services.ProviderError{Method: "GET", Endpoint: "/playlists/" + playlistID + "/tracks", StatusCode: 404}
	}
	return slices.Clone(m.Tracks[playlistID]), nil
}

func (m *MockCatalog) AddTracks(_ context.Context, playlistID string, uris []string) (services.BatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chunks := services.Chunk(uris, m.BatchSize)
	result := services.BatchResult{Chunks: len(chunks)}
	if err := m.call("AddTracks"); err != nil {
		return result, &services.BatchError{Op: "add tracks", Remaining: uris, Err: err}
	}
	m.Tracks[playlistID] = append(m.Tracks[playlistID], uris...)
	m.touch(playlistID)
	result.Completed, result.Written = len(chunks), len(uris)
	return result, nil
}

func (m *MockCatalog) RemoveTracks(_ context.Context, playlistID string, uris []string) (services.BatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chunks := services.Chunk(uris, m.BatchSize)
	result := services.BatchResult{Chunks: len(chunks)}
	if err := m.call("RemoveTracks"); err != nil {
		return result, &services.BatchError{Op: "remove tracks", Remaining: uris, Err: err}
	}
	m.Tracks[playlistID] = slices.DeleteFunc(m.Tracks[playlistID], func(uri string) bool {
		return slices.Contains(uris, uri)
	})
	m.touch(playlistID)
	result.Completed, result.Written = len(chunks), len(uris)
	return result, nil
}

func (m *MockCatalog) touch(playlistID string) {
	if pl, ok := m.Playlists[playlistID]; ok {
		pl.TrackCount = len(m.Tracks[playlistID])
	}
}

func (m *MockCatalog) UpdateDescription(_ context.Context, playlistID, description string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("UpdateDescription"); err != nil {
		return err
	}
	if pl, ok := m.Playlists[playlistID]; ok {
		pl.Description = description
	}
	return nil
}

func (m *MockCatalog) UpdateDetails(_ context.Context, playlistID, name, description string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("UpdateDetails"); err != nil {
		return err
	}
	if pl, ok := m.Playlists[playlistID]; ok {
		pl.Name, pl.Description = name, description
	}
	return nil
}

func (m *MockCatalog) FindPlaylist(_ context.Context, owner, name string) (*models.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("FindPlaylist"); err != nil {
		return nil, err
	}
	if pl := m.byName(name); pl != nil {
		copied := *pl
		return &copied, nil
	}
	return nil, fmt.Errorf("%w: %q owned by %s", shared.ErrPlaylistNotFound, name, owner)
}

func (m *MockCatalog) GetOrCreatePlaylist(_ context.Context, _, name, description string) (*models.Playlist, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("GetOrCreatePlaylist"); err != nil {
		return nil, false, err
	}
	if pl := m.byName(name); pl != nil {
		copied := *pl
		return &copied, false, nil
	}
	copied := *m.addPlaylist(name, description, nil)
	return &copied, true, nil
}

func (m *MockCatalog) ClearPlaylist(_ context.Context, playlistID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("ClearPlaylist"); err != nil {
		return 0, err
	}
	distinct := slices.Compact(slices.Sorted(slices.Values(m.Tracks[playlistID])))
	m.Tracks[playlistID] = nil
	m.touch(playlistID)
	return len(distinct), nil
}

var _ services.Catalog = (*MockCatalog)(nil)

// MockSource is a date-addressable episode source serving canned episodes keyed by YYYY-MM-DD.
type MockSource struct {
	Episodes map[string]*models.Episode
	Err      error
	Asked    []string
}

func (s *MockSource) Name() string { return "mock" }

func (s *MockSource) FetchForDate(_ context.Context, d time.Time) (*models.Episode, error) {
	key := d.Format(shared.DateLayout)
	s.Asked = append(s.Asked, key)
	if s.Err != nil {
		return nil, s.Err
	}
	if ep, ok := s.Episodes[key]; ok {
		return ep, nil
	}
	return &models.Episode{Date: d}, nil
}

// MockLatestSource is a latest-only episode source.
type MockLatestSource struct {
	Episode *models.Episode
	Err     error
	Calls   int
}

func (s *MockLatestSource) Name() string { return "mock-latest" }

func (s *MockLatestSource) FetchLatest(context.Context) (*models.Episode, error) {
	s.Calls++
	return s.Episode, s.Err
}

// Day parses a YYYY-MM-DD date as UTC midnight and panics on malformed input.
func Day(s string) time.Time {
	d, err := time.Parse(shared.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}
