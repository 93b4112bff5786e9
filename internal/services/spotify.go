// Spotify Web API implementation of [Catalog]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/radiosync/internal/models"
	"github.com/desertthunder/radiosync/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

const (
	playlistPageSize = 100
	userPageSize     = 50
	searchLimit      = 10
	maxErrorBody     = 512
)

// Scopes requested by `auth login`. Playlist writes need both modify scopes because synced playlists are public.
var Scopes = []string{
	"user-read-private",
	"playlist-read-private",
	"playlist-modify-public",
	"playlist-modify-private",
}

type followers struct {
	Total int `json:"total"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Country     string    `json:"country"`
	Product     string    `json:"product"` // premium, free, etc.
	Followers   followers `json:"followers"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a simplified Spotify album.
type SpotifyAlbum struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	URI        string          `json:"uri"`
}

// SpotifyPlaylistTrack represents a track within a playlist context. Track is nil for unavailable or local items.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type simplePlaylistTrack struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Owner       Owner               `json:"owner"`
	Public      bool                `json:"public"`
	Tracks      simplePlaylistTrack `json:"tracks"`
	URI         string              `json:"uri"`
}

// SpotifyPage is the paging envelope shared by list endpoints.
type SpotifyPage[T any] struct {
	Items    []T     `json:"items"`
	Total    int     `json:"total"`
	Limit    int     `json:"limit"`
	Offset   int     `json:"offset"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

type searchResponse struct {
	Tracks SpotifyPage[SpotifyTrack] `json:"tracks"`
}

type trackURI struct {
	URI string `json:"uri"`
}

// SpotifyOpts configures a [SpotifyService]. Zero values fall back to package defaults.
type SpotifyOpts struct {
	Credentials  *shared.Credentials
	RedirectURI  string
	BaseURL      string
	TokenURL     string
	HTTPClient   *http.Client // base client for API and token calls; its Transport is wrapped
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	RateLimit    float64 // requests per second, <= 0 disables throttling
	BatchSize    int
	Logger       *log.Logger

	// OnTokenRefresh is invoked with each newly issued access token so the credential bundle can be rewritten.
	OnTokenRefresh func(*oauth2.Token)
}

// SpotifyService implements [Catalog] against the Spotify Web API.
// Uses [oauth2] refresh-token grants for authentication and retries throttled or failed requests.
type SpotifyService struct {
	config       *oauth2.Config
	tokenSource  *refreshableTokenSource
	httpClient   *http.Client
	limiter      *rate.Limiter
	logger       *log.Logger
	baseURL      string
	batchSize    int
	maxRetries   int
	retryBackoff time.Duration

	onTokenRefresh func(*oauth2.Token)
}

// NewOAuthConfig builds the authorization-code configuration used by `auth login` and token refresh.
func NewOAuthConfig(clientID, clientSecret, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}
}

// NewSpotifyService creates a Spotify catalog client from a validated credential bundle.
func NewSpotifyService(opts SpotifyOpts) (*SpotifyService, error) {
	if opts.Credentials == nil {
		return nil, fmt.Errorf("%w: credential bundle is nil", shared.ErrMissingCredentials)
	}
	if err := opts.Credentials.Validate(); err != nil {
		return nil, err
	}

	config := NewOAuthConfig(opts.Credentials.ClientID, opts.Credentials.ClientSecret, opts.RedirectURI)
	if opts.TokenURL != "" {
		config.Endpoint.TokenURL = opts.TokenURL
	}

	base := opts.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if batchSize > MaxBatchSize {
		return nil, fmt.Errorf("%w: batch size %d exceeds provider cap %d", shared.ErrInvalidConfig, batchSize, MaxBatchSize)
	}

	backoff := opts.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}

	s := &SpotifyService{
		config:         config,
		limiter:        rate.NewLimiter(limit, 1),
		logger:         shared.WithLogger(opts.Logger, "service", "spotify"),
		baseURL:        strings.TrimRight(baseURL, "/"),
		batchSize:      batchSize,
		maxRetries:     max(opts.MaxRetries, 0),
		retryBackoff:   backoff,
		onTokenRefresh: opts.OnTokenRefresh,
	}

	// Token refresh goes through the same base client so tests and proxies see it.
	refreshCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	token := opts.Credentials.Token()
	s.tokenSource = &refreshableTokenSource{
		source:    config.TokenSource(refreshCtx, token),
		callback:  s.tokenRefreshed,
		lastToken: token.AccessToken,
	}

	s.httpClient = &http.Client{
		Transport: &oauth2.Transport{Source: s.tokenSource, Base: base.Transport},
		Timeout:   timeout,
	}
	return s, nil
}

func (s *SpotifyService) tokenRefreshed(token *oauth2.Token) {
	s.logger.Debug("access token refreshed", "expiry", token.Expiry)
	if s.onTokenRefresh != nil {
		s.onTokenRefresh(token)
	}
}

// BatchSize reports the number of identifiers sent per playlist write.
func (s *SpotifyService) BatchSize() int {
	return s.batchSize
}

// refreshableTokenSource wraps an [oauth2.TokenSource] and reports every token that differs from the last one seen.
type refreshableTokenSource struct {
	source    oauth2.TokenSource
	callback  func(*oauth2.Token)
	mu        sync.Mutex
	lastToken string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}

	r.mu.Lock()
	changed := token.AccessToken != r.lastToken
	r.lastToken = token.AccessToken
	r.mu.Unlock()

	if changed && r.callback != nil {
		r.callback(token)
	}
	return token, nil
}

// doRequest performs an authenticated request against the Spotify API.
//
// Endpoints are relative to the base URL unless absolute (paging `next` links). Requests wait on the rate limiter,
// and 429 and 5xx responses are retried with exponential backoff, honoring Retry-After. Transport errors are retried
// only for idempotent methods: a POST may have been applied before its reply was lost.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body any, result any) error {
	apiURL := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		apiURL = s.baseURL + endpoint
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, shared.ErrRefreshFailed) || !idempotent(method) || attempt >= s.maxRetries {
				return fmt.Errorf("%w: %s %s: %w", shared.ErrAPIRequest, method, endpoint, err)
			}
			delay := s.backoff(attempt, "")
			s.logger.Warn("request failed, retrying", "method", method, "endpoint", endpoint, "attempt", attempt+1, "delay", delay, "error", err)
			if err := sleep(ctx, delay); err != nil {
				return err
			}
			continue
		}

		if retryable(resp.StatusCode) && attempt < s.maxRetries {
			delay := s.backoff(attempt, resp.Header.Get("Retry-After"))
			drain(resp)
			s.logger.Warn("provider throttled or unavailable, retrying", "method", method, "endpoint", endpoint, "status", resp.StatusCode, "attempt", attempt+1, "delay", delay)
			if err := sleep(ctx, delay); err != nil {
				return err
			}
			continue
		}

		return s.handleResponse(resp, method, endpoint, result)
	}
}

func (s *SpotifyService) handleResponse(resp *http.Response, method, endpoint string, result any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &ProviderError{
			Method:     method,
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: failed to decode %s %s response: %w", shared.ErrAPIRequest, method, endpoint, err)
	}
	return nil
}

// backoff returns the Retry-After delay when the provider sent one, otherwise retryBackoff doubled per attempt.
func (s *SpotifyService) backoff(attempt int, retryAfter string) time.Duration {
	if retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds >= 0 {
			return time.Duration(seconds) * time.Second
		}
		if at, err := http.ParseTime(retryAfter); err == nil {
			return max(time.Until(at), 0)
		}
	}
	return s.retryBackoff << attempt
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func playlistPath(playlistID string) string {
	return "/playlists/" + url.PathEscape(playlistID)
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Search runs a free-text track query and returns the provider-ranked candidates.
func (s *SpotifyService) Search(ctx context.Context, query string) ([]models.CatalogTrack, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", strconv.Itoa(searchLimit))

	var response searchResponse
	if err := s.doRequest(ctx, http.MethodGet, "/search?"+params.Encode(), nil, &response); err != nil {
		return nil, err
	}

	tracks := make([]models.CatalogTrack, 0, len(response.Tracks.Items))
	for _, item := range response.Tracks.Items {
		tracks = append(tracks, toCatalogTrack(item))
	}
	return tracks, nil
}

func toCatalogTrack(st SpotifyTrack) models.CatalogTrack {
	artists := make([]string, 0, len(st.Artists))
	for _, a := range st.Artists {
		artists = append(artists, a.Name)
	}
	return models.CatalogTrack{
		ID:         st.ID,
		URI:        st.URI,
		Name:       st.Name,
		Artists:    artists,
		Album:      st.Album.Name,
		DurationMS: st.DurationMS,
	}
}

// PlaylistTracks returns every track URI in the playlist in order, following `next` links until exhausted.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/tracks?limit=%d&offset=0", playlistPath(playlistID), playlistPageSize)

	var uris []string
	for endpoint != "" {
		var page SpotifyPage[SpotifyPlaylistTrack]
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item.Track == nil || item.Track.URI == "" {
				continue
			}
			uris = append(uris, item.Track.URI)
		}

		if page.Next == nil || len(page.Items) == 0 || page.Offset+len(page.Items) >= page.Total {
			break
		}
		endpoint = *page.Next
	}

	s.logger.Debug("read playlist", "playlist", playlistID, "tracks", len(uris))
	return uris, nil
}

// AddTracks appends uris to the playlist, one POST per chunk.
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, uris []string) (BatchResult, error) {
	return s.writeBatches(ctx, "add tracks", http.MethodPost, playlistID, uris, func(chunk []string) any {
		return map[string][]string{"uris": chunk}
	})
}

// RemoveTracks removes every occurrence of uris from the playlist, one DELETE per chunk.
func (s *SpotifyService) RemoveTracks(ctx context.Context, playlistID string, uris []string) (BatchResult, error) {
	return s.writeBatches(ctx, "remove tracks", http.MethodDelete, playlistID, uris, func(chunk []string) any {
		tracks := make([]trackURI, len(chunk))
		for i, uri := range chunk {
			tracks[i] = trackURI{URI: uri}
		}
		return map[string][]trackURI{"tracks": tracks}
	})
}

func (s *SpotifyService) writeBatches(
	ctx context.Context, op, method, playlistID string, uris []string, body func([]string) any,
) (BatchResult, error) {
	chunks := Chunk(uris, s.batchSize)
	result := BatchResult{Chunks: len(chunks)}
	endpoint := playlistPath(playlistID) + "/tracks"

	for i, chunk := range chunks {
		if err := s.doRequest(ctx, method, endpoint, body(chunk), nil); err != nil {
			return result, &BatchError{
				Op:        op,
				Completed: i,
				Remaining: uris[i*s.batchSize:],
				Err:       err,
			}
		}
		result.Completed++
		result.Written += len(chunk)
		s.logger.Debug(op, "playlist", playlistID, "chunk", i+1, "of", len(chunks), "size", len(chunk))
	}
	return result, nil
}

// UpdateDescription replaces the playlist description.
func (s *SpotifyService) UpdateDescription(ctx context.Context, playlistID, description string) error {
	body := map[string]string{"description": description}
	return s.doRequest(ctx, http.MethodPut, playlistPath(playlistID), body, nil)
}

// UpdateDetails replaces the playlist name and description.
func (s *SpotifyService) UpdateDetails(ctx context.Context, playlistID, name, description string) error {
	body := map[string]string{"name": name, "description": description}
	return s.doRequest(ctx, http.MethodPut, playlistPath(playlistID), body, nil)
}

// UserPlaylists retrieves one page of an owner's playlists.
func (s *SpotifyService) UserPlaylists(ctx context.Context, owner string, limit, offset int) (*SpotifyPage[SpotifySimplePlaylist], error) {
	if limit <= 0 || limit > userPageSize {
		limit = userPageSize
	}

	endpoint := fmt.Sprintf("/users/%s/playlists?limit=%d&offset=%d", url.PathEscape(owner), limit, offset)

	var response SpotifyPage[SpotifySimplePlaylist]
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// FindPlaylist pages through all of the owner's playlists and returns the first exact name match.
func (s *SpotifyService) FindPlaylist(ctx context.Context, owner, name string) (*models.Playlist, error) {
	offset := 0
	for {
		response, err := s.UserPlaylists(ctx, owner, userPageSize, offset)
		if err != nil {
			return nil, err
		}

		for _, sp := range response.Items {
			if sp.Name == name {
				return toPlaylist(sp), nil
			}
		}

		if response.Next == nil || len(response.Items) == 0 {
			break
		}
		offset += len(response.Items)
	}
	return nil, fmt.Errorf("%w: %q owned by %s", shared.ErrPlaylistNotFound, name, owner)
}

// CreatePlaylist creates a public playlist for owner.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, owner, name, description string) (*models.Playlist, error) {
	body := map[string]any{
		"name":        name,
		"description": description,
		"public":      true,
	}

	var created SpotifySimplePlaylist
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(owner))
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &created); err != nil {
		return nil, err
	}

	s.logger.Info("created playlist", "name", name, "id", created.ID)
	return toPlaylist(created), nil
}

// GetOrCreatePlaylist returns the named playlist, creating it when no exact match exists.
func (s *SpotifyService) GetOrCreatePlaylist(ctx context.Context, owner, name, description string) (*models.Playlist, bool, error) {
	playlist, err := s.FindPlaylist(ctx, owner, name)
	if err == nil {
		return playlist, false, nil
	}

	var perr *ProviderError
	if !errors.Is(err, shared.ErrPlaylistNotFound) || errors.As(err, &perr) {
		return nil, false, err
	}

	playlist, err = s.CreatePlaylist(ctx, owner, name, description)
	if err != nil {
		return nil, false, err
	}
	return playlist, true, nil
}

// ClearPlaylist removes every track from the playlist and returns the number of distinct tracks removed.
func (s *SpotifyService) ClearPlaylist(ctx context.Context, playlistID string) (int, error) {
	uris, err := s.PlaylistTracks(ctx, playlistID)
	if err != nil {
		return 0, err
	}

	seen := make(map[string]struct{}, len(uris))
	unique := make([]string, 0, len(uris))
	for _, uri := range uris {
		if _, ok := seen[uri]; ok {
			continue
		}
		seen[uri] = struct{}{}
		unique = append(unique, uri)
	}

	if _, err := s.RemoveTracks(ctx, playlistID, unique); err != nil {
		return 0, err
	}
	return len(unique), nil
}

func toPlaylist(sp SpotifySimplePlaylist) *models.Playlist {
	return &models.Playlist{
		ID:          sp.ID,
		Name:        sp.Name,
		Description: sp.Description,
		Public:      sp.Public,
		TrackCount:  sp.Tracks.Total,
	}
}

var _ Catalog = (*SpotifyService)(nil)
