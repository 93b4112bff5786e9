package tasks

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/desertthunder/radiosync/internal/shared"
	tu "github.com/desertthunder/radiosync/internal/testing"
)

func programs(names ...string) []shared.ProgramConfig {
	out := make([]shared.ProgramConfig, len(names))
	for i, name := range names {
		out[i] = shared.ProgramConfig{Slug: strings.ToLower(strings.Fields(name)[0]), Name: name}
	}
	return out
}

func TestEngine_Aggregate(t *testing.T) {
	t.Run("merges program playlists", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		catalog.AddPlaylist("Morning Show", "", "spotify:track:1", "spotify:track:2")
		catalog.AddPlaylist("Evening Show", "", "spotify:track:2", "spotify:track:3")
		target := catalog.AddPlaylist("All Shows", "", "spotify:track:1", "spotify:track:9")
		engine := newEngine(t, catalog, nil, "2024-06-02")

		progress := make(chan ProgressUpdate, 8)
		res, err := engine.Aggregate(context.Background(), programs("Morning Show", "Evening Show", "Missing Show"),
			AggregateTarget{ID: target.ID}, SyncOpts{}, progress)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		close(progress)

		if res.Total != 4 || res.Added != 2 || res.Removed != 1 || res.Shared != 1 {
			t.Errorf("unexpected counts: %+v", res)
		}
		if !slices.Equal(res.Missing, []string{"missing"}) {
			t.Errorf("expected missing program, got %v", res.Missing)
		}

		got := slices.Sorted(slices.Values(catalog.Tracks[target.ID]))
		want := []string{"spotify:track:1", "spotify:track:2", "spotify:track:3"}
		if !slices.Equal(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}

		desc := catalog.Description(target.ID)
		if !strings.HasPrefix(desc, DefaultAggregateDescription) || !strings.HasSuffix(desc, "Last updated 2024-06-02.") {
			t.Errorf("unexpected description %q", desc)
		}

		var updates int
		for u := range progress {
			if u.Phase == AggregatePlaylists {
				updates++
			}
		}
		if updates != 2 {
			t.Errorf("expected 2 aggregate updates, got %d", updates)
		}
	})

	t.Run("unchanged target is not rewritten", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		catalog.AddPlaylist("Morning Show", "", "spotify:track:1")
		target := catalog.AddPlaylist("All Shows", "old", "spotify:track:1")

		res, err := newEngine(t, catalog, nil, "2024-06-02").Aggregate(context.Background(), programs("Morning Show"),
			AggregateTarget{ID: target.ID}, SyncOpts{}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Added != 0 || res.Removed != 0 || catalog.Writes() != 0 {
			t.Errorf("expected no writes, got %d", catalog.Writes())
		}
	})

	t.Run("named target is created and renamed", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		catalog.AddPlaylist("Morning Show", "", "spotify:track:1")

		res, err := newEngine(t, catalog, nil, "2024-06-02").Aggregate(context.Background(), programs("Morning Show"),
			AggregateTarget{Name: "All Shows", Description: "Everything."}, SyncOpts{}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		pl := catalog.PlaylistByName("All Shows")
		if pl == nil || pl.ID != res.PlaylistID {
			t.Fatal("target playlist not created")
		}
		if catalog.Count("UpdateDetails") != 1 || pl.Description != "Everything. Last updated 2024-06-02." {
			t.Errorf("unexpected details update: %q", pl.Description)
		}
	})

	t.Run("dry run writes nothing", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		catalog.AddPlaylist("Morning Show", "", "spotify:track:1")

		res, err := newEngine(t, catalog, nil, "2024-06-02").Aggregate(context.Background(), programs("Morning Show"),
			AggregateTarget{Name: "All Shows"}, SyncOpts{DryRun: true}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Added != 1 || !res.DryRun {
			t.Errorf("unexpected result: %+v", res)
		}
		if catalog.Writes() != 0 || catalog.Count("GetOrCreatePlaylist") != 0 {
			t.Error("dry run wrote to the catalog")
		}
	})

	t.Run("requires target", func(t *testing.T) {
		_, err := newEngine(t, tu.NewMockCatalog(), nil, "2024-06-02").Aggregate(context.Background(), nil,
			AggregateTarget{}, SyncOpts{}, nil)
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("provider error aborts", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		target := catalog.AddPlaylist("All Shows", "")
		catalog.Errs["FindPlaylist"] = shared.ErrAPIRequest

		_, err := newEngine(t, catalog, nil, "2024-06-02").Aggregate(context.Background(), programs("Morning Show"),
			AggregateTarget{ID: target.ID}, SyncOpts{}, nil)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}

func TestEngine_Clear(t *testing.T) {
	t.Run("removes every track", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		pl := catalog.AddPlaylist("Morning Show", "", "spotify:track:1", "spotify:track:2", "spotify:track:1")

		res, err := newEngine(t, catalog, nil, "2024-06-02").Clear(context.Background(), pl.ID, false, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Tracks != 3 || res.Removed != 2 {
			t.Errorf("unexpected result: %+v", res)
		}
		if len(catalog.Tracks[pl.ID]) != 0 {
			t.Errorf("playlist not cleared: %v", catalog.Tracks[pl.ID])
		}
	})

	t.Run("dry run only counts", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		pl := catalog.AddPlaylist("Morning Show", "", "spotify:track:1")

		res, err := newEngine(t, catalog, nil, "2024-06-02").Clear(context.Background(), pl.ID, true, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Tracks != 1 || res.Removed != 0 || catalog.Writes() != 0 {
			t.Errorf("unexpected dry run: %+v writes=%d", res, catalog.Writes())
		}
	})

	t.Run("empty playlist", func(t *testing.T) {
		catalog := tu.NewMockCatalog()
		pl := catalog.AddPlaylist("Morning Show", "")

		if _, err := newEngine(t, catalog, nil, "2024-06-02").Clear(context.Background(), pl.ID, false, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if catalog.Count("ClearPlaylist") != 0 {
			t.Error("expected no clear call")
		}
	})

	t.Run("unknown playlist", func(t *testing.T) {
		_, err := newEngine(t, tu.NewMockCatalog(), nil, "2024-06-02").Clear(context.Background(), "nope", false, nil)
		if !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("requires id", func(t *testing.T) {
		_, err := newEngine(t, tu.NewMockCatalog(), nil, "2024-06-02").Clear(context.Background(), "", false, nil)
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}
