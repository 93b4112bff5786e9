package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/radiosync/internal/formatter"
	"github.com/desertthunder/radiosync/internal/models"
	"github.com/desertthunder/radiosync/internal/shared"
	"github.com/desertthunder/radiosync/internal/tasks"
	tu "github.com/desertthunder/radiosync/internal/testing"
	"golang.org/x/oauth2"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			catalog := tu.NewMockCatalog()
			palette := formatter.DefaultPalette()

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Catalog:    catalog,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Palette:    palette,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
			if runner.catalog != catalog {
				t.Error("expected catalog to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.palette != palette {
				t.Error("expected palette to be set")
			}
		})

		t.Run("with no options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
			if runner.now == nil {
				t.Error("expected clock to default to time.Now")
			}
			if runner.palette != nil {
				t.Error("expected palette to stay unset")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, true)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			expected := `{"key":"value"}` + "\n"
			if result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			// channels cannot be marshaled to JSON
			data := make(chan int)
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			data := map[string]string{"key": "value"}
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writePlain("hello %s", "world")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("writes plain text without formatting", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writePlain("simple text")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if result != "simple text" {
				t.Errorf("expected 'simple text', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			err := runner.writePlain("test")

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		var names []string
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names = append(names, cmd.Name)
		}

		for _, want := range []string{"sync", "aggregate", "programs", "playlist", "history", "cache", "auth", "setup"} {
			if !slices.Contains(names, want) {
				t.Errorf("expected %q to be registered, got %v", want, names)
			}
		}
	})

	t.Run("saveTokens", func(t *testing.T) {
		bundle := func() *shared.Credentials {
			return &shared.Credentials{
				AccessToken:  "old_access",
				RefreshToken: "old_refresh",
				ClientID:     "client",
				ClientSecret: "secret",
			}
		}

		t.Run("writes the bundle", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "auth.json")
			config := shared.DefaultConfig()
			config.Credentials.Path = path

			runner := NewRunner(RunnerOpts{Config: config})
			runner.credentials = bundle()

			expiry := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
			token := &oauth2.Token{AccessToken: "new_access", RefreshToken: "new_refresh", Expiry: expiry}
			if err := runner.saveTokens(token); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			loaded, err := shared.LoadCredentials(path)
			if err != nil {
				t.Fatalf("failed to reload credentials: %v", err)
			}
			if loaded.AccessToken != "new_access" {
				t.Errorf("expected access token to be updated, got %s", loaded.AccessToken)
			}
			if loaded.RefreshToken != "new_refresh" {
				t.Errorf("expected refresh token to be updated, got %s", loaded.RefreshToken)
			}
			if loaded.ClientID != "client" || loaded.ClientSecret != "secret" {
				t.Errorf("expected client credentials to survive, got %+v", loaded)
			}
			if !loaded.Expiry.Equal(expiry) {
				t.Errorf("expected expiry %v, got %v", expiry, loaded.Expiry)
			}
		})

		t.Run("keeps the refresh token when omitted", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Credentials.Path = ""

			runner := NewRunner(RunnerOpts{Config: config})
			runner.credentials = bundle()

			if err := runner.saveTokens(&oauth2.Token{AccessToken: "new_access"}); err != nil {
				t.Fatalf("expected no error with empty path, got %v", err)
			}
			if runner.credentials.AccessToken != "new_access" {
				t.Error("expected bundle to be updated in memory")
			}
			if runner.credentials.RefreshToken != "old_refresh" {
				t.Errorf("expected refresh token to be kept, got %s", runner.credentials.RefreshToken)
			}
		})

		t.Run("rejects nil token", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			runner.credentials = bundle()

			err := runner.saveTokens(nil)
			if !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})

		t.Run("requires a loaded bundle", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			err := runner.saveTokens(&oauth2.Token{AccessToken: "test"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("handles save failure", func(t *testing.T) {
			dir := t.TempDir()
			blocker := filepath.Join(dir, "file")
			if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
				t.Fatal(err)
			}

			config := shared.DefaultConfig()
			config.Credentials.Path = filepath.Join(blocker, "auth.json")
			runner := NewRunner(RunnerOpts{Config: config})
			runner.credentials = bundle()

			err := runner.saveTokens(&oauth2.Token{AccessToken: "test"})
			if err == nil {
				t.Fatal("expected error with invalid path")
			}
			if !strings.Contains(err.Error(), "failed to save credentials") {
				t.Errorf("expected save error, got %v", err)
			}
		})
	})

	t.Run("requireConfig", func(t *testing.T) {
		t.Run("without programs", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Programs = nil
			runner := NewRunner(RunnerOpts{Config: config, ConfigPath: "missing.toml"})

			err := runner.requireConfig()
			if !errors.Is(err, shared.ErrMissingConfig) {
				t.Errorf("expected ErrMissingConfig, got %v", err)
			}
		})

		t.Run("with an invalid cutoff", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Programs = map[string]shared.ProgramConfig{"morning": morningProgram("http://localhost")}
			config.Sync.Cutoff = "June"
			runner := NewRunner(RunnerOpts{Config: config})

			err := runner.requireConfig()
			if !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	})

	t.Run("owner", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Catalog.UserID = "owner"
		runner := NewRunner(RunnerOpts{Config: config, Catalog: tu.NewMockCatalog()})

		owner, err := runner.owner(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if owner != "owner" {
			t.Errorf("expected configured owner, got %q", owner)
		}
	})

	t.Run("journal", func(t *testing.T) {
		t.Run("disabled", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Database.Path = ""
			runner := NewRunner(RunnerOpts{Config: config})

			if runner.journal() != nil {
				t.Error("expected no journal with an empty database path")
			}
		})

		t.Run("opens once", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Database.Path = filepath.Join(t.TempDir(), "radiosync.db")
			runner := NewRunner(RunnerOpts{Config: config})

			db := runner.journal()
			if db == nil {
				t.Fatal("expected journal to open")
			}
			if runner.journal() != db {
				t.Error("expected the same handle on the second call")
			}
			if err := runner.close(context.Background(), nil); err != nil {
				t.Errorf("expected close to succeed, got %v", err)
			}
			if runner.db != nil {
				t.Error("expected handle to be released")
			}
		})
	})
}

const composerEpisode = `{
  "playlist": [{
    "date": "2024-06-01",
    "episode_id": "ep-1",
    "playlist": [
      {"trackName": "LIST intro", "artistName": "Host"},
      {"trackName": "Song", "artistName": "Band", "collectionName": "LP"}
    ]
  }]
}`

// composerServer serves one episode aired on 2024-06-01 and answers 500 for the "broken" program.
func composerServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("prog_id") == "broken":
			http.Error(w, "upstream down", http.StatusInternalServerError)
		case q.Get("datestamp") == "2024-06-01" || q.Get("datestamp") == "":
			fmt.Fprint(w, composerEpisode)
		default:
			fmt.Fprint(w, `{"playlist": []}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func morningProgram(baseURL string) shared.ProgramConfig {
	return shared.ProgramConfig{
		Slug:        "morning",
		Name:        "Morning Show",
		Description: "Fresh picks.",
		SkipPattern: "^LIST",
		Source:      shared.SourceConfig{Kind: "composer", Widget: "w", ProgramID: "p", BaseURL: baseURL},
	}
}

const testConfig = `
[catalog]
user_id = "owner"
max_retries = 0

[resolver]
cache = true

[sync]
cutoff = "2024-05-25"

[programs.morning]
name = "Morning Show"
description = "Fresh picks."
skip_pattern = "^LIST"

[programs.morning.source]
kind = "composer"
widget = "w"
program_id = "p"
base_url = "%[1]s"
`

const brokenProgram = `
[programs.broken]
name = "Broken Show"

[programs.broken.source]
kind = "composer"
widget = "w"
program_id = "broken"
base_url = "%[1]s"
`

type cliHarness struct {
	t       *testing.T
	dir     string
	config  string
	catalog *tu.MockCatalog
}

// newHarness writes a config pointing at a fake composer server and a journal in a temp dir.
func newHarness(t *testing.T, extra ...string) *cliHarness {
	t.Helper()
	srv := composerServer(t)
	dir := t.TempDir()

	content := fmt.Sprintf(testConfig, srv.URL)
	for _, e := range extra {
		content += fmt.Sprintf(e, srv.URL)
	}
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv(shared.EnvUserID, "owner")
	t.Setenv(shared.EnvDatabase, filepath.Join(dir, "radiosync.db"))

	catalog := tu.NewMockCatalog()
	catalog.Stub("track:Song artist:Band", "spotify:track:123")
	return &cliHarness{t: t, dir: dir, config: path, catalog: catalog}
}

// run executes one CLI invocation with a fresh runner and returns its stdout.
func (h *cliHarness) run(args ...string) (string, error) {
	h.t.Helper()
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Catalog: h.catalog,
		Logger:  shared.NewLogger(&bytes.Buffer{}),
		Output:  output,
		Now:     func() time.Time { return time.Date(2024, 6, 2, 10, 0, 0, 0, time.UTC) },
	})

	argv := append([]string{"radiosync", "--config", h.config, "--env", filepath.Join(h.dir, ".env")}, args...)
	err := runner.app().Run(context.Background(), argv)
	return output.String(), err
}

func TestApp(t *testing.T) {
	t.Run("sync", func(t *testing.T) {
		t.Run("creates and fills the playlist", func(t *testing.T) {
			h := newHarness(t)

			out, err := h.run("sync", "--json", "morning")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			var results []tasks.SyncResult
			if err := json.Unmarshal([]byte(out), &results); err != nil {
				t.Fatalf("expected JSON output, got %q: %v", out, err)
			}
			if len(results) != 1 {
				t.Fatalf("expected 1 result, got %d", len(results))
			}
			res := results[0]
			if res.State != models.StateSynced || !res.Created || res.Added != 1 || res.Excluded != 1 {
				t.Errorf("unexpected result %+v", res)
			}

			playlist := h.catalog.PlaylistByName("Morning Show")
			if playlist == nil {
				t.Fatal("expected playlist to be created")
			}
			if got := h.catalog.Description(playlist.ID); got != "Fresh picks. Last episode: 2024-06-01." {
				t.Errorf("unexpected description %q", got)
			}
		})

		t.Run("second run skips", func(t *testing.T) {
			h := newHarness(t)
			if _, err := h.run("sync"); err != nil {
				t.Fatalf("first sync failed: %v", err)
			}
			writes := h.catalog.Writes()

			out, err := h.run("sync")
			if err != nil {
				t.Fatalf("second sync failed: %v", err)
			}
			if h.catalog.Writes() != writes {
				t.Errorf("expected no writes on the second run, got %d", h.catalog.Writes()-writes)
			}
			if !strings.Contains(out, "skipped") {
				t.Errorf("expected skipped report, got %q", out)
			}
		})

		t.Run("dry run writes nothing", func(t *testing.T) {
			h := newHarness(t)
			h.catalog.AddPlaylist("Morning Show", "Fresh picks.")

			out, err := h.run("sync", "--dry-run", "--markdown")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if h.catalog.Writes() != 0 {
				t.Errorf("expected no writes, got %d", h.catalog.Writes())
			}
			if !strings.Contains(out, "| morning |") {
				t.Errorf("expected markdown row for morning, got %q", out)
			}
		})

		t.Run("failed program fails the command", func(t *testing.T) {
			h := newHarness(t, brokenProgram)

			out, err := h.run("sync")
			if !errors.Is(err, shared.ErrSyncFailed) {
				t.Fatalf("expected ErrSyncFailed, got %v", err)
			}
			if h.catalog.PlaylistByName("Morning Show") == nil {
				t.Error("expected the healthy program to sync anyway")
			}
			if !strings.Contains(out, "1 failed") {
				t.Errorf("expected failure summary, got %q", out)
			}
		})

		t.Run("unknown program", func(t *testing.T) {
			h := newHarness(t)

			_, err := h.run("sync", "evening")
			if !errors.Is(err, shared.ErrUnknownProgram) {
				t.Errorf("expected ErrUnknownProgram, got %v", err)
			}
		})
	})

	t.Run("history", func(t *testing.T) {
		h := newHarness(t)
		if _, err := h.run("sync"); err != nil {
			t.Fatalf("sync failed: %v", err)
		}

		t.Run("csv", func(t *testing.T) {
			out, err := h.run("history", "--format", "csv")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			lines := strings.Split(strings.TrimSpace(out), "\n")
			if len(lines) != 2 {
				t.Fatalf("expected header and one run, got %q", out)
			}
			if !strings.Contains(lines[1], "morning,synced,2024-06-01") {
				t.Errorf("unexpected record %q", lines[1])
			}
		})

		t.Run("to file", func(t *testing.T) {
			path := filepath.Join(h.dir, "history.json")
			if _, err := h.run("history", "--format", "json", "--output", path); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			tu.AssertFileExists(t, path)
			if !strings.Contains(tu.MustReadFile(t, path), `"program": "morning"`) {
				t.Error("expected journaled run in the report")
			}
		})

		t.Run("rejects unknown state", func(t *testing.T) {
			_, err := h.run("history", "--state", "pending")
			if !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	})

	t.Run("programs", func(t *testing.T) {
		h := newHarness(t)

		out, err := h.run("programs")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out, "Morning Show") {
			t.Errorf("expected program listing, got %q", out)
		}
	})

	t.Run("playlist", func(t *testing.T) {
		t.Run("tracks by name", func(t *testing.T) {
			h := newHarness(t)
			h.catalog.AddPlaylist("Morning Show", "", "spotify:track:1", "spotify:track:2")

			out, err := h.run("playlist", "tracks", "--name", "Morning Show")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if out != "spotify:track:1\nspotify:track:2\n" {
				t.Errorf("unexpected output %q", out)
			}
		})

		t.Run("clear", func(t *testing.T) {
			h := newHarness(t)
			playlist := h.catalog.AddPlaylist("Morning Show", "", "spotify:track:1", "spotify:track:2")

			if _, err := h.run("playlist", "clear", "--id", playlist.ID); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			uris, _ := h.catalog.PlaylistTracks(context.Background(), playlist.ID)
			if len(uris) != 0 {
				t.Errorf("expected empty playlist, got %v", uris)
			}
		})

		t.Run("requires exactly one target", func(t *testing.T) {
			h := newHarness(t)

			if _, err := h.run("playlist", "tracks"); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
			if _, err := h.run("playlist", "tracks", "--id", "a", "--name", "b"); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	})

	t.Run("cache", func(t *testing.T) {
		h := newHarness(t)
		if _, err := h.run("sync"); err != nil {
			t.Fatalf("sync failed: %v", err)
		}

		out, err := h.run("cache", "stats")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.HasPrefix(out, "1 cached resolutions") {
			t.Errorf("expected one cached resolution, got %q", out)
		}

		if out, err = h.run("cache", "forget", "Band", "Song"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out, "Forgot") {
			t.Errorf("expected confirmation, got %q", out)
		}

		if out, err = h.run("cache", "forget", "Band", "Song"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out, "No cached resolution") {
			t.Errorf("expected miss message, got %q", out)
		}

		if _, err := h.run("cache", "forget", "Band"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("setup", func(t *testing.T) {
		h := newHarness(t)
		h.config = filepath.Join(h.dir, "new.toml")

		out, err := h.run("setup")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, h.config)
		tu.AssertFileExists(t, filepath.Join(h.dir, "radiosync.db"))
		if !strings.Contains(out, "Created") || !strings.Contains(out, "Database ready") {
			t.Errorf("unexpected output %q", out)
		}

		if out, err = h.run("setup"); err != nil {
			t.Fatalf("expected rerun to succeed, got %v", err)
		}
		if !strings.Contains(out, "Using existing") {
			t.Errorf("expected existing config to be kept, got %q", out)
		}
	})

	t.Run("missing config", func(t *testing.T) {
		h := newHarness(t)
		h.config = filepath.Join(h.dir, "absent.toml")

		_, err := h.run("sync")
		if !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})
}

func TestCallbackAddr(t *testing.T) {
	tests := []struct {
		name     string
		redirect string
		want     string
	}{
		{name: "redirect uri port", redirect: "http://127.0.0.1:8888/callback", want: "127.0.0.1:8888"},
		{name: "no port falls back to server", redirect: "https://example.com/callback", want: "127.0.0.1:3000"},
		{name: "unparseable", redirect: "://bad", want: "127.0.0.1:3000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Credentials.RedirectURI = tt.redirect
			runner := NewRunner(RunnerOpts{Config: config})

			if got := runner.callbackAddr(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
