package formatter

import (
	"encoding/csv"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/radiosync/internal/models"
	"github.com/desertthunder/radiosync/internal/shared"
	"github.com/desertthunder/radiosync/internal/tasks"
	th "github.com/desertthunder/radiosync/internal/testing"
)

func sampleResults() []*tasks.SyncResult {
	return []*tasks.SyncResult{
		{
			Program:     "morning",
			State:       models.StateSynced,
			EpisodeDate: "2024-06-01",
			Tracks:      12,
			Excluded:    1,
			Resolved:    10,
			Missed:      1,
			Misses:      []models.Track{{Name: "Lost Song", Artist: "Obscure Band"}},
			Added:       8,
			Removed:     3,
		},
		{Program: "late", State: models.StateSkipped, Reason: "up to date, last episode 2024-06-02"},
		{Program: "world", State: models.StateFailed, Error: "API request failed: status 500"},
	}
}

func TestSyncReports(t *testing.T) {
	t.Run("SyncReportToText", func(t *testing.T) {
		data, err := SyncReportToText(sampleResults(), nil)
		if err != nil {
			t.Fatalf("SyncReportToText failed: %v", err)
		}
		output := string(data)

		for _, want := range []string{
			"✓ morning synced",
			"2024-06-01  +8 -3",
			"(12 tracks, 1 excluded, 1 unresolved)",
			"? Obscure Band - Lost Song",
			"- late",
			"up to date, last episode 2024-06-02",
			"✗ world",
			"status 500",
			"3 programs: 1 synced, 1 skipped, 1 failed",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("text report missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("SyncReportToText marks dry runs", func(t *testing.T) {
		results := []*tasks.SyncResult{{Program: "morning", State: models.StateSynced, DryRun: true}}
		data, _ := SyncReportToText(results, nil)
		if !strings.Contains(string(data), "[dry run]") {
			t.Errorf("expected dry run marker, got %s", data)
		}
	})

	t.Run("SyncReportToText with palette keeps content", func(t *testing.T) {
		data, err := SyncReportToText(sampleResults(), DefaultPalette())
		if err != nil {
			t.Fatalf("SyncReportToText failed: %v", err)
		}
		if !strings.Contains(string(data), "morning") || !strings.Contains(string(data), "Lost Song") {
			t.Errorf("styled report lost content: %s", data)
		}
	})

	t.Run("SyncReportToMarkdown", func(t *testing.T) {
		results := sampleResults()
		results[2].Error = "bad | pipe"
		data, err := SyncReportToMarkdown(results)
		if err != nil {
			t.Fatalf("SyncReportToMarkdown failed: %v", err)
		}
		output := string(data)

		if !strings.Contains(output, "| Program | State |") {
			t.Errorf("Markdown missing header, got: %s", output)
		}
		if !strings.Contains(output, "| morning | synced | 2024-06-01 | 8 | 3 | 1 |") {
			t.Errorf("Markdown missing synced row, got: %s", output)
		}
		if !strings.Contains(output, `bad \| pipe`) {
			t.Errorf("Markdown did not escape pipe, got: %s", output)
		}
	})
}

func TestAggregateAndClear(t *testing.T) {
	t.Run("AggregateToText", func(t *testing.T) {
		res := &tasks.AggregateResult{
			PlaylistID: "agg",
			Sources:    map[string]int{"morning": 10, "evening": 5},
			Missing:    []string{"late"},
			Total:      15,
			Shared:     4,
			Added:      6,
			Removed:    2,
			DryRun:     true,
		}
		data, err := AggregateToText(res, nil)
		if err != nil {
			t.Fatalf("AggregateToText failed: %v", err)
		}
		output := string(data)

		if strings.Index(output, "evening") > strings.Index(output, "morning") {
			t.Errorf("sources should be sorted, got:\n%s", output)
		}
		for _, want := range []string{"Aggregate agg", "no playlist", "Total 15, shared 4, +6 -2", "[dry run]"} {
			if !strings.Contains(output, want) {
				t.Errorf("missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ClearToText", func(t *testing.T) {
		data, _ := ClearToText(&tasks.ClearResult{PlaylistID: "p1", Tracks: 4, DryRun: true}, nil)
		if !strings.Contains(string(data), "playlist p1 has 4 tracks") {
			t.Errorf("unexpected dry run output: %s", data)
		}

		data, _ = ClearToText(&tasks.ClearResult{PlaylistID: "p1", Tracks: 4, Removed: 3}, nil)
		if !strings.Contains(string(data), "removed 3 tracks from p1") {
			t.Errorf("unexpected output: %s", data)
		}
	})
}

func TestProgramsToText(t *testing.T) {
	programs := []shared.ProgramConfig{
		{
			Slug:        "morning",
			Name:        "Morning Show",
			SkipPattern: "^LIST",
			StartDate:   "2023-07-31",
			Source:      shared.SourceConfig{Kind: shared.SourceComposer, Widget: "w1", ProgramID: "p1"},
		},
		{Slug: "world", Name: "World Service", Source: shared.SourceConfig{Kind: shared.SourceBBC, URL: "https://bbc.example"}},
	}

	data, err := ProgramsToText(programs, nil)
	if err != nil {
		t.Fatalf("ProgramsToText failed: %v", err)
	}
	output := string(data)
	for _, want := range []string{"Morning Show", "composer (widget w1, program p1)", "skip: ^LIST", "since: 2023-07-31", "bbc (https://bbc.example)"} {
		if !strings.Contains(output, want) {
			t.Errorf("missing %q, got:\n%s", want, output)
		}
	}
}

func TestRuns(t *testing.T) {
	started := time.Date(2024, 6, 2, 10, 0, 0, 0, time.UTC)
	runs := []*models.SyncRun{
		{
			ID: "r1", Program: "morning", State: models.StateSynced, EpisodeDate: "2024-06-01",
			Tracks: 12, Resolved: 10, Added: 8, Removed: 3, StartedAt: started, FinishedAt: started.Add(time.Minute),
		},
		{ID: "r2", Program: "world", State: models.StateFailed, Error: "boom", StartedAt: started},
	}

	t.Run("RunsToText", func(t *testing.T) {
		data, err := RunsToText(runs, nil)
		if err != nil {
			t.Fatalf("RunsToText failed: %v", err)
		}
		output := string(data)
		if !strings.Contains(output, "2024-06-01 +8 -3") || !strings.Contains(output, "boom") {
			t.Errorf("unexpected output:\n%s", output)
		}
	})

	t.Run("RunsToText empty", func(t *testing.T) {
		data, _ := RunsToText(nil, nil)
		if !strings.Contains(string(data), "No runs recorded") {
			t.Errorf("unexpected output: %s", data)
		}
	})

	t.Run("RunsToCSV", func(t *testing.T) {
		data, err := RunsToCSV(runs)
		if err != nil {
			t.Fatalf("RunsToCSV failed: %v", err)
		}

		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		if err != nil {
			t.Fatalf("invalid CSV: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("expected header + 2 rows, got %d", len(records))
		}
		if records[0][0] != "ID" || records[1][1] != "morning" || records[1][8] != "8" {
			t.Errorf("unexpected records: %v", records[:2])
		}
		if records[1][12] != "2024-06-02T10:00:00Z" {
			t.Errorf("unexpected started_at %q", records[1][12])
		}
	})

	t.Run("WriteFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "runs.csv")
		if err := WriteFile(path, []byte("ID\n")); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		th.AssertFileExists(t, path)
		if got := th.MustReadFile(t, path); got != "ID\n" {
			t.Errorf("unexpected contents %q", got)
		}
	})
}

func TestMark(t *testing.T) {
	tests := map[models.SyncState]string{
		models.StateSynced:  "✓",
		models.StateFailed:  "✗",
		models.StateSkipped: "-",
	}
	for state, want := range tests {
		if got := Mark(state); got != want {
			t.Errorf("Mark(%s) = %q, want %q", state, got, want)
		}
	}
}
