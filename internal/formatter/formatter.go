// package formatter renders sync, aggregate and journal reports as plain or styled text, Markdown and CSV.
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/radiosync/internal/models"
	"github.com/desertthunder/radiosync/internal/shared"
	"github.com/desertthunder/radiosync/internal/tasks"
)

// SyncReportToText renders one line per program followed by unresolved tracks and a summary. A nil palette gives
// plain text.
func SyncReportToText(results []*tasks.SyncResult, p *Palette) ([]byte, error) {
	var buf bytes.Buffer
	width := slugWidth(results)

	for _, res := range results {
		label := fmt.Sprintf("%s %-*s %-8s", Mark(res.State), width, res.Program, res.State)
		buf.WriteString(p.State(res.State, label))

		switch res.State {
		case models.StateSynced:
			fmt.Fprintf(&buf, " %s  +%d -%d", res.EpisodeDate, res.Added, res.Removed)
			fmt.Fprintf(&buf, "  (%d tracks, %d excluded, %d unresolved)", res.Tracks, res.Excluded, res.Missed)
			if res.DryRun {
				buf.WriteString(" " + p.Warn("[dry run]"))
			}
		case models.StateFailed:
			buf.WriteString(" " + p.Err(res.Error))
		default:
			buf.WriteString(" " + p.Help(res.Reason))
		}
		buf.WriteString("\n")

		for _, miss := range res.Misses {
			fmt.Fprintf(&buf, "    %s %s - %s\n", p.Warn("?"), miss.Artist, miss.Name)
		}
	}

	synced, skipped, failed := tally(results)
	buf.WriteString("\n")
	buf.WriteString(p.Title(fmt.Sprintf("%d programs: %d synced, %d skipped, %d failed", len(results), synced, skipped, failed)))
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// SyncReportToMarkdown renders the results as a Markdown table.
func SyncReportToMarkdown(results []*tasks.SyncResult) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Sync report\n\n")
	buf.WriteString("| Program | State | Episode | Added | Removed | Unresolved | Note |\n")
	buf.WriteString("|---|---|---|---|---|---|---|\n")
	for _, res := range results {
		note := res.Reason
		if res.State == models.StateFailed {
			note = res.Error
		}
		fmt.Fprintf(&buf, "| %s | %s | %s | %d | %d | %d | %s |\n",
			res.Program, res.State, res.EpisodeDate, res.Added, res.Removed, res.Missed, escapeCell(note))
	}
	return buf.Bytes(), nil
}

// AggregateToText renders the outcome of an aggregate run.
func AggregateToText(res *tasks.AggregateResult, p *Palette) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(p.Title("Aggregate " + res.PlaylistID))
	buf.WriteString("\n")
	for _, slug := range slices.Sorted(maps.Keys(res.Sources)) {
		fmt.Fprintf(&buf, "  %-20s %d tracks\n", slug, res.Sources[slug])
	}
	for _, slug := range res.Missing {
		fmt.Fprintf(&buf, "  %-20s %s\n", slug, p.Warn("no playlist"))
	}
	fmt.Fprintf(&buf, "Total %d, shared %d, +%d -%d\n", res.Total, res.Shared, res.Added, res.Removed)
	if res.DryRun {
		buf.WriteString(p.Warn("[dry run] nothing written") + "\n")
	}
	return buf.Bytes(), nil
}

// ClearToText renders the outcome of a clear.
func ClearToText(res *tasks.ClearResult, p *Palette) ([]byte, error) {
	if res.DryRun {
		return fmt.Appendf(nil, "%s playlist %s has %d tracks\n", p.Warn("[dry run]"), res.PlaylistID, res.Tracks), nil
	}
	return fmt.Appendf(nil, "%s removed %d tracks from %s\n", p.OK("✓"), res.Removed, res.PlaylistID), nil
}

// ProgramsToText lists configured programs with their source and skip pattern.
func ProgramsToText(programs []shared.ProgramConfig, p *Palette) ([]byte, error) {
	var buf bytes.Buffer
	for _, program := range programs {
		fmt.Fprintf(&buf, "%-20s %s\n", program.Slug, p.Title(program.Name))
		fmt.Fprintf(&buf, "%-20s source: %s\n", "", describeSource(program.Source))
		if program.SkipPattern != "" {
			fmt.Fprintf(&buf, "%-20s skip: %s\n", "", p.Help(program.SkipPattern))
		}
		if program.StartDate != "" {
			fmt.Fprintf(&buf, "%-20s since: %s\n", "", program.StartDate)
		}
	}
	return buf.Bytes(), nil
}

// RunsToText renders journaled runs newest first as they were given.
func RunsToText(runs []*models.SyncRun, p *Palette) ([]byte, error) {
	var buf bytes.Buffer
	if len(runs) == 0 {
		buf.WriteString(p.Help("No runs recorded") + "\n")
		return buf.Bytes(), nil
	}

	for _, run := range runs {
		label := fmt.Sprintf("%s %-8s", Mark(run.State), run.State)
		fmt.Fprintf(&buf, "%s  %s  %-16s", run.StartedAt.Local().Format(time.DateTime), p.State(run.State, label), run.Program)
		if run.EpisodeDate != "" {
			fmt.Fprintf(&buf, " %s +%d -%d", run.EpisodeDate, run.Added, run.Removed)
		}
		if run.DryRun {
			buf.WriteString(" " + p.Warn("[dry run]"))
		}
		if run.Error != "" {
			buf.WriteString(" " + p.Err(run.Error))
		}
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

// RunsToCSV converts journaled runs to CSV with columns: ID, Program, State, Episode, Tracks, Excluded, Resolved,
// Missed, Added, Removed, DryRun, Error, StartedAt, FinishedAt
func RunsToCSV(runs []*models.SyncRun) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{
		"ID", "Program", "State", "Episode", "Tracks", "Excluded", "Resolved", "Missed", "Added", "Removed",
		"DryRun", "Error", "StartedAt", "FinishedAt",
	}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, run := range runs {
		record := []string{
			run.ID,
			run.Program,
			string(run.State),
			run.EpisodeDate,
			strconv.Itoa(run.Tracks),
			strconv.Itoa(run.Excluded),
			strconv.Itoa(run.Resolved),
			strconv.Itoa(run.Missed),
			strconv.Itoa(run.Added),
			strconv.Itoa(run.Removed),
			strconv.FormatBool(run.DryRun),
			run.Error,
			run.StartedAt.UTC().Format(time.RFC3339),
			run.FinishedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile writes a rendered report to path, creating or truncating it.
func WriteFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func tally(results []*tasks.SyncResult) (synced, skipped, failed int) {
	for _, res := range results {
		switch res.State {
		case models.StateSynced:
			synced++
		case models.StateFailed:
			failed++
		default:
			skipped++
		}
	}
	return synced, skipped, failed
}

func slugWidth(results []*tasks.SyncResult) int {
	width := 0
	for _, res := range results {
		width = max(width, len(res.Program))
	}
	return width
}

func describeSource(src shared.SourceConfig) string {
	switch src.Kind {
	case shared.SourceComposer:
		return fmt.Sprintf("composer (widget %s, program %s)", src.Widget, src.ProgramID)
	case shared.SourceBBC:
		return fmt.Sprintf("bbc (%s)", src.URL)
	default:
		return src.Kind
	}
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
