package tasks

import (
	"fmt"

	"github.com/desertthunder/radiosync/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Program string // Program slug, empty for playlist-level operations
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	CheckFreshness Phase = iota
	FetchEpisode
	ResolveTracks
	DiffPlaylist
	ApplyChanges
	CommitMarker
	Finished
	AggregatePlaylists
	ClearPlaylist
)

func (p Phase) String() string {
	switch p {
	case CheckFreshness:
		return "check_freshness"
	case FetchEpisode:
		return "fetch"
	case ResolveTracks:
		return "resolve"
	case DiffPlaylist:
		return "diff"
	case ApplyChanges:
		return "apply"
	case CommitMarker:
		return "commit_marker"
	case Finished:
		return "finished"
	case AggregatePlaylists:
		return "aggregate"
	case ClearPlaylist:
		return "clear"
	default:
		return ""
	}
}

func checkFreshnessUpdate(program, name string) ProgressUpdate {
	return ProgressUpdate{
		Program: program,
		Phase:   CheckFreshness,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Checking playlist %q...", name),
	}
}

func fetchEpisodeUpdate(program, source string) ProgressUpdate {
	return ProgressUpdate{
		Program: program,
		Phase:   FetchEpisode,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching latest episode from %s...", source),
	}
}

func foundEpisodeUpdate(program string, ep *models.Episode, kept int) ProgressUpdate {
	return ProgressUpdate{
		Program: program,
		Phase:   FetchEpisode,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found episode %s (%d tracks)", ep.Date.Format("2006-01-02"), kept),
		Data:    ep,
	}
}

func resolveTracksUpdate(program string, total int) ProgressUpdate {
	return ProgressUpdate{
		Program: program,
		Phase:   ResolveTracks,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Searching catalog for %d tracks...", total),
	}
}

func diffUpdate(program string, d Diff) ProgressUpdate {
	return ProgressUpdate{
		Program: program,
		Phase:   DiffPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("%d to add, %d to remove", len(d.ToAdd), len(d.ToRemove)),
		Data:    d,
	}
}

func applyUpdate(program string, step int, message string) ProgressUpdate {
	return ProgressUpdate{
		Program: program,
		Phase:   ApplyChanges,
		Step:    step,
		Total:   2,
		Message: message,
	}
}

func commitMarkerUpdate(program, description string) ProgressUpdate {
	return ProgressUpdate{
		Program: program,
		Phase:   CommitMarker,
		Step:    1,
		Total:   1,
		Message: "Updating playlist description...",
		Data:    description,
	}
}

func finishedUpdate(step, total int, res *SyncResult) ProgressUpdate {
	mark := "✓"
	if res.State == models.StateFailed {
		mark = "✗"
	}
	return ProgressUpdate{
		Program: res.Program,
		Phase:   Finished,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s: %s", step, total, mark, res.Program, res.State),
		Data:    res,
	}
}

func aggregateUpdate(step, total int, name string, tracks int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AggregatePlaylists,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s -- %d tracks", step, total, name, tracks),
	}
}

func clearUpdate(playlistID string, tracks int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ClearPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist %s has %d tracks", playlistID, tracks),
	}
}
