package resolver

import (
	"regexp"

	"github.com/desertthunder/radiosync/internal/models"
)

// Exclusion drops tracks whose name or artist matches a program's skip pattern. The zero value excludes nothing.
type Exclusion struct {
	pattern *regexp.Regexp
}

// NewExclusion wraps a compiled skip pattern. A nil pattern excludes nothing.
func NewExclusion(pattern *regexp.Regexp) Exclusion {
	return Exclusion{pattern: pattern}
}

// Excluded reports whether the pattern matches anywhere in the track name or artist.
func (e Exclusion) Excluded(t models.Track) bool {
	if e.pattern == nil {
		return false
	}
	return e.pattern.MatchString(t.Name) || e.pattern.MatchString(t.Artist)
}

// Filter returns the tracks that survive the exclusion, in order, with later duplicates (by [models.Track.Key])
// collapsed into the first. excluded counts tracks dropped by the pattern.
func (e Exclusion) Filter(tracks []models.Track) (kept []models.Track, excluded int) {
	seen := make(map[string]struct{}, len(tracks))
	kept = make([]models.Track, 0, len(tracks))
	for _, t := range tracks {
		if e.Excluded(t) {
			excluded++
			continue
		}
		key := t.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, t)
	}
	return kept, excluded
}
