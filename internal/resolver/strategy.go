package resolver

import (
	"fmt"
	"strings"

	"github.com/desertthunder/radiosync/internal/models"
	"github.com/desertthunder/radiosync/internal/shared"
	"github.com/xrash/smetrics"
)

// Strategy names accepted by resolver.strategy in the config file.
const (
	StrategyFirst = "first"
	StrategyScore = "score"
)

// Jaro-Winkler parameters: boost threshold and common prefix length.
const (
	jwBoost  = 0.7
	jwPrefix = 4
)

// Strategy chooses one catalog track from provider-ranked search candidates.
type Strategy interface {
	Pick(track models.Track, candidates []models.CatalogTrack) (models.CatalogTrack, bool)
}

// FirstMatch trusts the provider's ranking and takes the first candidate.
type FirstMatch struct{}

func (FirstMatch) Pick(_ models.Track, candidates []models.CatalogTrack) (models.CatalogTrack, bool) {
	if len(candidates) == 0 || URI(candidates[0]) == "" {
		return models.CatalogTrack{}, false
	}
	return candidates[0], true
}

// BestScore takes the candidate whose name and artist are most similar to the aired track, provided the combined
// similarity reaches MinScore. Ties keep provider order.
type BestScore struct {
	MinScore float64
}

func (b BestScore) Pick(track models.Track, candidates []models.CatalogTrack) (models.CatalogTrack, bool) {
	var best models.CatalogTrack
	bestScore := -1.0
	for _, c := range candidates {
		if URI(c) == "" {
			continue
		}
		if score := Score(track, c); score > bestScore {
			best, bestScore = c, score
		}
	}
	if bestScore < b.MinScore {
		return models.CatalogTrack{}, false
	}
	return best, true
}

// Score is the mean Jaro-Winkler similarity of the normalized names and artists, in [0, 1].
func Score(track models.Track, candidate models.CatalogTrack) float64 {
	name := smetrics.JaroWinkler(normalize(track.Name), normalize(candidate.Name), jwBoost, jwPrefix)
	artist := smetrics.JaroWinkler(normalize(track.Artist), normalize(candidate.Artist()), jwBoost, jwPrefix)
	return (name + artist) / 2
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(Sanitize(s))), " ")
}

// StrategyFor returns the strategy registered under name. An empty name selects [FirstMatch].
func StrategyFor(name string, minScore float64) (Strategy, error) {
	switch name {
	case "", StrategyFirst:
		return FirstMatch{}, nil
	case StrategyScore:
		return BestScore{MinScore: minScore}, nil
	default:
		return nil, fmt.Errorf("%w: unknown resolver strategy %q", shared.ErrInvalidConfig, name)
	}
}

// URI returns the candidate's track URI, deriving it from the ID when the provider omitted it.
func URI(c models.CatalogTrack) string {
	if c.URI != "" {
		return c.URI
	}
	if c.ID != "" {
		return "spotify:track:" + c.ID
	}
	return ""
}
