package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/desertthunder/radiosync/internal/models"
	"github.com/desertthunder/radiosync/internal/shared"
)

// bbcDateLayout is the broadcast date format in the episode page's title attribute, e.g. "21 Sep 2025" or
// "5 Oct 2025". Days are not zero padded.
const bbcDateLayout = "2 Jan 2006"

// BBCSource scrapes the latest episode of a BBC radio programme from its public pages. Only the latest episode is
// addressable.
type BBCSource struct {
	client  *http.Client
	showURL string
}

// NewBBCSource creates a scraper for the programme index page in cfg.URL.
func NewBBCSource(cfg shared.SourceConfig, client *http.Client) *BBCSource {
	return &BBCSource{client: client, showURL: cfg.URL}
}

func (b *BBCSource) Name() string {
	return "bbc"
}

func (b *BBCSource) document(ctx context.Context, rawURL string) (*goquery.Document, error) {
	resp, err := get(ctx, b.client, rawURL, "text/html")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %w", shared.ErrSourceRequest, rawURL, err)
	}
	return doc, nil
}

// latestEpisodeURL returns the absolute URL of the first episode linked from the programme index.
func (b *BBCSource) latestEpisodeURL(ctx context.Context) (string, error) {
	doc, err := b.document(ctx, b.showURL)
	if err != nil {
		return "", err
	}

	href, ok := doc.Find("h2.programme__titles a[href]").First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return "", fmt.Errorf("%w: no episode link on %s", shared.ErrSourceRequest, b.showURL)
	}

	base, err := url.Parse(b.showURL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid show url %q: %w", shared.ErrInvalidConfig, b.showURL, err)
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("%w: invalid episode link %q: %w", shared.ErrSourceRequest, href, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// FetchLatest scrapes the music segments and broadcast date of the newest episode.
func (b *BBCSource) FetchLatest(ctx context.Context) (*models.Episode, error) {
	episodeURL, err := b.latestEpisodeURL(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := b.document(ctx, episodeURL)
	if err != nil {
		return nil, err
	}

	var tracks []models.Track
	doc.Find("li.segments-list__item--music div.segment__track").Each(func(_ int, s *goquery.Selection) {
		artist := strings.TrimSpace(s.Find("h3").First().Text())
		p := s.Find("p").First()
		name := strings.TrimSpace(p.Text())
		if name == "" || artist == "" {
			return
		}

		album := nextEm(p)
		tracks = append(tracks, models.Track{
			Name:   name,
			Artist: artist,
			Album:  strings.TrimSuffix(strings.TrimSpace(album.Text()), "."),
		})
	})

	title, ok := doc.Find("div.broadcast-event__time[title]").First().Attr("title")
	if !ok {
		return nil, fmt.Errorf("%w: no broadcast date on %s", shared.ErrSourceRequest, episodeURL)
	}
	date, err := time.Parse(bbcDateLayout, strings.TrimSpace(title))
	if err != nil {
		return nil, fmt.Errorf("%w: broadcast date %q: %w", shared.ErrSourceRequest, title, err)
	}

	return &models.Episode{
		ID:     path.Base(strings.TrimRight(episodeURL, "/")),
		Date:   date,
		Tracks: tracks,
	}, nil
}

// nextEm returns the first <em> following the start of p in document order: inside p, a later sibling, or nested
// in a later sibling.
func nextEm(p *goquery.Selection) *goquery.Selection {
	if em := p.Find("em").First(); em.Length() > 0 {
		return em
	}
	var found *goquery.Selection
	p.NextAll().EachWithBreak(func(_ int, sib *goquery.Selection) bool {
		if goquery.NodeName(sib) == "em" {
			found = sib
			return false
		}
		if em := sib.Find("em").First(); em.Length() > 0 {
			found = em
			return false
		}
		return true
	})
	if found == nil {
		return p.Slice(0, 0)
	}
	return found
}
