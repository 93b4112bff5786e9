package resolver

import (
	"strings"
	"unicode"

	"github.com/desertthunder/radiosync/internal/models"
)

// MaxTermLength is the rune limit applied to each sanitized search term.
const MaxTermLength = 200

// Sanitize removes every rune that is not a letter, digit, underscore or whitespace and truncates the result to
// [MaxTermLength] runes. Letters and digits in any script are kept.
func Sanitize(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)

	if runes := []rune(cleaned); len(runes) > MaxTermLength {
		return string(runes[:MaxTermLength])
	}
	return cleaned
}

// BuildQuery renders the field-qualified catalog query for t. The album qualifier is omitted when the track has no
// album.
func BuildQuery(t models.Track) string {
	var b strings.Builder
	b.WriteString("track:")
	b.WriteString(Sanitize(t.Name))
	if album := Sanitize(t.Album); strings.TrimSpace(album) != "" {
		b.WriteString(" album:")
		b.WriteString(album)
	}
	b.WriteString(" artist:")
	b.WriteString(Sanitize(t.Artist))
	return b.String()
}
