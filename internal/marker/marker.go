// package marker reads and writes the last-synced episode date stored in a playlist description.
//
// The description is rendered from a per-program template: `--updated--` becomes the episode date and `--name--` the
// program name. [Extract] recovers the date from any description [Render] produced.
package marker

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/radiosync/internal/shared"
)

const (
	updatedToken = "--updated--"
	nameToken    = "--name--"
	pendingValue = "pending"
)

var (
	markerRe  = regexp.MustCompile(`(?:Last episode|Date):?\s([0-9]{4})-([0-9]{2})-([0-9]{2})`)
	newlineRe = regexp.MustCompile(`\s*\n\s*`)
	labelRe   = regexp.MustCompile(`(?:Last episode|Date):?\s` + updatedToken)
	strayRe   = regexp.MustCompile(`((?:Last episode|Date):?)\s([0-9]{4}-[0-9]{2}-[0-9]{2})`)
)

// nbsp is not matched by \s, so a stray label followed by it no longer reads as a marker.
const nbsp = "\u00a0"

// Extract returns the first marker date in description. A missing marker or an impossible calendar date reports
// false.
func Extract(description string) (time.Time, bool) {
	m := markerRe.FindStringSubmatch(description)
	if m == nil {
		return time.Time{}, false
	}

	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])

	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || int(d.Month()) != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

// Render fills the template with the episode date and program name. Templates without a labelled `--updated--`
// ("Last episode --updated--" or "Date: --updated--") get " Last episode: YYYY-MM-DD." appended so [Extract] can
// always read the date back.
func Render(template string, date time.Time, programName string) string {
	return render(template, date.Format(shared.DateLayout), programName)
}

// Pending renders the description for a newly created playlist that has never been synced. The result carries no
// marker.
func Pending(template, programName string) string {
	return render(template, pendingValue, programName)
}

func render(template, updated, programName string) string {
	text := strings.TrimSpace(newlineRe.ReplaceAllString(template, " "))
	if !labelRe.MatchString(text) {
		if text != "" {
			text += " "
		}
		text += "Last episode: " + updatedToken + "."
	}

	text = strings.ReplaceAll(text, nameToken, programName)
	text = newlineRe.ReplaceAllString(text, " ")
	// Only the date written below may read as a marker: names and template text never shadow it.
	text = strayRe.ReplaceAllString(text, "${1}"+nbsp+"${2}")
	return strings.ReplaceAll(text, updatedToken, updated)
}
