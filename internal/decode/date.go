// internal/decode/date.go
package decode

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	dps "github.com/markusmobius/go-dateparser"
)

const (
	monthPattern   = `Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|June?|July?|Aug(?:ust)?|Sep(?:t(?:ember)?)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?`
	weekdayPattern = `Mon(?:day)?|Tue(?:s(?:day)?)?|Wed(?:nesday)?|Thu(?:r(?:s(?:day)?)?)?|Fri(?:day)?|Sat(?:urday)?|Sun(?:day)?`
	dayPattern     = `\d{1,2}`
	yearPattern    = `\d{4}`
	clockPattern   = `\d{1,2}:\d{2}(?:\s?[AaPp][Mm])?`
)

var (
	mdDate = `(?:` + monthPattern + `)\s` + dayPattern + `(?:,?\s` + yearPattern + `)?`
	dmDate = dayPattern + `\s(?:` + monthPattern + `)(?:,?\s` + yearPattern + `)?`

	anyDate = mdDate + `|` + dmDate + `|Today|Yesterday|` + weekdayPattern

	relativePattern = `\b\d{1,2}\s?(?:yrs?|years?)\b` +
		`|\b\d{1,2}\s?(?:mths?|mos?|months?)\b` +
		`|\b\d{1,2}\s?(?:wks?|weeks?)\b` +
		`|\b\d{1,2}\s?(?:d|days?)\b` +
		`|\b\d{1,2}\s?(?:h|hrs?|hours?)\b` +
		`|\b\d{1,2}\s?(?:mins?|minutes?)\b` +
		`|\b\d{1,2}\s?(?:s|secs?|seconds?)\b` +
		`|\bJust now\b`

	// Ordered alternatives: a full timestamp beats a relative delta beats a bare date.
	dateTimeRegex = regexp.MustCompile(`(?i)(?:` + anyDate + `)\sat\s` + clockPattern +
		`|` + relativePattern +
		`|\b(?:` + mdDate + `|` + dmDate + `)\b` +
		`|\b(?:Today|Yesterday)\b`)
	weekdayRegex = regexp.MustCompile(`(?i)\b(?:` + weekdayPattern + `)\b`)

	atRegex       = regexp.MustCompile(`(?i)\sat\s`)
	relativeRegex = regexp.MustCompile(`(?i)^(\d{1,2})\s?([a-z]+)$`)
)

// DateParser turns the site's human readable timestamps into times. Dates without
// a clock resolve against the start of the current day in Location.
type DateParser struct {
	Now      func() time.Time
	Location *time.Location
	// Languages restricts the natural language parser, "en" when empty.
	Languages []string
}

// NewDateParser creates a parser using the wall clock and local time zone.
func NewDateParser() *DateParser {
	return &DateParser{Now: time.Now, Location: time.Local}
}

var defaultParser = NewDateParser()

// ParseDateTime parses text with the default parser.
func ParseDateTime(text string, search bool) *time.Time {
	return defaultParser.Parse(text, search)
}

// Parse returns the time described by text, or nil when nothing date-like is found.
// With search set, the first date-shaped substring of text is used; otherwise text
// must be a date on its own, and other absolute forms are handed to dateparse.
func (p *DateParser) Parse(text string, search bool) *time.Time {
	text = strings.Join(strings.Fields(strings.ReplaceAll(text, "\u00a0", " ")), " ")
	if text == "" {
		return nil
	}

	candidate := ""
	if search {
		candidate = dateTimeRegex.FindString(text)
		if candidate == "" {
			candidate = weekdayRegex.FindString(text)
		}
	} else if loc := dateTimeRegex.FindStringIndex(text); loc != nil && loc[0] == 0 && loc[1] == len(text) {
		candidate = text
	} else if weekdayRegex.MatchString(text) && len(weekdayRegex.FindString(text)) == len(text) {
		candidate = text
	}

	if candidate != "" {
		if t, ok := p.resolve(candidate); ok {
			return &t
		}
	}
	if search {
		return nil
	}

	t, err := dateparse.ParseIn(text, p.location())
	if err != nil {
		return nil
	}
	return &t
}

func (p *DateParser) now() time.Time {
	if p.Now == nil {
		return time.Now().In(p.location())
	}
	return p.Now().In(p.location())
}

func (p *DateParser) location() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}

func (p *DateParser) startOfDay() time.Time {
	n := p.now()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, p.location())
}

// resolve rewrites the site's abbreviations into phrases the natural language
// parser understands and parses them against the right base.
func (p *DateParser) resolve(s string) (time.Time, bool) {
	base := p.startOfDay()
	phrase := atRegex.ReplaceAllString(s, " ")

	if strings.EqualFold(s, "just now") {
		phrase, base = "now", p.now()
	} else if rel, subDay, ok := relativePhrase(s); ok {
		phrase = rel
		if subDay {
			base = p.now()
		}
	}

	languages := p.Languages
	if len(languages) == 0 {
		languages = []string{"en"}
	}
	parser := &dps.Parser{}
	dt, err := parser.Parse(&dps.Configuration{
		Languages:           languages,
		CurrentTime:         base,
		DefaultTimezone:     p.location(),
		PreferredDateSource: dps.Past,
	}, phrase)
	if err != nil || dt.Time.IsZero() {
		return time.Time{}, false
	}
	t := dt.Time.In(p.location())

	// A bare weekday equal to today's means the same day last week.
	if isWeekday(s) && sameDay(t, base) {
		t = t.AddDate(0, 0, -7)
	}
	return t, true
}

// relativePhrase expands "16h", "2 wk" or "3 mo" into "16 hours ago" style
// phrases. subDay is set for units shorter than a day, which count back from
// the current instant rather than from midnight.
func relativePhrase(s string) (phrase string, subDay bool, ok bool) {
	m := relativeRegex.FindStringSubmatch(s)
	if m == nil {
		return "", false, false
	}
	n, _ := strconv.Atoi(m[1])
	unit := strings.ToLower(m[2])

	var word string
	switch {
	case unit == "s" || strings.HasPrefix(unit, "sec"):
		word, subDay = "second", true
	case strings.HasPrefix(unit, "min"):
		word, subDay = "minute", true
	case unit == "h" || strings.HasPrefix(unit, "hr") || strings.HasPrefix(unit, "hour"):
		word, subDay = "hour", true
	case unit == "d" || strings.HasPrefix(unit, "day"):
		word = "day"
	case strings.HasPrefix(unit, "wk") || strings.HasPrefix(unit, "week"):
		word = "week"
	case strings.HasPrefix(unit, "mo") || strings.HasPrefix(unit, "mth"):
		word = "month"
	case strings.HasPrefix(unit, "yr") || strings.HasPrefix(unit, "year"):
		word = "year"
	default:
		return "", false, false
	}
	if n != 1 {
		word += "s"
	}
	return fmt.Sprintf("%d %s ago", n, word), subDay, true
}

func isWeekday(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) >= 3 && len(weekdayRegex.FindString(s)) == len(s)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
