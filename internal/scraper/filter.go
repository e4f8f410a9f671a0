// internal/scraper/filter.go
package scraper

import (
	"fmt"
	"iter"
	"regexp"
	"time"

	"github.com/valpere/FBScrapexter/internal/extract"
)

// Filter narrows a post stream.
type Filter struct {
	// DaysLimit ends the stream at the first post older than this many days.
	// The first post is exempt since pinned posts can be old. 0 disables it.
	DaysLimit int
	// Matching keeps only posts whose text matches.
	Matching *regexp.Regexp
	// NotMatching drops posts whose text matches.
	NotMatching *regexp.Regexp
	// Keys projects every post onto these keys.
	Keys []string
	// Now is the clock for DaysLimit.
	Now func() time.Time
}

// NewFilter compiles the text patterns case-insensitively. Empty patterns are
// ignored.
func NewFilter(daysLimit int, matching, notMatching string, keys []string) (*Filter, error) {
	f := &Filter{DaysLimit: daysLimit, Keys: keys, Now: time.Now}
	var err error
	if matching != "" {
		if f.Matching, err = regexp.Compile("(?i)" + matching); err != nil {
			return nil, fmt.Errorf("invalid matching pattern: %w", err)
		}
	}
	if notMatching != "" {
		if f.NotMatching, err = regexp.Compile("(?i)" + notMatching); err != nil {
			return nil, fmt.Errorf("invalid not_matching pattern: %w", err)
		}
	}
	return f, nil
}

// Keep reports whether a post passes the text patterns.
func (f *Filter) Keep(post extract.Post) bool {
	text := post.String(extract.KeyText)
	if f.Matching != nil && (text == "" || !f.Matching.MatchString(text)) {
		return false
	}
	if f.NotMatching != nil && text != "" && f.NotMatching.MatchString(text) {
		return false
	}
	return true
}

// Apply wraps seq. Errors pass through unchanged.
func (f *Filter) Apply(seq iter.Seq2[extract.Post, error]) iter.Seq2[extract.Post, error] {
	if f == nil {
		return seq
	}
	return func(yield func(extract.Post, error) bool) {
		var cutoff time.Time
		if f.DaysLimit > 0 {
			now := time.Now
			if f.Now != nil {
				now = f.Now
			}
			cutoff = now().AddDate(0, 0, -f.DaysLimit)
		}

		first := true
		for post, err := range seq {
			if err != nil {
				if !yield(nil, err) {
					return
				}
				continue
			}
			if !cutoff.IsZero() && !first {
				if t, ok := post.Time(extract.KeyTime); ok && t.Before(cutoff) {
					return
				}
			}
			first = false

			if !f.Keep(post) {
				continue
			}
			if len(f.Keys) > 0 {
				post = post.Project(f.Keys)
			}
			if !yield(post, nil) {
				return
			}
		}
	}
}
