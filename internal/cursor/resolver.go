// internal/cursor/resolver.go
package cursor

import (
	"regexp"
	"strings"

	"github.com/valpere/FBScrapexter/internal/decode"
)

// Kind selects the family of listings a resolver understands.
type Kind int

const (
	KindPosts Kind = iota
	KindGroup
	KindSearch
	KindHashtag
	KindPhotos
	KindFriends
)

// Strategy finds a next page link in a blob of response text.
type Strategy interface {
	// Find returns the next page URL, or false when the pattern is absent.
	Find(blob string) (string, bool)

	// Name identifies the strategy in logs.
	Name() string
}

// RegexStrategy matches a single capture group. Escaped strategies decode
// JavaScript string escapes in the capture before returning it.
type RegexStrategy struct {
	name    string
	re      *regexp.Regexp
	escaped bool
}

// NewRegexStrategy creates a strategy from a pattern with one capture group.
func NewRegexStrategy(name, pattern string, escaped bool) *RegexStrategy {
	return &RegexStrategy{name: name, re: regexp.MustCompile(pattern), escaped: escaped}
}

// Find returns the first capture of the pattern.
func (s *RegexStrategy) Find(blob string) (string, bool) {
	m := s.re.FindStringSubmatch(blob)
	if m == nil || m[1] == "" {
		return "", false
	}
	value := m[1]
	if s.escaped {
		value = strings.ReplaceAll(decode.UnescapeRepeated(value), `\/`, "/")
	}
	return decode.UnescapeHTMLAmp(value), true
}

// Name returns the strategy name
func (s *RegexStrategy) Name() string {
	return s.name
}

var (
	pageContentInline  = NewRegexStrategy("page_content_inline", `href:"(/page_content[^"]+)"`, false)
	pageContentEscaped = NewRegexStrategy("page_content_escaped", `href":"(\\/page_content[^"]+)"`, true)
	pageContentAttr    = NewRegexStrategy("page_content_attr", `href[=:]["'](/page_content[^"']+)["']`, false)
	scrollCursor       = NewRegexStrategy("timeline_stream", `href:"(/profile/timeline/stream/\?cursor[^"]+)"`, false)
	scrollCursorEsc    = NewRegexStrategy("timeline_stream_escaped", `href":"(\\/profile\\/timeline\\/stream\\/\?cursor[^"]+)"`, true)
	groupBac           = NewRegexStrategy("group_bac", `\shref="(/groups/[^"]+bac=[^"]+)"`, true)
	groupBacEscaped    = NewRegexStrategy("group_bac_escaped", `href":"(\\/groups\\/[^"]+bac=[^"]+)"`, true)
	searchInline       = NewRegexStrategy("search_inline", `href[:=]"(/search/[^"]+)"`, false)
	searchEscaped      = NewRegexStrategy("search_escaped", `href":"(\\/search\\/[^"]+)"`, true)
	hashtagCursor      = NewRegexStrategy("hashtag", `(/hashtag/[a-z0-9_]+/\?locale=[a-z_A-Z]+&amp;cursor=[^"]+)`, false)
	photosInline       = NewRegexStrategy("photos_inline", `href:"(/photos/pandora/[^"]+)"`, false)
	photosEscaped      = NewRegexStrategy("photos_escaped", `href":"(\\/photos\\/pandora\\/[^"]+)"`, true)
	friendsInline      = NewRegexStrategy("friends_inline", `href:"(/[^/"]+/friends[^"]+)"`, false)
	friendsEscaped     = NewRegexStrategy("friends_escaped", `href":"(\\/[^"]+\\/friends[^"]+)"`, true)
)

var strategiesByKind = map[Kind][]Strategy{
	KindPosts:   {pageContentInline, pageContentEscaped, scrollCursor, scrollCursorEsc, pageContentAttr},
	KindGroup:   {pageContentInline, pageContentEscaped, groupBac, groupBacEscaped, pageContentAttr},
	KindSearch:  {searchInline, searchEscaped, pageContentInline, pageContentEscaped},
	KindHashtag: {hashtagCursor, pageContentInline, pageContentEscaped},
	KindPhotos:  {photosInline, photosEscaped, pageContentInline, pageContentEscaped},
	KindFriends: {friendsInline, friendsEscaped},
}

// Resolver finds the next page of a listing by trying its strategies in order.
type Resolver struct {
	strategies []Strategy
}

// NewResolver creates a resolver with the strategies for a listing kind.
func NewResolver(kind Kind) *Resolver {
	strategies, ok := strategiesByKind[kind]
	if !ok {
		strategies = strategiesByKind[KindPosts]
	}
	return &Resolver{strategies: strategies}
}

// NewCustomResolver creates a resolver from an explicit strategy list.
func NewCustomResolver(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

// Strategies returns the ordered strategy list.
func (r *Resolver) Strategies() []Strategy {
	return r.strategies
}

// Next returns the next page URL found in the payload, or "" when the listing
// has no further pages.
func (r *Resolver) Next(p *Payload) string {
	next, _ := r.NextWithStrategy(p)
	return next
}

// NextWithStrategy is Next that also reports which strategy matched.
func (r *Resolver) NextWithStrategy(p *Payload) (string, string) {
	if p == nil {
		return "", ""
	}
	for _, text := range p.ScanText() {
		if text == "" {
			continue
		}
		for _, s := range r.strategies {
			if next, ok := s.Find(text); ok {
				return next, s.Name()
			}
		}
	}
	return "", ""
}

// Resolve parses a raw response and returns its next page URL.
func Resolve(kind Kind, text string) (string, error) {
	p, err := ParsePayload(text)
	if err != nil {
		return "", err
	}
	return NewResolver(kind).Next(p), nil
}
