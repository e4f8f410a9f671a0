// internal/scraper/scraper.go
package scraper

import (
	"context"
	"fmt"
	"iter"
	"net/url"

	"github.com/valpere/FBScrapexter/internal/cursor"
	"github.com/valpere/FBScrapexter/internal/errors"
	"github.com/valpere/FBScrapexter/internal/extract"
	"github.com/valpere/FBScrapexter/internal/fetch"
	"github.com/valpere/FBScrapexter/internal/pages"
	"github.com/valpere/FBScrapexter/internal/profile"
	"github.com/valpere/FBScrapexter/internal/utils"
)

// DefaultPageLimit is the number of listing pages read when no limit is set.
const DefaultPageLimit = 10

// Options configures one listing run.
type Options struct {
	Extract extract.Options `yaml:"extract" json:"extract"`

	// PageLimit bounds the pages read; 0 means DefaultPageLimit and a negative
	// value means no limit.
	PageLimit    int `yaml:"page_limit" json:"page_limit"`
	PostsPerPage int `yaml:"posts_per_page" json:"posts_per_page"`

	// StartURL resumes a listing from a saved page URL.
	StartURL string `yaml:"start_url" json:"start_url"`

	// PostSelector overrides the listing's post element selector.
	PostSelector string `yaml:"post_selector" json:"post_selector"`

	// OnPageURL is called with every page URL before it is requested.
	OnPageURL func(url string, page int) `yaml:"-" json:"-"`
}

// DefaultOptions returns options reading DefaultPageLimit pages with extra
// requests allowed.
func DefaultOptions() Options {
	return Options{
		Extract:   extract.DefaultOptions(),
		PageLimit: DefaultPageLimit,
	}
}

func (o Options) pageLimit() int {
	switch {
	case o.PageLimit == 0:
		return DefaultPageLimit
	case o.PageLimit < 0:
		return 0
	default:
		return o.PageLimit
	}
}

// Recorder receives listing progress, typically for metrics.
type Recorder interface {
	ObservePage(listing string)
	ObservePost(variant string)
	ObserveRetries(n int)
}

type nopRecorder struct{}

func (nopRecorder) ObservePage(string) {}
func (nopRecorder) ObservePost(string) {}
func (nopRecorder) ObserveRetries(int) {}

// Scraper walks listings and turns their posts into records.
type Scraper struct {
	fetcher  fetch.Fetcher
	engine   *extract.Engine
	profiles *profile.Scraper
	recorder Recorder
	logger   utils.Logger
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithEngine replaces the extraction engine.
func WithEngine(e *extract.Engine) Option {
	return func(s *Scraper) { s.engine = e }
}

// WithRecorder reports pages, posts and retries.
func WithRecorder(r Recorder) Option {
	return func(s *Scraper) { s.recorder = r }
}

// New creates a new scraper on fetcher
func New(fetcher fetch.Fetcher, logger utils.Logger, opts ...Option) *Scraper {
	if logger == nil {
		logger = utils.NopLogger()
	}
	s := &Scraper{
		fetcher:  fetcher,
		recorder: nopRecorder{},
		logger:   logger.WithField("component", "scraper"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = extract.NewEngine(fetcher, logger)
	}
	s.profiles = profile.New(fetcher, s.engine, logger)
	return s
}

// Engine returns the extraction engine.
func (s *Scraper) Engine() *extract.Engine {
	return s.engine
}

// listing describes where a family of posts starts and how it is read.
type listing struct {
	name      string
	start     string
	alternate string
	kind      cursor.Kind
	variant   *extract.Variant
	selector  string
}

// Posts yields the posts of an account's timeline. When the posts tab does
// not exist the account root is read instead.
func (s *Scraper) Posts(ctx context.Context, account string, opts Options) iter.Seq2[extract.Post, error] {
	if opts.Extract.Account == "" {
		opts.Extract.Account = account
	}
	return s.iterate(ctx, listing{
		name:      "posts",
		start:     fmt.Sprintf("/%s/posts/", account),
		alternate: fmt.Sprintf("/%s/", account),
		kind:      cursor.KindPosts,
		variant:   extract.Default,
	}, opts)
}

// GroupPosts yields the posts of a group.
func (s *Scraper) GroupPosts(ctx context.Context, group string, opts Options) iter.Seq2[extract.Post, error] {
	return s.iterate(ctx, listing{
		name:    "group",
		start:   fmt.Sprintf("/groups/%s/", group),
		kind:    cursor.KindGroup,
		variant: extract.Group,
	}, opts)
}

// PostsByHashtag yields the posts of a hashtag feed. The feed only carries
// teasers, so every post costs one extra request.
func (s *Scraper) PostsByHashtag(ctx context.Context, hashtag string, opts Options) iter.Seq2[extract.Post, error] {
	return s.iterate(ctx, listing{
		name:    "hashtag",
		start:   fmt.Sprintf("/hashtag/%s/", url.PathEscape(hashtag)),
		kind:    cursor.KindHashtag,
		variant: extract.Hashtag,
	}, opts)
}

// PostsBySearch yields the results of a post search.
func (s *Scraper) PostsBySearch(ctx context.Context, word string, opts Options) iter.Seq2[extract.Post, error] {
	return s.iterate(ctx, listing{
		name:    "search",
		start:   "/search/posts/?q=" + url.QueryEscape(word),
		kind:    cursor.KindSearch,
		variant: extract.Default,
	}, opts)
}

// Photos yields the photo posts of an account.
func (s *Scraper) Photos(ctx context.Context, account string, opts Options) iter.Seq2[extract.Post, error] {
	if opts.Extract.Account == "" {
		opts.Extract.Account = account
	}
	return s.iterate(ctx, listing{
		name:     "photos",
		start:    fmt.Sprintf("/%s/photos/", account),
		kind:     cursor.KindPhotos,
		variant:  extract.Default,
		selector: "article, div._5v64",
	}, opts)
}

func (s *Scraper) pageOptions(l listing, opts Options) pages.Options {
	po := pages.DefaultOptions()
	po.Kind = l.kind
	po.PageLimit = opts.pageLimit()
	po.PostsPerPage = opts.PostsPerPage
	po.OnPageURL = opts.OnPageURL
	switch {
	case opts.PostSelector != "":
		po.PostSelector = opts.PostSelector
		po.NoscriptSelector = opts.PostSelector
	case l.selector != "":
		po.PostSelector = l.selector
	}
	return po
}

func (s *Scraper) iterate(ctx context.Context, l listing, opts Options) iter.Seq2[extract.Post, error] {
	return func(yield func(extract.Post, error) bool) {
		start := l.start
		alternate := l.alternate
		if opts.StartURL != "" {
			start, alternate = opts.StartURL, ""
		}
		log := s.logger.WithField("listing", l.name)
		if limit := opts.pageLimit(); limit > 0 && limit <= 2 {
			log.Warn("A low page limit (<=2) might return no results, try increasing the limit")
		}

		it := pages.New(s.fetcher, start, s.pageOptions(l, opts), s.logger)
		defer func() { s.recorder.ObserveRetries(it.Retries()) }()

		for {
			outcome, page, err := it.Next(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			switch outcome {
			case pages.OutcomeDone:
				return
			case pages.OutcomeAlternateNeeded:
				if alternate == "" {
					yield(nil, errors.WithURL(errors.New(errors.KindStartURLNotFound, "start URL not found"), start))
					return
				}
				log.Infof("Retrying with alternate start URL %s", alternate)
				s.recorder.ObserveRetries(it.Retries())
				it = pages.New(s.fetcher, alternate, s.pageOptions(l, opts), s.logger)
				alternate = ""
				continue
			}

			s.recorder.ObservePage(l.name)
			log.Debugf("Extracting posts from page %d", page.Number)
			eo := opts.Extract
			if page.Noscript() {
				eo.Noscript = true
			}
			for _, el := range page.Posts {
				post, err := s.engine.ExtractInput(ctx, extract.Input{Element: el, Variant: l.variant}, eo)
				if err != nil {
					yield(nil, err)
					return
				}
				s.recorder.ObservePost(l.variant.Name)
				if !yield(post, nil) {
					return
				}
			}
		}
	}
}
