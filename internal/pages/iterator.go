// internal/pages/iterator.go
package pages

import (
	"context"
	"fmt"
	"iter"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/valpere/FBScrapexter/internal/cursor"
	"github.com/valpere/FBScrapexter/internal/document"
	"github.com/valpere/FBScrapexter/internal/errors"
	"github.com/valpere/FBScrapexter/internal/fetch"
	"github.com/valpere/FBScrapexter/internal/utils"
)

// State is the position of an Iterator in its fetch/parse/yield cycle.
type State int

const (
	StateFetching State = iota
	StateParsing
	StateYielding
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateParsing:
		return "parsing"
	case StateYielding:
		return "yielding"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// Markup is the page layout the site is serving.
type Markup int

const (
	MarkupUnknown Markup = iota
	MarkupScript
	MarkupNoscript
)

// Outcome is the result of one Next call.
type Outcome int

const (
	// OutcomePage carries a page of raw posts.
	OutcomePage Outcome = iota
	// OutcomeDone means the listing has no further pages.
	OutcomeDone
	// OutcomeAlternateNeeded means the very first URL was not found and the
	// caller may restart from an alternate URL.
	OutcomeAlternateNeeded
)

// Options configures an Iterator.
type Options struct {
	Kind             cursor.Kind   `yaml:"-" json:"-"`
	PageLimit        int           `yaml:"page_limit" json:"page_limit"` // 0 means unlimited
	PostsPerPage     int           `yaml:"posts_per_page" json:"posts_per_page"`
	MaxAttempts      int           `yaml:"max_attempts" json:"max_attempts"`
	InitialBackoff   time.Duration `yaml:"initial_backoff" json:"initial_backoff"`
	MaxBackoff       time.Duration `yaml:"max_backoff" json:"max_backoff"`
	PostSelector     string        `yaml:"post_selector" json:"post_selector"`
	NoscriptSelector string        `yaml:"noscript_selector" json:"noscript_selector"`

	// OnPageURL is called with every URL before it is requested, so callers
	// can persist a resume point.
	OnPageURL func(url string, page int) `yaml:"-" json:"-"`
}

// DefaultOptions returns the options used for account timelines.
func DefaultOptions() Options {
	return Options{
		Kind:             cursor.KindPosts,
		MaxAttempts:      6,
		InitialBackoff:   time.Second,
		MaxBackoff:       30 * time.Second,
		PostSelector:     "article",
		NoscriptSelector: "article, div[data-ft*='top_level_post_id']",
	}
}

func (o *Options) applyDefaults() {
	d := DefaultOptions()
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = d.MaxAttempts
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = d.InitialBackoff
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = d.MaxBackoff
	}
	if o.PostSelector == "" {
		o.PostSelector = d.PostSelector
	}
	if o.NoscriptSelector == "" {
		o.NoscriptSelector = o.PostSelector
	}
}

// Page is one fetched page of a listing.
type Page struct {
	Number   int
	URL      string
	NextURL  string
	Posts    []document.Node
	Doc      *document.Document
	Payload  *cursor.Payload
	Response *fetch.Response
	Markup   Markup
}

// Noscript reports whether the page was served in the simplified layout.
func (p *Page) Noscript() bool {
	return p.Markup == MarkupNoscript
}

// Iterator pulls the pages of a listing one at a time. Page N+1 is only known
// after page N has been parsed, so fetches never overlap.
type Iterator struct {
	fetcher  fetch.Fetcher
	resolver *cursor.Resolver
	opts     Options
	logger   utils.Logger

	state   State
	nextURL string
	page    int
	markup  Markup
	visited map[string]bool
	retries int
}

// New creates an Iterator starting at startURL.
func New(fetcher fetch.Fetcher, startURL string, opts Options, logger utils.Logger) *Iterator {
	opts.applyDefaults()
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &Iterator{
		fetcher:  fetcher,
		resolver: cursor.NewResolver(opts.Kind),
		opts:     opts,
		logger:   logger.WithField("component", "pages"),
		state:    StateFetching,
		nextURL:  startURL,
		visited:  make(map[string]bool),
	}
}

// WithResolver replaces the cursor resolver.
func (it *Iterator) WithResolver(r *cursor.Resolver) *Iterator {
	it.resolver = r
	return it
}

// State returns the current state.
func (it *Iterator) State() State {
	return it.state
}

// Retries returns the number of retried fetches so far.
func (it *Iterator) Retries() int {
	return it.retries
}

// Markup returns the layout detected on the first page.
func (it *Iterator) Markup() Markup {
	return it.markup
}

// Next fetches and parses the next page. A non-nil error is terminal: the
// iterator moves to StateFailed and then StateDone.
func (it *Iterator) Next(ctx context.Context) (Outcome, *Page, error) {
	switch it.state {
	case StateDone:
		return OutcomeDone, nil, nil
	case StateFailed:
		it.state = StateDone
		return OutcomeDone, nil, nil
	}

	if it.nextURL == "" {
		it.state = StateDone
		return OutcomeDone, nil, nil
	}
	if it.opts.PageLimit > 0 && it.page >= it.opts.PageLimit {
		it.logger.Debugf("Page limit of %d reached", it.opts.PageLimit)
		it.state = StateDone
		return OutcomeDone, nil, nil
	}

	it.state = StateFetching
	pageURL := it.nextURL
	it.visited[pageURL] = true
	if it.opts.OnPageURL != nil {
		it.opts.OnPageURL(pageURL, it.page)
	}

	log := it.logger.WithFields(map[string]interface{}{"url": pageURL, "page": it.page})
	log.Debug("Requesting page")

	resp, err := it.fetch(ctx, pageURL, log)
	if err != nil {
		if it.page == 0 && errors.Is(err, errors.ErrNotFound) {
			log.Info("Start URL not found")
			it.state = StateDone
			return OutcomeAlternateNeeded, nil, nil
		}
		it.state = StateFailed
		return OutcomeDone, nil, err
	}

	it.state = StateParsing
	page, err := it.parse(resp, pageURL)
	if err != nil {
		it.state = StateFailed
		return OutcomeDone, nil, err
	}
	log.Debugf("Got %d raw posts from page", len(page.Posts))
	if len(page.Posts) == 0 {
		log.Warn("No raw posts were found in this page")
	}

	it.state = StateYielding
	it.page++
	it.advance(page.NextURL, log)
	return OutcomePage, page, nil
}

func (it *Iterator) fetch(ctx context.Context, pageURL string, log utils.Logger) (*fetch.Response, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = it.opts.InitialBackoff
	bo.MaxInterval = it.opts.MaxBackoff
	bo.MaxElapsedTime = 0
	bo.Reset()

	retryable := backoff.WithMaxRetries(bo, uint64(it.opts.MaxAttempts-1))
	withContext := backoff.WithContext(retryable, ctx)

	var resp *fetch.Response
	operation := func() error {
		r, err := it.fetcher.Get(ctx, pageURL)
		if err != nil {
			if errors.IsRetryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		resp = r
		return nil
	}
	notify := func(err error, next time.Duration) {
		it.retries++
		log.Warnf("Page request failed, retrying in %s: %v", next.Round(time.Millisecond), err)
	}

	if err := backoff.RetryNotify(operation, withContext, notify); err != nil {
		return nil, fmt.Errorf("failed to fetch page %d: %w", it.page, err)
	}
	return resp, nil
}

func (it *Iterator) parse(resp *fetch.Response, pageURL string) (*Page, error) {
	payload, err := cursor.ParsePayload(resp.Text)
	if err != nil {
		return nil, errors.WithURL(err, pageURL)
	}

	doc := resp.Doc
	if payload.JSON || doc == nil {
		doc, err = document.Parse(payload.HTML)
		if err != nil {
			return nil, errors.WithURL(err, pageURL)
		}
	}

	if it.markup == MarkupUnknown && !payload.JSON {
		it.markup = MarkupScript
		if len(doc.Find("script")) == 0 {
			it.markup = MarkupNoscript
			it.logger.Info("Simplified markup detected, switching post selector")
		}
	}

	selector := it.opts.PostSelector
	if it.markup == MarkupNoscript {
		selector = it.opts.NoscriptSelector
	}

	page := &Page{
		Number:   it.page,
		URL:      pageURL,
		Posts:    doc.Find(selector),
		Doc:      doc,
		Payload:  payload,
		Response: resp,
		Markup:   it.markup,
	}
	page.NextURL = it.resolver.Next(payload)
	return page, nil
}

func (it *Iterator) advance(next string, log utils.Logger) {
	if next != "" && it.opts.PostsPerPage > 0 && utils.QueryParam(next, "num_to_fetch") != "" {
		next = utils.SetQueryParam(next, "num_to_fetch", strconv.Itoa(it.opts.PostsPerPage))
	}
	switch {
	case next == "":
		log.Info("No next page URL found")
		it.nextURL = ""
	case it.visited[next]:
		log.Warnf("Next page URL %s was already visited, stopping", next)
		it.nextURL = ""
	default:
		it.nextURL = next
	}
}

// Pages exposes the iterator as a lazy sequence. A start URL that was not
// found surfaces as errors.ErrStartURLNotFound.
func (it *Iterator) Pages(ctx context.Context) iter.Seq2[*Page, error] {
	return func(yield func(*Page, error) bool) {
		for {
			outcome, page, err := it.Next(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			switch outcome {
			case OutcomeDone:
				return
			case OutcomeAlternateNeeded:
				yield(nil, errors.New(errors.KindStartURLNotFound, "start URL not found"))
				return
			}
			if !yield(page, nil) {
				return
			}
		}
	}
}
