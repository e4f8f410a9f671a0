// internal/fetch/fetchtest/fake.go
package fetchtest

import (
	"context"
	"net/url"
	"sync"

	"github.com/valpere/FBScrapexter/internal/errors"
	"github.com/valpere/FBScrapexter/internal/fetch"
)

// Fake is a map backed fetch.Fetcher for tests. Pages are keyed by the exact
// URL string requested.
type Fake struct {
	mu       sync.Mutex
	pages    map[string]string
	errs     map[string][]error
	requests []string
}

// New creates a Fake serving pages.
func New(pages map[string]string) *Fake {
	if pages == nil {
		pages = map[string]string{}
	}
	return &Fake{pages: pages, errs: map[string][]error{}}
}

// Set serves markup for url.
func (f *Fake) Set(url, markup string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[url] = markup
}

// FailWith queues errors returned by successive requests for url before the
// page itself is served.
func (f *Fake) FailWith(url string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[url] = append(f.errs[url], errs...)
}

// Requests returns every URL requested so far, in order.
func (f *Fake) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

// Count returns how many times url was requested.
func (f *Fake) Count(url string) int {
	n := 0
	for _, r := range f.Requests() {
		if r == url {
			n++
		}
	}
	return n
}

// Get serves the page for url, or a not found error.
func (f *Fake) Get(ctx context.Context, rawURL string) (*fetch.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.requests = append(f.requests, rawURL)
	if queued := f.errs[rawURL]; len(queued) > 0 {
		f.errs[rawURL] = queued[1:]
		f.mu.Unlock()
		return nil, queued[0]
	}
	markup, ok := f.pages[rawURL]
	f.mu.Unlock()

	if !ok {
		return nil, errors.WithURL(errors.New(errors.KindNotFound, "HTTP 404"), rawURL)
	}
	resp, err := fetch.NewResponse(200, rawURL, markup)
	if err != nil {
		return nil, err
	}
	if err := fetch.Classify(resp); err != nil {
		return nil, errors.WithURL(err, rawURL)
	}
	return resp, nil
}

// Post serves the page registered for url, ignoring the form.
func (f *Fake) Post(ctx context.Context, rawURL string, _ url.Values) (*fetch.Response, error) {
	return f.Get(ctx, rawURL)
}
