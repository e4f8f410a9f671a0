// internal/fetch/fetch.go
package fetch

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/valpere/FBScrapexter/internal/document"
)

// Fetcher is the network capability the extraction packages consume.
type Fetcher interface {
	// Get requests url, following redirects. Relative URLs are resolved
	// against the session's base URL.
	Get(ctx context.Context, url string) (*Response, error)

	// Post submits form values to url.
	Post(ctx context.Context, url string, form url.Values) (*Response, error)
}

// Response is a classified, successfully fetched page.
type Response struct {
	StatusCode int
	URL        string
	Text       string
	Header     http.Header
	Duration   time.Duration
	Doc        *document.Document
}

// NewResponse builds a Response and parses its markup. It is used by the
// session and by fakes in tests.
func NewResponse(status int, finalURL, text string) (*Response, error) {
	doc, err := document.Parse(text)
	if err != nil {
		return nil, err
	}
	return &Response{
		StatusCode: status,
		URL:        finalURL,
		Text:       document.Clean(text),
		Header:     http.Header{},
		Doc:        doc,
	}, nil
}

// Observer receives one call per completed request.
type Observer interface {
	ObserveRequest(kind string, status int, duration time.Duration)
}
