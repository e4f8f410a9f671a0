// internal/scraper/urls.go
package scraper

import (
	"context"
	"iter"
	"strings"

	"github.com/valpere/FBScrapexter/internal/document"
	"github.com/valpere/FBScrapexter/internal/errors"
	"github.com/valpere/FBScrapexter/internal/extract"
	"github.com/valpere/FBScrapexter/internal/utils"
)

// MobilePostURL rewrites a post URL to the mobile site. Relative URLs are
// joined to it.
func MobilePostURL(raw string) string {
	switch {
	case strings.HasPrefix(raw, utils.MobileBaseURL):
		return raw
	case strings.HasPrefix(raw, utils.W3BaseURL):
		return utils.MobileBaseURL + strings.TrimPrefix(raw, utils.W3BaseURL)
	case strings.HasPrefix(raw, utils.BaseURL):
		return utils.MobileBaseURL + strings.TrimPrefix(raw, utils.BaseURL)
	}
	return utils.URLJoin(utils.MobileBaseURL, raw)
}

// PostsByURL extracts one post per URL. A URL that cannot be fetched yields
// its error and the run continues with the next URL, unless the error is a
// ban or the consumer stops.
func (s *Scraper) PostsByURL(ctx context.Context, urls []string, opts Options) iter.Seq2[extract.Post, error] {
	return func(yield func(extract.Post, error) bool) {
		for _, raw := range urls {
			post, err := s.postByURL(ctx, raw, opts.Extract)
			if err != nil {
				if !yield(nil, err) || errors.IsFatal(err) || ctx.Err() != nil {
					return
				}
				continue
			}
			if !yield(post, nil) {
				return
			}
		}
	}
}

func (s *Scraper) postByURL(ctx context.Context, raw string, opts extract.Options) (extract.Post, error) {
	target := MobilePostURL(raw)
	log := s.logger.WithField("url", target)
	log.Debug("Requesting post page")

	resp, err := s.fetcher.Get(ctx, target)
	if err != nil {
		return nil, errors.WithURL(err, target)
	}
	if strings.Contains(resp.URL, "/watch/") {
		videoID := utils.QueryParam(resp.URL, "v")
		log.Debugf("Following watch page to video %s", videoID)
		resp, err = s.fetcher.Get(ctx, "/"+videoID)
		if err != nil {
			return nil, errors.WithURL(err, target)
		}
	}

	variant := extract.Default
	elem := resp.Doc.First(`[data-ft*="top_level_post_id"]`)
	if resp.Doc.First("div.msg").Exists() {
		variant = extract.Photo
		if root := resp.Doc.First("#root"); root.Exists() {
			elem = root
		}
	} else if strings.HasPrefix(target, utils.MobileBaseURL+"/groups/") {
		variant = extract.Group
	}

	if !elem.Exists() {
		log.Warn("No raw posts were found in this page")
		post := extract.NewPost()
		post[extract.KeyOriginalRequestURL] = raw
		post[extract.KeyPostURL] = target
		return post, nil
	}

	// The counters live in the comments area on post pages; move it into
	// the footer where the count patterns look.
	if ufi := resp.Doc.First("div.ufi"); ufi.Exists() {
		markup := strings.Replace(elem.HTML(), "</footer>", ufi.HTML()+"</footer>", 1)
		if spliced, err := document.Fragment(markup); err == nil {
			elem = spliced
		}
	}

	post, err := s.engine.ExtractInput(ctx, extract.Input{
		Element:    elem,
		FullPost:   resp.Doc,
		Variant:    variant,
		RequestURL: raw,
	}, opts)
	if err != nil {
		return nil, err
	}
	if post.String(extract.KeyPostURL) == "" {
		post[extract.KeyPostURL] = target
	}
	s.recorder.ObservePost(variant.Name)
	return post, nil
}
