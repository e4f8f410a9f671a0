// internal/extract/engine.go
package extract

import (
	"context"
	"fmt"
	"reflect"
	"runtime/debug"
	"time"

	"github.com/valpere/FBScrapexter/internal/decode"
	"github.com/valpere/FBScrapexter/internal/document"
	"github.com/valpere/FBScrapexter/internal/errors"
	"github.com/valpere/FBScrapexter/internal/fetch"
	"github.com/valpere/FBScrapexter/internal/utils"
)

// Method extracts a family of fields. Returning a nil Partial means the fields
// were not found, which is not an error.
type Method func(ctx context.Context, pc *postContext) (Partial, error)

// Extraction method names, in the order they run.
const (
	MethodPostURL          = "post_url"
	MethodPostID           = "post_id"
	MethodText             = "text"
	MethodTime             = "time"
	MethodPhotoLink        = "photo_link"
	MethodImageLowQuality  = "image_lq"
	MethodLikes            = "likes"
	MethodComments         = "comments"
	MethodShares           = "shares"
	MethodLink             = "link"
	MethodUserID           = "user_id"
	MethodUsername         = "username"
	MethodVideo            = "video"
	MethodVideoThumbnail   = "video_thumbnail"
	MethodVideoID          = "video_id"
	MethodVideoMeta        = "video_meta"
	MethodIsLive           = "is_live"
	MethodFactcheck        = "factcheck"
	MethodShareInformation = "share_information"
	MethodAvailability     = "availability"
	MethodListing          = "listing"

	PassReactions     = "reactions"
	PassCommentsFull  = "comments_full"
	PassResolveTeaser = "resolve"
)

// MethodOrder is the fixed extraction order. The post URL is resolved before
// any pass that needs it.
var MethodOrder = []string{
	MethodPostURL, MethodPostID, MethodText, MethodTime, MethodPhotoLink,
	MethodImageLowQuality, MethodLikes, MethodComments, MethodShares, MethodLink,
	MethodUserID, MethodUsername, MethodVideo, MethodVideoThumbnail, MethodVideoID,
	MethodVideoMeta, MethodIsLive, MethodFactcheck, MethodShareInformation,
	MethodAvailability, MethodListing,
}

// overridable lists fields a later method may replace after an earlier one set them.
var overridable = map[string]bool{
	KeyImage: true, KeyImages: true, KeyImagesDescription: true,
	KeyImageID: true, KeyImageIDs: true,
	KeyVideo: true, KeyVideoID: true, KeyVideoIDs: true, KeyVideos: true,
	KeyVideoThumbnail: true,
}

// FailureObserver is told about every extraction method that failed.
type FailureObserver interface {
	ObserveExtractionFailure(method string)
}

// Engine turns post elements into records.
type Engine struct {
	fetcher  fetch.Fetcher
	logger   utils.Logger
	dates    *decode.DateParser
	legacy   LegacyReactionSource
	observer FailureObserver
	now      func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithDateParser sets the parser for human readable timestamps.
func WithDateParser(p *decode.DateParser) EngineOption {
	return func(e *Engine) { e.dates = p }
}

// WithLegacyReactions replaces the decoder of the legacy reaction blob.
func WithLegacyReactions(src LegacyReactionSource) EngineOption {
	return func(e *Engine) { e.legacy = src }
}

// WithFailureObserver reports failed extraction methods.
func WithFailureObserver(o FailureObserver) EngineOption {
	return func(e *Engine) { e.observer = o }
}

// WithClock sets the clock used for fetched_time.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a new extraction engine
func NewEngine(fetcher fetch.Fetcher, logger utils.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = utils.NopLogger()
	}
	e := &Engine{
		fetcher: fetcher,
		logger:  logger,
		dates:   decode.NewDateParser(),
		legacy:  BigPipeFeedback{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Input is one post element to extract.
type Input struct {
	Element document.Node
	// FullPost is the post's own page when the caller already fetched it.
	FullPost *document.Document
	// Variant selects the field strategies; nil means Default.
	Variant *Variant
	// RequestURL is recorded as original_request_url when set.
	RequestURL string
}

// Extract runs every extraction method on element with the default variant.
func (e *Engine) Extract(ctx context.Context, element document.Node, opts Options) (Post, error) {
	return e.ExtractInput(ctx, Input{Element: element}, opts)
}

// ExtractInput builds a record from in. Method failures are logged and leave
// their fields at the default; only a temporary ban or a cancelled context
// aborts the extraction.
func (e *Engine) ExtractInput(ctx context.Context, in Input, opts Options) (Post, error) {
	variant := in.Variant
	if variant == nil {
		variant = Default
	}
	pc := newPostContext(e, variant, in.Element, in.FullPost, opts)

	if variant.Resolve != nil {
		if err := e.guard(ctx, pc, PassResolveTeaser, func() error { return variant.Resolve(ctx, pc) }); err != nil {
			return nil, err
		}
	}

	if in.RequestURL != "" {
		pc.post[KeyOriginalRequestURL] = in.RequestURL
	}
	if opts.KeepSource {
		pc.post[KeySource] = pc.html
	}

	setBy := make(map[string]string)
	for _, name := range MethodOrder {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		method := variant.method(name)
		if method == nil {
			continue
		}
		var partial Partial
		err := e.guard(ctx, pc, name, func() error {
			var err error
			partial, err = method(ctx, pc)
			return err
		})
		if err != nil {
			return nil, err
		}
		if partial == nil {
			pc.logger.Debugf("Extract method %s didn't return anything", name)
			continue
		}
		for k, v := range partial {
			if isNil(v) {
				// A nil claims nothing, so a later method may still set the key.
				if _, ok := setBy[k]; !ok {
					pc.post[k] = nil
				}
				continue
			}
			if prev, ok := setBy[k]; ok && !overridable[k] {
				pc.logger.Debugf("Field %s already set by %s, ignoring value from %s", k, prev, name)
				continue
			}
			pc.post[k] = v
			setBy[k] = name
		}
	}

	if opts.Reactions.Enabled() || opts.Reactors.Enabled() {
		err := e.guard(ctx, pc, PassReactions, func() error {
			partial, err := extractReactions(ctx, pc)
			if err != nil {
				return err
			}
			for k, v := range partial {
				pc.post[k] = v
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if opts.Comments.Enabled() {
		err := e.guard(ctx, pc, PassCommentsFull, func() error {
			partial, err := extractCommentsFull(ctx, pc)
			if err != nil {
				return err
			}
			for k, v := range partial {
				pc.post[k] = v
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		if full, ok := pc.post[KeyCommentsFull].([]Comment); ok && len(full) > 0 {
			if n, _ := pc.post[KeyComments].(int); n == 0 {
				pc.post[KeyComments] = len(full)
			}
		}
	}

	return pc.post, nil
}

// guard runs fn, converting panics into errors. Fatal errors and context
// cancellation are returned; anything else is logged and swallowed.
func (e *Engine) guard(ctx context.Context, pc *postContext, name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			pc.logger.Debugf("Extract method %s panicked: %v\n%s", name, r, debug.Stack())
			err = errors.Wrap(fmt.Errorf("%s: %v", name, r), errors.KindFieldExtraction, "extract."+name)
		}
		if pc.fatal != nil {
			err = pc.fatal
		}
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			err = ctx.Err()
			return
		}
		if isBan(err) {
			return
		}
		postID, _ := pc.post[KeyPostID].(string)
		if postID == "" {
			postID = pc.PostID()
		}
		pc.logger.WithFields(map[string]interface{}{
			"method":  name,
			"post_id": postID,
		}).Errorf("Exception while running %s: %v", name, err)
		if e.observer != nil {
			e.observer.ObserveExtractionFailure(name)
		}
		err = nil
	}()
	return fn()
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func:
		return rv.IsNil()
	}
	return false
}
