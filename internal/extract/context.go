// internal/extract/context.go
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/valpere/FBScrapexter/internal/decode"
	"github.com/valpere/FBScrapexter/internal/document"
	"github.com/valpere/FBScrapexter/internal/errors"
	"github.com/valpere/FBScrapexter/internal/fetch"
	"github.com/valpere/FBScrapexter/internal/utils"
)

// postContext holds the state shared by the extraction methods of one post.
// Expensive lookups (the full post page, embedded live data) are resolved at
// most once.
type postContext struct {
	engine  *Engine
	variant *Variant
	opts    Options
	logger  utils.Logger

	element document.Node
	html    string
	post    Post

	dataFT       map[string]interface{}
	dataFTLoaded bool

	full       *document.Document
	fullLoaded bool
	liveData   map[string]interface{}
	liveLoaded bool

	// fatal holds an error that must abort the extraction even though it was
	// raised inside a lookup that cannot return it.
	fatal error
}

func newPostContext(e *Engine, variant *Variant, element document.Node, full *document.Document, opts Options) *postContext {
	pc := &postContext{
		engine:  e,
		variant: variant,
		opts:    opts,
		logger:  e.logger,
		element: element,
		html:    element.HTML(),
		post:    NewPost(),
	}
	if full != nil {
		pc.full = full
		pc.fullLoaded = true
	}
	return pc
}

// child derives a context for a nested element, such as the shared post inside
// a share. Extra requests are never made on its behalf.
func (pc *postContext) child(element document.Node) *postContext {
	opts := pc.opts
	opts.AllowExtraRequests = false
	c := newPostContext(pc.engine, pc.variant, element, nil, opts)
	c.fullLoaded = true
	return c
}

func (pc *postContext) setElement(element document.Node) {
	pc.element = element
	pc.html = element.HTML()
	pc.dataFT, pc.dataFTLoaded = nil, false
	pc.liveData, pc.liveLoaded = nil, false
}

// DataFT returns the decoded data-ft attribute of the element.
func (pc *postContext) DataFT() map[string]interface{} {
	if pc.dataFTLoaded {
		return pc.dataFT
	}
	pc.dataFTLoaded = true
	raw, ok := pc.element.Attr("data-ft")
	if !ok {
		return nil
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var out map[string]interface{}
	if err := dec.Decode(&out); err != nil {
		pc.logger.Debugf("Invalid data-ft attribute: %v", err)
		return nil
	}
	pc.dataFT = out
	return out
}

// PostID returns the identifier announced in data-ft.
func (pc *postContext) PostID() string {
	return idString(pc.DataFT()["top_level_post_id"])
}

// FullPost returns the post's own page, fetched once when extra requests are
// allowed. A failed fetch is logged and remembered.
func (pc *postContext) FullPost(ctx context.Context) *document.Document {
	if pc.fullLoaded {
		return pc.full
	}
	pc.fullLoaded = true
	if !pc.opts.AllowExtraRequests {
		return nil
	}
	postID := pc.PostID()
	if postID == "" {
		if id, ok := pc.post[KeyPostID].(string); ok {
			postID = id
		}
	}
	if postID == "" {
		return nil
	}
	resp, err := pc.engine.fetcher.Get(ctx, postID)
	if err != nil {
		if isBan(err) {
			pc.fatal = err
		}
		pc.logger.Warnf("Failed to fetch full post %s: %v", postID, err)
		return nil
	}
	pc.full = resp.Doc
	return pc.full
}

// scriptSource is the markup searched for embedded modules: the full post page
// when it is available, otherwise the element.
func (pc *postContext) scriptSource(ctx context.Context) string {
	if full := pc.FullPost(ctx); full != nil {
		return full.Raw()
	}
	return pc.html
}

// LiveData returns the MLiveData module of the post.
func (pc *postContext) LiveData(ctx context.Context) map[string]interface{} {
	if pc.liveLoaded {
		return pc.liveData
	}
	pc.liveLoaded = true
	pc.liveData = decode.FindJSMod(pc.scriptSource(ctx), "MLiveData")
	return pc.liveData
}

// JSMod finds a named module in the post's markup.
func (pc *postContext) JSMod(ctx context.Context, name string) map[string]interface{} {
	return decode.FindJSMod(pc.scriptSource(ctx), name)
}

func (pc *postContext) get(ctx context.Context, url string) (*fetch.Response, error) {
	return pc.engine.fetcher.Get(ctx, url)
}

// findAndSearch applies pattern to the markup of the first match of selector and
// returns the first capture group.
func findAndSearch(n document.Node, selector string, re interface {
	FindStringSubmatch(string) []string
}) (string, bool) {
	container := n.First(selector)
	if !container.Exists() {
		return "", false
	}
	m := re.FindStringSubmatch(container.HTML())
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

func isBan(err error) bool {
	return errors.KindOf(err) == errors.KindTemporarilyBanned
}

// idString normalizes identifiers that may be encoded as numbers or strings.
func idString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}

// toInt converts decoded JSON numbers.
func toInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case int:
		return t, true
	case int64:
		return int(t), true
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			f, ferr := t.Float64()
			if ferr != nil {
				return 0, false
			}
			return int(f), true
		}
		return int(n), true
	case string:
		n, err := strconv.Atoi(t)
		return n, err == nil
	}
	return 0, false
}

// lookup walks nested maps by key.
func lookup(v interface{}, keys ...string) interface{} {
	for _, k := range keys {
		m, ok := v.(map[string]interface{})
		if !ok {
			return nil
		}
		v = m[k]
	}
	return v
}

func asMap(v interface{}) map[string]interface{} {
	m, _ := v.(map[string]interface{})
	return m
}

func asSlice(v interface{}) []interface{} {
	s, _ := v.([]interface{})
	return s
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}
