// internal/extract/fields.go
package extract

import (
	"context"
	"encoding/json"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/valpere/FBScrapexter/internal/decode"
	"github.com/valpere/FBScrapexter/internal/document"
	"github.com/valpere/FBScrapexter/internal/utils"
)

var (
	likesRegex      = regexp.MustCompile(`(?i)([\d,.KM]+)\s+(Like|left reaction|others reacted|others left reactions)`)
	commentsRegex   = regexp.MustCompile(`(?i)([\d,.KM]+)\s+comment`)
	sharesRegex     = regexp.MustCompile(`(?i)([\d,.KM]+)\s+Share`)
	liveRegex       = regexp.MustCompile(`.+(is live).+`)
	linkRegex       = regexp.MustCompile(`href="https://lm\.facebook\.com/l\.php\?u=(.+?)&amp;h=`)
	moreRegex       = regexp.MustCompile(`…\s<a`)
	videoPostRegex  = regexp.MustCompile(`^/.+/videos/.+/(.+)/.+`)
	unavailableHTML = regexp.MustCompile(`>This content isn(?:'|&#39;|&apos;)t available at the moment<`)

	textPolicy = bluemonday.StrictPolicy()
)

const paragraphSeparator = "\n\n"

// stripTags reduces markup to its text.
func stripTags(markup string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(markup)))
}

// ldJSON decodes the first structured data block of doc.
func ldJSON(doc *document.Document) map[string]interface{} {
	if doc == nil {
		return nil
	}
	for _, script := range doc.Find(`script[type="application/ld+json"]`) {
		var out map[string]interface{}
		if err := json.Unmarshal([]byte(script.Selection().Text()), &out); err == nil {
			return out
		}
	}
	return nil
}

func extractPostID(_ context.Context, pc *postContext) (Partial, error) {
	return Partial{KeyPostID: nilIfEmpty(pc.PostID())}, nil
}

func extractUserID(_ context.Context, pc *postContext) (Partial, error) {
	return Partial{KeyUserID: nilIfEmpty(idString(pc.DataFT()["content_owner_id_new"]))}, nil
}

func extractUsername(_ context.Context, pc *postContext) (Partial, error) {
	a := pc.element.First("h3 strong a,a.actor-link")
	if !a.Exists() {
		return nil, nil
	}
	out := Partial{KeyUsername: a.Text()}
	if href, ok := a.Attr("href"); ok {
		out[KeyUserURL] = utils.URLJoin(utils.BaseURL, href)
	}
	return out, nil
}

func extractText(ctx context.Context, pc *postContext) (Partial, error) {
	full := pc.FullPost(ctx)
	if body := asString(ldJSON(full)["articleBody"]); body != "" {
		return Partial{KeyText: body, KeyPostText: body, KeySharedText: ""}, nil
	}

	element := pc.element
	if full != nil && moreRegex.MatchString(pc.html) {
		if container := full.First(".story_body_container"); container.Exists() {
			element = container
		}
	}

	nodes := element.Find("p, header, span[role=presentation]")
	switch {
	case len(nodes) > 1:
		var postText, sharedText []string
		ended := false
		for _, node := range nodes[1:] {
			tag := node.Tag()
			if tag == "header" {
				ended = true
			}
			var text string
			if tag == "p" {
				markup := strings.Replace(node.HTML(), ">… <", "><", 1)
				markup = strings.Replace(markup, ">More<", "", 1)
				text = stripTags(markup)
			} else {
				text = node.Text()
			}
			if ended {
				sharedText = append(sharedText, text)
			} else {
				postText = append(postText, text)
			}
		}
		all := append(append([]string{}, postText...), sharedText...)
		return Partial{
			KeyText:       strings.Join(all, paragraphSeparator),
			KeyPostText:   strings.Join(postText, paragraphSeparator),
			KeySharedText: strings.Join(sharedText, paragraphSeparator),
		}, nil
	case element.First(".story_body_container>div").Exists():
		text := element.First(".story_body_container>div").Text()
		return Partial{KeyText: text, KeyPostText: text}, nil
	case len(nodes) == 1:
		text := nodes[0].Text()
		return Partial{KeyText: text, KeyPostText: text}, nil
	}
	return nil, nil
}

func unixTime(pc *postContext, ts int64) time.Time {
	loc := pc.engine.dates.Location
	if loc == nil {
		loc = time.Local
	}
	return time.Unix(ts, 0).In(loc)
}

func extractTime(ctx context.Context, pc *postContext) (Partial, error) {
	for _, page := range asMap(pc.DataFT()["page_insights"]) {
		if ts, ok := toInt(lookup(page, "post_context", "publish_time")); ok {
			return Partial{KeyTime: unixTime(pc, int64(ts))}, nil
		}
	}

	if abbr := pc.element.First("abbr"); abbr.Exists() {
		if t := pc.engine.dates.Parse(abbr.Text(), false); t != nil {
			return Partial{KeyTime: *t}, nil
		}
	}
	if t := pc.engine.dates.Parse(pc.element.Text(), true); t != nil {
		return Partial{KeyTime: *t}, nil
	}

	if full := pc.FullPost(ctx); full != nil {
		abbr := full.First("abbr[data-store*='time']")
		var store map[string]interface{}
		if raw, ok := abbr.Attr("data-store"); ok && json.Unmarshal([]byte(raw), &store) == nil {
			if ts, ok := toInt(store["time"]); ok {
				return Partial{KeyTime: unixTime(pc, int64(ts))}, nil
			}
		}
	}
	return nil, nil
}

// footerCount reads a count from the footer. A zero count is treated as absent
// so the next source is tried.
func footerCount(pc *postContext, re *regexp.Regexp) (int, error) {
	s, ok := findAndSearch(pc.element, "footer", re)
	if !ok {
		return 0, nil
	}
	return decode.ConvertNumericAbbr(s)
}

func extractLikes(ctx context.Context, pc *postContext) (Partial, error) {
	n, err := footerCount(pc, likesRegex)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		n, _ = toInt(pc.LiveData(ctx)["like_count"])
	}
	if n == 0 {
		n, _ = toInt(pc.LiveData(ctx)["reactioncount"])
	}
	if n == 0 {
		if likes := pc.element.First(".likes"); likes.Exists() {
			if n, err = decode.ParseInt(likes.Text()); err != nil {
				return nil, err
			}
		}
	}
	if n == 0 {
		if def := pc.element.First(".like_def"); def.Exists() {
			if n, err = decode.ParseInt(def.Text()); err != nil {
				return nil, err
			}
		}
	}
	return Partial{KeyLikes: n}, nil
}

func extractCommentCount(ctx context.Context, pc *postContext) (Partial, error) {
	n, err := footerCount(pc, commentsRegex)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		n, _ = toInt(pc.LiveData(ctx)["comment_count"])
	}
	if n == 0 {
		if def := pc.element.First(".cmt_def"); def.Exists() {
			if n, err = decode.ParseInt(def.Text()); err != nil {
				return nil, err
			}
		}
	}
	return Partial{KeyComments: n}, nil
}

func extractShares(ctx context.Context, pc *postContext) (Partial, error) {
	n, err := footerCount(pc, sharesRegex)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		n, _ = toInt(pc.LiveData(ctx)["share_count"])
	}
	return Partial{KeyShares: n}, nil
}

func extractLink(_ context.Context, pc *postContext) (Partial, error) {
	m := linkRegex.FindStringSubmatch(pc.html)
	if m == nil {
		return nil, nil
	}
	return Partial{KeyLink: utils.Unquote(m[1])}, nil
}

func extractPostURL(_ context.Context, pc *postContext) (Partial, error) {
	account := pc.opts.Account
	postID := pc.PostID()

	var path string
	videoMatched := false
	for _, a := range pc.element.Find("a") {
		href, ok := a.Attr("href")
		if !ok {
			continue
		}
		if pc.variant.PostURLPattern.MatchString(href) {
			path = utils.FilterQueryParams(href, []string{"story_fbid", "id"}, nil)
			videoMatched = false
			break
		}
		m := videoPostRegex.FindStringSubmatch(href)
		videoMatched = m != nil
		if videoMatched {
			if account == "" {
				path = "watch?v=" + m[1]
			} else {
				path = account + "/videos/" + m[1]
			}
			break
		}
	}

	if !videoMatched && account != "" && postID != "" {
		path = account + "/posts/" + postID
	}
	if path == "" {
		return nil, nil
	}
	return Partial{KeyPostURL: utils.URLJoin(utils.BaseURL, path)}, nil
}

func extractIsLive(_ context.Context, pc *postContext) (Partial, error) {
	header := pc.element.First("header")
	if !header.Exists() {
		return nil, nil
	}
	return Partial{KeyIsLive: liveRegex.MatchString(header.FlatText())}, nil
}

func extractFactcheck(_ context.Context, pc *postContext) (Partial, error) {
	button := pc.element.First(`button[value="See Why"]`)
	if !button.Exists() {
		return nil, nil
	}
	var b strings.Builder
	for _, line := range strings.Split(button.Parent().Parent().Text(), "\n") {
		if line == "See Why" {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return Partial{KeyFactcheck: b.String()}, nil
}

func extractAvailability(_ context.Context, pc *postContext) (Partial, error) {
	return Partial{KeyAvailable: !unavailableHTML.MatchString(pc.html)}, nil
}

func extractListing(_ context.Context, pc *postContext) (Partial, error) {
	items := pc.element.Find(`div[data-ft='{"tn":"H"}']>div>div`)
	if len(items) < 3 {
		return nil, nil
	}
	spans := items[0].Find("span")
	if len(spans) == 0 {
		return nil, nil
	}
	return Partial{
		KeyListingTitle:    spans[len(spans)-1].Text(),
		KeyListingPrice:    items[1].Text(),
		KeyListingLocation: items[2].Text(),
	}, nil
}

func extractShareInformation(ctx context.Context, pc *postContext) (Partial, error) {
	ft := pc.DataFT()
	if idString(ft["original_content_id"]) == "" {
		return nil, nil
	}
	out := Partial{
		KeySharedPostID: idString(ft["original_content_id"]),
		KeySharedUserID: nilIfEmpty(idString(ft["original_content_owner_id"])),
	}
	raw := pc.element.First("article article, .story_body_container .story_body_container header")
	if !raw.Exists() {
		return out, nil
	}
	shared := pc.child(raw)
	if p, _ := extractTime(ctx, shared); p != nil {
		out[KeySharedTime] = p[KeyTime]
	}
	if p, _ := extractUsername(ctx, shared); p != nil {
		out[KeySharedUsername] = p[KeyUsername]
	}
	if p, _ := extractPostURL(ctx, shared); p != nil {
		out[KeySharedPostURL] = p[KeyPostURL]
	}
	return out, nil
}

func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
