// internal/extract/reactions.go
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/valpere/FBScrapexter/internal/cursor"
	"github.com/valpere/FBScrapexter/internal/document"
	"github.com/valpere/FBScrapexter/internal/utils"
)

const (
	reactorsBrowserURL     = "https://m.facebook.com/ufi/reaction/profile/browser/?ft_ent_identifier=%s"
	reactorsSelector       = "div#reaction_profile_browser>div,div#reaction_profile_browser1>div"
	reactorsPagerSelector  = "div#reaction_profile_pager a"
	defaultSpriteMapClass  = "sp_E24l_TeOlgh"
	maxReactors            = 3000
	reactorsFirstPageLimit = 50
)

// extractReactions reads the reaction breakdown and, when requested, the people
// who reacted. Without embedded reaction data it falls back to the desktop page.
func extractReactions(ctx context.Context, pc *postContext) (Partial, error) {
	reactions := map[string]int{}
	typeNames := asMap(pc.JSMod(ctx, "UFIReactionTypes")["reactions"])
	for k, v := range asMap(pc.LiveData(ctx)["reactioncountmap"]) {
		n, ok := toInt(lookup(v, "default"))
		if !ok || n == 0 {
			continue
		}
		name := strings.ToLower(asString(lookup(typeNames, k, "display_name")))
		if name == "" {
			continue
		}
		reactions[name] = n
	}

	postURL := pc.post.String(KeyPostURL)
	postID := pc.post.String(KeyPostID)
	w3URL := ""
	if postURL != "" {
		w3URL = utils.ReplaceHost(postURL, "www.facebook.com")
	}

	var reactors interface{}
	if pc.opts.Reactors.Enabled() && postID != "" {
		src := &reactorSource{
			pc:        pc,
			postID:    postID,
			limit:     pc.opts.Reactors.Limit(maxReactors),
			classes:   map[string]string{},
			spriteMap: defaultSpriteMapClass,
		}
		for k, v := range pc.JSMod(ctx, "UFIReactionIcons") {
			name := strings.ToLower(asString(lookup(typeNames, k, "display_name")))
			for _, item := range asMap(v) {
				src.classes[asString(lookup(item, "spriteCssClass"))] = name
				if sm := asString(lookup(item, "spriteMapCssClass")); sm != "" {
					src.spriteMap = sm
				}
			}
		}
		stream := NewStream(src.run)
		if pc.opts.Reactors.Kind == ModeLazy {
			reactors = stream
		} else {
			list, err := stream.Collect(ctx, 0)
			if err != nil {
				return nil, err
			}
			pc.logger.Debugf("Found %d reactors", len(list))
			reactors = list
		}
	}

	if len(reactions) > 0 {
		out := Partial{
			KeyReactions:   reactions,
			KeyFetchedTime: pc.engine.now(),
			KeyW3FBURL:     nilIfEmpty(w3URL),
		}
		if like, ok := reactions["like"]; ok {
			out[KeyLikes] = like
		}
		if n, ok := toInt(pc.LiveData(ctx)["reactioncount"]); ok {
			out[KeyReactionCount] = n
		}
		if reactors != nil {
			out[KeyReactors] = reactors
		}
		return out, nil
	}

	if w3URL != "" && pc.opts.AllowExtraRequests {
		resp, err := pc.get(ctx, w3URL)
		if err != nil {
			return nil, err
		}
		if fb, ok := pc.engine.legacy.Feedback(resp.Text, postID); ok {
			out := Partial{
				KeyShares:      fb.Shares,
				KeyLikes:       fb.Likes,
				KeyReactions:   fb.Reactions,
				KeyComments:    fb.Comments,
				KeyW3FBURL:     fb.URL,
				KeyFetchedTime: pc.engine.now(),
			}
			if reactors != nil {
				out[KeyReactors] = reactors
			}
			return out, nil
		}
	}
	out := Partial{KeyFetchedTime: pc.engine.now()}
	if reactors != nil {
		out[KeyReactors] = reactors
	}
	return out, nil
}

// reactorSource pages through the reactions browser of a post.
type reactorSource struct {
	pc        *postContext
	postID    string
	limit     int
	classes   map[string]string
	spriteMap string
}

func (s *reactorSource) run(ctx context.Context, yield func(Reactor) bool) error {
	resp, err := s.pc.get(ctx, fmt.Sprintf(reactorsBrowserURL, s.postID))
	if err != nil {
		return err
	}
	s.pc.logger.Debugf("Fetching %d reactors", s.limit)

	elems := resp.Doc.Find(reactorsSelector)
	count := 0
	emit := func(elems []document.Node) bool {
		for _, elem := range elems {
			if count >= s.limit {
				return false
			}
			count++
			if !yield(s.parse(elem)) {
				return false
			}
		}
		return true
	}
	if !emit(elems) {
		return nil
	}

	more := resp.Doc.First(reactorsPagerSelector)
	href, ok := more.Attr("href")
	if !ok || s.limit <= reactorsFirstPageLimit {
		return nil
	}
	url := utils.MobileURL(href)
	url = strings.Replace(url, "limit="+strconv.Itoa(reactorsFirstPageLimit), "limit="+strconv.Itoa(s.limit-reactorsFirstPageLimit), 1)
	s.pc.logger.Debugf("Fetching %s", url)
	resp, err = s.pc.get(ctx, url)
	if err != nil {
		return err
	}
	payload, err := cursor.ParsePayload(resp.Text)
	if err != nil {
		return err
	}
	for _, action := range payload.Actions {
		if action.Cmd != "append" {
			continue
		}
		frag, err := document.Parse("<div id='reaction_profile_browser'>" + action.HTML + "</div>")
		if err != nil {
			continue
		}
		if !emit(frag.Find(reactorsSelector)) {
			return nil
		}
	}
	return nil
}

func (s *reactorSource) parse(elem document.Node) Reactor {
	r := Reactor{Name: elem.First("strong").Text()}
	if href, ok := elem.First("a").Attr("href"); ok {
		r.Link = utils.URLJoin(utils.BaseURL, href)
	}
	if classes := elem.First("div>i." + s.spriteMap).Classes(); len(classes) > 0 {
		emojiClass := classes[len(classes)-1]
		r.Type = s.classes[emojiClass]
		if r.Type == "" {
			s.pc.logger.Errorf("Don't know %s", emojiClass)
		}
	}
	return r
}

// LegacyReactionBlobPath locates the feedback object inside each legacy
// pagelet payload.
const LegacyReactionBlobPath = "jsmods.pre_display_requires[0][3][1].__bbox.result.data.feedback"

// LegacyFeedback is the engagement summary read from the desktop page.
type LegacyFeedback struct {
	Shares    int
	Likes     int
	Comments  int
	Reactions map[string]int
	URL       string
}

// LegacyReactionSource decodes engagement data from a desktop post page.
type LegacyReactionSource interface {
	Feedback(markup, postID string) (*LegacyFeedback, bool)
}

var (
	pageletRegex = regexp.MustCompile(`<script nonce=.*>.*bigPipe.onPageletArrive\((\{.*RelayPrefetchedStreamCache.*\})\);.*</script>`)
	bareKeyRegex = regexp.MustCompile(`([{,])(\w+):`)
	pathRegex    = regexp.MustCompile(`[^.\[\]]+|\[\d+\]`)
)

// BigPipeFeedback reads the legacy pagelet payloads embedded in script tags.
type BigPipeFeedback struct{}

// Feedback returns the feedback for postID, if any payload carries it.
func (BigPipeFeedback) Feedback(markup, postID string) (*LegacyFeedback, bool) {
	for _, m := range pageletRegex.FindAllStringSubmatch(markup, -1) {
		var blob interface{}
		if err := json.Unmarshal([]byte(bareKeyRegex.ReplaceAllString(m[1], `$1"$2":`)), &blob); err != nil {
			continue
		}
		data := asMap(walkPath(blob, LegacyReactionBlobPath))
		if data == nil || idString(data["subscription_target_id"]) != postID {
			continue
		}
		fb := &LegacyFeedback{Reactions: map[string]int{}, URL: asString(data["url"])}
		fb.Shares, _ = toInt(lookup(data, "share_count", "count"))
		fb.Likes, _ = toInt(lookup(data, "reactors", "count"))
		fb.Comments, _ = toInt(lookup(data, "comment_count", "total_count"))
		for _, edge := range asSlice(lookup(data, "top_reactions", "edges")) {
			name := strings.ToLower(asString(lookup(edge, "node", "reaction_type")))
			if n, ok := toInt(lookup(edge, "reaction_count")); ok && name != "" {
				fb.Reactions[name] = n
			}
		}
		return fb, true
	}
	return nil, false
}

// walkPath follows a dotted path with [i] index steps through decoded JSON.
func walkPath(v interface{}, path string) interface{} {
	for _, step := range pathRegex.FindAllString(path, -1) {
		if strings.HasPrefix(step, "[") {
			i, _ := strconv.Atoi(strings.Trim(step, "[]"))
			s := asSlice(v)
			if i >= len(s) {
				return nil
			}
			v = s[i]
			continue
		}
		m := asMap(v)
		if m == nil {
			return nil
		}
		v = m[step]
	}
	return v
}
