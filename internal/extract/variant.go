// internal/extract/variant.go
package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/valpere/FBScrapexter/internal/decode"
	"github.com/valpere/FBScrapexter/internal/utils"
)

// Variant is a set of field strategies for one kind of post markup. Methods
// missing from Overrides use the default strategy.
type Variant struct {
	Name string

	// PostURLPattern recognises the anchor that links to the post itself.
	PostURLPattern *regexp.Regexp

	// Resolve runs before extraction and may replace the element, e.g. to
	// swap a teaser for the full post.
	Resolve func(ctx context.Context, pc *postContext) error

	Overrides map[string]Method
}

func (v *Variant) method(name string) Method {
	if m, ok := v.Overrides[name]; ok {
		return m
	}
	return defaultMethods[name]
}

var defaultMethods = map[string]Method{
	MethodPostURL:          extractPostURL,
	MethodPostID:           extractPostID,
	MethodText:             extractText,
	MethodTime:             extractTime,
	MethodPhotoLink:        extractPhotoLink,
	MethodImageLowQuality:  extractImageLowQuality,
	MethodLikes:            extractLikes,
	MethodComments:         extractCommentCount,
	MethodShares:           extractShares,
	MethodLink:             extractLink,
	MethodUserID:           extractUserID,
	MethodUsername:         extractUsername,
	MethodVideo:            extractVideo,
	MethodVideoThumbnail:   extractVideoThumbnail,
	MethodVideoID:          extractVideoID,
	MethodVideoMeta:        extractVideoMeta,
	MethodIsLive:           extractIsLive,
	MethodFactcheck:        extractFactcheck,
	MethodShareInformation: extractShareInformation,
	MethodAvailability:     extractAvailability,
	MethodListing:          extractListing,
}

var (
	postURLRegex      = regexp.MustCompile(`^/story\.php\?story_fbid=`)
	groupPostURLRegex = regexp.MustCompile(`^https://m\.facebook\.com/groups/[^/]+/permalink/`)
)

// Variants of post markup.
var (
	Default = &Variant{
		Name:           "default",
		PostURLPattern: postURLRegex,
	}

	Group = &Variant{
		Name:           "group",
		PostURLPattern: groupPostURLRegex,
	}

	Photo = &Variant{
		Name:           "photo",
		PostURLPattern: postURLRegex,
		Overrides: map[string]Method{
			MethodText:      extractPhotoText,
			MethodPhotoLink: extractPhotoPageLink,
			MethodUserID:    extractPhotoUserID,
			MethodPostURL:   extractPhotoPostURL,
			MethodPostID:    extractPhotoPostID,
		},
	}

	Hashtag = &Variant{
		Name:           "hashtag",
		PostURLPattern: postURLRegex,
		Resolve:        resolveHashtagTeaser,
	}

	Story = &Variant{
		Name:           "story",
		PostURLPattern: postURLRegex,
		Overrides: map[string]Method{
			MethodUsername: extractStoryUsername,
			MethodTime:     extractStoryTime,
		},
	}
)

// VariantByName returns a variant by its name, or Default.
func VariantByName(name string) *Variant {
	switch strings.ToLower(name) {
	case Group.Name:
		return Group
	case Photo.Name:
		return Photo
	case Hashtag.Name:
		return Hashtag
	case Story.Name:
		return Story
	}
	return Default
}

var (
	photoUserIDRegex  = regexp.MustCompile(`entity_id:(\d+),`)
	photoPostIDRegex  = regexp.MustCompile(`ft_ent_identifier=(\d+)`)
	teaserStoryAnchor = `a[href*='story_fbid'], a[href*='/permalink/']`
	fullPostSelector  = `[data-ft*="top_level_post_id"]`
)

func extractPhotoText(_ context.Context, pc *postContext) (Partial, error) {
	msg := pc.element.First("div.msg")
	if !msg.Exists() {
		return nil, nil
	}
	text := msg.Text()
	return Partial{KeyText: text, KeyPostText: text}, nil
}

func extractPhotoPageLink(ctx context.Context, pc *postContext) (Partial, error) {
	full := pc.FullPost(ctx)
	if full == nil {
		return nil, nil
	}
	image := extractPhotoHQ(ctx, pc, full.Raw())
	if image == "" {
		return nil, nil
	}
	out := Partial{KeyImage: image, KeyImages: []string{image}}
	if lq, err := extractImageLowQuality(ctx, pc); err == nil && lq != nil {
		if desc, ok := lq[KeyImagesLowQualityDescription]; ok {
			out[KeyImagesDescription] = desc
		}
	}
	return out, nil
}

func extractPhotoUserID(_ context.Context, pc *postContext) (Partial, error) {
	m := photoUserIDRegex.FindStringSubmatch(pc.html)
	if m == nil {
		return nil, nil
	}
	return Partial{KeyUserID: m[1]}, nil
}

func extractPhotoPostURL(ctx context.Context, pc *postContext) (Partial, error) {
	id := photoPostID(ctx, pc)
	if id == "" {
		return nil, nil
	}
	return Partial{KeyPostURL: utils.URLJoin(utils.MobileBaseURL, id)}, nil
}

func extractPhotoPostID(ctx context.Context, pc *postContext) (Partial, error) {
	id := photoPostID(ctx, pc)
	if id == "" {
		return nil, nil
	}
	return Partial{KeyPostID: id}, nil
}

func photoPostID(ctx context.Context, pc *postContext) string {
	if id := idString(pc.LiveData(ctx)["ft_ent_identifier"]); id != "" {
		return id
	}
	if full := pc.FullPost(ctx); full != nil {
		if m := photoPostIDRegex.FindStringSubmatch(full.Raw()); m != nil {
			return m[1]
		}
	}
	return ""
}

// resolveHashtagTeaser replaces the teaser shown in hashtag feeds with the full
// post fetched through its story link. The teaser is kept when that fails.
func resolveHashtagTeaser(ctx context.Context, pc *postContext) error {
	if pc.element.Is(fullPostSelector) && pc.PostID() != "" {
		return nil
	}
	for _, a := range pc.element.Find(teaserStoryAnchor) {
		href := decode.UnescapeHTMLAmp(a.AttrOr("href", ""))
		target := ""
		if strings.Contains(href, "/permalink/") {
			target = href
		} else if fbid := utils.QueryParam(href, "story_fbid"); fbid != "" {
			target = "/story.php?story_fbid=" + fbid
			if id := utils.QueryParam(href, "id"); id != "" {
				target += "&id=" + id
			}
		}
		if target == "" {
			continue
		}
		resp, err := pc.get(ctx, target)
		if err != nil {
			return err
		}
		elem := resp.Doc.First(fullPostSelector)
		if !elem.Exists() {
			return nil
		}
		pc.setElement(elem)
		pc.full, pc.fullLoaded = resp.Doc, true
		return nil
	}
	return nil
}

var storyTimestampRegex = regexp.MustCompile(`(?:"|&#34;|&quot;)story_timestamp(?:"|&#34;|&quot;)\s*:\s*(\d+)`)

func extractStoryUsername(_ context.Context, pc *postContext) (Partial, error) {
	a := pc.element.First("span.story_author a, h3 a, strong a")
	if !a.Exists() {
		return nil, nil
	}
	out := Partial{KeyUsername: a.Text()}
	if href, ok := a.Attr("href"); ok {
		out[KeyUserURL] = utils.URLJoin(utils.BaseURL, href)
	}
	return out, nil
}

func extractStoryTime(ctx context.Context, pc *postContext) (Partial, error) {
	if m := storyTimestampRegex.FindStringSubmatch(pc.html); m != nil {
		if ts, ok := toInt(m[1]); ok {
			return Partial{KeyTime: unixTime(pc, int64(ts))}, nil
		}
	}
	for _, sel := range []string{"abbr", "span.timestamp"} {
		if n := pc.element.First(sel); n.Exists() {
			if t := pc.engine.dates.Parse(n.Text(), true); t != nil {
				return Partial{KeyTime: *t}, nil
			}
		}
	}
	return nil, nil
}
