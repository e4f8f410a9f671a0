// internal/extract/media.go
package extract

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/valpere/FBScrapexter/internal/decode"
	"github.com/valpere/FBScrapexter/internal/document"
	"github.com/valpere/FBScrapexter/internal/fetch"
	"github.com/valpere/FBScrapexter/internal/utils"
)

var (
	imageHQRegex        = regexp.MustCompile(`(?i)<a href="([^"]+?)" target="_blank" class="sec">`)
	imageLQRegex        = regexp.MustCompile(`url\('(.+)'\)`)
	videoThumbnailRegex = regexp.MustCompile(`background: url\('(.+)'\)`)
	videoIDRegex        = regexp.MustCompile(`\{(?:&quot;|&#34;|")videoID(?:&quot;|&#34;|"):(?:&quot;|&#34;|")([0-9]+)(?:&quot;|&#34;|")`)
	photoIDRegex        = regexp.MustCompile(`[=/](\d+)`)
)

const (
	photoLinksSelector = "div.story_body_container>div a[href*='photo.php'], " +
		"div.story_body_container>div a[href*='/photos/'], " +
		"div._5v64 a[href*='/photos/']"
	photoImageSelector = ".img[data-sigil='photo-image']"
	fullSizePath       = "/photo/view_full_size/"

	// maxGalleryErrors bounds repeated photos while walking a gallery.
	maxGalleryErrors = 5
)

func extractImageLowQuality(_ context.Context, pc *postContext) (Partial, error) {
	elems := pc.element.Find("div.story_body_container>div .img:not(.profpic)")
	if len(elems) == 0 {
		elems = pc.element.Find(".img:not(.profpic), img:not(.profpic)")
	}

	images := []string{}
	descriptions := []interface{}{}
	for _, elem := range elems {
		var url string
		if src := elem.AttrOr("src", ""); src != "" {
			url = src
		} else if style := elem.AttrOr("style", ""); style != "" {
			if m := imageLQRegex.FindStringSubmatch(style); m != nil {
				url = decode.DecodeCSSURL(m[1])
			}
		}
		if url == "" || strings.Contains(url, "static.xx.fbcdn.net") {
			continue
		}
		images = append(images, url)
		descriptions = append(descriptions, nilIfEmpty(firstAttr(elem, "aria-label", "alt")))
	}

	out := Partial{
		KeyImageLowQuality:             nil,
		KeyImagesLowQuality:            images,
		KeyImagesLowQualityDescription: descriptions,
	}
	if len(images) == 0 {
		return out, nil
	}
	image := images[0]
	out[KeyImageLowQuality] = image
	if strings.Contains(image, "safe_image.php") && pc.post.String(KeyImage) == "" {
		if target := utils.QueryParam(image, "url"); target != "" {
			out[KeyImage] = target
			out[KeyImages] = []string{target}
		}
	}
	return out, nil
}

func firstAttr(n document.Node, names ...string) string {
	for _, name := range names {
		if v := n.AttrOr(name, ""); v != "" {
			return v
		}
	}
	return ""
}

// extractPhotoHQ finds the full size link in markup, following the full size
// redirect page when needed.
func extractPhotoHQ(ctx context.Context, pc *postContext, markup string) string {
	m := imageHQRegex.FindStringSubmatch(markup)
	if m == nil {
		return ""
	}
	url := decode.UnescapeHTMLAmp(m[1])
	url = utils.MobileURL(url)
	if strings.HasPrefix(url, utils.URLJoin(utils.MobileBaseURL, fullSizePath)) {
		resp, err := pc.get(ctx, url)
		if err != nil {
			if isBan(err) {
				pc.fatal = err
			}
			pc.logger.Errorf("Failed to resolve full size photo: %v", err)
			return url
		}
		if href, ok := resp.Doc.First("a").Attr("href"); ok {
			url = decode.UnescapeHTMLAmp(href)
		}
	}
	return url
}

// PhotoHQ resolves the full size image linked from the raw markup of a photo
// page. It returns "" when the page has no such link.
func (e *Engine) PhotoHQ(ctx context.Context, markup string) (string, error) {
	pc := newPostContext(e, Default, document.Node{}, nil, DefaultOptions())
	url := extractPhotoHQ(ctx, pc, markup)
	return url, pc.fatal
}

type gallery struct {
	images       []string
	descriptions []interface{}
	ids          []string
}

func (g *gallery) add(image, description, id string) {
	g.images = append(g.images, image)
	g.descriptions = append(g.descriptions, nilIfEmpty(description))
	g.ids = append(g.ids, id)
}

func (g *gallery) has(image string) bool {
	for _, img := range g.images {
		if img == image {
			return true
		}
	}
	return false
}

func (g *gallery) addPage(ctx context.Context, pc *postContext, resp *fetch.Response, url string) {
	image := extractPhotoHQ(ctx, pc, resp.Text)
	id := ""
	if m := photoIDRegex.FindStringSubmatch(url); m != nil {
		id = m[1]
	}
	g.add(image, firstAttr(resp.Doc.First(photoImageSelector), "alt", "aria-label"), id)
}

func (g *gallery) partial() Partial {
	out := Partial{
		KeyImage:             nil,
		KeyImages:            g.images,
		KeyImagesDescription: g.descriptions,
		KeyImageID:           nil,
		KeyImageIDs:          g.ids,
	}
	if len(g.images) > 0 {
		out[KeyImage] = g.images[0]
	}
	if len(g.ids) > 0 {
		out[KeyImageID] = g.ids[0]
	}
	return out
}

func extractPhotoLink(ctx context.Context, pc *postContext) (Partial, error) {
	if !pc.opts.AllowExtraRequests {
		return nil, nil
	}
	links := pc.element.Find(photoLinksSelector)
	g := &gallery{images: []string{}, descriptions: []interface{}{}, ids: []string{}}

	total := len(links)
	if (total == 4 || total == 5) && links[total-1].Text() != "" {
		if more, err := strconv.Atoi(strings.Trim(links[total-1].Text(), "+")); err == nil {
			total = len(links) + more - 1
			pc.logger.Debugf("%d total photos in gallery", total)
		}
	}

	var last *fetch.Response
	for _, link := range links {
		href := link.AttrOr("href", "")
		if strings.Contains(href, "photoset_token") {
			return extractPhotoset(ctx, pc, href)
		}
		url := utils.MobileURL(href)
		resp, err := pc.get(ctx, url)
		if err != nil {
			if isBan(err) {
				return nil, err
			}
			pc.logger.Errorf("Failed to fetch photo %s: %v", url, err)
			total--
			continue
		}
		last = resp
		g.addPage(ctx, pc, resp, url)
	}

	errCount := 0
	for last != nil && len(g.images) < total {
		direction := `{"tn":"+>"}`
		if last.Doc.Root().FirstContaining("a", "Photos from").Exists() {
			direction = `{"tn":"+="}`
		}
		href, ok := last.Doc.First(`a.touchable[data-gt='` + direction + `']`).Attr("href")
		if !ok {
			pc.logger.Debugf("No further gallery link after %d photos", len(g.images))
			break
		}
		url := utils.MobileURL(href)
		resp, err := pc.get(ctx, url)
		if err != nil {
			return g.partial(), err
		}
		last = resp
		image := extractPhotoHQ(ctx, pc, resp.Text)
		if g.has(image) {
			errCount++
			if errCount > maxGalleryErrors {
				pc.logger.Error("Reached image error limit")
				break
			}
			continue
		}
		id := ""
		if m := photoIDRegex.FindStringSubmatch(url); m != nil {
			id = m[1]
		}
		g.add(image, firstAttr(resp.Doc.First(photoImageSelector), "alt", "aria-label"), id)
	}
	return g.partial(), nil
}

// extractPhotoset reads every photo and video of a photoset from its paged query.
func extractPhotoset(ctx context.Context, pc *postContext, href string) (Partial, error) {
	href = decode.UnescapeHTMLAmp(href)
	url := utils.QueryParam(href, "profileid") + "/posts/" + utils.QueryParam(href, "photoset_token")
	pc.logger.Debugf("Fetching %s", url)
	resp, err := pc.get(ctx, url)
	if err != nil {
		return nil, err
	}

	g := &gallery{images: []string{}, descriptions: []interface{}{}, ids: []string{}}
	videos, videoIDs := []string{}, []string{}
	query := decode.FindJSMod(resp.Text, "mtouch_snowflake_paged_query")
	for _, result := range asMap(query["query_results"]) {
		for _, edge := range asSlice(lookup(result, "media", "edges")) {
			node := asMap(lookup(edge, "node"))
			id := idString(node["id"])
			if playable, _ := node["is_playable"].(bool); playable {
				videoIDs = append(videoIDs, id)
				video := asString(node["playable_url_hd"])
				if video == "" {
					video = asString(node["playable_url"])
				}
				videos = append(videos, video)
			}
			g.add(asString(lookup(node, "full_width_image", "uri")), asString(node["accessibility_caption"]), id)
		}
		break
	}

	out := g.partial()
	out[KeyVideo], out[KeyVideoID] = nil, nil
	if len(videos) > 0 {
		out[KeyVideo] = videos[0]
		out[KeyVideoID] = videoIDs[0]
	}
	out[KeyVideos] = videos
	out[KeyVideoIDs] = videoIDs
	return out, nil
}

func extractVideo(ctx context.Context, pc *postContext) (Partial, error) {
	photoset := pc.element.First("a[href*='photoset_token']")
	if photoset.Exists() && photoset.First("i[aria-label='video']").Exists() {
		videoID := utils.QueryParam(photoset.AttrOr("href", ""), "photo")
		if videoID != "" && videoID != pc.post.String(KeyPostID) {
			if !pc.opts.AllowExtraRequests {
				return Partial{KeyVideoID: videoID}, nil
			}
			pc.logger.Debugf("Fetching %s", videoID)
			resp, err := pc.get(ctx, videoID)
			if err != nil {
				return nil, err
			}
			videoPost := newPostContext(pc.engine, pc.variant, resp.Doc.Root(), resp.Doc, pc.opts)
			videoPost.post[KeyPostID] = videoID
			out := Partial{KeyVideoID: videoID}
			if p, _ := extractVideoMeta(ctx, videoPost); p != nil {
				for k, v := range p {
					out[k] = v
				}
			}
			if p, _ := extractVideo(ctx, videoPost); p != nil {
				out[KeyVideo] = p[KeyVideo]
			}
			return out, nil
		}
	}

	elem := pc.element.First(`[data-sigil="inlineVideo"]`)
	if !elem.Exists() {
		return nil, nil
	}
	raw, ok := elem.Attr("data-store")
	if !ok {
		pc.logger.Error("data-store attribute not found")
		return nil, nil
	}
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(strings.ReplaceAll(raw, `\\\\`, `\\`)), &data); err != nil {
		pc.logger.Errorf("Error parsing data-store JSON: %v", err)
		return nil, nil
	}
	src := asString(data["src"])
	if src == "" {
		return nil, nil
	}
	return Partial{KeyVideo: strings.ReplaceAll(src, `\/`, "/")}, nil
}

func extractVideoThumbnail(_ context.Context, pc *postContext) (Partial, error) {
	thumb := pc.element.First(`i[data-sigil="playInlineVideo"]`)
	if !thumb.Exists() {
		return nil, nil
	}
	m := videoThumbnailRegex.FindStringSubmatch(thumb.AttrOr("style", ""))
	if m == nil {
		return nil, nil
	}
	return Partial{KeyVideoThumbnail: decode.DecodeCSSURL(m[1])}, nil
}

func extractVideoID(_ context.Context, pc *postContext) (Partial, error) {
	m := videoIDRegex.FindStringSubmatch(pc.html)
	if m == nil {
		return nil, nil
	}
	return Partial{KeyVideoID: m[1]}, nil
}

const watchAction = "http://schema.org/WatchAction"

func extractVideoMeta(ctx context.Context, pc *postContext) (Partial, error) {
	meta := ldJSON(pc.FullPost(ctx))
	if meta == nil || asString(meta["@type"]) != "VideoObject" {
		return nil, nil
	}
	out := Partial{}
	if d, ok := decode.ParseDuration(asString(meta["duration"])); ok {
		out[KeyVideoDurationSeconds] = d
	}
	for _, stat := range asSlice(meta["interactionStatistic"]) {
		if asString(lookup(stat, "interactionType", "@type")) == watchAction {
			if n, ok := toInt(lookup(stat, "userInteractionCount")); ok {
				out[KeyVideoWatches] = n
			}
		}
	}
	if q := asString(meta["videoQuality"]); q != "" {
		out[KeyVideoQuality] = q
	}
	if w, ok := toInt(meta["width"]); ok {
		out[KeyVideoWidth] = w
	}
	if h, ok := toInt(meta["height"]); ok {
		out[KeyVideoHeight] = h
	}
	if size := asString(meta["contentSize"]); size != "" {
		if kb, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(size, "kB", "")), 64); err == nil {
			out[KeyVideoSizeMB] = kb / 1000
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
