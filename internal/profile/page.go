// internal/profile/page.go
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"iter"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/valpere/FBScrapexter/internal/decode"
	"github.com/valpere/FBScrapexter/internal/document"
	"github.com/valpere/FBScrapexter/internal/errors"
	"github.com/valpere/FBScrapexter/internal/extract"
)

const followAction = "http://schema.org/FollowAction"

var (
	likesRegex = regexp.MustCompile(`(\d[\d,.]+)`)

	// Creator names and descriptions sometimes carry markup.
	creatorPolicy = bluemonday.StrictPolicy()
)

// PageInfo describes a page from the structured data of its posts and its
// about page. posts is usually the page's own timeline; the first post whose
// page carries a creator block is used.
func (s *Scraper) PageInfo(ctx context.Context, page string, posts iter.Seq2[extract.Post, error]) (Record, error) {
	result := Record{}

	if posts != nil {
		for post, err := range posts {
			if err != nil {
				if errors.IsFatal(err) {
					return nil, err
				}
				s.logger.Warnf("Stopped reading posts of %s: %v", page, err)
				break
			}
			postID := post.String(extract.KeyPostID)
			if postID == "" {
				continue
			}
			s.logger.Debugf("Fetching %s", postID)
			resp, err := s.fetcher.Get(ctx, "/"+postID)
			if err != nil {
				if errors.IsFatal(err) {
					return nil, err
				}
				s.logger.Warnf("Failed to fetch post %s: %v", postID, err)
				continue
			}
			if creator := creatorInfo(resp.Doc); creator != nil {
				result = creator
				break
			}
		}
	}

	aboutURL := fmt.Sprintf("/%s/about/", page)
	s.logger.Debugf("Requesting page from: %s", aboutURL)
	resp, err := s.fetcher.Get(ctx, aboutURL)
	if err != nil {
		if errors.IsFatal(err) {
			return nil, err
		}
		s.logger.Errorf("Failed to fetch about page of %s: %v", page, err)
		return result, nil
	}
	if likes, ok := descriptionLikes(resp.Doc); ok {
		result["likes"] = likes
	}
	if body := resp.Doc.First("#pages_msite_body_contents"); body.Exists() {
		result["about"] = body.Text()
	}
	return result, nil
}

// creatorInfo reads the creator block of a post page's ld+json.
func creatorInfo(doc *document.Document) Record {
	script := doc.First("script[type='application/ld+json']")
	if !script.Exists() {
		return nil
	}
	var meta map[string]interface{}
	if err := json.Unmarshal([]byte(script.Selection().Text()), &meta); err != nil {
		return nil
	}
	creator, ok := meta["creator"].(map[string]interface{})
	if !ok || len(creator) == 0 {
		return nil
	}

	result := Record{}
	for k, v := range creator {
		if str, ok := v.(string); ok {
			v = strings.TrimSpace(html.UnescapeString(creatorPolicy.Sanitize(str)))
		}
		result[k] = v
	}
	if t, ok := result["@type"]; ok {
		result["type"] = t
		delete(result, "@type")
	}
	if likes, ok := descriptionLikes(doc); ok {
		result["likes"] = likes
	}
	if stats, ok := result["interactionStatistic"].([]interface{}); ok {
		for _, raw := range stats {
			stat, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			if interactionType(stat["interactionType"]) == followAction {
				result["followers"] = stat["userInteractionCount"]
			}
		}
	}
	delete(result, "interactionStatistic")
	return result
}

// interactionType accepts both {"@type": "..."} and a bare string.
func interactionType(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]interface{}:
		s, _ := t["@type"].(string)
		return s
	}
	return ""
}

func descriptionLikes(doc *document.Document) (int, bool) {
	desc, ok := doc.First("meta[name='description']").Attr("content")
	if !ok {
		return 0, false
	}
	m := likesRegex.FindStringSubmatch(desc)
	if m == nil {
		return 0, false
	}
	n, err := decode.ParseInt(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
