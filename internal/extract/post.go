// internal/extract/post.go
package extract

import (
	"sort"
	"time"
)

// Post is an extracted record. Every key of PostKeys is always present; a nil
// value means the field could not be found, which is an expected outcome.
type Post map[string]interface{}

// Partial is the subset of fields produced by one extraction method.
type Partial map[string]interface{}

// Post field names.
const (
	KeyPostID                      = "post_id"
	KeyText                        = "text"
	KeyPostText                    = "post_text"
	KeySharedText                  = "shared_text"
	KeyTime                        = "time"
	KeyImage                       = "image"
	KeyImageLowQuality             = "image_lowquality"
	KeyImages                      = "images"
	KeyImagesDescription           = "images_description"
	KeyImagesLowQuality            = "images_lowquality"
	KeyImagesLowQualityDescription = "images_lowquality_description"
	KeyImageID                     = "image_id"
	KeyImageIDs                    = "image_ids"
	KeyVideo                       = "video"
	KeyVideoDurationSeconds        = "video_duration_seconds"
	KeyVideoHeight                 = "video_height"
	KeyVideoID                     = "video_id"
	KeyVideoIDs                    = "video_ids"
	KeyVideoQuality                = "video_quality"
	KeyVideoSizeMB                 = "video_size_MB"
	KeyVideoThumbnail              = "video_thumbnail"
	KeyVideoWatches                = "video_watches"
	KeyVideoWidth                  = "video_width"
	KeyVideos                      = "videos"
	KeyLikes                       = "likes"
	KeyComments                    = "comments"
	KeyShares                      = "shares"
	KeyPostURL                     = "post_url"
	KeyLink                        = "link"
	KeyUserID                      = "user_id"
	KeyUsername                    = "username"
	KeyUserURL                     = "user_url"
	KeySource                      = "source"
	KeyIsLive                      = "is_live"
	KeyFactcheck                   = "factcheck"
	KeySharedPostID                = "shared_post_id"
	KeySharedTime                  = "shared_time"
	KeySharedUserID                = "shared_user_id"
	KeySharedUsername              = "shared_username"
	KeySharedPostURL               = "shared_post_url"
	KeyAvailable                   = "available"
	KeyCommentsFull                = "comments_full"
	KeyReactors                    = "reactors"
	KeyW3FBURL                     = "w3_fb_url"
	KeyReactions                   = "reactions"
	KeyReactionCount               = "reaction_count"
	KeyFetchedTime                 = "fetched_time"
	KeyListingTitle                = "listing_title"
	KeyListingPrice                = "listing_price"
	KeyListingLocation             = "listing_location"
	KeyOriginalRequestURL          = "original_request_url"
)

// PostKeys is the fixed column set of a Post, in output order.
var PostKeys = []string{
	KeyPostID, KeyText, KeyPostText, KeySharedText, KeyTime,
	KeyImage, KeyImageLowQuality, KeyImages, KeyImagesDescription,
	KeyImagesLowQuality, KeyImagesLowQualityDescription, KeyImageID, KeyImageIDs,
	KeyVideo, KeyVideoDurationSeconds, KeyVideoHeight, KeyVideoID, KeyVideoIDs,
	KeyVideoQuality, KeyVideoSizeMB, KeyVideoThumbnail, KeyVideoWatches,
	KeyVideoWidth, KeyVideos,
	KeyLikes, KeyComments, KeyShares,
	KeyPostURL, KeyLink, KeyUserID, KeyUsername, KeyUserURL,
	KeySource, KeyIsLive, KeyFactcheck,
	KeySharedPostID, KeySharedTime, KeySharedUserID, KeySharedUsername, KeySharedPostURL,
	KeyAvailable, KeyCommentsFull, KeyReactors, KeyW3FBURL, KeyReactions,
	KeyReactionCount, KeyFetchedTime,
	KeyListingTitle, KeyListingPrice, KeyListingLocation,
	KeyOriginalRequestURL,
}

// NewPost creates a record with every known key set to its default.
func NewPost() Post {
	p := make(Post, len(PostKeys))
	for _, k := range PostKeys {
		p[k] = nil
	}
	p[KeyIsLive] = false
	return p
}

// Clone returns a shallow copy of the record.
func (p Post) Clone() Post {
	out := make(Post, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// StripSource drops the raw markup reference.
func (p Post) StripSource() {
	p[KeySource] = nil
}

// String returns a string field, or "" when it is absent or not a string.
func (p Post) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// Int returns an integer field.
func (p Post) Int(key string) (int, bool) {
	n, ok := p[key].(int)
	return n, ok
}

// Time returns a time field.
func (p Post) Time(key string) (time.Time, bool) {
	switch v := p[key].(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v != nil {
			return *v, true
		}
	}
	return time.Time{}, false
}

// Keys returns the record's keys: PostKeys first, then any extras sorted.
func (p Post) Keys() []string {
	known := make(map[string]bool, len(PostKeys))
	keys := make([]string, 0, len(p))
	for _, k := range PostKeys {
		known[k] = true
		if _, ok := p[k]; ok {
			keys = append(keys, k)
		}
	}
	var extra []string
	for k := range p {
		if !known[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}

// Project keeps only the given keys, adding missing ones as nil.
func (p Post) Project(keys []string) Post {
	out := make(Post, len(keys))
	for _, k := range keys {
		out[k] = p[k]
	}
	return out
}

// Comment is one comment of a post, with its replies.
type Comment struct {
	ID            string     `json:"comment_id" yaml:"comment_id"`
	URL           string     `json:"comment_url" yaml:"comment_url"`
	CommenterID   string     `json:"commenter_id,omitempty" yaml:"commenter_id,omitempty"`
	CommenterURL  string     `json:"commenter_url,omitempty" yaml:"commenter_url,omitempty"`
	CommenterName string     `json:"commenter_name" yaml:"commenter_name"`
	CommenterMeta string     `json:"commenter_meta,omitempty" yaml:"commenter_meta,omitempty"`
	Text          string     `json:"comment_text" yaml:"comment_text"`
	Time          *time.Time `json:"comment_time" yaml:"comment_time"`
	Image         string     `json:"comment_image,omitempty" yaml:"comment_image,omitempty"`
	ReactionCount int        `json:"comment_reaction_count" yaml:"comment_reaction_count"`
	ReactorsURL   string     `json:"comment_reactors_url,omitempty" yaml:"comment_reactors_url,omitempty"`
	Replies       []Comment  `json:"replies" yaml:"replies"`

	// RepliesURL is the page holding the replies not shown inline. Replies
	// can be refetched from it at any time.
	RepliesURL string `json:"replies_url,omitempty" yaml:"replies_url,omitempty"`
}

// Reactor is a person who reacted to a post.
type Reactor struct {
	Name string `json:"name" yaml:"name"`
	Link string `json:"link" yaml:"link"`
	Type string `json:"type" yaml:"type"`
}
