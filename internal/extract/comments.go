// internal/extract/comments.go
package extract

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/valpere/FBScrapexter/internal/decode"
	"github.com/valpere/FBScrapexter/internal/document"
	"github.com/valpere/FBScrapexter/internal/utils"
)

const (
	commentsAreaSelector     = "div.ufi"
	commentSelector          = `div[data-sigil="comment"]`
	commentSelectorNoscript  = "div._55wr"
	replySelectorNoscript    = "#root div[id]"
	inlineReplySelector      = "div[data-sigil='comment inline-reply']"
	repliesMoreSelector      = "div.async_elem[data-sigil='replies-see-more'] a[href],div[id*='comment_replies_more'] a[href]"
	commentBodySelector      = `[data-sigil="comment-body"],div._14ye,div.bl`
	commenterMetaSelector    = "div:not([data-sigil])>a[href]:not([data-click]):not([data-store]):not([data-sigil])"
	commentReactionsSelector = "a[href*='/ufi/reaction/profile/browser/']"

	maxComments = 5000
)

var feedStoryRingRegex = regexp.MustCompile(`feed_story_ring(\d+)`)

// pagerState is the state of a comment pager.
type pagerState int

const (
	pagerHasMore pagerState = iota
	pagerExhausted
)

// commentPager walks the "see more comments" chain of a post.
type commentPager struct {
	pc           *postContext
	selector     string
	moreSelector string
	more         document.Node
	state        pagerState
	visited      map[string]bool
	limit        int
}

func newCommentPager(pc *postContext, area document.Node) *commentPager {
	postID := pc.post.String(KeyPostID)
	p := &commentPager{
		pc:       pc,
		selector: commentSelector,
		visited:  map[string]bool{},
		limit:    pc.opts.Comments.Limit(maxComments),
	}
	if pc.opts.Noscript {
		p.selector = commentSelectorNoscript
	}

	p.moreSelector = fmt.Sprintf("div#see_next_%s a", postID)
	p.more = area.First(p.moreSelector)
	if !p.more.Exists() {
		p.moreSelector = fmt.Sprintf("div#see_prev_%s a", postID)
		p.more = area.First(p.moreSelector)
	}
	if ajax := p.more.AttrOr("data-ajaxify-href", ""); ajax != "" {
		if count, err := strconv.Atoi(utils.QueryParam(ajax, "count")); err == nil && count < p.limit {
			p.limit = count
		}
	}
	if !p.more.Exists() {
		p.state = pagerExhausted
	}
	return p
}

// next fetches the following page of comments. It returns nil once the chain
// ends, loops back, or a page fails to load.
func (p *commentPager) next(ctx context.Context) []document.Node {
	if p.state == pagerExhausted {
		return nil
	}
	url := utils.MobileURL(p.more.AttrOr("href", ""))
	if p.visited[url] {
		p.pc.logger.Debug("cycle detected, break")
		p.state = pagerExhausted
		return nil
	}
	p.pc.logger.Debugf("Fetching %s", url)
	resp, err := p.pc.get(ctx, url)
	if err != nil {
		if isBan(err) {
			p.pc.fatal = err
		}
		p.pc.logger.Errorf("Failed to fetch comments page %s: %v", url, err)
		p.state = pagerExhausted
		return nil
	}
	p.visited[url] = true

	area := resp.Doc.First(commentsAreaSelector)
	comments := area.Find(p.selector)
	if len(comments) == 0 {
		p.pc.logger.Warn("No comments found on page")
		p.state = pagerExhausted
		return nil
	}
	p.more = area.First(p.moreSelector)
	if !p.more.Exists() {
		p.state = pagerExhausted
	}
	return comments
}

// extractCommentsFull reads the comments of the post's own page and every page
// linked from it.
func extractCommentsFull(ctx context.Context, pc *postContext) (Partial, error) {
	full := pc.FullPost(ctx)
	if full == nil {
		pc.logger.Debug("Full post page unavailable, skipping comments")
		return nil, nil
	}
	area := full.First(commentsAreaSelector)
	pager := newCommentPager(pc, area)
	first := area.Find(pager.selector)
	if len(first) == 0 {
		pc.logger.Warn("No comments found on page")
		return nil, nil
	}
	pc.logger.Debugf("Fetching up to %d comments", pager.limit)

	stream := NewStream(func(ctx context.Context, yield func(Comment) bool) error {
		p := pager
		page := first
		if pc.opts.Comments.Kind == ModeLazy {
			// Each iteration starts over from the first page.
			p = newCommentPager(pc, area)
		}
		done := 0
		for len(page) > 0 {
			for _, node := range page {
				if done >= p.limit {
					return nil
				}
				c, ok := pc.parseComment(node)
				if !ok {
					continue
				}
				c.Replies = append(c.Replies, pc.inlineReplies(node)...)
				if pc.opts.Comments.Kind != ModeLazy && c.RepliesURL != "" {
					replies, err := pc.fetchReplies(ctx, c.RepliesURL)
					if err != nil {
						pc.logger.Errorf("Unable to fetch replies of %s: %v", c.ID, err)
					}
					c.Replies = append(c.Replies, replies...)
				}
				done++
				if pc.opts.Progress != nil {
					pc.opts.Progress(done, p.limit)
				}
				if !yield(c) {
					return nil
				}
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			page = p.next(ctx)
			if pc.fatal != nil {
				return pc.fatal
			}
		}
		return nil
	})

	if pc.opts.Comments.Kind == ModeLazy {
		return Partial{KeyCommentsFull: stream}, nil
	}
	comments, err := stream.Collect(ctx, pager.limit)
	if err != nil {
		return nil, err
	}
	pc.logger.Debugf("Found %d comments", len(comments))
	return Partial{KeyCommentsFull: comments}, nil
}

func (pc *postContext) inlineReplies(node document.Node) []Comment {
	replies := []Comment{}
	for _, r := range node.Find(inlineReplySelector) {
		if c, ok := pc.parseComment(r); ok {
			replies = append(replies, c)
		}
	}
	return replies
}

// fetchReplies loads the reply page of a comment. Its first entry is the
// comment itself and is skipped.
func (pc *postContext) fetchReplies(ctx context.Context, url string) ([]Comment, error) {
	pc.logger.Debugf("Fetching %s", url)
	resp, err := pc.get(ctx, url)
	if err != nil {
		return nil, err
	}
	selector := commentSelector
	if pc.opts.Noscript {
		selector = replySelectorNoscript
	}
	nodes := resp.Doc.Find(selector)
	var replies []Comment
	for i, n := range nodes {
		if i == 0 {
			continue
		}
		if c, ok := pc.parseComment(n); ok {
			replies = append(replies, c)
		}
	}
	return replies, nil
}

// Replies refetches the replies of c that were not shown inline.
func (e *Engine) Replies(ctx context.Context, c Comment, opts Options) ([]Comment, error) {
	if c.RepliesURL == "" {
		return nil, nil
	}
	pc := newPostContext(e, Default, document.Node{}, nil, opts)
	return pc.fetchReplies(ctx, c.RepliesURL)
}

func (pc *postContext) parseComment(node document.Node) (Comment, bool) {
	id, ok := node.Attr("id")
	if !ok {
		pc.logger.Debug("Skipping comment without id")
		return Comment{}, false
	}
	c := Comment{ID: id, URL: utils.URLJoin(utils.BaseURL, id), Replies: []Comment{}}

	if pic := node.First(".profpic.img"); pic.Exists() {
		name := firstAttr(pic, "alt", "aria-label")
		c.CommenterName = strings.SplitN(name, ",", 2)[0]
		if m := feedStoryRingRegex.FindStringSubmatch(node.HTML()); m != nil {
			c.CommenterID = m[1]
		}
		if href, ok := pic.Parent().Attr("href"); ok && href != "" {
			c.CommenterURL = utils.URLJoin(utils.BaseURL, href)
		}
	} else {
		c.CommenterName = node.First("h3").Text()
	}

	if link := node.First(commenterMetaSelector); link.Exists() {
		if text := link.Text(); strings.Contains(text, "\n") {
			c.CommenterMeta = strings.SplitN(text, "\n", 2)[0]
		}
	}

	if body := node.First(commentBodySelector); body.Exists() {
		c.Text = body.Text()
	} else {
		c.Text = node.Text()
	}

	if abbr := node.First("abbr"); abbr.Exists() {
		c.Time = pc.engine.dates.Parse(abbr.Text(), true)
		if c.Time == nil {
			pc.logger.Debugf("Unable to parse %s", abbr.Text())
		}
	}

	if a := node.First(`a[href^="https://lm.facebook.com/l.php"]`); a.Exists() {
		c.Image = utils.QueryParam(a.AttrOr("href", ""), "u")
	} else if img := node.First("i.img:not(.profpic)[style]"); img.Exists() {
		if m := imageLQRegex.FindStringSubmatch(img.AttrOr("style", "")); m != nil {
			c.Image = decode.DecodeCSSURL(m[1])
		}
	}

	if r := node.First(commentReactionsSelector); r.Exists() {
		if n, err := decode.ConvertNumericAbbr(r.Text()); err == nil {
			c.ReactionCount = n
		}
		c.ReactorsURL = utils.MobileURL(r.AttrOr("href", ""))
	}

	if more := node.First(repliesMoreSelector); more.Exists() {
		c.RepliesURL = utils.MobileURL(more.AttrOr("href", ""))
	}
	return c, true
}
