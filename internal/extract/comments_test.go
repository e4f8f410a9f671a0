package extract

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/FBScrapexter/internal/document"
	"github.com/valpere/FBScrapexter/internal/fetch/fetchtest"
)

const (
	commentsPage2URL = "https://m.facebook.com/story.php?story_fbid=1001&id=42&p=10"
	repliesURL       = "https://m.facebook.com/comment/replies/?ctoken=7"
)

func commentsFixture(t *testing.T) (*document.Document, *fetchtest.Fake) {
	t.Helper()
	full := document.MustParse(`<html><body>` + standardPost + `<div class="ufi">` +
		`<div data-sigil="comment" id="c1"><a href="/alice"><i class="profpic img" aria-label="Alice, profile picture"></i></a>` +
		`<div><h3><a href="/alice">Alice</a></h3><div data-sigil="comment-body">First!</div></div><abbr>Yesterday at 3:15 PM</abbr>` +
		`<div data-sigil="comment inline-reply" id="r1"><h3>Bob</h3><div data-sigil="comment-body">Welcome</div></div></div>` +
		`<div id="see_next_1001"><a href="/story.php?story_fbid=1001&amp;id=42&amp;p=10">View more comments</a></div>` +
		`</div></body></html>`)

	f := fetchtest.New(map[string]string{
		commentsPage2URL: `<div class="ufi"><div data-sigil="comment" id="c2"><h3>Carol</h3><div data-sigil="comment-body">Second</div>` +
			`<div class="async_elem" data-sigil="replies-see-more"><a href="/comment/replies/?ctoken=7">View replies</a></div></div>` +
			`<div id="see_next_1001"><a href="/story.php?story_fbid=1001&amp;id=42&amp;p=10">Again</a></div></div>`,
		repliesURL: `<div data-sigil="comment" id="c2"><h3>Carol</h3></div>` +
			`<div data-sigil="comment" id="r2"><h3>Dan</h3><div data-sigil="comment-body">Late reply</div></div>`,
	})
	return full, f
}

func commentOptions(mode Mode) Options {
	opts := offline()
	opts.Comments = mode
	return opts
}

func TestComments_EagerFollowsPagesAndReplies(t *testing.T) {
	full, f := commentsFixture(t)
	var progress []int
	opts := commentOptions(Eager)
	opts.Progress = func(done, _ int) { progress = append(progress, done) }

	post, err := testEngine(f).ExtractInput(context.Background(), Input{Element: full.First("article"), FullPost: full}, opts)
	require.NoError(t, err)

	comments, ok := post[KeyCommentsFull].([]Comment)
	require.True(t, ok)
	require.Len(t, comments, 2)

	c1 := comments[0]
	assert.Equal(t, "c1", c1.ID)
	assert.Equal(t, "https://facebook.com/c1", c1.URL)
	assert.Equal(t, "Alice", c1.CommenterName)
	assert.Equal(t, "https://facebook.com/alice", c1.CommenterURL)
	assert.Equal(t, "First!", c1.Text)
	require.NotNil(t, c1.Time)
	assert.Equal(t, time.Date(2026, 10, 14, 15, 15, 0, 0, time.UTC), *c1.Time)
	require.Len(t, c1.Replies, 1)
	assert.Equal(t, "Bob", c1.Replies[0].CommenterName)
	assert.Equal(t, "Welcome", c1.Replies[0].Text)

	c2 := comments[1]
	assert.Equal(t, "Carol", c2.CommenterName)
	assert.Equal(t, repliesURL, c2.RepliesURL)
	require.Len(t, c2.Replies, 1)
	assert.Equal(t, "Dan", c2.Replies[0].CommenterName)

	// The second page links to itself; the loop stops there.
	assert.Equal(t, 1, f.Count(commentsPage2URL))
	assert.Equal(t, []int{1, 2}, progress)
	assert.Equal(t, 34, post[KeyComments])
}

func TestComments_CappedStopsWithoutFetching(t *testing.T) {
	full, f := commentsFixture(t)

	post, err := testEngine(f).ExtractInput(context.Background(), Input{Element: full.First("article"), FullPost: full}, commentOptions(Capped(1)))
	require.NoError(t, err)

	comments := post[KeyCommentsFull].([]Comment)
	assert.Len(t, comments, 1)
	assert.Empty(t, f.Requests())
}

func TestComments_LazyFetchesOnIteration(t *testing.T) {
	full, f := commentsFixture(t)

	post, err := testEngine(f).ExtractInput(context.Background(), Input{Element: full.First("article"), FullPost: full}, commentOptions(Lazy))
	require.NoError(t, err)

	stream, ok := post[KeyCommentsFull].(*Stream[Comment])
	require.True(t, ok)
	assert.Empty(t, f.Requests())

	comments, err := stream.Collect(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, repliesURL, comments[1].RepliesURL)
	assert.Empty(t, comments[1].Replies)

	// Iterating again starts over.
	again, err := stream.Collect(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, again, 2)
	assert.Equal(t, 2, f.Count(commentsPage2URL))

	replies, err := testEngine(f).Replies(context.Background(), comments[1], offline())
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, "Late reply", replies[0].Text)
}

func TestComments_FillsMissingCount(t *testing.T) {
	full := document.MustParse(`<html><body><article data-ft='{"top_level_post_id":"9"}'><p>Hi</p></article>` +
		`<div class="ufi"><div data-sigil="comment" id="c1"><h3>Eve</h3></div><div data-sigil="comment" id="c2"><h3>Fay</h3></div></div></body></html>`)

	post, err := testEngine(fetchtest.New(nil)).ExtractInput(context.Background(), Input{Element: full.First("article"), FullPost: full}, commentOptions(Eager))
	require.NoError(t, err)
	assert.Equal(t, 2, post[KeyComments])
}

func TestComments_NoFullPostLeavesFieldEmpty(t *testing.T) {
	_, el := parseElement(t, standardPost, "article")
	post, err := testEngine(fetchtest.New(nil)).Extract(context.Background(), el, commentOptions(Eager))
	require.NoError(t, err)
	assert.Nil(t, post[KeyCommentsFull])
}
