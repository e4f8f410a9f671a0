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

func TestVariant_GroupPostURL(t *testing.T) {
	markup := `<article data-ft='{"top_level_post_id":"456"}'><p>Group post</p>` +
		`<a href="/story.php?story_fbid=456&amp;id=1">Story</a>` +
		`<a href="https://m.facebook.com/groups/123/permalink/456/?refid=18">Permalink</a></article>`
	_, el := parseElement(t, markup, "article")

	post, err := testEngine(fetchtest.New(nil)).ExtractInput(context.Background(), Input{Element: el, Variant: Group}, offline())
	require.NoError(t, err)
	assert.Equal(t, "https://m.facebook.com/groups/123/permalink/456/", post[KeyPostURL])
}

func TestVariant_AccountPostURL(t *testing.T) {
	markup := `<article data-ft='{"top_level_post_id":"456"}'><p>Page post</p></article>`
	_, el := parseElement(t, markup, "article")
	opts := offline()
	opts.Account = "nintendo"

	post, err := testEngine(fetchtest.New(nil)).Extract(context.Background(), el, opts)
	require.NoError(t, err)
	assert.Equal(t, "https://facebook.com/nintendo/posts/456", post[KeyPostURL])
}

func TestVariant_VideoPostURL(t *testing.T) {
	markup := `<article data-ft='{"top_level_post_id":"456"}'><a href="/nintendo/videos/a.123/789/?type=3">Video</a></article>`
	_, el := parseElement(t, markup, "article")

	post, err := testEngine(fetchtest.New(nil)).Extract(context.Background(), el, offline())
	require.NoError(t, err)
	assert.Equal(t, "https://facebook.com/watch?v=789", post[KeyPostURL])
}

func TestVariant_HashtagResolvesTeaser(t *testing.T) {
	teaser := `<article><p>Teaser</p><a href="/story.php?story_fbid=77&amp;id=5&amp;refid=1">Read more</a></article>`
	_, el := parseElement(t, teaser, "article")
	f := fetchtest.New(map[string]string{
		"/story.php?story_fbid=77&id=5": `<div data-ft='{"top_level_post_id":"77","content_owner_id_new":"5"}'>` +
			`<header><h3><strong><a href="/five">Five</a></strong></h3></header><p>Full</p><p>story text</p></div>`,
	})

	post, err := testEngine(f).ExtractInput(context.Background(), Input{Element: el, Variant: Hashtag}, offline())
	require.NoError(t, err)
	assert.Equal(t, "77", post[KeyPostID])
	assert.Equal(t, "5", post[KeyUserID])
	assert.Equal(t, "Five", post[KeyUsername])
	assert.Equal(t, "Full\n\nstory text", post[KeyText])
}

func TestVariant_HashtagKeepsTeaserOnFailure(t *testing.T) {
	teaser := `<article><p>Teaser only</p><a href="/story.php?story_fbid=77&amp;id=5">Read more</a></article>`
	_, el := parseElement(t, teaser, "article")

	post, err := testEngine(fetchtest.New(nil)).ExtractInput(context.Background(), Input{Element: el, Variant: Hashtag}, offline())
	require.NoError(t, err)
	assert.Equal(t, "Teaser only", post[KeyText])
}

func TestVariant_PhotoPage(t *testing.T) {
	full := document.MustParse(`<html><body><div id="root"><div class="msg">A sunset</div>` +
		`<a href="https://scontent.xx.fbcdn.net/big.jpg" target="_blank" class="sec">View Full Size</a>` +
		`<script>require("Bootloader").x({entity_id:99,type:"photo"});["MLiveData",[],{ft_ent_identifier:"555"},1]]</script>` +
		`</div></body></html>`)

	post, err := testEngine(fetchtest.New(nil)).ExtractInput(context.Background(), Input{
		Element:  full.First("#root"),
		FullPost: full,
		Variant:  Photo,
	}, offline())
	require.NoError(t, err)
	assert.Equal(t, "A sunset", post[KeyText])
	assert.Equal(t, "555", post[KeyPostID])
	assert.Equal(t, "https://m.facebook.com/555", post[KeyPostURL])
	assert.Equal(t, "99", post[KeyUserID])
	assert.Equal(t, "https://scontent.xx.fbcdn.net/big.jpg", post[KeyImage])
	assert.Equal(t, []string{"https://scontent.xx.fbcdn.net/big.jpg"}, post[KeyImages])
}

func TestVariant_Story(t *testing.T) {
	markup := `<div class="story"><span class="story_author"><a href="/bob">Bob</a></span><span class="timestamp">2h</span></div>`
	_, el := parseElement(t, markup, "div.story")

	post, err := testEngine(fetchtest.New(nil)).ExtractInput(context.Background(), Input{Element: el, Variant: Story}, offline())
	require.NoError(t, err)
	assert.Equal(t, "Bob", post[KeyUsername])
	assert.Equal(t, "https://facebook.com/bob", post[KeyUserURL])
	assert.Equal(t, testNow.Add(-2*time.Hour), post[KeyTime])
}

func TestVariantByName(t *testing.T) {
	assert.Same(t, Group, VariantByName("group"))
	assert.Same(t, Photo, VariantByName("Photo"))
	assert.Same(t, Hashtag, VariantByName("hashtag"))
	assert.Same(t, Story, VariantByName("story"))
	assert.Same(t, Default, VariantByName("anything"))
}
