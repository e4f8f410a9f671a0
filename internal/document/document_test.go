package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const commentedMarkup = `<html><head><title> Nintendo | Facebook </title></head><body>
<div id="root"><!--<article data-ft='{"top_level_post_id":"1"}'><p>Hello</p></article>--></div>
</body></html>`

func TestParse_StripsCommentMarkers(t *testing.T) {
	doc, err := Parse(commentedMarkup)
	require.NoError(t, err)

	articles := doc.Find("article")
	require.Len(t, articles, 1)
	ft, ok := articles[0].Attr("data-ft")
	assert.True(t, ok)
	assert.Equal(t, `{"top_level_post_id":"1"}`, ft)

	title, ok := doc.Title()
	assert.True(t, ok)
	assert.Equal(t, "Nintendo | Facebook", title)
}

func TestParse_DropsControlCharacters(t *testing.T) {
	doc, err := Parse("<p>a\x00b\x0bc\x7f</p>")
	require.NoError(t, err)
	assert.Equal(t, "abc", doc.First("p").Text())
}

func TestNode_AbsentAttribute(t *testing.T) {
	doc := MustParse(`<a href="/x">x</a>`)
	a := doc.First("a")

	_, ok := a.Attr("data-store")
	assert.False(t, ok)
	assert.Equal(t, "fallback", a.AttrOr("title", "fallback"))

	missing := doc.First("span")
	assert.False(t, missing.Exists())
	assert.Empty(t, missing.Find("a"))
	assert.Equal(t, "", missing.Text())
	assert.Equal(t, "", missing.HTML())
}

func TestNode_TextSeparatesBlocks(t *testing.T) {
	doc := MustParse(`<div class="card"><header>Places lived</header><div>Kyoto<span> </span></div><div>Current city</div><script>var x = 1;</script></div>`)
	assert.Equal(t, "Places lived\nKyoto\nCurrent city", doc.First("div.card").Text())
}

func TestNode_HTMLIncludesOwnTag(t *testing.T) {
	doc := MustParse(`<footer><span>1.2K Like</span></footer>`)
	assert.Equal(t, "<footer><span>1.2K Like</span></footer>", doc.First("footer").HTML())
	assert.Equal(t, "<span>1.2K Like</span>", doc.First("footer").InnerHTML())
}

func TestFragment(t *testing.T) {
	n, err := Fragment(`<article data-ft="{}"><header>h</header></article>`)
	require.NoError(t, err)
	assert.Equal(t, "article", n.Tag())
	assert.True(t, n.First("header").Exists())
}

func TestFirstContaining(t *testing.T) {
	doc := MustParse(`<a href="/1">One</a><a href="/2">See More</a>`)
	n := doc.Root().FirstContaining("a", "See More")
	assert.Equal(t, "/2", n.AttrOr("href", ""))
}
