package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/FBScrapexter/internal/document"
	"github.com/valpere/FBScrapexter/internal/fetch/fetchtest"
)

const reactionScripts = `<script>["MLiveData",[],{reactioncount:12,reactioncountmap:{"1":{default:10},"2":{default:2}},like_count:10},1]]</script>` +
	`<script>["UFIReactionTypes",[],{reactions:{"1":{display_name:"Like"},"2":{display_name:"Love"}}},2]</script>` +
	`<script>["UFIReactionIcons",[],{"1":{"16":{spriteCssClass:"sx_like",spriteMapCssClass:"sp_E24l_TeOlgh"}},"2":{"16":{spriteCssClass:"sx_love",spriteMapCssClass:"sp_E24l_TeOlgh"}}},3]</script>`

const reactorsURL = "https://m.facebook.com/ufi/reaction/profile/browser/?ft_ent_identifier=1001"

func TestReactions_FromLiveData(t *testing.T) {
	full := document.MustParse(`<html><body>` + standardPost + reactionScripts + `</body></html>`)
	opts := offline()
	opts.Reactions = Eager

	post, err := testEngine(fetchtest.New(nil)).ExtractInput(context.Background(), Input{Element: full.First("article"), FullPost: full}, opts)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"like": 10, "love": 2}, post[KeyReactions])
	assert.Equal(t, 10, post[KeyLikes])
	assert.Equal(t, 12, post[KeyReactionCount])
	assert.Equal(t, "https://www.facebook.com/story.php?story_fbid=1001&id=42", post[KeyW3FBURL])
	assert.Equal(t, testNow, post[KeyFetchedTime])
}

func TestReactions_Reactors(t *testing.T) {
	full := document.MustParse(`<html><body>` + standardPost + reactionScripts + `</body></html>`)
	f := fetchtest.New(map[string]string{
		reactorsURL: `<div id="reaction_profile_browser">` +
			`<div><a href="/alice"><strong>Alice</strong></a><div><i class="img sp_E24l_TeOlgh sx_like"></i></div></div>` +
			`<div><a href="/bob"><strong>Bob</strong></a><div><i class="img sp_E24l_TeOlgh sx_love"></i></div></div>` +
			`</div>`,
	})
	opts := offline()
	opts.Reactors = Eager

	post, err := testEngine(f).ExtractInput(context.Background(), Input{Element: full.First("article"), FullPost: full}, opts)
	require.NoError(t, err)

	assert.Equal(t, []Reactor{
		{Name: "Alice", Link: "https://facebook.com/alice", Type: "like"},
		{Name: "Bob", Link: "https://facebook.com/bob", Type: "love"},
	}, post[KeyReactors])
}

func TestReactions_LazyReactors(t *testing.T) {
	full := document.MustParse(`<html><body>` + standardPost + reactionScripts + `</body></html>`)
	f := fetchtest.New(map[string]string{
		reactorsURL: `<div id="reaction_profile_browser"><div><a href="/alice"><strong>Alice</strong></a><div><i class="sp_E24l_TeOlgh sx_like"></i></div></div></div>`,
	})
	opts := offline()
	opts.Reactors = Lazy

	post, err := testEngine(f).ExtractInput(context.Background(), Input{Element: full.First("article"), FullPost: full}, opts)
	require.NoError(t, err)
	assert.Empty(t, f.Requests())

	stream, ok := post[KeyReactors].(*Stream[Reactor])
	require.True(t, ok)
	var names []string
	for r, err := range stream.All(context.Background()) {
		require.NoError(t, err)
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"Alice"}, names)
}

func legacyMarkup(postID string) string {
	feedback := `{subscription_target_id:"` + postID + `",share_count:{count:3},reactors:{count:20},comment_count:{total_count:4},` +
		`url:"https://www.facebook.com/x",top_reactions:{edges:[{node:{reaction_type:"LIKE"},reaction_count:15},{node:{reaction_type:"HAHA"},reaction_count:5}]}}`
	blob := `{jsmods:{pre_display_requires:[["RelayPrefetchedStreamCache","next",[],["adp",{__bbox:{result:{data:{feedback:` +
		feedback + `}}}}]]]}}`
	return `<html><body><script nonce="abc">bigPipe.onPageletArrive(` + blob + `);</script></body></html>`
}

func TestBigPipeFeedback(t *testing.T) {
	fb, ok := BigPipeFeedback{}.Feedback(legacyMarkup("1001"), "1001")
	require.True(t, ok)
	assert.Equal(t, 3, fb.Shares)
	assert.Equal(t, 20, fb.Likes)
	assert.Equal(t, 4, fb.Comments)
	assert.Equal(t, map[string]int{"like": 15, "haha": 5}, fb.Reactions)
	assert.Equal(t, "https://www.facebook.com/x", fb.URL)

	_, ok = BigPipeFeedback{}.Feedback(legacyMarkup("1001"), "999")
	assert.False(t, ok)
}

func TestReactions_LegacyFallback(t *testing.T) {
	full, el := parseElement(t, `<html><body>`+standardPost+`</body></html>`, "article")
	f := fetchtest.New(map[string]string{
		"https://www.facebook.com/story.php?story_fbid=1001&id=42": legacyMarkup("1001"),
	})
	opts := DefaultOptions()
	opts.Reactions = Eager

	post, err := testEngine(f).ExtractInput(context.Background(), Input{Element: el, FullPost: full}, opts)
	require.NoError(t, err)
	assert.Equal(t, 3, post[KeyShares])
	assert.Equal(t, 20, post[KeyLikes])
	assert.Equal(t, 4, post[KeyComments])
	assert.Equal(t, "https://www.facebook.com/x", post[KeyW3FBURL])
	assert.Equal(t, map[string]int{"like": 15, "haha": 5}, post[KeyReactions])
}

type stubLegacy struct{ calls int }

func (s *stubLegacy) Feedback(string, string) (*LegacyFeedback, bool) {
	s.calls++
	return nil, false
}

func TestReactions_LegacySourceIsReplaceable(t *testing.T) {
	full, el := parseElement(t, `<html><body>`+standardPost+`</body></html>`, "article")
	f := fetchtest.New(map[string]string{
		"https://www.facebook.com/story.php?story_fbid=1001&id=42": legacyMarkup("1001"),
	})
	stub := &stubLegacy{}
	opts := DefaultOptions()
	opts.Reactions = Eager

	post, err := testEngine(f, WithLegacyReactions(stub)).ExtractInput(context.Background(), Input{Element: el, FullPost: full}, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, stub.calls)
	assert.Nil(t, post[KeyReactions])
	assert.Equal(t, testNow, post[KeyFetchedTime])
}
