package profile

import (
	"context"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/FBScrapexter/internal/errors"
	"github.com/valpere/FBScrapexter/internal/extract"
	"github.com/valpere/FBScrapexter/internal/fetch"
)

const groupPage = `<html><head><title>Go Developers</title></head><body>
<a href="/groups/123?view=info&amp;refid=18">About</a></body></html>`

const groupInfoPage = `<html><head><title>Go Developers</title></head><body>
<header><h3>Go Developers</h3><div>Public group</div></header>
<div data-testid="m_group_sections_members"><a href="/groups/123/members/">12,345 members</a></div>
</body></html>`

const groupMembersPage = `<html><head><title>Members</title></head><body>
<div id="root">
<div><div class="touchable"><a href="/alice?refid=18&amp;x=1">Alice</a></div></div>
<div><a href="/browse/group/members/?id=123&amp;start=0">See all</a></div>
</div></body></html>`

const browsePage1 = `<html><head><title>Members</title></head><body>
<div id="root">
<div class="touchable"><a href="/alice?x=1">Alice</a></div>
<div class="touchable"><a href="/bob">Bob</a></div>
</div>
<script>x=["m_more_item",href:"/browse/group/members/?id=123&start=2"]</script>
</body></html>`

const browsePage2 = `<html><head><title>Members</title></head><body>
<div id="root"><div class="touchable"><a href="/carol">Carol</a></div></div>
</body></html>`

func groupFake() *agentFake {
	return newAgentFake(map[string]string{
		"/groups/123":                           groupPage,
		"/groups/123?view=info&refid=18":        groupInfoPage,
		"/groups/123/members/":                  groupMembersPage,
		"/browse/group/members/?id=123&start=0": browsePage1,
		"/browse/group/members/?id=123&start=2": browsePage2,
	})
}

func TestGroupInfo(t *testing.T) {
	f := groupFake()

	info, err := New(f, nil, nil).GroupInfo(context.Background(), "123")
	require.NoError(t, err)

	assert.Equal(t, "123", info["id"])
	assert.Equal(t, "Go Developers", info["name"])
	assert.Equal(t, "Public group", info["type"])
	assert.Equal(t, 12345, info["members"])
	assert.Equal(t, []Member{{Name: "Alice", Link: "/alice?x=1"}}, info["admins"])
	assert.Equal(t, []Member{{Name: "Bob", Link: "/bob"}, {Name: "Carol", Link: "/carol"}}, info["other_members"])

	assert.Equal(t, []string{fetch.DesktopUserAgent, fetch.DefaultUserAgent}, f.seen)
	assert.Equal(t, fetch.DefaultUserAgent, f.ua)
}

func TestGroupInfo_MissingInfoLink(t *testing.T) {
	f := newAgentFake(map[string]string{
		"/groups/123": `<html><head><title>Go</title></head><body></body></html>`,
	})
	_, err := New(f, nil, nil).GroupInfo(context.Background(), "123")
	require.Error(t, err)
	assert.Equal(t, errors.KindUnexpectedResponse, errors.KindOf(err))
}

func TestGroupInfo_MemberListBehindLogin(t *testing.T) {
	f := groupFake()
	f.FailWith("/groups/123/members/", errors.New(errors.KindLoginRequired, "login"))

	info, err := New(f, nil, nil).GroupInfo(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, 12345, info["members"])
	assert.NotContains(t, info, "admins")
	assert.NotContains(t, info, "other_members")
}

func TestShop(t *testing.T) {
	f := newAgentFake(map[string]string{
		"/nintendo/shop/": `<html><head><title>Shop</title></head><body>
<a href="/nintendo/shop/?p=1">See More</a>
<a href="/commerce/products/?page=nintendo">See More</a></body></html>`,
		"/commerce/products/?page=nintendo": `<html><head><title>Shop</title></head><body>
<div class="be"><img src="https://x.fbcdn.net/switch.jpg"><div class="bk bl"><a href="/commerce/products/1">Switch</a></div><div class="bk bl">$299.99</div></div>
<div class="be"><img src="https://x.fbcdn.net/pro.jpg"><div class="bk bl"><a href="/commerce/products/2">Pro Controller</a></div><div class="bk bl">$69.99</div></div>
<div class="be"><span>Sponsored</span></div>
</body></html>`,
	})

	items, err := New(f, nil, nil).Shop(context.Background(), "nintendo")
	require.NoError(t, err)
	assert.Equal(t, []Item{
		{Name: "Switch", Link: "/commerce/products/1", Image: "https://x.fbcdn.net/switch.jpg", Price: "$299.99"},
		{Name: "Pro Controller", Link: "/commerce/products/2", Image: "https://x.fbcdn.net/pro.jpg", Price: "$69.99"},
	}, items)

	assert.Equal(t, []bool{true, true}, f.noscripts)
	assert.False(t, f.Noscript())
	assert.Equal(t, fetch.DefaultUserAgent, f.ua)
}

func TestShop_NoListingLink(t *testing.T) {
	f := newAgentFake(map[string]string{
		"/nintendo/shop/": `<html><head><title>Shop</title></head><body></body></html>`,
	})
	_, err := New(f, nil, nil).Shop(context.Background(), "nintendo")
	assert.Equal(t, errors.KindUnexpectedResponse, errors.KindOf(err))
}

func postSeq(items ...interface{}) iter.Seq2[extract.Post, error] {
	return func(yield func(extract.Post, error) bool) {
		for _, item := range items {
			switch v := item.(type) {
			case error:
				if !yield(nil, v) {
					return
				}
			case string:
				post := extract.NewPost()
				post[extract.KeyPostID] = v
				if !yield(post, nil) {
					return
				}
			}
		}
	}
}

const creatorPostPage = `<html><head><title>Nintendo</title>
<meta name="description" content="Nintendo. 1,234 likes · 20 talking about this.">
<script type="application/ld+json">{"@type":"VideoObject","creator":{"@type":"Organization","name":"<b>Nintendo</b>","url":"https://www.facebook.com/nintendo","interactionStatistic":[{"@type":"InteractionCounter","interactionType":{"@type":"http://schema.org/FollowAction"},"userInteractionCount":5000}]}}</script>
</head><body></body></html>`

func TestPageInfo(t *testing.T) {
	f := newAgentFake(map[string]string{
		"/111":             `<html><head><title>Post</title></head><body></body></html>`,
		"/222":             creatorPostPage,
		"/nintendo/about/": `<html><head><title>Nintendo</title><meta name="description" content="5,678 people like this"></head><body><div id="pages_msite_body_contents"><div>Official page.</div><div>Since 1889</div></div></body></html>`,
	})

	info, err := New(f, nil, nil).PageInfo(context.Background(), "nintendo", postSeq("111", "222", "333"))
	require.NoError(t, err)

	assert.Equal(t, Record{
		"type":      "Organization",
		"name":      "Nintendo",
		"url":       "https://www.facebook.com/nintendo",
		"followers": float64(5000),
		"likes":     5678,
		"about":     "Official page.\nSince 1889",
	}, info)
	assert.Equal(t, 0, f.Count("/333"))
}

func TestPageInfo_PostErrors(t *testing.T) {
	f := newAgentFake(map[string]string{
		"/nintendo/about/": `<html><head><title>Nintendo</title></head><body></body></html>`,
	})

	info, err := New(f, nil, nil).PageInfo(context.Background(), "nintendo",
		postSeq(errors.New(errors.KindStartURLNotFound, "gone")))
	require.NoError(t, err)
	assert.Empty(t, info)

	_, err = New(f, nil, nil).PageInfo(context.Background(), "nintendo",
		postSeq(errors.New(errors.KindTemporarilyBanned, "blocked")))
	assert.True(t, errors.Is(err, errors.ErrTemporarilyBanned))
}
