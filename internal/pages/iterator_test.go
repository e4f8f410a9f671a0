package pages

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/FBScrapexter/internal/cursor"
	"github.com/valpere/FBScrapexter/internal/errors"
	"github.com/valpere/FBScrapexter/internal/fetch"
	"github.com/valpere/FBScrapexter/internal/fetch/fetchtest"
)

func listing(posts int, next string) string {
	body := ""
	for i := 0; i < posts; i++ {
		body += fmt.Sprintf(`<article data-ft='{"top_level_post_id":"%d"}'>post %d</article>`, i, i)
	}
	script := "<script>var nothing;</script>"
	if next != "" {
		script = fmt.Sprintf(`<script>require("x", {href:"%s"});</script>`, next)
	}
	return "<html><head>" + script + "</head><body>" + body + "</body></html>"
}

func fastOptions() Options {
	opts := DefaultOptions()
	opts.InitialBackoff = time.Millisecond
	opts.MaxBackoff = 2 * time.Millisecond
	return opts
}

func collect(t *testing.T, it *Iterator) ([]*Page, error) {
	t.Helper()
	var pages []*Page
	for page, err := range it.Pages(context.Background()) {
		if err != nil {
			return pages, err
		}
		pages = append(pages, page)
	}
	return pages, nil
}

func TestIterator_StopsWhenNoCursor(t *testing.T) {
	fake := fetchtest.New(map[string]string{
		"/nintendo/posts/":   listing(2, "/page_content/p2"),
		"/page_content/p2":   listing(3, "/page_content/p3"),
		"/page_content/p3":   listing(1, ""),
		"/page_content/p999": listing(1, ""),
	})

	it := New(fake, "/nintendo/posts/", fastOptions(), nil)
	pages, err := collect(t, it)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Len(t, pages[0].Posts, 2)
	assert.Len(t, pages[1].Posts, 3)
	assert.Equal(t, "/page_content/p2", pages[0].NextURL)
	assert.Empty(t, pages[2].NextURL)
	assert.Equal(t, StateDone, it.State())
	assert.Equal(t, []string{"/nintendo/posts/", "/page_content/p2", "/page_content/p3"}, fake.Requests())
}

func TestIterator_CycleGuard(t *testing.T) {
	fake := fetchtest.New(map[string]string{
		"/a":              listing(1, "/page_content/b"),
		"/page_content/b": listing(1, "/page_content/c"),
		"/page_content/c": listing(1, "/page_content/b"),
	})

	pages, err := collect(t, New(fake, "/a", fastOptions(), nil))
	require.NoError(t, err)
	assert.Len(t, pages, 3)
	assert.Equal(t, 1, fake.Count("/page_content/b"))
}

func TestIterator_PageLimit(t *testing.T) {
	fake := fetchtest.New(map[string]string{
		"/a":              listing(1, "/page_content/b"),
		"/page_content/b": listing(1, "/page_content/c"),
		"/page_content/c": listing(1, ""),
	})
	opts := fastOptions()
	opts.PageLimit = 2

	pages, err := collect(t, New(fake, "/a", opts, nil))
	require.NoError(t, err)
	assert.Len(t, pages, 2)
	assert.Zero(t, fake.Count("/page_content/c"))
}

func TestIterator_RetriesServerErrors(t *testing.T) {
	fake := fetchtest.New(map[string]string{"/a": listing(1, "")})
	fake.FailWith("/a",
		errors.New(errors.KindServerError, "HTTP 500"),
		errors.New(errors.KindNetwork, "timeout"),
	)

	it := New(fake, "/a", fastOptions(), nil)
	pages, err := collect(t, it)
	require.NoError(t, err)
	assert.Len(t, pages, 1)
	assert.Equal(t, 2, it.Retries())
	assert.Equal(t, 3, fake.Count("/a"))
}

func TestIterator_GivesUpAfterMaxAttempts(t *testing.T) {
	fake := fetchtest.New(map[string]string{"/a": listing(1, "")})
	for i := 0; i < 10; i++ {
		fake.FailWith("/a", errors.New(errors.KindServerError, "HTTP 503"))
	}

	it := New(fake, "/a", fastOptions(), nil)
	_, err := collect(t, it)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrServerError))
	assert.Equal(t, 6, fake.Count("/a"))
	assert.Equal(t, StateFailed, it.State())
}

func TestIterator_FatalErrorsAreNotRetried(t *testing.T) {
	fake := fetchtest.New(map[string]string{"/a": listing(1, "")})
	fake.FailWith("/a", errors.New(errors.KindTemporarilyBanned, "blocked"))

	_, err := collect(t, New(fake, "/a", fastOptions(), nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTemporarilyBanned))
	assert.Equal(t, 1, fake.Count("/a"))
}

func TestIterator_RateLimitedIsNotRetried(t *testing.T) {
	fake := fetchtest.New(map[string]string{
		"/a":              listing(1, "/page_content/b"),
		"/page_content/b": listing(1, ""),
	})
	fake.FailWith("/page_content/b", fetch.ClassifyStatus(http.StatusTooManyRequests))

	it := New(fake, "/a", fastOptions(), nil)
	pages, err := collect(t, it)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTemporarilyBanned))
	assert.Len(t, pages, 1)
	assert.Equal(t, 1, fake.Count("/page_content/b"))
	assert.Equal(t, 0, it.Retries())
	assert.Equal(t, StateFailed, it.State())
}

func TestIterator_StartURLNotFound(t *testing.T) {
	fake := fetchtest.New(nil)
	it := New(fake, "/nobody/posts/", fastOptions(), nil)

	outcome, page, err := it.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlternateNeeded, outcome)
	assert.Nil(t, page)

	_, err = collect(t, New(fake, "/nobody/posts/", fastOptions(), nil))
	assert.True(t, errors.Is(err, errors.ErrStartURLNotFound))
}

func TestIterator_NotFoundLaterIsAnError(t *testing.T) {
	fake := fetchtest.New(map[string]string{"/a": listing(1, "/page_content/gone")})
	pages, err := collect(t, New(fake, "/a", fastOptions(), nil))
	assert.Len(t, pages, 1)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestIterator_JSONPages(t *testing.T) {
	fake := fetchtest.New(map[string]string{
		"/a":              listing(1, "/page_content/b"),
		"/page_content/b": `for (;;);{"payload":{"actions":[{"cmd":"replace","html":"<article>x</article><article>y</article>"},{"cmd":"script","code":"href:\"/page_content/c\""}]}}`,
		"/page_content/c": `for (;;);{"payload":{"actions":[{"cmd":"replace","html":"<article>z</article>"},{"cmd":"script","code":""}]}}`,
	})

	pages, err := collect(t, New(fake, "/a", fastOptions(), nil))
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Len(t, pages[1].Posts, 2)
	assert.True(t, pages[1].Payload.JSON)
	assert.Len(t, pages[2].Posts, 1)
}

func TestIterator_OnPageURLAndPostsPerPage(t *testing.T) {
	fake := fetchtest.New(map[string]string{
		"/a":                              listing(1, "/page_content/b?num_to_fetch=4"),
		"/page_content/b?num_to_fetch=20": listing(1, ""),
	})
	var seen []string
	opts := fastOptions()
	opts.PostsPerPage = 20
	opts.OnPageURL = func(url string, page int) {
		seen = append(seen, fmt.Sprintf("%d:%s", page, url))
	}

	pages, err := collect(t, New(fake, "/a", opts, nil))
	require.NoError(t, err)
	assert.Len(t, pages, 2)
	assert.Equal(t, []string{"0:/a", "1:/page_content/b?num_to_fetch=20"}, seen)
}

func TestIterator_NoscriptMarkupSwitchesSelector(t *testing.T) {
	fake := fetchtest.New(map[string]string{
		"/a": `<html><body><div data-ft='{"top_level_post_id":"1"}'>a</div><div data-ft='{"top_level_post_id":"2"}'>b</div></body></html>`,
	})
	opts := fastOptions()
	opts.NoscriptSelector = "div[data-ft*='top_level_post_id']"

	it := New(fake, "/a", opts, nil)
	pages, err := collect(t, it)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.True(t, pages[0].Noscript())
	assert.Len(t, pages[0].Posts, 2)
	assert.Equal(t, MarkupNoscript, it.Markup())
}

func TestIterator_GroupResolver(t *testing.T) {
	fake := fetchtest.New(map[string]string{
		"/groups/1/":                  `<html><head><script></script></head><body><article>a</article><a href="/groups/1/?bac=XYZ&amp;refid=18">See more</a></body></html>`,
		"/groups/1/?bac=XYZ&refid=18": listing(1, ""),
	})
	opts := fastOptions()
	opts.Kind = cursor.KindGroup

	pages, err := collect(t, New(fake, "/groups/1/", opts, nil))
	require.NoError(t, err)
	assert.Len(t, pages, 2)
}

func TestIterator_StopPullingStopsFetching(t *testing.T) {
	fake := fetchtest.New(map[string]string{
		"/a":              listing(1, "/page_content/b"),
		"/page_content/b": listing(1, ""),
	})
	for range New(fake, "/a", fastOptions(), nil).Pages(context.Background()) {
		break
	}
	assert.Equal(t, []string{"/a"}, fake.Requests())
}
