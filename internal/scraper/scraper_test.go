package scraper

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/FBScrapexter/internal/errors"
	"github.com/valpere/FBScrapexter/internal/extract"
	"github.com/valpere/FBScrapexter/internal/fetch/fetchtest"
)

func listingPage(first, posts int, next string) string {
	body := ""
	for i := first; i < first+posts; i++ {
		body += fmt.Sprintf(`<article data-ft='{"top_level_post_id":"%d"}'>post %d</article>`, i, i)
	}
	script := "<script>var nothing;</script>"
	if next != "" {
		script = fmt.Sprintf(`<script>require("x", {href:"%s"});</script>`, next)
	}
	return "<html><head>" + script + "</head><body>" + body + "</body></html>"
}

func offline() Options {
	opts := DefaultOptions()
	opts.Extract.AllowExtraRequests = false
	return opts
}

type countingRecorder struct {
	mu      sync.Mutex
	pages   map[string]int
	posts   map[string]int
	retries int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{pages: map[string]int{}, posts: map[string]int{}}
}

func (r *countingRecorder) ObservePage(listing string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages[listing]++
}

func (r *countingRecorder) ObservePost(variant string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts[variant]++
}

func (r *countingRecorder) ObserveRetries(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retries += n
}

func collect(t *testing.T, seq func(func(extract.Post, error) bool)) ([]extract.Post, error) {
	t.Helper()
	var posts []extract.Post
	for post, err := range seq {
		if err != nil {
			return posts, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func ids(posts []extract.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.String(extract.KeyPostID))
	}
	return out
}

func TestPosts(t *testing.T) {
	fake := fetchtest.New(map[string]string{
		"/nintendo/posts/": listingPage(1, 2, "/page_content/p2"),
		"/page_content/p2": listingPage(3, 1, ""),
	})
	rec := newCountingRecorder()
	s := New(fake, nil, WithRecorder(rec))

	posts, err := collect(t, s.Posts(context.Background(), "nintendo", offline()))
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, ids(posts))
	assert.Equal(t, 2, rec.pages["posts"])
	assert.Equal(t, 3, rec.posts["default"])
	assert.Zero(t, rec.retries)
}

func TestPosts_AlternateStartURL(t *testing.T) {
	fake := fetchtest.New(map[string]string{
		"/nintendo/": listingPage(7, 1, ""),
	})
	s := New(fake, nil)

	posts, err := collect(t, s.Posts(context.Background(), "nintendo", offline()))
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, ids(posts))
	assert.Equal(t, []string{"/nintendo/posts/", "/nintendo/"}, fake.Requests())
}

func TestGroupPosts_StartURLNotFound(t *testing.T) {
	s := New(fetchtest.New(nil), nil)

	posts, err := collect(t, s.GroupPosts(context.Background(), "123", offline()))
	assert.Empty(t, posts)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStartURLNotFound))
}

func TestPosts_PageLimit(t *testing.T) {
	fake := fetchtest.New(map[string]string{
		"/nintendo/posts/": listingPage(1, 1, "/page_content/p2"),
		"/page_content/p2": listingPage(2, 1, "/page_content/p3"),
		"/page_content/p3": listingPage(3, 1, ""),
	})
	opts := offline()
	opts.PageLimit = 2

	posts, err := collect(t, New(fake, nil).Posts(context.Background(), "nintendo", opts))
	require.NoError(t, err)
	assert.Len(t, posts, 2)
	assert.Zero(t, fake.Count("/page_content/p3"))
}

func TestPosts_ResumeFromStartURL(t *testing.T) {
	fake := fetchtest.New(map[string]string{
		"/page_content/p2": listingPage(5, 1, ""),
	})
	opts := offline()
	opts.StartURL = "/page_content/p2"
	var seen []string
	opts.OnPageURL = func(url string, _ int) { seen = append(seen, url) }

	posts, err := collect(t, New(fake, nil).Posts(context.Background(), "nintendo", opts))
	require.NoError(t, err)
	assert.Equal(t, []string{"5"}, ids(posts))
	assert.Equal(t, []string{"/page_content/p2"}, seen)
	assert.Zero(t, fake.Count("/nintendo/posts/"))
}

func TestPosts_StopEarlyStopsFetching(t *testing.T) {
	fake := fetchtest.New(map[string]string{
		"/nintendo/posts/": listingPage(1, 2, "/page_content/p2"),
		"/page_content/p2": listingPage(3, 1, ""),
	})

	for range New(fake, nil).Posts(context.Background(), "nintendo", offline()) {
		break
	}
	assert.Zero(t, fake.Count("/page_content/p2"))
}

func TestPosts_BanEndsTheStream(t *testing.T) {
	fake := fetchtest.New(map[string]string{
		"/nintendo/posts/": listingPage(1, 1, "/page_content/p2"),
	})
	fake.FailWith("/page_content/p2", errors.ErrTemporarilyBanned)

	posts, err := collect(t, New(fake, nil).Posts(context.Background(), "nintendo", offline()))
	assert.Len(t, posts, 1)
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}

func TestOptions_PageLimit(t *testing.T) {
	assert.Equal(t, DefaultPageLimit, Options{}.pageLimit())
	assert.Equal(t, 0, Options{PageLimit: -1}.pageLimit())
	assert.Equal(t, 3, Options{PageLimit: 3}.pageLimit())
}
