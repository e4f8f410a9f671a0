// pkg/api/api_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/FBScrapexter/internal/config"
	"github.com/valpere/FBScrapexter/internal/extract"
	"github.com/valpere/FBScrapexter/internal/fetch/fetchtest"
	"github.com/valpere/FBScrapexter/internal/output"
)

func listingPage(first, posts int, next string) string {
	body := ""
	for i := first; i < first+posts; i++ {
		body += fmt.Sprintf(`<article data-ft='{"top_level_post_id":"%d"}'><p>post %d</p></article>`, i, i)
	}
	script := "<script>var nothing;</script>"
	if next != "" {
		script = fmt.Sprintf(`<script>require("x", {href:"%s"});</script>`, next)
	}
	return "<html><head>" + script + "</head><body>" + body + "</body></html>"
}

func offlineConfig() *Config {
	cfg := config.Default()
	off := false
	cfg.Scrape.ExtraRequests = &off
	return cfg
}

func newFakeClient(t *testing.T, cfg *Config, pages map[string]string) (*ScraperClient, *fetchtest.Fake) {
	t.Helper()
	fake := fetchtest.New(pages)
	client, err := NewScraperClientWithFetcher(cfg, fake, nil)
	require.NoError(t, err)
	return client, fake
}

func postIDs(t *testing.T, client *ScraperClient, account string) []string {
	t.Helper()
	opts, err := client.Options()
	require.NoError(t, err)
	var ids []string
	for post, err := range client.Posts(context.Background(), account, opts) {
		require.NoError(t, err)
		ids = append(ids, post.String(extract.KeyPostID))
	}
	return ids
}

func TestScraperClient_Posts(t *testing.T) {
	client, _ := newFakeClient(t, offlineConfig(), map[string]string{
		"/nintendo/posts/": listingPage(1, 2, "/page_content/p2"),
		"/page_content/p2": listingPage(3, 1, ""),
	})

	assert.Equal(t, []string{"1", "2", "3"}, postIDs(t, client, "nintendo"))

	expected := `
# HELP fbscrapexter_posts_total Total number of posts extracted
# TYPE fbscrapexter_posts_total counter
fbscrapexter_posts_total{variant="default"} 3
`
	assert.NoError(t, testutil.GatherAndCompare(client.Metrics().Registry(), strings.NewReader(expected), "fbscrapexter_posts_total"))
}

func TestScraperClient_Filter(t *testing.T) {
	cfg := offlineConfig()
	cfg.Scrape.NotMatching = "post 2"
	client, _ := newFakeClient(t, cfg, map[string]string{
		"/nintendo/posts/": listingPage(1, 3, ""),
	})

	assert.Equal(t, []string{"1", "3"}, postIDs(t, client, "nintendo"))
}

func TestScraperClient_InvalidFilter(t *testing.T) {
	cfg := offlineConfig()
	cfg.Scrape.Matching = "("
	_, err := NewScraperClientWithFetcher(cfg, fetchtest.New(nil), nil)
	assert.Error(t, err)
}

func TestScraperClient_ResumeFile(t *testing.T) {
	dir := t.TempDir()
	resume := filepath.Join(dir, "resume.txt")
	require.NoError(t, os.WriteFile(resume, []byte("/page_content/p2\n"), 0644))

	cfg := offlineConfig()
	cfg.Scrape.ResumeFile = resume
	client, fake := newFakeClient(t, cfg, map[string]string{
		"/page_content/p2": listingPage(3, 1, "/page_content/p3"),
		"/page_content/p3": listingPage(4, 1, ""),
	})

	assert.Equal(t, []string{"3", "4"}, postIDs(t, client, "nintendo"))
	assert.Zero(t, fake.Count("/nintendo/posts/"))

	stored, err := output.NewResumeFile(resume).Load()
	require.NoError(t, err)
	assert.Equal(t, "/page_content/p3", stored)
}

func TestScraperClient_DumpLocation(t *testing.T) {
	dir := t.TempDir()
	cfg := offlineConfig()
	cfg.Scrape.DumpLocation = dir
	client, _ := newFakeClient(t, cfg, map[string]string{
		"/nintendo/posts/": listingPage(1, 1, ""),
	})

	opts, err := client.Options()
	require.NoError(t, err)
	for post, err := range client.Posts(context.Background(), "nintendo", opts) {
		require.NoError(t, err)
		_, kept := post[extract.KeySource]
		assert.False(t, kept, "source should be dropped once dumped")
	}

	data, err := os.ReadFile(filepath.Join(dir, "1.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "<article")
	assert.True(t, strings.HasPrefix(string(data), "<!--\n"))
}

func TestScraperClient_Export(t *testing.T) {
	var buf bytes.Buffer
	old := output.Stdout
	output.Stdout = &buf
	defer func() { output.Stdout = old }()

	cfg := offlineConfig()
	cfg.Output.Format = "ndjson"
	cfg.Scrape.Keys = []string{"post_id"}
	client, _ := newFakeClient(t, cfg, map[string]string{
		"/nintendo/posts/": listingPage(1, 2, ""),
	})

	opts, err := client.Options()
	require.NoError(t, err)
	n, err := client.Export(client.Posts(context.Background(), "nintendo", opts))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "{\"post_id\":\"1\"}\n{\"post_id\":\"2\"}\n", buf.String())
}

func TestScraperClient_ExportRecords(t *testing.T) {
	file := filepath.Join(t.TempDir(), "friends.json")
	cfg := offlineConfig()
	cfg.Output.File = file
	client, _ := newFakeClient(t, cfg, nil)

	records, err := ToRecords([]Friend{{ID: "4", Name: "Ann"}})
	require.NoError(t, err)
	require.NoError(t, client.ExportRecords(records))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "Ann", decoded[0]["name"])

	assert.Error(t, client.ExportRecords(records), "existing files are not overwritten")
}

func TestToRecords(t *testing.T) {
	records, err := ToRecords([]Item{{Name: "Mug"}})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Mug", records[0]["name"])
}

func TestScraperClient_CheckCookiesWithoutSession(t *testing.T) {
	client, _ := newFakeClient(t, offlineConfig(), nil)
	assert.Nil(t, client.Session())
	assert.NoError(t, client.CheckCookies())
}
