// internal/monitoring/metrics_test.go
package monitoring

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/FBScrapexter/internal/extract"
	"github.com/valpere/FBScrapexter/internal/fetch"
	"github.com/valpere/FBScrapexter/internal/scraper"
)

var (
	_ fetch.Observer          = (*MetricsManager)(nil)
	_ extract.FailureObserver = (*MetricsManager)(nil)
	_ scraper.Recorder        = (*MetricsManager)(nil)
)

func TestMetricsManager_Counters(t *testing.T) {
	mm := NewMetricsManager(MetricsConfig{Namespace: "test"})

	mm.ObserveRequest("ok", 200, 120*time.Millisecond)
	mm.ObserveRequest("ok", 200, 80*time.Millisecond)
	mm.ObserveRequest("temporarily_banned", 200, time.Second)
	mm.ObservePage("posts")
	mm.ObservePost("default")
	mm.ObservePost("default")
	mm.ObservePost("group")
	mm.ObserveExtractionFailure("extract_likes")
	mm.ObserveRetries(2)
	mm.ObserveRetries(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(mm.requestsTotal.WithLabelValues("ok", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mm.requestsTotal.WithLabelValues("temporarily_banned", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mm.pagesTotal.WithLabelValues("posts")))
	assert.Equal(t, 2.0, testutil.ToFloat64(mm.postsTotal.WithLabelValues("default")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mm.postsTotal.WithLabelValues("group")))
	assert.Equal(t, 1.0, testutil.ToFloat64(mm.extractionFailures.WithLabelValues("extract_likes")))
	assert.Equal(t, 2.0, testutil.ToFloat64(mm.retriesTotal))
	assert.Equal(t, 2, testutil.CollectAndCount(mm.requestDuration))
}

func TestMetricsManager_SeparateRegistries(t *testing.T) {
	a := NewMetricsManager(MetricsConfig{})
	b := NewMetricsManager(MetricsConfig{})

	a.ObservePage("posts")

	assert.Equal(t, 1.0, testutil.ToFloat64(a.pagesTotal.WithLabelValues("posts")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.pagesTotal.WithLabelValues("posts")))
}

func TestMetricsManager_Handler(t *testing.T) {
	mm := NewMetricsManager(MetricsConfig{Namespace: "fb", Labels: map[string]string{"instance": "a"}})
	mm.ObservePost("default")

	srv := httptest.NewServer(mm.MetricsHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `fb_posts_total{instance="a",variant="default"} 1`), string(body))
}
