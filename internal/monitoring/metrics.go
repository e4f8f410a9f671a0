// internal/monitoring/metrics.go
package monitoring

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsManager holds the Prometheus metrics of a scraping run. It
// satisfies the request, extraction and listing observers so a single
// value can be handed to the session, the engine and the scraper.
type MetricsManager struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	pagesTotal         *prometheus.CounterVec
	postsTotal         *prometheus.CounterVec
	extractionFailures *prometheus.CounterVec
	retriesTotal       prometheus.Counter

	namespace string
	subsystem string
}

// MetricsConfig configuration for metrics
type MetricsConfig struct {
	Namespace       string            `yaml:"namespace" json:"namespace"`
	Subsystem       string            `yaml:"subsystem" json:"subsystem"`
	Labels          map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
	EnableGoMetrics bool              `yaml:"enable_go_metrics" json:"enable_go_metrics"`
}

// NewMetricsManager creates a new metrics manager with its own registry
func NewMetricsManager(config MetricsConfig) *MetricsManager {
	if config.Namespace == "" {
		config.Namespace = "fbscrapexter"
	}

	registry := prometheus.NewRegistry()
	if config.EnableGoMetrics {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	mm := &MetricsManager{
		registry:  registry,
		namespace: config.Namespace,
		subsystem: config.Subsystem,
	}
	mm.initializeMetrics(promauto.With(registry), prometheus.Labels(config.Labels))
	return mm
}

// initializeMetrics initializes all Prometheus metrics
func (mm *MetricsManager) initializeMetrics(factory promauto.Factory, constLabels prometheus.Labels) {
	mm.requestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   mm.namespace,
			Subsystem:   mm.subsystem,
			Name:        "requests_total",
			Help:        "Total number of HTTP requests made",
			ConstLabels: constLabels,
		},
		[]string{"kind", "status_code"},
	)

	mm.requestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   mm.namespace,
			Subsystem:   mm.subsystem,
			Name:        "request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
		[]string{"kind"},
	)

	mm.pagesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   mm.namespace,
			Subsystem:   mm.subsystem,
			Name:        "pages_total",
			Help:        "Total number of listing pages read",
			ConstLabels: constLabels,
		},
		[]string{"listing"},
	)

	mm.postsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   mm.namespace,
			Subsystem:   mm.subsystem,
			Name:        "posts_total",
			Help:        "Total number of posts extracted",
			ConstLabels: constLabels,
		},
		[]string{"variant"},
	)

	mm.extractionFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   mm.namespace,
			Subsystem:   mm.subsystem,
			Name:        "extraction_failures_total",
			Help:        "Field extraction methods that failed and were recovered from",
			ConstLabels: constLabels,
		},
		[]string{"method"},
	)

	mm.retriesTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace:   mm.namespace,
			Subsystem:   mm.subsystem,
			Name:        "page_retries_total",
			Help:        "Total number of listing page retries",
			ConstLabels: constLabels,
		},
	)
}

// ObserveRequest records one HTTP request. kind is "ok" or the error kind
// the request ended with; status is 0 when no response arrived.
func (mm *MetricsManager) ObserveRequest(kind string, status int, duration time.Duration) {
	mm.requestsTotal.WithLabelValues(kind, strconv.Itoa(status)).Inc()
	mm.requestDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// ObservePage records one listing page read
func (mm *MetricsManager) ObservePage(listing string) {
	mm.pagesTotal.WithLabelValues(listing).Inc()
}

// ObservePost records one extracted post
func (mm *MetricsManager) ObservePost(variant string) {
	mm.postsTotal.WithLabelValues(variant).Inc()
}

// ObserveExtractionFailure records a failed field extraction method
func (mm *MetricsManager) ObserveExtractionFailure(method string) {
	mm.extractionFailures.WithLabelValues(method).Inc()
}

// ObserveRetries records n page retries
func (mm *MetricsManager) ObserveRetries(n int) {
	if n > 0 {
		mm.retriesTotal.Add(float64(n))
	}
}

// Registry returns the registry the metrics are registered with
func (mm *MetricsManager) Registry() *prometheus.Registry {
	return mm.registry
}

// MetricsHandler returns an HTTP handler for metrics endpoint
func (mm *MetricsManager) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(mm.registry, promhttp.HandlerOpts{Registry: mm.registry})
}

// StartMetricsServer serves the metrics on address until ctx is done
func (mm *MetricsManager) StartMetricsServer(ctx context.Context, address, path string) error {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, mm.MetricsHandler())

	server := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
