// pkg/api/api.go

// Package api is the public entry point for scraping Facebook posts,
// profiles, pages and groups with a configuration file.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"os"

	"github.com/valpere/FBScrapexter/internal/config"
	"github.com/valpere/FBScrapexter/internal/extract"
	"github.com/valpere/FBScrapexter/internal/fetch"
	"github.com/valpere/FBScrapexter/internal/monitoring"
	"github.com/valpere/FBScrapexter/internal/output"
	"github.com/valpere/FBScrapexter/internal/profile"
	"github.com/valpere/FBScrapexter/internal/scraper"
	"github.com/valpere/FBScrapexter/internal/utils"
)

// ScraperClient provides a high-level interface for scraping
type ScraperClient struct {
	config  *Config
	session *fetch.Session
	scraper *scraper.Scraper
	metrics *monitoring.MetricsManager
	filter  *scraper.Filter
	logger  utils.Logger
}

// NewScraperClient creates a client with an HTTP session built from config.
// A nil config uses the defaults.
func NewScraperClient(cfg *Config) (*ScraperClient, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logger := cfg.Logging.Logger(os.Stderr)

	sessionConfig, err := cfg.Session.FetchConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load cookies: %w", err)
	}
	session, err := fetch.NewSession(sessionConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	client, err := newClient(cfg, session, logger)
	if err != nil {
		return nil, err
	}
	client.session = session
	session.SetObserver(client.metrics)
	return client, nil
}

// NewScraperClientWithFetcher creates a client reading pages from fetcher
func NewScraperClientWithFetcher(cfg *Config, fetcher Fetcher, logger utils.Logger) (*ScraperClient, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = utils.NopLogger()
	}
	return newClient(cfg, fetcher, logger)
}

func newClient(cfg *Config, fetcher fetch.Fetcher, logger utils.Logger) (*ScraperClient, error) {
	filter, err := cfg.Scrape.Filter()
	if err != nil {
		return nil, fmt.Errorf("invalid post filter: %w", err)
	}

	metrics := monitoring.NewMetricsManager(monitoring.MetricsConfig{Namespace: cfg.Metrics.Namespace})
	engine := extract.NewEngine(fetcher, logger, extract.WithFailureObserver(metrics))

	return &ScraperClient{
		config:  cfg,
		scraper: scraper.New(fetcher, logger, scraper.WithEngine(engine), scraper.WithRecorder(metrics)),
		metrics: metrics,
		filter:  filter,
		logger:  logger,
	}, nil
}

// Config returns the client configuration
func (sc *ScraperClient) Config() *Config {
	return sc.config
}

// Session returns the HTTP session, or nil for clients built on a custom fetcher
func (sc *ScraperClient) Session() *fetch.Session {
	return sc.session
}

// Metrics returns the Prometheus metrics fed by this client
func (sc *ScraperClient) Metrics() *monitoring.MetricsManager {
	return sc.metrics
}

// Logger returns the client logger
func (sc *ScraperClient) Logger() utils.Logger {
	return sc.logger
}

// CheckCookies verifies the session carries the login cookies
func (sc *ScraperClient) CheckCookies() error {
	if sc.session == nil {
		return nil
	}
	return sc.session.ValidateCookies()
}

// Options returns the listing options from the configuration. With a resume
// file the listing starts from the stored page URL and every new page URL is
// saved.
func (sc *ScraperClient) Options() (Options, error) {
	opts := sc.config.Scrape.ScraperOptions()
	if path := sc.config.Scrape.ResumeFile; path != "" {
		resume := output.NewResumeFile(path)
		start, err := resume.Load()
		if err != nil {
			return opts, err
		}
		if start != "" {
			sc.logger.Infof("Resuming from %s", start)
			opts.StartURL = start
		}
		opts.OnPageURL = resume.Tracker(sc.logger)
	}
	return opts, nil
}

// ProfileOptions returns the profile options from the configuration
func (sc *ScraperClient) ProfileOptions() ProfileOptions {
	opts := profile.DefaultOptions()
	if sc.config.Scrape.ExtraRequests != nil {
		opts.AllowExtraRequests = *sc.config.Scrape.ExtraRequests
	}
	return opts
}

// Posts yields the posts of an account timeline
func (sc *ScraperClient) Posts(ctx context.Context, account string, opts Options) iter.Seq2[Post, error] {
	return sc.finish(sc.scraper.Posts(ctx, account, opts))
}

// GroupPosts yields the posts of a group
func (sc *ScraperClient) GroupPosts(ctx context.Context, group string, opts Options) iter.Seq2[Post, error] {
	return sc.finish(sc.scraper.GroupPosts(ctx, group, opts))
}

// PostsByHashtag yields the posts of a hashtag
func (sc *ScraperClient) PostsByHashtag(ctx context.Context, hashtag string, opts Options) iter.Seq2[Post, error] {
	return sc.finish(sc.scraper.PostsByHashtag(ctx, hashtag, opts))
}

// PostsBySearch yields the posts matching a search word
func (sc *ScraperClient) PostsBySearch(ctx context.Context, word string, opts Options) iter.Seq2[Post, error] {
	return sc.finish(sc.scraper.PostsBySearch(ctx, word, opts))
}

// Photos yields the photo posts of an account
func (sc *ScraperClient) Photos(ctx context.Context, account string, opts Options) iter.Seq2[Post, error] {
	return sc.finish(sc.scraper.Photos(ctx, account, opts))
}

// PostsByURL yields one post per URL
func (sc *ScraperClient) PostsByURL(ctx context.Context, urls []string, opts Options) iter.Seq2[Post, error] {
	return sc.finish(sc.scraper.PostsByURL(ctx, urls, opts))
}

// Profile returns the profile of an account
func (sc *ScraperClient) Profile(ctx context.Context, account string, opts ProfileOptions) (Record, error) {
	return sc.scraper.Profile(ctx, account, opts)
}

// Friends yields the friends of an account; limit 0 means all
func (sc *ScraperClient) Friends(ctx context.Context, account string, limit int) iter.Seq2[Friend, error] {
	return sc.scraper.Friends(account, profile.FriendOptions{Limit: limit}).All(ctx)
}

// PageInfo returns the description of a page
func (sc *ScraperClient) PageInfo(ctx context.Context, page string) (Record, error) {
	opts, err := sc.Options()
	if err != nil {
		return nil, err
	}
	return sc.scraper.PageInfo(ctx, page, opts)
}

// GroupInfo returns the description and members of a group
func (sc *ScraperClient) GroupInfo(ctx context.Context, group string) (Record, error) {
	return sc.scraper.GroupInfo(ctx, group)
}

// Shop returns the items of a page shop
func (sc *ScraperClient) Shop(ctx context.Context, page string) ([]Item, error) {
	return sc.scraper.Shop(ctx, page)
}

// Export writes every post of seq to the configured output and returns how
// many were written.
func (sc *ScraperClient) Export(seq iter.Seq2[Post, error]) (int, error) {
	w, err := output.Open(sc.outputOptions())
	if err != nil {
		return 0, err
	}
	n, err := output.Copy(w, seq)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// ExportRecords writes records to the configured output
func (sc *ScraperClient) ExportRecords(records []map[string]interface{}) error {
	w, err := output.Open(sc.outputOptions())
	if err != nil {
		return err
	}
	err = w.Write(records)
	if err == nil {
		err = w.Flush()
	}
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return err
}

func (sc *ScraperClient) outputOptions() output.Options {
	return output.Options{
		Format: output.OutputFormat(sc.config.Output.Format),
		File:   sc.config.Output.File,
		Keys:   sc.config.Scrape.Keys,
		Table:  sc.config.Output.Table,
		Sheet:  sc.config.Output.Sheet,
	}
}

// finish dumps post markup when a dump location is set, then applies the
// configured filter.
func (sc *ScraperClient) finish(seq iter.Seq2[Post, error]) iter.Seq2[Post, error] {
	return sc.filter.Apply(sc.dump(seq))
}

func (sc *ScraperClient) dump(seq iter.Seq2[Post, error]) iter.Seq2[Post, error] {
	dir := sc.config.Scrape.DumpLocation
	if dir == "" {
		return seq
	}
	return func(yield func(Post, error) bool) {
		for post, err := range seq {
			if err == nil {
				if derr := output.DumpSource(dir, post); derr != nil {
					sc.logger.WithField("post_id", post.String(extract.KeyPostID)).Warnf("Could not dump post: %v", derr)
				}
				if !sc.config.Scrape.KeepSource {
					delete(post, extract.KeySource)
				}
			}
			if !yield(post, err) {
				return
			}
		}
	}
}

// ToRecords converts items to records through their JSON encoding
func ToRecords[T any](items []T) ([]map[string]interface{}, error) {
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode records: %w", err)
	}
	var records []map[string]interface{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}
	return records, nil
}
