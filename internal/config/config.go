// internal/config/config.go
package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/valpere/FBScrapexter/internal/extract"
	"github.com/valpere/FBScrapexter/internal/fetch"
	"github.com/valpere/FBScrapexter/internal/scraper"
	"github.com/valpere/FBScrapexter/internal/utils"
)

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("configuration filename cannot be empty")
	}

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", filename)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes
func LoadFromBytes(data []byte) (*Config, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("configuration data cannot be empty")
	}

	// Substitute environment variables
	expanded := expandEnvironmentVariables(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %w", err)
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadFromReader loads configuration from an io.Reader
func LoadFromReader(reader io.Reader) (*Config, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read from reader: %w", err)
	}

	return LoadFromBytes(data)
}

// SaveToWriter saves configuration to an io.Writer
func SaveToWriter(config *Config, writer io.Writer) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	if writer == nil {
		return fmt.Errorf("writer cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	enc := yaml.NewEncoder(writer)
	enc.SetIndent(2)
	if err := enc.Encode(config); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}
	return enc.Close()
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var config Config
	applyDefaults(&config)
	return &config
}

// expandEnvironmentVariables substitutes ${VAR} references
func expandEnvironmentVariables(content string) string {
	return os.ExpandEnv(content)
}

// applyDefaults applies default values to the configuration
func applyDefaults(config *Config) {
	if config.Session.BaseURL == "" {
		config.Session.BaseURL = utils.MobileBaseURL
	}
	if config.Session.Timeout == 0 {
		config.Session.Timeout = 30 * time.Second
	}

	if config.Scrape.Pages == 0 {
		config.Scrape.Pages = scraper.DefaultPageLimit
	}
	if config.Scrape.ExtraRequests == nil {
		on := true
		config.Scrape.ExtraRequests = &on
	}

	if config.Output.Format == "" {
		config.Output.Format = "json"
	}
	if config.Output.File == "" {
		config.Output.File = "-"
	}
	if config.Output.Table == "" {
		config.Output.Table = "posts"
	}
	if config.Output.Sheet == "" {
		config.Output.Sheet = "Posts"
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "console"
	}

	if config.Metrics.Namespace == "" {
		config.Metrics.Namespace = "fbscrapexter"
	}
	if config.Metrics.Listen == "" {
		config.Metrics.Listen = ":9090"
	}
}

// FetchConfig builds the session settings, reading CookiesFile when set.
func (s SessionConfig) FetchConfig() (fetch.SessionConfig, error) {
	cookies := map[string]string{}
	if s.CookiesFile != "" {
		loaded, err := LoadCookies(s.CookiesFile)
		if err != nil {
			return fetch.SessionConfig{}, err
		}
		for k, v := range loaded {
			cookies[k] = v
		}
	}
	for k, v := range s.Cookies {
		cookies[k] = v
	}

	return fetch.SessionConfig{
		BaseURL:   s.BaseURL,
		UserAgent: s.UserAgent,
		Headers:   s.Headers,
		Cookies:   cookies,
		Proxy:     s.Proxy,
		Timeout:   s.Timeout,
		Noscript:  s.Noscript,
		RateLimit: s.RateLimit,
		RateBurst: s.RateBurst,
	}, nil
}

// ExtractOptions builds the per-post extraction options.
func (s ScrapeConfig) ExtractOptions() extract.Options {
	opts := extract.DefaultOptions()
	if s.ExtraRequests != nil {
		opts.AllowExtraRequests = *s.ExtraRequests
	}
	opts.Reactions = s.Reactions
	opts.Reactors = s.Reactors
	opts.Comments = s.Comments
	opts.KeepSource = s.KeepSource || s.DumpLocation != ""
	return opts
}

// ScraperOptions builds the listing options.
func (s ScrapeConfig) ScraperOptions() scraper.Options {
	opts := scraper.DefaultOptions()
	opts.Extract = s.ExtractOptions()
	opts.PageLimit = s.Pages
	opts.PostsPerPage = s.PostsPerPage
	return opts
}

// Filter builds the post filter, or nil when no filtering is configured.
func (s ScrapeConfig) Filter() (*scraper.Filter, error) {
	if s.DaysLimit == 0 && s.Matching == "" && s.NotMatching == "" && len(s.Keys) == 0 {
		return nil, nil
	}
	return scraper.NewFilter(s.DaysLimit, s.Matching, s.NotMatching, s.Keys)
}

// Logger builds the logger writing to out.
func (l LoggingConfig) Logger(out io.Writer) utils.Logger {
	return utils.NewLogger(utils.LoggerOptions{
		Level:   utils.ParseLogLevel(l.Level),
		Format:  l.Format,
		Output:  out,
		Service: "fbscrapexter",
	})
}
