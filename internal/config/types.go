// internal/config/types.go

// Package config provides the configuration file for FBScrapexter runs.
// It covers the HTTP session, listing and extraction options, output sink,
// logging and metrics.
package config

import (
	"time"

	"github.com/valpere/FBScrapexter/internal/extract"
)

// Config represents the main configuration structure for a scraping run.
type Config struct {
	// Session configures the shared HTTP session
	Session SessionConfig `yaml:"session" json:"session"`

	// Scrape configures listing and extraction
	Scrape ScrapeConfig `yaml:"scrape" json:"scrape"`

	// Output configures where records go
	Output OutputConfig `yaml:"output" json:"output"`

	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// SessionConfig defines the HTTP session settings.
type SessionConfig struct {
	// BaseURL is joined to relative URLs
	BaseURL string `yaml:"base_url" json:"base_url"`

	UserAgent string            `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
	Headers   map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`

	// CookiesFile is a Netscape cookies.txt or a JSON export
	CookiesFile string `yaml:"cookies_file,omitempty" json:"cookies_file,omitempty"`

	// Cookies are set after CookiesFile and win on conflicts
	Cookies map[string]string `yaml:"cookies,omitempty" json:"cookies,omitempty"`

	Proxy   string        `yaml:"proxy,omitempty" json:"proxy,omitempty"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// Noscript requests the simplified markup
	Noscript bool `yaml:"noscript" json:"noscript"`

	// RateLimit is in requests per second; 0 disables throttling
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit"`
	RateBurst int     `yaml:"rate_burst" json:"rate_burst"`
}

// ScrapeConfig defines listing and extraction settings.
type ScrapeConfig struct {
	// Pages bounds the listing pages read; negative means no limit
	Pages        int `yaml:"pages" json:"pages"`
	PostsPerPage int `yaml:"posts_per_page" json:"posts_per_page"`

	// ExtraRequests permits fetching full post and photo pages
	ExtraRequests *bool `yaml:"extra_requests,omitempty" json:"extra_requests,omitempty"`

	Reactions extract.Mode `yaml:"reactions" json:"reactions"`
	Reactors  extract.Mode `yaml:"reactors" json:"reactors"`
	Comments  extract.Mode `yaml:"comments" json:"comments"`

	// DaysLimit stops a listing at the first post older than this many days
	DaysLimit int `yaml:"days_limit" json:"days_limit"`

	// Matching and NotMatching are case-insensitive patterns on post text
	Matching    string `yaml:"matching,omitempty" json:"matching,omitempty"`
	NotMatching string `yaml:"not_matching,omitempty" json:"not_matching,omitempty"`

	// Keys projects every record onto these keys
	Keys []string `yaml:"keys,omitempty" json:"keys,omitempty"`

	KeepSource bool `yaml:"keep_source" json:"keep_source"`

	// ResumeFile stores the last listing page URL and is read back on start
	ResumeFile string `yaml:"resume_file,omitempty" json:"resume_file,omitempty"`

	// DumpLocation receives the raw markup of every post
	DumpLocation string `yaml:"dump_location,omitempty" json:"dump_location,omitempty"`
}

// OutputConfig defines the record sink.
type OutputConfig struct {
	// Format is one of json, ndjson, csv, yaml, sqlite, excel
	Format string `yaml:"format" json:"format"`

	// File is the destination; "-" writes to stdout
	File string `yaml:"file" json:"file"`

	// Table is the sqlite table name
	Table string `yaml:"table,omitempty" json:"table,omitempty"`

	// Sheet is the excel sheet name
	Sheet string `yaml:"sheet,omitempty" json:"sheet,omitempty"`
}

// LoggingConfig defines the logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"` // console or json
}

// MetricsConfig defines the Prometheus collector.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Namespace string `yaml:"namespace" json:"namespace"`
	Listen    string `yaml:"listen" json:"listen"`
}

// Supported output formats.
var OutputFormats = []string{"json", "ndjson", "csv", "yaml", "sqlite", "excel"}
