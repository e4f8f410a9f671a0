// pkg/api/types.go
package api

import (
	"github.com/valpere/FBScrapexter/internal/config"
	"github.com/valpere/FBScrapexter/internal/extract"
	"github.com/valpere/FBScrapexter/internal/fetch"
	"github.com/valpere/FBScrapexter/internal/profile"
	"github.com/valpere/FBScrapexter/internal/scraper"
)

// Re-export types from internal packages for public API
type (
	Config         = config.Config
	SessionConfig  = config.SessionConfig
	ScrapeConfig   = config.ScrapeConfig
	OutputConfig   = config.OutputConfig
	Post           = extract.Post
	Mode           = extract.Mode
	Options        = scraper.Options
	ProfileOptions = profile.Options
	Record         = profile.Record
	Friend         = profile.Friend
	Item           = profile.Item
	Fetcher        = fetch.Fetcher
)

// Extraction modes for reactions, reactors, comments and friends.
var (
	ModeOff   = extract.Off
	ModeEager = extract.Eager
	ModeLazy  = extract.Lazy
)

// ErrorResponse is the body the HTTP API answers failed requests with.
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind"`
	URL     string `json:"url,omitempty"`
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
}
