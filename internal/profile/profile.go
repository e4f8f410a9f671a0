// internal/profile/profile.go
package profile

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/valpere/FBScrapexter/internal/decode"
	"github.com/valpere/FBScrapexter/internal/document"
	"github.com/valpere/FBScrapexter/internal/errors"
	"github.com/valpere/FBScrapexter/internal/extract"
	"github.com/valpere/FBScrapexter/internal/fetch"
	"github.com/valpere/FBScrapexter/internal/utils"
)

// Record is a profile, page or group description. Keys follow the labels the
// site shows, so the set differs from account to account.
type Record map[string]interface{}

// Agent is implemented by fetchers whose user agent and markup variant can be
// switched, such as *fetch.Session. Group and shop pages are only complete in
// the desktop layout.
type Agent interface {
	SetUserAgent(ua string) string
	SetNoscript(on bool)
	Noscript() bool
}

// Options configures profile lookups.
type Options struct {
	// AllowExtraRequests enables fetching the photo pages for full size images.
	AllowExtraRequests bool `yaml:"allow_extra_requests" json:"allow_extra_requests"`
	// Friends adds the friend list: eager, capped or lazy.
	Friends extract.Mode `yaml:"friends" json:"friends"`
	// StartURL resumes a friend listing from a saved page URL.
	StartURL string `yaml:"start_url" json:"start_url"`
	// OnPageURL is called before each friend page is requested.
	OnPageURL func(url string, page int) `yaml:"-" json:"-"`
}

// DefaultOptions returns options with extra requests allowed.
func DefaultOptions() Options {
	return Options{AllowExtraRequests: true}
}

// Scraper reads profile, page, group and shop information.
type Scraper struct {
	fetcher fetch.Fetcher
	engine  *extract.Engine
	logger  utils.Logger
}

// New creates a profile scraper. engine resolves full size photos and may be
// nil, in which case one is built on fetcher.
func New(fetcher fetch.Fetcher, engine *extract.Engine, logger utils.Logger) *Scraper {
	if logger == nil {
		logger = utils.NopLogger()
	}
	if engine == nil {
		engine = extract.NewEngine(fetcher, logger)
	}
	return &Scraper{
		fetcher: fetcher,
		engine:  engine,
		logger:  logger.WithField("component", "profile"),
	}
}

var entityIDRegex = regexp.MustCompile(`entity_id:(\d+),`)

// Profile collects the photos, id, name and about cards of an account.
func (s *Scraper) Profile(ctx context.Context, account string, opts Options) (Record, error) {
	result := Record{}
	if opts.AllowExtraRequests {
		if err := s.photos(ctx, account, result); err != nil {
			return nil, err
		}
	}

	aboutURL := fmt.Sprintf("/%s/about/", account)
	s.logger.Debugf("Requesting page from: %s", aboutURL)
	resp, err := s.fetcher.Get(ctx, aboutURL)
	if errors.Is(err, errors.ErrLoginRequired) {
		aboutURL = fmt.Sprintf("/%s/", account)
		s.logger.Debugf("About page needs a login, requesting %s", aboutURL)
		resp, err = s.fetcher.Get(ctx, aboutURL)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch about page of %s: %w", account, err)
	}

	if m := entityIDRegex.FindStringSubmatch(resp.Text); m != nil {
		result["id"] = m[1]
	}
	if title, ok := resp.Doc.Title(); ok {
		result["Name"] = profileName(title)
	}

	about := resp.Doc.First("div#main_column,div.aboutme")
	if !about.Exists() {
		s.logger.Warn("No about section found")
	} else {
		for _, card := range about.Find("div[data-sigil='profile-card']") {
			header, value := parseCard(card)
			if header != "" {
				result[header] = value
			}
		}
	}

	if opts.Friends.Enabled() {
		limit := 0
		if opts.Friends.Kind == extract.ModeCapped {
			limit = opts.Friends.Cap
		}
		friends := s.Friends(account, FriendOptions{
			Limit:     limit,
			StartURL:  opts.StartURL,
			OnPageURL: opts.OnPageURL,
		})
		if opts.Friends.Kind == extract.ModeLazy {
			result["Friends"] = friends
		} else {
			list, err := friends.Collect(ctx, limit)
			if err != nil {
				return result, err
			}
			result["Friends"] = list
		}
	}
	return result, nil
}

// photos fills cover_photo and profile_picture, following the photo pages to
// the full size images when the profile links them.
func (s *Scraper) photos(ctx context.Context, account string, result Record) error {
	s.logger.Debugf("Requesting page from: %s", account)
	resp, err := s.fetcher.Get(ctx, "/"+account)
	if err != nil {
		return fmt.Errorf("failed to fetch profile of %s: %w", account, err)
	}

	links := resp.Doc.Find("a[href^='/photo.php']")
	if len(links) == 0 {
		cover := resp.Doc.First("div[data-sigil='cover-photo']>i.img")
		if url, ok := decode.ExtractCSSURL(cover.AttrOr("style", "")); ok {
			result["cover_photo"] = url
		}
		if src, ok := resp.Doc.First("img.profpic").Attr("src"); ok {
			result["profile_picture"] = src
		}
		return nil
	}

	if title, ok := links[0].Attr("title"); ok {
		result["cover_photo_text"] = title
	}
	keys := []string{"cover_photo", "profile_picture"}
	for i, key := range keys {
		if i >= len(links) {
			break
		}
		url, err := s.photoHQ(ctx, links[i].AttrOr("href", ""))
		if err != nil {
			return err
		}
		if url != "" {
			result[key] = url
		}
	}
	return nil
}

func (s *Scraper) photoHQ(ctx context.Context, href string) (string, error) {
	resp, err := s.fetcher.Get(ctx, href)
	if err != nil {
		if errors.IsFatal(err) {
			return "", err
		}
		s.logger.Warnf("Failed to fetch photo page %s: %v", href, err)
		return "", nil
	}
	return s.engine.PhotoHQ(ctx, resp.Text)
}

// profileName strips the site suffix from a page title.
func profileName(title string) string {
	title, _, _ = strings.Cut(title, " | ")
	title, _, _ = strings.Cut(title, " - ")
	return strings.TrimSpace(title)
}

// pairHeaders are cards laid out as alternating value/label lines.
var pairHeaders = map[string]bool{
	"Contact Info": true,
	"Basic info":   true,
	"Other names":  true,
}

// parseCard turns one about card into its header and value.
func parseCard(card document.Node) (string, interface{}) {
	header := card.First("header").Text()
	if strings.HasPrefix(header, "About") {
		// "About Mark" and similar.
		header = "About"
	}

	switch header {
	case "Work, Education":
		var experience []map[string]string
		for _, elem := range card.Find("div.experience") {
			xp := map[string]string{}
			if href, ok := elem.First("a").Attr("href"); ok {
				xp["link"] = href
			}
			text := elem.Text()
			bits := strings.Split(text, "\n")
			switch len(bits) {
			case 2:
				xp["text"], xp["type"] = bits[0], bits[1]
			case 3:
				xp["text"], xp["type"], xp["year"] = bits[0], bits[1], bits[2]
			default:
				xp["text"] = text
			}
			experience = append(experience, xp)
		}
		return header, experience

	case "Places lived":
		var places []map[string]string
		for _, elem := range card.Find("div.touchable") {
			place := map[string]string{}
			if href, ok := elem.First("a").Attr("href"); ok {
				place["link"] = href
			}
			text := elem.Text()
			if first, rest, ok := strings.Cut(text, "\n"); ok {
				place["text"], place["type"] = first, rest
			} else {
				place["text"] = text
			}
			places = append(places, place)
		}
		return header, places
	}

	lines := strings.Split(card.Text(), "\n")
	if len(lines) <= 1 {
		return header, ""
	}
	bits := lines[1:]

	switch {
	case header == "Relationship" && len(bits) >= 3:
		return header, map[string]string{"to": bits[0], "type": bits[1], "since": bits[2]}
	case len(bits) == 1:
		return header, bits[0]
	case pairHeaders[header] && len(bits)%2 == 0:
		pairs := map[string]interface{}{}
		for i := 0; i < len(bits); i += 2 {
			value, label := bits[i], bits[i+1]
			if label == "Websites" {
				sites, _ := pairs[label].([]string)
				pairs[label] = append(sites, value)
				continue
			}
			pairs[label] = value
		}
		return header, pairs
	}
	return header, strings.Join(bits, "\n")
}
