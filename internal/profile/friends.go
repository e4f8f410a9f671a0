// internal/profile/friends.go
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/valpere/FBScrapexter/internal/cursor"
	"github.com/valpere/FBScrapexter/internal/decode"
	"github.com/valpere/FBScrapexter/internal/document"
	"github.com/valpere/FBScrapexter/internal/extract"
	"github.com/valpere/FBScrapexter/internal/pages"
)

const friendSelector = `div[data-sigil="undoable-action"]`

// Friend is one entry of a friend list.
type Friend struct {
	ID             string `yaml:"id" json:"id"`
	Link           string `yaml:"link" json:"link"`
	Name           string `yaml:"name" json:"name"`
	ProfilePicture string `yaml:"profile_picture" json:"profile_picture"`
	Tagline        string `yaml:"tagline" json:"tagline"`
}

// FriendOptions configures a friend listing.
type FriendOptions struct {
	// Limit stops the listing after this many friends; 0 means all.
	Limit     int
	StartURL  string
	PageLimit int
	OnPageURL func(url string, page int)
}

// Friends lists the friends of account. Pages are fetched as the stream is
// consumed, and iterating again starts over.
func (s *Scraper) Friends(account string, opts FriendOptions) *extract.Stream[Friend] {
	start := opts.StartURL
	if start == "" {
		start = fmt.Sprintf("/%s/friends/", account)
	}
	return extract.NewStream(func(ctx context.Context, yield func(Friend) bool) error {
		it := pages.New(s.fetcher, start, pages.Options{
			Kind:             cursor.KindFriends,
			PageLimit:        opts.PageLimit,
			PostSelector:     friendSelector,
			NoscriptSelector: friendSelector,
			OnPageURL:        opts.OnPageURL,
		}, s.logger)

		found := 0
		for page, err := range it.Pages(ctx) {
			if err != nil {
				return err
			}
			s.logger.Debugf("Found %d friends", len(page.Posts))
			for _, elem := range page.Posts {
				if !yield(parseFriend(elem)) {
					return nil
				}
				found++
				if opts.Limit > 0 && found >= opts.Limit {
					return nil
				}
			}
		}
		return nil
	})
}

func parseFriend(elem document.Node) Friend {
	name := elem.First("h3>a")
	f := Friend{
		Name:    name.FlatText(),
		Link:    name.AttrOr("href", ""),
		Tagline: elem.First("div.notice.ellipsis").FlatText(),
	}

	style := elem.First("i.profpic").AttrOr("style", "")
	if url, ok := decode.ExtractCSSURL(style); ok {
		f.ProfilePicture = url
	} else {
		f.ProfilePicture = style
	}

	if store, ok := elem.First("a.touchable[data-store]").Attr("data-store"); ok {
		var data struct {
			ID json.Number `json:"id"`
		}
		dec := json.NewDecoder(strings.NewReader(store))
		dec.UseNumber()
		if err := dec.Decode(&data); err == nil {
			f.ID = data.ID.String()
		}
	}
	return f
}
