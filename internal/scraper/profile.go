// internal/scraper/profile.go
package scraper

import (
	"context"

	"github.com/valpere/FBScrapexter/internal/extract"
	"github.com/valpere/FBScrapexter/internal/profile"
)

// Profile reads an account's profile.
func (s *Scraper) Profile(ctx context.Context, account string, opts profile.Options) (profile.Record, error) {
	return s.profiles.Profile(ctx, account, opts)
}

// Friends lists an account's friends on demand.
func (s *Scraper) Friends(account string, opts profile.FriendOptions) *extract.Stream[profile.Friend] {
	return s.profiles.Friends(account, opts)
}

// PageInfo describes a page from its timeline and about page. Posts are read
// without extra requests since only their ids are needed.
func (s *Scraper) PageInfo(ctx context.Context, page string, opts Options) (profile.Record, error) {
	opts.Extract.AllowExtraRequests = false
	opts.Extract.Comments = extract.Off
	opts.Extract.Reactions = extract.Off
	opts.Extract.Reactors = extract.Off
	return s.profiles.PageInfo(ctx, page, s.Posts(ctx, page, opts))
}

// GroupInfo reads a group's description and members.
func (s *Scraper) GroupInfo(ctx context.Context, group string) (profile.Record, error) {
	return s.profiles.GroupInfo(ctx, group)
}

// Shop lists the products of a page's shop.
func (s *Scraper) Shop(ctx context.Context, page string) ([]profile.Item, error) {
	return s.profiles.Shop(ctx, page)
}
