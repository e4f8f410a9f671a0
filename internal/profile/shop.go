// internal/profile/shop.go
package profile

import (
	"context"
	"fmt"
	"strings"

	"github.com/valpere/FBScrapexter/internal/errors"
)

// Item is a product listed in a page's shop.
type Item struct {
	Name  string `yaml:"name" json:"name"`
	Link  string `yaml:"link" json:"link"`
	Image string `yaml:"image" json:"image"`
	Price string `yaml:"price" json:"price"`
}

// Shop lists the products of a page's shop. The full listing sits behind the
// last "See More" link of the shop page.
func (s *Scraper) Shop(ctx context.Context, page string) ([]Item, error) {
	restore := s.desktop(true)
	defer restore()

	url := fmt.Sprintf("/%s/shop/", page)
	s.logger.Debugf("Fetching %s", url)
	resp, err := s.fetcher.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch shop of %s: %w", page, err)
	}

	more := ""
	for _, a := range resp.Doc.Find("a[href]") {
		if strings.Contains(a.FlatText(), "See More") {
			more = a.AttrOr("href", "")
		}
	}
	if more == "" {
		return nil, errors.WithURL(errors.New(errors.KindUnexpectedResponse, "shop listing link not found"), resp.URL)
	}

	s.logger.Debugf("Fetching %s", more)
	resp, err = s.fetcher.Get(ctx, more)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch shop listing: %w", err)
	}

	items := []Item{}
	for _, elem := range resp.Doc.Find("div.be") {
		link := elem.First("div.bk.bl a")
		if !link.Exists() {
			continue
		}
		item := Item{
			Name:  link.FlatText(),
			Link:  link.AttrOr("href", ""),
			Image: elem.First("img").AttrOr("src", ""),
		}
		if cells := elem.Find("div.bk.bl"); len(cells) > 0 {
			item.Price = cells[len(cells)-1].FlatText()
		}
		items = append(items, item)
	}
	s.logger.Debugf("Found %d shop items", len(items))
	return items, nil
}
