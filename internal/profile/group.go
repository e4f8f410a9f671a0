// internal/profile/group.go
package profile

import (
	"context"
	"fmt"
	"regexp"

	"github.com/valpere/FBScrapexter/internal/decode"
	"github.com/valpere/FBScrapexter/internal/errors"
	"github.com/valpere/FBScrapexter/internal/fetch"
	"github.com/valpere/FBScrapexter/internal/utils"
)

var (
	groupIDRegex  = regexp.MustCompile(`/groups/(\d+)`)
	moreItemRegex = regexp.MustCompile(`"m_more_item",href:"([^"]+)`)
)

const (
	adminSelector  = "div:first-child>div.touchable a:not(.touchable)"
	memberSelector = "#root div.touchable a:not(.touchable)"
)

// Member is a group admin or member.
type Member struct {
	Name string `yaml:"name" json:"name"`
	Link string `yaml:"link" json:"link"`
}

// desktop switches the fetcher to the desktop user agent, optionally with the
// noscript markup, and returns a function restoring the previous settings.
func (s *Scraper) desktop(noscript bool) func() {
	agent, ok := s.fetcher.(Agent)
	if !ok {
		return func() {}
	}
	prevUA := agent.SetUserAgent(fetch.DesktopUserAgent)
	prevNoscript := agent.Noscript()
	if noscript {
		agent.SetNoscript(true)
	}
	return func() {
		agent.SetUserAgent(prevUA)
		agent.SetNoscript(prevNoscript)
	}
}

// GroupInfo reads a group's id, name, type, member count, admins and members.
// A login wall on the member list leaves admins and members out.
func (s *Scraper) GroupInfo(ctx context.Context, group string) (Record, error) {
	restore := s.desktop(false)
	defer restore()

	url := fmt.Sprintf("/groups/%s", group)
	s.logger.Debugf("Requesting page from: %s", url)
	resp, err := s.fetcher.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch group %s: %w", group, err)
	}
	url, ok := resp.Doc.First("a[href*='?view=info']").Attr("href")
	if !ok {
		return nil, errors.WithURL(errors.New(errors.KindUnexpectedResponse, "unable to resolve view=info URL"), resp.URL)
	}

	s.logger.Debugf("Requesting page from: %s", url)
	resp, err = s.fetcher.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch group info: %w", err)
	}

	result := Record{}
	m := groupIDRegex.FindStringSubmatch(url)
	if m == nil {
		return nil, errors.WithURL(errors.New(errors.KindUnexpectedResponse, "unable to find group id"), url)
	}
	result["id"] = m[1]

	name := resp.Doc.First("header h3")
	kind := resp.Doc.First("header div")
	members := resp.Doc.First("div[data-testid='m_group_sections_members']")
	if !name.Exists() || !kind.Exists() || !members.Exists() {
		return nil, errors.WithURL(errors.New(errors.KindUnexpectedResponse, "unable to get one of name, type, or members"), url)
	}
	count, err := decode.ParseInt(members.FlatText())
	if err != nil {
		return nil, errors.WithURL(errors.Wrap(err, errors.KindUnexpectedResponse, "parse member count"), url)
	}
	result["name"] = name.FlatText()
	result["type"] = kind.FlatText()
	result["members"] = count

	membersURL, ok := members.First("a").Attr("href")
	if !ok {
		return result, nil
	}
	err = s.groupMembers(ctx, membersURL, result)
	if errors.Is(err, errors.ErrLoginRequired) {
		s.logger.Info("Group member list requires a login")
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Scraper) groupMembers(ctx context.Context, url string, result Record) error {
	s.logger.Debugf("Requesting page from: %s", url)
	resp, err := s.fetcher.Get(ctx, url)
	if err != nil {
		return err
	}

	admins := []Member{}
	isAdmin := map[Member]bool{}
	for _, e := range resp.Doc.Find(adminSelector) {
		admin := Member{
			Name: e.FlatText(),
			Link: utils.FilterQueryParams(e.AttrOr("href", ""), nil, []string{"refid"}),
		}
		admins = append(admins, admin)
		isAdmin[admin] = true
	}
	result["admins"] = admins

	browse, ok := resp.Doc.First("a[href^='/browse/group/members']").Attr("href")
	if !ok {
		s.logger.Warn("No other members listed")
		return nil
	}

	others := []Member{}
	visited := map[string]bool{}
	for url := browse; url != "" && !visited[url]; {
		visited[url] = true
		s.logger.Debugf("Requesting page from: %s", url)
		resp, err := s.fetcher.Get(ctx, url)
		if err != nil {
			return err
		}
		for _, e := range resp.Doc.Find(memberSelector) {
			member := Member{Name: e.FlatText(), Link: e.AttrOr("href", "")}
			if !isAdmin[member] {
				others = append(others, member)
			}
		}
		url = ""
		if m := moreItemRegex.FindStringSubmatch(resp.Text); m != nil {
			url = decode.UnescapeRepeated(m[1])
		}
	}
	result["other_members"] = others
	return nil
}
