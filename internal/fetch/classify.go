// internal/fetch/classify.go
package fetch

import (
	"net/http"
	"strings"

	"github.com/valpere/FBScrapexter/internal/errors"
)

var (
	notFoundTitles = []string{
		"page not found",
		"content not found",
	}
	tempBanTitles = []string{
		"you can't use this feature at the moment",
		"you can't use this feature right now",
		"you’re temporarily blocked",
	}
)

const (
	disabledMarker    = ">Your Account Has Been Disabled<"
	lockedMarker      = ">We saw unusual activity on your account. This may mean that someone has used your account without your knowledge.<"
	loginTitle        = "Log in to Facebook | Facebook"
	loginPromptMarker = ", log in to Facebook."
	postContainers    = "article[data-ft],div.async_like[data-ft],div.msg"
)

// ClassifyStatus maps a non-2xx status code to a typed error.
func ClassifyStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return errors.Newf(errors.KindNotFound, "HTTP %d", status)
	case status == http.StatusTooManyRequests:
		return errors.Newf(errors.KindTemporarilyBanned, "HTTP %d", status)
	case status >= 500:
		return errors.Newf(errors.KindServerError, "HTTP %d", status)
	default:
		return errors.Newf(errors.KindUnexpectedResponse, "HTTP %d", status)
	}
}

// Classify inspects a 2xx page for the site's soft error pages: missing content,
// temporary blocks, disabled accounts and login walls.
func Classify(resp *Response, loginURLs ...string) error {
	if err := ClassifyStatus(resp.StatusCode); err != nil {
		return err
	}
	if resp.Doc == nil {
		return nil
	}
	title, ok := resp.Doc.Title()
	if !ok {
		return nil
	}
	lower := strings.ToLower(title)

	for _, t := range notFoundTitles {
		if lower == t {
			return errors.New(errors.KindNotFound, title)
		}
	}
	if lower == "error" {
		return errors.New(errors.KindUnexpectedResponse, "Your request couldn't be processed")
	}
	for _, t := range tempBanTitles {
		if lower == t {
			return errors.New(errors.KindTemporarilyBanned, title)
		}
	}
	raw := resp.Doc.Raw()
	if strings.Contains(raw, disabledMarker) {
		return errors.New(errors.KindAccountDisabled, "Your Account Has Been Disabled")
	}
	if strings.Contains(raw, lockedMarker) {
		return errors.New(errors.KindAccountDisabled, "Your Account Has Been Locked")
	}

	loginWall := title == loginTitle
	for _, prefix := range loginURLs {
		if strings.HasPrefix(resp.URL, prefix) {
			loginWall = true
		}
	}
	if !loginWall && strings.Contains(resp.Text, loginPromptMarker) && len(resp.Doc.Find(postContainers)) == 0 {
		loginWall = true
	}
	if loginWall {
		return errors.New(errors.KindLoginRequired, "A login (cookies) is required to see this page")
	}
	return nil
}
