// internal/utils/utils.go
package utils

import (
	"net/url"
	"strings"
)

// Base URLs of the target site.
const (
	BaseURL       = "https://facebook.com"
	MobileBaseURL = "https://m.facebook.com"
	W3BaseURL     = "https://www.facebook.com"
	MBasicBaseURL = "https://mbasic.facebook.com"
)

// URLJoin resolves ref against base. Absolute refs are returned unchanged.
func URLJoin(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(ref, "/")
	}
	return b.ResolveReference(r).String()
}

// MobileURL joins ref against the mobile site unless it is already absolute.
func MobileURL(ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return URLJoin(MobileBaseURL, ref)
}

// FilterQueryParams keeps only whitelisted query params, or drops blacklisted ones
// when whitelist is nil. With both nil the URL is returned re-encoded.
func FilterQueryParams(rawURL string, whitelist, blacklist []string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	in := func(list []string, s string) bool {
		for _, v := range list {
			if v == s {
				return true
			}
		}
		return false
	}

	// Preserve the original parameter order.
	var kept []string
	for _, pair := range strings.Split(u.RawQuery, "&") {
		if pair == "" {
			continue
		}
		key, _, _ := strings.Cut(pair, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		switch {
		case whitelist != nil && !in(whitelist, key):
			continue
		case whitelist == nil && blacklist != nil && in(blacklist, key):
			continue
		}
		kept = append(kept, pair)
	}
	u.RawQuery = strings.Join(kept, "&")
	return u.String()
}

// QueryParam returns the first value of a query parameter, or "" if absent.
func QueryParam(rawURL, name string) string {
	u, err := url.Parse(strings.ReplaceAll(rawURL, "&amp;", "&"))
	if err != nil {
		return ""
	}
	return u.Query().Get(name)
}

// SetQueryParam replaces a query parameter value, returning rawURL unchanged on parse errors.
func SetQueryParam(rawURL, name, value string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set(name, value)
	u.RawQuery = q.Encode()
	return u.String()
}

// ReplaceHost swaps the host of rawURL, e.g. to build the desktop URL of a mobile post.
func ReplaceHost(rawURL, host string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Host = host
	return u.String()
}

// Unquote percent-decodes s, returning it unchanged when it is not valid escaping.
func Unquote(s string) string {
	out, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return out
}
