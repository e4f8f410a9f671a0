// internal/config/cookies.go
package config

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/titanous/json5"

	"github.com/valpere/FBScrapexter/internal/errors"
)

// RequiredCookies must be present for a logged in session.
var RequiredCookies = []string{"c_user", "xs"}

// LoadCookies reads a cookies file. Netscape cookies.txt and JSON exports are
// accepted; JSON may be a name to value object or a list of objects with name
// and value keys.
func LoadCookies(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(fmt.Errorf("failed to read cookies file: %w", err), errors.KindInvalidCookies, "load cookies")
	}
	return ParseCookies(data)
}

// ParseCookies decodes cookies and checks the session cookies are present.
func ParseCookies(data []byte) (map[string]string, error) {
	trimmed := bytes.TrimSpace(data)
	var (
		cookies map[string]string
		err     error
	)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		cookies, err = parseJSONCookies(trimmed)
	} else {
		cookies, err = parseNetscapeCookies(data)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInvalidCookies, "parse cookies")
	}

	var missing []string
	for _, name := range RequiredCookies {
		if cookies[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.Newf(errors.KindInvalidCookies, "missing cookies: %s", strings.Join(missing, ", "))
	}
	return cookies, nil
}

func parseJSONCookies(data []byte) (map[string]string, error) {
	cookies := map[string]string{}
	if data[0] == '{' {
		if err := json5.Unmarshal(data, &cookies); err != nil {
			return nil, fmt.Errorf("invalid JSON cookies: %w", err)
		}
		return cookies, nil
	}

	var list []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	if err := json5.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("invalid JSON cookies: %w", err)
	}
	for _, c := range list {
		if c.Name != "" {
			cookies[c.Name] = c.Value
		}
	}
	return cookies, nil
}

// parseNetscapeCookies reads the tab separated cookies.txt layout:
// domain, subdomains, path, secure, expiry, name, value.
func parseNetscapeCookies(data []byte) (map[string]string, error) {
	cookies := map[string]string{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimPrefix(strings.TrimRight(scanner.Text(), "\r"), "#HttpOnly_")
		if strings.TrimSpace(text) == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) != 7 {
			return nil, fmt.Errorf("line %d: expected 7 tab separated fields, got %d", line, len(fields))
		}
		cookies[fields[5]] = fields[6]
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cookies, nil
}
