// internal/fetch/locale.go
package fetch

import (
	"regexp"
	"strings"

	"golang.org/x/text/language"
)

// LocaleState tracks whether the account locale has been checked.
type LocaleState int

const (
	LocaleUnchecked LocaleState = iota
	LocaleOK
	LocaleMismatch
)

func (s LocaleState) String() string {
	switch s {
	case LocaleOK:
		return "ok"
	case LocaleMismatch:
		return "mismatch"
	default:
		return "unchecked"
	}
}

var intlLocaleRegex = regexp.MustCompile(`"IntlCurrentLocale",\[\],{code:"(\w{2}_\w{2})"}`)

// DetectLocale returns the locale the site rendered the page in.
func DetectLocale(markup string) (language.Tag, bool) {
	m := intlLocaleRegex.FindStringSubmatch(markup)
	if m == nil {
		return language.Und, false
	}
	tag, err := language.Parse(strings.ReplaceAll(m[1], "_", "-"))
	if err != nil {
		return language.Und, false
	}
	return tag, true
}

// checkLocale moves the state out of LocaleUnchecked once a locale marker is seen.
// Extraction patterns assume American English.
func checkLocale(state LocaleState, markup string) (LocaleState, language.Tag) {
	if state != LocaleUnchecked {
		return state, language.Und
	}
	tag, ok := DetectLocale(markup)
	if !ok {
		return LocaleUnchecked, language.Und
	}
	if tag.String() == language.AmericanEnglish.String() {
		return LocaleOK, tag
	}
	return LocaleMismatch, tag
}
