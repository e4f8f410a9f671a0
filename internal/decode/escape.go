// internal/decode/escape.go
package decode

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

var (
	cssHexEscape = regexp.MustCompile(`\\([0-9a-fA-F]{1,6}) `)
	cssURLValue  = regexp.MustCompile(`url\((?:'([^']+)'|"([^"]+)"|([^)'"]+))\)`)
)

const maxUnescapePasses = 4

// DecodeCSSURL reverses the escaping applied to URLs inside inline styles:
// CSS hex escapes such as `\3a ` followed by standard unicode escapes, repeated
// while the value is still escaped.
func DecodeCSSURL(s string) string {
	s = cssHexEscape.ReplaceAllStringFunc(s, func(m string) string {
		hex := strings.TrimSpace(m[1:])
		code, err := strconv.ParseUint(hex, 16, 32)
		if err != nil || !utf8.ValidRune(rune(code)) {
			return m
		}
		return string(rune(code))
	})
	return UnescapeRepeated(s)
}

// ExtractCSSURL finds the url(...) value of a style attribute and decodes it.
func ExtractCSSURL(style string) (string, bool) {
	m := cssURLValue.FindStringSubmatch(style)
	if m == nil {
		return "", false
	}
	for _, g := range m[1:] {
		if g != "" {
			return DecodeCSSURL(strings.TrimSpace(g)), true
		}
	}
	return "", false
}

// UnescapeRepeated applies Unescape until the value stops changing.
func UnescapeRepeated(s string) string {
	for i := 0; i < maxUnescapePasses; i++ {
		next := Unescape(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

// Unescape decodes JavaScript string escapes: \uXXXX (including surrogate pairs),
// \xXX, \/ and the usual single character escapes. Unknown escapes are kept.
func Unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		next := s[i+1]
		switch next {
		case 'u':
			r, n := readUnicodeEscape(s[i:])
			if n == 0 {
				b.WriteByte(c)
				continue
			}
			b.WriteRune(r)
			i += n - 1
		case 'x':
			if i+4 <= len(s) {
				if v, err := strconv.ParseUint(s[i+2:i+4], 16, 8); err == nil {
					b.WriteRune(rune(v))
					i += 3
					continue
				}
			}
			b.WriteByte(c)
		case '/', '"', '\'', '\\':
			b.WriteByte(next)
			i++
		case 'n':
			b.WriteByte('\n')
			i++
		case 't':
			b.WriteByte('\t')
			i++
		case 'r':
			b.WriteByte('\r')
			i++
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// readUnicodeEscape decodes a \uXXXX sequence at the start of s, joining a
// following low surrogate when present. It returns the rune and bytes consumed.
func readUnicodeEscape(s string) (rune, int) {
	if len(s) < 6 {
		return 0, 0
	}
	v, err := strconv.ParseUint(s[2:6], 16, 16)
	if err != nil {
		return 0, 0
	}
	r := rune(v)
	if utf16.IsSurrogate(r) && len(s) >= 12 && s[6] == '\\' && s[7] == 'u' {
		if lo, err := strconv.ParseUint(s[8:12], 16, 16); err == nil {
			if joined := utf16.DecodeRune(r, rune(lo)); joined != utf8.RuneError {
				return joined, 12
			}
		}
	}
	if utf16.IsSurrogate(r) {
		return utf8.RuneError, 6
	}
	return r, 6
}

// UnescapeHTMLAmp turns &amp; back into & in URLs lifted from raw markup.
func UnescapeHTMLAmp(s string) string {
	return strings.ReplaceAll(s, "&amp;", "&")
}
