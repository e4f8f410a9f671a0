// internal/decode/jsobject.go
package decode

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/titanous/json5"
)

// DecodeJSObject decodes a JavaScript object literal as embedded in the site's
// script tags. Bare keys, single quoted strings and trailing commas are accepted.
// The lenient JSON5 decoder runs first, then the same input with bare keys quoted,
// and finally strict JSON on the quoted form.
func DecodeJSObject(src string, v interface{}) error {
	src = strings.TrimSpace(src)
	if src == "" {
		return fmt.Errorf("empty object literal")
	}

	firstErr := json5.Unmarshal([]byte(src), v)
	if firstErr == nil {
		return nil
	}

	quoted := QuoteBareKeys(src)
	if err := json5.Unmarshal([]byte(quoted), v); err == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(quoted), v); err == nil {
		return nil
	}
	return fmt.Errorf("failed to decode object literal: %w", firstErr)
}

// DecodeJSMap is DecodeJSObject into a generic map.
func DecodeJSMap(src string) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := DecodeJSObject(src, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// QuoteBareKeys wraps unquoted object keys in double quotes. Keys are recognized
// only outside string literals, directly after '{' or ','.
func QuoteBareKeys(src string) string {
	var b strings.Builder
	b.Grow(len(src) + len(src)/8)

	var quote byte
	expectKey := false
	for i := 0; i < len(src); i++ {
		c := src[i]
		if quote != 0 {
			b.WriteByte(c)
			if c == '\\' && i+1 < len(src) {
				i++
				b.WriteByte(src[i])
			} else if c == quote {
				quote = 0
			}
			continue
		}

		switch {
		case c == '"' || c == '\'':
			quote = c
			expectKey = false
			b.WriteByte(c)
		case c == '{' || c == ',':
			expectKey = true
			b.WriteByte(c)
		case expectKey && isKeyStart(c):
			j := i
			for j < len(src) && isKeyChar(src[j]) {
				j++
			}
			k := j
			for k < len(src) && isSpace(src[k]) {
				k++
			}
			if k < len(src) && src[k] == ':' {
				b.WriteByte('"')
				b.WriteString(src[i:j])
				b.WriteByte('"')
			} else {
				b.WriteString(src[i:j])
			}
			i = j - 1
			expectKey = false
		case isSpace(c):
			b.WriteByte(c)
		default:
			expectKey = false
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isKeyStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isKeyChar(c byte) bool {
	return isKeyStart(c)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// FindJSMod locates a named module payload such as MLiveData or UFIReactionTypes in
// raw markup and decodes the object that follows the name. It returns nil when the
// module is absent or cannot be decoded.
func FindJSMod(markup, name string) map[string]interface{} {
	re, err := regexp.Compile(regexp.QuoteMeta(name) + `[^{]+({.+?})(?:\]\]|,\d)`)
	if err != nil {
		return nil
	}
	if m := re.FindStringSubmatch(markup); m != nil {
		if obj, err := DecodeJSMap(m[1]); err == nil {
			return obj
		}
	}

	// The lazy match stops at the first terminator, which is too early when the
	// object itself contains one. Retry with brace matching.
	idx := strings.Index(markup, name)
	if idx < 0 {
		return nil
	}
	start := strings.IndexByte(markup[idx:], '{')
	if start < 0 {
		return nil
	}
	obj, ok := BalancedObject(markup, idx+start)
	if !ok {
		return nil
	}
	out, err := DecodeJSMap(obj)
	if err != nil {
		return nil
	}
	return out
}

// BalancedObject returns the {...} literal starting at start, honouring nested
// braces and string literals.
func BalancedObject(s string, start int) (string, bool) {
	if start < 0 || start >= len(s) || s[start] != '{' {
		return "", false
	}
	depth := 0
	var quote byte
	for i := start; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
