// internal/decode/numeric.go
package decode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

var abbrMultipliers = map[rune]float64{
	'k': 1e3,
	'm': 1e6,
	'b': 1e9,
}

// ConvertNumericAbbr converts counts like "1.2K", "3M" or "2,500" into integers.
// Thousands separators are dropped before parsing and the unit suffix is case
// insensitive. An unknown suffix is an error.
func ConvertNumericAbbr(s string) (int, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, fmt.Errorf("empty numeric value")
	}

	last := []rune(s)[len([]rune(s))-1]
	if !unicode.IsLetter(last) {
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid numeric value %q: %w", s, err)
		}
		return int(math.Round(n)), nil
	}

	mult, ok := abbrMultipliers[unicode.ToLower(last)]
	if !ok {
		return 0, fmt.Errorf("unknown numeric suffix %q in %q", string(last), s)
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, string(last))), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric value %q: %w", s, err)
	}
	return int(math.Round(n * mult)), nil
}

// ParseInt keeps only the digits of s, so "1,024 members" becomes 1024.
func ParseInt(s string) (int, error) {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, fmt.Errorf("no digits in %q", s)
	}
	return strconv.Atoi(b.String())
}
