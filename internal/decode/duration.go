// internal/decode/duration.go
package decode

import (
	"regexp"
	"strconv"
)

var isoDurationRegex = regexp.MustCompile(`T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?`)

// ParseDuration converts the time part of an ISO-8601 duration ("PT1H28M15S",
// "T33M8S") into whole seconds. ok is false when no component is present.
func ParseDuration(s string) (seconds int, ok bool) {
	for _, m := range isoDurationRegex.FindAllStringSubmatch(s, -1) {
		if m[1] == "" && m[2] == "" && m[3] == "" {
			continue
		}
		total := 0.0
		if m[1] != "" {
			h, _ := strconv.Atoi(m[1])
			total += float64(h) * 3600
		}
		if m[2] != "" {
			mi, _ := strconv.Atoi(m[2])
			total += float64(mi) * 60
		}
		if m[3] != "" {
			sec, _ := strconv.ParseFloat(m[3], 64)
			total += sec
		}
		return int(total), true
	}
	return 0, false
}
