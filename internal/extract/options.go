// internal/extract/options.go
package extract

import (
	"fmt"
	"strconv"
	"strings"
)

// ModeKind selects how a secondary pass produces its results.
type ModeKind int

const (
	ModeOff ModeKind = iota
	// ModeEager materializes every result.
	ModeEager
	// ModeCapped materializes up to Mode.Cap results.
	ModeCapped
	// ModeLazy stores a sequence that fetches on demand.
	ModeLazy
)

// Mode configures a secondary pass such as comments or reactors.
type Mode struct {
	Kind ModeKind
	Cap  int
}

// Common modes.
var (
	Off   = Mode{Kind: ModeOff}
	Eager = Mode{Kind: ModeEager}
	Lazy  = Mode{Kind: ModeLazy}
)

// Capped returns a mode that stops after n results.
func Capped(n int) Mode {
	return Mode{Kind: ModeCapped, Cap: n}
}

// Enabled reports whether the pass runs at all.
func (m Mode) Enabled() bool {
	return m.Kind != ModeOff
}

// Limit returns the cap when it is below def, otherwise def.
func (m Mode) Limit(def int) int {
	if m.Kind == ModeCapped && m.Cap < def {
		return m.Cap
	}
	return def
}

// String renders the mode the way ParseMode reads it.
func (m Mode) String() string {
	switch m.Kind {
	case ModeEager:
		return "true"
	case ModeCapped:
		return strconv.Itoa(m.Cap)
	case ModeLazy:
		return "lazy"
	default:
		return "false"
	}
}

// ParseMode reads "false|off", "true|all|eager", "lazy|generator" or a count.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "false", "off", "no", "0":
		return Off, nil
	case "true", "all", "eager", "yes", "on":
		return Eager, nil
	case "lazy", "generator":
		return Lazy, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return Off, fmt.Errorf("invalid mode %q: expected true, false, lazy or a count", s)
	}
	return Capped(n), nil
}

// UnmarshalYAML accepts booleans, counts and the mode keywords.
func (m *Mode) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := ParseMode(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// MarshalYAML writes the mode keyword or count.
func (m Mode) MarshalYAML() (interface{}, error) {
	return m.String(), nil
}

// ProgressFunc reports progress of a paginated secondary pass.
type ProgressFunc func(done, total int)

// Options selects which fields are extracted and which extra requests are allowed.
type Options struct {
	// Account is the page or profile name used to build canonical post URLs.
	Account string `yaml:"account" json:"account"`

	// AllowExtraRequests permits fetching the full post page and photo pages.
	AllowExtraRequests bool `yaml:"allow_extra_requests" json:"allow_extra_requests"`

	Reactions Mode `yaml:"reactions" json:"-"`
	Reactors  Mode `yaml:"reactors" json:"-"`
	Comments  Mode `yaml:"comments" json:"-"`

	// Noscript selects the selectors of the simplified markup.
	Noscript bool `yaml:"noscript" json:"noscript"`

	// KeepSource retains the raw markup of the post element.
	KeepSource bool `yaml:"keep_source" json:"keep_source"`

	Progress ProgressFunc `yaml:"-" json:"-"`
}

// DefaultOptions returns options with extra requests allowed and every
// secondary pass off.
func DefaultOptions() Options {
	return Options{AllowExtraRequests: true}
}
