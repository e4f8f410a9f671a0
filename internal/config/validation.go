// internal/config/validation.go - validation with detailed error messages
package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ValidationError represents a detailed validation error
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("%s: %s", ve.Field, ve.Message)
}

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationError `json:"errors"`
	Warnings []string          `json:"warnings"`
}

func (r *ValidationResult) fail(field, value, message string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Value: value, Message: message})
}

var (
	validLogLevels   = []string{"debug", "trace", "info", "warn", "warning", "error"}
	validLogFormats  = []string{"console", "json"}
	metricsNameRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	result := c.ValidateWithDetails()
	if !result.Valid {
		return formatValidationError(result)
	}
	return nil
}

// ValidateWithDetails provides detailed validation results
func (c *Config) ValidateWithDetails() *ValidationResult {
	result := &ValidationResult{
		Errors:   make([]ValidationError, 0),
		Warnings: make([]string, 0),
	}

	c.validateSession(result)
	c.validateScrape(result)
	c.validateOutput(result)
	c.validateLogging(result)
	c.validateMetrics(result)

	result.Valid = len(result.Errors) == 0
	return result
}

func (c *Config) validateSession(result *ValidationResult) {
	s := c.Session
	if s.BaseURL != "" {
		u, err := url.Parse(s.BaseURL)
		switch {
		case err != nil:
			result.fail("session.base_url", s.BaseURL, fmt.Sprintf("Invalid URL format: %s", err))
		case u.Scheme == "" || u.Host == "":
			result.fail("session.base_url", s.BaseURL, "URL must include protocol and hostname")
		case u.Scheme == "http":
			result.Warnings = append(result.Warnings, "Using HTTP instead of HTTPS for the base URL")
		}
	}

	if s.Proxy != "" {
		u, err := url.Parse(s.Proxy)
		if err != nil || u.Scheme == "" || u.Host == "" {
			result.fail("session.proxy", s.Proxy, "Proxy must be a URL such as http://host:port or socks5://host:port")
		}
	}

	if s.Timeout < 0 {
		result.fail("session.timeout", s.Timeout.String(), "Timeout cannot be negative")
	}
	if s.RateLimit < 0 {
		result.fail("session.rate_limit", fmt.Sprint(s.RateLimit), "Rate limit cannot be negative")
	}
	if s.RateBurst < 0 {
		result.fail("session.rate_burst", fmt.Sprint(s.RateBurst), "Rate burst cannot be negative")
	}
	if s.CookiesFile == "" && len(s.Cookies) == 0 {
		result.Warnings = append(result.Warnings, "No cookies configured, most content requires a logged in session")
	}
}

func (c *Config) validateScrape(result *ValidationResult) {
	s := c.Scrape
	if s.PostsPerPage < 0 {
		result.fail("scrape.posts_per_page", fmt.Sprint(s.PostsPerPage), "Posts per page cannot be negative")
	}
	if s.DaysLimit < 0 {
		result.fail("scrape.days_limit", fmt.Sprint(s.DaysLimit), "Days limit cannot be negative")
	}
	if s.Pages > 0 && s.Pages <= 2 {
		result.Warnings = append(result.Warnings, "A low page limit (<=2) might return no results")
	}
	for field, pattern := range map[string]string{
		"scrape.matching":     s.Matching,
		"scrape.not_matching": s.NotMatching,
	} {
		if pattern == "" {
			continue
		}
		if _, err := regexp.Compile(pattern); err != nil {
			result.fail(field, pattern, fmt.Sprintf("Invalid pattern: %s", err))
		}
	}
	for i, key := range s.Keys {
		if strings.TrimSpace(key) == "" {
			result.fail(fmt.Sprintf("scrape.keys[%d]", i), key, "Key cannot be empty")
		}
	}
}

func (c *Config) validateOutput(result *ValidationResult) {
	o := c.Output
	if !contains(OutputFormats, o.Format) {
		result.fail("output.format", o.Format,
			fmt.Sprintf("Unsupported output format, use one of: %s", strings.Join(OutputFormats, ", ")))
	}
	if (o.Format == "sqlite" || o.Format == "excel") && o.File == "-" {
		result.fail("output.file", o.File, fmt.Sprintf("The %s format needs a file", o.Format))
	}
	if o.Format == "sqlite" && !metricsNameRegex.MatchString(o.Table) {
		result.fail("output.table", o.Table, "Table name must be an identifier")
	}
}

func (c *Config) validateLogging(result *ValidationResult) {
	l := c.Logging
	if !contains(validLogLevels, strings.ToLower(l.Level)) {
		result.fail("logging.level", l.Level, "Log level must be debug, info, warn or error")
	}
	if !contains(validLogFormats, l.Format) {
		result.fail("logging.format", l.Format, "Log format must be console or json")
	}
}

func (c *Config) validateMetrics(result *ValidationResult) {
	m := c.Metrics
	if !m.Enabled {
		return
	}
	if !metricsNameRegex.MatchString(m.Namespace) {
		result.fail("metrics.namespace", m.Namespace, "Namespace must match [a-zA-Z_][a-zA-Z0-9_]*")
	}
	if m.Listen == "" {
		result.fail("metrics.listen", m.Listen, "Listen address is required when metrics are enabled")
	}
}

// formatValidationError creates a comprehensive error message
func formatValidationError(result *ValidationResult) error {
	var msg strings.Builder

	msg.WriteString("Configuration validation failed:\n")
	for i, err := range result.Errors {
		msg.WriteString(fmt.Sprintf("  %d. %s", i+1, err.Message))
		if err.Field != "" {
			msg.WriteString(fmt.Sprintf(" (field: %s)", err.Field))
		}
		if err.Value != "" {
			msg.WriteString(fmt.Sprintf(" (value: %s)", err.Value))
		}
		msg.WriteString("\n")
	}

	return fmt.Errorf("%s", msg.String())
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
