// internal/fetch/session.go
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/valpere/FBScrapexter/internal/errors"
	"github.com/valpere/FBScrapexter/internal/utils"
)

// User agents the site serves usable markup to.
const (
	DefaultUserAgent = "Mozilla/5.0 (Linux; Android 6.0; Nexus 5 Build/MRA58N) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/90.0.4430.212 Mobile Safari/537.36"
	DesktopUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_12_6) AppleWebKit/603.3.8 (KHTML, like Gecko) Version/10.1.2 Safari/603.3.8"
)

// SessionConfig defines configuration options for a Session
type SessionConfig struct {
	BaseURL   string            `yaml:"base_url" json:"base_url"`
	UserAgent string            `yaml:"user_agent" json:"user_agent"`
	Headers   map[string]string `yaml:"headers" json:"headers"`
	Cookies   map[string]string `yaml:"cookies" json:"cookies"`
	Proxy     string            `yaml:"proxy" json:"proxy"`
	Timeout   time.Duration     `yaml:"timeout" json:"timeout"`
	Noscript  bool              `yaml:"noscript" json:"noscript"`
	RateLimit float64           `yaml:"rate_limit" json:"rate_limit"` // requests per second, 0 disables
	RateBurst int               `yaml:"rate_burst" json:"rate_burst"`
}

// Session is the resty backed Fetcher. Its cookie jar, user agent and proxy
// are the shared session state handed to every crawl.
type Session struct {
	client  *resty.Client
	jar     http.CookieJar
	base    *url.URL
	logger  utils.Logger
	limiter *utils.RateLimiter

	observer Observer

	mu          sync.Mutex
	userAgent   string
	localeState LocaleState
}

// NewSession creates a new Session with the specified configuration
func NewSession(config SessionConfig, logger utils.Logger) (*Session, error) {
	if config.BaseURL == "" {
		config.BaseURL = utils.MobileBaseURL
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = utils.NopLogger()
	}

	base, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	client := resty.New()
	client.SetCookieJar(jar)
	client.SetTimeout(config.Timeout)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	client.SetHeaders(map[string]string{
		"Accept-Language": "en-US,en;q=0.5",
		"Sec-Fetch-User":  "?1",
	})
	client.SetHeaders(config.Headers)

	s := &Session{
		client:    client,
		jar:       jar,
		base:      base,
		logger:    logger.WithField("component", "session"),
		userAgent: config.UserAgent,
	}

	s.limiter = utils.NewRateLimiter(config.RateLimit, config.RateBurst)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		if err := s.limiter.Wait(req.Context()); err != nil {
			return err
		}
		req.SetHeader("User-Agent", s.UserAgent())
		return nil
	})

	if config.Proxy != "" {
		if err := s.SetProxy(config.Proxy); err != nil {
			return nil, err
		}
	}
	s.SetCookies(config.Cookies)
	if config.Noscript {
		s.SetNoscript(true)
	}
	return s, nil
}

// SetObserver registers a request observer, typically the metrics collector.
func (s *Session) SetObserver(o Observer) {
	s.observer = o
}

// BaseURL returns the URL relative requests are resolved against.
func (s *Session) BaseURL() string {
	return s.base.String()
}

// UserAgent returns the current user agent.
func (s *Session) UserAgent() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userAgent
}

// SetUserAgent switches the user agent and returns the previous one.
func (s *Session) SetUserAgent(ua string) string {
	s.mu.Lock()
	prev := s.userAgent
	s.userAgent = ua
	s.mu.Unlock()
	if prev != ua {
		s.logger.Debugf("User agent set to %s", ua)
	}
	return prev
}

// SetNoscript toggles the simplified markup variant via the noscript cookie.
func (s *Session) SetNoscript(on bool) {
	value := "0"
	if on {
		value = "1"
	}
	s.setCookie("noscript", value)
	s.logger.Debugf("Noscript set to %s", value)
}

// Noscript reports whether the noscript cookie is set.
func (s *Session) Noscript() bool {
	return s.Cookie("noscript") == "1"
}

// SetProxy routes all requests through proxyURL.
func (s *Session) SetProxy(proxyURL string) error {
	if _, err := url.Parse(proxyURL); err != nil {
		return fmt.Errorf("invalid proxy URL: %w", err)
	}
	s.client.SetProxy(proxyURL)
	s.logger.Infof("Using proxy %s", proxyURL)
	return nil
}

// SetCookies adds cookies to the jar for the site's domain.
func (s *Session) SetCookies(cookies map[string]string) {
	for name, value := range cookies {
		s.setCookie(name, value)
	}
}

func (s *Session) setCookie(name, value string) {
	s.jar.SetCookies(s.base, []*http.Cookie{{Name: name, Value: value, Path: "/"}})
}

// Cookie returns the value of a session cookie, or "".
func (s *Session) Cookie(name string) string {
	for _, c := range s.jar.Cookies(s.base) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// ValidateCookies checks that the cookies of a logged in session are present.
func (s *Session) ValidateCookies() error {
	var missing []string
	for _, name := range []string{"c_user", "xs"} {
		if s.Cookie(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return errors.Newf(errors.KindInvalidCookies, "missing cookies: %s", strings.Join(missing, ", "))
	}
	return nil
}

// IsLoggedIn probes the settings page, which requires a login.
func (s *Session) IsLoggedIn(ctx context.Context) (bool, error) {
	_, err := s.Get(ctx, "/settings")
	if err == nil {
		return true, nil
	}
	if errors.Is(err, errors.ErrLoginRequired) {
		return false, nil
	}
	return false, err
}

// LocaleState returns the result of the locale check.
func (s *Session) LocaleState() LocaleState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.localeState
}

// Resolve joins a relative URL against the base URL.
func (s *Session) Resolve(ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return utils.URLJoin(s.base.String(), ref)
}

// Get fetches a page and classifies it. Consent pages are accepted on the way.
func (s *Session) Get(ctx context.Context, rawURL string) (*Response, error) {
	target := s.Resolve(rawURL)
	s.logger.Debugf("Requesting %s", target)

	resp, err := s.do(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	s.updateLocale(resp.Text)

	if strings.Contains(resp.URL, "cookie/consent-page") {
		s.logger.Info("Accepting cookie consent page")
		resp, err = s.SubmitForm(ctx, resp, nil)
		if err != nil {
			return nil, err
		}
	}

	if strings.HasPrefix(resp.URL, s.base.String()) && len(resp.Doc.Find("script")) == 0 && !s.Noscript() {
		s.logger.Warnf("Simplified noscript markup served unexpectedly on %s", resp.URL)
	}

	if err := Classify(resp, s.loginURLs()...); err != nil {
		return nil, errors.WithURL(err, resp.URL)
	}
	return resp, nil
}

// Post submits form values and returns the resulting page.
func (s *Session) Post(ctx context.Context, rawURL string, form url.Values) (*Response, error) {
	target := s.Resolve(rawURL)
	resp, err := s.do(ctx, http.MethodPost, target, form)
	if err != nil {
		return nil, err
	}
	if err := ClassifyStatus(resp.StatusCode); err != nil {
		return nil, errors.WithURL(err, resp.URL)
	}
	return resp, nil
}

// SubmitForm posts the first form of resp with its named inputs. Values in
// extra replace the form's own; an extra key with no values removes the input.
func (s *Session) SubmitForm(ctx context.Context, resp *Response, extra url.Values) (*Response, error) {
	form := resp.Doc.First("form")
	if !form.Exists() {
		return nil, errors.New(errors.KindUnexpectedResponse, "page has no form to submit")
	}
	action := s.Resolve(form.AttrOr("action", resp.URL))

	data := url.Values{}
	for _, input := range resp.Doc.Find("input[name][value]") {
		name, _ := input.Attr("name")
		value, _ := input.Attr("value")
		data.Set(name, value)
	}
	for k, v := range extra {
		if len(v) == 0 {
			data.Del(k)
			continue
		}
		data[k] = v
	}
	return s.Post(ctx, action, data)
}

func (s *Session) do(ctx context.Context, method, target string, form url.Values) (*Response, error) {
	req := s.client.R().SetContext(ctx)
	if form != nil {
		req.SetFormDataFromValues(form)
	}

	start := time.Now()
	raw, err := req.Execute(method, target)
	elapsed := time.Since(start)
	if err != nil {
		s.observe("network", 0, elapsed)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Warnf("Request to %s failed: %v", target, err)
		return nil, errors.WithURL(errors.Wrap(err, errors.KindNetwork, "fetch"), target)
	}

	finalURL := target
	if raw.RawResponse != nil && raw.RawResponse.Request != nil && raw.RawResponse.Request.URL != nil {
		finalURL = raw.RawResponse.Request.URL.String()
	}

	if err := ClassifyStatus(raw.StatusCode()); err != nil {
		s.observe(errors.KindOf(err).String(), raw.StatusCode(), elapsed)
		return nil, errors.WithURL(err, finalURL)
	}

	resp, err := NewResponse(raw.StatusCode(), finalURL, raw.String())
	if err != nil {
		s.observe(errors.KindMalformedDocument.String(), raw.StatusCode(), elapsed)
		return nil, errors.WithURL(err, finalURL)
	}
	resp.Header = raw.Header()
	resp.Duration = elapsed
	s.observe("ok", raw.StatusCode(), elapsed)
	return resp, nil
}

func (s *Session) observe(kind string, status int, d time.Duration) {
	if s.observer != nil {
		s.observer.ObserveRequest(kind, status, d)
	}
}

func (s *Session) updateLocale(markup string) {
	s.mu.Lock()
	next, tag := checkLocale(s.localeState, markup)
	changed := next != s.localeState
	s.localeState = next
	s.mu.Unlock()

	if changed && next == LocaleMismatch {
		s.logger.Warnf("Locale detected as %s, extraction works best with en_US", tag)
	}
}

func (s *Session) loginURLs() []string {
	return []string{
		utils.URLJoin(s.base.String(), "/login"),
		utils.URLJoin(utils.MobileBaseURL, "/login"),
		utils.URLJoin(utils.W3BaseURL, "/login"),
	}
}
