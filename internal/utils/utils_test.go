package utils

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestURLJoin(t *testing.T) {
	tests := []struct {
		base, ref, expected string
	}{
		{MobileBaseURL, "/nintendo/posts/", "https://m.facebook.com/nintendo/posts/"},
		{MobileBaseURL, "12345", "https://m.facebook.com/12345"},
		{MobileBaseURL, "https://www.facebook.com/x", "https://www.facebook.com/x"},
		{BaseURL, "nintendo/posts/1", "https://facebook.com/nintendo/posts/1"},
	}

	for _, tt := range tests {
		if got := URLJoin(tt.base, tt.ref); got != tt.expected {
			t.Errorf("URLJoin(%q, %q): expected %q, got %q", tt.base, tt.ref, tt.expected, got)
		}
	}
}

func TestMobileURL(t *testing.T) {
	if got := MobileURL("http://example.com/a"); got != "http://example.com/a" {
		t.Errorf("expected absolute URL unchanged, got %q", got)
	}
	if got := MobileURL("/groups/1/"); got != "https://m.facebook.com/groups/1/" {
		t.Errorf("expected joined URL, got %q", got)
	}
}

func TestFilterQueryParams(t *testing.T) {
	href := "/story.php?story_fbid=111&id=222&refid=17&__tn__=H-R"

	got := FilterQueryParams(href, []string{"story_fbid", "id"}, nil)
	if got != "/story.php?story_fbid=111&id=222" {
		t.Errorf("expected whitelisted params, got %q", got)
	}

	got = FilterQueryParams("/profile.php?id=1&refid=2", nil, []string{"refid"})
	if got != "/profile.php?id=1" {
		t.Errorf("expected blacklisted param removed, got %q", got)
	}
}

func TestQueryParam(t *testing.T) {
	u := "https://m.facebook.com/photo.php?fbid=1&amp;id=2&amp;set=a.3"
	if got := QueryParam(u, "id"); got != "2" {
		t.Errorf("expected %q, got %q", "2", got)
	}
	if got := QueryParam(u, "missing"); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

func TestReplaceHost(t *testing.T) {
	got := ReplaceHost("https://facebook.com/nintendo/posts/1", "www.facebook.com")
	if got != "https://www.facebook.com/nintendo/posts/1" {
		t.Errorf("expected www host, got %q", got)
	}
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LoggerOptions{Level: WarnLevel, Format: "json", Output: &buf})

	log.Info("hidden")
	log.WithField("post_id", "42").Warnf("shown %d", 1)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("expected info message to be filtered")
	}
	if !strings.Contains(out, "shown 1") || !strings.Contains(out, `"post_id":"42"`) {
		t.Errorf("expected warn message with field, got %q", out)
	}
}

func TestParseLogLevel(t *testing.T) {
	if ParseLogLevel("DEBUG") != DebugLevel {
		t.Error("expected debug level")
	}
	if ParseLogLevel("bogus") != InfoLevel {
		t.Error("expected info level for unknown input")
	}
}

func TestRateLimiter(t *testing.T) {
	unlimited := NewRateLimiter(0, 0)
	if !unlimited.Unlimited() {
		t.Error("expected a zero rate to be unlimited")
	}
	for i := 0; i < 100; i++ {
		if !unlimited.Allow() {
			t.Fatalf("unlimited limiter refused event %d", i)
		}
	}

	limited := NewRateLimiter(0.001, 2)
	if limited.Unlimited() {
		t.Error("expected a positive rate to be limited")
	}
	if !limited.Allow() || !limited.Allow() {
		t.Error("expected the burst to be allowed")
	}
	if limited.Allow() {
		t.Error("expected the third event to be refused")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limited.Wait(ctx); err == nil {
		t.Error("expected Wait to fail on a cancelled context")
	}
}
