// internal/errors/service_test.go
package errors

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestError_IsMatchesByKind(t *testing.T) {
	err := Wrap(fmt.Errorf("title was 'Page Not Found'"), KindNotFound, "fetch")
	wrapped := fmt.Errorf("iterate pages: %w", err)

	if !Is(wrapped, ErrNotFound) {
		t.Error("Expected wrapped error to match ErrNotFound")
	}
	if Is(wrapped, ErrLoginRequired) {
		t.Error("Expected wrapped error not to match ErrLoginRequired")
	}
	if KindOf(wrapped) != KindNotFound {
		t.Errorf("Expected kind %v, got %v", KindNotFound, KindOf(wrapped))
	}
}

func TestError_Message(t *testing.T) {
	err := WithURL(New(KindLoginRequired, "a login (cookies) is required"), "https://m.facebook.com/x")
	msg := err.Error()
	if !strings.Contains(msg, "a login (cookies) is required") {
		t.Errorf("Expected message in %q", msg)
	}
	if !strings.Contains(msg, "https://m.facebook.com/x") {
		t.Errorf("Expected URL in %q", msg)
	}
}

func TestWrap_Nil(t *testing.T) {
	if Wrap(nil, KindNetwork, "op") != nil {
		t.Error("Expected nil for nil error")
	}
}

func TestRetryableAndFatal(t *testing.T) {
	tests := []struct {
		kind      Kind
		retryable bool
		fatal     bool
	}{
		{KindServerError, true, false},
		{KindNetwork, true, false},
		{KindNotFound, false, false},
		{KindTemporarilyBanned, false, true},
		{KindLoginRequired, false, true},
		{KindAccountDisabled, false, true},
		{KindMalformedDocument, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := New(tt.kind, "x")
			if IsRetryable(err) != tt.retryable {
				t.Errorf("Expected retryable=%v for %v", tt.retryable, tt.kind)
			}
			if IsFatal(err) != tt.fatal {
				t.Errorf("Expected fatal=%v for %v", tt.fatal, tt.kind)
			}
		})
	}
}

func TestExitCodeAndStatus(t *testing.T) {
	if ExitCode(nil) != 0 {
		t.Error("Expected exit code 0 for nil")
	}
	if got := ExitCode(New(KindTemporarilyBanned, "x")); got != 7 {
		t.Errorf("Expected exit code 7, got %d", got)
	}
	if got := ExitCode(fmt.Errorf("plain")); got != 1 {
		t.Errorf("Expected exit code 1, got %d", got)
	}
	if got := HTTPStatus(New(KindNotFound, "x")); got != http.StatusNotFound {
		t.Errorf("Expected %d, got %d", http.StatusNotFound, got)
	}
	if got := HTTPStatus(New(KindTemporarilyBanned, "x")); got != http.StatusTooManyRequests {
		t.Errorf("Expected %d, got %d", http.StatusTooManyRequests, got)
	}
}

func TestMessageHandler_FormatForCLI(t *testing.T) {
	err := New(KindLoginRequired, "a login (cookies) is required to see this page")

	quiet := NewMessageHandler(false).FormatForCLI(err)
	if !strings.Contains(quiet, "Login Required") {
		t.Errorf("Expected title in output, got %q", quiet)
	}
	if strings.Contains(quiet, "Technical details") {
		t.Error("Expected no technical details without verbose")
	}

	verbose := NewMessageHandler(true).FormatForCLI(err)
	if !strings.Contains(verbose, "Technical details") {
		t.Error("Expected technical details with verbose")
	}
	if !strings.Contains(verbose, "--cookies") {
		t.Error("Expected cookies suggestion")
	}
}
