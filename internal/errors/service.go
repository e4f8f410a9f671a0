// internal/errors/service.go - user facing error reporting for the CLI and API
package errors

import (
	"fmt"
	"net/http"
	"strings"
)

// MessageHandler converts technical errors to user-friendly messages
type MessageHandler struct {
	showTechnical bool
}

// NewMessageHandler creates a message handler. Verbose handlers append the raw error.
func NewMessageHandler(verbose bool) *MessageHandler {
	return &MessageHandler{showTechnical: verbose}
}

// UserFriendly returns a title, message and suggestions for err.
func (h *MessageHandler) UserFriendly(err error) (title, message string, suggestions []string) {
	switch KindOf(err) {
	case KindNotFound, KindStartURLNotFound:
		return "Not Found", "The page, post or profile does not exist or was deleted.",
			[]string{"Check the account name or post URL", "Some content is only visible when logged in"}
	case KindTemporarilyBanned:
		return "Temporarily Blocked", "Facebook is rate limiting this account.",
			[]string{"Wait a few hours before retrying", "Lower the page limit and disable extra requests"}
	case KindAccountDisabled:
		return "Account Disabled", "The account behind the cookies has been disabled or locked.",
			[]string{"Log in with a browser and resolve the account checkpoint"}
	case KindLoginRequired:
		return "Login Required", "A login (cookies) is required to see this page.",
			[]string{"Pass a cookies file with --cookies"}
	case KindInvalidCookies:
		return "Invalid Cookies", "The cookies are missing, malformed or expired.",
			[]string{"Export fresh cookies including c_user and xs"}
	case KindLoginFailed:
		return "Login Failed", "Facebook rejected the login.", nil
	case KindMalformedDocument:
		return "Unreadable Page", "Facebook served a document that could not be parsed.",
			[]string{"Retry with --noscript", "Run with -vvv to dump the page"}
	case KindUnexpectedResponse:
		return "Unexpected Response", "Facebook served something unexpected.",
			[]string{"Retry later"}
	case KindServerError, KindNetwork:
		return "Network Error", "The request failed after retrying.",
			[]string{"Check connectivity and proxy settings", "Increase --timeout"}
	default:
		return "Error", err.Error(), nil
	}
}

// FormatForCLI formats error for command-line display
func (h *MessageHandler) FormatForCLI(err error) string {
	if err == nil {
		return ""
	}
	title, message, suggestions := h.UserFriendly(err)

	var b strings.Builder
	fmt.Fprintf(&b, "Error: %s\n%s\n", title, message)
	if h.showTechnical {
		fmt.Fprintf(&b, "\nTechnical details: %s\n", err.Error())
	}
	if len(suggestions) > 0 {
		b.WriteString("\nSuggestions:\n")
		for _, s := range suggestions {
			fmt.Fprintf(&b, "  - %s\n", s)
		}
	}
	return b.String()
}

// ExitCode returns appropriate exit code for error
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch KindOf(err) {
	case KindNetwork, KindServerError:
		return 3
	case KindMalformedDocument, KindUnexpectedResponse:
		return 4
	case KindNotFound, KindStartURLNotFound:
		return 5
	case KindTemporarilyBanned:
		return 7
	case KindLoginRequired, KindInvalidCookies, KindLoginFailed, KindAccountDisabled:
		return 8
	default:
		return 1
	}
}

// HTTPStatus maps an error to the status the API server answers with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound, KindStartURLNotFound:
		return http.StatusNotFound
	case KindLoginRequired, KindInvalidCookies, KindLoginFailed:
		return http.StatusUnauthorized
	case KindAccountDisabled:
		return http.StatusForbidden
	case KindTemporarilyBanned:
		return http.StatusTooManyRequests
	case KindUnknown:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}
