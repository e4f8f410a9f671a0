// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can decide whether to retry, fall back or stop.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindTemporarilyBanned
	KindAccountDisabled
	KindLoginRequired
	KindUnexpectedResponse
	KindInvalidCookies
	KindLoginFailed
	KindStartURLNotFound
	KindFieldExtraction
	KindMalformedDocument
	KindServerError
	KindNetwork
)

var kindNames = map[Kind]string{
	KindUnknown:            "unknown",
	KindNotFound:           "not_found",
	KindTemporarilyBanned:  "temporarily_banned",
	KindAccountDisabled:    "account_disabled",
	KindLoginRequired:      "login_required",
	KindUnexpectedResponse: "unexpected_response",
	KindInvalidCookies:     "invalid_cookies",
	KindLoginFailed:        "login_failed",
	KindStartURLNotFound:   "start_url_not_found",
	KindFieldExtraction:    "field_extraction",
	KindMalformedDocument:  "malformed_document",
	KindServerError:        "server_error",
	KindNetwork:            "network",
}

// String returns the snake_case name of the kind, used as a metrics label.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinels for errors.Is comparisons. Any *Error with the same Kind matches.
var (
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "not found"}
	ErrTemporarilyBanned  = &Error{Kind: KindTemporarilyBanned, Message: "temporarily banned"}
	ErrAccountDisabled    = &Error{Kind: KindAccountDisabled, Message: "account disabled"}
	ErrLoginRequired      = &Error{Kind: KindLoginRequired, Message: "login required"}
	ErrUnexpectedResponse = &Error{Kind: KindUnexpectedResponse, Message: "unexpected response"}
	ErrInvalidCookies     = &Error{Kind: KindInvalidCookies, Message: "invalid cookies"}
	ErrLoginFailed        = &Error{Kind: KindLoginFailed, Message: "login failed"}
	ErrStartURLNotFound   = &Error{Kind: KindStartURLNotFound, Message: "start url not found"}
	ErrFieldExtraction    = &Error{Kind: KindFieldExtraction, Message: "field extraction failed"}
	ErrMalformedDocument  = &Error{Kind: KindMalformedDocument, Message: "malformed document"}
	ErrServerError        = &Error{Kind: KindServerError, Message: "server error"}
	ErrNetwork            = &Error{Kind: KindNetwork, Message: "network error"}
)

// Error is the typed error carried across package boundaries.
type Error struct {
	Kind    Kind
	Op      string
	URL     string
	Message string
	Err     error
}

// Error returns the error message
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.URL != "" {
		msg += " (url: " + e.URL + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New creates an error of the given kind.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err with a kind and operation name. A nil err yields nil.
func Wrap(err error, kind Kind, op string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// WithURL returns a copy of err annotated with the URL that produced it.
func WithURL(err error, url string) error {
	var e *Error
	if !errors.As(err, &e) {
		return err
	}
	cp := *e
	cp.URL = url
	return &cp
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether a bounded retry may help.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindServerError, KindNetwork:
		return true
	default:
		return false
	}
}

// IsFatal reports whether the error is an authorization or ban condition that
// must be surfaced immediately.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindTemporarilyBanned, KindAccountDisabled, KindLoginRequired, KindInvalidCookies, KindLoginFailed:
		return true
	default:
		return false
	}
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join wraps errors.Join.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
