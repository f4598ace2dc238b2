// Package autherr is the failure taxonomy shared by the HTTP client, the
// auth service and the session manager.
//
// Every failure is an *Error carrying a Kind. Match a kind with errors.Is
// against the sentinels (errors.Is(err, autherr.ErrRateLimit)) and pull
// the details with errors.As.
package autherr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

type Kind string

const (
	KindValidation         Kind = "validation"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindAccountLocked      Kind = "account_locked"
	KindRateLimit          Kind = "rate_limit"
	KindInvalidCode        Kind = "invalid_code"
	KindWeakPassword       Kind = "weak_password"
	KindUnauthorized       Kind = "unauthorized"
	KindService            Kind = "service"
	KindNetwork            Kind = "network"
	KindTimeout            Kind = "timeout"
)

var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
	ErrAccountLocked      = &Error{Kind: KindAccountLocked}
	ErrRateLimit          = &Error{Kind: KindRateLimit}
	ErrInvalidCode        = &Error{Kind: KindInvalidCode}
	ErrWeakPassword       = &Error{Kind: KindWeakPassword}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized}
	ErrService            = &Error{Kind: KindService}
	ErrNetwork            = &Error{Kind: KindNetwork}
	ErrTimeout            = &Error{Kind: KindTimeout}
)

var defaultMessages = map[Kind]string{
	KindValidation:         "Invalid input",
	KindInvalidCredentials: "Invalid username or password",
	KindAccountLocked:      "Account locked due to too many failed attempts",
	KindRateLimit:          "Too many requests, please try again later",
	KindInvalidCode:        "Invalid or expired code",
	KindWeakPassword:       "Password is too weak",
	KindUnauthorized:       "Invalid or expired token",
	KindService:            "Service error, please try again",
	KindNetwork:            "Server unavailable",
	KindTimeout:            "Request timed out",
}

// Error is a normalized failure.
type Error struct {
	Kind    Kind
	Message string
	// Status is the HTTP status, 0 when no response was received.
	Status int
	// Fields holds field-level messages for validation failures.
	Fields map[string][]string
	// RetryAfter is the server's back-off hint for rate limiting.
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = defaultMessages[e.Kind]
	}
	if len(e.Fields) == 0 {
		return msg
	}

	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(e.Fields[name], " ")))
	}
	return msg + " (" + strings.Join(parts, "; ") + ")"
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the package sentinels work
// with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// New builds an error of the given kind. An empty message falls back to
// the kind's default text.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an error of the given kind around a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" when
// there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Message returns the user-facing text for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return err.Error()
}
