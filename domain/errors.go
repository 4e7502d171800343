package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeInvalid      ErrorCode = "INVALID"
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
	ErrCodeExpiredToken ErrorCode = "EXPIRED_TOKEN"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeUpstream     ErrorCode = "UPSTREAM"
	ErrCodeInternal     ErrorCode = "INTERNAL"
)

// Status returns the HTTP status equivalent of the code.
func (c ErrorCode) Status() int {
	switch c {
	case ErrCodeInvalid:
		return http.StatusBadRequest
	case ErrCodeInvalidToken, ErrCodeExpiredToken:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// DefaultMessage is the message returned to callers when the error carries no public message,
// and always for codes whose details must not leak.
func (c ErrorCode) DefaultMessage() string {
	switch c {
	case ErrCodeInvalid:
		return "invalid payload"
	case ErrCodeInvalidToken:
		return "invalid token"
	case ErrCodeExpiredToken:
		return "expired token"
	case ErrCodeNotFound:
		return "not found"
	case ErrCodeConflict:
		return "conflict"
	case ErrCodeUnauthorized:
		return "unauthorized"
	case ErrCodeUpstream:
		return "upstream request failed"
	default:
		return "unexpected error"
	}
}

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" {
		msg = e.Code.DefaultMessage()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches another *Error by code so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code && (t.Message == "" || t.Message == e.Message)
}

// PublicMessage is the text safe to hand to a client.
func (e *Error) PublicMessage() string {
	if e == nil {
		return ""
	}
	switch e.Code {
	case ErrCodeUpstream, ErrCodeInternal:
		return e.Code.DefaultMessage()
	}
	if e.Message == "" {
		return e.Code.DefaultMessage()
	}
	return e.Message
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func Invalid(message string) *Error { return NewError(ErrCodeInvalid, message) }

func InvalidToken() *Error { return NewError(ErrCodeInvalidToken, "") }

func ExpiredToken() *Error { return NewError(ErrCodeExpiredToken, "") }

func NotFound(message string) *Error { return NewError(ErrCodeNotFound, message) }

func Conflict(message string) *Error { return NewError(ErrCodeConflict, message) }

func Unauthorized(message string) *Error { return NewError(ErrCodeUnauthorized, message) }

// Upstream wraps a third-party failure; the cause is kept for logging only.
func Upstream(message string, err error) *Error { return WrapError(ErrCodeUpstream, message, err) }

// Internal wraps an unexpected or persistence failure.
func Internal(message string, err error) *Error { return WrapError(ErrCodeInternal, message, err) }

// Common domain errors.
var (
	ErrUserNotFound          = NotFound("user not found")
	ErrSessionNotFound       = NotFound("session not found")
	ErrUserInfoNotFound      = NotFound("user info not found")
	ErrExternalTokenNotFound = NotFound("external token not found")
	ErrSessionIDTaken        = Conflict("session id taken")
	ErrRefreshTooSoon        = Conflict("session refreshed too recently, retry shortly")
	ErrUnauthorized          = Unauthorized("unauthorized")
	ErrInvalidPayload        = Invalid("invalid payload")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// AsError extracts a domain error, classifying anything else as internal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr
	}
	return Internal("", err)
}
