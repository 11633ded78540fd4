package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors - Sentinel errors for use with errors.Is()
var (
	ErrNotFound       = errors.New("resource not found")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")
)

// Gateway errors. Every gate denial carries exactly one of these.
var (
	ErrOriginRejected      = errors.New("origin rejected")
	ErrFrontendRejected    = errors.New("frontend request rejected")
	ErrTokenMissing        = errors.New("token missing")
	ErrTokenInvalid        = errors.New("token invalid")
	ErrFingerprintMismatch = errors.New("token fingerprint mismatch")
	ErrAPIKeyInvalid       = errors.New("api key invalid")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrNotOwner            = errors.New("not resource owner")
	ErrOwnerUnresolvable   = errors.New("resource owner unresolvable")
	ErrCSRFMissing         = errors.New("csrf token missing")
	ErrCSRFInvalid         = errors.New("csrf token invalid")
	ErrCSRFOriginMismatch  = errors.New("csrf origin mismatch")
	ErrRateLimited         = errors.New("rate limit exceeded")
	ErrRateStoreFailure    = errors.New("rate limit store failure")
	ErrRequestTimeout      = errors.New("request timeout")
)

type errorInfo struct {
	err    error
	code   string
	status int
}

// ordered: the more specific sentinels come first
var registry = []errorInfo{
	{ErrOriginRejected, "ORIGIN_REJECTED", http.StatusForbidden},
	{ErrFrontendRejected, "FRONTEND_REJECTED", http.StatusForbidden},
	{ErrTokenMissing, "TOKEN_MISSING", http.StatusUnauthorized},
	{ErrTokenInvalid, "TOKEN_INVALID", http.StatusUnauthorized},
	{ErrFingerprintMismatch, "TOKEN_FINGERPRINT_MISMATCH", http.StatusUnauthorized},
	{ErrAPIKeyInvalid, "API_KEY_INVALID", http.StatusUnauthorized},
	{ErrUnauthenticated, "UNAUTHENTICATED", http.StatusUnauthorized},
	{ErrPermissionDenied, "PERMISSION_DENIED", http.StatusForbidden},
	{ErrNotOwner, "NOT_OWNER", http.StatusForbidden},
	{ErrOwnerUnresolvable, "OWNER_UNRESOLVABLE", http.StatusBadRequest},
	{ErrCSRFMissing, "CSRF_MISSING", http.StatusForbidden},
	{ErrCSRFInvalid, "CSRF_INVALID", http.StatusForbidden},
	{ErrCSRFOriginMismatch, "CSRF_ORIGIN_MISMATCH", http.StatusForbidden},
	{ErrRateLimited, "RATE_LIMIT_EXCEEDED", http.StatusTooManyRequests},
	{ErrRateStoreFailure, "RATE_LIMIT_UNAVAILABLE", http.StatusServiceUnavailable},
	{ErrRequestTimeout, "REQUEST_TIMEOUT", http.StatusRequestTimeout},
	{ErrNotFound, "NOT_FOUND", http.StatusNotFound},
	{ErrUnauthorized, "UNAUTHORIZED", http.StatusUnauthorized},
	{ErrForbidden, "FORBIDDEN", http.StatusForbidden},
	{ErrBadRequest, "BAD_REQUEST", http.StatusBadRequest},
	{ErrInternalServer, "INTERNAL_SERVER_ERROR", http.StatusInternalServerError},
}

// Code returns the machine readable code for err, or "" when err is not a
// known sentinel.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, info := range registry {
		if errors.Is(err, info.err) {
			return info.code
		}
	}
	return ""
}

// StatusOf maps err to an HTTP status. Unknown errors are 500.
func StatusOf(err error) int {
	for _, info := range registry {
		if errors.Is(err, info.err) {
			return info.status
		}
	}
	return http.StatusInternalServerError
}

// Custom error type with context
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Wrap attaches a client-facing message to a sentinel.
func Wrap(sentinel error, msg string) *AppError {
	return &AppError{Code: Code(sentinel), Message: msg, Err: sentinel}
}

func Unauthorized(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: msg, Err: ErrUnauthorized}
}

func InternalServer(msg string, err error) *AppError {
	return &AppError{Code: "INTERNAL_SERVER_ERROR", Message: msg, Err: err}
}
