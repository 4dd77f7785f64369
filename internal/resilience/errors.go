// Package resilience provides bounded retry with exponential backoff,
// credential failover, and circuit breaking for external source calls.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// Code is a stable error identifier surfaced across component boundaries.
type Code string

const (
	CodeAuthError      Code = "AUTH_ERROR"
	CodeRateLimit      Code = "RATE_LIMIT"
	CodeNetworkError   Code = "NETWORK_ERROR"
	CodeNoData         Code = "NO_DATA"
	CodeNonRecoverable Code = "NON_RECOVERABLE"
	CodeSystemFailure  Code = "SYSTEM_FAILURE"
)

// Error carries a Code alongside the underlying cause.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// WithCode wraps err with a stable error code.
func WithCode(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

// CodeOf extracts the Code from an error chain. Uncoded errors that match
// network-level transient patterns are reported as NETWORK_ERROR; everything
// else is NON_RECOVERABLE.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	if isNetworkTransient(err) {
		return CodeNetworkError
	}
	return CodeNonRecoverable
}

// Recoverable reports whether the retry loop may attempt the call again.
// Auth errors are recoverable only when a backup credential set exists.
func Recoverable(err error, hasBackup bool) bool {
	switch CodeOf(err) {
	case CodeNetworkError, CodeRateLimit, CodeNoData:
		return true
	case CodeAuthError:
		return hasBackup
	default:
		return false
	}
}

// isNetworkTransient matches network timeouts, connection resets and DNS
// failures that HTTP clients surface without a typed code.
func isNetworkTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// TransientHTTPStatus reports whether an HTTP status is safe to retry.
func TransientHTTPStatus(status int) bool {
	switch status {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
