package marketdata

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType categorizes a stream error for retry handling.
type ErrorType int

// Error type constants order errors from least to most severe.
const (
	// ErrorTypeTransient indicates an error that does not affect the
	// connection; recovery is driven by the socket's own close events.
	ErrorTypeTransient ErrorType = iota
	// ErrorTypeRateLimit indicates the server is throttling the client.
	ErrorTypeRateLimit
	// ErrorTypeAuth indicates invalid or rejected credentials. Auth errors
	// are terminal: no reconnect is attempted until a fresh connect.
	ErrorTypeAuth
)

// String returns the string representation of the error type.
func (t ErrorType) String() string {
	return [...]string{
		"transient",
		"rate_limited",
		"auth_failure",
	}[t]
}

// Sentinel errors for common failure conditions.
var (
	// ErrNoCredentials is returned when connect is called without a
	// complete key pair.
	ErrNoCredentials = errors.New("no credentials configured")
	// ErrUnknownFeed is returned for a feed outside the known variants.
	ErrUnknownFeed = errors.New("unknown feed")
)

// StreamError is a control error frame received from the feed, classified
// by severity.
type StreamError struct {
	// Type is the severity classification.
	Type ErrorType `json:"type"`
	// Code is the feed's numeric error code.
	Code int `json:"code"`
	// Msg is the feed's human-readable error text.
	Msg string `json:"msg"`
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	return fmt.Sprintf("stream %s (%d): %s", e.Type, e.Code, e.Msg)
}

// Detail returns the tagged form surfaced to status observers, e.g.
// "rate_limited:429:too many requests".
func (e *StreamError) Detail() string {
	return fmt.Sprintf("%s:%d:%s", e.Type, e.Code, e.Msg)
}

// NewStreamError builds a StreamError from a control error frame,
// classifying it by code and message text.
func NewStreamError(code int, msg string) *StreamError {
	return &StreamError{
		Type: Classify(code, msg),
		Code: code,
		Msg:  msg,
	}
}

// Classify assigns a severity to a feed error. Auth failures match codes
// 401/403 or auth-related message text; rate limiting matches 429 or
// throttle-related text; everything else is transient.
func Classify(code int, msg string) ErrorType {
	lower := strings.ToLower(msg)

	switch {
	case code == 401 || code == 403:
		return ErrorTypeAuth
	case strings.Contains(lower, "auth") || strings.Contains(lower, "unauthorized"):
		return ErrorTypeAuth
	case code == 429:
		return ErrorTypeRateLimit
	case strings.Contains(lower, "too many requests") || strings.Contains(lower, "rate limit"):
		return ErrorTypeRateLimit
	}
	return ErrorTypeTransient
}

// IsAuthError returns true if the error is a terminal authentication
// failure.
func IsAuthError(err error) bool {
	var e *StreamError
	if errors.As(err, &e) {
		return e.Type == ErrorTypeAuth
	}
	return false
}

// IsRateLimitError returns true if the error is a rate limit violation.
func IsRateLimitError(err error) bool {
	var e *StreamError
	if errors.As(err, &e) {
		return e.Type == ErrorTypeRateLimit
	}
	return false
}

// IsTransientError returns true for errors that do not affect connection
// state.
func IsTransientError(err error) bool {
	var e *StreamError
	if errors.As(err, &e) {
		return e.Type == ErrorTypeTransient
	}
	return false
}
