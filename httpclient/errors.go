package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies a failed request.
type ErrorCode int

const (
	ErrCodeTimeout ErrorCode = iota
	ErrCodeConnection
	ErrCodeAuth
	ErrCodeNotFound
	ErrCodeRateLimit
	ErrCodeValidation
	ErrCodeServer
)

var codeNames = map[ErrorCode]string{
	ErrCodeTimeout:    "timeout",
	ErrCodeConnection: "connection",
	ErrCodeAuth:       "auth",
	ErrCodeNotFound:   "not_found",
	ErrCodeRateLimit:  "rate_limit",
	ErrCodeValidation: "validation",
	ErrCodeServer:     "server",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "unknown"
}

// Error is a classified transport or status failure.
type Error struct {
	// StatusCode is 0 for connection-level failures.
	StatusCode int
	Code       ErrorCode
	Message    string
	Retryable  bool
	Body       []byte
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("httpclient: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("httpclient: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewTimeoutError wraps a deadline or client timeout.
func NewTimeoutError(err error) *Error {
	return &Error{Code: ErrCodeTimeout, Message: err.Error(), Retryable: true, Err: err}
}

// NewConnectionError wraps a dial, DNS or read failure.
func NewConnectionError(err error) *Error {
	return &Error{Code: ErrCodeConnection, Message: err.Error(), Retryable: true, Err: err}
}

// NewValidationError reports a request that could not be built.
func NewValidationError(msg string) *Error {
	return &Error{Code: ErrCodeValidation, Message: msg}
}

// ClassifyStatusCode returns nil for 2xx and a typed *Error otherwise.
// 408, 429 and 5xx are retryable.
func ClassifyStatusCode(status int, body []byte) *Error {
	if status >= 200 && status < 300 {
		return nil
	}
	e := &Error{StatusCode: status, Message: statusMessage(status, body), Body: body}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Code = ErrCodeAuth
	case status == http.StatusNotFound:
		e.Code = ErrCodeNotFound
	case status == http.StatusTooManyRequests:
		e.Code, e.Retryable = ErrCodeRateLimit, true
	case status == http.StatusRequestTimeout:
		e.Code, e.Retryable = ErrCodeTimeout, true
	case status >= 400 && status < 500:
		e.Code = ErrCodeValidation
	case status >= 500:
		e.Code, e.Retryable = ErrCodeServer, true
	default:
		e.Code = ErrCodeServer
	}
	return e
}

// statusMessage keeps a short prefix of the body, which is where LLM APIs put
// the reason for a rejection.
func statusMessage(status int, body []byte) string {
	const maxBody = 200
	msg := fmt.Sprintf("HTTP %d", status)
	if len(body) == 0 {
		return msg
	}
	snippet := string(body)
	if len(snippet) > maxBody {
		snippet = snippet[:maxBody] + "..."
	}
	return msg + ": " + snippet
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

func IsTimeout(err error) bool    { return hasCode(err, ErrCodeTimeout) }
func IsConnection(err error) bool { return hasCode(err, ErrCodeConnection) }
func IsAuth(err error) bool       { return hasCode(err, ErrCodeAuth) }
func IsNotFound(err error) bool   { return hasCode(err, ErrCodeNotFound) }
func IsRateLimit(err error) bool  { return hasCode(err, ErrCodeRateLimit) }

// IsRetryable reports whether err is an *Error marked retryable.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}
