package httpclient

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorCode_String(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{ErrCodeTimeout, "timeout"},
		{ErrCodeConnection, "connection"},
		{ErrCodeAuth, "auth"},
		{ErrCodeNotFound, "not_found"},
		{ErrCodeRateLimit, "rate_limit"},
		{ErrCodeValidation, "validation"},
		{ErrCodeServer, "server"},
		{ErrorCode(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.code.String(); got != tt.want {
			t.Errorf("ErrorCode(%d).String() = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestError_Error(t *testing.T) {
	e := &Error{StatusCode: 404, Code: ErrCodeNotFound, Message: "HTTP 404"}
	if got := e.Error(); got != "httpclient: not_found (HTTP 404): HTTP 404" {
		t.Errorf("unexpected message %q", got)
	}
	e2 := &Error{Code: ErrCodeConnection, Message: "connection refused"}
	if got := e2.Error(); got != "httpclient: connection: connection refused" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestClassifyStatusCode(t *testing.T) {
	tests := []struct {
		status    int
		code      ErrorCode
		retryable bool
	}{
		{401, ErrCodeAuth, false},
		{403, ErrCodeAuth, false},
		{404, ErrCodeNotFound, false},
		{408, ErrCodeTimeout, true},
		{422, ErrCodeValidation, false},
		{429, ErrCodeRateLimit, true},
		{500, ErrCodeServer, true},
		{529, ErrCodeServer, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			e := ClassifyStatusCode(tt.status, nil)
			if e == nil {
				t.Fatal("expected error")
			}
			if e.Code != tt.code || e.Retryable != tt.retryable {
				t.Errorf("got code=%s retryable=%v, want code=%s retryable=%v", e.Code, e.Retryable, tt.code, tt.retryable)
			}
		})
	}
	if ClassifyStatusCode(204, nil) != nil {
		t.Error("2xx must not be an error")
	}
}

func TestClassifyStatusCode_BodySnippet(t *testing.T) {
	e := ClassifyStatusCode(400, []byte(`{"error":"bad model"}`))
	if !strings.Contains(e.Message, "bad model") {
		t.Errorf("expected body in message, got %q", e.Message)
	}
	long := ClassifyStatusCode(400, []byte(strings.Repeat("x", 500)))
	if !strings.HasSuffix(long.Message, "...") {
		t.Errorf("expected truncated message, got %d bytes", len(long.Message))
	}
}

func TestPredicates(t *testing.T) {
	wrapped := fmt.Errorf("fetch: %w", ClassifyStatusCode(404, nil))
	if !IsNotFound(wrapped) {
		t.Error("IsNotFound should see through wrapping")
	}
	if IsRetryable(wrapped) {
		t.Error("404 must not be retryable")
	}
	if !IsRateLimit(ClassifyStatusCode(429, nil)) || !IsAuth(ClassifyStatusCode(401, nil)) {
		t.Error("predicate mismatch")
	}
	timeout := NewTimeoutError(errors.New("deadline"))
	if !IsTimeout(timeout) || !IsRetryable(timeout) {
		t.Error("timeouts are retryable")
	}
	if !IsConnection(NewConnectionError(errors.New("refused"))) {
		t.Error("expected connection error")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain errors are not retryable")
	}
}
