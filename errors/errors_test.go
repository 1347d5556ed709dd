package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_New_Success(t *testing.T) {
	err := New(ErrCodeNotFound, "not found", http.StatusNotFound)
	if err.Code != ErrCodeNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeNotFound, err.Code)
	}
	if err.Message != "not found" {
		t.Errorf("expected message 'not found', got %q", err.Message)
	}
	if err.HTTPStatus != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, err.HTTPStatus)
	}
	if err.Retryable {
		t.Error("NOT_FOUND should not be retryable")
	}
}

func TestAppError_New_Retryable(t *testing.T) {
	err := New(ErrCodeUpstreamCall, "llm failed", http.StatusBadGateway)
	if !err.Retryable {
		t.Error("UPSTREAM_CALL_ERROR should be retryable")
	}
}

func TestAppError_NotFound_EmptyID(t *testing.T) {
	err := NotFound("run", "")
	if _, ok := err.Details["id"]; ok {
		t.Error("expected no 'id' key in details when id is empty")
	}
	if err.Details["resource"] != "run" {
		t.Errorf("expected resource=run, got %v", err.Details["resource"])
	}
}

func TestAppError_Configuration(t *testing.T) {
	err := Configuration("llm.api_key is required")
	if err.Code != ErrCodeConfiguration {
		t.Errorf("expected CONFIGURATION_ERROR, got %s", err.Code)
	}
	if err.Retryable {
		t.Error("configuration errors must not be retryable")
	}
}

func TestAppError_UpstreamCall_WrapsCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := UpstreamCall("llm", cause)
	if !stderrors.Is(err, cause) {
		t.Fatal("expected errors.Is to reach the cause")
	}
	if err.Details["service"] != "llm" {
		t.Errorf("expected service=llm, got %v", err.Details["service"])
	}
	if err.HTTPStatus != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", err.HTTPStatus)
	}
}

func TestAppError_PipelineDefinition(t *testing.T) {
	cause := fmt.Errorf("graph: step %q already registered", "a")
	err := PipelineDefinition(cause)
	if err.Message != cause.Error() {
		t.Errorf("expected message from cause, got %q", err.Message)
	}
	if !stderrors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
}

func TestHasCode(t *testing.T) {
	wrapped := fmt.Errorf("run: %w", Configuration("missing key"))
	if !HasCode(wrapped, ErrCodeConfiguration) {
		t.Error("expected HasCode to see through wrapping")
	}
	if HasCode(wrapped, ErrCodeNotFound) {
		t.Error("unexpected match for NOT_FOUND")
	}
	if HasCode(fmt.Errorf("plain"), ErrCodeConfiguration) {
		t.Error("plain error must not match")
	}
}

func TestAppError_WithDetail(t *testing.T) {
	err := Validation("bad").WithDetail("field", "subject")
	if err.Details["field"] != "subject" {
		t.Errorf("expected field=subject, got %v", err.Details["field"])
	}
}

func TestAppError_Error_Format(t *testing.T) {
	plain := InvalidInput("subject", "must not be empty")
	if got := plain.Error(); got != "INVALID_INPUT: Invalid input: must not be empty" {
		t.Errorf("unexpected format: %q", got)
	}
	withCause := Internal(fmt.Errorf("boom"))
	if got := withCause.Error(); got != "INTERNAL_ERROR: An unexpected error occurred. (cause: boom)" {
		t.Errorf("unexpected format: %q", got)
	}
}

func TestErrorCode_IsRetryableCode_Table(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want bool
	}{
		{ErrCodeUpstreamCall, true},
		{ErrCodeTimeout, true},
		{ErrCodeRateLimited, true},
		{ErrCodeConfiguration, false},
		{ErrCodePipelineDefinition, false},
		{ErrCodeNotFound, false},
		{ErrCodeInternal, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := IsRetryableCode(tt.code); got != tt.want {
				t.Errorf("IsRetryableCode(%s) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestAppError_ToResponse_Success(t *testing.T) {
	err := NotFound("workflow", "nope")
	resp := err.ToResponse()
	if resp.Error.Code != ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND, got %s", resp.Error.Code)
	}
	if resp.Error.Details["id"] != "nope" {
		t.Errorf("expected id=nope, got %v", resp.Error.Details["id"])
	}
}

func TestAsAppError(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Timeout("fetch"))
	appErr, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("expected AppError in chain")
	}
	if appErr.Code != ErrCodeTimeout {
		t.Errorf("expected TIMEOUT, got %s", appErr.Code)
	}
	if _, ok := AsAppError(fmt.Errorf("plain")); ok {
		t.Error("plain error must not convert")
	}
}
