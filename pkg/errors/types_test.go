package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "error without cause",
			err: &Error{
				Code:    CodeBlankIssuer,
				Message: "auth: issuer cannot be blank",
			},
			want: "CLAIM_001: auth: issuer cannot be blank",
		},
		{
			name: "error with cause",
			err: &Error{
				Code:    CodeInvalidSignature,
				Message: "auth: invalid signature",
				Cause:   errors.New("crypto/rsa: verification error"),
			},
			want: "TOKEN_002: auth: invalid signature: crypto/rsa: verification error",
		},
		{
			name: "error with empty message",
			err: &Error{
				Code:    CodeInternal,
				Message: "",
			},
			want: "INT_001: ",
		},
		{
			name: "error with nested platform error cause",
			err: &Error{
				Code:    CodeInternal,
				Message: "operation failed",
				Cause: &Error{
					Code:    CodeTimeout,
					Message: "key server timeout",
				},
			},
			want: "INT_001: operation failed: TIMEOUT_001: key server timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	t.Parallel()
	cause := errors.New("underlying error")
	err := &Error{
		Code:    CodeKeyFetch,
		Message: "fetch failed",
		Cause:   cause,
	}

	assert.Equal(t, cause, err.Unwrap())
	assert.True(t, errors.Is(err, cause), "errors.Is should find the cause in the error chain")

	errNoCause := &Error{Code: CodeValidation, Message: "invalid input"}
	assert.Nil(t, errNoCause.Unwrap())
}

func TestError_Unwrap_ErrorsAs(t *testing.T) {
	t.Parallel()
	innerErr := &Error{Code: CodeTimeout, Message: "timeout"}
	outerErr := &Error{Code: CodeInternal, Message: "wrapper", Cause: innerErr}

	var target *Error
	require.True(t, errors.As(outerErr, &target), "errors.As should find *Error in chain")
	assert.Equal(t, CodeInternal, target.Code)
}

func TestError_HTTPStatus(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		code Code
		want int
	}{
		{"validation", CodeValidation, http.StatusBadRequest},
		{"validation required", CodeValidationRequired, http.StatusBadRequest},
		{"malformed token", CodeMalformedToken, http.StatusUnauthorized},
		{"missing authorization", CodeMissingAuthorization, http.StatusUnauthorized},
		{"path traversal", CodePathTraversal, http.StatusUnauthorized},
		{"token expired", CodeTokenExpired, http.StatusUnauthorized},
		{"key fetch", CodeKeyFetch, http.StatusBadGateway},
		{"key fetch status", CodeKeyFetchStatus, http.StatusBadGateway},
		{"config missing", CodeConfigMissing, http.StatusInternalServerError},
		{"generation", CodeTokenGeneration, http.StatusInternalServerError},
		{"internal", CodeInternal, http.StatusInternalServerError},
		{"internal cache", CodeInternalCache, http.StatusInternalServerError},
		{"unavailable", CodeUnavailable, http.StatusServiceUnavailable},
		{"timeout", CodeTimeout, http.StatusGatewayTimeout},
		{"timeout key fetch", CodeTimeoutKeyFetch, http.StatusGatewayTimeout},
		{"unknown", Code("UNKNOWN_001"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := &Error{Code: tt.code, Message: "test"}
			assert.Equal(t, tt.want, err.HTTPStatus())
		})
	}
}

func TestError_WithDetails(t *testing.T) {
	t.Parallel()
	original := New(CodeKeyFetchStatus, "fetch failed").WithDetail("url", "https://keys.test/a/public.pem")

	extended := original.WithDetails(map[string]any{"status_code": 404})

	assert.Equal(t, map[string]any{"url": "https://keys.test/a/public.pem"}, original.Details,
		"original details must not be mutated")
	assert.Equal(t, map[string]any{
		"url":         "https://keys.test/a/public.pem",
		"status_code": 404,
	}, extended.Details)
	assert.Equal(t, original.Code, extended.Code)
	assert.Equal(t, original.Message, extended.Message)
}

func TestError_WithDetail_Overrides(t *testing.T) {
	t.Parallel()
	err := New(CodeKeyFetch, "x").WithDetail("url", "a").WithDetail("url", "b")
	assert.Equal(t, "b", err.Details["url"])
}
