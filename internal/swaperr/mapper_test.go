package swaperr

import (
	"context"
	"errors"
	"net"
	"net/http"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromNetwork(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode Code
		wantOK   bool
	}{
		{
			name:     "context deadline",
			err:      context.DeadlineExceeded,
			wantCode: CodeTimeout,
			wantOK:   true,
		},
		{
			name:     "dns failure",
			err:      &net.DNSError{Err: "no such host", Name: "api.example.com"},
			wantCode: CodeRPCError,
			wantOK:   true,
		},
		{
			name:     "connection refused",
			err:      syscall.ECONNREFUSED,
			wantCode: CodeRPCError,
			wantOK:   true,
		},
		{
			name:     "connection reset",
			err:      syscall.ECONNRESET,
			wantCode: CodeRPCError,
			wantOK:   true,
		},
		{
			name:     "textual timeout signature",
			err:      errors.New("read tcp 10.0.0.1:443: i/o timeout"),
			wantCode: CodeTimeout,
			wantOK:   true,
		},
		{
			name:     "textual refused signature",
			err:      errors.New("dial tcp: connection refused"),
			wantCode: CodeRPCError,
			wantOK:   true,
		},
		{
			name:   "not a network error",
			err:    errors.New("json: cannot unmarshal"),
			wantOK: false,
		},
		{
			name:   "nil error",
			err:    nil,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped, ok := FromNetwork("uniswap", tt.err)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				require.NotNil(t, mapped)
				assert.Equal(t, tt.wantCode, mapped.Code)
				assert.Equal(t, "uniswap", mapped.Details["provider"])
			}
		})
	}
}

func TestFromHTTP_VendorCodePrecedence(t *testing.T) {
	// A recognized vendor code wins over the HTTP status.
	err := FromHTTP("thirdweb", http.StatusBadRequest, "NO_ROUTE_FOUND", "no route", "corr-123")
	assert.Equal(t, CodeNoRouteFound, err.Code)
	assert.Equal(t, "corr-123", err.Details["correlationId"])
	assert.Equal(t, http.StatusBadRequest, err.Details["httpStatus"])

	// Vendor code matching is case-insensitive.
	err = FromHTTP("thirdweb", http.StatusOK, "approval_required", "", "")
	assert.Equal(t, CodeApprovalRequired, err.Code)

	// Aliased vendor identifiers collapse to the same code.
	err = FromHTTP("uniswap", http.StatusBadRequest, "ALLOWANCE_REQUIRED", "", "")
	assert.Equal(t, CodeApprovalRequired, err.Code)
}

func TestFromHTTP_StatusFallback(t *testing.T) {
	tests := []struct {
		status   int
		wantCode Code
	}{
		{http.StatusUnauthorized, CodeUnauthorized},
		{http.StatusForbidden, CodeForbidden},
		{http.StatusNotFound, CodeNoRouteFound},
		{http.StatusRequestTimeout, CodeTimeout},
		{http.StatusGatewayTimeout, CodeTimeout},
		{http.StatusUnprocessableEntity, CodeSlippageTooHigh},
		{http.StatusTooManyRequests, CodeRateLimitExceeded},
		{http.StatusServiceUnavailable, CodeServiceUnavailable},
		{http.StatusBadGateway, CodeProviderError},
		{http.StatusInternalServerError, CodeProviderError},
		{http.StatusConflict, CodeInvalidParams},
	}

	for _, tt := range tests {
		err := FromHTTP("p", tt.status, "", "", "")
		assert.Equal(t, tt.wantCode, err.Code, "status %d", tt.status)
	}
}

func TestFromHTTP_EmptyMessageUsesStatusText(t *testing.T) {
	err := FromHTTP("p", http.StatusServiceUnavailable, "", "", "")
	assert.Equal(t, http.StatusText(http.StatusServiceUnavailable), err.Message)
}

func TestNormalize(t *testing.T) {
	typed := New(CodeInsufficientLiquidity, "thin pool")
	assert.Same(t, typed, Normalize("uniswap", typed), "typed errors pass through unchanged")

	mapped := Normalize("uniswap", context.DeadlineExceeded)
	assert.Equal(t, CodeTimeout, mapped.Code)

	fallback := Normalize("uniswap", errors.New("weird failure"))
	assert.Equal(t, CodeProviderError, fallback.Code)
	assert.Equal(t, "uniswap", fallback.Details["provider"])
}
