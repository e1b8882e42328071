package swaperr

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// FromNetwork classifies connection-level failures: timeouts, refused or
// reset connections, DNS resolution. It reports ok=false when the error does
// not look like a network failure, in which case the caller should fall back
// to vendor-code or HTTP-status mapping.
func FromNetwork(provider string, err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(CodeTimeout, "provider call timed out", err).
			WithDetail("provider", provider), true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Wrap(CodeTimeout, "network timeout", err).
			WithDetail("provider", provider), true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return Wrap(CodeRPCError, "DNS resolution failed", err).
			WithDetail("provider", provider).
			WithDetail("host", dnsErr.Name), true
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return Wrap(CodeRPCError, "connection failure", err).
			WithDetail("provider", provider), true
	}

	// Some transports only surface the failure as text.
	msg := strings.ToLower(err.Error())
	for _, sig := range []string{"connection refused", "connection reset", "no such host", "i/o timeout", "broken pipe"} {
		if strings.Contains(msg, sig) {
			code := CodeRPCError
			if strings.Contains(sig, "timeout") {
				code = CodeTimeout
			}
			return Wrap(code, "connection failure", err).
				WithDetail("provider", provider), true
		}
	}

	return nil, false
}

// vendorCodes maps provider error identifiers onto the taxonomy. Adapters
// consult this before falling back to HTTP-status mapping.
var vendorCodes = map[string]Code{
	"NO_ROUTE_FOUND":         CodeNoRouteFound,
	"NO_ROUTES_FOUND":        CodeNoRouteFound,
	"INSUFFICIENT_LIQUIDITY": CodeInsufficientLiquidity,
	"UNSUPPORTED_CHAIN":      CodeUnsupportedChain,
	"UNSUPPORTED_TOKEN":      CodeUnsupportedToken,
	"PRICE_IMPACT_TOO_HIGH":  CodePriceImpactTooHigh,
	"SLIPPAGE_TOO_HIGH":      CodeSlippageTooHigh,
	"APPROVAL_REQUIRED":      CodeApprovalRequired,
	"ALLOWANCE_REQUIRED":     CodeApprovalRequired,
	"INSUFFICIENT_BALANCE":   CodeInsufficientBalance,
	"INSUFFICIENT_FUNDS":     CodeInsufficientBalance,
	"RATE_LIMITED":           CodeRateLimitExceeded,
	"QUOTA_EXCEEDED":         CodeQuotaExceeded,
	"MAINTENANCE":            CodeMaintenance,
	"INVALID_GAS_PARAMS":     CodeInvalidGasParams,
}

// FromHTTP maps an HTTP-level provider failure into the taxonomy. The vendor
// error code, when recognized, takes precedence over the status code. The
// correlation id, when present, is carried in the structured detail so the
// failure can be reproduced in a bug report.
func FromHTTP(provider string, status int, vendorCode, message, correlationID string) *Error {
	code, ok := vendorCodes[strings.ToUpper(vendorCode)]
	if !ok {
		code = codeForStatus(status)
	}

	if message == "" {
		message = http.StatusText(status)
	}

	e := New(code, message).
		WithDetail("provider", provider).
		WithDetail("httpStatus", status)
	if vendorCode != "" {
		e = e.WithDetail("vendorCode", vendorCode)
	}
	if correlationID != "" {
		e = e.WithDetail("correlationId", correlationID)
	}
	return e
}

func codeForStatus(status int) Code {
	switch {
	case status == http.StatusUnauthorized:
		return CodeUnauthorized
	case status == http.StatusForbidden:
		return CodeForbidden
	case status == http.StatusNotFound:
		return CodeNoRouteFound
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return CodeTimeout
	case status == http.StatusUnprocessableEntity:
		return CodeSlippageTooHigh
	case status == http.StatusTooManyRequests:
		return CodeRateLimitExceeded
	case status == http.StatusServiceUnavailable:
		return CodeServiceUnavailable
	case status >= 500:
		return CodeProviderError
	case status >= 400:
		return CodeInvalidParams
	default:
		return CodeUnknown
	}
}

// Normalize guarantees a typed error. Already-typed errors pass through
// unchanged; network failures are classified; anything else becomes a
// provider error attributed to the given provider.
func Normalize(provider string, err error) *Error {
	if e := As(err); e != nil {
		return e
	}
	if e, ok := FromNetwork(provider, err); ok {
		return e
	}
	return Wrap(CodeProviderError, "provider failure", err).
		WithDetail("provider", provider)
}
