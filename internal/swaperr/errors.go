// Package swaperr defines the closed error taxonomy for the swap routing
// engine. Raw vendor and network failures are normalized into these typed
// errors at the provider-adapter boundary and propagated unchanged upward.
package swaperr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Code identifies one failure mode in the closed taxonomy.
type Code string

// Validation errors: the request shape itself is wrong.
const (
	CodeMissingParams   Code = "MISSING_PARAMS"
	CodeInvalidParams   Code = "INVALID_PARAMS"
	CodeInvalidAmount   Code = "INVALID_AMOUNT"
	CodeInvalidChain    Code = "INVALID_CHAIN"
	CodeInvalidSlippage Code = "INVALID_SLIPPAGE"
)

// Routing errors: no provider can serve the requested route.
const (
	CodeNoRouteFound          Code = "NO_ROUTE_FOUND"
	CodeInsufficientLiquidity Code = "INSUFFICIENT_LIQUIDITY"
	CodeUnsupportedChain      Code = "UNSUPPORTED_CHAIN"
	CodeUnsupportedToken      Code = "UNSUPPORTED_TOKEN"
)

// Execution errors: the route exists but this trade cannot proceed as given.
const (
	CodePriceImpactTooHigh  Code = "PRICE_IMPACT_TOO_HIGH"
	CodeSlippageTooHigh     Code = "SLIPPAGE_TOO_HIGH"
	CodeApprovalRequired    Code = "APPROVAL_REQUIRED"
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"
)

// Rate limiting errors.
const (
	CodeRateLimitExceeded Code = "RATE_LIMIT_EXCEEDED"
	CodeQuotaExceeded     Code = "QUOTA_EXCEEDED"
)

// Infrastructure errors.
const (
	CodeProviderError    Code = "PROVIDER_ERROR"
	CodeRPCError         Code = "RPC_ERROR"
	CodeTimeout          Code = "TIMEOUT"
	CodeCacheError       Code = "CACHE_ERROR"
	CodeDatabaseError    Code = "DATABASE_ERROR"
	CodeInvalidGasParams Code = "INVALID_GAS_PARAMS"

	// CodeRequestCancelled marks a caller abort. Unlike a deadline it is
	// never retryable: the caller has already given up on the request.
	CodeRequestCancelled Code = "REQUEST_CANCELLED"
)

// Access errors.
const (
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
)

// Availability errors.
const (
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
	CodeMaintenance        Code = "MAINTENANCE"
)

// CodeUnknown is the fallback for failures the taxonomy cannot classify.
const CodeUnknown Code = "UNKNOWN_ERROR"

// Category groups codes by failure class.
type Category string

const (
	CategoryValidation     Category = "validation"
	CategoryRouting        Category = "routing"
	CategoryExecution      Category = "execution"
	CategoryRateLimit      Category = "rate_limit"
	CategoryInfrastructure Category = "infrastructure"
	CategoryAccess         Category = "access"
	CategoryAvailability   Category = "availability"
	CategoryUnknown        Category = "unknown"
)

var categories = map[Code]Category{
	CodeMissingParams:   CategoryValidation,
	CodeInvalidParams:   CategoryValidation,
	CodeInvalidAmount:   CategoryValidation,
	CodeInvalidChain:    CategoryValidation,
	CodeInvalidSlippage: CategoryValidation,

	CodeNoRouteFound:          CategoryRouting,
	CodeInsufficientLiquidity: CategoryRouting,
	CodeUnsupportedChain:      CategoryRouting,
	CodeUnsupportedToken:      CategoryRouting,

	CodePriceImpactTooHigh:  CategoryExecution,
	CodeSlippageTooHigh:     CategoryExecution,
	CodeApprovalRequired:    CategoryExecution,
	CodeInsufficientBalance: CategoryExecution,

	CodeRateLimitExceeded: CategoryRateLimit,
	CodeQuotaExceeded:     CategoryRateLimit,

	CodeProviderError:    CategoryInfrastructure,
	CodeRPCError:         CategoryInfrastructure,
	CodeTimeout:          CategoryInfrastructure,
	CodeCacheError:       CategoryInfrastructure,
	CodeDatabaseError:    CategoryInfrastructure,
	CodeInvalidGasParams: CategoryInfrastructure,
	CodeRequestCancelled: CategoryInfrastructure,

	CodeUnauthorized: CategoryAccess,
	CodeForbidden:    CategoryAccess,

	CodeServiceUnavailable: CategoryAvailability,
	CodeMaintenance:        CategoryAvailability,
}

// retryable lists the only codes for which the same request shape may succeed
// if simply tried again.
var retryable = map[Code]bool{
	CodeTimeout:           true,
	CodeRPCError:          true,
	CodeProviderError:     true,
	CodeRateLimitExceeded: true,
	CodeQuotaExceeded:     true,
}

// Error is the typed error carried through the engine. It is created at the
// point of failure and propagated unchanged to the caller.
type Error struct {
	Code    Code                   `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`

	cause error
}

// New creates a typed error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Details: map[string]interface{}{},
	}
}

// Newf creates a typed error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap creates a typed error that records the underlying cause. The raw cause
// is kept for logging and unwrapping but is not surfaced in Details.
func Wrap(code Code, message string, cause error) *Error {
	e := New(code, message)
	e.cause = cause
	return e
}

// WithDetail attaches one structured detail entry and returns the error for
// chaining at the creation site.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = map[string]interface{}{}
	}
	e.Details[key] = value
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

// Category returns the failure class the code belongs to.
func (e *Error) Category() Category {
	if c, ok := categories[e.Code]; ok {
		return c
	}
	return CategoryUnknown
}

// HTTPStatus derives the HTTP-class severity for the error.
func (e *Error) HTTPStatus() int {
	switch e.Category() {
	case CategoryValidation:
		return http.StatusBadRequest
	case CategoryRouting:
		return http.StatusNotFound
	case CategoryExecution:
		return http.StatusUnprocessableEntity
	case CategoryRateLimit:
		return http.StatusTooManyRequests
	case CategoryAccess:
		if e.Code == CodeForbidden {
			return http.StatusForbidden
		}
		return http.StatusUnauthorized
	case CategoryInfrastructure, CategoryAvailability:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IsRetryable reports whether retrying the same request may succeed.
func (e *Error) IsRetryable() bool {
	return retryable[e.Code]
}

// RetryAfter returns the suggested retry delay when one was recorded
// (rate-limit responses carry this).
func (e *Error) RetryAfter() (time.Duration, bool) {
	v, ok := e.Details["retryAfterSeconds"]
	if !ok {
		return 0, false
	}
	switch s := v.(type) {
	case int:
		return time.Duration(s) * time.Second, true
	case int64:
		return time.Duration(s) * time.Second, true
	case float64:
		return time.Duration(s * float64(time.Second)), true
	}
	return 0, false
}

// As extracts a typed error from an error chain, or nil.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// IsRetryable reports whether an arbitrary error chain carries a retryable
// typed error. Untyped errors are not retryable.
func IsRetryable(err error) bool {
	if e := As(err); e != nil {
		return e.IsRetryable()
	}
	return false
}
