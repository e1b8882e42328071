package main

import (
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/swap-router/internal/swaperr"
)

var (
	metricsOnce sync.Once
	testMetrics *serverMetrics
)

// sharedMetrics registers the Prometheus collectors once for the whole test
// binary; MustRegister rejects duplicate registration.
func sharedMetrics() *serverMetrics {
	metricsOnce.Do(func() {
		testMetrics = registerMetrics()
	})
	return testMetrics
}

func TestErrorResponse_ProviderErrorMetricLabels(t *testing.T) {
	s := &Server{metrics: sharedMetrics()}

	rec := httptest.NewRecorder()
	err := swaperr.New(swaperr.CodeTimeout, "slow backend").WithDetail("provider", "thirdweb")
	s.errorResponse(rec, "quote", err)

	assert.Equal(t, float64(1),
		testutil.ToFloat64(s.metrics.providerErrors.WithLabelValues("thirdweb", "TIMEOUT")),
		"the failing provider is taken from the error detail")
	assert.Equal(t, float64(0),
		testutil.ToFloat64(s.metrics.providerErrors.WithLabelValues("quote", "TIMEOUT")),
		"the endpoint name is never used as the provider label")
}

func TestErrorResponse_AttributesPreSelectionFailuresToRouter(t *testing.T) {
	s := &Server{metrics: sharedMetrics()}

	rec := httptest.NewRecorder()
	s.errorResponse(rec, "quote", swaperr.New(swaperr.CodeInvalidParams, "bad request"))

	assert.Equal(t, float64(1),
		testutil.ToFloat64(s.metrics.providerErrors.WithLabelValues("router", "INVALID_PARAMS")))
}

func TestErrorResponse_Body(t *testing.T) {
	s := &Server{metrics: sharedMetrics()}

	rec := httptest.NewRecorder()
	err := swaperr.New(swaperr.CodeRateLimitExceeded, "too many requests").
		WithDetail("retryAfterSeconds", 30)
	s.errorResponse(rec, "quote", err)

	assert.Equal(t, err.HTTPStatus(), rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))

	var body errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body.Code)
	assert.True(t, body.Retryable)
}
