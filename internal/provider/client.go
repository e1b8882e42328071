package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/yourorg/swap-router/internal/swaperr"
)

// newRetryClient creates an HTTP client with bounded retries for transient
// transport failures. Vendor-level errors are not retried here; retryability
// is decided by the error taxonomy upstream.
func newRetryClient(timeout time.Duration) *http.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 2
	c.RetryWaitMin = 250 * time.Millisecond
	c.RetryWaitMax = 2 * time.Second
	c.HTTPClient.Timeout = timeout
	c.Logger = nil
	return c.StandardClient()
}

// vendorError is the common error envelope of the swap APIs.
type vendorError struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId"`
}

// postJSON issues a JSON POST and decodes a successful response into out.
// Failures are normalized into the taxonomy: connection-level signatures
// first, then the vendor error envelope, then the bare HTTP status.
func postJSON(ctx context.Context, client *http.Client, provider, url, apiKey string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating %s request: %w", provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		if mapped, ok := swaperr.FromNetwork(provider, err); ok {
			return mapped
		}
		return swaperr.Wrap(swaperr.CodeProviderError, "request failed", err).
			WithDetail("provider", provider)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		var venv vendorError
		_ = json.Unmarshal(raw, &venv)
		return swaperr.FromHTTP(provider, resp.StatusCode, venv.Code, venv.Message, venv.CorrelationID)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return swaperr.Wrap(swaperr.CodeProviderError, "decoding response", err).
			WithDetail("provider", provider)
	}
	return nil
}

// getJSON issues a GET with the same normalization rules as postJSON.
func getJSON(ctx context.Context, client *http.Client, provider, url, apiKey string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating %s request: %w", provider, err)
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		if mapped, ok := swaperr.FromNetwork(provider, err); ok {
			return mapped
		}
		return swaperr.Wrap(swaperr.CodeProviderError, "request failed", err).
			WithDetail("provider", provider)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		var venv vendorError
		_ = json.Unmarshal(raw, &venv)
		return swaperr.FromHTTP(provider, resp.StatusCode, venv.Code, venv.Message, venv.CorrelationID)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return swaperr.Wrap(swaperr.CodeProviderError, "decoding response", err).
			WithDetail("provider", provider)
	}
	return nil
}
