package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/swap-router/internal/model"
	"github.com/yourorg/swap-router/internal/registry"
	"github.com/yourorg/swap-router/internal/swaperr"
)

// ThirdwebConfig configures the cross-chain bridge aggregator adapter.
type ThirdwebConfig struct {
	Name    string
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// ThirdwebClient adapts the cross-chain bridge aggregation API to the
// capability contract. Unlike the same-chain adapters it may return
// multi-chain transaction bundles; the sanitizer strips the legs the
// non-custodial execution model cannot submit.
type ThirdwebClient struct {
	cfg        ThirdwebConfig
	httpClient *http.Client
	tokens     *registry.Registry
}

// NewThirdwebClient creates a cross-chain bridge aggregator adapter.
func NewThirdwebClient(cfg ThirdwebConfig, tokens *registry.Registry) *ThirdwebClient {
	if cfg.Name == "" {
		cfg.Name = "thirdweb"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &ThirdwebClient{
		cfg:        cfg,
		httpClient: newRetryClient(cfg.Timeout),
		tokens:     tokens,
	}
}

func (c *ThirdwebClient) Name() string { return c.cfg.Name }

// SupportsRoute accepts any route whose tokens resolve for this provider on
// their respective chains, same-chain or cross-chain.
func (c *ThirdwebClient) SupportsRoute(ctx context.Context, route model.RouteParams) bool {
	if _, err := c.tokens.Resolve(c.cfg.Name, route.FromChainID, route.FromToken); err != nil {
		return false
	}
	if _, err := c.tokens.Resolve(c.cfg.Name, route.ToChainID, route.ToToken); err != nil {
		return false
	}
	return true
}

type thirdwebQuoteResponse struct {
	DestinationAmount string  `json:"destinationAmount"`
	BridgeFee         string  `json:"bridgeFee"`
	GasFee            string  `json:"gasFee"`
	Rate              float64 `json:"rate"`
	EstimatedDuration int64   `json:"estimatedDurationSeconds"`
	ExpiresAt         string  `json:"expiresAt"`
}

// GetQuote requests a bridge quote for the swap.
func (c *ThirdwebClient) GetQuote(ctx context.Context, req *model.SwapRequest) (*model.SwapQuote, error) {
	payload, err := c.payload(req, false)
	if err != nil {
		return nil, err
	}

	var resp thirdwebQuoteResponse
	if err := postJSON(ctx, c.httpClient, c.cfg.Name, c.cfg.BaseURL+"/v1/bridge/quote", c.cfg.APIKey, payload, &resp); err != nil {
		return nil, err
	}

	amountOut, err := parseAmount(c.cfg.Name, "destinationAmount", resp.DestinationAmount)
	if err != nil {
		return nil, err
	}
	bridgeFee, err := parseAmount(c.cfg.Name, "bridgeFee", orZero(resp.BridgeFee))
	if err != nil {
		return nil, err
	}
	gasFee, err := parseAmount(c.cfg.Name, "gasFee", orZero(resp.GasFee))
	if err != nil {
		return nil, err
	}

	quote := &model.SwapQuote{
		EstimatedReceiveAmount: amountOut,
		BridgeFee:              bridgeFee,
		GasFee:                 gasFee,
		ExchangeRate:           resp.Rate,
		EstimatedDuration:      resp.EstimatedDuration,
	}
	if resp.ExpiresAt != "" {
		if expires, err := time.Parse(time.RFC3339, resp.ExpiresAt); err == nil {
			quote.ExpiresAt = &expires
		}
	}
	return quote, nil
}

type thirdwebPrepareResponse struct {
	IntentID  string `json:"intentId"`
	ExpiresAt string `json:"expiresAt"`
	Steps     []struct {
		ChainID  uint64 `json:"chainId"`
		To       string `json:"to"`
		Data     string `json:"data"`
		Value    string `json:"value"`
		GasLimit uint64 `json:"gasLimit"`
		Label    string `json:"label"`
	} `json:"steps"`
}

// PrepareSwap builds the bridge transaction bundle after fetching a fresh
// quote. Steps keep their declared target chain; filtering destination-chain
// legs is the caller's concern.
func (c *ThirdwebClient) PrepareSwap(ctx context.Context, req *model.SwapRequest) (*model.PreparedSwap, error) {
	quote, err := c.GetQuote(ctx, req)
	if err != nil {
		return nil, err
	}

	payload, err := c.payload(req, true)
	if err != nil {
		return nil, err
	}

	var resp thirdwebPrepareResponse
	if err := postJSON(ctx, c.httpClient, c.cfg.Name, c.cfg.BaseURL+"/v1/bridge/prepare", c.cfg.APIKey, payload, &resp); err != nil {
		return nil, err
	}
	if len(resp.Steps) == 0 {
		return nil, swaperr.Newf(swaperr.CodeProviderError, "%s returned no transaction steps", c.cfg.Name).
			WithDetail("provider", c.cfg.Name)
	}

	prepared := &model.PreparedSwap{
		Provider:          c.cfg.Name,
		EstimatedDuration: quote.EstimatedDuration,
		Metadata:          map[string]interface{}{"intentId": resp.IntentID},
	}
	if resp.ExpiresAt != "" {
		if expires, err := time.Parse(time.RFC3339, resp.ExpiresAt); err == nil {
			prepared.ExpiresAt = &expires
		}
	}

	for _, step := range resp.Steps {
		tx, err := decodeStep(c.cfg.Name, step.ChainID, step.To, step.Data, step.Value, step.GasLimit, step.Label)
		if err != nil {
			return nil, err
		}
		prepared.Transactions = append(prepared.Transactions, tx)
	}

	logrus.WithFields(logrus.Fields{
		"provider": c.cfg.Name,
		"steps":    len(prepared.Transactions),
	}).Debug("Prepared cross-chain swap")
	return prepared, nil
}

type thirdwebStatusResponse struct {
	Status string `json:"status"`
}

// MonitorTransaction reports the bridge status of a submitted transaction.
func (c *ThirdwebClient) MonitorTransaction(ctx context.Context, txHash string, chainID uint64) (model.TxStatus, error) {
	url := fmt.Sprintf("%s/v1/bridge/status?txHash=%s&chainId=%d", c.cfg.BaseURL, txHash, chainID)
	var resp thirdwebStatusResponse
	if err := getJSON(ctx, c.httpClient, c.cfg.Name, url, c.cfg.APIKey, &resp); err != nil {
		return model.TxStatusPending, err
	}
	return mapStatus(resp.Status), nil
}

func (c *ThirdwebClient) payload(req *model.SwapRequest, withAddresses bool) (map[string]interface{}, error) {
	tokenIn, err := c.tokens.Resolve(c.cfg.Name, req.FromChainID, req.FromToken)
	if err != nil {
		return nil, err
	}
	tokenOut, err := c.tokens.Resolve(c.cfg.Name, req.ToChainID, req.ToToken)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"originChainId":      req.FromChainID,
		"destinationChainId": req.ToChainID,
		"originToken":        tokenIn.Address,
		"destinationToken":   tokenOut.Address,
		"amount":             req.Amount.String(),
	}
	if withAddresses {
		payload["sender"] = req.Sender
		payload["receiver"] = req.Receiver
	}
	return payload, nil
}
