package provider

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sirupsen/logrus"

	"github.com/yourorg/swap-router/internal/model"
	"github.com/yourorg/swap-router/internal/registry"
	"github.com/yourorg/swap-router/internal/swaperr"
)

// UniswapConfig configures one same-chain DEX aggregator adapter instance.
// Several concrete variants ("uniswap", "uniswap-trading-api") share this
// adapter under different names and endpoints.
type UniswapConfig struct {
	// Name is the concrete provider name this instance registers under
	Name string

	// RegistryName is the provider key used for token resolution
	RegistryName string

	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	SlippageBps int
}

// UniswapClient adapts a same-chain DEX aggregation API to the capability
// contract.
type UniswapClient struct {
	cfg        UniswapConfig
	httpClient *http.Client
	tokens     *registry.Registry
}

// NewUniswapClient creates a same-chain DEX aggregator adapter.
func NewUniswapClient(cfg UniswapConfig, tokens *registry.Registry) *UniswapClient {
	if cfg.RegistryName == "" {
		cfg.RegistryName = "uniswap"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.SlippageBps == 0 {
		cfg.SlippageBps = 50
	}
	return &UniswapClient{
		cfg:        cfg,
		httpClient: newRetryClient(cfg.Timeout),
		tokens:     tokens,
	}
}

func (c *UniswapClient) Name() string { return c.cfg.Name }

// SupportsRoute accepts same-chain routes whose tokens both resolve for this
// provider. Resolution failures mean "not supported", never an error.
func (c *UniswapClient) SupportsRoute(ctx context.Context, route model.RouteParams) bool {
	if !route.SameChain() {
		return false
	}
	if _, err := c.tokens.Resolve(c.cfg.RegistryName, route.FromChainID, route.FromToken); err != nil {
		return false
	}
	if _, err := c.tokens.Resolve(c.cfg.RegistryName, route.ToChainID, route.ToToken); err != nil {
		return false
	}
	return true
}

type uniswapQuoteResponse struct {
	AmountOut         string  `json:"amountOut"`
	Fee               string  `json:"fee"`
	GasFee            string  `json:"gasFee"`
	Rate              float64 `json:"rate"`
	EstimatedDuration int64   `json:"estimatedDurationSeconds"`
	ExpiresAt         string  `json:"expiresAt"`
}

// GetQuote requests a quote for the swap.
func (c *UniswapClient) GetQuote(ctx context.Context, req *model.SwapRequest) (*model.SwapQuote, error) {
	tokenIn, err := c.tokens.Resolve(c.cfg.RegistryName, req.FromChainID, req.FromToken)
	if err != nil {
		return nil, err
	}
	tokenOut, err := c.tokens.Resolve(c.cfg.RegistryName, req.ToChainID, req.ToToken)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"chainId":     req.FromChainID,
		"tokenIn":     tokenIn.Address,
		"tokenOut":    tokenOut.Address,
		"amountIn":    req.Amount.String(),
		"swapper":     req.Sender,
		"slippageBps": c.cfg.SlippageBps,
	}

	var resp uniswapQuoteResponse
	if err := postJSON(ctx, c.httpClient, c.cfg.Name, c.cfg.BaseURL+"/v1/quote", c.cfg.APIKey, payload, &resp); err != nil {
		return nil, err
	}
	return c.toQuote(resp)
}

func (c *UniswapClient) toQuote(resp uniswapQuoteResponse) (*model.SwapQuote, error) {
	amountOut, err := parseAmount(c.cfg.Name, "amountOut", resp.AmountOut)
	if err != nil {
		return nil, err
	}
	fee, err := parseAmount(c.cfg.Name, "fee", orZero(resp.Fee))
	if err != nil {
		return nil, err
	}
	gasFee, err := parseAmount(c.cfg.Name, "gasFee", orZero(resp.GasFee))
	if err != nil {
		return nil, err
	}

	quote := &model.SwapQuote{
		EstimatedReceiveAmount: amountOut,
		BridgeFee:              fee,
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

type uniswapSwapResponse struct {
	RequestID string `json:"requestId"`
	ExpiresAt string `json:"expiresAt"`
	Steps     []struct {
		To       string `json:"to"`
		Data     string `json:"data"`
		Value    string `json:"value"`
		GasLimit uint64 `json:"gasLimit"`
		Label    string `json:"label"`
	} `json:"steps"`
}

// PrepareSwap builds the unsigned transaction bundle. A fresh quote is
// fetched first; quote and swap amounts are not guaranteed consistent across
// separate calls, so the caller's earlier quote is never reused.
func (c *UniswapClient) PrepareSwap(ctx context.Context, req *model.SwapRequest) (*model.PreparedSwap, error) {
	quote, err := c.GetQuote(ctx, req)
	if err != nil {
		return nil, err
	}

	tokenIn, err := c.tokens.Resolve(c.cfg.RegistryName, req.FromChainID, req.FromToken)
	if err != nil {
		return nil, err
	}
	tokenOut, err := c.tokens.Resolve(c.cfg.RegistryName, req.ToChainID, req.ToToken)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"chainId":     req.FromChainID,
		"tokenIn":     tokenIn.Address,
		"tokenOut":    tokenOut.Address,
		"amountIn":    req.Amount.String(),
		"swapper":     req.Sender,
		"recipient":   req.Receiver,
		"slippageBps": c.cfg.SlippageBps,
	}

	var resp uniswapSwapResponse
	if err := postJSON(ctx, c.httpClient, c.cfg.Name, c.cfg.BaseURL+"/v1/swap", c.cfg.APIKey, payload, &resp); err != nil {
		// APPROVAL_REQUIRED comes back typed from the mapper; it is the one
		// blocker the caller can act on without changing the request.
		return nil, err
	}
	if len(resp.Steps) == 0 {
		return nil, swaperr.Newf(swaperr.CodeProviderError, "%s returned no transaction steps", c.cfg.Name).
			WithDetail("provider", c.cfg.Name)
	}

	prepared := &model.PreparedSwap{
		Provider:          c.cfg.Name,
		EstimatedDuration: quote.EstimatedDuration,
		Metadata:          map[string]interface{}{"requestId": resp.RequestID},
	}
	if resp.ExpiresAt != "" {
		if expires, err := time.Parse(time.RFC3339, resp.ExpiresAt); err == nil {
			prepared.ExpiresAt = &expires
		}
	}

	for _, step := range resp.Steps {
		tx, err := decodeStep(c.cfg.Name, req.FromChainID, step.To, step.Data, step.Value, step.GasLimit, step.Label)
		if err != nil {
			return nil, err
		}
		prepared.Transactions = append(prepared.Transactions, tx)
	}

	logrus.WithFields(logrus.Fields{
		"provider": c.cfg.Name,
		"steps":    len(prepared.Transactions),
	}).Debug("Prepared same-chain swap")
	return prepared, nil
}

type uniswapStatusResponse struct {
	Status string `json:"status"`
}

// MonitorTransaction reports the swap status for a submitted transaction.
func (c *UniswapClient) MonitorTransaction(ctx context.Context, txHash string, chainID uint64) (model.TxStatus, error) {
	url := fmt.Sprintf("%s/v1/swaps/%s?chainId=%d", c.cfg.BaseURL, txHash, chainID)
	var resp uniswapStatusResponse
	if err := getJSON(ctx, c.httpClient, c.cfg.Name, url, c.cfg.APIKey, &resp); err != nil {
		return model.TxStatusPending, err
	}
	return mapStatus(resp.Status), nil
}

// mapStatus collapses vendor status strings onto the three-state contract.
func mapStatus(status string) model.TxStatus {
	switch status {
	case "SUCCESS", "COMPLETED", "CONFIRMED":
		return model.TxStatusCompleted
	case "FAILED", "REVERTED", "EXPIRED":
		return model.TxStatusFailed
	default:
		return model.TxStatusPending
	}
}

func parseAmount(provider, field, raw string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, swaperr.Newf(swaperr.CodeProviderError, "%s returned unparseable %s: %q", provider, field, raw).
			WithDetail("provider", provider).
			WithDetail("field", field)
	}
	return amount, nil
}

func orZero(raw string) string {
	if raw == "" {
		return "0"
	}
	return raw
}

func decodeStep(provider string, chainID uint64, to, data, value string, gasLimit uint64, label string) (model.Transaction, error) {
	if !common.IsHexAddress(to) {
		return model.Transaction{}, swaperr.Newf(swaperr.CodeProviderError, "%s returned invalid step target %q", provider, to).
			WithDetail("provider", provider)
	}
	calldata, err := hexutil.Decode(data)
	if err != nil {
		return model.Transaction{}, swaperr.Wrap(swaperr.CodeProviderError, "invalid step calldata", err).
			WithDetail("provider", provider)
	}
	txValue, err := parseAmount(provider, "value", orZero(value))
	if err != nil {
		return model.Transaction{}, err
	}
	return model.Transaction{
		ChainID: chainID,
		To:      common.HexToAddress(to),
		Data:    calldata,
		Value:   txValue,
		Gas:     gasLimit,
		Label:   label,
	}, nil
}
