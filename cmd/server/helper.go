package main

import (
	"encoding/json"
	"math/big"
	"net/http"
	"strconv"

	"github.com/yourorg/swap-router/internal/model"
	"github.com/yourorg/swap-router/internal/swaperr"
)

// version is reported by the health and status endpoints
const version = "1.0.0"

// swapRequestBody is the wire form of a swap request. Amounts arrive as
// decimal strings so that values above 2^53 survive JSON round-trips.
type swapRequestBody struct {
	FromChainID uint64 `json:"fromChainId"`
	ToChainID   uint64 `json:"toChainId"`
	FromToken   string `json:"fromToken"`
	ToToken     string `json:"toToken"`
	Amount      string `json:"amount"`
	Sender      string `json:"sender"`
	Receiver    string `json:"receiver,omitempty"`
}

type quoteResponse struct {
	RequestID   string           `json:"requestId"`
	Provider    string           `json:"provider"`
	Quote       *model.SwapQuote `json:"quote"`
	ProtocolFee *big.Int         `json:"protocolFee,omitempty"`
}

type prepareResponse struct {
	RequestID string              `json:"requestId"`
	Prepared  *model.PreparedSwap `json:"prepared"`
}

type providerEntry struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Breaker   string `json:"breaker"`
}

type errorResponse struct {
	Code      string                 `json:"code"`
	Category  string                 `json:"category"`
	Message   string                 `json:"message"`
	Retryable bool                   `json:"retryable"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// decodeSwapRequest parses and validates the request body into the internal
// form. Receiver defaults to Sender when omitted.
func decodeSwapRequest(r *http.Request) (*model.SwapRequest, *swaperr.Error) {
	var body swapRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, swaperr.Wrap(swaperr.CodeInvalidParams, "invalid request body", err)
	}

	if body.FromToken == "" || body.ToToken == "" || body.Sender == "" {
		return nil, swaperr.New(swaperr.CodeMissingParams,
			"fromToken, toToken, and sender are required")
	}
	if body.FromChainID == 0 || body.ToChainID == 0 {
		return nil, swaperr.New(swaperr.CodeInvalidChain, "chain ids must be positive")
	}

	amount, ok := new(big.Int).SetString(body.Amount, 10)
	if !ok || amount.Sign() <= 0 {
		return nil, swaperr.Newf(swaperr.CodeInvalidAmount,
			"amount must be a positive decimal string, got %q", body.Amount)
	}

	receiver := body.Receiver
	if receiver == "" {
		receiver = body.Sender
	}

	req := &model.SwapRequest{
		FromChainID: body.FromChainID,
		ToChainID:   body.ToChainID,
		FromToken:   body.FromToken,
		ToToken:     body.ToToken,
		Amount:      amount,
		Sender:      body.Sender,
		Receiver:    receiver,
	}
	if err := req.Validate(); err != nil {
		return nil, swaperr.Wrap(swaperr.CodeInvalidParams, "invalid swap request", err)
	}
	return req, nil
}

// parseChainID parses the chainId query parameter.
func parseChainID(raw string) (uint64, *swaperr.Error) {
	if raw == "" {
		return 0, swaperr.New(swaperr.CodeMissingParams, "chainId query parameter is required")
	}
	chainID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || chainID == 0 {
		return 0, swaperr.Newf(swaperr.CodeInvalidChain, "invalid chainId %q", raw)
	}
	return chainID, nil
}
