// Package model defines the core data structures for the swap routing engine.
package model

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// SwapRequest describes a single requested trade. It is built once per
// incoming request and never mutated afterwards.
type SwapRequest struct {
	// FromChainID is the chain the user funds the swap from
	FromChainID uint64 `json:"fromChainId"`

	// ToChainID is the chain the user receives funds on
	ToChainID uint64 `json:"toChainId"`

	// FromToken is a token reference: symbol, address, or the "native" sentinel
	FromToken string `json:"fromToken"`

	// ToToken is a token reference on the destination chain
	ToToken string `json:"toToken"`

	// Amount in the origin token's smallest unit
	Amount *big.Int `json:"amount"`

	// Sender is the address funding the swap
	Sender string `json:"sender"`

	// Receiver is the address receiving the output; defaults to Sender upstream
	Receiver string `json:"receiver"`
}

// Validate checks the construction invariants of a swap request.
func (r *SwapRequest) Validate() error {
	if r.FromChainID == 0 || r.ToChainID == 0 {
		return fmt.Errorf("chain ids must be positive: from=%d to=%d", r.FromChainID, r.ToChainID)
	}
	if r.FromToken == "" || r.ToToken == "" {
		return fmt.Errorf("token references must be non-empty")
	}
	if r.Amount == nil || r.Amount.Sign() <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	if r.Sender == "" || r.Receiver == "" {
		return fmt.Errorf("sender and receiver addresses must be non-empty")
	}
	return nil
}

// SameChain reports whether origin and destination chains are equal.
func (r *SwapRequest) SameChain() bool {
	return r.FromChainID == r.ToChainID
}

// RouteParams projects a SwapRequest down to the fields needed for a
// "can you serve this route" check. No amount, no addresses.
type RouteParams struct {
	FromChainID uint64 `json:"fromChainId"`
	ToChainID   uint64 `json:"toChainId"`
	FromToken   string `json:"fromToken"`
	ToToken     string `json:"toToken"`
}

// Route returns the route projection of the request.
func (r *SwapRequest) Route() RouteParams {
	return RouteParams{
		FromChainID: r.FromChainID,
		ToChainID:   r.ToChainID,
		FromToken:   r.FromToken,
		ToToken:     r.ToToken,
	}
}

// SameChain reports whether the route stays on one chain.
func (p RouteParams) SameChain() bool {
	return p.FromChainID == p.ToChainID
}

// SwapQuote is a provider's advisory estimate of a swap outcome. Quotes are
// time-limited and non-binding; callers must not assume a quote remains valid
// past the provider-declared expiry.
type SwapQuote struct {
	// EstimatedReceiveAmount in the destination token's smallest unit
	EstimatedReceiveAmount *big.Int `json:"estimatedReceiveAmount"`

	// BridgeFee in the origin token's smallest unit
	BridgeFee *big.Int `json:"bridgeFee"`

	// GasFee in the origin chain's native smallest unit
	GasFee *big.Int `json:"gasFee"`

	// ExchangeRate is the destination-per-origin ratio of human-readable amounts
	ExchangeRate float64 `json:"exchangeRate"`

	// EstimatedDuration until settlement, in seconds
	EstimatedDuration int64 `json:"estimatedDuration"`

	// ExpiresAt is the provider-declared quote expiry, if any
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// Expired reports whether the quote has passed its declared expiry.
func (q *SwapQuote) Expired(now time.Time) bool {
	return q.ExpiresAt != nil && now.After(*q.ExpiresAt)
}

// ProviderSelectionResult pairs the chosen provider with the quote it
// produced and the protocol's cut of the input amount.
type ProviderSelectionResult struct {
	Provider string     `json:"provider"`
	Quote    *SwapQuote `json:"quote"`

	// ProtocolFee in the origin token's smallest unit
	ProtocolFee *big.Int `json:"protocolFee,omitempty"`
}

// Transaction is one unsigned on-chain call. Transactions in a prepared swap
// must be submitted in order; later calls may depend on state established by
// earlier ones (approval before swap).
type Transaction struct {
	// ChainID the transaction must be submitted on
	ChainID uint64 `json:"chainId"`

	// To is the recipient contract
	To common.Address `json:"to"`

	// Data is the ABI-encoded calldata
	Data hexutil.Bytes `json:"data"`

	// Value in the chain's native smallest unit
	Value *big.Int `json:"value"`

	// Gas limit, zero when left to the signer's estimation
	Gas uint64 `json:"gas,omitempty"`

	// GasPrice in wei, nil when left to the signer
	GasPrice *big.Int `json:"gasPrice,omitempty"`

	// Label is a human hint such as "approval" or "swap"
	Label string `json:"label,omitempty"`
}

// PreparedSwap is an ordered, unsigned transaction bundle ready for external
// signing and submission.
type PreparedSwap struct {
	Provider     string        `json:"provider"`
	Transactions []Transaction `json:"transactions"`

	// EstimatedDuration until settlement, in seconds
	EstimatedDuration int64 `json:"estimatedDuration"`

	// ProtocolFee in the origin token's smallest unit, set by the selection
	// layer rather than the provider
	ProtocolFee *big.Int `json:"protocolFee,omitempty"`

	// ExpiresAt is when the bundle should no longer be submitted, if declared
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`

	// Metadata carries opaque provider-specific detail
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// TxStatus is the lifecycle state of a submitted swap transaction.
type TxStatus string

const (
	TxStatusPending   TxStatus = "PENDING"
	TxStatusCompleted TxStatus = "COMPLETED"
	TxStatusFailed    TxStatus = "FAILED"
)

// ResolvedToken is the provider- and chain-specific identity of a token
// reference, plus its metadata.
type ResolvedToken struct {
	// Address is the canonical identifier the provider expects. For native
	// assets this is the chain's wrapped-native address, since providers
	// generally require an address even for native assets.
	Address string `json:"address"`

	// IsNative marks the chain's native asset
	IsNative bool `json:"isNative"`

	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`

	// Providers lists the provider names that recognize this token on this chain
	Providers []string `json:"providers"`
}

// ProtocolFeeConfig is an administratively managed fee entry. The engine only
// reads these; when absent or inactive a hard-coded default applies.
type ProtocolFeeConfig struct {
	Provider string  `json:"provider"`
	Percent  float64 `json:"percent"`
	Active   bool    `json:"active"`

	// Optional alternative representations
	BasisPoints *int64   `json:"basisPoints,omitempty"`
	FixedNative *big.Int `json:"fixedNative,omitempty"`
}
