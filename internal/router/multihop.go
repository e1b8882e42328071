package router

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/swap-router/internal/model"
	"github.com/yourorg/swap-router/internal/provider"
	"github.com/yourorg/swap-router/internal/registry"
	"github.com/yourorg/swap-router/internal/swaperr"
)

// MultiHopName identifies the synthetic composite provider in results.
const MultiHopName = "multihop"

// MultiHopConfig wires the composite route builder.
type MultiHopConfig struct {
	// SameChain executes the origin-chain leg
	SameChain provider.Provider

	// CrossChain executes the bridging leg
	CrossChain provider.Provider

	// SameChainRegistryName and CrossChainRegistryName are the token-registry
	// keys of the two wrapped providers, used for decimal lookups
	SameChainRegistryName  string
	CrossChainRegistryName string

	// BridgeSymbols is the ordered candidate list of intermediate tokens,
	// most liquid first
	BridgeSymbols []string

	Tokens *registry.Registry
}

// DefaultBridgeSymbols orders intermediate-token candidates by liquidity:
// the native asset, its wrapped form, then the major stablecoins.
func DefaultBridgeSymbols() []string {
	return []string{"native", "WETH", "USDC", "USDT", "DAI"}
}

// MultiHop synthesizes a two-step route through an intermediate bridge token
// when no provider supports the requested pair directly: origin token to
// bridge token on the origin chain, then bridge token across to the
// destination token. It implements the provider contract so the selector can
// treat it like any other backend.
type MultiHop struct {
	cfg MultiHopConfig
}

// NewMultiHop creates the composite route builder.
func NewMultiHop(cfg MultiHopConfig) *MultiHop {
	if len(cfg.BridgeSymbols) == 0 {
		cfg.BridgeSymbols = DefaultBridgeSymbols()
	}
	if cfg.SameChainRegistryName == "" {
		cfg.SameChainRegistryName = cfg.SameChain.Name()
	}
	if cfg.CrossChainRegistryName == "" {
		cfg.CrossChainRegistryName = cfg.CrossChain.Name()
	}
	return &MultiHop{cfg: cfg}
}

func (m *MultiHop) Name() string { return MultiHopName }

// SupportsRoute reports whether some bridge-token candidate yields a valid
// two-leg composition for a cross-chain route.
func (m *MultiHop) SupportsRoute(ctx context.Context, route model.RouteParams) bool {
	if route.SameChain() {
		return false
	}
	_, ok := m.findBridgeToken(ctx, route)
	return ok
}

// findBridgeToken searches the candidate list in order and returns the first
// symbol for which both legs are supported.
func (m *MultiHop) findBridgeToken(ctx context.Context, route model.RouteParams) (string, bool) {
	for _, symbol := range m.cfg.BridgeSymbols {
		if bridgeTokenIsOrigin(symbol, route.FromToken) {
			// The origin token already is the bridge token; a direct
			// cross-chain route would have covered this.
			continue
		}

		step1 := model.RouteParams{
			FromChainID: route.FromChainID,
			ToChainID:   route.FromChainID,
			FromToken:   route.FromToken,
			ToToken:     symbol,
		}
		if !m.cfg.SameChain.SupportsRoute(ctx, step1) {
			continue
		}

		step2 := model.RouteParams{
			FromChainID: route.FromChainID,
			ToChainID:   route.ToChainID,
			FromToken:   symbol,
			ToToken:     route.ToToken,
		}
		if m.cfg.CrossChain.SupportsRoute(ctx, step2) {
			logrus.WithFields(logrus.Fields{
				"bridgeToken": symbol,
				"fromChainId": route.FromChainID,
				"toChainId":   route.ToChainID,
			}).Debug("Found two-leg composition")
			return symbol, true
		}

		// Bridging the bridge token to the destination and swapping there
		// would add a third leg; that shape is not composed as a route, so
		// the search moves to the next candidate instead.
	}
	return "", false
}

// GetQuote quotes both legs and aggregates them. The second leg is quoted
// against the first leg's estimated output.
func (m *MultiHop) GetQuote(ctx context.Context, req *model.SwapRequest) (*model.SwapQuote, error) {
	bridgeToken, ok := m.findBridgeToken(ctx, req.Route())
	if !ok {
		return nil, m.noRouteError(req)
	}

	step1 := m.step1Request(req, bridgeToken)
	quote1, err := m.cfg.SameChain.GetQuote(ctx, step1)
	if err != nil {
		return nil, swaperr.Normalize(m.cfg.SameChain.Name(), err)
	}

	step2 := m.step2Request(req, bridgeToken, quote1.EstimatedReceiveAmount)
	quote2, err := m.cfg.CrossChain.GetQuote(ctx, step2)
	if err != nil {
		return nil, swaperr.Normalize(m.cfg.CrossChain.Name(), err)
	}

	quote := &model.SwapQuote{
		EstimatedReceiveAmount: quote2.EstimatedReceiveAmount,
		BridgeFee:              sum(quote1.BridgeFee, quote2.BridgeFee),
		GasFee:                 sum(quote1.GasFee, quote2.GasFee),
		ExchangeRate:           m.overallRate(req, quote2.EstimatedReceiveAmount),
		EstimatedDuration:      quote1.EstimatedDuration + quote2.EstimatedDuration,
		ExpiresAt:              earliest(quote1.ExpiresAt, quote2.ExpiresAt),
	}
	return quote, nil
}

// PrepareSwap prepares both legs and concatenates their transaction bundles,
// step 1 entirely before step 2. The first leg's output amount is re-derived
// from a fresh quote because quoted and prepared amounts are not guaranteed
// consistent across separate calls.
func (m *MultiHop) PrepareSwap(ctx context.Context, req *model.SwapRequest) (*model.PreparedSwap, error) {
	bridgeToken, ok := m.findBridgeToken(ctx, req.Route())
	if !ok {
		return nil, m.noRouteError(req)
	}

	step1 := m.step1Request(req, bridgeToken)
	prepared1, err := m.cfg.SameChain.PrepareSwap(ctx, step1)
	if err != nil {
		return nil, swaperr.Normalize(m.cfg.SameChain.Name(), err)
	}

	quote1, err := m.cfg.SameChain.GetQuote(ctx, step1)
	if err != nil {
		return nil, swaperr.Normalize(m.cfg.SameChain.Name(), err)
	}

	step2 := m.step2Request(req, bridgeToken, quote1.EstimatedReceiveAmount)
	prepared2, err := m.cfg.CrossChain.PrepareSwap(ctx, step2)
	if err != nil {
		return nil, swaperr.Normalize(m.cfg.CrossChain.Name(), err)
	}

	transactions := make([]model.Transaction, 0, len(prepared1.Transactions)+len(prepared2.Transactions))
	transactions = append(transactions, prepared1.Transactions...)
	transactions = append(transactions, prepared2.Transactions...)

	return &model.PreparedSwap{
		Provider:          MultiHopName,
		Transactions:      transactions,
		EstimatedDuration: prepared1.EstimatedDuration + prepared2.EstimatedDuration,
		ExpiresAt:         earliest(prepared1.ExpiresAt, prepared2.ExpiresAt),
		Metadata: map[string]interface{}{
			"bridgeToken": bridgeToken,
			"step1":       prepared1.Metadata,
			"step2":       prepared2.Metadata,
		},
	}, nil
}

// MonitorTransaction delegates status checks: the bridging leg's provider
// tracks cross-chain settlement, the same-chain leg is the fallback.
func (m *MultiHop) MonitorTransaction(ctx context.Context, txHash string, chainID uint64) (model.TxStatus, error) {
	status, err := m.cfg.CrossChain.MonitorTransaction(ctx, txHash, chainID)
	if err == nil {
		return status, nil
	}
	return m.cfg.SameChain.MonitorTransaction(ctx, txHash, chainID)
}

// bridgeTokenIsOrigin matches a candidate against the origin reference. The
// origin may name the native asset through any of the registry sentinels, not
// just the literal "native" keyword.
func bridgeTokenIsOrigin(candidate, origin string) bool {
	if strings.EqualFold(candidate, origin) {
		return true
	}
	return registry.IsNativeReference(candidate) && registry.IsNativeReference(origin)
}

func (m *MultiHop) step1Request(req *model.SwapRequest, bridgeToken string) *model.SwapRequest {
	return &model.SwapRequest{
		FromChainID: req.FromChainID,
		ToChainID:   req.FromChainID,
		FromToken:   req.FromToken,
		ToToken:     bridgeToken,
		Amount:      req.Amount,
		Sender:      req.Sender,
		// The intermediate output stays with the sender until step 2 moves it.
		Receiver: req.Sender,
	}
}

func (m *MultiHop) step2Request(req *model.SwapRequest, bridgeToken string, amount *big.Int) *model.SwapRequest {
	return &model.SwapRequest{
		FromChainID: req.FromChainID,
		ToChainID:   req.ToChainID,
		FromToken:   bridgeToken,
		ToToken:     req.ToToken,
		Amount:      amount,
		Sender:      req.Sender,
		Receiver:    req.Receiver,
	}
}

func (m *MultiHop) noRouteError(req *model.SwapRequest) *swaperr.Error {
	return swaperr.Newf(swaperr.CodeNoRouteFound,
		"no multi-hop route from %s (chain %d) to %s (chain %d)",
		req.FromToken, req.FromChainID, req.ToToken, req.ToChainID).
		WithDetail("bridgeTokensTried", m.cfg.BridgeSymbols)
}

// overallRate computes the destination-per-origin exchange rate from raw
// integer amounts, scaling by token decimals to avoid precision loss.
func (m *MultiHop) overallRate(req *model.SwapRequest, amountOut *big.Int) float64 {
	if amountOut == nil || req.Amount == nil || req.Amount.Sign() == 0 {
		return 0
	}

	fromDecimals := m.decimals(m.cfg.SameChainRegistryName, req.FromChainID, req.FromToken)
	toDecimals := m.decimals(m.cfg.CrossChainRegistryName, req.ToChainID, req.ToToken)

	// rate = (out / 10^toDec) / (in / 10^fromDec)
	num := new(big.Float).SetInt(amountOut)
	num.Mul(num, decimalFactor(fromDecimals))
	den := new(big.Float).SetInt(req.Amount)
	den.Mul(den, decimalFactor(toDecimals))

	rate, _ := new(big.Float).Quo(num, den).Float64()
	return rate
}

func (m *MultiHop) decimals(registryName string, chainID uint64, ref string) uint8 {
	if m.cfg.Tokens == nil {
		return 18
	}
	token, err := m.cfg.Tokens.Resolve(registryName, chainID, ref)
	if err != nil {
		return 18
	}
	return token.Decimals
}

func decimalFactor(decimals uint8) *big.Float {
	factor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Float).SetInt(factor)
}

func sum(a, b *big.Int) *big.Int {
	total := new(big.Int)
	if a != nil {
		total.Add(total, a)
	}
	if b != nil {
		total.Add(total, b)
	}
	return total
}

func earliest(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case a.Before(*b):
		return a
	default:
		return b
	}
}
