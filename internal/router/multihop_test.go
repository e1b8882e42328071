package router

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/swap-router/internal/model"
	"github.com/yourorg/swap-router/internal/provider"
	"github.com/yourorg/swap-router/internal/registry"
	"github.com/yourorg/swap-router/internal/swaperr"
)

// legProvider scripts quotes and preparations per route so both legs of a
// composition can be distinguished.
type legProvider struct {
	name     string
	supports func(route model.RouteParams) bool
	quote    func(req *model.SwapRequest) (*model.SwapQuote, error)
	prepare  func(req *model.SwapRequest) (*model.PreparedSwap, error)
}

func (l *legProvider) Name() string { return l.name }

func (l *legProvider) SupportsRoute(ctx context.Context, route model.RouteParams) bool {
	return l.supports(route)
}

func (l *legProvider) GetQuote(ctx context.Context, req *model.SwapRequest) (*model.SwapQuote, error) {
	return l.quote(req)
}

func (l *legProvider) PrepareSwap(ctx context.Context, req *model.SwapRequest) (*model.PreparedSwap, error) {
	return l.prepare(req)
}

func (l *legProvider) MonitorTransaction(ctx context.Context, txHash string, chainID uint64) (model.TxStatus, error) {
	return model.TxStatusCompleted, nil
}

// obscureRequest is a pair no provider serves directly: an exotic origin
// token that must first be swapped into a bridge token.
func obscureRequest() *model.SwapRequest {
	return &model.SwapRequest{
		FromChainID: 1,
		ToChainID:   137,
		FromToken:   "OBSCURE",
		ToToken:     "USDT",
		Amount:      big.NewInt(1_000_000),
		Sender:      "0x1111111111111111111111111111111111111111",
		Receiver:    "0x2222222222222222222222222222222222222222",
	}
}

// bridgeFixture wires a composition where only USDC works as the
// intermediate: the DEX can swap OBSCURE->USDC on chain 1, and the bridge can
// move USDC from chain 1 to USDT on chain 137.
func bridgeFixture() (*legProvider, *legProvider) {
	dex := &legProvider{
		name: "uniswap-trading-api",
		supports: func(route model.RouteParams) bool {
			return route.SameChain() && route.FromToken == "OBSCURE" && route.ToToken == "USDC"
		},
		quote: func(req *model.SwapRequest) (*model.SwapQuote, error) {
			expires := time.Now().Add(time.Minute)
			return &model.SwapQuote{
				EstimatedReceiveAmount: big.NewInt(995_000),
				BridgeFee:              big.NewInt(1_000),
				GasFee:                 big.NewInt(500),
				EstimatedDuration:      20,
				ExpiresAt:              &expires,
			}, nil
		},
		prepare: func(req *model.SwapRequest) (*model.PreparedSwap, error) {
			return &model.PreparedSwap{
				Provider:          "uniswap-trading-api",
				EstimatedDuration: 20,
				Transactions: []model.Transaction{
					{ChainID: 1, Label: "approval"},
					{ChainID: 1, Label: "swap"},
				},
				Metadata: map[string]interface{}{"requestId": "q-1"},
			}, nil
		},
	}

	bridge := &legProvider{
		name: "thirdweb",
		supports: func(route model.RouteParams) bool {
			return !route.SameChain() && route.FromToken == "USDC" && route.ToToken == "USDT"
		},
		quote: func(req *model.SwapRequest) (*model.SwapQuote, error) {
			expires := time.Now().Add(30 * time.Second)
			return &model.SwapQuote{
				EstimatedReceiveAmount: big.NewInt(990_000),
				BridgeFee:              big.NewInt(2_000),
				GasFee:                 big.NewInt(700),
				EstimatedDuration:      180,
				ExpiresAt:              &expires,
			}, nil
		},
		prepare: func(req *model.SwapRequest) (*model.PreparedSwap, error) {
			return &model.PreparedSwap{
				Provider:          "thirdweb",
				EstimatedDuration: 180,
				Transactions: []model.Transaction{
					{ChainID: 1, Label: "deposit"},
				},
				Metadata: map[string]interface{}{"intentId": "i-1"},
			}, nil
		},
	}
	return dex, bridge
}

func newTestMultiHop(dex, bridge provider.Provider) *MultiHop {
	return NewMultiHop(MultiHopConfig{
		SameChain:  dex,
		CrossChain: bridge,
	})
}

func TestMultiHop_SupportsRoute(t *testing.T) {
	dex, bridge := bridgeFixture()
	m := newTestMultiHop(dex, bridge)

	assert.True(t, m.SupportsRoute(context.Background(), obscureRequest().Route()))

	sameChain := obscureRequest().Route()
	sameChain.ToChainID = sameChain.FromChainID
	assert.False(t, m.SupportsRoute(context.Background(), sameChain),
		"same-chain routes are never composed")
}

func TestMultiHop_BridgeCandidateOrder(t *testing.T) {
	var tried []string
	dex := &legProvider{
		name: "dex",
		supports: func(route model.RouteParams) bool {
			tried = append(tried, route.ToToken)
			return false
		},
	}
	bridge := &legProvider{
		name:     "bridge",
		supports: func(route model.RouteParams) bool { return true },
	}
	m := newTestMultiHop(dex, bridge)

	assert.False(t, m.SupportsRoute(context.Background(), obscureRequest().Route()))
	assert.Equal(t, []string{"native", "WETH", "USDC", "USDT", "DAI"}, tried,
		"candidates are tried most liquid first")
}

func TestMultiHop_SkipsBridgeTokenEqualToOrigin(t *testing.T) {
	var tried []string
	dex := &legProvider{
		name: "dex",
		supports: func(route model.RouteParams) bool {
			tried = append(tried, route.ToToken)
			return false
		},
	}
	bridge := &legProvider{name: "bridge", supports: func(model.RouteParams) bool { return true }}
	m := newTestMultiHop(dex, bridge)

	req := obscureRequest()
	req.FromToken = "WETH"
	m.SupportsRoute(context.Background(), req.Route())
	assert.NotContains(t, tried, "WETH", "swapping a token into itself is never a leg")
}

func TestMultiHop_SkipsNativeCandidateForNativeOrigin(t *testing.T) {
	var tried []string
	dex := &legProvider{
		name: "dex",
		supports: func(route model.RouteParams) bool {
			tried = append(tried, route.ToToken)
			return false
		},
	}
	bridge := &legProvider{name: "bridge", supports: func(model.RouteParams) bool { return true }}
	m := newTestMultiHop(dex, bridge)

	for _, origin := range []string{registry.NativePlaceholder, registry.ZeroAddress, "NATIVE"} {
		tried = tried[:0]
		req := obscureRequest()
		req.FromToken = origin
		m.SupportsRoute(context.Background(), req.Route())
		assert.NotContains(t, tried, "native",
			"origin %q denotes the native asset and must not be swapped into it", origin)
	}
}

func TestMultiHop_GetQuoteAggregatesLegs(t *testing.T) {
	dex, bridge := bridgeFixture()

	var leg2Amount *big.Int
	originalQuote := bridge.quote
	bridge.quote = func(req *model.SwapRequest) (*model.SwapQuote, error) {
		leg2Amount = req.Amount
		return originalQuote(req)
	}

	m := newTestMultiHop(dex, bridge)
	quote, err := m.GetQuote(context.Background(), obscureRequest())
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(995_000), leg2Amount,
		"the second leg is quoted on the first leg's estimated output")
	assert.Equal(t, big.NewInt(990_000), quote.EstimatedReceiveAmount)
	assert.Equal(t, big.NewInt(3_000), quote.BridgeFee, "fees are summed")
	assert.Equal(t, big.NewInt(1_200), quote.GasFee)
	assert.Equal(t, int64(200), quote.EstimatedDuration, "durations are summed")

	require.NotNil(t, quote.ExpiresAt)
	assert.True(t, quote.ExpiresAt.Before(time.Now().Add(time.Minute)),
		"the earliest leg expiry bounds the whole composition")
}

func TestMultiHop_PrepareConcatenatesInOrder(t *testing.T) {
	dex, bridge := bridgeFixture()
	m := newTestMultiHop(dex, bridge)

	prepared, err := m.PrepareSwap(context.Background(), obscureRequest())
	require.NoError(t, err)

	assert.Equal(t, MultiHopName, prepared.Provider)
	require.Len(t, prepared.Transactions, 3)
	labels := []string{
		prepared.Transactions[0].Label,
		prepared.Transactions[1].Label,
		prepared.Transactions[2].Label,
	}
	assert.Equal(t, []string{"approval", "swap", "deposit"}, labels,
		"step 1 transactions precede step 2 entirely")
	assert.Equal(t, int64(200), prepared.EstimatedDuration)
	assert.Equal(t, "USDC", prepared.Metadata["bridgeToken"])
}

func TestMultiHop_IntermediateOutputStaysWithSender(t *testing.T) {
	dex, bridge := bridgeFixture()

	var step1Receiver, step2Receiver string
	originalDexPrepare := dex.prepare
	dex.prepare = func(req *model.SwapRequest) (*model.PreparedSwap, error) {
		step1Receiver = req.Receiver
		return originalDexPrepare(req)
	}
	originalBridgePrepare := bridge.prepare
	bridge.prepare = func(req *model.SwapRequest) (*model.PreparedSwap, error) {
		step2Receiver = req.Receiver
		return originalBridgePrepare(req)
	}

	m := newTestMultiHop(dex, bridge)
	req := obscureRequest()
	_, err := m.PrepareSwap(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, req.Sender, step1Receiver, "the bridge token lands with the sender")
	assert.Equal(t, req.Receiver, step2Receiver, "only the final leg pays the receiver")
}

func TestMultiHop_NoCompositionFound(t *testing.T) {
	dex := &legProvider{name: "dex", supports: func(model.RouteParams) bool { return false }}
	bridge := &legProvider{name: "bridge", supports: func(model.RouteParams) bool { return false }}
	m := newTestMultiHop(dex, bridge)

	_, err := m.GetQuote(context.Background(), obscureRequest())
	typed := swaperr.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, swaperr.CodeNoRouteFound, typed.Code)
	assert.Equal(t, DefaultBridgeSymbols(), typed.Details["bridgeTokensTried"])
}

func TestMultiHop_LegFailurePropagatesTyped(t *testing.T) {
	dex, bridge := bridgeFixture()
	bridge.quote = func(req *model.SwapRequest) (*model.SwapQuote, error) {
		return nil, swaperr.New(swaperr.CodeInsufficientLiquidity, "thin bridge pool")
	}
	m := newTestMultiHop(dex, bridge)

	_, err := m.GetQuote(context.Background(), obscureRequest())
	typed := swaperr.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, swaperr.CodeInsufficientLiquidity, typed.Code)
}

func TestMultiHop_Name(t *testing.T) {
	dex, bridge := bridgeFixture()
	m := newTestMultiHop(dex, bridge)
	assert.Equal(t, MultiHopName, m.Name())
}
