package model

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validRequest() *SwapRequest {
	return &SwapRequest{
		FromChainID: 1,
		ToChainID:   137,
		FromToken:   "USDC",
		ToToken:     "WETH",
		Amount:      big.NewInt(1_000_000),
		Sender:      "0x1111111111111111111111111111111111111111",
		Receiver:    "0x2222222222222222222222222222222222222222",
	}
}

func TestSwapRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SwapRequest)
		wantErr bool
	}{
		{
			name:   "valid request",
			mutate: func(r *SwapRequest) {},
		},
		{
			name:    "zero from chain",
			mutate:  func(r *SwapRequest) { r.FromChainID = 0 },
			wantErr: true,
		},
		{
			name:    "zero to chain",
			mutate:  func(r *SwapRequest) { r.ToChainID = 0 },
			wantErr: true,
		},
		{
			name:    "empty from token",
			mutate:  func(r *SwapRequest) { r.FromToken = "" },
			wantErr: true,
		},
		{
			name:    "empty to token",
			mutate:  func(r *SwapRequest) { r.ToToken = "" },
			wantErr: true,
		},
		{
			name:    "nil amount",
			mutate:  func(r *SwapRequest) { r.Amount = nil },
			wantErr: true,
		},
		{
			name:    "zero amount",
			mutate:  func(r *SwapRequest) { r.Amount = big.NewInt(0) },
			wantErr: true,
		},
		{
			name:    "negative amount",
			mutate:  func(r *SwapRequest) { r.Amount = big.NewInt(-5) },
			wantErr: true,
		},
		{
			name:    "empty sender",
			mutate:  func(r *SwapRequest) { r.Sender = "" },
			wantErr: true,
		},
		{
			name:    "empty receiver",
			mutate:  func(r *SwapRequest) { r.Receiver = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)
			err := req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSwapRequest_SameChain(t *testing.T) {
	req := validRequest()
	assert.False(t, req.SameChain(), "1 -> 137 is cross-chain")

	req.ToChainID = 1
	assert.True(t, req.SameChain(), "1 -> 1 is same-chain")
}

func TestSwapRequest_Route(t *testing.T) {
	req := validRequest()
	route := req.Route()

	assert.Equal(t, req.FromChainID, route.FromChainID)
	assert.Equal(t, req.ToChainID, route.ToChainID)
	assert.Equal(t, req.FromToken, route.FromToken)
	assert.Equal(t, req.ToToken, route.ToToken)
	assert.False(t, route.SameChain())
}

func TestSwapQuote_Expired(t *testing.T) {
	now := time.Now()

	quote := &SwapQuote{EstimatedReceiveAmount: big.NewInt(1)}
	assert.False(t, quote.Expired(now), "quote without expiry never expires")

	future := now.Add(time.Minute)
	quote.ExpiresAt = &future
	assert.False(t, quote.Expired(now), "quote expiring in the future is valid")

	past := now.Add(-time.Minute)
	quote.ExpiresAt = &past
	assert.True(t, quote.Expired(now), "quote past its expiry is expired")
}
