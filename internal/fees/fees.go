// Package fees computes the protocol's cut of a swap amount. Amounts are in
// smallest units, so the math stays on scaled integers end to end.
package fees

import (
	"math"
	"math/big"
	"strings"

	"github.com/yourorg/swap-router/internal/model"
	"github.com/yourorg/swap-router/internal/swaperr"
)

// percentScale converts a fee percentage into an integer multiplier:
// percent * 1e4, applied over a 1e6 divisor. 0.5% becomes 5000/1e6.
const (
	percentScale = 10_000
	feeDivisor   = 1_000_000
)

// canonicalNames collapses provider variants onto one canonical fee identity.
var canonicalNames = map[string]string{
	"uniswap-trading-api": "uniswap",
	"uniswap-v3":          "uniswap",
	"uniswap-v4":          "uniswap",
	"thirdweb-bridge":     "thirdweb",
}

// defaultPercents are the hard-coded fallback fee percentages used when no
// active configuration exists for a provider.
var defaultPercents = map[string]float64{
	"uniswap":  0.5,
	"thirdweb": 0.3,
	"multihop": 0.5,
}

// defaultPercent applies to providers with no entry of their own.
const defaultPercent = 0.5

// Calculator reads administratively managed fee configurations and falls back
// to defaults. It holds no mutable state after construction.
type Calculator struct {
	configs map[string]model.ProtocolFeeConfig
}

// NewCalculator builds a calculator over the given fee configurations,
// indexed by canonical provider name.
func NewCalculator(configs []model.ProtocolFeeConfig) *Calculator {
	indexed := make(map[string]model.ProtocolFeeConfig, len(configs))
	for _, cfg := range configs {
		indexed[Canonical(cfg.Provider)] = cfg
	}
	return &Calculator{configs: indexed}
}

// Canonical normalizes a provider name through the alias table.
func Canonical(provider string) string {
	name := strings.ToLower(strings.TrimSpace(provider))
	if canonical, ok := canonicalNames[name]; ok {
		return canonical
	}
	return name
}

// CalculateFee returns the protocol fee for the given provider and amount.
// The result is always >= 0 and <= amount.
func (c *Calculator) CalculateFee(provider string, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, swaperr.New(swaperr.CodeInvalidAmount, "fee amount must be non-negative")
	}

	percent := c.percentFor(Canonical(provider))
	fee := applyPercent(amount, percent)

	if fee.Cmp(amount) > 0 {
		fee.Set(amount)
	}
	return fee, nil
}

func (c *Calculator) percentFor(canonical string) float64 {
	if cfg, ok := c.configs[canonical]; ok && cfg.Active && cfg.Percent >= 0 && cfg.Percent <= 100 {
		return cfg.Percent
	}
	if percent, ok := defaultPercents[canonical]; ok {
		return percent
	}
	return defaultPercent
}

// applyPercent computes amount * percent / 100 without floating-point error
// on the amount: the percentage is scaled to an integer once, then all math
// is big.Int.
func applyPercent(amount *big.Int, percent float64) *big.Int {
	scaled := int64(math.Round(percent * percentScale))
	if scaled <= 0 {
		return big.NewInt(0)
	}
	fee := new(big.Int).Mul(amount, big.NewInt(scaled))
	return fee.Quo(fee, big.NewInt(feeDivisor))
}
