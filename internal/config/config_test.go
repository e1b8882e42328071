package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.UniswapEnabled)
	assert.True(t, cfg.ThirdwebEnabled)
	assert.True(t, cfg.MultiHopEnabled)
	assert.Equal(t, []string{"uniswap-trading-api", "uniswap", "thirdweb"}, cfg.SameChainPriority)
	assert.Equal(t, []string{"thirdweb"}, cfg.CrossChainPriority)
	assert.Equal(t, []string{"native", "WETH", "USDC", "USDT", "DAI"}, cfg.BridgeSymbols)
	assert.Equal(t, 50, cfg.SlippageBps)
	assert.Equal(t, 15*time.Second, cfg.AttemptTimeout)
	assert.Equal(t, 30*time.Second, cfg.QuoteCacheTTL)
	assert.Equal(t, 3, cfg.BreakerFailureThreshold)
	assert.Equal(t, 2*time.Minute, cfg.BreakerCooldown)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("UNISWAP_ENABLED", "false")
	t.Setenv("SLIPPAGE_BPS", "100")
	t.Setenv("ATTEMPT_TIMEOUT", "5s")
	t.Setenv("SAME_CHAIN_PRIORITY", "thirdweb, uniswap-trading-api")
	t.Setenv("API_KEYS", `{"uniswap":"key-a","thirdweb":"key-b"}`)
	t.Setenv("PROTOCOL_FEES", `[{"provider":"uniswap","percent":1.0,"active":true}]`)

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.False(t, cfg.UniswapEnabled)
	assert.Equal(t, 100, cfg.SlippageBps)
	assert.Equal(t, 5*time.Second, cfg.AttemptTimeout)
	assert.Equal(t, []string{"thirdweb", "uniswap-trading-api"}, cfg.SameChainPriority)
	assert.Equal(t, "key-a", cfg.APIKey("uniswap"))
	assert.Equal(t, "key-b", cfg.APIKey("thirdweb"))
	assert.Equal(t, "", cfg.APIKey("unknown"))

	require.Len(t, cfg.ProtocolFees, 1)
	assert.Equal(t, "uniswap", cfg.ProtocolFees[0].Provider)
	assert.Equal(t, 1.0, cfg.ProtocolFees[0].Percent)
	assert.True(t, cfg.ProtocolFees[0].Active)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SLIPPAGE_BPS", "not-a-number")
	t.Setenv("ATTEMPT_TIMEOUT", "soon")
	t.Setenv("UNISWAP_ENABLED", "maybe")

	cfg := Load()

	assert.Equal(t, 50, cfg.SlippageBps)
	assert.Equal(t, 15*time.Second, cfg.AttemptTimeout)
	assert.True(t, cfg.UniswapEnabled)
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_STRING", "hello")
	t.Setenv("TEST_INT", "7")
	t.Setenv("TEST_FLOAT", "2.5")
	t.Setenv("TEST_BOOL", "true")
	t.Setenv("TEST_DURATION", "90s")

	assert.Equal(t, "hello", GetEnvOrDefault("TEST_STRING", "x"))
	assert.Equal(t, "x", GetEnvOrDefault("TEST_MISSING", "x"))
	assert.Equal(t, 7, GetEnvAsInt("TEST_INT", 1))
	assert.Equal(t, 1, GetEnvAsInt("TEST_MISSING", 1))
	assert.Equal(t, 2.5, GetEnvAsFloat("TEST_FLOAT", 1.0))
	assert.True(t, GetEnvAsBool("TEST_BOOL", false))
	assert.Equal(t, 90*time.Second, GetEnvAsDuration("TEST_DURATION", time.Second))
	assert.Equal(t, time.Second, GetEnvAsDuration("TEST_MISSING", time.Second))
}
