// Package config provides configuration loading and management for the
// application. Everything is read once at construction and never re-read
// mid-request.
package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/yourorg/swap-router/internal/model"
)

// Config holds all application configuration.
type Config struct {
	// HTTP server port
	Port string

	// Token registry file path; empty means locate via SWAP_TOKEN_REGISTRY or
	// the conventional paths
	TokenRegistryPath string

	// Per-provider enable flags
	UniswapEnabled  bool
	ThirdwebEnabled bool
	MultiHopEnabled bool

	// Base URLs for the provider APIs
	UniswapURL  string
	ThirdwebURL string

	// API keys by provider name
	APIKeys map[string]string

	// Per-provider request timeout overrides
	UniswapTimeout  time.Duration
	ThirdwebTimeout time.Duration

	// AttemptTimeout bounds each fallback candidate attempt in the router
	AttemptTimeout time.Duration

	// SlippageBps is the default slippage tolerance in basis points
	SlippageBps int

	// Provider priority lists per route classification
	SameChainPriority  []string
	CrossChainPriority []string

	// BridgeSymbols orders multi-hop intermediate-token candidates
	BridgeSymbols []string

	// QuoteCacheTTL for the read-through quote cache; zero disables it
	QuoteCacheTTL time.Duration

	// ProtocolFees holds administratively managed fee overrides; providers
	// without an active entry use the built-in defaults
	ProtocolFees []model.ProtocolFeeConfig

	// Circuit breaker thresholds
	BreakerFailureThreshold int
	BreakerCooldown         time.Duration

	// OpenTelemetry endpoint for observability
	OtelEndpoint string

	// Rate limiting for the HTTP entrypoint
	RateLimitRPS   float64
	RateLimitBurst int
}

// Load creates a new Config from the environment, layered over an optional
// config file (swap-router.yaml in the working directory or $HOME).
func Load() Config {
	v := viper.New()
	v.SetConfigName("swap-router")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME")
	v.SetEnvPrefix("SWAP_ROUTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.ReadInConfig() // the config file is optional

	apiKeys := map[string]string{}
	if raw := GetEnvOrDefault("API_KEYS", ""); raw != "" {
		_ = json.Unmarshal([]byte(raw), &apiKeys)
	}

	var protocolFees []model.ProtocolFeeConfig
	if raw := GetEnvOrDefault("PROTOCOL_FEES", ""); raw != "" {
		_ = json.Unmarshal([]byte(raw), &protocolFees)
	}

	return Config{
		Port:              GetEnvOrDefault("PORT", "8080"),
		TokenRegistryPath: v.GetString("token_registry"),

		UniswapEnabled:  GetEnvAsBool("UNISWAP_ENABLED", true),
		ThirdwebEnabled: GetEnvAsBool("THIRDWEB_ENABLED", true),
		MultiHopEnabled: GetEnvAsBool("MULTIHOP_ENABLED", true),

		UniswapURL:  GetEnvOrDefault("UNISWAP_URL", "https://trade-api.gateway.uniswap.org"),
		ThirdwebURL: GetEnvOrDefault("THIRDWEB_URL", "https://bridge.thirdweb.com"),

		APIKeys: apiKeys,

		UniswapTimeout:  GetEnvAsDuration("UNISWAP_TIMEOUT", 10*time.Second),
		ThirdwebTimeout: GetEnvAsDuration("THIRDWEB_TIMEOUT", 15*time.Second),
		AttemptTimeout:  GetEnvAsDuration("ATTEMPT_TIMEOUT", 15*time.Second),

		SlippageBps: GetEnvAsInt("SLIPPAGE_BPS", 50),

		SameChainPriority:  getEnvAsList("SAME_CHAIN_PRIORITY", []string{"uniswap-trading-api", "uniswap", "thirdweb"}),
		CrossChainPriority: getEnvAsList("CROSS_CHAIN_PRIORITY", []string{"thirdweb"}),
		BridgeSymbols:      getEnvAsList("BRIDGE_SYMBOLS", []string{"native", "WETH", "USDC", "USDT", "DAI"}),

		QuoteCacheTTL: GetEnvAsDuration("QUOTE_CACHE_TTL", 30*time.Second),

		ProtocolFees: protocolFees,

		BreakerFailureThreshold: GetEnvAsInt("BREAKER_FAILURE_THRESHOLD", 3),
		BreakerCooldown:         GetEnvAsDuration("BREAKER_COOLDOWN", 2*time.Minute),

		OtelEndpoint: GetEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		RateLimitRPS:   GetEnvAsFloat("RATE_LIMIT_RPS", 10.0),
		RateLimitBurst: GetEnvAsInt("RATE_LIMIT_BURST", 20),
	}
}

// APIKey returns the configured key for a provider, or empty.
func (c Config) APIKey(provider string) string {
	return c.APIKeys[provider]
}

// GetEnv retrieves an environment variable and whether it exists.
func GetEnv(key string) (string, bool) {
	value, exists := os.LookupEnv(key)
	return value, exists
}

// GetEnvOrDefault retrieves an environment variable or returns the default value if not set.
func GetEnvOrDefault(key, defaultValue string) string {
	if value, exists := GetEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt retrieves an environment variable as an integer with a default value.
func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := GetEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvAsFloat retrieves an environment variable as a float with a default value.
func GetEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := GetEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// GetEnvAsBool retrieves an environment variable as a boolean with a default value.
func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := GetEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// GetEnvAsDuration retrieves an environment variable as a duration with a default value.
func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := GetEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsList parses a comma-separated environment variable.
func getEnvAsList(key string, defaultValue []string) []string {
	if value, exists := GetEnv(key); exists && value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
