package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/swap-router/internal/swaperr"
)

const testRegistryJSON = `{
  "chains": {
    "1": {
      "name": "Ethereum",
      "nativeSymbol": "ETH",
      "nativeName": "Ether",
      "nativeDecimals": 18,
      "wrappedNativeAddress": "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2",
      "nativeIdentifiers": {
        "uniswap": "ETH",
        "thirdweb": "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"
      },
      "tokens": [
        {
          "address": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
          "symbol": "USDC",
          "name": "USD Coin",
          "decimals": 6,
          "providers": ["uniswap", "thirdweb"]
        },
        {
          "address": "0x6b175474e89094c44da98b954eedeac495271d0f",
          "symbol": "DAI",
          "name": "Dai Stablecoin",
          "decimals": 18,
          "providers": ["uniswap"]
        }
      ]
    },
    "137": {
      "name": "Polygon",
      "nativeSymbol": "POL",
      "nativeName": "Polygon Ecosystem Token",
      "nativeDecimals": 18,
      "wrappedNativeAddress": "0x0d500b1d8e8ef31e21c99d1db9a6444d3adf1270",
      "nativeIdentifiers": {
        "thirdweb": "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"
      },
      "tokens": [
        {
          "address": "0x3c499c542cef5e3811e1192ce70d8cc03d5c3359",
          "symbol": "USDC",
          "name": "USD Coin",
          "decimals": 6,
          "providers": ["thirdweb"]
        }
      ]
    }
  }
}`

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := Parse([]byte(testRegistryJSON))
	require.NoError(t, err)
	return r
}

func TestParse_RejectsBadInput(t *testing.T) {
	_, err := Parse([]byte("not json"))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"chains": {}}`))
	assert.Error(t, err, "a registry without chains is useless")

	_, err = Parse([]byte(`{"chains": {"mainnet": {}}}`))
	assert.Error(t, err, "chain keys must be numeric ids")
}

func TestResolve_ByAddress(t *testing.T) {
	r := testRegistry(t)

	token, err := r.Resolve("uniswap", 1, "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	require.NoError(t, err)
	assert.Equal(t, "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", token.Address, "address is lowercased")
	assert.Equal(t, "USDC", token.Symbol)
	assert.Equal(t, uint8(6), token.Decimals)
	assert.False(t, token.IsNative)
}

func TestResolve_BySymbolFallback(t *testing.T) {
	r := testRegistry(t)

	token, err := r.Resolve("uniswap", 1, "usdc")
	require.NoError(t, err)
	assert.Equal(t, "USDC", token.Symbol, "symbol match is case-insensitive")
}

func TestResolve_NativeSentinels(t *testing.T) {
	r := testRegistry(t)

	for _, ref := range []string{"native", ZeroAddress, NativePlaceholder, "ETH"} {
		token, err := r.Resolve("uniswap", 1, ref)
		require.NoError(t, err, "ref %q", ref)
		assert.True(t, token.IsNative, "ref %q resolves to the native asset", ref)
		assert.Equal(t, "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", token.Address,
			"native resolves to the wrapped-native address")
		assert.Equal(t, uint8(18), token.Decimals)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	r := testRegistry(t)

	first, err := r.Resolve("thirdweb", 1, "USDC")
	require.NoError(t, err)

	// Resolving the resolved address again must return the same identity.
	second, err := r.Resolve("thirdweb", 1, first.Address)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolve_UnknownChain(t *testing.T) {
	r := testRegistry(t)

	_, err := r.Resolve("uniswap", 999, "USDC")
	typed := swaperr.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, swaperr.CodeUnsupportedChain, typed.Code)
}

func TestResolve_ProviderNotOnChain(t *testing.T) {
	r := testRegistry(t)

	// uniswap has no native identifier on Polygon in this fixture.
	_, err := r.Resolve("uniswap", 137, "USDC")
	typed := swaperr.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, swaperr.CodeUnsupportedChain, typed.Code)
}

func TestResolve_UnknownTokenListsSupportedSymbols(t *testing.T) {
	r := testRegistry(t)

	_, err := r.Resolve("uniswap", 1, "SHIB")
	typed := swaperr.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, swaperr.CodeUnsupportedToken, typed.Code)
	assert.ElementsMatch(t, []string{"DAI", "USDC"}, typed.Details["supportedSymbols"])
}

func TestResolve_TokenScopedPerProvider(t *testing.T) {
	r := testRegistry(t)

	// DAI is only registered for uniswap on chain 1.
	_, err := r.Resolve("thirdweb", 1, "DAI")
	typed := swaperr.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, swaperr.CodeUnsupportedToken, typed.Code)
}

func TestChainIDs(t *testing.T) {
	r := testRegistry(t)
	assert.Equal(t, []uint64{1, 137}, r.ChainIDs())
}

func TestIsNativeReference(t *testing.T) {
	assert.True(t, IsNativeReference("native"))
	assert.True(t, IsNativeReference("NATIVE"))
	assert.True(t, IsNativeReference(ZeroAddress))
	assert.True(t, IsNativeReference(NativePlaceholder))
	assert.False(t, IsNativeReference("ETH"), "symbols are chain-specific, not sentinels")
	assert.False(t, IsNativeReference(""))
}
