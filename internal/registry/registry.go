// Package registry resolves human-supplied token references into provider-
// and chain-specific canonical identities. The registry is loaded once from a
// static configuration file and is read-only afterwards.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/swap-router/internal/model"
	"github.com/yourorg/swap-router/internal/swaperr"
)

// Native sentinels accepted as a reference to a chain's native asset.
const (
	NativeKeyword      = "native"
	ZeroAddress        = "0x0000000000000000000000000000000000000000"
	NativePlaceholder  = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"
	registryPathEnvVar = "SWAP_TOKEN_REGISTRY"
)

// conventionalPaths are tried in order when SWAP_TOKEN_REGISTRY is unset.
var conventionalPaths = []string{
	"config/tokens.json",
	"tokens.json",
	"../config/tokens.json",
}

// TokenEntry is one ERC-20-style token in the static configuration.
type TokenEntry struct {
	Address   string   `json:"address"`
	Symbol    string   `json:"symbol"`
	Name      string   `json:"name"`
	Decimals  uint8    `json:"decimals"`
	Providers []string `json:"providers"`
}

// ChainEntry is the per-chain section of the static configuration.
type ChainEntry struct {
	Name           string `json:"name"`
	NativeSymbol   string `json:"nativeSymbol"`
	NativeName     string `json:"nativeName"`
	NativeDecimals uint8  `json:"nativeDecimals"`

	// WrappedNativeAddress is used as the canonical identifier for the native
	// asset, since providers generally require an address even for it.
	WrappedNativeAddress string `json:"wrappedNativeAddress"`

	// NativeIdentifiers maps provider name to the identifier string that
	// provider uses for the chain's native asset. A provider absent from this
	// map is not configured for the chain.
	NativeIdentifiers map[string]string `json:"nativeIdentifiers"`

	Tokens []TokenEntry `json:"tokens"`
}

type registryFile struct {
	Chains map[string]ChainEntry `json:"chains"`
}

// Registry holds the loaded token configuration. All lookups are side-effect
// free; nothing is mutated after Load returns.
type Registry struct {
	chains map[uint64]ChainEntry

	// byProvider maps provider -> chain id -> lowercase address -> token
	byProvider map[string]map[uint64]map[string]TokenEntry
}

// Locate returns the registry file path from the environment or the first
// conventional path that exists. A missing file is startup-fatal for callers.
func Locate() (string, error) {
	if p := os.Getenv(registryPathEnvVar); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("token registry %s from %s: %w", p, registryPathEnvVar, err)
		}
		return p, nil
	}
	for _, p := range conventionalPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no token registry file found (set %s or provide one of %v)",
		registryPathEnvVar, conventionalPaths)
}

// Load reads and indexes the registry file at the given path.
func Load(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading token registry %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse builds a registry from raw JSON configuration.
func Parse(raw []byte) (*Registry, error) {
	var file registryFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing token registry: %w", err)
	}
	if len(file.Chains) == 0 {
		return nil, fmt.Errorf("token registry has no chains configured")
	}

	r := &Registry{
		chains:     make(map[uint64]ChainEntry, len(file.Chains)),
		byProvider: map[string]map[uint64]map[string]TokenEntry{},
	}

	for key, chain := range file.Chains {
		var chainID uint64
		if _, err := fmt.Sscanf(key, "%d", &chainID); err != nil || chainID == 0 {
			return nil, fmt.Errorf("token registry: invalid chain id %q", key)
		}
		r.chains[chainID] = chain

		for _, token := range chain.Tokens {
			addr := strings.ToLower(token.Address)
			for _, provider := range token.Providers {
				provider = strings.ToLower(provider)
				if r.byProvider[provider] == nil {
					r.byProvider[provider] = map[uint64]map[string]TokenEntry{}
				}
				if r.byProvider[provider][chainID] == nil {
					r.byProvider[provider][chainID] = map[string]TokenEntry{}
				}
				r.byProvider[provider][chainID][addr] = token
			}
		}
	}

	logrus.WithField("chains", len(r.chains)).Debug("Token registry loaded")
	return r, nil
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
	defaultErr      error
)

// Default returns the process-wide registry, loading it lazily on first use.
// A load failure is recorded once and returned on every call; it is never
// retried per-request.
func Default() (*Registry, error) {
	defaultOnce.Do(func() {
		path, err := Locate()
		if err != nil {
			defaultErr = err
			return
		}
		defaultRegistry, defaultErr = Load(path)
	})
	return defaultRegistry, defaultErr
}

// Chain returns the configuration entry for a chain id.
func (r *Registry) Chain(chainID uint64) (ChainEntry, bool) {
	c, ok := r.chains[chainID]
	return c, ok
}

// ChainIDs lists every configured chain id.
func (r *Registry) ChainIDs() []uint64 {
	ids := make([]uint64, 0, len(r.chains))
	for id := range r.chains {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// IsNativeReference reports whether a token reference denotes a chain's
// native asset via one of the reserved sentinels.
func IsNativeReference(ref string) bool {
	switch strings.ToLower(ref) {
	case NativeKeyword, ZeroAddress, NativePlaceholder:
		return true
	}
	return false
}

// Resolve maps (provider, chainID, tokenReference) onto the canonical token
// identity the provider expects. Resolution is idempotent and side-effect
// free.
func (r *Registry) Resolve(provider string, chainID uint64, ref string) (model.ResolvedToken, error) {
	provider = strings.ToLower(provider)

	chain, ok := r.chains[chainID]
	if !ok {
		return model.ResolvedToken{}, swaperr.Newf(swaperr.CodeUnsupportedChain,
			"chain %d is not configured", chainID).
			WithDetail("chainId", chainID)
	}

	nativeID, ok := chain.NativeIdentifiers[provider]
	if !ok {
		return model.ResolvedToken{}, swaperr.Newf(swaperr.CodeUnsupportedChain,
			"provider %s is not configured for chain %d", provider, chainID).
			WithDetail("provider", provider).
			WithDetail("chainId", chainID)
	}

	if IsNativeReference(ref) || strings.EqualFold(ref, nativeID) {
		return model.ResolvedToken{
			Address:   chain.WrappedNativeAddress,
			IsNative:  true,
			Symbol:    chain.NativeSymbol,
			Name:      chain.NativeName,
			Decimals:  chain.NativeDecimals,
			Providers: nativeProviders(chain),
		}, nil
	}

	tokens := r.byProvider[provider][chainID]
	if token, ok := tokens[strings.ToLower(ref)]; ok {
		return resolved(token), nil
	}

	// Address lookup missed; fall back to a symbol match.
	for _, token := range tokens {
		if strings.EqualFold(token.Symbol, ref) {
			return resolved(token), nil
		}
	}

	return model.ResolvedToken{}, swaperr.Newf(swaperr.CodeUnsupportedToken,
		"token %s is not supported by %s on chain %d", ref, provider, chainID).
		WithDetail("token", ref).
		WithDetail("provider", provider).
		WithDetail("chainId", chainID).
		WithDetail("supportedSymbols", r.supportedSymbols(provider, chainID))
}

// supportedSymbols lists every symbol the provider supports on the chain, for
// diagnosability of unsupported-token failures.
func (r *Registry) supportedSymbols(provider string, chainID uint64) []string {
	tokens := r.byProvider[provider][chainID]
	symbols := make([]string, 0, len(tokens))
	for _, token := range tokens {
		symbols = append(symbols, token.Symbol)
	}
	sort.Strings(symbols)
	return symbols
}

func nativeProviders(chain ChainEntry) []string {
	providers := make([]string, 0, len(chain.NativeIdentifiers))
	for p := range chain.NativeIdentifiers {
		providers = append(providers, p)
	}
	sort.Strings(providers)
	return providers
}

func resolved(token TokenEntry) model.ResolvedToken {
	providers := make([]string, len(token.Providers))
	copy(providers, token.Providers)
	sort.Strings(providers)
	return model.ResolvedToken{
		Address:   strings.ToLower(token.Address),
		IsNative:  false,
		Symbol:    token.Symbol,
		Name:      token.Name,
		Decimals:  token.Decimals,
		Providers: providers,
	}
}
