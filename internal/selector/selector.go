// Package selector is the single entry point use cases consume: automatic
// best-provider selection with multi-hop fallback, and named-provider
// preparation with alias resolution and a per-alias fallback chain.
package selector

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/swap-router/internal/fees"
	"github.com/yourorg/swap-router/internal/model"
	"github.com/yourorg/swap-router/internal/router"
	"github.com/yourorg/swap-router/internal/sanitize"
	"github.com/yourorg/swap-router/internal/swaperr"
)

// Config tunes the façade.
type Config struct {
	Aliases Aliases

	// QuoteCacheTTL bounds how long a quote is reused between a quote call
	// and a subsequent prepare. Zero disables the cache.
	QuoteCacheTTL time.Duration

	// Fees computes the protocol's cut for results; nil falls back to a
	// calculator with the built-in defaults.
	Fees *fees.Calculator
}

// Selector translates domain routing results into the API-facing operations.
type Selector struct {
	router   *router.Router
	multiHop *router.MultiHop
	aliases  Aliases
	fees     *fees.Calculator
	cache    *quoteCache
	now      func() time.Time
}

// New creates the façade. The multi-hop builder is optional; without it,
// routes no provider supports directly simply fail with no-route.
func New(r *router.Router, multiHop *router.MultiHop, cfg Config) *Selector {
	s := &Selector{
		router:   r,
		multiHop: multiHop,
		aliases:  cfg.Aliases,
		fees:     cfg.Fees,
		now:      time.Now,
	}
	if s.aliases == nil {
		s.aliases = DefaultAliases()
	}
	if s.fees == nil {
		s.fees = fees.NewCalculator(nil)
	}
	if cfg.QuoteCacheTTL > 0 {
		s.cache = newQuoteCache(cfg.QuoteCacheTTL)
	}
	return s
}

// GetQuoteWithBestProvider selects the highest-priority working provider and
// returns its quote. When no provider supports a cross-chain route directly,
// the multi-hop builder is consulted before giving up.
func (s *Selector) GetQuoteWithBestProvider(ctx context.Context, req *model.SwapRequest) (*model.ProviderSelectionResult, error) {
	if err := req.Validate(); err != nil {
		return nil, swaperr.Wrap(swaperr.CodeInvalidParams, "invalid swap request", err)
	}

	if s.cache != nil {
		if cached, ok := s.cache.get(req, s.now()); ok {
			logrus.WithField("provider", cached.Provider).Debug("Quote served from cache")
			return cached, nil
		}
	}

	result, err := s.router.SelectBestProvider(ctx, req)
	if err != nil {
		result, err = s.multiHopFallback(ctx, req, err)
		if err != nil {
			return nil, err
		}
	}

	// Validate guarantees a positive amount, so the fee cannot fail here.
	if fee, feeErr := s.fees.CalculateFee(result.Provider, req.Amount); feeErr == nil {
		result.ProtocolFee = fee
	}

	if s.cache != nil {
		s.cache.put(req, result, s.now())
	}
	return result, nil
}

// multiHopFallback tries the synthetic two-leg route when direct selection
// found no route for a cross-chain request. Any other failure propagates
// unchanged.
func (s *Selector) multiHopFallback(ctx context.Context, req *model.SwapRequest, routeErr error) (*model.ProviderSelectionResult, error) {
	typed := swaperr.As(routeErr)
	if s.multiHop == nil || req.SameChain() || typed == nil || typed.Code != swaperr.CodeNoRouteFound {
		return nil, routeErr
	}

	logrus.WithFields(logrus.Fields{
		"fromChainId": req.FromChainID,
		"toChainId":   req.ToChainID,
	}).Debug("No direct route; trying multi-hop composition")

	quote, err := s.multiHop.GetQuote(ctx, req)
	if err != nil {
		return nil, err
	}
	return &model.ProviderSelectionResult{Provider: s.multiHop.Name(), Quote: quote}, nil
}

// PrepareSwapWithProvider prepares the unsigned transaction bundle. With an
// empty preferred name the best provider is chosen without a quote call (a
// quote would invalidate some providers' internal quote caching); otherwise
// the preferred name is resolved through the alias table and its concrete
// variants are tried in sequence.
func (s *Selector) PrepareSwapWithProvider(ctx context.Context, req *model.SwapRequest, preferred string) (*model.PreparedSwap, error) {
	if err := req.Validate(); err != nil {
		return nil, swaperr.Wrap(swaperr.CodeInvalidParams, "invalid swap request", err)
	}

	if preferred == "" {
		return s.prepareWithBest(ctx, req)
	}

	chain := s.aliases.Resolve(preferred)
	registered := make([]string, 0, len(chain))
	for _, name := range chain {
		if s.isRegistered(name) {
			registered = append(registered, name)
		}
	}
	if len(registered) == 0 {
		return nil, swaperr.Newf(swaperr.CodeInvalidParams,
			"unknown provider %q", preferred).
			WithDetail("preferredProvider", preferred).
			WithDetail("availableProviders", s.GetAvailableProviders())
	}

	attempts := map[string]interface{}{}
	for _, name := range registered {
		prepared, err := s.prepareWith(ctx, req, name)
		if err == nil {
			return prepared, nil
		}

		typed := swaperr.Normalize(name, err)
		// A required approval is actionable by the caller, not a reason to
		// silently fall through to a different provider variant.
		if typed.Code == swaperr.CodeApprovalRequired {
			return nil, typed
		}
		attempts[name] = typed.Error()
		logrus.WithFields(logrus.Fields{
			"provider": name,
			"code":     typed.Code,
		}).Warn("Preparation failed; trying next provider variant")
	}

	return nil, swaperr.Newf(swaperr.CodeProviderError,
		"all variants of provider %q failed", preferred).
		WithDetail("preferredProvider", preferred).
		WithDetail("attempts", attempts)
}

func (s *Selector) prepareWithBest(ctx context.Context, req *model.SwapRequest) (*model.PreparedSwap, error) {
	name, err := s.router.SelectBestProviderWithoutQuote(ctx, req)
	if err != nil {
		typed := swaperr.As(err)
		if s.multiHop != nil && !req.SameChain() && typed != nil && typed.Code == swaperr.CodeNoRouteFound &&
			s.multiHop.SupportsRoute(ctx, req.Route()) {
			name = s.multiHop.Name()
		} else {
			return nil, err
		}
	}
	return s.prepareWith(ctx, req, name)
}

func (s *Selector) prepareWith(ctx context.Context, req *model.SwapRequest, name string) (*model.PreparedSwap, error) {
	var (
		prepared *model.PreparedSwap
		err      error
	)
	if s.multiHop != nil && name == s.multiHop.Name() {
		prepared, err = s.multiHop.PrepareSwap(ctx, req)
	} else {
		p, ok := s.router.Provider(name)
		if !ok {
			return nil, swaperr.Newf(swaperr.CodeInvalidParams, "unknown provider %q", name).
				WithDetail("availableProviders", s.GetAvailableProviders())
		}
		prepared, err = p.PrepareSwap(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	if err := sanitize.Prepared(prepared, req.FromChainID); err != nil {
		return nil, err
	}

	if fee, feeErr := s.fees.CalculateFee(prepared.Provider, req.Amount); feeErr == nil {
		prepared.ProtocolFee = fee
	}
	return prepared, nil
}

// GetAvailableProviders lists every provider name the façade can route to.
func (s *Selector) GetAvailableProviders() []string {
	names := s.router.ProviderNames()
	if s.multiHop != nil {
		names = append(names, s.multiHop.Name())
	}
	return names
}

// IsProviderAvailable reports whether a preferred name resolves to at least
// one registered provider whose circuit is not open.
func (s *Selector) IsProviderAvailable(preferred string) bool {
	for _, name := range s.aliases.Resolve(preferred) {
		if s.multiHop != nil && name == s.multiHop.Name() {
			return true
		}
		if s.router.Available(name) {
			return true
		}
	}
	return false
}

// MonitorTransaction reports swap status through the named provider.
func (s *Selector) MonitorTransaction(ctx context.Context, preferred, txHash string, chainID uint64) (model.TxStatus, error) {
	for _, name := range s.aliases.Resolve(preferred) {
		if s.multiHop != nil && name == s.multiHop.Name() {
			return s.multiHop.MonitorTransaction(ctx, txHash, chainID)
		}
		if p, ok := s.router.Provider(name); ok {
			return p.MonitorTransaction(ctx, txHash, chainID)
		}
	}
	return model.TxStatusPending, swaperr.Newf(swaperr.CodeInvalidParams, "unknown provider %q", preferred).
		WithDetail("availableProviders", s.GetAvailableProviders())
}

func (s *Selector) isRegistered(name string) bool {
	if s.multiHop != nil && name == s.multiHop.Name() {
		return true
	}
	_, ok := s.router.Provider(name)
	return ok
}
