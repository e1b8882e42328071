// Package router implements provider selection for swap requests: concurrent
// route discovery, priority ordering, and a timeout-bounded sequential
// fallback search for a working quote.
package router

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yourorg/swap-router/internal/circuitbreaker"
	"github.com/yourorg/swap-router/internal/model"
	"github.com/yourorg/swap-router/internal/otel"
	"github.com/yourorg/swap-router/internal/provider"
	"github.com/yourorg/swap-router/internal/swaperr"
)

// Options configures the router's ordering and timeout behaviour. Priority
// lists are configuration, not code: they differ between same-chain and
// cross-chain routes and may be overridden per deployment.
type Options struct {
	// SameChainPriority orders providers for routes where origin and
	// destination chain ids are equal
	SameChainPriority []string

	// CrossChainPriority orders providers for routes that cross chains
	CrossChainPriority []string

	// AttemptTimeout bounds each candidate attempt so one slow backend cannot
	// starve the whole request. Zero disables the per-attempt deadline.
	AttemptTimeout time.Duration
}

// DefaultOptions returns the standard ordering: same-chain DEX aggregator
// variants first for same-chain routes, the cross-chain specialist first for
// cross-chain routes.
func DefaultOptions() Options {
	return Options{
		SameChainPriority:  []string{"uniswap-trading-api", "uniswap", "thirdweb"},
		CrossChainPriority: []string{"thirdweb"},
		AttemptTimeout:     15 * time.Second,
	}
}

// Router holds a closed name-to-implementation mapping built once at startup.
type Router struct {
	providers map[string]provider.Provider
	order     []string
	breaker   *circuitbreaker.Breaker
	opts      Options
}

// New creates a router over the registered providers. The breaker is
// optional; when present, providers with an open circuit are skipped during
// the fallback search.
func New(providers []provider.Provider, breaker *circuitbreaker.Breaker, opts Options) *Router {
	r := &Router{
		providers: make(map[string]provider.Provider, len(providers)),
		breaker:   breaker,
		opts:      opts,
	}
	for _, p := range providers {
		if _, dup := r.providers[p.Name()]; dup {
			continue
		}
		r.providers[p.Name()] = p
		r.order = append(r.order, p.Name())
	}
	return r
}

// Provider returns a registered provider by name.
func (r *Router) Provider(name string) (provider.Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// ProviderNames lists the registered providers in registration order.
func (r *Router) ProviderNames() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Available reports whether the provider is registered and its circuit is not
// open.
func (r *Router) Available(name string) bool {
	if _, ok := r.providers[name]; !ok {
		return false
	}
	if r.breaker != nil && r.breaker.State(name) == circuitbreaker.StateOpen {
		return false
	}
	return true
}

// SupportingProviders fans out the route check to every registered provider
// concurrently and returns the supporting subset in registration order. A
// check that fails or panics counts as "does not support"; discovery never
// fails wholesale because one provider errored.
func (r *Router) SupportingProviders(ctx context.Context, route model.RouteParams) []string {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		supports = make(map[string]bool, len(r.order))
	)

	for _, name := range r.order {
		wg.Add(1)
		go func(name string, p provider.Provider) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					logrus.WithFields(logrus.Fields{
						"provider": name,
						"panic":    rec,
					}).Warn("Route support check panicked; treating as unsupported")
				}
			}()

			if p.SupportsRoute(ctx, route) {
				mu.Lock()
				supports[name] = true
				mu.Unlock()
			}
		}(name, r.providers[name])
	}
	wg.Wait()

	supporting := make([]string, 0, len(supports))
	for _, name := range r.order {
		if supports[name] {
			supporting = append(supporting, name)
		}
	}

	logrus.WithFields(logrus.Fields{
		"fromChainId": route.FromChainID,
		"toChainId":   route.ToChainID,
		"supporting":  supporting,
	}).Debug("Route discovery complete")
	return supporting
}

// candidates orders the discovered providers: the classification's priority
// list filtered to the discovered subset, then any remaining discovered
// providers appended as final fallbacks.
func (r *Router) candidates(route model.RouteParams, discovered []string) []string {
	priority := r.opts.CrossChainPriority
	if route.SameChain() {
		priority = r.opts.SameChainPriority
	}

	inDiscovered := make(map[string]bool, len(discovered))
	for _, name := range discovered {
		inDiscovered[name] = true
	}

	ordered := make([]string, 0, len(discovered))
	seen := make(map[string]bool, len(discovered))
	for _, name := range priority {
		if inDiscovered[name] && !seen[name] {
			ordered = append(ordered, name)
			seen[name] = true
		}
	}
	for _, name := range discovered {
		if !seen[name] {
			ordered = append(ordered, name)
			seen[name] = true
		}
	}
	return ordered
}

// SelectBestProvider runs the ordered fallback search: candidates are tried
// strictly in sequence, each under the per-attempt deadline, and the first
// successful quote wins. Providers may have side effects per attempt, so the
// search never speculates concurrently.
func (r *Router) SelectBestProvider(ctx context.Context, req *model.SwapRequest) (*model.ProviderSelectionResult, error) {
	ctx, span := otel.Tracer().Start(ctx, "router.SelectBestProvider",
		trace.WithAttributes(
			attribute.Int64("swap.from_chain", int64(req.FromChainID)),
			attribute.Int64("swap.to_chain", int64(req.ToChainID)),
		))
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, swaperr.Wrap(swaperr.CodeInvalidParams, "invalid swap request", err)
	}

	route := req.Route()
	discovered := r.SupportingProviders(ctx, route)
	if len(discovered) == 0 {
		return nil, swaperr.Newf(swaperr.CodeNoRouteFound,
			"no provider supports the route %s (chain %d) -> %s (chain %d)",
			req.FromToken, req.FromChainID, req.ToToken, req.ToChainID).
			WithDetail("providers", r.ProviderNames())
	}

	attempts := map[string]interface{}{}
	for _, name := range r.candidates(route, discovered) {
		if r.breaker != nil && !r.breaker.Allow(name) {
			attempts[name] = "skipped: circuit open"
			logrus.WithField("provider", name).Debug("Skipping provider with open circuit")
			continue
		}

		p := r.providers[name]
		quote, err := callWithDeadline(ctx, r.opts.AttemptTimeout, name, func(ctx context.Context) (*model.SwapQuote, error) {
			return p.GetQuote(ctx, req)
		})
		if err == nil {
			if r.breaker != nil {
				r.breaker.RecordSuccess(name)
			}
			span.SetAttributes(attribute.String("swap.provider", name))
			logrus.WithField("provider", name).Debug("Provider selected")
			return &model.ProviderSelectionResult{Provider: name, Quote: quote}, nil
		}

		normalized := swaperr.Normalize(name, err)
		attempts[name] = normalized.Error()
		// Only infrastructure-class failures count against provider health;
		// a no-route or liquidity miss says nothing about availability.
		if r.breaker != nil && normalized.IsRetryable() {
			r.breaker.RecordFailure(name, normalized.Message)
		}
		otel.RecordError(ctx, normalized)
		logrus.WithFields(logrus.Fields{
			"provider": name,
			"code":     normalized.Code,
		}).Warn("Provider attempt failed; trying next candidate")

		if ctx.Err() != nil {
			break
		}
	}

	return nil, swaperr.New(swaperr.CodeProviderError, "all candidate providers failed").
		WithDetail("attempts", attempts)
}

// SelectBestProviderWithoutQuote returns the top-priority supporting provider
// without calling GetQuote, for call sites that must not invalidate a
// provider's internal quote caching by double-querying.
func (r *Router) SelectBestProviderWithoutQuote(ctx context.Context, req *model.SwapRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", swaperr.Wrap(swaperr.CodeInvalidParams, "invalid swap request", err)
	}

	route := req.Route()
	discovered := r.SupportingProviders(ctx, route)
	for _, name := range r.candidates(route, discovered) {
		if r.breaker != nil && !r.breaker.Allow(name) {
			continue
		}
		return name, nil
	}

	return "", swaperr.Newf(swaperr.CodeNoRouteFound,
		"no provider supports the route %s (chain %d) -> %s (chain %d)",
		req.FromToken, req.FromChainID, req.ToToken, req.ToChainID).
		WithDetail("providers", r.ProviderNames())
}
