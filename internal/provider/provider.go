// Package provider defines the capability contract every swap backend
// implements, plus the HTTP adapters for the concrete backends.
package provider

import (
	"context"

	"github.com/yourorg/swap-router/internal/model"
)

// Provider is the polymorphic contract over the capability set. Concrete
// adapters own their network protocol and authentication; the rest of the
// engine only sees this interface.
type Provider interface {
	// Name is the unique provider identifier used in priority lists and results.
	Name() string

	// SupportsRoute reports whether the provider can serve the route. It never
	// propagates an error: an internal failure is reported as false.
	SupportsRoute(ctx context.Context, route model.RouteParams) bool

	// GetQuote returns an advisory estimate for the swap. Failures are typed
	// through the swaperr taxonomy at the adapter boundary.
	GetQuote(ctx context.Context, req *model.SwapRequest) (*model.SwapQuote, error)

	// PrepareSwap builds the unsigned transaction bundle. Implementations
	// fetch a fresh quote internally; they never reuse a caller-supplied one.
	// A blocker that is only a required token approval is signalled as a
	// distinct APPROVAL_REQUIRED error so callers can surface it as actionable.
	PrepareSwap(ctx context.Context, req *model.SwapRequest) (*model.PreparedSwap, error)

	// MonitorTransaction reports the lifecycle state of a submitted swap.
	MonitorTransaction(ctx context.Context, txHash string, chainID uint64) (model.TxStatus, error)
}
