package router

import (
	"context"
	"time"

	"github.com/yourorg/swap-router/internal/swaperr"
)

// callWithDeadline runs a fallible provider operation under a deadline. The
// child context is cancelled when the deadline passes, which signals
// cancellation to the operation; if the underlying call cannot be cancelled,
// its eventual result is simply ignored.
func callWithDeadline[T any](ctx context.Context, timeout time.Duration, provider string, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	// Buffered so an abandoned call can still complete its send.
	done := make(chan outcome, 1)

	go func() {
		value, err := fn(callCtx)
		done <- outcome{value: value, err: err}
	}()

	select {
	case out := <-done:
		return out.value, out.err
	case <-callCtx.Done():
		var zero T
		if ctx.Err() != nil {
			// The parent was cancelled, not the per-attempt timer. A caller
			// abort must not count as a retryable provider failure.
			return zero, swaperr.Wrap(swaperr.CodeRequestCancelled, "request cancelled", ctx.Err()).
				WithDetail("provider", provider)
		}
		return zero, swaperr.Newf(swaperr.CodeTimeout, "provider %s exceeded %s deadline", provider, timeout).
			WithDetail("provider", provider).
			WithDetail("timeoutMs", timeout.Milliseconds())
	}
}
