package recs

import (
	"context"
	"fmt"

	"storefront/internal/logging"
)

// Detach runs fn on its own goroutine for best-effort side work such as
// view telemetry. fn sees a context that is never cancelled by ctx. Errors
// and panics are logged and counted, never returned.
//
// ctx must outlive the caller; do not pass a *fasthttp.RequestCtx, which
// is recycled once the handler returns.
func Detach(ctx context.Context, task string, fn func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				detachedFailures.WithLabelValues(task).Inc()
				logging.Error().Str("task", task).Str("panic", fmt.Sprint(r)).Msg("detached task panicked")
			}
		}()
		if err := fn(ctx); err != nil {
			detachedFailures.WithLabelValues(task).Inc()
			logging.Warn().Err(err).Str("task", task).Msg("detached task failed")
		}
	}()
}
