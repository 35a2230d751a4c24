package middleware

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/bookshop/pkg/logger"
)

// RequestLogger stores a request-scoped logger in the context, enriched with
// correlation_id, trace_id and span_id. Mount it after RequestLogging and
// Tracing. Handlers get it back with logger.FromContext.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ViewScope tags the request context and its logger with the view ID taken
// from the named chi URL parameter. It must be mounted on a route that
// declares the parameter. Requests without a value pass through untouched.
func ViewScope(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			viewID := chi.URLParam(r, param)
			if viewID == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := logger.WithViewID(r.Context(), viewID)
			ctx = logger.NewContext(ctx, logger.FromContext(ctx).With(slog.String("view_id", viewID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
