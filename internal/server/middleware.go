package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/fernwall/screentime/internal/metrics"
)

// requestLogger logs each request with zap and records prometheus
// counters/durations keyed by route pattern. The pattern keeps label
// cardinality bounded: /pairing/status/{token} is one series no matter
// how many tokens pass through it.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			// The pattern is only filled in after routing.
			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unrouted"
			}

			elapsed := time.Since(start)
			metrics.RequestsTotal.WithLabelValues(
				route, r.Method, strconv.Itoa(ww.Status())).Inc()
			metrics.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())

			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", elapsed))
		})
	}
}

// recoverer turns handler panics into a generic server fault response.
// Unexpected conditions surface as 500, never silently swallowed and
// never a partial-commit state (stores commit per transaction).
func recoverer(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("handler panic",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path))
					writeError(w, http.StatusInternalServerError, "internal_error", nil)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
