package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/navi/orderflow/internal/orders/ports"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{w, http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// WithMetrics records request count, latency and in-flight requests labelled
// by the matched route template, so order ids never become label values.
func WithMetrics(next http.Handler, metrics *Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		route := routeTemplate(r)
		done := metrics.StartRequest(r.Context(), r.Method, route)
		defer done()
		rw := newResponseWriter(w)

		next.ServeHTTP(rw, r)

		metrics.RecordRequest(r.Context(), r.Method, route, rw.statusCode, time.Since(start).Seconds())
	})
}

// MetricsMiddleware adapts WithMetrics for mux.Router.Use.
func MetricsMiddleware(metrics *Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return WithMetrics(next, metrics)
	}
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

type identityKey struct{}

type identity struct {
	caller     ports.Caller
	credential string
}

// Authenticate resolves the Authorization credential ("Token <t>" or
// "Bearer <t>") to a caller. The credential doubles as the order's cart token.
func Authenticate(resolver ports.IdentityResolver) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := credentialFrom(r.Header.Get("Authorization"))
			if credential == "" {
				writeError(w, http.StatusUnauthorized, ports.ErrUnauthenticated.Error())
				return
			}

			caller, err := resolver.ResolveCaller(r.Context(), credential)
			if err != nil {
				if errors.Is(err, ports.ErrUnauthenticated) {
					writeError(w, http.StatusUnauthorized, err.Error())
					return
				}
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey{}, identity{caller: caller, credential: credential})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func credentialFrom(header string) string {
	scheme, value, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok {
		return ""
	}
	switch strings.ToLower(scheme) {
	case "token", "bearer":
		return strings.TrimSpace(value)
	default:
		return ""
	}
}

func identityFrom(ctx context.Context) (identity, bool) {
	id, ok := ctx.Value(identityKey{}).(identity)
	return id, ok
}
